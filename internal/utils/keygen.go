package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateInvoiceNumber returns prefix-XXXXXXXX where the suffix is the first
// eight hex characters of a random UUID, uppercased.
// Example: INV-3F9A0C1D
func GenerateInvoiceNumber(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(hex[:8])
}
