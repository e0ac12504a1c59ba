package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string
	JWTExpiry time.Duration

	// AllowedOrigins lists the staff front-end origins allowed by CORS.
	AllowedOrigins []string

	DB      DatabaseConfig
	Redis   RedisConfig
	Cart    CartConfig
	Billing BillingConfig
	Company CompanyConfig
	Archive ArchiveConfig
	Admin   AdminConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CartConfig controls how long an idle session cart survives.
type CartConfig struct {
	TTL time.Duration
}

// BillingConfig contains invoicing rules that differ between deployments.
type BillingConfig struct {
	InvoicePrefix        string
	CreditDueDays        int
	DueSoonDays          int
	DefaultTaxPercentage decimal.Decimal
	OverdueSweepSchedule string
}

// CompanyConfig is printed in the header of invoice documents.
type CompanyConfig struct {
	Name    string
	Address string
	Phone   string
	Email   string
	TaxID   string
}

// ArchiveConfig contains the S3 bucket generated documents are archived to.
type ArchiveConfig struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// AdminConfig seeds the first admin login on an empty database.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Production relies on real environment variables, so a missing file is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Billing
	cfg.Billing = BillingConfig{
		InvoicePrefix:        getEnv("INVOICE_PREFIX", "INV"),
		CreditDueDays:        getEnvInt("CREDIT_DUE_DAYS", 30),
		DueSoonDays:          getEnvInt("DUE_SOON_DAYS", 7),
		OverdueSweepSchedule: getEnv("OVERDUE_SWEEP_SCHEDULE", "@hourly"),
	}

	// Company letterhead
	cfg.Company = CompanyConfig{
		Name:    getEnv("COMPANY_NAME", "Back Office"),
		Address: getEnv("COMPANY_ADDRESS", ""),
		Phone:   getEnv("COMPANY_PHONE", ""),
		Email:   getEnv("COMPANY_EMAIL", ""),
		TaxID:   getEnv("COMPANY_TAX_ID", ""),
	}

	// Document archive
	cfg.Archive = ArchiveConfig{
		Region:          getEnv("S3_REGION", "ap-south-1"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	// Bootstrap admin, created at startup when missing
	cfg.Admin = AdminConfig{
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Name:     getEnv("ADMIN_NAME", "Administrator"),
	}

	var err error
	if cfg.Billing.DefaultTaxPercentage, err = getEnvDecimal("DEFAULT_TAX_PERCENTAGE", "0"); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TAX_PERCENTAGE: %w", err)
	}
	if cfg.JWTExpiry, err = parseDurationEnv("JWT_EXPIRY", "12h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
	}
	if cfg.Cart.TTL, err = parseDurationEnv("CART_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid CART_TTL: %w", err)
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	if cfg.Billing.CreditDueDays < 0 || cfg.Billing.DueSoonDays < 0 {
		return nil, errors.New("CREDIT_DUE_DAYS and DUE_SOON_DAYS must be >= 0")
	}

	if (cfg.Admin.Email == "") != (cfg.Admin.Password == "") {
		return nil, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvList splits a comma separated variable, dropping blank entries.
func getEnvList(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDecimal parses a decimal environment variable, e.g. a tax rate.
func getEnvDecimal(key, def string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, def))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("value must be >= 0")
	}
	return d, nil
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
