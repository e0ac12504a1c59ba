package testutil

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
)

// ---- invoices ----

// InvoiceMem is the invoice view of a MemoryStore.
type InvoiceMem struct{ m *MemoryStore }

// Invoices returns the invoice and invoice item tables.
func (m *MemoryStore) Invoices() *InvoiceMem { return &InvoiceMem{m} }

func joinInvoice(st *state, inv models.Invoice) models.Invoice {
	c := st.customers[inv.CustomerID]
	inv.CustomerName, inv.CustomerPhone, inv.CustomerType = c.Name, c.Phone, c.CustomerType
	return inv
}

func calendarDate(t time.Time) string { return t.Format("2006-01-02") }

func matchInvoice(inv models.Invoice, f repository.InvoiceFilter) bool {
	if f.Query != "" && !contains(inv.InvoiceNumber, f.Query) && !contains(inv.CustomerName, f.Query) {
		return false
	}
	if f.Status != "" && inv.Status != f.Status {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			found = found || inv.Status == s
		}
		if !found {
			return false
		}
	}
	if f.ExcludeDraft && inv.Status == models.InvoiceDraft {
		return false
	}
	if f.PaymentType != "" && inv.PaymentType != f.PaymentType {
		return false
	}
	if f.CustomerID > 0 && inv.CustomerID != f.CustomerID {
		return false
	}
	if f.CustomerName != "" && !contains(inv.CustomerName, f.CustomerName) {
		return false
	}
	if f.DateFrom != nil && calendarDate(inv.CreatedAt) < calendarDate(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && calendarDate(inv.CreatedAt) > calendarDate(*f.DateTo) {
		return false
	}
	return true
}

func filterInvoices(st *state, f repository.InvoiceFilter) []models.Invoice {
	out := []models.Invoice{}
	for _, inv := range st.invoices {
		inv = joinInvoice(st, inv)
		if matchInvoice(inv, f) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *InvoiceMem) List(_ context.Context, f repository.InvoiceFilter) ([]models.Invoice, int, error) {
	st, unlock := s.m.lock()
	defer unlock()
	rows := filterInvoices(st, f)
	return page(rows, f.Page, f.Limit), len(rows), nil
}

func (s *InvoiceMem) Totals(_ context.Context, f repository.InvoiceFilter) (*models.InvoiceTotals, error) {
	st, unlock := s.m.lock()
	defer unlock()
	t := &models.InvoiceTotals{}
	for _, inv := range filterInvoices(st, f) {
		t.Count++
		t.Total = t.Total.Add(inv.Total)
		t.AmountPaid = t.AmountPaid.Add(inv.AmountPaid)
		t.AmountDue = t.AmountDue.Add(inv.AmountDue())
	}
	return t, nil
}

func (s *InvoiceMem) GetByID(_ context.Context, id int) (*models.Invoice, error) {
	st, unlock := s.m.lock()
	defer unlock()
	inv, ok := st.invoices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	inv = joinInvoice(st, inv)
	return &inv, nil
}

func (s *InvoiceMem) GetForUpdate(ctx context.Context, id int) (*models.Invoice, error) {
	return s.GetByID(ctx, id)
}

func (s *InvoiceMem) NumberExists(_ context.Context, number string) (bool, error) {
	st, unlock := s.m.lock()
	defer unlock()
	for _, inv := range st.invoices {
		if inv.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func stripInvoiceJoin(inv models.Invoice) models.Invoice {
	inv.CustomerName, inv.CustomerPhone, inv.CustomerType = "", "", ""
	return inv
}

func (s *InvoiceMem) Create(_ context.Context, inv *models.Invoice) error {
	st, unlock := s.m.lock()
	defer unlock()
	if _, ok := st.customers[inv.CustomerID]; !ok {
		return referenced("invoices_customer_id_fkey")
	}
	for _, other := range st.invoices {
		if other.InvoiceNumber == inv.InvoiceNumber {
			return duplicate("invoices_invoice_number_key")
		}
	}
	inv.ID = st.id()
	inv.CreatedAt = s.m.Now()
	inv.UpdatedAt = inv.CreatedAt
	st.invoices[inv.ID] = stripInvoiceJoin(*inv)
	return nil
}

func (s *InvoiceMem) Update(_ context.Context, inv *models.Invoice) error {
	st, unlock := s.m.lock()
	defer unlock()
	old, ok := st.invoices[inv.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if _, ok := st.customers[inv.CustomerID]; !ok {
		return referenced("invoices_customer_id_fkey")
	}
	updated := stripInvoiceJoin(*inv)
	updated.InvoiceNumber = old.InvoiceNumber
	updated.CreatedBy = old.CreatedBy
	updated.CreatedAt = old.CreatedAt
	updated.UpdatedAt = s.m.Now()
	inv.UpdatedAt = updated.UpdatedAt
	st.invoices[inv.ID] = updated
	return nil
}

func (s *InvoiceMem) Delete(_ context.Context, id int) error {
	st, unlock := s.m.lock()
	defer unlock()
	delete(st.invoices, id)
	for k, it := range st.items {
		if it.InvoiceID == id {
			delete(st.items, k)
		}
	}
	for k, p := range st.payments {
		if p.InvoiceID == id {
			delete(st.payments, k)
		}
	}
	for k, r := range st.reminders {
		if r.InvoiceID == id {
			delete(st.reminders, k)
		}
	}
	return nil
}

func (s *InvoiceMem) MarkOverdue(_ context.Context, today time.Time) ([]int, error) {
	st, unlock := s.m.lock()
	defer unlock()
	ids := []int{}
	for id, inv := range st.invoices {
		due := inv.EffectiveDueDate()
		if inv.Status != models.InvoicePendingPayment || due == nil {
			continue
		}
		if calendarDate(*due) < calendarDate(today) {
			inv.Status = models.InvoiceOverdue
			inv.UpdatedAt = s.m.Now()
			st.invoices[id] = inv
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func joinItem(st *state, it models.InvoiceItem) models.InvoiceItem {
	it.ProductName = st.products[it.ProductID].Name
	it.Quality = st.qualities[it.ProductQualityID].Quality
	return it
}

func (s *InvoiceMem) ListItems(_ context.Context, invoiceID int) ([]models.InvoiceItem, error) {
	st, unlock := s.m.lock()
	defer unlock()
	out := []models.InvoiceItem{}
	for _, it := range st.items {
		if it.InvoiceID == invoiceID {
			out = append(out, joinItem(st, it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InvoiceMem) GetItem(_ context.Context, id int) (*models.InvoiceItem, error) {
	st, unlock := s.m.lock()
	defer unlock()
	it, ok := st.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	it = joinItem(st, it)
	return &it, nil
}

func itemRefsOK(st *state, it *models.InvoiceItem) error {
	if _, ok := st.invoices[it.InvoiceID]; !ok {
		return referenced("invoice_items_invoice_id_fkey")
	}
	if _, ok := st.products[it.ProductID]; !ok {
		return referenced("invoice_items_product_id_fkey")
	}
	if _, ok := st.qualities[it.ProductQualityID]; !ok {
		return referenced("invoice_items_product_quality_id_fkey")
	}
	return nil
}

func (s *InvoiceMem) CreateItem(_ context.Context, it *models.InvoiceItem) error {
	st, unlock := s.m.lock()
	defer unlock()
	if err := itemRefsOK(st, it); err != nil {
		return err
	}
	it.ID = st.id()
	it.CreatedAt = s.m.Now()
	stored := *it
	stored.ProductName, stored.Quality = "", ""
	st.items[it.ID] = stored
	return nil
}

func (s *InvoiceMem) UpdateItem(_ context.Context, it *models.InvoiceItem) error {
	st, unlock := s.m.lock()
	defer unlock()
	old, ok := st.items[it.ID]
	if !ok {
		return nil
	}
	if err := itemRefsOK(st, it); err != nil {
		return err
	}
	old.ProductID, old.ProductQualityID = it.ProductID, it.ProductQualityID
	old.Quantity, old.UnitPrice = it.Quantity, it.UnitPrice
	old.DiscountPercentage, old.DiscountAmount, old.Subtotal = it.DiscountPercentage, it.DiscountAmount, it.Subtotal
	st.items[it.ID] = old
	return nil
}

func (s *InvoiceMem) DeleteItem(_ context.Context, id int) error {
	st, unlock := s.m.lock()
	defer unlock()
	delete(st.items, id)
	return nil
}

func (s *InvoiceMem) ListSalesItems(_ context.Context, f repository.SalesItemFilter) ([]repository.SalesItemRow, error) {
	st, unlock := s.m.lock()
	defer unlock()
	ids := make([]int, 0, len(st.items))
	for id := range st.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := []repository.SalesItemRow{}
	for _, id := range ids {
		it := joinItem(st, st.items[id])
		inv := st.invoices[it.InvoiceID]
		day := calendarDate(inv.CreatedAt)
		if inv.Status == models.InvoiceDraft || day < calendarDate(f.DateFrom) || day > calendarDate(f.DateTo) {
			continue
		}
		if f.ProductSearch != "" && !contains(it.ProductName, f.ProductSearch) {
			continue
		}
		if f.Quality != "" && it.Quality != f.Quality {
			continue
		}
		rows = append(rows, repository.SalesItemRow{
			ProductName: it.ProductName,
			Quality:     it.Quality,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return rows, nil
}

// ---- payments ----

// PaymentMem is the payment view of a MemoryStore.
type PaymentMem struct{ m *MemoryStore }

// Payments returns the payment table.
func (m *MemoryStore) Payments() *PaymentMem { return &PaymentMem{m} }

func joinPayment(st *state, p models.Payment) models.Payment {
	p.InvoiceNumber = st.invoices[p.InvoiceID].InvoiceNumber
	p.CustomerName = st.customers[p.CustomerID].Name
	return p
}

func (s *PaymentMem) List(_ context.Context, f repository.PaymentFilter) ([]models.Payment, int, error) {
	st, unlock := s.m.lock()
	defer unlock()
	out := []models.Payment{}
	for _, p := range st.payments {
		p = joinPayment(st, p)
		switch {
		case f.Query != "" && !contains(p.InvoiceNumber, f.Query) && !contains(p.CustomerName, f.Query):
		case f.Status != "" && p.Status != f.Status:
		case f.Method != "" && p.PaymentMethod != f.Method:
		case f.InvoiceID > 0 && p.InvoiceID != f.InvoiceID:
		case f.CustomerID > 0 && p.CustomerID != f.CustomerID:
		case f.DateFrom != nil && calendarDate(p.PaymentDate) < calendarDate(*f.DateFrom):
		case f.DateTo != nil && calendarDate(p.PaymentDate) > calendarDate(*f.DateTo):
		default:
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Page, f.Limit), len(out), nil
}

func (s *PaymentMem) GetByID(_ context.Context, id int) (*models.Payment, error) {
	st, unlock := s.m.lock()
	defer unlock()
	p, ok := st.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	p = joinPayment(st, p)
	return &p, nil
}

func (s *PaymentMem) Create(_ context.Context, p *models.Payment) error {
	st, unlock := s.m.lock()
	defer unlock()
	if _, ok := st.invoices[p.InvoiceID]; !ok {
		return referenced("payments_invoice_id_fkey")
	}
	p.ID = st.id()
	p.CreatedAt = s.m.Now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	stored.InvoiceNumber, stored.CustomerName = "", ""
	st.payments[p.ID] = stored
	return nil
}

func (s *PaymentMem) Update(_ context.Context, p *models.Payment) error {
	st, unlock := s.m.lock()
	defer unlock()
	old, ok := st.payments[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	old.Amount, old.PaymentMethod, old.Status = p.Amount, p.PaymentMethod, p.Status
	old.ReferenceNumber, old.Notes = p.ReferenceNumber, p.Notes
	old.UpdatedAt = s.m.Now()
	p.UpdatedAt = old.UpdatedAt
	st.payments[p.ID] = old
	return nil
}

func (s *PaymentMem) SumCompleted(_ context.Context, invoiceID int) (decimal.Decimal, error) {
	st, unlock := s.m.lock()
	defer unlock()
	sum := decimal.Zero
	for _, p := range st.payments {
		if p.InvoiceID == invoiceID && p.Status == models.PaymentCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

// ---- reminders ----

// ReminderMem is the reminder view of a MemoryStore.
type ReminderMem struct{ m *MemoryStore }

// Reminders returns the reminder table.
func (m *MemoryStore) Reminders() *ReminderMem { return &ReminderMem{m} }

func (s *ReminderMem) Create(_ context.Context, r *models.Reminder) error {
	st, unlock := s.m.lock()
	defer unlock()
	if _, ok := st.invoices[r.InvoiceID]; !ok {
		return referenced("reminders_invoice_id_fkey")
	}
	r.ID = st.id()
	r.CreatedAt = s.m.Now()
	st.reminders[r.ID] = *r
	return nil
}

func (s *ReminderMem) ListByInvoice(_ context.Context, invoiceID int) ([]models.Reminder, error) {
	st, unlock := s.m.lock()
	defer unlock()
	out := []models.Reminder{}
	for _, r := range st.reminders {
		if r.InvoiceID == invoiceID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ---- staff ----

// StaffMem is the staff login view of a MemoryStore.
type StaffMem struct{ m *MemoryStore }

// Staff returns the staff user table.
func (m *MemoryStore) Staff() *StaffMem { return &StaffMem{m} }

func (s *StaffMem) GetByEmail(_ context.Context, email string) (*models.StaffUser, error) {
	st, unlock := s.m.lock()
	defer unlock()
	for _, u := range st.staff {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *StaffMem) GetByID(_ context.Context, id int) (*models.StaffUser, error) {
	st, unlock := s.m.lock()
	defer unlock()
	u, ok := st.staff[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s *StaffMem) List(_ context.Context) ([]models.StaffUser, error) {
	st, unlock := s.m.lock()
	defer unlock()
	out := make([]models.StaffUser, 0, len(st.staff))
	for _, u := range st.staff {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *StaffMem) Update(_ context.Context, u *models.StaffUser) error {
	st, unlock := s.m.lock()
	defer unlock()
	cur, ok := st.staff[u.ID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, other := range st.staff {
		if other.ID != u.ID && strings.EqualFold(other.Email, u.Email) {
			return duplicate("staff_users_email_key")
		}
	}
	cur.Email, cur.Name, cur.Role, cur.IsActive = u.Email, u.Name, u.Role, u.IsActive
	cur.UpdatedAt = s.m.Now()
	u.UpdatedAt = cur.UpdatedAt
	st.staff[u.ID] = cur
	return nil
}

func (s *StaffMem) SetPassword(_ context.Context, id int, hash string) error {
	st, unlock := s.m.lock()
	defer unlock()
	u, ok := st.staff[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.m.Now()
	st.staff[id] = u
	return nil
}

func (s *StaffMem) Create(_ context.Context, u *models.StaffUser) error {
	st, unlock := s.m.lock()
	defer unlock()
	for _, other := range st.staff {
		if strings.EqualFold(other.Email, u.Email) {
			return duplicate("staff_users_email_key")
		}
	}
	u.ID = st.id()
	u.CreatedAt = s.m.Now()
	u.UpdatedAt = u.CreatedAt
	st.staff[u.ID] = *u
	return nil
}

func (s *StaffMem) TouchLastLogin(_ context.Context, id int) error {
	st, unlock := s.m.lock()
	defer unlock()
	u, ok := st.staff[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := s.m.Now()
	u.LastLoginAt = &now
	st.staff[id] = u
	return nil
}
