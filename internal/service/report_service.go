package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/export"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// Report range defaults in days.
const (
	DefaultReportDays   = 30
	CustomerReportDays  = 90
	reportTopN          = 5
	reportDateFormat    = "2006-01-02"
	reportDisplayFormat = "02 Jan 2006"
)

// Quick filters accepted in place of an explicit range.
const (
	QuickToday     = "today"
	QuickYesterday = "yesterday"
	QuickThisWeek  = "this_week"
	QuickThisMonth = "this_month"
	QuickLastMonth = "last_month"
)

// Sales grouping.
const (
	GroupDay   = "day"
	GroupWeek  = "week"
	GroupMonth = "month"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ReportService builds the sales, product, customer and credit reports.
type ReportService struct {
	invoices  InvoiceStore
	customers CustomerStore
	company   export.Letterhead
	now       Clock
}

// NewReportService constructs a ReportService.
func NewReportService(invoices InvoiceStore, customers CustomerStore, company config.CompanyConfig) *ReportService {
	return &ReportService{
		invoices:  invoices,
		customers: customers,
		company:   letterhead(company),
		now:       time.Now,
	}
}

func letterhead(c config.CompanyConfig) export.Letterhead {
	return export.Letterhead{
		Name:    c.Name,
		Address: c.Address,
		Phone:   c.Phone,
		Email:   c.Email,
		TaxID:   c.TaxID,
	}
}

// RangeRequest selects the report period. QuickFilter wins over explicit dates.
type RangeRequest struct {
	DateFrom    string `form:"date_from"`
	DateTo      string `form:"date_to"`
	QuickFilter string `form:"quick_filter"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Label renders the range for report headings.
func (r DateRange) Label() string {
	if r.From.Equal(r.To) {
		return r.From.Format(reportDisplayFormat)
	}
	return r.From.Format(reportDisplayFormat) + " - " + r.To.Format(reportDisplayFormat)
}

func (r DateRange) stem() string {
	return r.From.Format(reportDateFormat) + "_to_" + r.To.Format(reportDateFormat)
}

func (s *ReportService) resolveRange(req RangeRequest, defaultDays int) (DateRange, error) {
	today := models.Day(s.now())

	switch req.QuickFilter {
	case "":
	case QuickToday:
		return DateRange{From: today, To: today}, nil
	case QuickYesterday:
		y := today.AddDate(0, 0, -1)
		return DateRange{From: y, To: y}, nil
	case QuickThisWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return DateRange{From: today.AddDate(0, 0, -offset), To: today}, nil
	case QuickThisMonth:
		return DateRange{From: today.AddDate(0, 0, 1-today.Day()), To: today}, nil
	case QuickLastMonth:
		first := today.AddDate(0, 0, 1-today.Day())
		return DateRange{From: first.AddDate(0, -1, 0), To: first.AddDate(0, 0, -1)}, nil
	default:
		return DateRange{}, utils.Wrap(utils.ErrInvalidRequest, "unknown quick filter %q", req.QuickFilter)
	}

	r := DateRange{To: today}
	if req.DateTo != "" {
		to, err := time.Parse(reportDateFormat, req.DateTo)
		if err != nil {
			return DateRange{}, utils.Wrap(utils.ErrInvalidRequest, "date_to must be YYYY-MM-DD")
		}
		r.To = to
	}
	r.From = r.To.AddDate(0, 0, -defaultDays)
	if req.DateFrom != "" {
		from, err := time.Parse(reportDateFormat, req.DateFrom)
		if err != nil {
			return DateRange{}, utils.Wrap(utils.ErrInvalidRequest, "date_from must be YYYY-MM-DD")
		}
		r.From = from
	}
	if r.From.After(r.To) {
		return DateRange{}, utils.Wrap(utils.ErrInvalidRequest, "date_from must not be after date_to")
	}
	return r, nil
}

func (s *ReportService) invoicesIn(ctx context.Context, r DateRange, f repository.InvoiceFilter) ([]models.Invoice, error) {
	f.ExcludeDraft = true
	f.DateFrom = &r.From
	f.DateTo = &r.To
	f.Limit = 0
	invoices, _, err := s.invoices.List(ctx, f)
	return invoices, err
}

// ChartPoint is one bar of a top-N chart.
type ChartPoint struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// ---- sales ----

// SalesRequest filters the sales report.
type SalesRequest struct {
	RangeRequest
	Grouping    string `form:"grouping"`
	PaymentType string `form:"payment_type"`
	Customer    string `form:"customer"`
}

// SalesRow is one period of the sales report.
type SalesRow struct {
	Period    string          `json:"period"`
	Bills     int             `json:"bills"`
	TotalSale decimal.Decimal `json:"totalSale"`
	Cash      decimal.Decimal `json:"cash"`
	UPI       decimal.Decimal `json:"upi"`
	Credit    decimal.Decimal `json:"credit"`

	start time.Time
}

func (r *SalesRow) add(inv *models.Invoice) {
	r.Bills++
	r.TotalSale = r.TotalSale.Add(inv.Total)
	switch inv.PaymentType {
	case models.PaymentTypeCash:
		r.Cash = r.Cash.Add(inv.Total)
	case models.PaymentTypeUPI:
		r.UPI = r.UPI.Add(inv.Total)
	case models.PaymentTypeCredit:
		r.Credit = r.Credit.Add(inv.Total)
	}
}

// SalesReport is the grouped sales summary.
type SalesReport struct {
	Range         DateRange  `json:"range"`
	RangeLabel    string     `json:"rangeLabel"`
	Grouping      string     `json:"grouping"`
	Rows          []SalesRow `json:"rows"`
	Totals        SalesRow   `json:"totals"`
	CashPercent   int64      `json:"cashPercent"`
	UPIPercent    int64      `json:"upiPercent"`
	CreditPercent int64      `json:"creditPercent"`
}

// Sales groups non-draft invoices in the range by day, ISO week or month.
func (s *ReportService) Sales(ctx context.Context, req SalesRequest) (*SalesReport, error) {
	r, err := s.resolveRange(req.RangeRequest, DefaultReportDays)
	if err != nil {
		return nil, err
	}
	grouping := req.Grouping
	if grouping == "" {
		grouping = GroupDay
	}
	if grouping != GroupDay && grouping != GroupWeek && grouping != GroupMonth {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "grouping must be one of day, week, month")
	}

	f := repository.InvoiceFilter{CustomerName: strings.TrimSpace(req.Customer)}
	if req.PaymentType != "" && req.PaymentType != "all" {
		pt := models.PaymentType(req.PaymentType)
		if !pt.Valid() {
			return nil, utils.Wrap(utils.ErrInvalidRequest, "unknown payment type %q", req.PaymentType)
		}
		f.PaymentType = pt
	}

	invoices, err := s.invoicesIn(ctx, r, f)
	if err != nil {
		return nil, err
	}

	byPeriod := map[string]*SalesRow{}
	for i := range invoices {
		label, start := salesPeriod(invoices[i].CreatedAt, grouping)
		row, ok := byPeriod[label]
		if !ok {
			row = &SalesRow{Period: label, start: start}
			byPeriod[label] = row
		}
		row.add(&invoices[i])
	}

	report := &SalesReport{
		Range:      r,
		RangeLabel: r.Label(),
		Grouping:   grouping,
		Rows:       make([]SalesRow, 0, len(byPeriod)),
		Totals:     SalesRow{Period: "Total"},
	}
	for _, row := range byPeriod {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].start.Before(report.Rows[j].start) })

	for _, row := range report.Rows {
		report.Totals.Bills += row.Bills
		report.Totals.TotalSale = report.Totals.TotalSale.Add(row.TotalSale)
		report.Totals.Cash = report.Totals.Cash.Add(row.Cash)
		report.Totals.UPI = report.Totals.UPI.Add(row.UPI)
		report.Totals.Credit = report.Totals.Credit.Add(row.Credit)
	}

	paid := report.Totals.Cash.Add(report.Totals.UPI).Add(report.Totals.Credit)
	report.CashPercent = percentShare(report.Totals.Cash, paid)
	report.UPIPercent = percentShare(report.Totals.UPI, paid)
	report.CreditPercent = percentShare(report.Totals.Credit, paid)
	return report, nil
}

func salesPeriod(t time.Time, grouping string) (string, time.Time) {
	day := models.Day(t)
	switch grouping {
	case GroupWeek:
		year, week := day.ISOWeek()
		monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		return fmt.Sprintf("Week %02d, %d", week, year), monday
	case GroupMonth:
		first := day.AddDate(0, 0, 1-day.Day())
		return first.Format("January 2006"), first
	}
	return day.Format(reportDateFormat), day
}

func percentShare(part, whole decimal.Decimal) int64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(0).IntPart()
}

// Table lays the sales report out for export.
func (r *SalesReport) Table() *export.Table {
	t := &export.Table{
		Title:    "Sales Report",
		Subtitle: r.RangeLabel,
		Sheet:    "Sales",
		Columns: []export.Column{
			{Header: "Date", Width: 18},
			{Header: "Bills Generated", Width: 14, Numeric: true},
			{Header: "Total Sale", Width: 16, Numeric: true},
			{Header: "Cash", Width: 16, Numeric: true},
			{Header: "UPI/Card", Width: 16, Numeric: true},
			{Header: "Credit", Width: 16, Numeric: true},
		},
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []interface{}{row.Period, row.Bills, row.TotalSale, row.Cash, row.UPI, row.Credit})
	}
	tot := r.Totals
	t.Totals = []interface{}{"Total", tot.Bills, tot.TotalSale, tot.Cash, tot.UPI, tot.Credit}
	return t
}

// FileStem names the exported file.
func (r *SalesReport) FileStem() string { return "sales_report_" + r.Range.stem() }

// ---- products ----

// Product report sort keys.
const (
	SortQuantity = "quantity"
	SortRevenue  = "revenue"
	SortName     = "name"
)

// ProductReportRequest filters the product sales report.
type ProductReportRequest struct {
	RangeRequest
	Product     string             `form:"product"`
	Variant     models.QualityTier `form:"variant"`
	MinQuantity decimal.Decimal    `form:"-"`
	SortBy      string             `form:"sort_by"`
}

// ProductRow is one product and quality with the quantity sold.
type ProductRow struct {
	Product      string             `json:"product"`
	Variant      models.QualityTier `json:"variant"`
	QuantitySold decimal.Decimal    `json:"quantitySold"`
	Revenue      decimal.Decimal    `json:"revenue"`
}

// ProductReport is the per-variant sales summary.
type ProductReport struct {
	Range         DateRange       `json:"range"`
	RangeLabel    string          `json:"rangeLabel"`
	Rows          []ProductRow    `json:"rows"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TopProducts   []ChartPoint    `json:"topProducts"`
}

// Products aggregates invoice lines by product and quality.
func (s *ReportService) Products(ctx context.Context, req ProductReportRequest) (*ProductReport, error) {
	r, err := s.resolveRange(req.RangeRequest, DefaultReportDays)
	if err != nil {
		return nil, err
	}
	if req.Variant != "" && req.Variant != "all" && !req.Variant.Valid() {
		return nil, utils.Wrap(utils.ErrInvalidRequest, "unknown variant %q", req.Variant)
	}
	if req.Variant == "all" {
		req.Variant = ""
	}

	lines, err := s.invoices.ListSalesItems(ctx, repository.SalesItemFilter{
		DateFrom:      r.From,
		DateTo:        r.To,
		ProductSearch: strings.TrimSpace(req.Product),
		Quality:       req.Variant,
	})
	if err != nil {
		return nil, err
	}

	type key struct {
		product string
		quality models.QualityTier
	}
	grouped := map[key]*ProductRow{}
	var order []key
	for _, ln := range lines {
		k := key{ln.ProductName, ln.Quality}
		row, ok := grouped[k]
		if !ok {
			row = &ProductRow{Product: ln.ProductName, Variant: ln.Quality}
			grouped[k] = row
			order = append(order, k)
		}
		row.QuantitySold = row.QuantitySold.Add(ln.Quantity)
		row.Revenue = row.Revenue.Add(ln.Quantity.Mul(ln.UnitPrice))
	}

	report := &ProductReport{Range: r, RangeLabel: r.Label(), Rows: []ProductRow{}}
	for _, k := range order {
		row := grouped[k]
		if req.MinQuantity.IsPositive() && row.QuantitySold.LessThan(req.MinQuantity) {
			continue
		}
		row.Revenue = row.Revenue.Round(2)
		report.Rows = append(report.Rows, *row)
		report.TotalQuantity = report.TotalQuantity.Add(row.QuantitySold)
		report.TotalRevenue = report.TotalRevenue.Add(row.Revenue)
	}

	rows := report.Rows
	switch req.SortBy {
	case SortQuantity:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].QuantitySold.GreaterThan(rows[j].QuantitySold) })
	case SortRevenue:
		sort.SliceStable(rows, byRevenue(rows))
	case SortName, "":
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Product != rows[j].Product {
				return strings.ToLower(rows[i].Product) < strings.ToLower(rows[j].Product)
			}
			return rows[i].Variant < rows[j].Variant
		})
	default:
		return nil, utils.Wrap(utils.ErrInvalidRequest, "sort_by must be one of quantity, revenue, name")
	}

	top := append([]ProductRow(nil), rows...)
	sort.SliceStable(top, byRevenue(top))
	report.TopProducts = []ChartPoint{}
	for i := 0; i < len(top) && i < reportTopN; i++ {
		report.TopProducts = append(report.TopProducts, ChartPoint{
			Name:  fmt.Sprintf("%s (%s)", top[i].Product, top[i].Variant.Label()),
			Value: top[i].Revenue,
		})
	}
	return report, nil
}

func byRevenue(rows []ProductRow) func(i, j int) bool {
	return func(i, j int) bool { return rows[i].Revenue.GreaterThan(rows[j].Revenue) }
}

// Table lays the product report out for export.
func (r *ProductReport) Table() *export.Table {
	t := &export.Table{
		Title:    "Product Sales Report",
		Subtitle: r.RangeLabel,
		Sheet:    "Products",
		Columns: []export.Column{
			{Header: "Product", Width: 30},
			{Header: "Variant", Width: 14},
			{Header: "Qty Sold (Kg)", Width: 16, Numeric: true},
			{Header: "Revenue", Width: 18, Numeric: true},
		},
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []interface{}{row.Product, row.Variant.Label(), row.QuantitySold, row.Revenue})
	}
	t.Totals = []interface{}{"Total", "", r.TotalQuantity, r.TotalRevenue}
	return t
}

// FileStem names the exported file.
func (r *ProductReport) FileStem() string { return "product_report_" + r.Range.stem() }

// ---- customers ----

// Customer report sort keys.
const (
	SortPurchases    = "purchases"
	SortLastPurchase = "last_purchase"
)

// CustomerReportRequest filters the customer summary.
type CustomerReportRequest struct {
	RangeRequest
	CustomerType    string `form:"customer_type"`
	IncludeInactive bool   `form:"include_inactive"`
	SortBy          string `form:"sort_by"`
}

// CustomerRow is one customer's activity in the range.
type CustomerRow struct {
	CustomerID     int                 `json:"customerId"`
	Name           string              `json:"name"`
	Phone          string              `json:"phone"`
	CustomerType   models.CustomerType `json:"customerType"`
	TotalOrders    int                 `json:"totalOrders"`
	TotalValue     decimal.Decimal     `json:"totalValue"`
	PendingPayment decimal.Decimal     `json:"pendingPayment"`
	LastPurchase   *time.Time          `json:"lastPurchase,omitempty"`
}

// CustomerReport is the customer summary.
type CustomerReport struct {
	Range          DateRange       `json:"range"`
	RangeLabel     string          `json:"rangeLabel"`
	Rows           []CustomerRow   `json:"rows"`
	TotalCustomers int             `json:"totalCustomers"`
	TotalOrders    int             `json:"totalOrders"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	TotalPending   decimal.Decimal `json:"totalPending"`
	TopCustomers   []ChartPoint    `json:"topCustomers"`
}

// Customers summarises orders and outstanding amounts per customer.
func (s *ReportService) Customers(ctx context.Context, req CustomerReportRequest) (*CustomerReport, error) {
	r, err := s.resolveRange(req.RangeRequest, CustomerReportDays)
	if err != nil {
		return nil, err
	}
	cf := repository.CustomerFilter{}
	if req.CustomerType != "" && req.CustomerType != "all" {
		ct := models.CustomerType(req.CustomerType)
		if !ct.Valid() {
			return nil, utils.Wrap(utils.ErrInvalidRequest, "unknown customer type %q", req.CustomerType)
		}
		cf.CustomerType = ct
	}

	customers, _, err := s.customers.List(ctx, cf)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoicesIn(ctx, r, repository.InvoiceFilter{})
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[int][]*models.Invoice)
	for i := range invoices {
		inv := &invoices[i]
		byCustomer[inv.CustomerID] = append(byCustomer[inv.CustomerID], inv)
	}

	report := &CustomerReport{Range: r, RangeLabel: r.Label(), Rows: []CustomerRow{}}
	for _, c := range customers {
		row := CustomerRow{CustomerID: c.ID, Name: c.Name, Phone: c.Phone, CustomerType: c.CustomerType}
		for _, inv := range byCustomer[c.ID] {
			row.TotalOrders++
			row.TotalValue = row.TotalValue.Add(inv.Total)
			if due := inv.AmountDue(); due.IsPositive() && inv.Status != models.InvoiceCancelled {
				row.PendingPayment = row.PendingPayment.Add(due)
			}
			if row.LastPurchase == nil || inv.CreatedAt.After(*row.LastPurchase) {
				created := inv.CreatedAt
				row.LastPurchase = &created
			}
		}
		if row.TotalOrders == 0 && !req.IncludeInactive {
			continue
		}
		report.Rows = append(report.Rows, row)
		report.TotalOrders += row.TotalOrders
		report.TotalValue = report.TotalValue.Add(row.TotalValue)
		report.TotalPending = report.TotalPending.Add(row.PendingPayment)
	}
	report.TotalCustomers = len(report.Rows)

	rows := report.Rows
	switch req.SortBy {
	case SortPurchases, "":
		sort.SliceStable(rows, byTotalValue(rows))
	case SortName:
		sort.SliceStable(rows, func(i, j int) bool { return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name) })
	case SortLastPurchase:
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].LastPurchase, rows[j].LastPurchase
			if a == nil || b == nil {
				return a != nil
			}
			return a.After(*b)
		})
	default:
		return nil, utils.Wrap(utils.ErrInvalidRequest, "sort_by must be one of purchases, name, last_purchase")
	}

	top := append([]CustomerRow(nil), rows...)
	sort.SliceStable(top, byTotalValue(top))
	report.TopCustomers = []ChartPoint{}
	for i := 0; i < len(top) && i < reportTopN; i++ {
		if !top[i].TotalValue.IsPositive() {
			break
		}
		report.TopCustomers = append(report.TopCustomers, ChartPoint{Name: top[i].Name, Value: top[i].TotalValue})
	}
	return report, nil
}

func byTotalValue(rows []CustomerRow) func(i, j int) bool {
	return func(i, j int) bool { return rows[i].TotalValue.GreaterThan(rows[j].TotalValue) }
}

// Table lays the customer report out for export.
func (r *CustomerReport) Table() *export.Table {
	t := &export.Table{
		Title:    "Customer Summary Report",
		Subtitle: r.RangeLabel,
		Sheet:    "Customers",
		Columns: []export.Column{
			{Header: "Customer", Width: 28},
			{Header: "Phone", Width: 16},
			{Header: "Customer Type", Width: 14},
			{Header: "Total Orders", Width: 12, Numeric: true},
			{Header: "Total Value", Width: 16, Numeric: true},
			{Header: "Pending Payment", Width: 16, Numeric: true},
		},
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []interface{}{row.Name, row.Phone, row.CustomerType.Label(), row.TotalOrders, row.TotalValue, row.PendingPayment})
	}
	t.Totals = []interface{}{fmt.Sprintf("Total (%d customers)", r.TotalCustomers), "", "", r.TotalOrders, r.TotalValue, r.TotalPending}
	return t
}

// FileStem names the exported file.
func (r *CustomerReport) FileStem() string { return "customer_report_" + r.Range.stem() }

// ---- credit ----

// Credit report sort keys.
const (
	SortDueDate = "due_date"
	SortAmount  = "amount"
	SortOverdue = "overdue"
)

// Derived credit statuses.
const (
	CreditPaid          = "paid"
	CreditPartiallyPaid = "partially_paid"
	CreditOverdue       = "overdue"
	CreditPending       = "pending"
)

// CreditReportRequest filters the credit overview.
type CreditReportRequest struct {
	IncludePaid bool   `form:"include_paid"`
	SortBy      string `form:"sort_by"`
}

// CreditRow is one invoice in the credit overview.
type CreditRow struct {
	InvoiceID     int             `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	InvoiceDate   time.Time       `json:"invoiceDate"`
	DueDate       *time.Time      `json:"dueDate"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	AmountDue     decimal.Decimal `json:"amountDue"`
	Status        string          `json:"status"`
	DaysOverdue   int             `json:"daysOverdue"`
}

// CreditReport lists receivables.
type CreditReport struct {
	GeneratedOn   time.Time       `json:"generatedOn"`
	Rows          []CreditRow     `json:"rows"`
	TotalInvoices int             `json:"totalInvoices"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TotalDue      decimal.Decimal `json:"totalDue"`
	OverdueCount  int             `json:"overdueCount"`
}

// Credit lists open receivables with a derived status and days overdue.
func (s *ReportService) Credit(ctx context.Context, req CreditReportRequest) (*CreditReport, error) {
	today := models.Day(s.now())
	invoices, _, err := s.invoices.List(ctx, repository.InvoiceFilter{ExcludeDraft: true})
	if err != nil {
		return nil, err
	}

	report := &CreditReport{GeneratedOn: today, Rows: []CreditRow{}}
	for i := range invoices {
		inv := &invoices[i]
		if inv.Status == models.InvoiceCancelled {
			continue
		}
		due := inv.AmountDue()
		if !req.IncludePaid && (inv.Status == models.InvoicePaid || !due.IsPositive()) {
			continue
		}
		if inv.PaymentType != models.PaymentTypeCredit && !due.IsPositive() {
			continue
		}

		row := CreditRow{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerName:  inv.CustomerName,
			CustomerPhone: inv.CustomerPhone,
			InvoiceDate:   inv.CreatedAt,
			DueDate:       inv.EffectiveDueDate(),
			TotalAmount:   inv.Total,
			AmountPaid:    inv.AmountPaid,
			AmountDue:     due,
			DaysOverdue:   models.DaysOverdue(inv.EffectiveDueDate(), today),
		}
		row.Status = creditStatus(inv, row.DaysOverdue)
		if row.Status == CreditPaid {
			row.DaysOverdue = 0
		}
		if row.Status == CreditOverdue || (row.Status == CreditPartiallyPaid && row.DaysOverdue > 0) {
			report.OverdueCount++
		}

		report.Rows = append(report.Rows, row)
		report.TotalAmount = report.TotalAmount.Add(row.TotalAmount)
		report.TotalPaid = report.TotalPaid.Add(row.AmountPaid)
		report.TotalDue = report.TotalDue.Add(row.AmountDue)
	}
	report.TotalInvoices = len(report.Rows)

	rows := report.Rows
	switch req.SortBy {
	case SortDueDate, "":
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].DueDate, rows[j].DueDate
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			return a.Before(*b)
		})
	case SortAmount:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].AmountDue.GreaterThan(rows[j].AmountDue) })
	case SortOverdue:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].DaysOverdue > rows[j].DaysOverdue })
	default:
		return nil, utils.Wrap(utils.ErrInvalidRequest, "sort_by must be one of due_date, amount, overdue")
	}
	return report, nil
}

func creditStatus(inv *models.Invoice, daysOverdue int) string {
	switch {
	case inv.Status == models.InvoicePaid || !inv.AmountDue().IsPositive():
		return CreditPaid
	case inv.AmountPaid.IsPositive() && inv.AmountPaid.LessThan(inv.Total):
		return CreditPartiallyPaid
	case daysOverdue > 0:
		return CreditOverdue
	}
	return CreditPending
}

var creditStatusLabels = map[string]string{
	CreditPaid:          "Paid",
	CreditPartiallyPaid: "Partially Paid",
	CreditOverdue:       "Overdue",
	CreditPending:       "Pending",
}

// Table lays the credit report out for export.
func (r *CreditReport) Table() *export.Table {
	t := &export.Table{
		Title:    "Credit Overview Report",
		Subtitle: "As of " + r.GeneratedOn.Format(reportDisplayFormat),
		Sheet:    "Credit",
		Columns: []export.Column{
			{Header: "Invoice #", Width: 20},
			{Header: "Customer", Width: 24},
			{Header: "Phone", Width: 14},
			{Header: "Invoice Date", Width: 13},
			{Header: "Due Date", Width: 13},
			{Header: "Total Amount", Width: 15, Numeric: true},
			{Header: "Amount Paid", Width: 15, Numeric: true},
			{Header: "Amount Due", Width: 15, Numeric: true},
			{Header: "Status", Width: 14},
			{Header: "Days Overdue", Width: 12, Numeric: true},
		},
	}
	for _, row := range r.Rows {
		due := "-"
		if row.DueDate != nil {
			due = row.DueDate.Format(reportDateFormat)
		}
		t.Rows = append(t.Rows, []interface{}{
			row.InvoiceNumber, row.CustomerName, row.CustomerPhone,
			row.InvoiceDate.Format(reportDateFormat), due,
			row.TotalAmount, row.AmountPaid, row.AmountDue,
			creditStatusLabels[row.Status], row.DaysOverdue,
		})
	}
	t.Totals = []interface{}{fmt.Sprintf("Total (%d invoices)", r.TotalInvoices), "", "", "", "", r.TotalAmount, r.TotalPaid, r.TotalDue, "", ""}
	return t
}

// FileStem names the exported file.
func (r *CreditReport) FileStem() string { return "credit_report" }

// ---- export ----

// Exportable is a report that can be written as a table.
type Exportable interface {
	Table() *export.Table
	FileStem() string
}

// Document is a rendered file ready for download or upload.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders a report as xlsx or pdf. The filename carries today's date.
func (s *ReportService) Export(report Exportable, format string) (*Document, error) {
	stamp := s.now().Format(reportDateFormat)
	t := report.Table()
	switch format {
	case FormatXLSX:
		data, err := export.WriteXLSX(t)
		if err != nil {
			return nil, err
		}
		return &Document{
			Filename:    fmt.Sprintf("%s_%s.xlsx", report.FileStem(), stamp),
			ContentType: utils.ContentTypeXLSX,
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := export.WritePDF(t, s.company)
		if err != nil {
			return nil, err
		}
		return &Document{
			Filename:    fmt.Sprintf("%s_%s.pdf", report.FileStem(), stamp),
			ContentType: utils.ContentTypePDF,
			Data:        data,
		}, nil
	}
	return nil, utils.Wrap(utils.ErrInvalidRequest, "format must be one of json, xlsx, pdf")
}
