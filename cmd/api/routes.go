package main

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/handler"
	"github.com/GTDGit/gtd_backoffice/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	SSE      *handler.SSEHandler
	Catalog  *handler.CatalogHandler
	Customer *handler.CustomerHandler
	Cart     *handler.CartHandler
	Invoice  *handler.InvoiceHandler
	Payment  *handler.PaymentHandler
	Reminder *handler.ReminderHandler
	Report   *handler.ReportHandler
	Staff    *handler.StaffHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, h *Handlers, jwtMiddleware *middleware.JWTMiddleware, loginLimiter *middleware.LoginRateLimiter) {
	v1 := router.Group("/v1")

	// Public
	v1.GET("/health", h.Health.GetHealth)
	v1.POST("/auth/login", loginLimiter.Guard(), h.Auth.Login)
	v1.GET("/events", h.SSE.Stream) // token travels in the query string

	api := v1.Group("")
	api.Use(jwtMiddleware.Handle())
	adminOnly := middleware.AdminOnly()

	api.GET("/auth/me", h.Auth.Me)

	// Staff users
	staff := api.Group("/staff", adminOnly)
	staff.GET("", h.Staff.List)
	staff.POST("", h.Staff.Create)
	staff.GET("/:id", h.Staff.Get)
	staff.PUT("/:id", h.Staff.Update)
	staff.POST("/:id/reset-password", h.Staff.ResetPassword)
	staff.POST("/:id/toggle-active", h.Staff.ToggleActive)

	// Catalog
	api.GET("/products", h.Catalog.ListProducts)
	api.POST("/products", h.Catalog.CreateProduct)
	api.GET("/products/search", h.Catalog.SearchProducts)
	api.GET("/products/:id", h.Catalog.GetProduct)
	api.PUT("/products/:id", h.Catalog.UpdateProduct)
	api.DELETE("/products/:id", adminOnly, h.Catalog.DeleteProduct)
	api.POST("/products/:id/qualities", h.Catalog.CreateQuality)
	api.PUT("/qualities/:id", h.Catalog.UpdateQuality)
	api.DELETE("/qualities/:id", adminOnly, h.Catalog.DeleteQuality)
	api.GET("/qualities/:id/price", h.Catalog.QualityPrice)

	// Price lists
	api.POST("/price-lists/upload", h.Catalog.UploadPriceList)
	api.GET("/price-lists/export", h.Catalog.ExportPriceList)
	api.GET("/price-lists/template", h.Catalog.PriceListTemplate)

	// Customers
	api.GET("/customers", h.Customer.List)
	api.POST("/customers", h.Customer.Create)
	api.GET("/customers/search", h.Customer.Search)
	api.POST("/customers/quick-add", h.Customer.QuickAdd)
	api.GET("/customers/:id", h.Customer.Get)
	api.PUT("/customers/:id", h.Customer.Update)
	api.DELETE("/customers/:id", adminOnly, h.Customer.Delete)
	api.GET("/customers/:id/credit", h.Customer.Credit)
	api.GET("/customers/:id/payment-history", h.Customer.PaymentHistory)

	// Cart and checkout
	api.GET("/cart", h.Cart.Get)
	api.DELETE("/cart", h.Cart.Clear)
	api.POST("/cart/items", h.Cart.AddItem)
	api.PUT("/cart/items/:index", h.Cart.UpdateItem)
	api.DELETE("/cart/items/:index", h.Cart.RemoveItem)
	api.PUT("/cart/items/:index/quality", h.Cart.UpdateItemQuality)
	api.POST("/checkout", h.Cart.Checkout)

	// Invoices
	api.GET("/invoices", h.Invoice.List)
	api.POST("/invoices", h.Invoice.CreateDraft)
	api.GET("/invoices/:id", h.Invoice.Get)
	api.PUT("/invoices/:id", h.Invoice.UpdateDraft)
	api.DELETE("/invoices/:id", adminOnly, h.Invoice.Delete)
	api.POST("/invoices/:id/items", h.Invoice.AddItem)
	api.PUT("/invoices/:id/items/:itemId", h.Invoice.UpdateItem)
	api.DELETE("/invoices/:id/items/:itemId", h.Invoice.RemoveItem)
	api.POST("/invoices/:id/issue", h.Invoice.Issue)
	api.POST("/invoices/:id/mark-paid", h.Invoice.MarkPaid)
	api.POST("/invoices/:id/cancel", h.Invoice.Cancel)
	api.PUT("/invoices/:id/due-date", h.Invoice.SetDueDate)
	api.GET("/invoices/:id/pdf", h.Invoice.PDF)
	api.POST("/invoices/:id/pdf/archive", h.Invoice.Archive)
	api.GET("/invoices/:id/payments", h.Payment.ListForInvoice)
	api.POST("/invoices/:id/payments", h.Payment.Record)
	api.GET("/invoices/:id/reminders", h.Reminder.List)
	api.POST("/invoices/:id/reminders", h.Reminder.Send)

	// Payments and reminders
	api.GET("/payments", h.Payment.List)
	api.GET("/payments/pending", h.Payment.Pending)
	api.PUT("/payments/:id", h.Payment.Update)
	api.POST("/payments/:id/cancel", h.Payment.Cancel)
	api.POST("/reminders/bulk", h.Reminder.Bulk)

	// Reports
	api.GET("/reports/dashboard", h.Report.Dashboard)
	api.GET("/reports/sales", h.Report.Sales)
	api.GET("/reports/products", h.Report.Products)
	api.GET("/reports/customers", h.Report.Customers)
	api.GET("/reports/credit", h.Report.Credit)
}
