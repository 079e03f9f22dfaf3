package routes

import (
	"fencing-backend/controllers"
	"fencing-backend/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Register wires all HTTP routes. Authenticated must already run on app.
func Register(app *fiber.App, h *controllers.Handler, db *gorm.DB) {
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public endpoints
	api.Post("/auth/login", h.Login)
	api.Post("/auth/logout", h.Logout)
	api.Post("/invoices/:id/checkout", h.CreateCheckout)
	api.Post("/payments/webhook", h.PaymentWebhook)

	// Protected endpoints (session cookie or Bearer token)
	protected := api.Group("", middlewares.RequireAuth(), middlewares.Idempotency(db))

	manager := middlewares.RequireManager()
	finance := middlewares.RequireFinance()
	admin := middlewares.RequireAdmin()

	protected.Get("/auth/me", h.Me)

	// Users
	protected.Get("/users", admin, h.ListUsers)
	protected.Post("/users", admin, h.CreateUser)
	protected.Put("/users/:id", admin, h.UpdateUser)

	// Customers
	protected.Get("/customers", h.GetCustomers)
	protected.Post("/customers", h.CreateCustomer)
	protected.Get("/customers/:id", h.GetCustomer)
	protected.Put("/customers/:id", h.UpdateCustomer)
	protected.Delete("/customers/:id", admin, h.DeleteCustomer)

	// Catalog, fencing services and add-ons
	protected.Get("/catalog", h.GetCatalogItems)
	protected.Post("/catalog", manager, h.CreateCatalogItem)
	protected.Get("/catalog/:id", h.GetCatalogItem)
	protected.Put("/catalog/:id", manager, h.UpdateCatalogItem)
	protected.Delete("/catalog/:id", manager, h.DeleteCatalogItem)

	protected.Get("/fencing-services", h.GetFencingServices)
	protected.Post("/fencing-services", manager, h.CreateFencingService)
	protected.Get("/fencing-services/:id", h.GetFencingService)
	protected.Put("/fencing-services/:id", manager, h.UpdateFencingService)
	protected.Delete("/fencing-services/:id", manager, h.DeleteFencingService)

	protected.Get("/fencing-addons", h.GetFencingAddons)
	protected.Post("/fencing-addons", manager, h.CreateFencingAddon)
	protected.Put("/fencing-addons/:id", manager, h.UpdateFencingAddon)
	protected.Delete("/fencing-addons/:id", manager, h.DeleteFencingAddon)

	// Quotes
	protected.Get("/fencing-quotes", h.GetQuotes)
	protected.Post("/fencing-quotes", h.CreateQuote)
	protected.Get("/fencing-quotes/:id", h.GetQuote)
	protected.Delete("/fencing-quotes/:id", manager, h.DeleteQuote)
	protected.Put("/fencing-quotes/:id/status", manager, h.UpdateQuoteStatus)
	protected.Post("/fencing-quotes/:id/convert-to-invoice", finance, h.ConvertQuoteToInvoice)
	protected.Post("/fencing-quotes/:id/email", h.EmailQuote)

	// Invoices and payments
	protected.Get("/invoices", h.GetInvoices)
	protected.Get("/invoices/:id", h.GetInvoice)
	protected.Put("/invoices/:id/status", finance, h.UpdateInvoiceStatus)
	protected.Get("/invoices/:id/payments", h.ListPayments)
	protected.Post("/invoices/:id/payments", finance, h.CreatePayment)

	// Field operations
	protected.Get("/team-members", h.GetTeamMembers)
	protected.Post("/team-members", manager, h.CreateTeamMember)
	protected.Get("/team-members/:id", h.GetTeamMember)
	protected.Put("/team-members/:id", manager, h.UpdateTeamMember)
	protected.Delete("/team-members/:id", manager, h.DeleteTeamMember)

	protected.Get("/field/jobs", h.GetJobs)
	protected.Post("/field/jobs", manager, h.CreateJob)
	protected.Get("/field/jobs/:id", h.GetJob)
	protected.Put("/field/jobs/:id/status", h.UpdateJobStatus)
	protected.Post("/field/jobs/:id/photos", h.AddJobPhoto)

	// Expenses
	protected.Get("/expenses", h.GetExpenses)
	protected.Post("/expenses", finance, h.CreateExpense)
	protected.Get("/expenses/:id", h.GetExpense)
	protected.Put("/expenses/:id", finance, h.UpdateExpense)
	protected.Delete("/expenses/:id", finance, h.DeleteExpense)

	// Notifications
	protected.Get("/notifications", h.GetNotifications)
	protected.Post("/notifications", manager, h.CreateNotification)
	protected.Put("/notifications/:id", h.MarkNotificationRead)
	protected.Delete("/notifications/:id", manager, h.DeleteNotification)

	// Settings and audit
	protected.Get("/settings/tax", h.GetTaxSettings)
	protected.Put("/settings/tax", admin, h.UpdateTaxSettings)
	protected.Get("/audit-logs", admin, h.GetAuditLogs)
}
