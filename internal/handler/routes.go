package handler

import (
	"time"

	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups every route handler the API exposes.
type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Sale      *SaleHandler
	Store     *StoreHandler
	User      *UserHandler
	Report    *ReportHandler
	Backup    *BackupHandler
	Tracker   *TrackerHandler
	Dashboard *DashboardHandler
	Role      *RoleHandler
}

// Register mounts the REST API under /api/v1. loginLimit caps login attempts
// per client per minute; 0 disables the limit.
func Register(app *fiber.App, h Handlers, auth middleware.TokenValidator, loginLimit int) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	login := []fiber.Handler{}
	if loginLimit > 0 {
		login = append(login, limiter.New(limiter.Config{
			Max:        loginLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many login attempts"})
			},
		}))
	}
	api.Post("/auth/login", append(login, h.Auth.Login)...)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(auth))
	admin := middleware.RequireRole(model.RoleAdmin)

	protected.Get("/auth/me", h.Auth.Me)
	protected.Get("/roles", admin, h.Role.GetRoles)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)

	// Products and stock
	protected.Get("/products", h.Inventory.GetProducts)
	protected.Get("/products/:id", h.Inventory.GetProduct)
	protected.Post("/products", admin, h.Inventory.CreateProduct)
	protected.Post("/products/recalculate", admin, h.Inventory.RecalculateStock)
	protected.Put("/products/:id", admin, h.Inventory.UpdateProduct)
	protected.Delete("/products/:id", admin, h.Inventory.DeleteProduct)

	protected.Get("/stock-ins", admin, h.Inventory.GetStockIns)
	protected.Post("/stock-ins", admin, h.Inventory.CreateStockIn)
	protected.Put("/stock-ins/:id", admin, h.Inventory.UpdateStockIn)
	protected.Delete("/stock-ins/:id", admin, h.Inventory.DeleteStockIn)

	protected.Get("/stock-outs", admin, h.Inventory.GetStockOuts)
	protected.Post("/stock-outs", admin, h.Inventory.CreateStockOut)
	protected.Delete("/stock-outs/:id", admin, h.Inventory.DeleteStockOut)

	// Sales
	protected.Get("/sales", admin, h.Sale.GetSales)
	protected.Get("/sales/history", h.Sale.GetHistory)
	protected.Get("/sales/:id", h.Sale.GetSale)
	protected.Post("/sales", h.Sale.Checkout)
	protected.Put("/sales/:id", h.Sale.AmendSale)
	protected.Delete("/sales/:id", h.Sale.DeleteSale)

	// Stores and users
	protected.Get("/stores", h.Store.GetStores)
	protected.Post("/stores", admin, h.Store.CreateStore)
	protected.Put("/stores/:id", admin, h.Store.RenameStore)
	protected.Delete("/stores/:id", admin, h.Store.DeleteStore)

	protected.Get("/users", admin, h.User.GetUsers)
	protected.Get("/users/:id", admin, h.User.GetUser)
	protected.Post("/users", admin, h.User.CreateUser)
	protected.Put("/users/:id", admin, h.User.UpdateUser)
	protected.Delete("/users/:id", admin, h.User.DeleteUser)

	// Reports
	reports := protected.Group("/reports")
	reports.Get("/summary", h.Report.GetSummary())
	reports.Get("/detailed", h.Report.GetDetailed())
	reports.Get("/credit", h.Report.GetCredit())
	reports.Get("/transfer", h.Report.GetTransfer())
	reports.Get("/history", admin, h.Report.GetHistory())
	reports.Get("/stock", admin, h.Inventory.GetStockReport)

	// Dashboard
	protected.Get("/dashboard/stats", admin, h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", admin, h.Dashboard.GetStockMovement)

	// Backup and reset
	protected.Get("/backup", admin, h.Backup.Export)
	protected.Post("/backup", admin, h.Backup.Import)
	protected.Get("/backup/password", admin, h.Backup.PasswordStatus)
	protected.Put("/backup/password", admin, h.Backup.SetPassword)
	protected.Post("/reset", admin, h.Backup.Reset)

	// Money tracker
	tracker := protected.Group("/tracker", admin)
	tracker.Get("/accounts", h.Tracker.GetAccounts)
	tracker.Post("/accounts", h.Tracker.CreateAccount)
	tracker.Put("/accounts/:account", h.Tracker.RenameAccount)
	tracker.Delete("/accounts/:account", h.Tracker.DeleteAccount)
	tracker.Get("/accounts/:account/entries", h.Tracker.GetEntries)
	tracker.Post("/accounts/:account/entries", h.Tracker.CreateEntry)
	tracker.Delete("/accounts/:account/entries", h.Tracker.DeleteEntriesOnDate)
	tracker.Put("/accounts/:account/entries/:index", h.Tracker.UpdateEntry)
	tracker.Delete("/accounts/:account/entries/:index", h.Tracker.DeleteEntry)
	tracker.Post("/accounts/:account/copy-day", h.Tracker.CopyDay)
	tracker.Post("/accounts/:account/merge-day", h.Tracker.MergeDay)
	tracker.Get("/accounts/:account/export", h.Tracker.ExportAccount)
	tracker.Get("/accounts/:account/summary", h.Tracker.GetSummary)
	tracker.Get("/types", h.Tracker.GetTypes)
	tracker.Post("/types", h.Tracker.CreateType)
	tracker.Put("/types/:type", h.Tracker.RenameType)
	tracker.Delete("/types/:type", h.Tracker.DeleteType)
	tracker.Get("/export", h.Tracker.Export)
	tracker.Post("/import", h.Tracker.Import)
	tracker.Get("/password", h.Tracker.PasswordStatus)
	tracker.Put("/password", h.Tracker.SetPassword)
}
