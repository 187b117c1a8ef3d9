package routes

import (
	"schoolfees_go/controllers"
	"schoolfees_go/middleware"
	"schoolfees_go/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, healthService *services.HealthService) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	userController := &controllers.UserController{}
	studentController := &controllers.StudentController{}
	studentImportController := &controllers.StudentImportController{}
	paymentController := controllers.NewPaymentController()
	exportController := controllers.NewPaymentExportController()
	settingsController := controllers.NewSettingsController()
	dashboardController := controllers.NewDashboardController()
	logController := &controllers.LogController{}
	healthController := controllers.NewHealthController(healthService)

	// API group
	api := app.Group("/api")

	// Health endpoints (no authentication)
	api.Get("/health", healthController.GetHealthStatus)
	app.Get("/health", healthController.GetHealthStatus)

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	// Profile routes (authenticated users)
	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	// Logout - blacklist token for 24 hours
	protected.Post("/auth/logout", authController.Logout)

	// User management routes (admin only, except self profile above)
	users := protected.Group("/users", middleware.RequireAdmin())
	users.Get("/", userController.GetUsers)
	users.Get("/:id", userController.GetUser)
	users.Post("/", authController.Register) // Use register from auth controller
	users.Put("/:id", userController.UpdateUser)
	users.Delete("/:id", userController.DeleteUser)

	// Student management routes
	students := protected.Group("/students")
	students.Get("/", studentController.GetStudents)
	students.Get("/:id", studentController.GetStudent)
	students.Post("/", studentController.CreateStudent)
	students.Put("/:id", studentController.UpdateStudent)
	students.Delete("/:id", middleware.RequireAdmin(), studentController.DeleteStudent)

	// Roster import (admin only)
	imports := protected.Group("/students/import", middleware.RequireAdmin())
	imports.Post("/", studentImportController.Import)
	imports.Get("/template", studentImportController.Template)

	// Payment routes
	payments := protected.Group("/payments")
	payments.Get("/", paymentController.GetPayments)
	payments.Post("/:id/preview", paymentController.PreviewPayment)
	payments.Post("/:id/pay", paymentController.MarkPaid)
	payments.Post("/:id/unpay", middleware.RequireAdmin(), paymentController.MarkUnpaid)
	payments.Get("/:id/receipt", paymentController.GetReceipt)
	payments.Get("/export", middleware.RequireAdmin(), exportController.Export)

	// Dashboard routes. Collected-amount totals and the historical
	// missing list are admin only, the current month's missing list
	// is open to staff chasing payments at the front desk.
	dashboard := protected.Group("/dashboard")
	dashboard.Get("/month", middleware.RequireAdmin(), dashboardController.GetMonthStats)
	dashboard.Get("/year", middleware.RequireAdmin(), dashboardController.GetYearStats)
	dashboard.Get("/missing-current", dashboardController.GetMissingCurrent)
	dashboard.Get("/missing-past", middleware.RequireAdmin(), dashboardController.GetMissingPast)

	// Settings routes. Reads are open to staff, writes are admin only.
	settings := protected.Group("/settings")
	settings.Get("/", settingsController.GetSettings)
	settings.Put("/", middleware.RequireAdmin(), settingsController.UpdateSettings)
	settings.Get("/fees", settingsController.GetFeeSettings)
	settings.Put("/fees", middleware.RequireAdmin(), settingsController.UpsertFeeSetting)

	// Log management routes (Admin only). Literal paths are registered
	// before the :id catch-all.
	logs := protected.Group("/logs", middleware.RequireAdmin())
	logs.Get("/", logController.GetLogs)
	logs.Get("/stats", logController.GetLogStats)
	logs.Get("/export", logController.ExportLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Get("/archives/:id/download", logController.DownloadArchive)
	logs.Delete("/old", logController.DeleteOldLogs)
	logs.Post("/flush-cache", logController.FlushCachedLogs)
	logs.Get("/:id", logController.GetLog)
}
