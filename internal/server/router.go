package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/polizaflow/agency-backend/internal/handlers"
	"github.com/polizaflow/agency-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware    *middleware.AuthMiddleware
	AuthHandler       *handlers.AuthHandler
	ProfileHandler    *handlers.ProfileHandler
	ClientHandler     *handlers.ClientHandler
	WizardHandler     *handlers.WizardHandler
	ImportHandler     *handlers.ImportHandler
	LeadHandler       *handlers.LeadHandler
	CommissionHandler *handlers.CommissionHandler
	CalendarHandler   *handlers.CalendarHandler
	SSEHandler        *handlers.SSEHandler
}

func allowedOrigins() []string {
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		return strings.Split(raw, ",")
	}
	return []string{"http://localhost:3000", "http://localhost:5173"}
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.GET("/p/:slug", cfg.ProfileHandler.GetPublic)
	router.POST("/p/:slug/leads", cfg.LeadHandler.CapturePublic)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	protected.GET("/me", cfg.AuthHandler.Me)

	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)

	api := protected.Group("/api")

	// Profile
	api.PUT("/profile", cfg.ProfileHandler.Update)
	api.PUT("/profile/avatar", cfg.ProfileHandler.UpdateAvatar)

	// Clients
	api.POST("/clients", cfg.ClientHandler.Create)
	api.GET("/clients", cfg.ClientHandler.List)
	api.GET("/clients/:id", cfg.ClientHandler.Get)
	api.PUT("/clients/:id", cfg.ClientHandler.Update)
	api.DELETE("/clients/:id", cfg.ClientHandler.Delete)

	// Policy wizard
	api.GET("/wizard/draft", cfg.WizardHandler.GetDraft)
	api.POST("/policies/wizard/contractor", cfg.WizardHandler.SaveContractor)
	api.GET("/policies", cfg.WizardHandler.ListPolicies)
	api.GET("/policies/:id", cfg.WizardHandler.GetPolicy)
	api.POST("/policies/:id/wizard/insured", cfg.WizardHandler.SaveInsured)
	api.POST("/policies/:id/wizard/details", cfg.WizardHandler.SaveDetails)
	api.POST("/policies/:id/wizard/beneficiaries", cfg.WizardHandler.SaveBeneficiaries)
	api.POST("/policies/:id/finish", cfg.WizardHandler.Finish)
	api.POST("/policies/:id/save-exit", cfg.WizardHandler.SaveAndExit)

	// Document imports
	api.POST("/imports", cfg.ImportHandler.Create)
	api.GET("/imports", cfg.ImportHandler.List)
	api.GET("/imports/:id", cfg.ImportHandler.Get)
	api.GET("/imports/:id/status", cfg.ImportHandler.Status)
	api.POST("/imports/:id/files", cfg.ImportHandler.AppendFile)
	api.POST("/imports/:id/retry", cfg.ImportHandler.Retry)
	api.POST("/imports/:id/convert", cfg.ImportHandler.Convert)

	// Leads
	api.GET("/leads", cfg.LeadHandler.List)
	api.POST("/leads/:id/move", cfg.LeadHandler.Move)
	api.PUT("/leads/:id/notes", cfg.LeadHandler.UpdateNotes)

	// Commissions
	api.POST("/commissions", cfg.CommissionHandler.Create)
	api.GET("/commissions", cfg.CommissionHandler.List)
	api.GET("/commissions/export", cfg.CommissionHandler.Export)
	api.POST("/commissions/:id/pay", cfg.CommissionHandler.MarkPaid)

	// Calendar
	api.POST("/calendar/connect", cfg.CalendarHandler.Connect)
	api.POST("/calendar/sync", cfg.CalendarHandler.Sync)
	api.DELETE("/calendar", cfg.CalendarHandler.Disconnect)

	return router
}
