package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/polizaflow/agency-backend/internal/clients/redis"
	"github.com/polizaflow/agency-backend/internal/db"
	"github.com/polizaflow/agency-backend/internal/handlers"
	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/middleware"
	"github.com/polizaflow/agency-backend/internal/repos"
	"github.com/polizaflow/agency-backend/internal/server"
	"github.com/polizaflow/agency-backend/internal/services"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	confidenceThreshold := utils.GetEnvAsFloat("AI_CONFIDENCE_THRESHOLD", 0.70, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	agentRepo := repos.NewAgentRepo(thePG, log)
	agentTokenRepo := repos.NewAgentTokenRepo(thePG, log)
	clientRepo := repos.NewClientRepo(thePG, log)
	insuredRepo := repos.NewInsuredRepo(thePG, log)
	policyRepo := repos.NewPolicyRepo(thePG, log)
	beneficiaryRepo := repos.NewBeneficiaryRepo(thePG, log)
	importRepo := repos.NewPolicyAiImportRepo(thePG, log)
	importFileRepo := repos.NewImportFileRepo(thePG, log)
	draftRepo := repos.NewWizardDraftRepo(thePG, log)
	leadRepo := repos.NewLeadRepo(thePG, log)
	commissionRepo := repos.NewCommissionRepo(thePG, log)
	calendarCredRepo := repos.NewCalendarCredentialRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	var sseBus redis.SSEBus
	if bus, busErr := redis.NewSSEBus(log); busErr != nil {
		log.Warn("Redis SSE bus unavailable, using in-process hub only", "error", busErr)
	} else {
		sseBus = bus
		if err := sseBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Redis SSE forwarder failed to start", "error", err)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	textExtractor, err := services.NewDocAIService(log)
	if err != nil {
		log.Error("Could not init DocAIService", "error", err)
		os.Exit(1)
	}
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	avatarService, err := services.NewAvatarService(log, bucketService)
	if err != nil {
		log.Error("Could not init AvatarService", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(
		thePG,
		log,
		agentRepo,
		agentTokenRepo,
		avatarService,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	agentService := services.NewAgentService(log, thePG, agentRepo, avatarService)
	clientService := services.NewClientService(log, thePG, clientRepo)
	importService := services.NewImportService(log, thePG, importRepo, importFileRepo, draftRepo, bucketService)
	extractionService := services.NewExtractionService(
		log,
		thePG,
		importRepo,
		importFileRepo,
		bucketService,
		textExtractor,
		openaiClient,
		sseHub,
		sseBus,
		confidenceThreshold,
	)
	extractionService.StartWorker(context.Background())
	wizardService := services.NewWizardService(log, thePG, policyRepo, clientRepo, insuredRepo, beneficiaryRepo, draftRepo, sseHub, sseBus)
	leadService := services.NewLeadService(log, thePG, leadRepo, agentRepo, sseHub, sseBus)
	commissionService := services.NewCommissionService(log, thePG, commissionRepo, policyRepo)
	calendarService := services.NewCalendarService(log, thePG, calendarCredRepo, policyRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService, agentService)
	profileHandler := handlers.NewProfileHandler(log, agentService)
	clientHandler := handlers.NewClientHandler(log, clientService)
	wizardHandler := handlers.NewWizardHandler(log, wizardService)
	importHandler := handlers.NewImportHandler(log, importService)
	leadHandler := handlers.NewLeadHandler(log, leadService)
	commissionHandler := handlers.NewCommissionHandler(log, commissionService)
	calendarHandler := handlers.NewCalendarHandler(log, calendarService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService, sseHub, sseBus)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		AuthHandler:       authHandler,
		ProfileHandler:    profileHandler,
		ClientHandler:     clientHandler,
		WizardHandler:     wizardHandler,
		ImportHandler:     importHandler,
		LeadHandler:       leadHandler,
		CommissionHandler: commissionHandler,
		CalendarHandler:   calendarHandler,
		SSEHandler:        sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
