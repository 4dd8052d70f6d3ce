package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famfin/internal/config"
	"famfin/internal/database"
	"famfin/internal/handlers"
	"famfin/internal/logger"
	"famfin/internal/middleware"
	"famfin/internal/notify"
	"famfin/internal/services"
	"famfin/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	_ "famfin/internal/docs" // Import swagger docs
)

// @title           FamFin API
// @version         1.0
// @description     FamFin is a family finance application for shared budgets, spending alerts, and household membership management.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Select notifier: broker when configured, logging otherwise
	var notifier notify.Notifier
	if appConfig.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(appConfig.AMQPURL, appConfig.AMQPExchange, appConfig.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
		log.Infof("Publishing notifications to AMQP exchange %s", appConfig.AMQPExchange)
	} else {
		notifier = notify.NewLogNotifier()
		log.Info("AMQP_URL not set, notifications will only be logged")
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	familyService := services.NewFamilyService(db)
	categoryService := services.NewCategoryService(db)
	auditService := services.NewAuditService(db)
	invitationService := services.NewInvitationService(db, familyService, userService, notifier)
	budgetService := services.NewBudgetService(db, familyService, categoryService, notifier)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	familyHandler := handlers.NewFamilyHandler(familyService, auditService)
	invitationHandler := handlers.NewInvitationHandler(invitationService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Invitation links are reachable without an account so invitees can
	// inspect or decline before registering.
	v1.GET("/invitations/:token", invitationHandler.GetInvitation)
	v1.POST("/invitations/:token/decline", invitationHandler.Decline)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Accepting requires the email on the account to match the invite.
	protected.POST("/invitations/:token/accept", invitationHandler.Accept)

	// Family routes
	families := protected.Group("/families")
	families.POST("", familyHandler.CreateFamily)
	families.GET("/:id", familyHandler.GetFamily)
	families.DELETE("/:id", familyHandler.DeleteFamily)
	families.GET("/:id/members", familyHandler.ListMembers)
	families.PUT("/:id/members/:userID", familyHandler.ChangeRole)
	families.DELETE("/:id/members/:userID", familyHandler.RemoveMember)
	families.POST("/:id/invitations", invitationHandler.Invite)
	families.GET("/:id/invitations", invitationHandler.ListInvitations)
	families.DELETE("/:id/invitations/:invitationID", invitationHandler.Revoke)
	families.GET("/:id/budgets", budgetHandler.GetFamilyBudgets)

	// Budget routes
	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeactivateBudget)
	budgets.GET("/:id/status", budgetHandler.GetBudgetStatus)

	server := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Infof("Starting FamFin backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Periodically resolve invitations that passed their expiry without
	// being acted on.
	group.Go(func() error {
		ticker := time.NewTicker(appConfig.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				swept, err := invitationService.ExpireStale()
				if err != nil {
					log.Errorf("Invitation expiry sweep failed: %v", err)
					continue
				}
				if swept > 0 {
					log.Infof("Expired %d stale invitations", swept)
				}
			}
		}
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
