package main

import (
	"fmt"
	"net/http"
	"os"

	"tradefolio/internal/config"
	"tradefolio/internal/database"
	"tradefolio/internal/handlers"
	"tradefolio/internal/logger"
	"tradefolio/internal/middleware"
	"tradefolio/internal/services"
	"tradefolio/internal/validator"

	"github.com/gin-gonic/gin"
)

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
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	referenceService := services.NewReferenceService(db)
	ledgerService := services.NewLedgerService(db, accountService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService)
	referenceHandler := handlers.NewReferenceHandler(referenceService)
	holdingHandler := handlers.NewHoldingHandler(ledgerService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

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

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Reference data routes
	currencies := protected.Group("/currencies")
	currencies.POST("", referenceHandler.CreateCurrency)
	currencies.GET("", referenceHandler.ListCurrencies)
	currencies.DELETE("/:id", referenceHandler.DeleteCurrency)

	exchanges := protected.Group("/exchanges")
	exchanges.POST("", referenceHandler.CreateExchange)
	exchanges.GET("", referenceHandler.ListExchanges)

	stocks := protected.Group("/stocks")
	stocks.POST("", referenceHandler.CreateStock)
	stocks.GET("", referenceHandler.ListStocks)
	stocks.GET("/:id", referenceHandler.GetStockByID)

	commodities := protected.Group("/commodities")
	commodities.POST("", referenceHandler.CreateCommodity)
	commodities.GET("", referenceHandler.ListCommodities)

	// Account routes
	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.POST("/:id/holdings", holdingHandler.OpenHolding)
	accounts.GET("/:id/holdings", holdingHandler.GetAccountHoldings)

	// Holding and trade routes
	holdings := protected.Group("/holdings")
	holdings.GET("/:id", holdingHandler.GetHoldingByID)
	holdings.POST("/:id/buy", holdingHandler.Buy)
	holdings.POST("/:id/sell", holdingHandler.Sell)
	holdings.GET("/:id/trades", holdingHandler.GetHoldingTrades)

	log.Infof("Starting Tradefolio backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
