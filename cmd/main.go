package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"gstmate/internal/caching"
	"gstmate/internal/common"
	"gstmate/internal/handlers"
	"gstmate/internal/jobs/background"
	"gstmate/internal/mailer"
	"gstmate/internal/middleware"
	"gstmate/internal/repositories"
	"gstmate/internal/services"
	"gstmate/pkg/database"
)

const (
	accessTokenTTLSeconds  = 900
	refreshTokenTTLSeconds = 7 * 24 * 3600
)

func main() {
	ctx := context.Background()

	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if err := database.RunMigrations(ctx, databaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret, sessions will not survive restarts")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// Outbound mail: falls back to logging codes when no relay is configured
	var mailSvc mailer.Mailer
	if mailAPIURL := os.Getenv("MAIL_API_URL"); mailAPIURL != "" {
		mailSvc = mailer.NewHTTPMailer(mailAPIURL, os.Getenv("MAIL_API_KEY"), os.Getenv("MAIL_SENDER"))
	} else {
		log.Printf("WARNING: MAIL_API_URL not set, verification codes will be logged")
		mailSvc = mailer.NewLogMailer()
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	returnSeedFrom := os.Getenv("RETURN_SEED_FROM")
	cookieSecure := os.Getenv("COOKIE_SECURE") != "false"

	// Create repositories
	userRepo := repositories.NewUserRepo(pool)
	clientRepo := repositories.NewClientRepo(pool)
	returnRepo := repositories.NewReturnRepo(pool)
	assignmentRepo := repositories.NewAssignmentLogRepo(pool)
	otpRepo := repositories.NewOtpRepo(pool)
	deletionLogRepo := repositories.NewDeletionLogRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Create services
	otpSvc := services.NewOtpService(otpRepo, mailSvc)
	tokenSvc := services.NewTokenService(cacheSvc, jwtSecret, accessTokenTTLSeconds, refreshTokenTTLSeconds)
	authSvc := services.NewAuthService(pool, userRepo, otpSvc, googleClientID)
	clientSvc := services.NewClientService(pool, clientRepo, userRepo, assignmentRepo, deletionLogRepo, returnSeedFrom)
	returnSvc := services.NewReturnService(returnRepo, clientRepo)
	staffSvc := services.NewStaffService(pool, userRepo, clientRepo)

	// Create handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, tokenSvc, otpSvc, userRepo,
		time.Duration(refreshTokenTTLSeconds)*time.Second, cookieSecure)
	otpHandlers := handlers.NewOtpHandlers(otpSvc)
	clientHandlers := handlers.NewClientHandlers(clientSvc)
	returnHandlers := handlers.NewReturnHandlers(returnSvc)
	staffHandlers := handlers.NewStaffHandlers(staffSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Background jobs
	scheduler, err := background.NewJobScheduler(otpSvc, returnRepo)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop job scheduler: %v", err)
		}
	}()

	// Create Echo instance
	e := echo.New()
	e.HTTPErrorHandler = common.HTTPErrorHandler

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	api := e.Group("/api")

	// Authentication routes (no JWT required)
	auth := api.Group("/auth")
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/google", authHandlers.GoogleLogin)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/logout", authHandlers.Logout)
	auth.POST("/forgot-password", authHandlers.ForgotPassword)
	auth.POST("/reset-password", authHandlers.ResetPassword)

	otp := api.Group("/otp")
	otp.POST("/request", otpHandlers.Request)
	otp.POST("/verify", otpHandlers.Verify)

	// Protected routes (require JWT)
	protected := api.Group("")
	protected.Use(echojwt.WithConfig(middleware.JWTConfig(jwtSecret)))

	protected.GET("/auth/me", authHandlers.Me)

	protected.GET("/users", staffHandlers.ListStaff)
	protected.POST("/staff/:id/delete-workflow", staffHandlers.DeleteStaff)

	protected.GET("/clients", clientHandlers.ListClients)
	protected.POST("/clients", clientHandlers.CreateClient)
	protected.POST("/clients/bulk", clientHandlers.BulkCreateClients)
	protected.GET("/clients/:id", clientHandlers.GetClient)
	protected.PATCH("/clients/:id", clientHandlers.UpdateClient)
	protected.PATCH("/clients/:id/assign", clientHandlers.AssignClient)
	protected.DELETE("/clients/:id", clientHandlers.DeleteClient)
	protected.GET("/clients/:id/history", clientHandlers.ClientHistory)

	protected.GET("/clients/:id/returns", returnHandlers.ListReturns)
	protected.POST("/clients/:id/returns", returnHandlers.CreateReturn)
	protected.PATCH("/returns/:id", returnHandlers.UpdateReturn)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on port %s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
