package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitoflow/metering-api/internal/config"
	"github.com/vitoflow/metering-api/internal/handler"
	"github.com/vitoflow/metering-api/internal/handler/middleware"
	"github.com/vitoflow/metering-api/internal/ierr"
	"github.com/vitoflow/metering-api/internal/ratelimit"
	"github.com/vitoflow/metering-api/internal/service"
	"github.com/vitoflow/metering-api/internal/storage/memstorage"
	"github.com/vitoflow/metering-api/internal/storage/postgres"
	"github.com/vitoflow/metering-api/internal/storage/redis"
	"github.com/vitoflow/metering-api/internal/vault"
	"github.com/vitoflow/metering-api/internal/worker"
	"github.com/vitoflow/metering-api/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	vaultClient, err := vault.NewClient(&cfg.Vault, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize Vault client: %v", err)
	}

	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)
	secretRepo := postgres.NewTenantSecretRepository(dbPool, appLogger)
	usageRepo := postgres.NewUsageRepository(dbPool, appLogger)
	userRepo, err := memstorage.NewUserRepository(cfg.Auth.AdminUser, cfg.Auth.AdminPassword)
	if err != nil {
		sugarLogger.Fatalf("Failed to initialize admin user store: %v", err)
	}

	limiter := ratelimit.NewRedisLimiter(redisClient, appLogger)
	handleCache := vault.NewHandleCache(cfg.Vault.CacheTTL)

	admissionService := service.NewAdmissionService(apiKeyRepo, usageRepo, limiter, appLogger)
	validationService := service.NewValidationService(apiKeyRepo, admissionService, cfg.Admission.CandidateLimit, appLogger)
	usageService := service.NewUsageService(usageRepo, appLogger)
	secretService := service.NewSecretService(secretRepo, vaultClient, handleCache, appLogger)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, appLogger)
	authService := service.NewAuthService(userRepo, &cfg.Auth, appLogger)

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, vaultClient, appLogger)
	validationHandler := handler.NewValidationHandler(validationService, admissionService, appLogger)
	usageHandler := handler.NewUsageHandler(usageService, appLogger)
	secretHandler := handler.NewSecretHandler(secretService, appLogger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, appLogger)
	authHandler := handler.NewAuthHandler(authService, appLogger)

	authMiddleware := middleware.AuthMiddleware(authService, appLogger)
	errorMiddleware := middleware.ErrorHandlerMiddleware(appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	corsConfig := cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
	router.Use(errorMiddleware)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := router.Group("/api/v1/auth")
	{
		authRoutes.POST("/login", authHandler.Login)
	}

	apiV1 := router.Group("/api/v1")
	{
		// Gateway-facing endpoints. Callers authenticate via the payload
		// itself (the key under validation), not via a bearer token.
		gatewayRoutes := apiV1.Group("")
		{
			gatewayRoutes.POST("/keys/validate", validationHandler.Validate)
			gatewayRoutes.POST("/admission/check", validationHandler.CheckAdmission)
			gatewayRoutes.POST("/secrets/resolve", secretHandler.Resolve)
			gatewayRoutes.POST("/usage/record", usageHandler.Record)
		}

		apiKeyRoutes := apiV1.Group("/apikeys")
		apiKeyRoutes.Use(authMiddleware)
		{
			apiKeyRoutes.POST("", apiKeyHandler.Create)
			apiKeyRoutes.POST("/:id/rotate", apiKeyHandler.Rotate)
			apiKeyRoutes.DELETE("/:id", apiKeyHandler.Revoke)
		}

		secretRoutes := apiV1.Group("/secrets")
		secretRoutes.Use(authMiddleware)
		{
			secretRoutes.POST("", secretHandler.Create)
			secretRoutes.POST("/:id/rotate", secretHandler.Rotate)
			secretRoutes.DELETE("/:id", secretHandler.Deactivate)
		}

		tenantRoutes := apiV1.Group("/tenants/:tenantId")
		tenantRoutes.Use(authMiddleware)
		{
			tenantRoutes.GET("/apikeys", apiKeyHandler.List)
			tenantRoutes.GET("/secrets", secretHandler.List)
			tenantRoutes.GET("/usage/daily", usageHandler.DailyTotals)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, apiKeyRepo, usageRepo, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {

		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else if errors.Is(waitErr, http.ErrServerClosed) {
			sugarLogger.Info("Shutdown reason: HTTP server closed normally.")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
