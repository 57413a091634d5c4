// cmd/server/main.go - FleetOps Backend Server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Внутренние пакеты проекта
	"fleetops-backend/internal/config"
	"fleetops-backend/internal/database"
	"fleetops-backend/internal/handlers"
	"fleetops-backend/internal/middleware"
	"fleetops-backend/internal/services"
	"fleetops-backend/pkg/auth"
	"fleetops-backend/pkg/validator"

	// Внешние зависимости
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var serverStartTime = time.Now()

const appVersion = "1.0.0"

func main() {
	// .env нужен только в разработке
	if err := godotenv.Load(); err != nil {
		logrus.Info(".env file not found, using environment variables")
	}

	cfg := config.Load()
	setupLogging(cfg)

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer db.Close()

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateIndexes(indexCtx); err != nil {
		logrus.WithError(err).Warn("failed to create some indexes")
	}
	indexCancel()

	validator.Init()

	jwtManager := auth.NewJWTManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpiration)*time.Hour,
	)

	// Коллекции
	userCollection := db.Database.Collection("users")
	documentCollection := db.Database.Collection("documents")
	inspectionCollection := db.Database.Collection("compliance_inspections")
	violationCollection := db.Database.Collection("compliance_violations")
	notificationCollection := db.Database.Collection("notifications")
	templateCollection := db.Database.Collection("notification_templates")
	deviceTokenCollection := db.Database.Collection("device_tokens")

	// WebSocket хаб поднимаем до сервиса уведомлений: in_app канал едет
	// через него
	wsHandler := handlers.NewWebSocketHandler(jwtManager)
	wsHandler.StartHub()

	// Сервисы
	storage := services.NewDiskStorage(cfg.UploadDir)
	documentService := services.NewDocumentService(documentCollection, storage)
	complianceService := services.NewComplianceService(inspectionCollection, violationCollection)
	notificationService := services.NewNotificationService(
		cfg,
		notificationCollection, templateCollection, userCollection, deviceTokenCollection,
		wsHandler.Hub(),
	)

	// Фоновая отправка отложенных уведомлений
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go notificationService.RunScheduler(schedulerCtx, 30*time.Second)

	// Хендлеры
	authHandler := handlers.NewAuthHandler(userCollection, jwtManager)
	documentHandler := handlers.NewDocumentHandler(documentService, cfg.UploadDir, cfg.MaxUploadSize)
	complianceHandler := handlers.NewComplianceHandler(complianceService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, deviceTokenCollection)

	router := setupRouter(cfg, jwtManager, authHandler, documentHandler, complianceHandler, notificationHandler, wsHandler)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"version": appVersion,
			"addr":    srv.Addr,
		}).Info("FleetOps backend starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("forced shutdown")
	}

	logrus.Info("server stopped")
}

func setupLogging(cfg *config.Config) {
	if cfg.Env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func setupRouter(
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	authHandler *handlers.AuthHandler,
	documentHandler *handlers.DocumentHandler,
	complianceHandler *handlers.ComplianceHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WebSocketHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	// CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting
	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimitRequests,
			time.Duration(cfg.RateLimitWindow)*time.Second,
		)
		router.Use(limiter.RateLimit())
	}

	// Health endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": appVersion,
			"uptime":  time.Since(serverStartTime).String(),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	// WebSocket для in_app уведомлений
	router.GET("/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api/v1")

	// Публичные маршруты
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Защищенные маршруты
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))
	{
		protected.GET("/auth/me", authHandler.GetProfile)

		// Документы
		documents := protected.Group("/documents")
		{
			documents.GET("", documentHandler.List)
			documents.GET("/stats", documentHandler.Stats)
			documents.POST("", documentHandler.Upload)
			documents.GET("/:id", documentHandler.Get)
			documents.PATCH("/:id", documentHandler.Update)
			documents.PUT("/:id/favorite", documentHandler.SetFavorite)
			documents.PUT("/:id/archive", documentHandler.SetArchived)
			documents.GET("/:id/download", documentHandler.Download)
			documents.DELETE("/:id", middleware.RequireRole("manager"), documentHandler.Delete)
		}

		// Compliance
		compliance := protected.Group("/compliance")
		{
			compliance.POST("/entries",
				middleware.RequireAnyRole("mechanic", "dispatcher", "compliance_officer", "manager", "admin"),
				complianceHandler.CreateEntry)
			compliance.GET("/inspections", complianceHandler.ListInspections)
			compliance.GET("/violations", complianceHandler.ListViolations)
			compliance.GET("/stats", middleware.RequireRole("compliance_officer"), complianceHandler.Stats)
		}

		// Уведомления
		notifications := protected.Group("/notifications")
		{
			notifications.POST("",
				middleware.RequireRole("dispatcher"),
				notificationHandler.Compose)
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.GET("/delivery-summary", notificationHandler.DeliverySummary)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
			notifications.PUT("/read-bulk", notificationHandler.MarkReadBulk)
			notifications.PUT("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/delete-bulk", notificationHandler.DeleteBulk)
			notifications.GET("/templates", notificationHandler.ListTemplates)
		}

		// Push-токены устройств
		protected.POST("/device-tokens", notificationHandler.RegisterDeviceToken)
		protected.DELETE("/device-tokens", notificationHandler.UnregisterDeviceToken)
	}

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logrus.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("request")
	}
}
