package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"support-service/internal/auth"
	"support-service/internal/db"
	"support-service/internal/handlers"
	"support-service/internal/middleware"
	"support-service/internal/observability"
	"support-service/internal/rabbitmq"
	"support-service/internal/repositories"
	"support-service/internal/storage"
	"support-service/internal/telemetry"
	"support-service/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "support-service")
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	store, err := storage.NewS3Storage(ctx)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	amqpURL := os.Getenv("RABBITMQ_URL")
	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("RABBITMQ_EXCHANGE", "events"))
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s noop_reason=%q",
		rabbitmq.PublisherMode(auditPublisher), rabbitmq.PublisherNoopReason(auditPublisher))

	audit := telemetry.NewAuditEmitter(auditPublisher, "audit_log.support",
		"support-service", getEnv("ENVIRONMENT", "development"))

	if eventsPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("RABBITMQ_EXCHANGE", "events")); err != nil {
		log.Printf("ws event publisher disabled: %v", err)
	} else {
		observability.SetPublisher(eventsPublisher)
		defer eventsPublisher.Close()
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	issuer := auth.NewTokenIssuer(jwtSecret)

	userRepo := repositories.NewUserRepo(database)
	requestRepo := repositories.NewRequestRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userRepo, issuer, botToken)
	requestHandler := handlers.NewRequestHandler(requestRepo, store, hub, audit)
	messageHandler := handlers.NewMessageHandler(requestRepo, messageRepo, userRepo, store, hub, audit)

	requestWS := ws.NewRequestWebSocketHandler(hub, requestRepo, issuer)
	inboxWS := ws.NewInboxWebSocketHandler(hub, issuer)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("support-service"))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/telegram", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(issuer)

	router.GET("/me", authMiddleware, authHandler.Me)
	router.PUT("/me/onboarding", authMiddleware, authHandler.Onboarding)
	router.GET("/dealer-centers", authMiddleware, authHandler.DealerCenters)

	router.GET("/requests", authMiddleware, requestHandler.ListRequests)
	router.POST("/requests", authMiddleware, requestHandler.CreateRequest)
	router.GET("/requests/:request_id", authMiddleware, requestHandler.GetRequest)
	router.PUT("/requests/:request_id", authMiddleware, requestHandler.UpdateRequest)
	router.PUT("/requests/:request_id/status", authMiddleware, requestHandler.UpdateStatus)
	router.PUT("/requests/:request_id/archive", authMiddleware, requestHandler.Archive)
	router.DELETE("/requests/:request_id", authMiddleware, requestHandler.DeleteRequest)
	router.POST("/requests/:request_id/attachments", authMiddleware, requestHandler.UploadAttachment)
	router.DELETE("/requests/:request_id/attachments", authMiddleware, requestHandler.DeleteAttachment)

	router.GET("/requests/:request_id/messages", authMiddleware, messageHandler.ListMessages)
	router.POST("/requests/:request_id/messages", authMiddleware, messageHandler.PostMessage)
	router.POST("/requests/:request_id/chat-attachments", authMiddleware, messageHandler.UploadChatAttachment)
	router.PUT("/messages/:message_id/read", authMiddleware, messageHandler.MarkRead)
	router.GET("/chats", authMiddleware, messageHandler.ListChats)
	router.GET("/unread-count", authMiddleware, messageHandler.UnreadCount)

	router.GET("/ws/requests/:request_id", requestWS.Handle)
	router.GET("/ws/inbox", inboxWS.Handle)

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
