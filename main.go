package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"signaling-service/internal/config"
	"signaling-service/internal/db"
	"signaling-service/internal/handlers"
	"signaling-service/internal/middleware"
	"signaling-service/internal/observability"
	"signaling-service/internal/presence"
	"signaling-service/internal/rabbitmq"
	"signaling-service/internal/repositories"
	"signaling-service/internal/storage"
	"signaling-service/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := observability.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	shutdownTracing, err := observability.InitTracing(context.Background(), cfg.OTLPAddr, "signaling-service", cfg.Env)
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	database, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("parse redis url", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()

	var uploader storage.Uploader
	if cfg.CloudinaryName != "" {
		uploader, err = storage.NewCloudinaryUploader(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Fatal("init blob storage", zap.Error(err))
		}
	} else {
		log.Warn("blob storage not configured, attachments disabled")
	}

	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	callRepo := repositories.NewCallRepo(database)

	tracker := presence.NewTracker(rdb, publisher, log)

	registry := ws.NewRegistry()
	relay := ws.NewRelay(registry, chatRepo, log)
	wsHandler := ws.NewHandler(registry, relay, tracker, cfg.JWTSecret, log)

	chatHandler := handlers.NewChatHandler(chatRepo, log)
	messageHandler := handlers.NewMessageHandler(chatRepo, messageRepo, uploader, relay, log)
	callHandler := handlers.NewCallHandler(chatRepo, callRepo, relay, publisher, log)
	presenceHandler := handlers.NewPresenceHandler(tracker, log)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("signaling-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.POST("/chats/individual", authMiddleware, chatHandler.StartIndividual)
	router.POST("/chats/group", authMiddleware, chatHandler.CreateGroup)
	router.GET("/chats/:chat_id/messages", authMiddleware, messageHandler.ListMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, messageHandler.PostMessage)
	router.POST("/chats/:chat_id/read", authMiddleware, messageHandler.MarkRead)
	router.POST("/chats/:chat_id/messages/:message_id/reactions", authMiddleware, messageHandler.SetReaction)
	router.POST("/chats/:chat_id/calls", authMiddleware, callHandler.Initiate)
	router.PUT("/chats/:chat_id/calls/:call_id", authMiddleware, callHandler.Respond)
	router.POST("/chats/:chat_id/calls/:call_id/leave", authMiddleware, callHandler.Leave)
	router.GET("/presence/:user_id", authMiddleware, presenceHandler.GetPresence)

	router.GET("/ws", wsHandler.Handle)

	log.Info("signaling service listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
