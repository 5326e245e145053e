package main

import (
	"context"
	"log"
	"time"

	"amoura-chat/config"
	"amoura-chat/internal/events"
	"amoura-chat/internal/handler"
	"amoura-chat/internal/notify"
	goredis "amoura-chat/internal/redis"
	"amoura-chat/internal/repository"
	"amoura-chat/internal/server"
	"amoura-chat/internal/services"
	"amoura-chat/internal/storage"
	"amoura-chat/internal/websocket"
	"amoura-chat/pkg/database"
	"amoura-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient, err := goredis.NewClient(goredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	conversationRepo := repository.NewConversationRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)

	publisher := goredis.NewPublisher(redisClient)
	fanout := events.NewFanout(publisher, l)
	presence := goredis.NewPresenceStore(redisClient, 5*time.Minute)
	callStore := goredis.NewCallStore(redisClient, 5*time.Minute)
	limiter := goredis.NewRateLimiter(redisClient, goredis.RateLimitConfig{
		GlobalLimit:    cfg.GlobalRateLimit,
		MessageLimit:   cfg.MessageRateLimit,
		SensitiveLimit: cfg.SensitiveRateLimit,
		CallLimit:      cfg.CallRateLimit,
		Window:         time.Minute,
	})

	authService := services.NewAuthService(cfg)
	chatService := services.NewChatService(conversationRepo, messageRepo, l)
	callService := services.NewCallService(callStore, presence, conversationRepo, l)

	notifier := notify.NewClient(cfg.NotificationServiceURL, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	subscriber := goredis.NewSubscriber(redisClient, l)
	bridge := websocket.NewRedisBridge(subscriber, hub, l)
	go func() {
		if err := bridge.Run(ctx); err != nil {
			l.Errorf("redis bridge stopped: %v", err)
		}
	}()

	var mediaStore *storage.MediaStore
	if cfg.S3Bucket != "" {
		mediaStore, err = storage.NewMediaStore(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
		})
		if err != nil {
			log.Fatalf("Failed to initialize media store: %v", err)
		}
	}

	authorizer := websocket.NewRoomAuthorizer(conversationRepo)
	wsHandler := websocket.NewHandler(authService, chatService, hub, authorizer, fanout, presence, l)

	handlers := &server.Handlers{
		Chat:      handler.NewChatHandler(chatService, fanout, presence, notifier, l),
		Call:      handler.NewCallHandler(callService, fanout, l),
		Media:     handler.NewMediaHandler(mediaStore, l),
		Templates: handler.NewTemplateHandler(),
		Presence:  handler.NewPresenceHandler(presence, l),
		WS:        wsHandler,
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers, authService, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
