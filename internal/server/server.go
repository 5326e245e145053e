package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amoura-chat/config"
	"amoura-chat/internal/handler"
	"amoura-chat/internal/middleware"
	"amoura-chat/internal/redis"
	"amoura-chat/internal/services"
	"amoura-chat/internal/transport/httpdto"
	"amoura-chat/internal/websocket"
	"amoura-chat/pkg/database"
	"amoura-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Chat      *handler.ChatHandler
	Call      *handler.CallHandler
	Media     *handler.MediaHandler
	Templates *handler.TemplateHandler
	Presence  *handler.PresenceHandler
	WS        *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.CORS())
	s.engine.Use(middleware.Logging(s.logger))
	s.engine.Use(middleware.Errors(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	// Socket auth happens in the handler via the token query parameter.
	s.engine.GET("/ws", handlers.WS.Connect)

	chat := s.engine.Group("/api/chat")
	chat.Use(middleware.Auth(authService))
	chat.Use(middleware.GlobalRateLimit(limiter))
	{
		chat.POST("/conversations", middleware.SensitiveRateLimit(limiter), handlers.Chat.Create)
		chat.GET("/conversations", handlers.Chat.List)
		chat.GET("/conversations/:conversationId", handlers.Chat.GetByID)
		chat.PUT("/conversations/:conversationId/typing", handlers.Chat.UpdateTyping)
		chat.PUT("/conversations/:conversationId/archive", middleware.SensitiveRateLimit(limiter), handlers.Chat.Archive)
		chat.GET("/conversations/:conversationId/stats", handlers.Chat.Stats)
		chat.POST("/conversations/:conversationId/templates/:templateId/send", middleware.MessageRateLimit(limiter), handlers.Chat.SendTemplate)
		chat.POST("/messages", middleware.MessageRateLimit(limiter), handlers.Chat.SendMessage)
		chat.GET("/messages/:conversationId", handlers.Chat.GetMessages)
		chat.GET("/messages/:conversationId/search", handlers.Chat.Search)
		chat.PUT("/messages/:messageId/read", handlers.Chat.MarkRead)
		chat.DELETE("/messages/:messageId", middleware.SensitiveRateLimit(limiter), handlers.Chat.DeleteMessage)
		chat.GET("/unread-count", handlers.Chat.UnreadCount)
		chat.GET("/message-templates", handlers.Templates.List)
		chat.GET("/presence/:userId", handlers.Presence.Get)
		chat.POST("/media/presign", handlers.Media.PresignUpload)

		chat.POST("/calls", middleware.CallRateLimit(limiter), handlers.Call.Initiate)
		chat.POST("/calls/:callId/accept", handlers.Call.Accept)
		chat.POST("/calls/:callId/reject", handlers.Call.Reject)
		chat.POST("/calls/:callId/end", handlers.Call.End)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
