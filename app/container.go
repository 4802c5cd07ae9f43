package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"relay/app/config"
	"relay/internal/adapters"
	"relay/internal/handlers"
	"relay/internal/registry"
	"relay/internal/repositories"
	"relay/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Container struct {
	isShuttingDown bool

	Config      *config.Config
	Logger      *slog.Logger
	Redis       *redis.Client
	RateLimiter *RateLimiter
	Metrics     *Metrics

	GinEngine *gin.Engine
	Server    *http.Server

	Repository *repositories.RepositoryAdapter
	Registry   *registry.Registry

	AuthService       *services.AuthService
	ChatService       *services.ChatService
	MembershipService *services.MembershipService
	DeliveryService   *services.DeliveryService

	AuthHandler      *handlers.AuthHandler
	ChatHandler      *handlers.ChatHandler
	WebSocketHandler *handlers.WebSocketHandler
}

func NewContainer() (*Container, error) {
	container := &Container{}

	if err := container.initCore(); err != nil {
		return nil, err
	}

	container.initProductionFeatures()

	return container, nil
}

func (c *Container) initCore() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = &cfg

	c.Logger = c.initLogger()
	c.Redis = c.initRedis()
	c.Metrics = NewMetrics()

	c.Repository, err = repositories.NewRepositoryAdapter(cfg.Database, c.Logger)
	if err != nil {
		c.Logger.Error("repository initialize error", "error", err.Error())
		return err
	}

	c.Registry = registry.New(c.Logger)
	c.Registry.SetDeliveryHook(func(delivered int) {
		c.Metrics.EventsDelivered.Add(float64(delivered))
	})

	c.MembershipService = services.NewMembershipService(c.Repository.Membership, c.Logger)
	c.DeliveryService = services.NewDeliveryService(c.Repository.Message, c.MembershipService, c.Logger)
	c.ChatService = services.NewChatService(c.Repository.Chat, c.Repository.User, c.Logger)
	c.AuthService = services.NewAuthService(c.Repository.User, &services.BcryptHasher{},
		adapters.NewRedisTokenRepository(c.Redis), []byte(cfg.JWT.SecretKey), c.Logger)

	c.RateLimiter = NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	c.AuthHandler = handlers.NewAuthHandler(c.AuthService, c.Logger)
	c.ChatHandler = handlers.NewChatHandler(c.ChatService, c.DeliveryService, c.Registry, c.Logger)
	c.WebSocketHandler = handlers.NewWebSocketHandler(c.AuthService, c.MembershipService, c.Registry, c.DeliveryService, c.Logger)
	c.WebSocketHandler.SetConnectionHooks(
		func() { c.Metrics.ActiveConnections.Inc() },
		func() { c.Metrics.ActiveConnections.Dec() },
	)

	c.Server = c.initServer()
	c.GinEngine = c.initGinEngine()
	c.Server.Handler = c.GinEngine

	return nil
}

func (c *Container) initProductionFeatures() {
	c.initHealthRoutes(c.GinEngine)

	c.GinEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	c.GinEngine.Use(services.SecurityMiddleware())
	c.GinEngine.Use(services.RequestIDMiddleware())
}

func (c *Container) initHealthRoutes(eng *gin.Engine) {
	eng.GET("/health", func(ctx *gin.Context) {
		health := map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		if err := c.Repository.HealthCheck(ctx); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(503, health)
			return
		}

		if err := c.Redis.Ping().Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(503, health)
			return
		}

		health["database"] = "healthy"
		health["redis"] = "healthy"
		ctx.JSON(200, health)
	})

	eng.GET("/ready", func(ctx *gin.Context) {
		if c.isShuttingDown {
			ctx.JSON(503, gin.H{"status": "shutting down"})
			return
		}
		ctx.JSON(200, gin.H{"status": "ready"})
	})

	eng.GET("/live", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "live"})
	})
}

func (c *Container) initGinEngine() *gin.Engine {
	eng := gin.Default()

	eng.Use(MetricsMiddleware(c.Metrics))

	api := eng.Group("/api")
	api.Use(RateLimitMiddleware(c.RateLimiter))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", c.AuthHandler.Register)
			authGroup.POST("/login", c.AuthHandler.Login)
			authGroup.POST("/logout", c.AuthHandler.AuthMiddleware(), c.AuthHandler.Logout)
			authGroup.GET("/me", c.AuthHandler.AuthMiddleware(), c.AuthHandler.Me)
		}

		chatsGroup := api.Group("/chats")
		chatsGroup.Use(c.AuthHandler.AuthMiddleware())
		{
			chatsGroup.POST("", c.ChatHandler.CreateChat)
			chatsGroup.GET("", c.ChatHandler.GetUserChats)
			chatsGroup.GET("/:chatId/messages", c.ChatHandler.GetChatMessages)
			chatsGroup.POST("/:chatId/messages/:messageId/read", c.ChatHandler.MarkMessageRead)
		}

		api.GET("/ws", c.WebSocketHandler.HandleWebSocket)
	}

	return eng
}

func (c *Container) initLogger() *slog.Logger {
	var logger *slog.Logger
	if c.Config.Environment.Current == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(logger)
	return logger
}

func (c *Container) initRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
}

func (c *Container) initServer() *http.Server {
	return &http.Server{
		Addr:         ":" + c.Config.Server.Port,
		ReadTimeout:  time.Duration(c.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(c.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(c.Config.Server.IdleTimeout) * time.Second,
	}
}

func (c *Container) Close() error {
	c.isShuttingDown = true

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Error("failed to close redis client", "error", err)
		}
	}

	if c.Repository != nil {
		if err := c.Repository.Close(); err != nil {
			c.Logger.Error("failed to close repository", "error", err)
			return err
		}
	}

	return nil
}
