package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/bus"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/handlers"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/middleware"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/ratelimit"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/repository"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/service"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "LC Notification Core",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Internal-Token",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running single-instance without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	presenceCache := cache.NewPresenceCache(redisCache)
	notificationCache := cache.NewNotificationCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	reportRepo := repository.NewReportRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	deliveryEventRepo := repository.NewDeliveryEventRepository(db)

	// Connection registry for this instance
	registry := stream.NewRegistry(instanceID, presenceCache, stream.Config{})
	defer registry.Close()

	// Delivery bus: Redis pub/sub when available, in-process loopback
	// otherwise. The forwarder skips intents that originated here since
	// local connections were already served at dispatch time.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deliveryBus bus.Bus
	if redisCache != nil {
		deliveryBus = bus.NewRedisBus(redisCache, bus.DefaultChannel)
	} else {
		deliveryBus = bus.NewMemoryBus()
	}
	if err := deliveryBus.Subscribe(ctx, bus.Forwarder(registry)); err != nil {
		log.Fatal("Failed to subscribe to delivery bus:", err)
	}
	defer deliveryBus.Close()

	worker := bus.NewWorker(deliveryBus, deliveryEventRepo, bus.LogPushSink{}, bus.WorkerConfig{})
	worker.Start(ctx)
	defer worker.Stop()

	// Rate limiting: shared counters when Redis is up, per-process otherwise
	var limiterStore ratelimit.Store
	if redisCache != nil {
		limiterStore = ratelimit.NewRedisStore(redisCache)
	} else {
		limiterStore = ratelimit.NewMemoryStore()
	}
	rateLimiter := ratelimit.NewLimiter(limiterStore, nil)

	// Initialize services
	targetingService := service.NewTargetingService(userRepo, branchRepo, reportRepo)
	trackingService := service.NewTrackingService(notificationRepo, deliveryEventRepo)
	notificationService := service.NewNotificationService(notificationRepo, trackingService, notificationCache)
	dispatchService := service.NewDispatchService(notificationRepo, targetingService, registry, worker, notificationCache)

	// Initialize handlers
	streamHandler := handlers.NewStreamHandler(registry, notificationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, trackingService)
	dispatchHandler := handlers.NewDispatchHandler(dispatchService)
	adminHandler := handlers.NewAdminHandler(registry, presenceCache)
	wsHandler := handlers.NewWebSocketHandler(registry)

	api := app.Group("/api", middleware.OriginAllowed())

	// Stream endpoints
	api.Get("/stream",
		middleware.AuthRequired(),
		middleware.RateLimit(rateLimiter, ratelimit.RuleStreamConnectIP, middleware.KeyByIP),
		middleware.RateLimit(rateLimiter, ratelimit.RuleStreamConnectUser, middleware.KeyByUser),
		streamHandler.HandleStream,
	)
	api.Get("/stream/updates",
		middleware.AuthRequired(),
		middleware.RateLimit(rateLimiter, ratelimit.RulePollUpdates, middleware.KeyByUser),
		streamHandler.HandleUpdates,
	)

	// Notification endpoints
	notifications := api.Group("/notifications", middleware.AuthRequired())
	notifications.Get("/", notificationHandler.List)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Post("/read-all", middleware.CSRFRequired(), notificationHandler.MarkAllRead)
	notifications.Post("/:id/read", middleware.CSRFRequired(), notificationHandler.MarkRead)
	notifications.Get("/:id/events", middleware.RequireRole("admin"), notificationHandler.Events)

	// Tracking accepts anonymous reports from service workers
	api.Post("/notifications/track",
		middleware.OptionalAuth(),
		middleware.RateLimit(rateLimiter, ratelimit.RuleTrack, middleware.KeyByUser),
		notificationHandler.Track,
	)

	// Producer-facing dispatch
	api.Post("/internal/dispatch",
		middleware.RateLimit(rateLimiter, ratelimit.RuleDispatch, middleware.KeyByIP),
		dispatchHandler.Dispatch,
	)

	// Admin surface
	admin := api.Group("/admin", middleware.AuthRequired(), middleware.RequireRole("admin"))
	admin.Get("/connections", adminHandler.Connections)
	admin.Get("/users/:id/online", adminHandler.IsOnline)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"instanceId": instanceID,
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	log.Printf("Server starting on port %s (instance %s)...", port, instanceID)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
