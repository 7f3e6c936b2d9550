package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"groupgames-service/internal/auth"
	"groupgames-service/internal/cache"
	"groupgames-service/internal/config"
	"groupgames-service/internal/db"
	"groupgames-service/internal/handlers"
	"groupgames-service/internal/health"
	"groupgames-service/internal/middleware"
	"groupgames-service/internal/observability"
	"groupgames-service/internal/rabbitmq"
	"groupgames-service/internal/repositories"
	"groupgames-service/internal/rules"
	"groupgames-service/internal/services"
	"groupgames-service/internal/telemetry"
	"groupgames-service/internal/ws"
)

const serviceName = "group-games"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		logrus.Fatalf("failed to init tracing: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	redisCache, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logrus.WithError(err).Warn("redis unavailable, continuing without action log and presence")
		redisCache = nil
	}
	defer redisCache.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	logrus.WithFields(logrus.Fields{
		"mode":   rabbitmq.PublisherMode(publisher),
		"reason": rabbitmq.PublisherNoopReason(publisher),
	}).Info("event publisher ready")
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)
	statsRepo := repositories.NewStatsRepo(database)
	gameRepo := repositories.NewGameRepo(database)

	registry := rules.DefaultRegistry()
	groupService := services.NewGroupService(groupRepo, groupMessageRepo, statsRepo, userRepo, redisCache)
	gameService := services.NewGameService(gameRepo, groupRepo, registry, redisCache)

	hub := ws.NewHub()
	relay := ws.NewHandler(hub, groupService, groupService, redisCache, ws.Limits{
		EventsPerSecond: cfg.WSEventsPerSecond,
		Burst:           cfg.WSEventBurst,
	})

	groupHandler := handlers.NewGroupHandler(groupService, hub, auditEmitter)
	gameHandler := handlers.NewGameHandler(gameService, hub, auditEmitter)

	verifier := auth.NewVerifier(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	authMiddleware := middleware.AuthMiddleware(verifier, userRepo)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.HTTPRequestsPerIP), cfg.HTTPBurst)
	go limiter.Cleanup(time.Minute, ctx.Done())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(middleware.LogMiddleware(logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := router.Group("/", limiter.Middleware(), authMiddleware)

	api.GET("/auth/user", handlers.CurrentUser)

	api.POST("/groups", groupHandler.CreateGroup)
	api.GET("/groups", groupHandler.ListGroups)
	api.GET("/groups/:id", groupHandler.GetGroup)
	api.POST("/groups/join/:inviteCode", groupHandler.JoinGroup)
	api.DELETE("/groups/:id/leave", groupHandler.LeaveGroup)
	api.GET("/groups/:id/members", groupHandler.ListMembers)
	api.GET("/groups/:id/leaderboard", groupHandler.Leaderboard)
	api.GET("/groups/:id/stats", groupHandler.Stats)
	api.GET("/groups/:id/presence", groupHandler.Presence)
	api.GET("/groups/:id/active-game", gameHandler.GetActiveGame)
	api.GET("/groups/:id/messages", groupHandler.GetGroupMessages)
	api.POST("/groups/:id/messages", groupHandler.PostGroupMessage)

	api.GET("/games/types", gameHandler.ListGameTypes)
	api.POST("/games", gameHandler.CreateGame)
	api.GET("/games/:id", gameHandler.GetGame)
	api.POST("/games/:id/join", gameHandler.JoinGame)
	api.POST("/games/:id/move", gameHandler.MakeMove)

	api.GET("/ws", relay.Handle)

	handlers.RegisterDebugRoutes(api, auditEmitter, registry, cfg.DebugRoutes)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := health.NewServer(database)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logrus.Fatalf("failed to listen on grpc port: %v", err)
	}
	go healthServer.Watch(ctx, 15*time.Second)
	go func() {
		if err := healthServer.Serve(grpcListener); err != nil {
			logrus.WithError(err).Error("grpc health server stopped")
		}
	}()

	go func() {
		logrus.WithField("port", cfg.Port).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("http shutdown")
	}
	healthServer.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logrus.WithError(err).Error("tracing shutdown")
	}
}
