package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/database"
	authHandler "eventplanner-backend/internal/handler/http/auth"
	boardHandler "eventplanner-backend/internal/handler/http/board"
	chatHandler "eventplanner-backend/internal/handler/http/chat"
	eventHandler "eventplanner-backend/internal/handler/http/event"
	exportHandler "eventplanner-backend/internal/handler/http/export"
	inviteHandler "eventplanner-backend/internal/handler/http/invite"
	participantHandler "eventplanner-backend/internal/handler/http/participant"
	pollHandler "eventplanner-backend/internal/handler/http/poll"
	wsHandler "eventplanner-backend/internal/handler/ws"
	"eventplanner-backend/internal/middleware"
	"eventplanner-backend/internal/realtime"
	"eventplanner-backend/internal/repository/postgres"
	"eventplanner-backend/internal/scheduler"
	authService "eventplanner-backend/internal/service/auth"
	chatService "eventplanner-backend/internal/service/chat"
	eventService "eventplanner-backend/internal/service/event"
	inviteService "eventplanner-backend/internal/service/invite"
	participantService "eventplanner-backend/internal/service/participant"
	pollService "eventplanner-backend/internal/service/poll"
	"eventplanner-backend/internal/service/taskboard"
	"eventplanner-backend/pkg/cache"
	"eventplanner-backend/pkg/config"
	"eventplanner-backend/pkg/email"
	"eventplanner-backend/pkg/jwt"
	"eventplanner-backend/pkg/logger"
	"eventplanner-backend/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Path:   cfg.Log.Path,
	}); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Store
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL: " + err.Error())
	}
	defer db.Close()

	// Redis is optional: broker and cache fall back to in-process
	// implementations when it is absent or disabled.
	var redisDB *database.RedisClient
	if cfg.Redis.UseBroker || cfg.Redis.UseCache {
		redisDB, err = database.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis: " + err.Error())
		}
		defer redisDB.Close()
		redisDB.StartHealthCheck(ctx, 10*time.Second)
	}

	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)

	// Broker + hub
	var broker realtime.Broker
	if cfg.Redis.UseBroker && redisDB != nil {
		broker = realtime.NewRedisBroker(redisDB.Client)
	} else {
		broker = realtime.NewMemoryBroker()
	}
	defer broker.Close()
	hub := realtime.NewHub(broker, appMetrics.BrokerPublishFailed)

	// Cache with in-process fallback
	var primaryCache cache.Store
	if cfg.Redis.UseCache && redisDB != nil {
		primaryCache = cache.NewRedisStore(redisDB.Client)
	}
	safeCache := cache.NewSafeStore(primaryCache, appMetrics.CacheFallback)

	// Repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	eventRepo := postgres.NewEventRepository(db.Pool)
	participantRepo := postgres.NewParticipantRepository(db.Pool)
	inviteRepo := postgres.NewInviteRepository(db.Pool)
	taskListRepo := postgres.NewTaskListRepository(db.Pool)
	taskRepo := postgres.NewTaskRepository(db.Pool)
	pollRepo := postgres.NewPollRepository(db.Pool)
	messageRepo := postgres.NewMessageRepository(db.Pool)

	// Outgoing mail
	var mailer email.Sender
	if cfg.SMTP.Username != "" || cfg.Server.Environment == "production" {
		mailer = email.NewSMTPSender(&email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		mailer = &email.MockSender{}
	}

	// Services
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry, cfg.JWT.ConfirmTokenExpiry)
	authSvc := authService.NewService(userRepo, tokens, mailer, cfg.Site.URL)
	eventSvc := eventService.NewService(eventRepo, participantRepo)
	boardSvc := taskboard.NewService(taskRepo, taskListRepo, eventRepo, participantRepo, hub, safeCache)
	pollSvc := pollService.NewService(pollRepo, eventRepo, participantRepo, hub)
	chatSvc := chatService.NewService(messageRepo, participantRepo, hub)
	inviteSvc := inviteService.NewService(inviteRepo, eventRepo, cfg.Site.FrontURL)
	participantSvc := participantService.NewService(participantRepo, eventRepo)

	// Handlers
	authHdlr := authHandler.NewHandler(authSvc)
	eventHdlr := eventHandler.NewHandler(eventSvc)
	boardHdlr := boardHandler.NewHandler(boardSvc)
	pollHdlr := pollHandler.NewHandler(pollSvc)
	chatHdlr := chatHandler.NewHandler(chatSvc)
	inviteHdlr := inviteHandler.NewHandler(inviteSvc)
	participantHdlr := participantHandler.NewHandler(participantSvc)
	exportHdlr := exportHandler.NewHandler(boardSvc, pollSvc, nil, nil)
	gateway := wsHandler.NewGateway(broker, hub, authSvc, participantRepo, cfg.Realtime.MaxMessageSize, appMetrics)

	// Background jobs
	jobs := scheduler.NewJobs(taskRepo, pollRepo, eventRepo, participantRepo, userRepo, mailer)
	sched := scheduler.New(appMetrics.EmailsDispatched)
	if err := sched.Add("@hourly", "deadline_reminders", jobs.SendDeadlineReminders); err != nil {
		logger.Fatal("Failed to schedule deadline reminders: " + err.Error())
	}
	if err := sched.Add("*/30 * * * *", "poll_closing_notifications", jobs.SendPollClosingNotifications); err != nil {
		logger.Fatal("Failed to schedule poll notifications: " + err.Error())
	}
	if cfg.Scheduler.EnableDailyDigest {
		if err := sched.Add(cfg.Scheduler.DailyDigestCron, "daily_digest", jobs.SendDailyDigest); err != nil {
			logger.Fatal("Failed to schedule daily digest: " + err.Error())
		}
	}
	sched.Start()
	defer sched.Stop()

	// Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.NewPrometheusMiddleware(appMetrics).Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHdlr.Register)
		api.POST("/auth/resend-confirmation", authHdlr.ResendConfirmation)
		api.GET("/auth/confirm", authHdlr.Confirm)
		api.POST("/auth/login", authHdlr.Login)
		api.POST("/auth/refresh", authHdlr.Refresh)
		api.GET("/invites/validate", inviteHdlr.Validate)
	}

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(authSvc))
	{
		authed.GET("/users/me", authHdlr.Profile)
		authed.PATCH("/users/me", authHdlr.UpdateProfile)

		authed.POST("/events", eventHdlr.Create)
		authed.GET("/events", eventHdlr.List)
		authed.GET("/events/:event_id", eventHdlr.Get)
		authed.PATCH("/events/:event_id", eventHdlr.Update)
		authed.DELETE("/events/:event_id", eventHdlr.Delete)

		authed.GET("/events/:event_id/board", boardHdlr.Board)
		authed.GET("/events/:event_id/progress", boardHdlr.Progress)
		authed.POST("/events/:event_id/tasklists/reorder", boardHdlr.ReorderLists)
		authed.POST("/tasklists", boardHdlr.CreateList)
		authed.PATCH("/tasklists/:list_id", boardHdlr.UpdateList)
		authed.DELETE("/tasklists/:list_id", boardHdlr.DeleteList)
		authed.POST("/tasklists/:list_id/tasks/reorder", boardHdlr.ReorderTasks)
		authed.POST("/tasks", boardHdlr.CreateTask)
		authed.GET("/tasks/:task_id", boardHdlr.GetTask)
		authed.PATCH("/tasks/:task_id", boardHdlr.UpdateTask)
		authed.DELETE("/tasks/:task_id", boardHdlr.DeleteTask)
		authed.POST("/tasks/:task_id/status", boardHdlr.SetStatus)
		authed.POST("/tasks/:task_id/assign", boardHdlr.Assign)
		authed.POST("/tasks/:task_id/take", boardHdlr.Take)

		authed.POST("/events/:event_id/polls", pollHdlr.Create)
		authed.GET("/events/:event_id/polls", pollHdlr.List)
		authed.GET("/polls/:poll_id", pollHdlr.Get)
		authed.POST("/polls/:poll_id/vote", pollHdlr.Vote)
		authed.POST("/polls/:poll_id/close", pollHdlr.Close)
		authed.DELETE("/polls/:poll_id", pollHdlr.Delete)

		authed.GET("/events/:event_id/messages", chatHdlr.List)
		authed.POST("/events/:event_id/messages", chatHdlr.Send)
		authed.DELETE("/events/:event_id/messages/:message_id", chatHdlr.Delete)

		authed.POST("/events/:event_id/invites", inviteHdlr.Create)
		authed.POST("/invites/accept", inviteHdlr.Accept)
		authed.POST("/invites/revoke", inviteHdlr.Revoke)

		authed.GET("/events/:event_id/participants", participantHdlr.List)
		authed.PATCH("/events/:event_id/participants/:participant_id", participantHdlr.UpdateRole)
		authed.DELETE("/events/:event_id/participants/:participant_id", participantHdlr.Remove)

		authed.GET("/events/:event_id/export/csv", exportHdlr.CSV)
		authed.GET("/events/:event_id/export/pdf", exportHdlr.PDF)
		authed.GET("/events/:event_id/export/xls", exportHdlr.XLS)
	}

	// The WebSocket handshake authenticates itself (header or ?token=…),
	// so the route stays outside the HTTP auth middleware.
	router.GET("/ws/events/:event_id", gateway.ServeWS)

	// Serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting on " + addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: " + err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: " + err.Error())
	}
	logger.Info("Server exited")
}
