package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"referral-ledger/internal/auth"
	"referral-ledger/internal/config"
	"referral-ledger/internal/database"
	"referral-ledger/internal/events"
	"referral-ledger/internal/handlers"
	"referral-ledger/internal/jobs"
	"referral-ledger/internal/notify"
	"referral-ledger/internal/repository"
	"referral-ledger/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	repo := repository.NewRepository(db)
	locks := services.NewKeyedLocker(0)

	// Notification channels
	var notifiers []events.Notifier
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)
		if err != nil {
			log.Printf("Telegram notifications disabled: %v", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		notifiers = append(notifiers, notify.NewRedisPublisher(redisClient, cfg.Redis.Channel))
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, notify.Log{})
	}

	emitter := events.NewEmitter(cfg.Events.QueueSize, cfg.Events.Workers, notifiers...)
	emitter.Start()

	// Initialize services
	accountService := services.NewAccountService(repo, locks, emitter, cfg.Rewards)
	referralService := services.NewReferralService(repo, locks, emitter, cfg.Rewards)
	deviceService := services.NewDeviceService(repo, locks, emitter)
	withdrawalService := services.NewWithdrawalService(repo, locks, emitter, cfg.Rewards, cfg.Policy)
	adminService := services.NewAdminService(repo)

	// Tidy daily withdrawal counters on every date change
	resetter := jobs.NewQuotaResetter(repo, cfg.Rewards.QuotaResetInterval, cfg.Rewards.Timezone)
	if err := resetter.Start(); err != nil {
		log.Fatalf("Failed to start quota resetter: %v", err)
	}
	log.Println("Quota resetter started")

	// Launch credentials are signed with the bot token
	var identity *auth.InitDataVerifier
	if cfg.App.AllowUnsignedOpen {
		log.Println("WARNING: ALLOW_UNSIGNED_OPEN is set, /api/open trusts the uid it is sent")
	} else {
		identity = auth.NewInitDataVerifier(cfg.Telegram.BotToken, cfg.App.InitDataMaxAge)
	}

	// Initialize handlers
	h := &handlers.Handlers{
		Account: handlers.NewAccountHandler(accountService, referralService, deviceService, withdrawalService,
			identity, cfg.Policy.SurfaceUnknownReferrer),
		Referral:   handlers.NewReferralHandler(referralService),
		Device:     handlers.NewDeviceHandler(deviceService),
		Withdrawal: handlers.NewWithdrawalHandler(withdrawalService),
		Admin:      handlers.NewAdminHandler(adminService, withdrawalService, referralService),
	}

	// Set up Gin router
	router := gin.Default()

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.Server.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.Server.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", auth.AdminSecretHeader, auth.AdminActorHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(router, h, cfg.App.AdminSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	resetter.Stop()
	// Drain queued notifications before the channels go away
	emitter.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Failed to close redis client: %v", err)
		}
	}

	log.Println("Server exited")
}
