package main

import (
	"citizenone/config"
	"citizenone/events"
	"citizenone/metrics"
	"citizenone/middleware"
	"citizenone/notification"
	"citizenone/repository"
	"citizenone/routes"
	"citizenone/schema"
	"citizenone/service"
	"citizenone/storage"
	"citizenone/worker"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := config.LoadConfig()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	dsn, err := cfg.Database.DSN()
	if err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection established")

	if err := schema.InitializeDatabase(db); err != nil {
		log.Fatalf("[SCHEMA] %v", err)
	}
	if err := schema.ValidateRequiredColumns(db, nil); err != nil {
		log.Fatalf("[SCHEMA] %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize repositories
	complaintRepo := repository.NewComplaintRepository(db, cfg.Complaints.IDPrefix)
	departmentRepo := repository.NewDepartmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	files, err := storage.NewDiskStore(cfg.Complaints.UploadDir, cfg.Complaints.MaxUploadBytes)
	if err != nil {
		log.Fatalf("Failed to prepare upload storage: %v", err)
	}

	// Lifecycle events are optional; without a broker nothing is published.
	var publisher service.EventPublisher
	if cfg.Broker.URL != "" {
		p, err := events.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue)
		if err != nil {
			log.Printf("Warning: event broker unavailable, lifecycle events disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
			log.Printf("Publishing lifecycle events to queue %s", cfg.Broker.Queue)
		}
	}

	// Realtime push is optional too.
	var realtime notification.Sender
	if rdb := connectRedis(cfg.Redis); rdb != nil {
		defer rdb.Close()
		realtime = notification.NewRedisPublisher(rdb)
	}
	email := notification.NewEmailSender(notification.EmailConfig{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		ShadowAddress:  cfg.Email.ShadowAddress,
	})

	// Initialize services
	timeline := service.NewTimelineRecorder()
	dispatcher := service.NewNotificationDispatcher(departmentRepo, cfg.Notification.MaxRetries, m)
	complaintService := service.NewComplaintService(complaintRepo, departmentRepo, userRepo, files, timeline, dispatcher, publisher, m)
	lifecycle := service.NewLifecycleManager(complaintRepo, departmentRepo, userRepo, timeline, dispatcher, publisher, m)
	userService := service.NewUserService(userRepo, departmentRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	departmentService := service.NewDepartmentService(departmentRepo, userRepo)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, email, realtime, &service.NotificationConfig{
		DefaultMaxRetries: cfg.Notification.MaxRetries,
		InitialRetryDelay: cfg.Notification.InitialRetryDelay,
		MaxRetryDelay:     cfg.Notification.MaxRetryDelay,
		BackoffMultiplier: cfg.Notification.BackoffMultiplier,
		WorkerBatchSize:   cfg.Notification.BatchSize,
		WorkerInterval:    cfg.Notification.Interval,
	}, m)

	var notificationWorker *worker.NotificationWorker
	if cfg.Notification.Enabled {
		notificationWorker = worker.NewNotificationWorker(notificationService, cfg.Notification.Interval)
		notificationWorker.Start()
	}

	router := routes.SetupRoutes(routes.Dependencies{
		Complaints:     complaintService,
		Lifecycle:      lifecycle,
		Users:          userService,
		Departments:    departmentService,
		Notifications:  notificationService,
		DB:             db,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
		MaxUploadBytes: cfg.Complaints.MaxUploadBytes,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.CORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if notificationWorker != nil {
		notificationWorker.Stop()
	}
	log.Println("Server stopped")
}

// connectRedis returns nil when Redis is not configured or not reachable
func connectRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unavailable, realtime notifications disabled: %v", err)
		rdb.Close()
		return nil
	}
	log.Printf("Realtime notifications via Redis at %s", cfg.Addr)
	return rdb
}
