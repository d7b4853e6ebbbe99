package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/cache"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/feed"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/handler"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/metrics"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/repository"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/services"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		db         *sql.DB
		records    ports.RecordStore
		identities ports.IdentityStore
		deps       []handler.Dependency
	)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Println("Using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		records, identities = mem, mem
	default:
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		records = repository.NewPostgresStore(db)
		identities = repository.NewIdentityRepository(db)
		deps = append(deps, handler.Dependency{Name: "database", Ping: db.PingContext})
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Authenticated with Redis successfully")
		deps = append(deps, handler.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	var (
		challenges ports.ChallengeStore
		blacklist  ports.TokenBlacklist
	)
	if redisClient != nil {
		rc := cache.NewRedisCache(redisClient)
		challenges, blacklist = rc, rc
	} else {
		mc := cache.NewMemoryCache()
		challenges, blacklist = mc, mc
	}

	var changes ports.ChangeFeed
	switch {
	case cfg.ChangeFeed == config.FeedRedis:
		changes = feed.NewRedisFeed(redisClient)
	case cfg.ChangeFeed == config.DriverPostgres && db != nil:
		changes = feed.NewPostgresFeed(db, cfg.DatabaseURL)
	default:
		changes = feed.NewMemoryFeed()
	}
	log.Printf("Change feed: %T", changes)

	observer := metrics.New()
	gate := services.NewGate(cfg.AdminEmail)
	validator := services.NewValidator()

	authService := services.NewAuthService(
		identities,
		records,
		challenges,
		blacklist,
		changes,
		gate,
		validator,
		cfg.JWTPrivateKey,
		services.AuthSettings{
			AdminKey:           cfg.AdminKey,
			RegistrationSecret: cfg.RegistrationSecret,
			CaptchaTTL:         cfg.CaptchaTTL,
			TokenTTL:           cfg.TokenTTL,
		},
	)
	workflowService := services.NewWorkflowService(records, changes, gate, validator, observer)
	noticeService := services.NewNoticeService(records, changes, gate, validator)
	profileService := services.NewProfileService(records, changes, gate, validator)

	liveViews := services.NewLiveViewService(records, changes, observer)
	if err := liveViews.Start(ctx); err != nil {
		log.Fatalf("failed to start live views: %v", err)
	}

	mux := handler.NewMux(handler.Routes{
		Auth:       handler.NewAuthHandler(authService, gate),
		Records:    handler.NewRecordHandler(workflowService, noticeService, gate),
		Notices:    handler.NewNoticeHandler(noticeService),
		Profile:    handler.NewProfileHandler(profileService),
		Stream:     handler.NewStreamHandler(liveViews, gate),
		Health:     handler.NewHealthHandler(deps...),
		Metrics:    observer.Handler(),
		Middleware: middleware.NewAuthMiddleware(authService),
		Instrument: observer.Instrument,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORSMiddleware(cfg.AllowedOrigins)(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: live views are long-lived streams.
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("received signal %v, shutting down...", sig)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down server: %v", err)
	}
	log.Println("shutdown complete")
}
