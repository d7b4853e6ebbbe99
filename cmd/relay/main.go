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

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/handler"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/messaging"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/outbox"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
)

func main() {
	cfg := config.LoadRelayConfig()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("relay: failed to open database: %v", err)
	}
	defer db.Close()

	broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.TransitionQueueName)
	if err != nil {
		log.Fatalf("relay: failed to connect to RabbitMQ: %v", err)
	}
	defer broker.Close()
	log.Printf("relay: publishing record transitions to '%s'", cfg.TransitionQueueName)

	relay := outbox.NewRelay(db, cfg.DatabaseURL, broker)

	health := handler.NewHealthHandler(
		handler.Dependency{Name: "database", Ping: db.PingContext},
		handler.Dependency{Name: "rabbitmq", Ping: broker.Ping},
		handler.Dependency{Name: "outbox-relay", Ping: relay.Ping},
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/health/live", health.Live)
	mux.HandleFunc("/health/ready", health.Ready)

	probes := &http.Server{
		Addr:              ":" + cfg.HealthPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("relay: health probes on :%s", cfg.HealthPort)
		if err := probes.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("relay: health server error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failed := make(chan error, 1)
	go func() {
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			failed <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("relay: received signal %v, shutting down...", sig)
	case err := <-failed:
		log.Printf("relay: stopped: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := probes.Shutdown(shutdownCtx); err != nil {
		log.Printf("relay: error shutting down health server: %v", err)
	}
	log.Println("relay: shutdown complete")
}
