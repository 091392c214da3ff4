package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/storelab/redis-postgres-demo/internal/config"
	"github.com/storelab/redis-postgres-demo/internal/expiry"
	"github.com/storelab/redis-postgres-demo/internal/logger"
)

func main() {

	if value, ok := os.LookupEnv("ENV"); ok && value == "prod" {
		// In Docker/Compose, rely only on provided env vars
	} else {
		// Local dev: force load .env
		if err := godotenv.Overload(); err != nil {
			log.Fatalf("Could not load .env: %v", err)
		}
	}

	// Load configuration into config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Initialize file logger for durable expiration records
	fileLogger, err := logger.NewFileLogger(cfg.GetLogFile())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer fileLogger.Close()

	log.Printf("Starting expiry-demo")
	log.Printf("Connected to Redis at %s", cfg.GetRedisAddr())
	log.Printf("Logging expirations to file: %s", cfg.GetLogFile())

	listener := expiry.NewListener(client).OnKeyExpire(func(key string) {
		switch {
		case strings.HasPrefix(key, "session:"):
			log.Printf("User session expired, cleaning up resources for %s", key)
		case strings.HasPrefix(key, "cache:"):
			log.Printf("Cache entry expired: %s", key)
		case strings.HasPrefix(key, "lock:"):
			log.Printf("Lock released: %s", key)
		default:
			log.Printf("Key expired: %s", key)
		}

		if err := fileLogger.LogExpiration(context.Background(), key); err != nil {
			log.Printf("Failed to log expiration: %v", err)
		}
	})

	ctx := context.Background()
	if err := listener.Start(ctx); err != nil {
		log.Fatalf("Failed to start expiration listener: %v", err)
	}
	defer listener.Stop()

	// Seed keys with staggered TTLs to demonstrate expiration handling
	id := uuid.NewString()[:8]
	seeds := []struct {
		key string
		ttl time.Duration
	}{
		{"session:user" + id, 5 * time.Second},
		{"cache:product" + id, 7 * time.Second},
		{"lock:resource" + id, 10 * time.Second},
	}
	for _, seed := range seeds {
		if err := listener.SetWithExpiration(ctx, seed.key, "demodata", seed.ttl); err != nil {
			log.Fatalf("Failed to seed key: %v", err)
		}
		if cfg.IsDebugEnabled() {
			log.Printf("Set %s with TTL %s", seed.key, seed.ttl)
		}
	}

	log.Println("Keys set with TTL. Waiting for expirations (Ctrl+C to exit)...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, stopping...")
}
