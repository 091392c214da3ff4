package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/storelab/redis-postgres-demo/internal/config"
	"github.com/storelab/redis-postgres-demo/internal/dao"
	"github.com/storelab/redis-postgres-demo/internal/perf"
)

func main() {
	batchSize := flag.Int("n", 500, "operations per batch benchmark")
	flag.Parse()

	if value, ok := os.LookupEnv("ENV"); ok && value == "prod" {
		// In Docker/Compose, rely only on provided env vars
	} else {
		// Local dev: force load .env
		if err := godotenv.Overload(); err != nil {
			log.Fatalf("Could not load .env: %v", err)
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
	redisDAO := dao.NewRedisDAO(client)
	defer redisDAO.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisDAO.HealthCheck(pingCtx); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	postgresDAO, err := dao.NewPostgresDAO(ctx, cfg.GetPostgresDSN())
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer postgresDAO.Close()

	log.Printf("Connected to Redis at %s and PostgreSQL", cfg.GetRedisAddr())

	comparison := perf.NewComparison(redisDAO, postgresDAO, os.Stdout)
	runMenu(ctx, comparison, *batchSize)
}

func runMenu(ctx context.Context, comparison *perf.Comparison, batchSize int) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println()
		fmt.Println("===== REDIS VS POSTGRESQL DEMO =====")
		fmt.Println("1. Run all benchmarks")
		fmt.Println("2. Single user operations")
		fmt.Printf("3. Batch user writes (%d users)\n", batchSize)
		fmt.Println("4. Stock decrements")
		fmt.Printf("5. Counter increments (%d increments)\n", batchSize)
		fmt.Println("0. Exit")
		fmt.Print("Choose an option: ")

		if !scanner.Scan() {
			return
		}

		var err error
		switch scanner.Text() {
		case "1":
			err = comparison.RunAll(ctx, batchSize)
		case "2":
			var results []perf.Result
			if results, err = comparison.SingleUser(ctx); err == nil {
				printResults(results...)
			}
		case "3":
			var result perf.Result
			if result, err = comparison.BatchUsers(ctx, batchSize); err == nil {
				printResults(result)
			}
		case "4":
			var result perf.Result
			if result, err = comparison.StockDecrements(ctx, batchSize/10+1); err == nil {
				printResults(result)
			}
		case "5":
			var result perf.Result
			if result, err = comparison.Counters(ctx, batchSize); err == nil {
				printResults(result)
			}
		case "0", "q", "quit", "exit":
			return
		default:
			fmt.Println("Unknown option")
			continue
		}

		if err != nil {
			log.Printf("Benchmark failed: %v", err)
		}
	}
}

func printResults(results ...perf.Result) {
	for _, r := range results {
		fmt.Println(r.String())
	}
}
