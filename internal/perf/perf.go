// Package perf times matched operation pairs against Redis and
// PostgreSQL to illustrate their latency difference. The numbers are
// for teaching, not for rigorous benchmarking.
package perf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/storelab/redis-postgres-demo/internal/models"
)

// Store is the set of operations both data-access wrappers support, so
// one benchmark can drive either backend.
type Store interface {
	SaveUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SaveProduct(ctx context.Context, product *models.Product) (int64, error)
	DecrementProductStock(ctx context.Context, id int64, amount int) error
	IncrementPageVisit(ctx context.Context, url string) (int64, error)
}

// Result holds the timing of one operation pair.
type Result struct {
	Name     string
	Ops      int
	Redis    time.Duration
	Postgres time.Duration
}

// Speedup reports how many times faster Redis completed the operation.
func (r Result) Speedup() float64 {
	if r.Redis <= 0 {
		return 0
	}
	return float64(r.Postgres) / float64(r.Redis)
}

func (r Result) String() string {
	return fmt.Sprintf("%-28s ops=%-6d redis=%-10s postgres=%-10s %.2fx faster with Redis",
		r.Name, r.Ops, r.Redis.Round(time.Microsecond), r.Postgres.Round(time.Microsecond), r.Speedup())
}

// Comparison runs each benchmark against both stores and writes a
// report per result.
type Comparison struct {
	redis    Store
	postgres Store
	out      io.Writer
}

// NewComparison creates a comparison over the two stores, writing
// results to out.
func NewComparison(redis, postgres Store, out io.Writer) *Comparison {
	return &Comparison{redis: redis, postgres: postgres, out: out}
}

// SingleUser times creating one user and reading it back by ID.
func (c *Comparison) SingleUser(ctx context.Context) ([]Result, error) {
	username := randomUsername()

	var redisID, pgID int64
	createRedis, err := timeOp(func() error {
		var err error
		redisID, err = c.redis.SaveUser(ctx, models.NewUser(username, username+"@example.com"))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis user create: %w", err)
	}
	createPg, err := timeOp(func() error {
		var err error
		pgID, err = c.postgres.SaveUser(ctx, models.NewUser(username, username+"@example.com"))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres user create: %w", err)
	}

	getRedis, err := timeOp(func() error {
		_, err := c.redis.GetUserByID(ctx, redisID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("redis user get: %w", err)
	}
	getPg, err := timeOp(func() error {
		_, err := c.postgres.GetUserByID(ctx, pgID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres user get: %w", err)
	}

	return []Result{
		{Name: "single user create", Ops: 1, Redis: createRedis, Postgres: createPg},
		{Name: "single user get", Ops: 1, Redis: getRedis, Postgres: getPg},
	}, nil
}

// BatchUsers times writing n users into each store.
func (c *Comparison) BatchUsers(ctx context.Context, n int) (Result, error) {
	usernames := make([]string, n)
	for i := range usernames {
		usernames[i] = randomUsername()
	}

	redisTime, err := timeOp(func() error {
		for _, username := range usernames {
			if _, err := c.redis.SaveUser(ctx, models.NewUser(username, username+"@example.com")); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("redis batch users: %w", err)
	}

	pgTime, err := timeOp(func() error {
		for _, username := range usernames {
			if _, err := c.postgres.SaveUser(ctx, models.NewUser(username, username+"@example.com")); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("postgres batch users: %w", err)
	}

	return Result{Name: "batch user create", Ops: n, Redis: redisTime, Postgres: pgTime}, nil
}

// StockDecrements times n consistent stock decrements on one product
// per store, exercising each store's transaction mechanism.
func (c *Comparison) StockDecrements(ctx context.Context, n int) (Result, error) {
	name := "product_" + uuid.NewString()[:8]

	redisID, err := c.redis.SaveProduct(ctx, models.NewProduct(name, 19.99, n))
	if err != nil {
		return Result{}, fmt.Errorf("redis product create: %w", err)
	}
	pgID, err := c.postgres.SaveProduct(ctx, models.NewProduct(name, 19.99, n))
	if err != nil {
		return Result{}, fmt.Errorf("postgres product create: %w", err)
	}

	redisTime, err := timeOp(func() error {
		for i := 0; i < n; i++ {
			if err := c.redis.DecrementProductStock(ctx, redisID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("redis stock decrement: %w", err)
	}

	pgTime, err := timeOp(func() error {
		for i := 0; i < n; i++ {
			if err := c.postgres.DecrementProductStock(ctx, pgID, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("postgres stock decrement: %w", err)
	}

	return Result{Name: "stock decrement", Ops: n, Redis: redisTime, Postgres: pgTime}, nil
}

// Counters times n page-visit increments per store.
func (c *Comparison) Counters(ctx context.Context, n int) (Result, error) {
	url := "/page_" + uuid.NewString()[:8]

	redisTime, err := timeOp(func() error {
		for i := 0; i < n; i++ {
			if _, err := c.redis.IncrementPageVisit(ctx, url); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("redis counter increment: %w", err)
	}

	pgTime, err := timeOp(func() error {
		for i := 0; i < n; i++ {
			if _, err := c.postgres.IncrementPageVisit(ctx, url); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("postgres counter increment: %w", err)
	}

	return Result{Name: "counter increment", Ops: n, Redis: redisTime, Postgres: pgTime}, nil
}

// RunAll runs every benchmark and writes the report.
func (c *Comparison) RunAll(ctx context.Context, batchSize int) error {
	fmt.Fprintln(c.out, "===== REDIS VS POSTGRESQL PERFORMANCE COMPARISON =====")

	single, err := c.SingleUser(ctx)
	if err != nil {
		return err
	}
	c.report(single...)

	batch, err := c.BatchUsers(ctx, batchSize)
	if err != nil {
		return err
	}
	c.report(batch)

	stock, err := c.StockDecrements(ctx, batchSize/10+1)
	if err != nil {
		return err
	}
	c.report(stock)

	counters, err := c.Counters(ctx, batchSize)
	if err != nil {
		return err
	}
	c.report(counters)

	fmt.Fprintln(c.out, "===== BENCHMARK COMPLETE =====")
	return nil
}

func (c *Comparison) report(results ...Result) {
	for _, r := range results {
		fmt.Fprintln(c.out, r.String())
	}
}

func timeOp(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

func randomUsername() string {
	return "user_" + uuid.NewString()[:8]
}
