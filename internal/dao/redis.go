// Package dao provides thin data-access wrappers over the two backing
// stores: Redis through go-redis and PostgreSQL through pgx. The
// wrappers exist so the same logical operations can be issued against
// both stores and timed side by side.
package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storelab/redis-postgres-demo/internal/models"
)

// ErrNotFound is returned when a requested record does not exist in the store
var ErrNotFound = errors.New("record not found")

// ErrInsufficientStock is returned when a stock decrement would go negative
var ErrInsufficientStock = errors.New("insufficient stock")

// Key layout used by the Redis wrappers
const (
	userKeyPrefix     = "user:"
	userIndexPrefix   = "idx:user:"
	productKeyPrefix  = "product:"
	stockKeyPrefix    = "stock:"
	wishlistKeyPrefix = "wishlist:"
	sessionKeyPrefix  = "session:"

	pageVisitKey      = "page_visits"
	pageVisitTimesKey = "page_visits:lastvisit"
	salesRankingKey   = "ranking:sales"

	nextUserIDKey    = "next_user_id"
	nextProductIDKey = "next_product_id"
)

// RedisDAO issues commands against Redis. Users are stored as JSON
// strings with a username secondary index, products as hashes with the
// stock mirrored into a dedicated string key for atomic updates.
type RedisDAO struct {
	client *redis.Client
}

// NewRedisDAO creates a DAO bound to the given client. The client is
// injected so the caller controls pooling and lifetime.
func NewRedisDAO(client *redis.Client) *RedisDAO {
	return &RedisDAO{client: client}
}

// SaveUser stores a user, allocating an ID via INCR on first save and
// maintaining the username index. Returns the user's ID.
func (d *RedisDAO) SaveUser(ctx context.Context, user *models.User) (int64, error) {
	if err := user.Validate(); err != nil {
		return 0, err
	}

	if user.ID == 0 {
		existing, err := d.client.Get(ctx, userIndexPrefix+user.Username).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("failed to check username index: %w", err)
		}
		if existing != "" {
			return 0, fmt.Errorf("user with username %s already exists", user.Username)
		}

		id, err := d.client.Incr(ctx, nextUserIDKey).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to allocate user ID: %w", err)
		}
		user.ID = id
	}

	data, err := json.Marshal(user)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := d.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to store user: %w", err)
	}

	if err := d.client.Set(ctx, userIndexPrefix+user.Username, strconv.FormatInt(user.ID, 10), 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to index user by username: %w", err)
	}

	return user.ID, nil
}

// GetUserByID returns the user stored under the given ID, or ErrNotFound.
func (d *RedisDAO) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	data, err := d.client.Get(ctx, userKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByUsername resolves a user through the username index.
func (d *RedisDAO) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	idStr, err := d.client.Get(ctx, userIndexPrefix+username).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up username %s: %w", username, err)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt username index for %s: %w", username, err)
	}
	return d.GetUserByID(ctx, id)
}

// SaveProduct stores a product as a hash, allocating an ID on first
// save, and mirrors the stock into its own key.
func (d *RedisDAO) SaveProduct(ctx context.Context, product *models.Product) (int64, error) {
	if err := product.Validate(); err != nil {
		return 0, err
	}

	if product.ID == 0 {
		id, err := d.client.Incr(ctx, nextProductIDKey).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to allocate product ID: %w", err)
		}
		product.ID = id
	}

	fields := map[string]interface{}{
		"id":         strconv.FormatInt(product.ID, 10),
		"name":       product.Name,
		"price":      strconv.FormatFloat(product.Price, 'f', 2, 64),
		"stock":      strconv.Itoa(product.Stock),
		"created_at": product.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := d.client.HSet(ctx, productKey(product.ID), fields).Err(); err != nil {
		return 0, fmt.Errorf("failed to store product: %w", err)
	}

	if err := d.client.Set(ctx, stockKey(product.ID), strconv.Itoa(product.Stock), 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to store product stock: %w", err)
	}

	return product.ID, nil
}

// GetProductByID returns the product hash as a model, or ErrNotFound.
func (d *RedisDAO) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	fields, err := d.client.HGetAll(ctx, productKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return productFromHash(id, fields)
}

// UpdateProductStock overwrites a product's stock in both the hash and
// the mirrored stock key.
func (d *RedisDAO) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	exists, err := d.client.Exists(ctx, productKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check product %d: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if err := d.client.HSet(ctx, productKey(id), "stock", strconv.Itoa(stock)).Err(); err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	if err := d.client.Set(ctx, stockKey(id), strconv.Itoa(stock), 0).Err(); err != nil {
		return fmt.Errorf("failed to update stock key: %w", err)
	}
	return nil
}

// DecrementProductStock decrements stock atomically using an optimistic
// WATCH/MULTI/EXEC transaction. Returns ErrInsufficientStock when the
// decrement would go negative and ErrNotFound for unknown products.
func (d *RedisDAO) DecrementProductStock(ctx context.Context, id int64, amount int) error {
	err := d.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, stockKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read stock for product %d: %w", id, err)
		}

		stock, err := strconv.Atoi(current)
		if err != nil {
			return fmt.Errorf("corrupt stock value for product %d: %w", id, err)
		}
		if stock < amount {
			return ErrInsufficientStock
		}

		newStock := strconv.Itoa(stock - amount)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stockKey(id), newStock, 0)
			pipe.HSet(ctx, productKey(id), "stock", newStock)
			return nil
		})
		return err
	}, stockKey(id))

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("concurrent stock update for product %d: %w", id, err)
	}
	return err
}

// IncrementPageVisit bumps the visit counter for a URL and records the
// visit time. Returns the new count.
func (d *RedisDAO) IncrementPageVisit(ctx context.Context, url string) (int64, error) {
	count, err := d.client.HIncrBy(ctx, pageVisitKey, url, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment visits for %s: %w", url, err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := d.client.HSet(ctx, pageVisitTimesKey, url, now).Err(); err != nil {
		return 0, fmt.Errorf("failed to record visit time for %s: %w", url, err)
	}
	return count, nil
}

// PageVisits returns all URL visit counters.
func (d *RedisDAO) PageVisits(ctx context.Context) (map[string]int64, error) {
	raw, err := d.client.HGetAll(ctx, pageVisitKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get page visits: %w", err)
	}

	visits := make(map[string]int64, len(raw))
	for url, countStr := range raw {
		count, err := strconv.ParseInt(countStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt visit count for %s: %w", url, err)
		}
		visits[url] = count
	}
	return visits, nil
}

// AddToWishlist adds a product to a user's wishlist set.
func (d *RedisDAO) AddToWishlist(ctx context.Context, userID, productID int64) error {
	err := d.client.SAdd(ctx, wishlistKey(userID), strconv.FormatInt(productID, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return nil
}

// RemoveFromWishlist removes a product from a user's wishlist set.
func (d *RedisDAO) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	err := d.client.SRem(ctx, wishlistKey(userID), strconv.FormatInt(productID, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	return nil
}

// Wishlist returns the product IDs in a user's wishlist, unordered.
func (d *RedisDAO) Wishlist(ctx context.Context, userID int64) ([]int64, error) {
	members, err := d.client.SMembers(ctx, wishlistKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt wishlist entry %q: %w", member, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IncrementSalesCount bumps a product's score in the sales ranking
// sorted set and returns the new score.
func (d *RedisDAO) IncrementSalesCount(ctx context.Context, productID int64, by float64) (float64, error) {
	score, err := d.client.ZIncrBy(ctx, salesRankingKey, by, strconv.FormatInt(productID, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sales count: %w", err)
	}
	return score, nil
}

// TopProductsBySales returns the best-selling product IDs, highest first.
func (d *RedisDAO) TopProductsBySales(ctx context.Context, count int) ([]int64, error) {
	members, err := d.client.ZRevRange(ctx, salesRankingKey, 0, int64(count-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get sales ranking: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt ranking entry %q: %w", member, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// StoreSession stores session data as a hash with a TTL.
func (d *RedisDAO) StoreSession(ctx context.Context, sessionID string, data map[string]string, ttl time.Duration) error {
	key := sessionKeyPrefix + sessionID

	fields := make(map[string]interface{}, len(data))
	for k, v := range data {
		fields[k] = v
	}
	if err := d.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", sessionID, err)
	}
	if err := d.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire session %s: %w", sessionID, err)
	}
	return nil
}

// Session returns the data for a session, or ErrNotFound once expired.
func (d *RedisDAO) Session(ctx context.Context, sessionID string) (map[string]string, error) {
	data, err := d.client.HGetAll(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// HealthCheck verifies Redis connectivity
func (d *RedisDAO) HealthCheck(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the underlying client connection
func (d *RedisDAO) Close() error {
	return d.client.Close()
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

func productKey(id int64) string {
	return productKeyPrefix + strconv.FormatInt(id, 10)
}

func stockKey(id int64) string {
	return stockKeyPrefix + strconv.FormatInt(id, 10)
}

func wishlistKey(userID int64) string {
	return wishlistKeyPrefix + strconv.FormatInt(userID, 10)
}

func productFromHash(id int64, fields map[string]string) (*models.Product, error) {
	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt price for product %d: %w", id, err)
	}
	stock, err := strconv.Atoi(fields["stock"])
	if err != nil {
		return nil, fmt.Errorf("corrupt stock for product %d: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at for product %d: %w", id, err)
	}

	return &models.Product{
		ID:        id,
		Name:      fields["name"],
		Price:     price,
		Stock:     stock,
		CreatedAt: createdAt,
	}, nil
}
