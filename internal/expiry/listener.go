// Package expiry bridges Redis key-expiration notifications to an
// application callback. Redis publishes an event on the
// __keyevent@<db>__:expired channel each time it actively removes a key
// whose TTL has elapsed; the Listener subscribes to that channel across
// all databases and hands every expired key name to a single registered
// callback on a dedicated background goroutine.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis server setting controlling which keyspace events are published
	notifyConfigKey = "notify-keyspace-events"

	// K/E select keyspace vs keyevent channels, the remaining letters
	// select event classes. The listener needs keyevent channels (E)
	// carrying expired events (x).
	requiredNotifyFlags = "Ex"

	// One expired-event channel exists per logical database; the wildcard
	// matches them all.
	expiredChannelPattern = "__keyevent@*__:expired"
)

// ErrNoCallback is returned by Start when no callback has been
// registered via OnKeyExpire.
var ErrNoCallback = errors.New("no expiration callback configured")

// Callback processes one expired key name. It may perform arbitrary side
// effects; a panic is recovered and logged, it does not stop delivery.
type Callback func(key string)

// Client is the subset of *redis.Client the listener depends on. Taking
// the narrow interface keeps the store handle injectable (no package
// singleton) and lets tests stub the CONFIG surface while using a real
// connection for the subscription.
type Client interface {
	ConfigGet(ctx context.Context, parameter string) *redis.MapStringStringCmd
	ConfigSet(ctx context.Context, parameter, value string) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub
}

// Listener subscribes to Redis expired-key events and dispatches each
// expired key to the registered callback. At most one subscription is
// live per Listener; Start and Stop move it between idle and running.
type Listener struct {
	client   Client
	callback Callback

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewListener creates a listener bound to the given client. The client
// connection used for the subscription is dedicated to it while the
// listener runs.
func NewListener(client Client) *Listener {
	return &Listener{client: client}
}

// OnKeyExpire registers the callback invoked once per expired key.
// Must be called before Start. Returns the listener for chaining.
func (l *Listener) OnKeyExpire(callback Callback) *Listener {
	l.callback = callback
	return l
}

// IsRunning reports whether the listener has been started and not yet
// stopped. After an unexpected subscription failure this still reads
// true until Stop is called; see Start.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Start verifies the server's keyspace-notification configuration and
// opens the expired-event subscription on a background goroutine. It
// returns once the goroutine is dispatched; the caller never blocks on
// delivery. ctx bounds only the synchronous configuration step — the
// subscription itself lives until Stop.
//
// Errors from the configuration step are returned to the caller. Errors
// after Start returns are logged only: an unexpected subscription
// failure leaves the listener marked running, and Stop must be called
// before Start can be retried.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.callback == nil {
		return ErrNoCallback
	}

	if l.running {
		log.Println("expiry: listener already running")
		return nil
	}

	if err := l.ensureNotifications(ctx); err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true

	go l.listen(subCtx)

	return nil
}

// Stop cancels the background subscription and marks the listener idle.
// Idempotent. A callback already in flight is not joined; delivery of
// further notifications stops.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}

	// Flip the flag before cancelling so the unwinding goroutine sees
	// an expected teardown.
	l.running = false
	l.cancel()
	l.cancel = nil
}

// SetWithExpiration stores a string value under key with a relative TTL.
// Once the TTL elapses and Redis removes the key, the expiration event
// reaches the registered callback.
func (l *Listener) SetWithExpiration(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := l.client.Set(ctx, key, value, ttl).Err(); err != nil {
		err = fmt.Errorf("failed to set key %q with expiration: %w", key, err)
		log.Printf("expiry: %v", err)
		return err
	}
	return nil
}

// ensureNotifications reconciles the server's notify-keyspace-events
// setting. Missing required flags are appended to whatever is already
// configured; unrelated flags are never removed. When the current value
// already carries the required flags no write is issued.
func (l *Listener) ensureNotifications(ctx context.Context) error {
	current, err := l.client.ConfigGet(ctx, notifyConfigKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", notifyConfigKey, err)
	}

	merged, changed := mergeNotifyFlags(current[notifyConfigKey])
	if !changed {
		return nil
	}

	if err := l.client.ConfigSet(ctx, notifyConfigKey, merged).Err(); err != nil {
		return fmt.Errorf("failed to enable keyspace notifications: %w", err)
	}

	log.Printf("expiry: keyspace notifications enabled: %s", merged)
	return nil
}

// mergeNotifyFlags appends the required notification flags that are
// missing from the configured flag string. The second return value
// reports whether anything was missing.
func mergeNotifyFlags(current string) (string, bool) {
	var missing strings.Builder
	for _, flag := range requiredNotifyFlags {
		if !strings.ContainsRune(current, flag) {
			missing.WriteRune(flag)
		}
	}
	if missing.Len() == 0 {
		return current, false
	}
	return current + missing.String(), true
}

// listen runs on the background goroutine. It holds the subscription
// open until ctx is cancelled, dispatching one notification at a time.
func (l *Listener) listen(ctx context.Context) {
	pubsub := l.client.PSubscribe(ctx, expiredChannelPattern)
	defer pubsub.Close()

	log.Println("expiry: listening for key expiration events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("expiry: listener stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				// The running flag distinguishes Stop from a dropped
				// subscription.
				if l.IsRunning() {
					log.Println("expiry: subscription terminated unexpectedly; call Stop before restarting")
				} else {
					log.Println("expiry: listener stopped")
				}
				return
			}
			l.dispatch(msg.Payload)
		}
	}
}

// dispatch invokes the callback with one expired key, containing any
// panic so a failing callback cannot take down the subscription.
func (l *Listener) dispatch(key string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("expiry: callback panicked for key %q: %v", key, r)
		}
	}()

	l.callback(key)
}
