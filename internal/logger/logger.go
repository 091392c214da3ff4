package logger

import "context"

// Logger records application events durably, independent of the
// process log.
type Logger interface {
	// Log writes one message
	Log(ctx context.Context, message string) error

	// LogExpiration records that the store expired a key
	LogExpiration(ctx context.Context, key string) error

	// Close closes the logger and any resources
	Close() error
}
