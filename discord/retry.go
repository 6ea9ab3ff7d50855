package discord

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	maxRetryAttempts = 5
	baseRetryDelay   = 200 * time.Millisecond
	maxRetryDelay    = 3 * time.Second
)

// Retry retries transient Discord API failures with exponential backoff and
// jitter. Non-retryable errors (4xx other than 429) are returned immediately.
func Retry(logger *slog.Logger, operation string, fn func() error) error {
	delay := baseRetryDelay
	var lastErr error

	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetryAttempts || !isRetryable(err) {
			return err
		}

		wait := delay + randomJitter(delay/2)
		if logger != nil {
			logger.Warn("Retrying transient Discord API failure",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", wait),
				slog.Any("error", err),
			)
		}

		time.Sleep(wait)
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return lastErr
}

func isRetryable(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil {
			status := restErr.Response.StatusCode
			if status == 429 || status >= 500 {
				return true
			}
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(max.Nanoseconds()+1))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
