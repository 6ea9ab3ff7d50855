package discord

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(status int) error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: status}}
}

func retryLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Retry(retryLogger(), "list commands", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryNonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	wantErr := restError(http.StatusForbidden)
	err := Retry(retryLogger(), "create command", func() error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestRetryPlainErrorNotRetried(t *testing.T) {
	calls := 0
	err := Retry(retryLogger(), "create command", func() error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(retryLogger(), "edit command", func() error {
		calls++
		if calls < 3 {
			return restError(http.StatusServiceUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryRateLimitIsRetryable(t *testing.T) {
	calls := 0
	err := Retry(retryLogger(), "delete command", func() error {
		calls++
		if calls == 1 {
			return restError(http.StatusTooManyRequests)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	wantErr := restError(http.StatusInternalServerError)
	err := Retry(retryLogger(), "batch edit permissions", func() error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, maxRetryAttempts, calls)
}
