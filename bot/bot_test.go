package bot

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kenny2github/discord-ext-slash/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(config.Default(), testLogger())
	require.Error(t, err)
}

func TestNewAssemblesBot(t *testing.T) {
	cfg := config.Default()
	cfg.Discord.Token = "token"

	b, err := New(cfg, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, b.Router)
	assert.NotNil(t, b.Bus())
	require.NotNil(t, b.Discord())
	assert.Same(t, b.Discord(), b.Session.GetUnderlyingSession())
}
