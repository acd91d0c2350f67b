package logger

import (
	"testing"

	"github.com/clarotec/orders-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	app := &config.AppConfig{Name: "orders", Environment: "development"}

	log, err := New(&config.LoggingConfig{Level: "debug", Format: "console"}, app)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = New(&config.LoggingConfig{Level: "nonsense", Format: "json"}, app)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestScopedLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithOrder(WithRequest(base, "POST", "/api/pedidos/", "req-1"), 42, "abc").Info("accepted")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, uint64(42), fields["order_id"])
	assert.Equal(t, "abc", fields["tracking_id"])
}
