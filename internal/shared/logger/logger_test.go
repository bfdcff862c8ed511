package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestLogger_InfoFields(t *testing.T) {
	var buf bytes.Buffer
	log := New("api", &buf, slog.LevelInfo)
	ctx := log.WithRequestID(context.Background(), "rid-1")

	log.Info(ctx, "order_created", "Order created", map[string]any{"order_id": 5})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "order_created", entry["action"])
	assert.Equal(t, "Order created", entry["message"])
	assert.Equal(t, "rid-1", entry["request_id"])
	assert.NotEmpty(t, entry["timestamp"])
	assert.NotEmpty(t, entry["hostname"])
	assert.Equal(t, map[string]any{"order_id": float64(5)}, entry["details"])
}

func TestLogger_ErrorCarriesStack(t *testing.T) {
	var buf bytes.Buffer
	log := New("worker", &buf, slog.LevelInfo)

	log.Error(context.Background(), "db_transaction_failed", "boom", errors.New("conn reset"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	errObj, ok := lines[0]["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "conn reset", errObj["msg"])
	assert.NotEmpty(t, errObj["stack"])
}

func TestLogger_DebugFilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("worker", &buf, slog.LevelInfo)
	log.Debug(context.Background(), "noise", "hidden", nil)
	assert.Zero(t, buf.Len())

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
