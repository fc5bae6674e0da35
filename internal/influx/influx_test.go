package influx

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridclash/arena/internal/config"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func downServer(t *testing.T) config.InfluxConfig {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: u.Scheme,
		Host:     u.Hostname(),
		Port:     u.Port(),
		Token:    "token",
		Org:      "arena-metrics",
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "influx.gz"))
	err := m.Connect(context.Background(), config.InfluxConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "nested", "influx.gz")
	m := NewManager(zerolog.Nop(), backup)

	require.NoError(t, m.Connect(context.Background(), downServer(t)))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	p := influxdb2_write.NewPointWithMeasurement("arena_status").
		AddTag("matchId", "m1").
		AddField("players", 2).
		SetTime(time.Unix(100, 0))
	require.NoError(t, m.WritePoint(context.Background(), "arena_performance", p))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "arena_status,matchId=m1 players=2i")
}

func TestWritePoint_NoBackup(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	p := influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1)
	assert.Error(t, m.WritePoint(context.Background(), "arena_performance", p))
}

func TestWritePoint_UnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	m.IsValid = true
	p := influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1)
	err := m.WritePoint(context.Background(), "nope", p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestClose_Idle(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.NoError(t, m.Close())
}
