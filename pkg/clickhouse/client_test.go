package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDSN(t *testing.T, cfg ClientConfig) *url.URL {
	t.Helper()
	u, err := url.Parse(buildDSN(cfg))
	require.NoError(t, err)
	return u
}

func TestBuildDSN_Defaults(t *testing.T) {
	u := parseDSN(t, defaultConfig())

	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/default", u.Path)
	assert.Equal(t, "default", u.User.Username())
	assert.Equal(t, "5s", u.Query().Get("dial_timeout"))
	assert.Equal(t, "10s", u.Query().Get("read_timeout"))
	assert.False(t, u.Query().Has("async_insert"))
	assert.False(t, u.Query().Has("max_execution_time"))
}

func TestBuildDSN_Options(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []ClientOption{
		WithHost("ch.internal"),
		WithPort(8123),
		WithDatabase("pillarcast"),
		WithCredentials("writer", "p@ss/word"),
		WithHTTP(true),
		WithAsyncInsert(true, true),
		WithMaxExecutionTime(30 * time.Second),
	} {
		opt(&cfg)
	}
	u := parseDSN(t, cfg)

	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "ch.internal:8123", u.Host)
	assert.Equal(t, "/pillarcast", u.Path)
	pw, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "1", u.Query().Get("async_insert"))
	assert.Equal(t, "1", u.Query().Get("wait_for_async_insert"))
	assert.Equal(t, "30", u.Query().Get("max_execution_time"))
}

func TestBuildDSN_WaitIgnoredWithoutAsync(t *testing.T) {
	cfg := defaultConfig()
	WithAsyncInsert(false, true)(&cfg)
	u := parseDSN(t, cfg)
	assert.False(t, u.Query().Has("wait_for_async_insert"))
}

func TestBuildDSN_SubSecondExecTimeRoundsUp(t *testing.T) {
	cfg := defaultConfig()
	WithMaxExecutionTime(200 * time.Millisecond)(&cfg)
	assert.Equal(t, "1", parseDSN(t, cfg).Query().Get("max_execution_time"))
}

func TestWithPool_ZeroLifetimeKeepsDefault(t *testing.T) {
	cfg := defaultConfig()
	WithPool(20, 2, 0)(&cfg)
	assert.Equal(t, 20, cfg.MaxOpenConns)
	assert.Equal(t, 2, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.ConnMaxLifetime)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(context.Background(), WithHost(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")

	_, err = NewClient(context.Background(), WithPort(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}
