package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"people/config"
)

// Integration tests against a real Redis started by testcontainers-go.
//
//	GO_TEST_INTEGRATION=1 go test ./cache -run Integration -v -count=1
func startRedis(t *testing.T) config.CacheConfig {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "docker.io/redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return config.CacheConfig{
		Backend:        config.CacheRedis,
		Host:           host,
		Port:           p,
		StartupTimeout: 10 * time.Second,
		MaxCost:        1 << 20,
	}
}

func TestIntegration_Redis(t *testing.T) {
	cfg := startRedis(t)
	ctx := context.Background()

	c, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, found, err := c.Get(ctx, "id::missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, NicknameKey("josé"), []byte("1")))

	value, found, err := c.Get(ctx, NicknameKey("josé"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", string(value))
}

func TestIntegration_TieredSharesRemote(t *testing.T) {
	cfg := startRedis(t)
	cfg.Backend = config.CacheTiered
	ctx := context.Background()

	first, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	require.NoError(t, first.Set(ctx, "id::shared", []byte("payload")))

	value, found, err := second.Get(ctx, "id::shared")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "payload", string(value))
}

func TestNewRedis_Unreachable(t *testing.T) {
	cfg := config.CacheConfig{Host: "127.0.0.1", Port: 1, StartupTimeout: 200 * time.Millisecond}

	_, err := NewRedis(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
