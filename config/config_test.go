package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/playstate/codec"
	asynchook "github.com/unkn0wn-root/playstate/hooks/async"
	promhooks "github.com/unkn0wn-root/playstate/hooks/prom"
	predis "github.com/unkn0wn-root/playstate/provider/redis"
	pristretto "github.com/unkn0wn-root/playstate/provider/ristretto"
)

type rec struct {
	Played bool `json:"Played"`
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "userdata_v2.db", cfg.Path)
	require.Equal(t, "json", cfg.Codec)
	require.Equal(t, "local", cfg.Cache)
	require.Equal(t, 5*time.Second, cfg.BusyTimeout)

	opts, err := Options[rec](context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, opts.Provider)
	require.Nil(t, opts.GenStore)
	require.NotNil(t, opts.Open)
	require.IsType(t, codec.JSON[rec]{}, opts.Codec)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLAYSTATE_DB_PATH", "/var/lib/media/userdata_v2.db")
	t.Setenv("PLAYSTATE_CODEC", "cbor")
	t.Setenv("PLAYSTATE_MAX_PAYLOAD", "4096")
	t.Setenv("PLAYSTATE_CACHE", "ristretto")
	t.Setenv("PLAYSTATE_CACHE_TTL", "10m")
	t.Setenv("PLAYSTATE_USER_ID_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/var/lib/media/userdata_v2.db", cfg.Path)
	require.Equal(t, 10*time.Minute, cfg.EntryTTL)

	opts, err := Options[rec](context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &pristretto.Provider{}, opts.Provider)
	require.Equal(t, 10*time.Minute, opts.EntryTTL)
	require.NoError(t, opts.Provider.Close(context.Background()))

	lim, ok := opts.Codec.(codec.Limit[rec])
	require.True(t, ok)
	require.Equal(t, 4096, lim.Max)
	require.IsType(t, codec.CBOR[rec]{}, lim.Inner)
}

func TestValidateRejects(t *testing.T) {
	for name, env := range map[string][2]string{
		"codec":    {"PLAYSTATE_CODEC", "xml"},
		"cache":    {"PLAYSTATE_CACHE", "memcached"},
		"genstore": {"PLAYSTATE_GENSTORE", "redis"}, // with the local cache
		"format":   {"PLAYSTATE_USER_ID_FORMAT", "int"},
		"hooks":    {"PLAYSTATE_HOOKS", "statsd"},
		// redis entries outlive in-process generations
		"redis with local gens": {"PLAYSTATE_CACHE", "redis"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestBadDurationFailsParse(t *testing.T) {
	t.Setenv("PLAYSTATE_BUSY_TIMEOUT", "soon")
	_, err := Load()
	require.ErrorContains(t, err, "parse env")
}

// captureRedis records the clients Options builds. Nothing dials until a
// command runs.
func captureRedis(t *testing.T) *[]goredis.UniversalClient {
	t.Helper()
	var built []goredis.UniversalClient
	prev := newRedisClient
	newRedisClient = func(addr string, db int) goredis.UniversalClient {
		c := prev(addr, db)
		built = append(built, c)
		return c
	}
	t.Cleanup(func() { newRedisClient = prev })
	return &built
}

func TestRedisCacheAndGenStore(t *testing.T) {
	built := captureRedis(t)
	t.Setenv("PLAYSTATE_CACHE", "redis")
	t.Setenv("PLAYSTATE_GENSTORE", "redis")

	cfg, err := Load()
	require.NoError(t, err)
	opts, err := Options[rec](context.Background(), cfg)
	require.NoError(t, err)
	require.IsType(t, &predis.Redis{}, opts.Provider)
	require.NotNil(t, opts.GenStore)
	require.Len(t, *built, 1)

	require.NoError(t, opts.GenStore.Close(context.Background()))
	require.NoError(t, opts.Provider.Close(context.Background()))
}

func TestOptionsReleasesClientOnFailure(t *testing.T) {
	built := captureRedis(t)
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Cache = "bigcache"
	cfg.GenStore = "redis"
	cfg.BigCacheLifeWindow = 0 // provider construction fails

	_, err = Options[rec](context.Background(), cfg)
	require.Error(t, err)
	require.Len(t, *built, 1)
	err = (*built)[0].Ping(context.Background()).Err()
	require.ErrorIs(t, err, goredis.ErrClosed)
}

func TestHooksSelection(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	h, done, err := Hooks(cfg, nil, slog.Default())
	require.NoError(t, err)
	require.Nil(t, h)
	done()

	cfg.Hooks, cfg.HooksQueue = "prom", 0
	h, done, err = Hooks(cfg, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	require.IsType(t, &promhooks.Hooks{}, h)
	done()

	cfg.Hooks, cfg.HooksQueue = "slog", 16
	h, done, err = Hooks(cfg, nil, slog.Default())
	require.NoError(t, err)
	require.IsType(t, &asynchook.Hooks{}, h)
	h.CacheLookup(true)
	done()

	reg := prometheus.NewRegistry()
	cfg.Hooks = "prom"
	_, done, err = Hooks(cfg, reg, nil)
	require.NoError(t, err)
	done()
	_, _, err = Hooks(cfg, reg, nil)
	require.ErrorContains(t, err, "register hook metrics")
}
