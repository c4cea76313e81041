// Package config builds playstate options from PLAYSTATE_* environment
// variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/playstate"
	"github.com/unkn0wn-root/playstate/backend/sqlite"
	"github.com/unkn0wn-root/playstate/codec"
	"github.com/unkn0wn-root/playstate/genstore"
	asynchook "github.com/unkn0wn-root/playstate/hooks/async"
	promhooks "github.com/unkn0wn-root/playstate/hooks/prom"
	pr "github.com/unkn0wn-root/playstate/provider"
	pbigcache "github.com/unkn0wn-root/playstate/provider/bigcache"
	predis "github.com/unkn0wn-root/playstate/provider/redis"
	pristretto "github.com/unkn0wn-root/playstate/provider/ristretto"
	"github.com/unkn0wn-root/playstate/sloghooks"
)

// Config is the process-level configuration of a playstate store.
type Config struct {
	Path         string        `env:"PLAYSTATE_DB_PATH"          envDefault:"userdata_v2.db"`
	UserIDFormat string        `env:"PLAYSTATE_USER_ID_FORMAT"   envDefault:"blob"`
	JournalMode  string        `env:"PLAYSTATE_JOURNAL_MODE"`
	BusyTimeout  time.Duration `env:"PLAYSTATE_BUSY_TIMEOUT"     envDefault:"5s"`
	Codec        string        `env:"PLAYSTATE_CODEC"            envDefault:"json"`
	MaxPayload   int           `env:"PLAYSTATE_MAX_PAYLOAD"`

	Cache     string        `env:"PLAYSTATE_CACHE"            envDefault:"local"`
	Namespace string        `env:"PLAYSTATE_CACHE_NAMESPACE"  envDefault:"userdata"`
	EntryTTL  time.Duration `env:"PLAYSTATE_CACHE_TTL"`
	GenStore  string        `env:"PLAYSTATE_GENSTORE"         envDefault:"local"`
	GenTTL    time.Duration `env:"PLAYSTATE_GENSTORE_TTL"`

	RedisAddr string `env:"PLAYSTATE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"PLAYSTATE_REDIS_DB"`

	RistrettoMaxCost     int64 `env:"PLAYSTATE_RISTRETTO_MAX_COST"     envDefault:"67108864"`
	RistrettoNumCounters int64 `env:"PLAYSTATE_RISTRETTO_NUM_COUNTERS" envDefault:"1000000"`

	BigCacheLifeWindow time.Duration `env:"PLAYSTATE_BIGCACHE_LIFE_WINDOW" envDefault:"24h"`
	BigCacheMaxSizeMB  int           `env:"PLAYSTATE_BIGCACHE_MAX_MB"`

	Hooks            string `env:"PLAYSTATE_HOOKS"`
	HooksQueue       int    `env:"PLAYSTATE_HOOKS_QUEUE"        envDefault:"1024"`
	HooksSampleEvery uint64 `env:"PLAYSTATE_HOOKS_SAMPLE_EVERY" envDefault:"1"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("config: PLAYSTATE_DB_PATH is required")
	}
	if _, err := c.userIDFormat(); err != nil {
		return err
	}
	switch c.Codec {
	case "json", "cbor", "msgpack":
	default:
		return fmt.Errorf("config: unknown codec %q", c.Codec)
	}
	switch c.Cache {
	case "local", "ristretto", "bigcache", "redis":
	default:
		return fmt.Errorf("config: unknown cache %q", c.Cache)
	}
	switch c.GenStore {
	case "local", "redis":
	default:
		return fmt.Errorf("config: unknown genstore %q", c.GenStore)
	}
	if c.Cache == "local" && c.GenStore != "local" {
		return errors.New("config: PLAYSTATE_GENSTORE needs a shared cache")
	}
	// redis entries outlive this process; in-process generations do not
	if c.Cache == "redis" && c.GenStore != "redis" {
		return errors.New("config: PLAYSTATE_CACHE=redis needs PLAYSTATE_GENSTORE=redis")
	}
	switch c.Hooks {
	case "", "none", "slog", "prom":
	default:
		return fmt.Errorf("config: unknown hooks %q", c.Hooks)
	}
	return nil
}

func (c Config) userIDFormat() (sqlite.UserIDFormat, error) {
	switch strings.ToLower(c.UserIDFormat) {
	case "", "blob":
		return sqlite.UserIDBlob, nil
	case "text":
		return sqlite.UserIDText, nil
	}
	return 0, fmt.Errorf("config: unknown user id format %q", c.UserIDFormat)
}

// Codec returns the record codec named by c, size-limited when MaxPayload is set.
func Codec[V any](c Config) (codec.Codec[V], error) {
	var inner codec.Codec[V]
	switch c.Codec {
	case "", "json":
		inner = codec.JSON[V]{}
	case "msgpack":
		inner = codec.Msgpack[V]{}
	case "cbor":
		cb, err := codec.NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		inner = cb
	default:
		return nil, fmt.Errorf("config: unknown codec %q", c.Codec)
	}
	if c.MaxPayload > 0 {
		return codec.Limit[V]{Inner: inner, Max: c.MaxPayload}, nil
	}
	return inner, nil
}

// Options turns c into playstate options for records of type V. The caller
// sets Logger, Hooks and NewRecord on the result.
func Options[V any](ctx context.Context, c Config) (playstate.Options[V], error) {
	if err := c.Validate(); err != nil {
		return playstate.Options[V]{}, err
	}
	cdc, err := Codec[V](c)
	if err != nil {
		return playstate.Options[V]{}, err
	}
	format, _ := c.userIDFormat()

	opts := playstate.Options[V]{
		Codec: cdc,
		Path:  c.Path,
		Open: sqlite.Opener(c.Path, sqlite.Options{
			UserIDFormat: format,
			BusyTimeout:  c.BusyTimeout,
			JournalMode:  c.JournalMode,
		}),
		Namespace: c.Namespace,
		EntryTTL:  c.EntryTTL,
	}

	var rdb goredis.UniversalClient
	if c.Cache == "redis" || c.GenStore == "redis" {
		rdb = newRedisClient(c.RedisAddr, c.RedisDB)
	}
	// release whatever was built before a failure
	fail := func(err error) (playstate.Options[V], error) {
		if opts.Provider != nil {
			_ = opts.Provider.Close(ctx)
		}
		if rdb != nil && (c.Cache != "redis" || opts.Provider == nil) {
			_ = rdb.Close()
		}
		return playstate.Options[V]{}, err
	}

	if opts.Provider, err = c.provider(ctx, rdb); err != nil {
		return fail(err)
	}
	if c.GenStore == "redis" {
		// the provider (if redis) owns the client
		gs, err := genstore.NewRedisGenStore(genstore.RedisConfig{
			Client:      rdb,
			Namespace:   c.Namespace,
			TTL:         c.GenTTL,
			CloseClient: c.Cache != "redis",
		})
		if err != nil {
			return fail(err)
		}
		opts.GenStore = gs
	}
	return opts, nil
}

var newRedisClient = func(addr string, db int) goredis.UniversalClient {
	return goredis.NewClient(&goredis.Options{Addr: addr, DB: db})
}

// provider returns nil for the local cache.
func (c Config) provider(ctx context.Context, rdb goredis.UniversalClient) (pr.Provider, error) {
	switch c.Cache {
	case "ristretto":
		p, err := pristretto.New(pristretto.Config{
			NumCounters: c.RistrettoNumCounters,
			MaxCost:     c.RistrettoMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "bigcache":
		p, err := pbigcache.New(ctx, pbigcache.Config{
			LifeWindow:         c.BigCacheLifeWindow,
			HardMaxCacheSizeMB: c.BigCacheMaxSizeMB,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "redis":
		p, err := predis.New(predis.Config{Client: rdb, CloseClient: true})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, nil
}

// Hooks builds the hook sink named by PLAYSTATE_HOOKS: "slog" logs through l,
// "prom" registers counters with reg. With PLAYSTATE_HOOKS_QUEUE > 0 events are
// delivered off the store's hot paths. Call the returned func after the store
// is shut down.
func Hooks(c Config, reg prometheus.Registerer, l *slog.Logger) (playstate.Hooks, func(), error) {
	var inner playstate.Hooks
	switch c.Hooks {
	case "", "none":
		return nil, func() {}, nil
	case "slog":
		inner = sloghooks.New(l, sloghooks.Options{
			SelfHealEvery:    c.HooksSampleEvery,
			ReadThroughEvery: c.HooksSampleEvery,
		})
	case "prom":
		h, err := promhooks.New(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("config: register hook metrics: %w", err)
		}
		inner = h
	default:
		return nil, nil, fmt.Errorf("config: unknown hooks %q", c.Hooks)
	}
	if c.HooksQueue <= 0 {
		return inner, func() {}, nil
	}
	async := asynchook.New(inner, 1, c.HooksQueue)
	return async, async.Close, nil
}
