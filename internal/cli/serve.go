package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/citygen/internal/api"
	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/store"
)

// defaultRedisPrefix namespaces the server's Redis keys so "cache clear
// --redis" can find them under per-client scopes.
const defaultRedisPrefix = appName + ":"

// serveOpts holds the serve command's flags.
type serveOpts struct {
	addr     string
	timeout  time.Duration
	redis    cache.RedisConfig
	mongo    store.MongoConfig
	noCache  bool
	noRecord bool
}

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Without backends the server caches runs on disk and records them in the local
history, like the CLI. Pass --redis to share the run cache between instances
and --mongo-uri to keep the history in MongoDB.

Examples:
  citygen serve
  citygen serve --addr :9000 --redis localhost:6379 --mongo-uri mongodb://localhost:27017`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", api.DefaultAddr, "listen address")
	f.DurationVar(&opts.timeout, "timeout", api.DefaultTimeout, "per-request timeout")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the run cache")
	f.BoolVar(&opts.noRecord, "no-history", false, "do not record runs")
	addRedisFlags(f, &opts.redis)
	f.StringVar(&opts.mongo.URI, "mongo-uri", "", "MongoDB URI for the run history")
	f.StringVar(&opts.mongo.Database, "mongo-db", appName, "MongoDB database")

	return cmd
}

// addRedisFlags registers the Redis connection flags.
func addRedisFlags(f *pflag.FlagSet, cfg *cache.RedisConfig) {
	f.StringVar(&cfg.Addr, "redis", "", "Redis address (host:port)")
	f.StringVar(&cfg.Password, "redis-password", "", "Redis password")
	f.IntVar(&cfg.DB, "redis-db", 0, "Redis database number")
	f.StringVar(&cfg.Prefix, "redis-prefix", defaultRedisPrefix, "Redis key prefix")
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	runCache, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	defer runCache.Close()

	var st store.Store
	if !opts.noRecord {
		st, err = c.serveStore(ctx, opts.mongo)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	srv := api.New(api.Config{
		Addr:    opts.addr,
		Timeout: opts.timeout,
		Logger:  c.Logger,
	}, runCache, st)

	printSuccess("Listening on %s", StyleHighlight.Render(opts.addr))
	printDetail("Try: %s", StyleLink.Render(healthURL(opts.addr)))
	return srv.ListenAndServe(ctx)
}

func (c *CLI) serveCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	switch {
	case opts.noCache:
		return cache.NewNullCache(), nil
	case opts.redis.Addr != "":
		rc, err := cache.NewRedisCache(ctx, opts.redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Logger.Info("run cache", "backend", "redis", "addr", opts.redis.Addr)
		return rc, nil
	}
	fc, err := newCache(false)
	if err != nil {
		return nil, err
	}
	c.Logger.Info("run cache", "backend", "file")
	return fc, nil
}

func (c *CLI) serveStore(ctx context.Context, cfg store.MongoConfig) (store.Store, error) {
	if cfg.URI == "" {
		c.Logger.Info("run history", "backend", "file")
		return newHistory()
	}
	st, err := store.NewMongoStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	c.Logger.Info("run history", "backend", "mongo", "database", cfg.Database)
	return st, nil
}

// healthURL returns the health check URL for a listen address.
func healthURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/healthz"
}
