package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/store"
)

func TestHealthURL(t *testing.T) {
	if got := healthURL(":8080"); got != "http://localhost:8080/healthz" {
		t.Errorf("healthURL(:8080) = %q", got)
	}
	if got := healthURL("0.0.0.0:9000"); got != "http://0.0.0.0:9000/healthz" {
		t.Errorf("healthURL(0.0.0.0:9000) = %q", got)
	}
}

func TestServeBackends(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	c := New(&bytes.Buffer{}, LogInfo)
	ctx := context.Background()

	nc, err := c.serveCache(ctx, serveOpts{noCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := nc.(*cache.NullCache); !ok {
		t.Errorf("--no-cache cache = %T, want *cache.NullCache", nc)
	}

	fc, err := c.serveCache(ctx, serveOpts{})
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()
	if _, ok := fc.(*cache.FileCache); !ok {
		t.Errorf("default cache = %T, want *cache.FileCache", fc)
	}

	st, err := c.serveStore(ctx, store.MongoConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok := st.(*store.FileStore); !ok {
		t.Errorf("default store = %T, want *store.FileStore", st)
	}
}

func TestServeFlags(t *testing.T) {
	cmd := New(&bytes.Buffer{}, LogInfo).serveCommand()
	for _, name := range []string{"addr", "timeout", "redis", "redis-prefix", "mongo-uri", "mongo-db"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("serve is missing --%s", name)
		}
	}
	if got := cmd.Flags().Lookup("redis-prefix").DefValue; got != defaultRedisPrefix {
		t.Errorf("redis prefix default = %q", got)
	}
}
