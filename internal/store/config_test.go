package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withEnv(t *testing.T, k, v string) {
	t.Helper()
	old, had := os.LookupEnv(k)
	if err := os.Setenv(k, v); err != nil {
		t.Fatalf("setenv %s: %v", k, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(k, old)
		} else {
			_ = os.Unsetenv(k)
		}
	})
}

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	withEnv(t, "LEADBOARD_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "" || cfg.Cache.BackendName() != CacheBackendMemory {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestSaveConfig_RoundTripAndPermissions(t *testing.T) {
	dir := t.TempDir()
	withEnv(t, "LEADBOARD_CONFIG_DIR", dir)

	cfg := &GlobalConfig{}
	for _, kv := range [][2]string{
		{"apiBaseUrl", "http://localhost:8085/"},
		{"token", "abc"},
		{"pageSize", "25"},
		{"cache.backend", "Redis"},
		{"cache.redisUrl", "redis://localhost:6379/0"},
		{"cache.ttl", "90s"},
	} {
		if err := SetConfigValue(cfg, kv[0], kv[1]); err != nil {
			t.Fatalf("set %s: %v", kv[0], err)
		}
	}
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.APIBaseURL != "http://localhost:8085" || got.Token != "abc" || got.PageSize != 25 {
		t.Fatalf("unexpected config: %+v", got)
	}
	if got.Cache.BackendName() != CacheBackendRedis || got.Cache.RedisURL == "" {
		t.Fatalf("unexpected cache config: %+v", got.Cache)
	}
	if d, err := got.Cache.TTLDuration(); err != nil || d != 90*time.Second {
		t.Fatalf("unexpected ttl: %v %v", d, err)
	}
}

func TestSetConfigValue_Rejects(t *testing.T) {
	cases := []struct{ key, value string }{
		{"pageSize", "0"},
		{"pageSize", "many"},
		{"cache.backend", "memcached"},
		{"cache.ttl", "soon"},
		{"colour", "blue"},
	}
	for _, tc := range cases {
		cfg := &GlobalConfig{Cache: &CacheConfig{TTL: "1m"}}
		if err := SetConfigValue(cfg, tc.key, tc.value); err == nil {
			t.Fatalf("expected %s=%q to be rejected", tc.key, tc.value)
		}
		if cfg.Cache.TTL != "1m" {
			t.Fatalf("rejected value must not change config: %+v", cfg.Cache)
		}
	}
}
