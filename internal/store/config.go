package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

type GlobalConfig struct {
	// APIBaseURL is the CRM REST API root, e.g. "http://localhost:8085".
	APIBaseURL string `json:"apiBaseUrl,omitempty"`
	// Token is sent verbatim as a bearer token. Nothing refreshes it.
	Token string `json:"token,omitempty"`
	// PageSize is the number of leads fetched per board page.
	PageSize int `json:"pageSize,omitempty"`

	CurrentWorkspace string `json:"currentWorkspace,omitempty"`

	Cache *CacheConfig `json:"cache,omitempty"`
}

type CacheConfig struct {
	// Backend is "memory" (default), "sqlite" or "redis".
	Backend  string `json:"backend,omitempty"`
	RedisURL string `json:"redisUrl,omitempty"`
	// TTL is a Go duration string ("30s", "5m"). Empty means entries never expire.
	TTL string `json:"ttl,omitempty"`
}

func (c *CacheConfig) BackendName() string {
	if c == nil || strings.TrimSpace(c.Backend) == "" {
		return CacheBackendMemory
	}
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

func (c *CacheConfig) TTLDuration() (time.Duration, error) {
	if c == nil || strings.TrimSpace(c.TTL) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(c.TTL))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid cache ttl %q", c.TTL)
	}
	return d, nil
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.leadboard).
	if v := strings.TrimSpace(os.Getenv("LEADBOARD_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".leadboard"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// SaveConfig writes config.json atomically; it holds a token, so the file is 0600.
func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// ConfigKeys lists the keys accepted by SetConfigValue, in display order.
var ConfigKeys = []string{"apiBaseUrl", "token", "pageSize", "currentWorkspace", "cache.backend", "cache.redisUrl", "cache.ttl"}

// SetConfigValue sets one dotted key. An empty value clears it.
func SetConfigValue(cfg *GlobalConfig, key, value string) error {
	value = strings.TrimSpace(value)
	cache := func() *CacheConfig {
		if cfg.Cache == nil {
			cfg.Cache = &CacheConfig{}
		}
		return cfg.Cache
	}
	switch key {
	case "apiBaseUrl":
		cfg.APIBaseURL = strings.TrimRight(value, "/")
	case "token":
		cfg.Token = value
	case "pageSize":
		if value == "" {
			cfg.PageSize = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 200 {
			return fmt.Errorf("pageSize must be between 1 and 200")
		}
		cfg.PageSize = n
	case "currentWorkspace":
		cfg.CurrentWorkspace = value
	case "cache.backend":
		switch strings.ToLower(value) {
		case "", CacheBackendMemory, CacheBackendSQLite, CacheBackendRedis:
			cache().Backend = strings.ToLower(value)
		default:
			return fmt.Errorf("unknown cache backend %q (want memory, sqlite or redis)", value)
		}
	case "cache.redisUrl":
		cache().RedisURL = value
	case "cache.ttl":
		c := cache()
		prev := c.TTL
		c.TTL = value
		if _, err := c.TTLDuration(); err != nil {
			c.TTL = prev
			return err
		}
	default:
		return fmt.Errorf("unknown config key %q (want one of %s)", key, strings.Join(ConfigKeys, ", "))
	}
	return nil
}
