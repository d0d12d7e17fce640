// Package config layers the engine's configuration: built-in defaults,
// an optional YAML file, .env files, CODEGRAPH_-prefixed environment
// variables, and finally the unprefixed environment overrides of
// applyEnvOverrides, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/codegraph/internal/ppr"
	"github.com/rohankatakam/codegraph/internal/tier"
	"github.com/rohankatakam/codegraph/internal/weight"
)

// Config holds every tunable the core recognizes (§6 of the engine's
// external-interfaces contract).
type Config struct {
	RepoPath string `yaml:"repo_path"`

	Tier     TierConfig     `yaml:"tier"`
	PPR      PPRConfig      `yaml:"ppr"`
	Weight   WeightConfig   `yaml:"weight"`
	Paths    PathsConfig    `yaml:"paths"`
	Watch    WatchConfig    `yaml:"watch"`
	Registry RegistryConfig `yaml:"registry"`
	Cache    CacheConfig    `yaml:"cache"`
}

// TierConfig overrides the C12 tier manager's capacities and thresholds.
type TierConfig struct {
	HotCapacity      int   `yaml:"hot_capacity"`
	WarmCapacity     int   `yaml:"warm_capacity"`
	PromoteThreshold int   `yaml:"promote_threshold"`
	DemoteIdleMs     int64 `yaml:"demote_idle_ms"`
}

// PPRConfig holds the C6 push algorithm's teleport and convergence
// parameters as loaded from file and environment. The query path
// (query.FindDependents) runs PPR with ppr.DefaultParams and does not read
// these values.
type PPRConfig struct {
	Alpha   float64 `yaml:"alpha"`
	Epsilon float64 `yaml:"epsilon"`
}

// WeightConfig holds the C5 edge-weight model's recency half-life as loaded
// from file and environment. No component reads this value; the weight
// functions take their half-life as an argument.
type WeightConfig struct {
	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days"`
}

// PathsConfig overrides the on-disk/socket locations described in §6, used
// mainly by test harnesses that need isolated paths.
type PathsConfig struct {
	GraphFile  string `yaml:"graph_file"`
	WALFile    string `yaml:"wal_file"`
	SocketFile string `yaml:"socket_file"`
}

// WatchConfig overrides the C14 watcher's debounce window.
type WatchConfig struct {
	DebounceMs int64 `yaml:"debounce_ms"`
}

// RegistryConfig selects the C11 registry's durable backend. Backend "bolt"
// (the default) keeps a single embedded file local to the daemon; backend
// "postgres" points multiple daemons at one shared registry, in which case
// DSN must be a postgres connection string and registry changes are
// propagated between daemons over LISTEN/NOTIFY.
type RegistryConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

// CacheConfig optionally wires a shared cache behind the C10 local
// memoization layer. RedisAddr empty means local-only memoization.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
}

// Default returns the engine's built-in defaults.
func Default() *Config {
	return &Config{
		RepoPath: ".",
		Tier: TierConfig{
			HotCapacity:      tier.DefaultHotCapacity,
			WarmCapacity:     tier.DefaultWarmCapacity,
			PromoteThreshold: tier.DefaultPromoteThreshold,
			DemoteIdleMs:     tier.DefaultDemoteIdleMs,
		},
		PPR: PPRConfig{
			Alpha:   ppr.DefaultAlpha,
			Epsilon: ppr.DefaultEpsilon,
		},
		Weight: WeightConfig{
			RecencyHalfLifeDays: weight.DefaultHalfLifeDays,
		},
		Paths: PathsConfig{
			GraphFile:  filepath.Join(".codegraph", "repos"),
			WALFile:    "wal.log",
			SocketFile: filepath.Join(".codegraph", "daemon.sock"),
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
		Registry: RegistryConfig{
			Backend: "bolt",
		},
	}
}

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, the YAML file at path (optional), .env files,
// CODEGRAPH_-prefixed environment variables, and the unprefixed variables
// read by applyEnvOverrides.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("repo_path", cfg.RepoPath)
	v.SetDefault("tier", cfg.Tier)
	v.SetDefault("ppr", cfg.PPR)
	v.SetDefault("weight", cfg.Weight)
	v.SetDefault("paths", cfg.Paths)
	v.SetDefault("watch", cfg.Watch)
	v.SetDefault("registry", cfg.Registry)
	v.SetDefault("cache", cfg.Cache)

	v.SetEnvPrefix("CODEGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("codegraph")
		v.AddConfigPath(".codegraph")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence; a missing file at
// any stage is not an error.
func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides gives the unprefixed environment variables (REPO_PATH,
// HOT_CAPACITY, PPR_ALPHA, GRAPH_FILE, CACHE_REDIS_ADDR, ...) the final say
// over both the YAML file and viper's own CODEGRAPH_ automatic-env binding, since
// nested struct fields (tier.hot_capacity) don't bind automatically through
// AutomaticEnv.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPO_PATH"); v != "" {
		cfg.RepoPath = v
	}

	if v := os.Getenv("HOT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tier.HotCapacity = n
		}
	}
	if v := os.Getenv("WARM_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tier.WarmCapacity = n
		}
	}
	if v := os.Getenv("PROMOTE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tier.PromoteThreshold = n
		}
	}
	if v := os.Getenv("DEMOTE_IDLE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Tier.DemoteIdleMs = n
		}
	}

	if v := os.Getenv("PPR_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PPR.Alpha = f
		}
	}
	if v := os.Getenv("PPR_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.PPR.Epsilon = f
		}
	}

	if v := os.Getenv("RECENCY_HALF_LIFE_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weight.RecencyHalfLifeDays = f
		}
	}

	if v := os.Getenv("GRAPH_FILE"); v != "" {
		cfg.Paths.GraphFile = expandPath(v)
	}
	if v := os.Getenv("WAL_FILE"); v != "" {
		cfg.Paths.WALFile = expandPath(v)
	}
	if v := os.Getenv("SOCKET_FILE"); v != "" {
		cfg.Paths.SocketFile = expandPath(v)
	}

	if v := os.Getenv("WATCH_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Watch.DebounceMs = n
		}
	}

	if v := os.Getenv("REGISTRY_BACKEND"); v != "" {
		cfg.Registry.Backend = v
	}
	if v := os.Getenv("REGISTRY_DSN"); v != "" {
		cfg.Registry.DSN = v
	}
	if v := os.Getenv("CACHE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}

// Save writes cfg to path as YAML, creating parent directories as needed.
// It marshals directly with yaml.v3 rather than round-tripping through a
// second viper instance, so the file on disk matches this struct's own
// yaml tags exactly.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// PollInterval is the default cadence a host daemon should drive its
// watch/eviction ticker at when nothing more specific is configured.
const PollInterval = time.Second
