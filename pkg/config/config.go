// Package config loads gantry's tool configuration: where runs and caches
// live, which cache and index backends to use, and capability overrides.
// The pipeline definition itself is separate input (pkg/pipeline).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CacheConfig selects and configures the cache blob backend.
type CacheConfig struct {
	Backend  string `mapstructure:"backend"` // "fs", "s3" or "none"
	Dir      string `mapstructure:"dir"`     // fs backend root
	Endpoint string `mapstructure:"endpoint"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// KVConfig configures the Valkey-backed cache index. Empty Addr means the
// in-memory index (per-process, effectively index-less across runs).
type KVConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// CapabilityConfig force-enables or force-disables capability tags,
// overriding host detection.
type CapabilityConfig struct {
	Assume []string `mapstructure:"assume"`
	Deny   []string `mapstructure:"deny"`
}

type Config struct {
	WorkingDir   string            `mapstructure:"working_dir"`
	Env          map[string]string `mapstructure:"env"`
	Cache        CacheConfig       `mapstructure:"cache"`
	KV           KVConfig          `mapstructure:"kv"`
	Capabilities CapabilityConfig  `mapstructure:"capabilities"`

	v *viper.Viper // instance-specific viper
}

const (
	EnvPrefix  = "GANTRY"
	ConfigRoot = ".gantry"
)

// Load creates a new Config instance with its own viper
// This is the only way to load config (no global state)
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		// Project config (TRACKED) - gantry.yaml in current directory
		for _, name := range []string{"gantry.yaml", "gantry.yml", ".gantry.yaml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}

		// Merge local overrides (UNTRACKED) - .gantry/config.yaml
		localConfigPath := filepath.Join(ConfigRoot, "config.yaml")
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merging local config: %w", err)
			}
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	switch cfg.Cache.Backend {
	case "fs", "s3", "none":
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want fs, s3 or none)", cfg.Cache.Backend)
	}

	cfg.v = v
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.backend", "fs")
	v.SetDefault("cache.dir", filepath.Join(ConfigRoot, "cache"))
	v.SetDefault("cache.region", "us-east-1")
}

// Viper returns the underlying viper instance
// Useful for advanced config operations
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// ConfigFileUsed returns the config file that was used (if any)
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}
