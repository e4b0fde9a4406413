package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Secrets are credentials that never belong in gantry.yaml. They come from
// the process environment (GANTRY_*) or a local .env file.
type Secrets struct {
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	KVPassword  string `envconfig:"KV_PASSWORD"`
}

// LoadSecrets reads credentials from the environment, merging in a .env file
// when one exists in the working directory.
func LoadSecrets() (*Secrets, error) {
	// Missing .env is the common case on CI hosts; ignore it
	_ = godotenv.Load()

	var s Secrets
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}
	return &s, nil
}

// ValidateFor checks that the secrets required by the configured cache
// backend are present.
func (s *Secrets) ValidateFor(cache CacheConfig) error {
	if cache.Backend != "s3" {
		return nil
	}

	var missing []string
	if s.S3AccessKey == "" {
		missing = append(missing, EnvPrefix+"_S3_ACCESS_KEY")
	}
	if s.S3SecretKey == "" {
		missing = append(missing, EnvPrefix+"_S3_SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("s3 cache backend needs %s", strings.Join(missing, " and "))
	}
	return nil
}
