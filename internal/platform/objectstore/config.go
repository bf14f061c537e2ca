package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/smsc-go/internal/platform/env"
)

// Config points at the S3-compatible store used for s3:// archive
// destinations. An empty endpoint disables it.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("SMSC_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  strings.TrimSpace(env.String("SMSC_MINIO_ENDPOINT", "")),
		AccessKey: env.String("SMSC_MINIO_ACCESS_KEY", ""),
		SecretKey: env.String("SMSC_MINIO_SECRET_KEY", ""),
		Region:    env.String("SMSC_MINIO_REGION", "us-east-1"),
		UseSSL:    useSSL,
	}
	if !cfg.Enabled() {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
