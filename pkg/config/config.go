// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the immutable startup configuration. Values are
// resolved in cmd from flags, environment, and an optional config file.
package config

import (
	"fmt"

	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/storage"
)

// ServerConfig is the S3 API listener configuration.
type ServerConfig struct {
	Host      string
	Port      int
	DebugPort int
}

// StorageConfig selects and sizes the storage backend.
type StorageConfig struct {
	Backend       storage.StorageType
	DataDir       string
	MaxBuckets    int
	MaxObjectSize int64
}

// CredentialConfig is one seeded access key pair.
type CredentialConfig struct {
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Admin     bool   `mapstructure:"admin"`
}

// AuthConfig controls SigV4 verification.
type AuthConfig struct {
	Enabled     bool
	Region      string
	UsersDir    string
	Credentials []CredentialConfig
}

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Auth     AuthConfig
	LogLevel string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      9000,
			DebugPort: 9090,
		},
		Storage: StorageConfig{
			Backend:       storage.TypeFilesystem,
			DataDir:       "./data",
			MaxBuckets:    s3consts.MaxBuckets,
			MaxObjectSize: s3consts.MaxObjectSize,
		},
		Auth: AuthConfig{
			Enabled: true,
			Region:  "us-east-1",
		},
		LogLevel: "info",
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	switch c.Storage.Backend {
	case storage.TypeFilesystem, storage.TypeMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == storage.TypeFilesystem && c.Storage.DataDir == "" {
		return fmt.Errorf("config: data_dir required for filesystem backend")
	}
	if c.Auth.Enabled && len(c.Auth.Credentials) == 0 && c.Auth.UsersDir == "" {
		return fmt.Errorf("config: auth enabled but no credentials configured")
	}
	for _, cred := range c.Auth.Credentials {
		if cred.AccessKey == "" || cred.SecretKey == "" {
			return fmt.Errorf("config: credential with empty access or secret key")
		}
	}
	return nil
}
