// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phumiphatauk/tinystore/pkg/storage"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Auth.Credentials = []CredentialConfig{{AccessKey: "AK", SecretKey: "SK"}}
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		cfg := Default()
		cfg.Auth.Credentials = []CredentialConfig{{AccessKey: "AK", SecretKey: "SK"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = storage.StorageType("tape") },
			wantErr: "backend",
		},
		{
			name: "filesystem requires data dir",
			mutate: func(c *Config) {
				c.Storage.Backend = storage.TypeFilesystem
				c.Storage.DataDir = ""
			},
			wantErr: "data_dir",
		},
		{
			name: "auth enabled without credentials",
			mutate: func(c *Config) {
				c.Auth.Credentials = nil
				c.Auth.UsersDir = ""
			},
			wantErr: "credentials",
		},
		{
			name: "empty secret key",
			mutate: func(c *Config) {
				c.Auth.Credentials = []CredentialConfig{{AccessKey: "AK"}}
			},
			wantErr: "secret",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("users dir satisfies the credential requirement", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Auth.Credentials = nil
		cfg.Auth.UsersDir = "/var/lib/tinystore/users"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("auth disabled needs no credentials", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Auth.Enabled = false
		cfg.Auth.Credentials = nil
		assert.NoError(t, cfg.Validate())
	})

	t.Run("memory backend needs no data dir", func(t *testing.T) {
		t.Parallel()
		cfg := valid()
		cfg.Storage.Backend = storage.TypeMemory
		cfg.Storage.DataDir = ""
		assert.NoError(t, cfg.Validate())
	})
}
