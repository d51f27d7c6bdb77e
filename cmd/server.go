// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phumiphatauk/tinystore/pkg/config"
	"github.com/phumiphatauk/tinystore/pkg/debug"
	"github.com/phumiphatauk/tinystore/pkg/gateway"
	"github.com/phumiphatauk/tinystore/pkg/iam"
	"github.com/phumiphatauk/tinystore/pkg/logger"
	"github.com/phumiphatauk/tinystore/pkg/storage"
	"github.com/phumiphatauk/tinystore/pkg/storage/backend"
	"github.com/phumiphatauk/tinystore/pkg/utils"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the S3 API server",
	Long: `Start the TinyStore server. It serves the S3-compatible API on the
main port and Prometheus metrics plus pprof on the debug port.`,
	Run: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	f := serverCmd.Flags()
	f.String("host", "0.0.0.0", "Address to bind to")
	f.Int("port", 9000, "HTTP port for the S3 API")
	f.Int("debug_port", 9090, "Debug HTTP port (metrics, pprof)")
	f.String("log_level", "info", "Log level (debug, info, warn, error, fatal)")

	f.String("storage_backend", "filesystem", "Storage backend (filesystem, memory)")
	f.String("data_dir", "./data", "Base directory for object data")
	f.Int("max_buckets", 0, "Maximum bucket count (0 for default)")
	f.Int64("max_object_size", 0, "Maximum object size in bytes (0 for default)")

	f.Bool("auth_enabled", true, "Require AWS SigV4 authentication")
	f.String("region", "us-east-1", "Region reported in bucket locations and signature scopes")
	f.String("access_key", "", "Seeded admin access key")
	f.String("secret_key", "", "Seeded admin secret key (use env var TINYSTORE_SECRET_KEY)")
	f.String("users_dir", "", "Directory for persistent credential storage")

	viper.BindPFlags(f)
}

func runServer(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("tinystore", false)
	cfg := loadServerConfig(cmd)

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger.SetLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	debug.SetNotReady()

	// Credential storage
	iamManager, err := initializeIAM(cmd.Context(), cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize credential store")
	}
	defer iamManager.Close()

	// Storage backend
	be, err := backend.New(backend.Config{
		Type:          cfg.Storage.Backend,
		DataDir:       cfg.Storage.DataDir,
		MaxBuckets:    cfg.Storage.MaxBuckets,
		MaxObjectSize: cfg.Storage.MaxObjectSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage backend")
	}
	defer be.Close()
	logger.Info().
		Str("backend", string(be.Type())).
		Str("data_dir", cfg.Storage.DataDir).
		Int("max_buckets", cfg.Storage.MaxBuckets).
		Str("max_object_size", humanize.IBytes(uint64(cfg.Storage.MaxObjectSize))).
		Msg("storage backend initialized")

	// Gateway
	gatewayOpts := []gateway.Option{gateway.WithRegion(cfg.Auth.Region)}
	if !cfg.Auth.Enabled {
		logger.Warn().Msg("authentication disabled, all requests run as admin")
		gatewayOpts = append(gatewayOpts, gateway.WithAuthDisabled())
	}
	server := gateway.NewServer(be, iamManager, gatewayOpts...)
	server.Register(debug.Registry())

	debug.RegisterHandlerFunc("/debug/storage/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := be.Stats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	debug.RegisterHandlerFunc("/debug/auth/stats", func(w http.ResponseWriter, r *http.Request) {
		attempts, errors := server.AuthStats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]uint64{
			"attempts": attempts,
			"errors":   errors,
		})
	})

	httpServer := startHTTPServer(server, cfg.Server.Host, cfg.Server.Port)
	debugServer := startHTTPServer(debug.GetMux(), cfg.Server.Host, cfg.Server.DebugPort)

	debug.SetReady()
	waitForShutdown()
	debug.SetNotReady()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	debugServer.Shutdown(shutdownCtx)
}

func loadServerConfig(cmd *cobra.Command) config.Config {
	f := NewFlagLoader(cmd)
	cfg := config.Default()

	cfg.Server.Host = f.String("host")
	cfg.Server.Port = f.Int("port")
	cfg.Server.DebugPort = f.Int("debug_port")
	cfg.LogLevel = f.String("log_level")

	cfg.Storage.Backend = storage.StorageType(f.String("storage_backend"))
	cfg.Storage.DataDir = f.String("data_dir")
	if n := f.Int("max_buckets"); n > 0 {
		cfg.Storage.MaxBuckets = n
	}
	if n := f.Int64("max_object_size"); n > 0 {
		cfg.Storage.MaxObjectSize = n
	}

	cfg.Auth.Enabled = f.Bool("auth_enabled")
	cfg.Auth.Region = f.String("region")
	cfg.Auth.UsersDir = f.String("users_dir")

	// Credentials come from flags (single pair) or the config file
	// (a credentials list).
	accessKey := f.String("access_key")
	secretKey := f.String("secret_key")
	if secretKey == "" {
		secretKey = os.Getenv("TINYSTORE_SECRET_KEY")
	}
	if accessKey != "" && secretKey != "" {
		cfg.Auth.Credentials = append(cfg.Auth.Credentials, config.CredentialConfig{
			AccessKey: accessKey,
			SecretKey: secretKey,
			Admin:     true,
		})
	}
	var fileCreds []config.CredentialConfig
	if err := viper.UnmarshalKey("credentials", &fileCreds); err == nil {
		cfg.Auth.Credentials = append(cfg.Auth.Credentials, fileCreds...)
	}

	return cfg
}

func initializeIAM(ctx context.Context, cfg config.Config) (*iam.Manager, error) {
	var store iam.CredentialStore
	if cfg.Auth.UsersDir != "" {
		fileStore, err := iam.NewFileStore(cfg.Auth.UsersDir)
		if err != nil {
			return nil, err
		}
		store = fileStore
		logger.Info().Str("users_dir", cfg.Auth.UsersDir).Msg("using file credential store")
	} else {
		store = iam.NewMemoryStore()
	}

	for _, cred := range cfg.Auth.Credentials {
		identity := &iam.Identity{
			Name: cred.AccessKey,
			Credentials: []*iam.Credential{{
				AccessKey: cred.AccessKey,
				SecretKey: cred.SecretKey,
				Admin:     cred.Admin,
				Status:    iam.StatusActive,
				CreatedAt: time.Now().UTC(),
			}},
		}
		if err := store.CreateUser(ctx, identity); err != nil && err != iam.ErrUserAlreadyExists {
			return nil, err
		}
		logger.Info().Str("access_key", cred.AccessKey).Bool("admin", cred.Admin).Msg("seeded credential")
	}

	return iam.NewManager(store), nil
}

func startHTTPServer(handler http.Handler, host string, port int) *http.Server {
	listener, err := utils.NewListener(utils.JoinHostPort(host, port))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create HTTP listener")
	}

	httpServer := &http.Server{Handler: handler}
	go func() {
		logger.Info().Str("http_addr", utils.JoinHostPort(host, port)).Msg("Starting HTTP server")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()
	return httpServer
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
