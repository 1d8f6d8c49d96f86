// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

// Store backends selectable through STORE_BACKEND.
const (
	storeBackendPostgres = "postgres"
	storeBackendNATS     = "nats"
	storeBackendMemory   = "memory"
)

// flags are the command line flags for the meetup service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the meetup service.
type environment struct {
	Port         string `env:"PORT" envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL"`
	LogAddSource bool   `env:"LOG_ADD_SOURCE"`

	StoreBackend            string        `env:"STORE_BACKEND" envDefault:"nats"`
	PostgresDSN             string        `env:"POSTGRES_DSN"`
	PostgresMaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"10"`
	PostgresMaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	PostgresConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`

	NATSURL            string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSRequestTimeout time.Duration `env:"NATS_REQUEST_TIMEOUT" envDefault:"5s"`

	// An empty RedisURL disables the read cache.
	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	UserDirectoryDisabled bool `env:"USER_DIRECTORY_DISABLED"`

	JWKSURL            string `env:"JWKS_URL"`
	JWTAudience        string `env:"JWT_AUDIENCE"`
	MockLocalPrincipal string `env:"JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL"`

	MaxDecisionsPerBatch int  `env:"MAX_DECISIONS_PER_BATCH"`
	PostCommitWorkers    int  `env:"POST_COMMIT_WORKERS"`
	RejectJoinWhenFull   bool `env:"REJECT_JOIN_WHEN_FULL"`
}

// loadDotEnv reads a local .env file when one exists. Variables already set
// in the process environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		slog.With(logging.ErrKey, err).Warn("error loading .env file")
	}
}

// parseEnv parses environment variables for the meetup service
func parseEnv() (environment, error) {
	var cfg environment
	if err := env.Parse(&cfg); err != nil {
		return environment{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return environment{}, err
	}
	return cfg, nil
}

func (e environment) validate() error {
	switch e.StoreBackend {
	case storeBackendPostgres:
		if e.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_BACKEND is postgres")
		}
	case storeBackendNATS, storeBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", e.StoreBackend)
	}
	if e.MaxDecisionsPerBatch < 0 || e.MaxDecisionsPerBatch > constants.MaxDecisionsPerBatch {
		return fmt.Errorf("MAX_DECISIONS_PER_BATCH must be between 1 and %d", constants.MaxDecisionsPerBatch)
	}
	if e.PostCommitWorkers < 0 {
		return errors.New("POST_COMMIT_WORKERS must not be negative")
	}
	return nil
}

// parseFlags parses command line flags for the meetup service
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.String("bind", "*", "interface to bind on")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  *bind,
	}
}

// listenAddr joins the bind interface and port.
func (f flags) listenAddr() string {
	if f.Bind == "*" {
		return ":" + f.Port
	}
	return f.Bind + ":" + f.Port
}
