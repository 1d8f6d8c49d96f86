// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/cache"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/userdir"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
)

// setupJWTAuth configures JWT authentication for the service
func setupJWTAuth(cfg environment) (*auth.JWTAuth, error) {
	return auth.NewJWTAuth(auth.JWTAuthConfig{
		JWKSURL:            cfg.JWKSURL,
		Audience:           cfg.JWTAudience,
		MockLocalPrincipal: cfg.MockLocalPrincipal,
	})
}

// setupNATS connects to NATS. A closed connection signals done so the
// process shuts down instead of running without its message bus.
func setupNATS(ctx context.Context, cfg environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	slog.InfoContext(ctx, "connecting to NATS", "url", cfg.NATSURL)

	gracefulCloseWG.Add(1)
	natsConn, err := nats.Connect(
		cfg.NATSURL,
		nats.DrainTimeout(natsDrainTimeout),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection established")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				slog.With(logging.ErrKey, err, "subject", s.Subject, "queue", s.Queue).Error("async NATS error")
			} else {
				slog.With(logging.ErrKey, err).Error("async NATS error outside subscription")
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if ctx.Err() != nil {
				// Expected during graceful shutdown.
				gracefulCloseWG.Done()
				return
			}
			slog.Error("NATS connection closed unexpectedly", logging.PriorityCritical())
			gracefulCloseWG.Done()
			done <- os.Interrupt
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return natsConn, nil
}

// storeBundle is the selected MeetingStore and whatever must be closed with it.
type storeBundle struct {
	store  domain.MeetingStore
	closer io.Closer
}

func (b storeBundle) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// setupMeetingStore builds the MeetingStore named by STORE_BACKEND.
func setupMeetingStore(ctx context.Context, cfg environment, natsConn *nats.Conn) (storeBundle, error) {
	switch cfg.StoreBackend {
	case storeBackendPostgres:
		db, err := store.OpenPostgres(ctx, store.PostgresConfig{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.PostgresMaxOpenConns,
			MaxIdleConns:    cfg.PostgresMaxIdleConns,
			ConnMaxLifetime: cfg.PostgresConnMaxLifetime,
		})
		if err != nil {
			return storeBundle{}, err
		}
		pgStore := store.NewPostgresMeetingStore(db, nil)
		if err := pgStore.Migrate(ctx); err != nil {
			_ = db.Close()
			return storeBundle{}, err
		}
		return storeBundle{store: pgStore, closer: db}, nil

	case storeBackendNATS:
		js, err := jetstream.New(natsConn)
		if err != nil {
			return storeBundle{}, fmt.Errorf("create JetStream context: %w", err)
		}
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:  store.KVStoreNameMeetups,
			History: 1,
		})
		if err != nil {
			return storeBundle{}, fmt.Errorf("open key-value bucket %s: %w", store.KVStoreNameMeetups, err)
		}
		return storeBundle{store: store.NewNatsMeetingStore(kv, nil)}, nil

	case storeBackendMemory:
		slog.WarnContext(ctx, "using the in-memory meeting store; data is lost on restart")
		return storeBundle{store: store.NewMemoryMeetingStore(nil)}, nil
	}

	return storeBundle{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// setupMeetingCache returns the Redis read cache, or a no-op cache when
// REDIS_URL is empty or Redis cannot be reached.
func setupMeetingCache(ctx context.Context, cfg environment) (domain.MeetingCache, io.Closer) {
	if cfg.RedisURL == "" {
		slog.InfoContext(ctx, "REDIS_URL not set, meeting read cache disabled")
		return cache.NoOpMeetingCache{}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.With(logging.ErrKey, err).WarnContext(ctx, "redis unavailable, meeting read cache disabled")
		return cache.NoOpMeetingCache{}, nil
	}
	return cache.NewRedisMeetingCache(client, cfg.CacheTTL), client
}

// setupUserDirectory resolves applicant profiles over NATS unless disabled.
func setupUserDirectory(cfg environment, builder *messaging.MessageBuilder) domain.UserDirectory {
	if cfg.UserDirectoryDisabled {
		return userdir.NewNoOpDirectory()
	}
	return builder
}

// closeAll closes every non-nil closer and joins the errors.
func closeAll(closers ...io.Closer) error {
	var errs error
	for _, c := range closers {
		if c == nil {
			continue
		}
		errs = errors.Join(errs, c.Close())
	}
	return errs
}

const natsDrainTimeout = 10 * time.Second
