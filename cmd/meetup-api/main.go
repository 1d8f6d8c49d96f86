// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the meetup service API. It serves the participation and
// capacity REST API and answers NATS request/reply lookups about meetups.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	loadDotEnv()

	cfg, err := parseEnv()
	if err != nil {
		slog.With(logging.ErrKey, err).Error("invalid configuration")
		return 1
	}
	flags := parseFlags(cfg.Port)
	if flags.Debug {
		cfg.LogLevel = "debug"
	}

	logging.InitStructureLogConfig(logging.Config{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogAddSource,
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry")
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry")
		}
	}()

	jwtAuth, err := setupJWTAuth(cfg)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up JWT authentication")
		return 1
	}

	natsConn, err := setupNATS(ctx, cfg, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return 1
	}

	stores, err := setupMeetingStore(ctx, cfg, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up meeting store")
		cancel()
		natsConn.Close()
		return 1
	}
	meetingCache, cacheCloser := setupMeetingCache(ctx, cfg)

	// Initialize services
	serviceConfig := service.ServiceConfig{
		MaxDecisionsPerBatch: cfg.MaxDecisionsPerBatch,
		PostCommitWorkers:    cfg.PostCommitWorkers,
		RejectJoinWhenFull:   cfg.RejectJoinWhenFull,
	}
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	messageBuilder.RequestTimeout = cfg.NATSRequestTimeout
	userDirectory := setupUserDirectory(cfg, messageBuilder)

	meetupService := service.NewMeetupService(
		stores.store,
		meetingCache,
		messageBuilder,
		nil,
		serviceConfig,
	)
	participationService := service.NewParticipationService(
		stores.store,
		meetingCache,
		messageBuilder,
		userDirectory,
		nil,
		serviceConfig,
	)
	notificationService := service.NewNotificationService(stores.store)

	// Initialize handlers
	meetupHandler := handlers.NewMeetupHandler(meetupService)

	api := NewMeetupsAPI(meetupService, participationService, notificationService)
	httpServer := setupHTTPServer(flags, api, jwtAuth, &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	if err := createNatsSubscriptions(ctx, meetupHandler, natsConn); err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		done <- os.Interrupt
	}

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, &gracefulCloseWG, cancel)

	if err := closeAll(stores, cacheCloser); err != nil {
		slog.With(logging.ErrKey, err).Error("error closing stores")
	}

	return 0
}
