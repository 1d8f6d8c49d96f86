// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

const gracefulShutdownSeconds = 25

// newRouter builds the echo instance with every route and middleware mounted.
func newRouter(api *MeetupsAPI, jwtAuth auth.IJWTAuth) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// RequestID must run first so every later log line carries the id.
	e.Use(echo.WrapMiddleware(middleware.RequestIDMiddleware()))
	e.Use(echo.WrapMiddleware(middleware.RequestLoggerMiddleware()))

	e.GET("/livez", api.Livez)
	e.GET("/readyz", api.Readyz)

	authenticated := echo.WrapMiddleware(middleware.AuthMiddleware(jwtAuth))
	api.registerMeetingRoutes(e.Group("/meetings", authenticated))
	api.registerNotificationRoutes(e.Group("/notifications", authenticated))

	return e
}

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, api *MeetupsAPI, jwtAuth auth.IJWTAuth, gracefulCloseWG *sync.WaitGroup) *http.Server {
	handler := otelhttp.NewHandler(newRouter(api, jwtAuth), constants.ServiceName)

	addr := flags.listenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// ErrServerClosed is returned as soon as Shutdown is called, not when
		// it completes, so the wait group is released by gracefulShutdown.
	}()

	return httpServer
}

// gracefulShutdown stops the HTTP server, drains NATS and waits for both.
func gracefulShutdown(httpServer *http.Server, natsConn *nats.Conn, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc) {
	slog.Info("graceful shutdown started")

	// Cancel first so the NATS closed handler treats the close as expected.
	cancel()

	go func() {
		ctx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownSeconds*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.With(logging.ErrKey, err).Error("http shutdown error")
		}
		gracefulCloseWG.Done()
	}()

	if natsConn != nil && !natsConn.IsClosed() && !natsConn.IsDraining() {
		slog.Info("draining NATS connections")
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
			// Drain failed, so the closed handler may never fire.
			natsConn.Close()
		}
	}

	waitDone := make(chan struct{})
	go func() {
		gracefulCloseWG.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		slog.Info("graceful shutdown complete")
	case <-time.After(gracefulShutdownSeconds * time.Second):
		slog.Error("graceful shutdown timed out", logging.PriorityCritical())
	}
}
