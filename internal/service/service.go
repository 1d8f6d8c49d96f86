// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-meetup-service/pkg/constants"
)

type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// MaxDecisionsPerBatch caps the number of decisions a host may submit at once.
	MaxDecisionsPerBatch int
	// PostCommitWorkers bounds the goroutines used for events and cache invalidation.
	PostCommitWorkers int
	// RejectJoinWhenFull turns on the advisory capacity check at intake. When
	// off, join requests against a full meetup stay PENDING and capacity is
	// only enforced when the host accepts.
	RejectJoinWhenFull bool
}

func (c ServiceConfig) batchLimit() int {
	if c.MaxDecisionsPerBatch <= 0 {
		return constants.MaxDecisionsPerBatch
	}
	return c.MaxDecisionsPerBatch
}

func (c ServiceConfig) postCommitWorkers() int {
	if c.PostCommitWorkers <= 0 {
		return constants.DefaultPostCommitWorkers
	}
	return c.PostCommitWorkers
}

// runAfterCommit runs side effects of a committed unit of work. Failures are
// logged and never reach the caller; the context is detached from the request
// so a client disconnect does not drop events.
func runAfterCommit(ctx context.Context, workers int, tasks ...concurrent.Task) {
	ctx = context.WithoutCancel(ctx)
	pool := concurrent.NewWorkerPool(workers)
	for _, err := range pool.RunAll(ctx, tasks...) {
		slog.ErrorContext(ctx, "post-commit task failed", logging.ErrKey, err)
	}
}

// logOperationError logs a failed operation at a level that matches the error kind.
func logOperationError(ctx context.Context, msg string, err error) {
	switch domain.GetErrorType(err) {
	case domain.ErrorTypeInternal, domain.ErrorTypeUnavailable:
		slog.ErrorContext(ctx, msg, logging.ErrKey, err)
	default:
		slog.WarnContext(ctx, msg, logging.ErrKey, err)
	}
}

func serviceNotReady(ctx context.Context) error {
	slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
	return domain.ErrServiceUnavailable
}
