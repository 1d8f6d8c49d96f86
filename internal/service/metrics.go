// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
)

const meterName = "github.com/linuxfoundation/lfx-v2-meetup-service/internal/service"

// Stages at which a capacity rejection can happen.
const (
	capacityStageIntake   = "intake"
	capacityStageDecision = "decision"
)

var capacityRejections = sync.OnceValue(func() metric.Int64Counter {
	counter, err := otel.Meter(meterName).Int64Counter(
		"meetup.capacity.rejections",
		metric.WithDescription("Join requests or acceptances refused because the meetup was full"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		slog.Warn("failed to create capacity rejection counter", logging.ErrKey, err)
		return noop.Int64Counter{}
	}
	return counter
})

func recordCapacityRejection(ctx context.Context, stage string) {
	capacityRejections().Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
