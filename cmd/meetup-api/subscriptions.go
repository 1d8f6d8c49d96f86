// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/infrastructure/messaging"
)

// createNatsSubscriptions subscribes the handler to every request/reply
// subject it serves, load-balanced across replicas by the queue group.
func createNatsSubscriptions(ctx context.Context, handler domain.MessageHandler, natsConn *nats.Conn) error {
	subjects := []string{
		models.MeetingGetOccupancySubject,
		models.MeetingGetTitleSubject,
	}

	// Messages still in flight while draining must outlive the shutdown cancel.
	msgCtx := context.WithoutCancel(ctx)

	for _, subject := range subjects {
		slog.InfoContext(ctx, "subscribing to NATS subject", "subject", subject, "queue", models.MeetupsAPIQueue)
		_, err := natsConn.QueueSubscribe(subject, models.MeetupsAPIQueue, func(msg *nats.Msg) {
			handler.HandleMessage(msgCtx, &messaging.NatsMsg{Msg: msg})
		})
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", subject, err)
		}
	}

	return nil
}
