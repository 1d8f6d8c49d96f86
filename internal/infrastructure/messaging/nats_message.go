// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
)

// NatsMsg adapts a received *nats.Msg to domain.Message.
type NatsMsg struct {
	*nats.Msg
}

var _ domain.Message = (*NatsMsg)(nil)

// Subject returns the subject the message was received on.
func (m *NatsMsg) Subject() string {
	return m.Msg.Subject
}

// Data returns the message payload.
func (m *NatsMsg) Data() []byte {
	return m.Msg.Data
}

// HasReply reports whether the sender is waiting for a response.
func (m *NatsMsg) HasReply() bool {
	return m.Msg.Reply != ""
}
