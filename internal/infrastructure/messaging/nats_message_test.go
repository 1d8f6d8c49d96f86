// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestNatsMsg(t *testing.T) {
	msg := &NatsMsg{Msg: &nats.Msg{
		Subject: "lfx.meetups-api.get_occupancy",
		Data:    []byte("meeting-1"),
	}}

	assert.Equal(t, "lfx.meetups-api.get_occupancy", msg.Subject())
	assert.Equal(t, []byte("meeting-1"), msg.Data())
	assert.False(t, msg.HasReply())

	msg.Reply = "_INBOX.abc"
	assert.True(t, msg.HasReply())
}
