// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/domain"
)

// MockMessage is a domain.Message with a fixed subject and payload. Reply
// behavior is driven by testify expectations on HasReply and Respond.
type MockMessage struct {
	mock.Mock
	data    []byte
	subject string
}

var _ domain.Message = (*MockMessage)(nil)

func (m *MockMessage) Subject() string {
	return m.subject
}

func (m *MockMessage) Data() []byte {
	return m.data
}

func (m *MockMessage) HasReply() bool {
	return m.Called().Bool(0)
}

func (m *MockMessage) Respond(data []byte) error {
	return m.Called(data).Error(0)
}

// NewMockMessage creates a request/reply message for the given subject.
func NewMockMessage(data []byte, subject string) *MockMessage {
	return &MockMessage{
		data:    data,
		subject: subject,
	}
}
