// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// mockKeyValueEntry implements jetstream.KeyValueEntry
type mockKeyValueEntry struct {
	key      string
	value    []byte
	revision uint64
}

func (m *mockKeyValueEntry) Key() string                     { return m.key }
func (m *mockKeyValueEntry) Value() []byte                   { return m.value }
func (m *mockKeyValueEntry) Revision() uint64                { return m.revision }
func (m *mockKeyValueEntry) Created() time.Time              { return time.Now() }
func (m *mockKeyValueEntry) Delta() uint64                   { return 0 }
func (m *mockKeyValueEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }
func (m *mockKeyValueEntry) Bucket() string                  { return KVStoreNameMeetups }

// mockKeyLister implements jetstream.KeyLister
type mockKeyLister struct {
	keys []string
}

func (m *mockKeyLister) Keys() <-chan string {
	ch := make(chan string, len(m.keys))
	for _, key := range m.keys {
		ch <- key
	}
	close(ch)
	return ch
}

func (m *mockKeyLister) Stop() error { return nil }

// MockKeyValue is an in-memory INatsKeyValue with JetStream revision
// semantics, for running NatsMeetingStore without a NATS server.
type MockKeyValue struct {
	mu        sync.Mutex
	data      map[string][]byte
	revisions map[string]uint64
	seq       uint64

	getError    error
	updateError error
	// beforeUpdate runs once, right before the next Update is applied.
	beforeUpdate func()
}

var _ INatsKeyValue = (*MockKeyValue)(nil)

func NewMockKeyValue() *MockKeyValue {
	return &MockKeyValue{
		data:      make(map[string][]byte),
		revisions: make(map[string]uint64),
	}
}

func (m *MockKeyValue) ListKeys(_ context.Context, _ ...jetstream.WatchOpt) (jetstream.KeyLister, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return &mockKeyLister{keys: keys}, nil
}

func (m *MockKeyValue) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	value, exists := m.data[key]
	if !exists {
		return nil, jetstream.ErrKeyNotFound
	}
	return &mockKeyValueEntry{key: key, value: value, revision: m.revisions[key]}, nil
}

func (m *MockKeyValue) Update(_ context.Context, key string, data []byte, expectedRevision uint64) (uint64, error) {
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateError != nil {
		return 0, m.updateError
	}
	if m.revisions[key] != expectedRevision {
		return 0, errors.New("nats: wrong last sequence: 7")
	}
	m.seq++
	m.data[key] = data
	m.revisions[key] = m.seq
	return m.seq, nil
}
