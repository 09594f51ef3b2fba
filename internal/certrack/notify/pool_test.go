package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type mockMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type mockResultStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]struct {
		success bool
		errMsg  string
	}
}

func newMockResultStore() *mockResultStore {
	return &mockResultStore{results: make(map[uuid.UUID]struct {
		success bool
		errMsg  string
	})}
}

func (m *mockResultStore) RecordNotificationResult(_ context.Context, id uuid.UUID, success bool, errMsg string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = struct {
		success bool
		errMsg  string
	}{success, errMsg}
	return nil
}

func TestPoolDeliversAndRecordsSuccess(t *testing.T) {
	mailer := &mockMailer{}
	store := newMockResultStore()
	pool := NewPool(mailer, store, zaptest.NewLogger(t), 2)

	id := uuid.New()
	pool.Enqueue(id, "andi@bank.example", "reminder", "renew soon")
	pool.Close()

	assert.Equal(t, []string{"andi@bank.example"}, mailer.sent)
	res, ok := store.results[id]
	assert.True(t, ok, "send outcome must be recorded")
	assert.True(t, res.success)
	assert.Empty(t, res.errMsg)
}

func TestPoolRecordsSendFailure(t *testing.T) {
	mailer := &mockMailer{err: errors.New("smtp timeout")}
	store := newMockResultStore()
	pool := NewPool(mailer, store, zaptest.NewLogger(t), 1)

	id := uuid.New()
	pool.Enqueue(id, "andi@bank.example", "reminder", "renew soon")
	pool.Close()

	res, ok := store.results[id]
	assert.True(t, ok)
	assert.False(t, res.success, "a failed send is recorded, not retried forever")
	assert.Equal(t, "smtp timeout", res.errMsg)
	assert.Empty(t, mailer.sent)
}
