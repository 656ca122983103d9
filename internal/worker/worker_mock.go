package worker

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

type mockPurger struct {
	mu    sync.Mutex
	calls [][]string
}

func (m *mockPurger) Purge(ctx context.Context, urls []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, urls)
}

func (m *mockPurger) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

//----------------------------------

type mockCommitter struct {
	mu       sync.Mutex
	err      error
	commited []kafkago.Message
}

func (m *mockCommitter) Commit(ctx context.Context, msg kafkago.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commited = append(m.commited, msg)
	return m.err
}

func (m *mockCommitter) Commited() []kafkago.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commited
}
