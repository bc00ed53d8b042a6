package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no record exists under a key.
var ErrNotFound = errors.New("not found")

// OrderStore persists order records as opaque bytes keyed by order id.
// Writes are last-write-wins.
type OrderStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
}

// MenuSource loads a menu document.
type MenuSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// TestOrderStore is a simple in-memory implementation for testing
type TestOrderStore struct {
	mu      sync.Mutex
	records map[string][]byte
	err     error
	puts    int
}

func NewTestOrderStore() *TestOrderStore {
	return &TestOrderStore{records: make(map[string][]byte)}
}

func NewTestOrderStoreWithError() *TestOrderStore {
	return &TestOrderStore{records: make(map[string][]byte), err: errors.New("store unavailable")}
}

func (t *TestOrderStore) Get(ctx context.Context, id string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	data, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (t *TestOrderStore) Put(ctx context.Context, id string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.records[id] = append([]byte(nil), data...)
	t.puts++
	return nil
}

// SetError makes every later call fail with err; nil restores normal behavior.
func (t *TestOrderStore) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Puts reports how many writes succeeded.
func (t *TestOrderStore) Puts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.puts
}

// Len reports how many records are stored.
func (t *TestOrderStore) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// TestMenuSource is a simple in-memory implementation for testing
type TestMenuSource struct {
	data []byte
	err  error
}

func NewTestMenuSource(data []byte) *TestMenuSource {
	return &TestMenuSource{data: data}
}

func NewTestMenuSourceWithError() *TestMenuSource {
	return &TestMenuSource{err: errors.New("not found")}
}

func (t *TestMenuSource) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
