package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"orderagent/menu"
	"orderagent/order"
	"orderagent/storage"
)

// ErrPersistence wraps every failure of the order store. It is retryable: the
// turn can be recomputed from the same inputs.
var ErrPersistence = errors.New("persistence failure")

type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// KitchenNew is the fulfillment status a closed order is archived with.
const KitchenNew = "new"

// Session is one order as persisted.
type Session struct {
	ID            string         `json:"id"`
	State         State          `json:"state"`
	Lines         order.Cart     `json:"lines"`
	Display       string         `json:"display"`
	Total         menu.Money     `json:"total"`
	Receipt       *order.Receipt `json:"receipt,omitempty"`
	KitchenStatus string         `json:"kitchen_status,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (s *Session) clone() *Session {
	c := *s
	c.Lines = s.Lines.Clone()
	return &c
}

// Manager moves sessions through open, apply and close against an OrderStore.
// It keeps no state between calls.
type Manager struct {
	store storage.OrderStore
	now   func() time.Time
	newID func() string
}

func NewManager(store storage.OrderStore) *Manager {
	return &Manager{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func fresh() *Session {
	return &Session{State: StateOpen}
}

// Open loads the session for id. An empty, unknown or closed id yields a fresh
// session with no ID; closed sessions are never reopened.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return fresh(), nil
	}

	data, err := m.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Warn("SESSION: Unknown order id, starting fresh", "order_id", id)
		return fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load order %q: %w", ErrPersistence, id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decode order %q: %w", ErrPersistence, id, err)
	}
	if s.State == StateClosed {
		slog.Info("SESSION: Order already closed, starting fresh", "order_id", id)
		return fresh(), nil
	}
	return &s, nil
}

// Apply persists the authoritative cart of a turn and returns the updated
// session. A session without an ID is only written, and given an ID, once it
// has at least one line. On failure the passed session is returned unchanged.
func (m *Manager) Apply(ctx context.Context, s *Session, cart order.Cart, total menu.Money) (*Session, error) {
	next := s.clone()
	next.Lines = cart.Clone()
	next.Display = cart.String()
	next.Total = total

	if next.ID == "" {
		if len(cart) == 0 {
			return next, nil
		}
		next.ID = m.newID()
		next.CreatedAt = m.now()
		slog.Info("SESSION: Created order", "order_id", next.ID)
	}
	next.UpdatedAt = m.now()

	if err := m.put(ctx, next); err != nil {
		return s, err
	}
	return next, nil
}

// Close archives the order with its receipt, queued for the kitchen, and
// returns the archived record. The caller must drop the session's ID: the
// next turn starts a new order.
func (m *Manager) Close(ctx context.Context, s *Session, r *order.Receipt) (*Session, error) {
	if r == nil {
		return nil, errors.New("close requires a receipt")
	}
	archived := s.clone()
	if archived.ID == "" {
		archived.ID = m.newID()
		archived.CreatedAt = m.now()
	}
	archived.State = StateClosed
	archived.KitchenStatus = KitchenNew
	archived.Lines = r.Items.Clone()
	archived.Display = r.Items.String()
	archived.Total = r.Total
	archived.Receipt = r
	archived.UpdatedAt = m.now()

	if err := m.put(ctx, archived); err != nil {
		return nil, err
	}
	slog.Info("SESSION: Closed order", "order_id", archived.ID, "total", r.Total.String())
	return archived, nil
}

func (m *Manager) put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: encode order %q: %w", ErrPersistence, s.ID, err)
	}
	if err := m.store.Put(ctx, s.ID, data); err != nil {
		slog.Error("SESSION: Failed to persist order", "order_id", s.ID, "error", err)
		return fmt.Errorf("%w: save order %q: %w", ErrPersistence, s.ID, err)
	}
	return nil
}
