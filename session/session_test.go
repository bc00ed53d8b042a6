package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/menu"
	"orderagent/order"
	"orderagent/storage"
)

func newTestManager(store storage.OrderStore) *Manager {
	m := NewManager(store)
	clock := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	n := 0
	m.newID = func() string {
		n++
		return []string{"order-1", "order-2", "order-3"}[n-1]
	}
	return m
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := menu.Default()
	store := storage.NewTestOrderStore()
	m := newTestManager(store)

	s, err := m.Open(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, s.ID)
	assert.Equal(t, StateOpen, s.State)

	// Empty carts are not persisted and get no id.
	s, err = m.Apply(ctx, s, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, s.ID)
	assert.Equal(t, 0, store.Puts())

	cart, total := order.Price(c, order.MustParseCart(c, "1x Latte"))
	s, err = m.Apply(ctx, s, cart, total)
	require.NoError(t, err)
	assert.Equal(t, "order-1", s.ID)
	assert.Equal(t, "1x Latte", s.Display)

	reopened, err := m.Open(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, s.Lines, reopened.Lines)
	assert.Equal(t, menu.Money(450), reopened.Total)

	cart, total = order.Price(c, order.MustParseCart(c, "1x Latte (Small) (Hot) (Whole milk)"))
	s, err = m.Apply(ctx, reopened, cart, total)
	require.NoError(t, err)
	assert.Equal(t, "order-1", s.ID, "id is stable across turns")

	archived, err := m.Close(ctx, s, order.NewReceipt(cart, total))
	require.NoError(t, err)
	assert.Equal(t, "order-1", archived.ID)
	assert.Equal(t, StateClosed, archived.State)
	assert.Equal(t, KitchenNew, archived.KitchenStatus)
	assert.Equal(t, "1x Latte (Small) (Hot) (Whole milk)\nTotal: $4.50", archived.Receipt.String())

	// The archived record stays in the store for fulfillment.
	raw, err := store.Get(ctx, "order-1")
	require.NoError(t, err)
	var stored Session
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, StateClosed, stored.State)

	// But it is unreachable as a session.
	next, err := m.Open(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, next.ID)
	assert.Empty(t, next.Lines)
}

func TestManager_ResetKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	c := menu.Default()
	m := newTestManager(storage.NewTestOrderStore())

	cart, total := order.Price(c, order.MustParseCart(c, "1x Mocha"))
	s, err := m.Apply(ctx, &Session{State: StateOpen}, cart, total)
	require.NoError(t, err)

	s, err = m.Apply(ctx, s, order.Cart{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "order-1", s.ID)
	assert.Equal(t, StateOpen, s.State)
	assert.Empty(t, s.Lines)
	assert.Equal(t, menu.Money(0), s.Total)
}

func TestManager_UnknownID(t *testing.T) {
	m := newTestManager(storage.NewTestOrderStore())
	s, err := m.Open(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, s.ID)
}

func TestManager_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	c := menu.Default()
	store := storage.NewTestOrderStore()
	m := newTestManager(store)

	cart, total := order.Price(c, order.MustParseCart(c, "1x Latte"))
	s, err := m.Apply(ctx, &Session{State: StateOpen}, cart, total)
	require.NoError(t, err)

	store.SetError(errors.New("disk full"))

	bigger, total2 := order.Price(c, order.MustParseCart(c, "1x Latte, 1x Banana Bread"))
	got, err := m.Apply(ctx, s, bigger, total2)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorContains(t, err, "disk full")
	assert.Same(t, s, got, "previous session returned on failure")
	assert.Len(t, s.Lines, 1)

	_, err = m.Open(ctx, s.ID)
	assert.ErrorIs(t, err, ErrPersistence)

	_, err = m.Close(ctx, s, order.NewReceipt(cart, total))
	assert.ErrorIs(t, err, ErrPersistence)

	store.SetError(nil)
	reopened, err := m.Open(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, reopened.Lines, 1, "failed write did not lose the previous cart")
}

func TestManager_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewTestOrderStore()
	require.NoError(t, store.Put(ctx, "bad", []byte("{not json")))

	_, err := newTestManager(store).Open(ctx, "bad")
	assert.ErrorIs(t, err, ErrPersistence)
}
