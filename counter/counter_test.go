package counter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent"
	"orderagent/menu"
	"orderagent/nlu"
	"orderagent/nlu/mock"
	"orderagent/order"
	"orderagent/session"
	"orderagent/storage"
)

type fakeKitchen struct {
	tickets []orderagent.Ticket
	err     error
}

func (f *fakeKitchen) SendTicket(ctx context.Context, t orderagent.Ticket) error {
	f.tickets = append(f.tickets, t)
	return f.err
}

type stubInterpreter struct {
	proposal order.Proposal
	err      error
	calls    int
}

func (s *stubInterpreter) Interpret(ctx context.Context, utterance string, cart order.Cart, history order.History) (order.Proposal, error) {
	s.calls++
	return s.proposal, s.err
}

type turnRecorder struct {
	turns []orderagent.TurnLog
}

func (r *turnRecorder) LogTurn(t orderagent.TurnLog) error {
	r.turns = append(r.turns, t)
	return nil
}

func newTestService(interp orderagent.Interpreter, store storage.OrderStore, kitchen orderagent.KitchenNotifier, log orderagent.TurnLogger) *Service {
	c := menu.Default()
	return NewService(interp, order.NewEngine(c, 0), session.NewManager(store), kitchen, log)
}

func mockInterpreter() orderagent.Interpreter {
	return nlu.NewCoordinator(mock.NewLLMClient(), menu.Default(), 4, nil)
}

// conversation replays turns against one service, carrying the order id and
// the history the way a client would.
type conversation struct {
	t       *testing.T
	svc     *Service
	orderID string
	history order.History
}

func (c *conversation) say(message string) ChatResponse {
	c.t.Helper()
	resp, err := c.svc.Handle(context.Background(), ChatRequest{Message: message, OrderID: c.orderID, History: c.history})
	require.NoError(c.t, err, message)
	c.orderID = resp.OrderID
	c.history = append(c.history,
		order.Turn{Role: order.RoleCustomer, Text: message},
		order.Turn{Role: order.RoleAssistant, Text: resp.Text},
	)
	return resp
}

func TestService_Handle_StepByStepLatte(t *testing.T) {
	store := storage.NewTestOrderStore()
	kitchen := &fakeKitchen{}
	log := &turnRecorder{}
	conv := &conversation{t: t, svc: newTestService(mockInterpreter(), store, kitchen, log)}

	resp := conv.say("Can I get a Latte?")
	assert.Equal(t, []string{"1x Latte"}, resp.Cart)
	assert.Contains(t, resp.Text, "small or large")
	assert.NotEmpty(t, resp.OrderID)
	assert.False(t, resp.OrderComplete)
	orderID := resp.OrderID

	resp = conv.say("Large.")
	assert.Equal(t, []string{"1x Latte (Large)"}, resp.Cart)
	assert.Contains(t, resp.Text, "hot or iced")
	assert.Equal(t, orderID, resp.OrderID)

	resp = conv.say("Iced.")
	assert.Equal(t, []string{"1x Latte (Large) (Iced)"}, resp.Cart)
	assert.Contains(t, resp.Text, "milk")

	resp = conv.say("Oat milk.")
	if diff := cmp.Diff([]string{"1x Latte (Large) (Iced) (Oat milk)"}, resp.Cart); diff != "" {
		t.Errorf("cart mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Got it. Want to add a pastry?", resp.Text)
	assert.Equal(t, "$6.00", resp.CartTotal)

	resp = conv.say("No, that's all, thanks!")
	assert.True(t, resp.OrderComplete)
	assert.Empty(t, resp.OrderID)
	assert.Empty(t, resp.Cart)
	assert.Equal(t, "$0.00", resp.CartTotal)
	assert.Equal(t, "1x Latte (Large) (Iced) (Oat milk)\nTotal: $6.00", resp.Receipt)
	assert.Equal(t, "Perfect. Sending your order to the kitchen. Your total is $6.00.", resp.Text)

	require.Len(t, kitchen.tickets, 1)
	assert.Equal(t, orderID, kitchen.tickets[0].OrderID)
	assert.Equal(t, []string{"1x Latte (Large) (Iced) (Oat milk)"}, kitchen.tickets[0].Lines())

	data, err := store.Get(context.Background(), orderID)
	require.NoError(t, err)
	var archived session.Session
	require.NoError(t, json.Unmarshal(data, &archived))
	assert.Equal(t, session.StateClosed, archived.State)
	assert.Equal(t, session.KitchenNew, archived.KitchenStatus)
	assert.Equal(t, menu.Money(600), archived.Total)

	require.Len(t, log.turns, 5)
	assert.Equal(t, string(order.OutcomeClosed), log.turns[4].Outcome)
	assert.Equal(t, orderID, log.turns[4].OrderID)

	// The next turn starts a new order.
	resp = conv.say("a mocha")
	assert.Equal(t, []string{"1x Mocha"}, resp.Cart)
	assert.NotEqual(t, orderID, resp.OrderID)
}

func TestService_Handle_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		cart          string
		message       string
		wantCart      []string
		textContains  []string
		wantGuardrail string
		wantOutcome   order.Outcome
		wantMissing   int
	}{
		{
			name:         "greeting",
			message:      "Hi",
			wantCart:     []string{},
			textContains: []string{"What can I get"},
			wantOutcome:  order.OutcomeUnchanged,
		},
		{
			name:         "place an order",
			message:      "Can I place an order",
			wantCart:     []string{},
			textContains: []string{"coffee, tea, and pastries"},
			wantOutcome:  order.OutcomeUnchanged,
		},
		{
			name:         "generic coffee asks which",
			message:      "Can I get a coffee",
			wantCart:     []string{},
			textContains: []string{"Which coffee would you like?", "Americano"},
			wantOutcome:  order.OutcomeAmbiguous,
		},
		{
			name:         "americano",
			message:      "I'll have an Americano",
			wantCart:     []string{"1x Americano"},
			textContains: []string{"small or large"},
			wantOutcome:  order.OutcomeUpdated,
		},
		{
			name:         "small and hot on the last drink",
			cart:         "1x Latte",
			message:      "small and hot",
			wantCart:     []string{"1x Latte (Small) (Hot)"},
			textContains: []string{"milk"},
			wantOutcome:  order.OutcomeUpdated,
		},
		{
			name:         "closing a complete order",
			cart:         "1x Latte (Small) (Hot) (Whole milk)",
			message:      "No",
			wantCart:     []string{},
			textContains: []string{"$4.50"},
			wantOutcome:  order.OutcomeClosed,
		},
		{
			name:         "closing vetoed",
			cart:         "1x Latte",
			message:      "That's all",
			wantCart:     []string{"1x Latte"},
			textContains: []string{"Before I send that over", "small or large"},
			wantOutcome:  order.OutcomeVetoed,
			wantMissing:  3,
		},
		{
			name:          "medium size refused",
			message:       "Can I get a medium latte",
			wantCart:      []string{"1x Latte"},
			textContains:  []string{"We don't have a medium size"},
			wantGuardrail: "We don't have a medium size. We only have small or large.",
			wantOutcome:   order.OutcomeUpdated,
		},
		{
			name:          "lukewarm refused",
			message:       "lukewarm latte",
			wantCart:      []string{"1x Latte"},
			wantGuardrail: "We only serve drinks hot or iced.",
			wantOutcome:   order.OutcomeUpdated,
		},
		{
			name:         "attributes with nothing in progress",
			message:      "small and hot",
			wantCart:     []string{},
			textContains: []string{"don't have a drink in progress"},
			wantOutcome:  order.OutcomeUnattachable,
		},
		{
			name:         "nothing to close",
			message:      "No",
			wantCart:     []string{},
			textContains: []string{"don't have anything"},
			wantOutcome:  order.OutcomeNothingToClose,
		},
		{
			name:         "one shot latte",
			message:      "Can I get a large hot latte",
			wantCart:     []string{"1x Latte (Large) (Hot)"},
			textContains: []string{"milk"},
			wantOutcome:  order.OutcomeUpdated,
		},
		{
			name:         "croissant needs a choice",
			message:      "I want a croissant",
			wantCart:     []string{},
			textContains: []string{"Plain Croissant or Chocolate Croissant"},
			wantOutcome:  order.OutcomeAmbiguous,
		},
		{
			name:          "warmed pastry refused",
			message:       "Can I get a plain croissant warmed up?",
			wantCart:      []string{"1x Plain Croissant"},
			wantGuardrail: "We cannot warm up pastries.",
			wantOutcome:   order.OutcomeUpdated,
		},
		{
			name:        "two lattes",
			message:     "two lattes",
			wantCart:    []string{"2x Latte"},
			wantOutcome: order.OutcomeUpdated,
		},
		{
			name:          "less ice on a hot drink",
			cart:          "1x Latte (Small) (Hot)",
			message:       "Whole milk and less ice.",
			wantCart:      []string{"1x Latte (Small) (Hot) (Whole milk)"},
			wantGuardrail: "Ice options only apply to iced drinks.",
			wantOutcome:   order.OutcomeUpdated,
		},
		{
			name:         "make that a mocha",
			cart:         "1x Latte",
			message:      "Actually, make that a Mocha.",
			wantCart:     []string{"1x Mocha"},
			textContains: []string{"small or large"},
			wantOutcome:  order.OutcomeUpdated,
		},
		{
			name:        "make it large",
			cart:        "1x Latte (Small) (Hot) (Whole milk)",
			message:     "Actually make it Large",
			wantCart:    []string{"1x Latte (Large) (Hot) (Whole milk)"},
			wantOutcome: order.OutcomeUpdated,
		},
		{
			name:         "start over",
			cart:         "1x Latte (Small) (Hot)",
			message:      "Let's start over",
			wantCart:     []string{},
			textContains: []string{"cleared your order"},
			wantOutcome:  order.OutcomeReset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := storage.NewTestOrderStore()
			svc := newTestService(mockInterpreter(), store, &fakeKitchen{}, nil)

			orderID := ""
			if tt.cart != "" {
				sessions := session.NewManager(store)
				cart := order.MustParseCart(menu.Default(), tt.cart)
				s, err := sessions.Apply(ctx, &session.Session{State: session.StateOpen}, cart, 0)
				require.NoError(t, err)
				orderID = s.ID
			}

			resp, err := svc.Handle(ctx, ChatRequest{Message: tt.message, OrderID: orderID})
			require.NoError(t, err)

			if diff := cmp.Diff(tt.wantCart, resp.Cart); diff != "" {
				t.Errorf("cart mismatch (-want +got):\n%s", diff)
			}
			for _, s := range tt.textContains {
				assert.Contains(t, resp.Text, s)
			}
			assert.Equal(t, tt.wantGuardrail, resp.Guardrail)
			assert.Equal(t, tt.wantOutcome, resp.Outcome)
			assert.Len(t, resp.Missing, tt.wantMissing)
		})
	}
}

func TestService_Handle_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty message", func(t *testing.T) {
		interp := &stubInterpreter{}
		svc := newTestService(interp, storage.NewTestOrderStore(), nil, nil)

		_, err := svc.Handle(ctx, ChatRequest{Message: "   "})
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Zero(t, interp.calls)
	})

	t.Run("interpreter failure keeps the cart", func(t *testing.T) {
		store := storage.NewTestOrderStore()
		cart := order.MustParseCart(menu.Default(), "1x Latte (Small)")
		s, err := session.NewManager(store).Apply(ctx, &session.Session{State: session.StateOpen}, cart, 0)
		require.NoError(t, err)
		puts := store.Puts()

		log := &turnRecorder{}
		svc := newTestService(&stubInterpreter{err: errors.New("model offline")}, store, nil, log)

		resp, err := svc.Handle(ctx, ChatRequest{Message: "iced please", OrderID: s.ID})
		require.NoError(t, err)
		assert.Equal(t, replyNotUnderstood, resp.Text)
		assert.Equal(t, []string{"1x Latte (Small)"}, resp.Cart)
		assert.Equal(t, s.ID, resp.OrderID)
		assert.Equal(t, puts, store.Puts(), "nothing changed, nothing written")

		require.Len(t, log.turns, 1)
		assert.Equal(t, "model offline", log.turns[0].Error)
	})

	t.Run("store failure on load", func(t *testing.T) {
		svc := newTestService(&stubInterpreter{}, storage.NewTestOrderStoreWithError(), nil, nil)

		_, err := svc.Handle(ctx, ChatRequest{Message: "a latte", OrderID: "ord-1"})
		assert.ErrorIs(t, err, session.ErrPersistence)
	})

	t.Run("store failure on save", func(t *testing.T) {
		store := storage.NewTestOrderStore()
		store.SetError(errors.New("disk full"))
		interp := &stubInterpreter{proposal: order.Proposal{
			Intent:  order.IntentOrder,
			Updates: []order.Update{{Ref: order.RefNew, Action: order.ActionAdd, Item: "Latte"}},
		}}
		svc := newTestService(interp, store, nil, nil)

		_, err := svc.Handle(ctx, ChatRequest{Message: "a latte"})
		assert.ErrorIs(t, err, session.ErrPersistence)
	})

	t.Run("unknown order id starts fresh", func(t *testing.T) {
		svc := newTestService(mockInterpreter(), storage.NewTestOrderStore(), nil, nil)

		resp, err := svc.Handle(ctx, ChatRequest{Message: "a latte", OrderID: "does-not-exist"})
		require.NoError(t, err)
		assert.Equal(t, []string{"1x Latte"}, resp.Cart)
		assert.NotEqual(t, "does-not-exist", resp.OrderID)
	})

	t.Run("kitchen failure does not fail the turn", func(t *testing.T) {
		store := storage.NewTestOrderStore()
		cart := order.MustParseCart(menu.Default(), "1x Chocolate Chip Cookie")
		s, err := session.NewManager(store).Apply(ctx, &session.Session{State: session.StateOpen}, cart, 0)
		require.NoError(t, err)

		kitchen := &fakeKitchen{err: errors.New("webhook down")}
		svc := newTestService(mockInterpreter(), store, kitchen, nil)

		resp, err := svc.Handle(ctx, ChatRequest{Message: "that's it", OrderID: s.ID})
		require.NoError(t, err)
		assert.True(t, resp.OrderComplete)
		assert.Len(t, kitchen.tickets, 1)
	})
}

func TestService_Handle_ResetWithoutOrder(t *testing.T) {
	store := storage.NewTestOrderStore()
	svc := newTestService(mockInterpreter(), store, nil, nil)

	resp, err := svc.Handle(context.Background(), ChatRequest{Message: "start over"})
	require.NoError(t, err)
	assert.Equal(t, order.OutcomeReset, resp.Outcome)
	assert.Empty(t, resp.OrderID)
	assert.Zero(t, store.Len(), "an empty order is never written")
}
