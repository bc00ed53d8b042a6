package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/menu"
)

func newTestEngine() *Engine {
	return NewEngine(menu.Default(), 0)
}

func TestEngine_Turn(t *testing.T) {
	c := menu.Default()

	tests := []struct {
		name          string
		prior         string
		proposal      Proposal
		utterance     string
		history       History
		wantCart      string
		wantTotal     menu.Money
		wantOutcome   Outcome
		wantComplete  bool
		wantMissing   []Missing
		wantReceipt   string
		wantGuardrail string
		wantReasons   []Reason
		wantReply     string
		replyContains []string
	}{
		{
			name:          "latte added with quantity one",
			proposal:      Proposal{Updates: []Update{{Ref: RefNew, Item: "latte"}}},
			utterance:     "Can I get a latte",
			wantCart:      "1x Latte",
			wantTotal:     450,
			wantOutcome:   OutcomeUpdated,
			wantMissing:   []Missing{{0, FieldSize}, {0, FieldTemperature}, {0, FieldMilk}},
			wantReply:     "Got it. What size would you like for the Latte, small or large?",
		},
		{
			name:        "small and hot",
			prior:       "1x Latte",
			proposal:    Proposal{Updates: []Update{{Ref: RefImplicit, Action: ActionSet, Size: "small", Temperature: "hot"}}},
			utterance:   "small and hot",
			wantCart:    "1x Latte (Small) (Hot)",
			wantTotal:   450,
			wantOutcome: OutcomeUpdated,
			wantMissing: []Missing{{0, FieldMilk}},
			replyContains: []string{"milk"},
		},
		{
			name:         "closing a complete order",
			prior:        "1x Latte (Small) (Hot) (Whole milk)",
			proposal:     Proposal{Closing: true},
			utterance:    "no",
			wantOutcome:  OutcomeClosed,
			wantComplete: true,
			wantReceipt:  "1x Latte (Small) (Hot) (Whole milk)\nTotal: $4.50",
			wantReply:    "Perfect. Sending your order to the kitchen. Your total is $4.50.",
		},
		{
			name:          "closing vetoed on an incomplete latte",
			prior:         "1x Latte",
			proposal:      Proposal{Closing: true},
			utterance:     "that's all",
			wantCart:      "1x Latte",
			wantTotal:     450,
			wantOutcome:   OutcomeVetoed,
			wantMissing:   []Missing{{0, FieldSize}, {0, FieldTemperature}, {0, FieldMilk}},
			wantReply:     "Before I send that over, I still need the size, hot or iced, and your milk choice for the Latte. What size would you like for the Latte, small or large?",
		},
		{
			name:          "closing vetoed keeps the turn's attributes",
			prior:         "1x Latte",
			proposal:      Proposal{Updates: []Update{{Ref: RefImplicit, Action: ActionSet, Size: "large"}}, Closing: true},
			utterance:     "large, that's all",
			wantCart:      "1x Latte (Large)",
			wantTotal:     550,
			wantOutcome:   OutcomeVetoed,
			wantMissing:   []Missing{{0, FieldTemperature}, {0, FieldMilk}},
			replyContains: []string{"Before I send that over", "hot or iced"},
		},
		{
			name:         "size for a complete latte is unattachable",
			prior:        "1x Latte (Small) (Iced) (Oat milk)",
			proposal:     Proposal{Updates: []Update{{Ref: RefImplicit, Action: ActionSet, Size: "large"}}},
			utterance:    "large",
			wantCart:     "1x Latte (Small) (Iced) (Oat milk)",
			wantTotal:    500,
			wantOutcome:  OutcomeUnattachable,
			wantComplete: true,
			wantReply:    "Your order already has that set. If you'd like to change something, just tell me what.",
		},
		{
			name:          "lukewarm latte",
			proposal:      Proposal{Updates: []Update{{Ref: RefNew, Item: "latte", Temperature: "lukewarm"}}},
			utterance:     "lukewarm latte",
			wantCart:      "1x Latte",
			wantTotal:     450,
			wantOutcome:   OutcomeUpdated,
			wantMissing:   []Missing{{0, FieldSize}, {0, FieldTemperature}, {0, FieldMilk}},
			wantGuardrail: "We only serve drinks hot or iced.",
			wantReasons:   []Reason{ReasonUnsupported},
			wantReply:     "We only serve drinks hot or iced. What size would you like for the Latte, small or large?",
		},
		{
			name:          "hot frappuccino",
			prior:         "1x Coffee Frappuccino",
			proposal:      Proposal{Updates: []Update{{Ref: RefImplicit, Action: ActionSet, Temperature: "hot"}}},
			utterance:     "make it hot",
			wantCart:      "1x Coffee Frappuccino (Iced)",
			wantTotal:     550,
			wantOutcome:   OutcomeUpdated,
			wantMissing:   []Missing{{0, FieldSize}, {0, FieldMilk}},
			wantGuardrail: "The Coffee Frappuccino is only served iced, so I made it iced.",
			wantReasons:   []Reason{ReasonIcedOnlyItem},
		},
		{
			name:        "start over",
			prior:       "1x Latte (Large) (Iced) (Oat milk), 1x Banana Bread",
			proposal:    Proposal{Reset: true},
			utterance:   "start over",
			wantOutcome: OutcomeReset,
			wantReply:   "No problem, I've cleared your order. What can I get started for you?",
		},
		{
			name:        "start over with a new drink",
			prior:       "1x Latte (Large) (Iced) (Oat milk)",
			proposal:    Proposal{Reset: true, Updates: []Update{{Ref: RefNew, Item: "mocha"}}},
			utterance:   "start over, I want a mocha",
			wantCart:    "1x Mocha",
			wantTotal:   450,
			wantOutcome: OutcomeReset,
			wantMissing: []Missing{{0, FieldSize}, {0, FieldTemperature}, {0, FieldMilk}},
			replyContains: []string{"Okay, starting over.", "small or large"},
		},
		{
			name:        "nothing to close",
			proposal:    Proposal{Closing: true},
			utterance:   "that's it",
			wantOutcome: OutcomeNothingToClose,
			wantReply:   "You don't have anything in your order yet. What would you like?",
		},
		{
			name:        "attribute with no drink",
			proposal:    Proposal{Updates: []Update{{Ref: RefImplicit, Milk: "oat milk"}}},
			utterance:   "oat milk",
			wantOutcome: OutcomeUnattachable,
			replyContains: []string{"don't have a drink in progress"},
		},
		{
			name:        "medium coffee",
			proposal:    Proposal{Updates: []Update{{Ref: RefNew, Item: "coffee", Size: "medium"}}},
			utterance:   "Can I get a medium coffee?",
			wantOutcome: OutcomeAmbiguous,
			wantReply:   "We don't have a medium size. We only have small or large. Which coffee would you like? We have Americano, Latte, Cold Brew, Mocha, or Coffee Frappuccino.",
		},
		{
			name:        "croissant needs a choice",
			prior:       "1x Latte (Small) (Hot) (Whole milk)",
			proposal:    Proposal{Updates: []Update{{Ref: RefNew, Item: "croissant"}}},
			utterance:   "and a croissant",
			wantCart:    "1x Latte (Small) (Hot) (Whole milk)",
			wantTotal:   450,
			wantOutcome: OutcomeAmbiguous,
			wantComplete: true,
			wantReply:   "Which croissant would you like? We have Plain Croissant or Chocolate Croissant.",
		},
		{
			name:        "not on the menu",
			proposal:    Proposal{Updates: []Update{{Ref: RefNew, Item: "smoothie"}}},
			utterance:   "a smoothie",
			wantOutcome: OutcomeUnknownItem,
			wantReply:   "Sorry, we don't have smoothie. We have coffee, tea, and pastries.",
		},
		{
			name:         "pastry offered once",
			prior:        "1x Latte (Small) (Hot)",
			proposal:     Proposal{Updates: []Update{{Ref: RefImplicit, Milk: "whole"}}},
			utterance:    "whole milk",
			wantCart:     "1x Latte (Small) (Hot) (Whole milk)",
			wantTotal:    450,
			wantOutcome:  OutcomeUpdated,
			wantComplete: true,
			wantReply:    "Got it. Want to add a pastry?",
		},
		{
			name:         "pastry not offered twice",
			prior:        "1x Latte (Small) (Hot)",
			proposal:     Proposal{Updates: []Update{{Ref: RefImplicit, Milk: "whole"}}},
			utterance:    "whole milk",
			history:      History{{Role: RoleAssistant, Text: "Want to add a pastry?"}, {Role: RoleCustomer, Text: "no thanks"}},
			wantCart:     "1x Latte (Small) (Hot) (Whole milk)",
			wantTotal:    450,
			wantOutcome:  OutcomeUpdated,
			wantComplete: true,
			wantReply:    "Got it. Anything else?",
		},
		{
			name:         "vague yes to the pastry offer",
			prior:        "1x Latte (Small) (Hot) (Whole milk)",
			proposal:     Proposal{Intent: IntentAffirm, Reply: "Sure, adding a croissant!"},
			utterance:    "yes, something sweet",
			history:      History{{Role: RoleAssistant, Text: "Got it. Want to add a pastry?"}},
			wantCart:     "1x Latte (Small) (Hot) (Whole milk)",
			wantTotal:    450,
			wantOutcome:  OutcomeUnchanged,
			wantComplete: true,
			wantReply:    "We have Plain Croissant, Chocolate Croissant, Chocolate Chip Cookie, or Banana Bread. Which would you like?",
		},
		{
			name:          "warming a croissant",
			prior:         "1x Plain Croissant",
			proposal:      Proposal{Updates: []Update{{Ref: RefImplicit, Modifiers: []string{"warmed up"}}}},
			utterance:     "can you warm it up",
			wantCart:      "1x Plain Croissant",
			wantTotal:     350,
			wantOutcome:   OutcomeUnchanged,
			wantComplete:  true,
			wantGuardrail: "We cannot warm up pastries.",
			wantReasons:   []Reason{ReasonCannotWarmPastry},
			wantReply:     "We cannot warm up pastries. Anything else?",
		},
		{
			name:          "less ice on a hot latte",
			prior:         "1x Latte (Small) (Hot)",
			proposal:      Proposal{Updates: []Update{{Ref: RefImplicit, Milk: "whole milk", Modifiers: []string{"less ice"}}}},
			utterance:     "whole milk and less ice",
			wantCart:      "1x Latte (Small) (Hot) (Whole milk)",
			wantTotal:     450,
			wantOutcome:   OutcomeUpdated,
			wantComplete:  true,
			wantGuardrail: "Ice options only apply to iced drinks.",
			wantReasons:   []Reason{ReasonUnsupported},
		},
		{
			name:        "draft reply used for a question",
			prior:       "1x Latte",
			proposal:    Proposal{Intent: IntentOther, Reply: "We open at 7."},
			utterance:   "when do you open",
			wantCart:    "1x Latte",
			wantTotal:   450,
			wantOutcome: OutcomeUnchanged,
			wantMissing: []Missing{{0, FieldSize}, {0, FieldTemperature}, {0, FieldMilk}},
			wantReply:   "We open at 7.",
		},
		{
			name:        "size question",
			proposal:    Proposal{Intent: IntentSizeQuery},
			utterance:   "how big is a large",
			wantOutcome: OutcomeUnchanged,
			wantReply:   "Small is 12 oz and large is 16 oz.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			r := e.Turn(Input{
				Prior:     MustParseCart(c, tt.prior),
				Proposal:  tt.proposal,
				Utterance: tt.utterance,
				History:   tt.history,
			})

			assert.Equal(t, tt.wantOutcome, r.Outcome)
			assert.Equal(t, tt.wantCart, r.Cart.String())
			assert.Equal(t, tt.wantTotal, r.Total)
			assert.Equal(t, tt.wantComplete, r.Decision.Complete)
			assert.Equal(t, tt.wantMissing, r.Decision.Missing)
			assert.Equal(t, tt.wantGuardrail, r.Guardrail)

			var reasons []Reason
			for _, cr := range r.Corrections {
				reasons = append(reasons, cr.Reason)
			}
			assert.Equal(t, tt.wantReasons, reasons)

			if tt.wantReceipt != "" {
				require.NotNil(t, r.Receipt)
				assert.Equal(t, tt.wantReceipt, r.Receipt.String())
			} else {
				assert.Nil(t, r.Receipt)
			}
			if tt.wantReply != "" {
				assert.Equal(t, tt.wantReply, r.Reply)
			}
			for _, s := range tt.replyContains {
				assert.Contains(t, r.Reply, s)
			}
		})
	}
}

func TestEngine_ConversationFlow(t *testing.T) {
	e := newTestEngine()
	var (
		cart    Cart
		history History
	)
	turn := func(utterance string, p Proposal) Result {
		r := e.Turn(Input{Prior: cart, Proposal: p, Utterance: utterance, History: history})
		cart = r.Cart
		history = append(history, Turn{Role: RoleCustomer, Text: utterance}, Turn{Role: RoleAssistant, Text: r.Reply})
		return r
	}

	r := turn("Can I get a Latte?", Proposal{Updates: []Update{{Ref: RefNew, Item: "latte"}}})
	assert.Contains(t, r.Reply, "small or large")

	r = turn("Large", Proposal{Updates: []Update{{Ref: RefImplicit, Size: "large"}}})
	assert.Contains(t, r.Reply, "hot or iced")

	r = turn("Iced", Proposal{Updates: []Update{{Ref: RefImplicit, Temperature: "iced"}}})
	assert.Contains(t, r.Reply, "milk")

	r = turn("That's all", Proposal{Closing: true})
	assert.Equal(t, OutcomeVetoed, r.Outcome)
	assert.Equal(t, []Missing{{0, FieldMilk}}, r.Decision.Missing)

	r = turn("Oat milk", Proposal{Updates: []Update{{Ref: RefImplicit, Milk: "oat milk"}}})
	assert.Equal(t, "Got it. Want to add a pastry?", r.Reply)

	r = turn("Actually make it small", Proposal{Updates: []Update{{Ref: RefImplicit, Action: ActionChange, Size: "small"}}})
	assert.Equal(t, "1x Latte (Small) (Iced) (Oat milk)", r.Cart.String())
	assert.Equal(t, "Got it. Anything else?", r.Reply)

	r = turn("No, that's it", Proposal{Closing: true})
	assert.Equal(t, OutcomeClosed, r.Outcome)
	require.NotNil(t, r.Receipt)
	assert.Equal(t, "1x Latte (Small) (Iced) (Oat milk)\nTotal: $5.00", r.Receipt.String())
	assert.Empty(t, cart)
}

func TestEngine_Idempotence(t *testing.T) {
	c := menu.Default()
	e := newTestEngine()
	in := Input{
		Prior:     MustParseCart(c, "1x Latte (Large) (Iced) (Oat milk), 1x Chocolate Chip Cookie"),
		Proposal:  Proposal{Intent: IntentMenuQuery},
		Utterance: "what's on the menu?",
	}

	first := e.Turn(in)
	in.Prior = first.Cart
	second := e.Turn(in)

	assert.Equal(t, OutcomeUnchanged, first.Outcome)
	assert.Equal(t, first.Cart, second.Cart)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Reply, second.Reply)
	assert.Contains(t, first.Reply, "For coffee we have Americano")
}

func TestEngine_Properties(t *testing.T) {
	c := menu.Default()
	e := newTestEngine()

	proposals := []Proposal{
		{Updates: []Update{{Ref: RefNew, Item: "latte", Quantity: 2}}},
		{Updates: []Update{{Ref: RefImplicit, Size: "large", Temperature: "hot"}}},
		{Updates: []Update{{Ref: RefNew, Item: "frappe", Temperature: "hot", Modifiers: []string{"4 extra shots"}}}},
		{Updates: []Update{{Ref: RefNew, Item: "banana bread", Size: "large", Modifiers: []string{"warmed", "caramel"}}}},
		{Closing: true},
		{Updates: []Update{{Ref: RefImplicit, Milk: "almond", Modifiers: []string{"6 pumps hazelnut", "less ice"}}}},
		{Updates: []Update{{Ref: RefImplicit, Action: ActionChange, Temperature: "iced"}}},
		{Updates: []Update{{Ref: RefNew, Item: "jasmine tea", Milk: "oat"}}},
		{Updates: []Update{{Ref: RefImplicit, Size: "small", Temperature: "iced"}}},
		{Updates: []Update{{Ref: RefImplicit, Size: "small", Milk: "whole"}}},
		{Closing: true},
	}

	var cart Cart
	for i, p := range proposals {
		r := e.Turn(Input{Prior: cart, Proposal: p, Utterance: "two of those"})

		if r.Decision.Complete {
			for _, l := range r.Cart {
				assert.True(t, IsComplete(c, l), "turn %d: %s", i, l)
			}
		}
		if r.Receipt != nil {
			for _, l := range r.Receipt.Items {
				assert.True(t, IsComplete(c, l), "turn %d: %s", i, l)
			}
		}

		var sum menu.Money
		for _, l := range r.Cart {
			sum += PriceLine(c, l).LinePrice
		}
		assert.Equal(t, sum, r.Total, "turn %d", i)

		for _, l := range r.Cart {
			it, err := c.Lookup(l.Item)
			require.NoError(t, err)
			if it.IsPastry() {
				assert.Empty(t, l.Modifiers)
				assert.Empty(t, l.Temperature)
			}
			if l.Temperature != "" {
				assert.True(t, it.AllowsTemperature(l.Temperature))
			}
		}
		cart = r.Cart
	}
}

func TestEngine_InconsistentStoredCart(t *testing.T) {
	e := newTestEngine()
	prior := Cart{{Item: "Latte", Quantity: 1, Temperature: "warm"}}

	r := e.Turn(Input{Prior: prior, Proposal: Proposal{Updates: []Update{{Ref: RefNew, Item: "mocha"}}}})

	assert.Equal(t, OutcomeInternal, r.Outcome)
	assert.ErrorIs(t, r.Err, ErrInconsistentLine)
	assert.Len(t, r.Cart, 1)
}
