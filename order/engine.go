package order

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"orderagent/menu"
)

// DefaultHistoryTurns bounds how far back the engine looks for a pastry offer.
const DefaultHistoryTurns = 12

// Outcome classifies what a turn did to the order.
type Outcome string

const (
	OutcomeUpdated        Outcome = "updated"
	OutcomeUnchanged      Outcome = "unchanged"
	OutcomeReset          Outcome = "reset"
	OutcomeClosed         Outcome = "closed"
	OutcomeVetoed         Outcome = "vetoed"
	OutcomeNothingToClose Outcome = "nothing_to_close"
	OutcomeUnknownItem    Outcome = "unknown_item"
	OutcomeAmbiguous      Outcome = "ambiguous"
	OutcomeUnattachable   Outcome = "unattachable"
	OutcomeInternal       Outcome = "internal"
)

// Input is everything the engine needs for one turn.
type Input struct {
	Prior     Cart
	Proposal  Proposal
	Utterance string
	History   History
}

// Result is the authoritative outcome of a turn. On a closed turn Cart is
// empty and Receipt carries the order.
type Result struct {
	Cart        Cart         `json:"cart"`
	Total       menu.Money   `json:"total"`
	Decision    Decision     `json:"decision"`
	Corrections []Correction `json:"corrections,omitempty"`
	Guardrail   string       `json:"guardrail,omitempty"`
	Reply       string       `json:"reply"`
	Receipt     *Receipt     `json:"receipt,omitempty"`
	Outcome     Outcome      `json:"outcome"`
	Err         error        `json:"-"`
}

// Engine runs the deterministic part of a turn: merge, validate, gatekeep,
// price and reply. It holds no per-session state and is safe for concurrent use.
type Engine struct {
	catalog      *menu.Catalog
	historyTurns int
}

func NewEngine(c *menu.Catalog, historyTurns int) *Engine {
	if historyTurns <= 0 {
		historyTurns = DefaultHistoryTurns
	}
	return &Engine{catalog: c, historyTurns: historyTurns}
}

func (e *Engine) Catalog() *menu.Catalog { return e.catalog }

// Turn computes the next cart from the prior one and a proposal. It never
// fails: every input maps to an Outcome, and rejected turns keep the prior cart.
func (e *Engine) Turn(in Input) Result {
	prior, _, err := ValidateCart(e.catalog, in.Prior)
	if err != nil {
		slog.Error("ENGINE: stored cart failed validation", "error", err)
		return e.internal(in.Prior, err)
	}

	p := in.Proposal
	base := prior
	if p.Reset {
		base = Cart{}
		if len(p.Updates) == 0 {
			return Result{
				Cart:     Cart{},
				Decision: Gatekeep(e.catalog, nil, false),
				Reply:    replyReset,
				Outcome:  OutcomeReset,
			}
		}
	}

	merged, err := Merge(e.catalog, base, p, in.Utterance)
	if err != nil {
		slog.Debug("ENGINE: proposal rejected", "error", err)
		return e.rejected(prior, err)
	}

	cart, corrections, err := ValidateCart(e.catalog, merged)
	if err != nil {
		slog.Error("ENGINE: merged cart failed validation", "error", err)
		return e.internal(prior, err)
	}
	cart, total := Price(e.catalog, cart)

	r := Result{
		Cart:        cart,
		Total:       total,
		Decision:    Gatekeep(e.catalog, cart, p.Closing),
		Corrections: corrections,
		Guardrail:   Guardrail(e.catalog, corrections),
	}
	mutated := p.Reset || !cart.Equal(prior)

	switch {
	case r.Decision.State == StateClosed:
		r.Outcome = OutcomeClosed
		r.Receipt = NewReceipt(cart, total)
		r.Reply = fmt.Sprintf("Perfect. Sending your order to the kitchen. Your total is %s.", total)
		r.Cart, r.Total = Cart{}, 0
	case r.Decision.Empty:
		r.Outcome = OutcomeNothingToClose
		r.Reply = replyNothingToClose
	case r.Decision.Vetoed:
		r.Outcome = OutcomeVetoed
		r.Reply = joinReply(r.Guardrail, e.veto(cart, r.Decision.Missing))
	case p.Reset:
		r.Outcome = OutcomeReset
		r.Reply = joinReply("Okay, starting over.", r.Guardrail, e.followUp(cart, in.History))
	case r.Guardrail != "":
		r.Outcome = OutcomeUnchanged
		if mutated {
			r.Outcome = OutcomeUpdated
		}
		r.Reply = joinReply(r.Guardrail, e.followUp(cart, in.History))
	case mutated:
		r.Outcome = OutcomeUpdated
		r.Reply = joinReply("Got it.", e.followUp(cart, in.History))
	default:
		r.Outcome = OutcomeUnchanged
		r.Reply = e.idleReply(cart, in)
	}
	return r
}

func (e *Engine) settled(cart Cart) Result {
	cart, total := Price(e.catalog, cart)
	return Result{Cart: cart, Total: total, Decision: Gatekeep(e.catalog, cart, false)}
}

func (e *Engine) internal(prior Cart, err error) Result {
	r := e.settled(prior)
	r.Outcome = OutcomeInternal
	r.Reply = "Sorry, something went wrong with that. Could you say it again?"
	r.Err = err
	return r
}

func (e *Engine) rejected(prior Cart, err error) Result {
	r := e.settled(prior)
	r.Err = err

	var me *MergeError
	errors.As(err, &me)
	switch {
	case errors.Is(err, ErrAmbiguousItem):
		r.Outcome = OutcomeAmbiguous
		r.Reply = joinReply(sizeRefusal(me), fmt.Sprintf("Which %s would you like? We have %s.", me.Term, menu.JoinSpoken(me.Options, "or")))
	case errors.Is(err, ErrUnknownItem):
		r.Outcome = OutcomeUnknownItem
		if me != nil && me.Term != "" {
			r.Reply = fmt.Sprintf("Sorry, we don't have %s. We have coffee, tea, and pastries.", me.Term)
		} else {
			r.Reply = "Sorry, I didn't catch which item you wanted. We have coffee, tea, and pastries."
		}
	case errors.Is(err, ErrUnattachable):
		r.Outcome = OutcomeUnattachable
		r.Reply = "I don't have a drink in progress to apply that to. Tell me what you'd like first."
		if me != nil && !isExplicit(me.Update) && prior.HasDrink(e.catalog) {
			r.Reply = "Your order already has that set. If you'd like to change something, just tell me what."
		}
	default:
		r.Outcome = OutcomeInternal
		r.Reply = "Sorry, something went wrong with that. Could you say it again?"
	}
	return r
}

// sizeRefusal speaks to an unsupported size carried by a rejected update, so
// "a medium coffee" is refused for both reasons at once.
func sizeRefusal(me *MergeError) string {
	if me == nil || me.Update.Size == "" {
		return ""
	}
	if _, ok := menu.ParseSize(me.Update.Size); ok {
		return ""
	}
	return fmt.Sprintf("We don't have a %s size. We only have small or large.", menu.Normalize(me.Update.Size))
}

const (
	replyReset          = "No problem, I've cleared your order. What can I get started for you?"
	replyNothingToClose = "You don't have anything in your order yet. What would you like?"
	replyUpsell         = "Want to add a pastry?"
	replyAnythingElse   = "Anything else?"
	replySizes          = "Small is 12 oz and large is 16 oz."
	replyGreeting       = "Hi! What can I get started for you?"
	replyPrompt         = "What can I get for you?"
)

// followUp asks for the next missing attribute of the most recent incomplete
// line, offers a pastry once, or asks whether there is anything else.
func (e *Engine) followUp(cart Cart, h History) string {
	for i := len(cart) - 1; i >= 0; i-- {
		if missing := MissingFields(e.catalog, cart[i]); len(missing) > 0 {
			return e.question(cart[i], missing[0])
		}
	}
	if len(cart) > 0 && cart.HasDrink(e.catalog) && !cart.HasPastry(e.catalog) &&
		!h.Recent(e.historyTurns).AssistantSaid("pastry") {
		return replyUpsell
	}
	return replyAnythingElse
}

func (e *Engine) question(l Line, f Field) string {
	switch f {
	case FieldSize:
		return fmt.Sprintf("What size would you like for the %s, small or large?", l.Item)
	case FieldTemperature:
		return fmt.Sprintf("Would you like the %s hot or iced?", l.Item)
	case FieldMilk:
		return fmt.Sprintf("What milk would you like in the %s? We have %s.", l.Item, milkList(e.catalog))
	}
	return replyAnythingElse
}

func (e *Engine) veto(cart Cart, missing []Missing) string {
	if len(missing) == 0 {
		return replyAnythingElse
	}
	first := missing[0].LineIndex
	var needs []string
	for _, m := range missing {
		if m.LineIndex != first {
			break
		}
		needs = append(needs, spokenField(m.Field))
	}
	l := cart[first]
	return fmt.Sprintf("Before I send that over, I still need %s for the %s. %s",
		menu.JoinSpoken(needs, "and"), l.Item, e.question(l, missing[0].Field))
}

func spokenField(f Field) string {
	switch f {
	case FieldSize:
		return "the size"
	case FieldTemperature:
		return "hot or iced"
	case FieldMilk:
		return "your milk choice"
	}
	return string(f)
}

// idleReply answers a turn that changed nothing. Fixed answers win over the
// interpreter's draft where a policy applies.
func (e *Engine) idleReply(cart Cart, in Input) string {
	p := in.Proposal
	if p.Intent == IntentAffirm && strings.Contains(strings.ToLower(in.History.LastAssistant()), "pastry") {
		return fmt.Sprintf("We have %s. Which would you like?", e.catalog.Names(menu.CategoryPastry, "or"))
	}
	if strings.TrimSpace(p.Reply) != "" {
		return strings.TrimSpace(p.Reply)
	}
	switch p.Intent {
	case IntentMenuQuery:
		return fmt.Sprintf("For coffee we have %s. For tea we have %s. And for pastries we have %s. What would you like?",
			e.catalog.Names(menu.CategoryCoffee, "and"),
			e.catalog.Names(menu.CategoryTea, "and"),
			e.catalog.Names(menu.CategoryPastry, "and"))
	case IntentSizeQuery:
		return replySizes
	case IntentGreeting:
		return replyGreeting
	}
	for i := len(cart) - 1; i >= 0; i-- {
		if missing := MissingFields(e.catalog, cart[i]); len(missing) > 0 {
			return e.question(cart[i], missing[0])
		}
	}
	return replyPrompt
}

func joinReply(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
