package orderagent

import (
	"context"
	"net/http"

	"orderagent/order"
	"orderagent/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// KitchenNotifier receives a ticket for every order sent to the kitchen.
type KitchenNotifier interface {
	SendTicket(ctx context.Context, t Ticket) error
}

type ToolProvider interface {
	GetTools() []tools.Tool
	GetTool(name string) (tools.Tool, error)
}

// Interpreter turns what the customer said into a proposal for the engine.
// The proposal is advisory; the engine decides what changes.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string, cart order.Cart, history order.History) (order.Proposal, error)
}

// Ticket is a closed order as the kitchen sees it.
type Ticket struct {
	OrderID string         `json:"order_id"`
	Receipt *order.Receipt `json:"receipt"`
}

// Lines returns the ticket lines in order.
func (t Ticket) Lines() []string {
	if t.Receipt == nil {
		return nil
	}
	return t.Receipt.Lines
}
