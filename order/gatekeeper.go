package order

import "orderagent/menu"

// State is where an order stands in its lifecycle.
type State string

const (
	StateCollecting   State = "collecting"
	StateReadyToClose State = "ready_to_close"
	StateClosed       State = "closed"
)

// Missing names one attribute a line still needs before the order can close.
type Missing struct {
	LineIndex int   `json:"line_index"`
	Field     Field `json:"field"`
}

// Decision is the gatekeeper's verdict on a cart.
type Decision struct {
	Complete bool      `json:"complete"`
	Missing  []Missing `json:"missing,omitempty"`
	State    State     `json:"state"`
	// Vetoed is set when closing was requested but the cart is incomplete.
	Vetoed bool `json:"vetoed,omitempty"`
	// Empty is set when closing was requested on an empty cart.
	Empty bool `json:"empty,omitempty"`
}

// Gatekeep decides whether a cart can close. Closing is only allowed when the
// cart is non-empty and every line is complete.
func Gatekeep(c *menu.Catalog, cart Cart, closing bool) Decision {
	var missing []Missing
	for i, l := range cart {
		for _, f := range MissingFields(c, l) {
			missing = append(missing, Missing{LineIndex: i, Field: f})
		}
	}
	complete := len(cart) > 0 && len(missing) == 0

	d := Decision{Complete: complete, Missing: missing, State: StateCollecting}
	if complete {
		d.State = StateReadyToClose
	}
	if !closing {
		return d
	}

	switch {
	case len(cart) == 0:
		d.Empty = true
	case !complete:
		d.Vetoed = true
	default:
		d.State = StateClosed
	}
	return d
}
