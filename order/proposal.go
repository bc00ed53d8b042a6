package order

import "strings"

// RefKind says how an update picks its target line.
type RefKind string

const (
	RefNew      RefKind = "new"
	RefImplicit RefKind = "implicit"
	RefExplicit RefKind = "explicit"
)

// Action is the operation an update performs.
type Action string

const (
	// ActionAdd appends a new line.
	ActionAdd Action = "add"
	// ActionSet fills attributes the target line is still missing.
	ActionSet Action = "set"
	// ActionChange overwrites attributes the target line already has.
	ActionChange Action = "change"
	ActionRemove  Action = "remove"
	ActionReplace Action = "replace"
)

// Intent is the interpreter's classification of a turn that carries no updates.
type Intent string

const (
	IntentOrder     Intent = "order"
	IntentMenuQuery Intent = "menu_query"
	IntentSizeQuery Intent = "size_query"
	IntentGreeting  Intent = "greeting"
	IntentAffirm    Intent = "affirm"
	IntentOther     Intent = "other"
)

// Update is one proposed change to the cart. Attribute values are raw phrases
// as heard; the merge step resolves them against the catalog.
type Update struct {
	Ref         RefKind  `json:"ref"`
	RefItem     string   `json:"ref_item,omitempty"`
	Action      Action   `json:"action"`
	Item        string   `json:"item,omitempty"`
	Quantity    int      `json:"quantity,omitempty"`
	Size        string   `json:"size,omitempty"`
	Temperature string   `json:"temperature,omitempty"`
	Milk        string   `json:"milk,omitempty"`
	Modifiers   []string `json:"modifiers,omitempty"`
}

func (u Update) action() Action {
	if u.Action != "" {
		return u.Action
	}
	if u.Ref == RefNew || (u.Ref == "" && u.Item != "") {
		return ActionAdd
	}
	return ActionSet
}

func (u Update) hasAttributes() bool {
	return u.Size != "" || u.Temperature != "" || u.Milk != "" || len(u.Modifiers) > 0
}

// Proposal is what the language interpreter hands the engine for one turn.
// It is advisory: the engine decides what actually changes.
type Proposal struct {
	Updates []Update `json:"updates"`
	Closing bool     `json:"closing"`
	Reset   bool     `json:"reset"`
	Intent  Intent   `json:"intent,omitempty"`
	Reply   string   `json:"reply,omitempty"`
}

// Role identifies who spoke a turn.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is the conversation so far, oldest first.
type History []Turn

// Recent returns at most the last n turns.
func (h History) Recent(n int) History {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// LastAssistant returns the most recent assistant reply, or "".
func (h History) LastAssistant() string {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == RoleAssistant {
			return h[i].Text
		}
	}
	return ""
}

// AssistantSaid reports whether any assistant turn in h contains phrase,
// case-insensitively.
func (h History) AssistantSaid(phrase string) bool {
	phrase = strings.ToLower(phrase)
	for _, t := range h {
		if t.Role == RoleAssistant && strings.Contains(strings.ToLower(t.Text), phrase) {
			return true
		}
	}
	return false
}
