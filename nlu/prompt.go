package nlu

import (
	"fmt"
	"strings"

	"orderagent"
	"orderagent/order"
)

// UtterancePrefix starts the task line carrying what the customer just said.
const UtterancePrefix = "Customer says: "

// Task is one turn to interpret.
type Task struct {
	Utterance string
	Cart      order.Cart
	History   order.History
}

func (t Task) String() string {
	var b strings.Builder
	if len(t.Cart) == 0 {
		b.WriteString("Current order: empty\n")
	} else {
		b.WriteString("Current order:\n")
		for i, l := range t.Cart {
			fmt.Fprintf(&b, "- [%d] %s\n", i, l.String())
		}
	}
	if len(t.History) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range t.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, strings.TrimSpace(turn.Text))
		}
	}
	b.WriteString(UtterancePrefix)
	b.WriteString(strings.TrimSpace(t.Utterance))
	return b.String()
}

// NewPrompt creates the system prompt, the task and the tool specs for one turn.
func NewPrompt(task Task, tp orderagent.ToolProvider) Prompt {
	tools := tp.GetTools()
	specs := make([]ToolSpec, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	return Prompt{
		Messages: []Message{
			TextMessage("system", systemPrompt),
			TextMessage("user", task.String()),
		},
		Tools: specs,
	}
}

const systemPrompt = `You are the order taker at a coffee counter. You do not decide prices, completeness or whether an order can be sent; a rules engine does. Your job is to turn what the customer just said into a proposal of cart updates.

TOOLS
- menu_get returns the menu: items, aliases, legal temperatures, milk rules, add-ons and generic terms (families) such as "coffee" or "croissant".
- cart_get returns the current order lines with their index and what each line is still missing.
- Call each tool at most once per turn. Do not echo tool results.

FINAL OUTPUT
Return ONE JSON object only (no commentary, no markdown, no code fences):
{
  "updates": [
    {
      "ref": "new" | "implicit" | "explicit",
      "ref_item": string,        // the existing item an explicit update points at
      "action": "add" | "set" | "change" | "remove" | "replace",
      "item": string,            // as heard, for add and replace
      "quantity": integer,       // only when the customer said a number
      "size": string,            // as heard, e.g. "large", "medium"
      "temperature": string,     // as heard, e.g. "iced", "lukewarm"
      "milk": string,            // as heard, e.g. "oat milk"
      "modifiers": [string]      // as heard, e.g. "2 pumps caramel", "warmed up"
    }
  ],
  "closing": boolean,            // the customer is done ("that's all", "no thanks")
  "reset": boolean,              // the customer wants to start over
  "intent": "order" | "menu_query" | "size_query" | "greeting" | "affirm" | "other",
  "reply": string                // optional draft reply for turns with no updates
}

RULES
- Report words as heard. Never fix an unsupported size, temperature, milk or add-on yourself; pass it through and the engine will refuse it.
- A new item is {"ref":"new","action":"add"}. Attributes for an item already ordered are {"ref":"implicit","action":"set"}, or "explicit" with ref_item when the customer names the item.
- "Actually make it large" is action "change". "Make that a mocha instead" is action "replace" with item "mocha". "Take off the cookie" is action "remove" with ref "explicit".
- Use a generic word such as "coffee" or "croissant" as the item when that is all the customer said.
- Only set quantity when the customer said a number.
- A question about the menu or sizes has no updates.`
