package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"orderagent/nlu"
	"orderagent/tools"
)

// LLMClient is a deterministic stand-in for a chat model. It fetches the menu
// and the cart through the tools like a real model would, then reads the
// utterance with a small set of phrase rules. It is good enough to drive the
// counter locally and in tests without a model server.
type LLMClient struct{}

func NewLLMClient() *LLMClient {
	return &LLMClient{}
}

// Invoke answers in two phases: first a plan calling menu_get and cart_get,
// then, once both results are in the conversation, the proposal JSON.
func (m *LLMClient) Invoke(ctx context.Context, prompt nlu.Prompt) (nlu.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	menuData, haveMenu := prompt.ToolResult(tools.MenuGetName)
	cartData, haveCart := prompt.ToolResult(tools.CartGetName)

	// Phase 1: no results yet -> fetch menu + cart
	if !haveMenu || !haveCart {
		plan := map[string]any{
			"tool_calls": []map[string]any{
				{"name": tools.MenuGetName, "input": map[string]any{}},
				{"name": tools.CartGetName, "input": map[string]any{}},
			},
		}
		b, err := json.Marshal(plan)
		if err != nil {
			return nlu.Response{}, fmt.Errorf("marshal plan: %w", err)
		}
		slog.Info("LLM_CLIENT: Returning plan for menu_get and cart_get")
		return nlu.Response{Content: string(b)}, nil
	}

	if msg, ok := menuData["error"].(string); ok {
		return nlu.Response{}, fmt.Errorf("menu unavailable: %s", msg)
	}

	// Phase 2: both results present -> read the utterance
	lex := newLexicon(menuData)
	p := lex.interpret(utteranceOf(prompt.Task()), cartItems(cartData))

	b, err := json.Marshal(p)
	if err != nil {
		return nlu.Response{}, fmt.Errorf("marshal proposal: %w", err)
	}
	slog.Info("LLM_CLIENT: Returning proposal", "updates", len(p.Updates), "intent", p.Intent)
	return nlu.Response{Content: string(b)}, nil
}

// utteranceOf pulls the customer's words out of the task text.
func utteranceOf(task string) string {
	idx := strings.LastIndex(task, nlu.UtterancePrefix)
	if idx == -1 {
		return strings.TrimSpace(task)
	}
	return strings.TrimSpace(task[idx+len(nlu.UtterancePrefix):])
}

// cartItems lists the item names of the cart_get lines in cart order.
func cartItems(data map[string]any) []string {
	lines, _ := data["lines"].([]any)
	out := make([]string, 0, len(lines))
	for _, raw := range lines {
		line, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := line["item"].(string); ok {
			out = append(out, name)
		}
	}
	return out
}
