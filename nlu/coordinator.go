package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"orderagent"
	"orderagent/menu"
	"orderagent/order"
	"orderagent/tools"
)

// ErrNoProposal is returned when the model does not settle on a proposal
// within the iteration budget.
var ErrNoProposal = errors.New("interpreter produced no proposal")

// maxCallsPerTool bounds how often the model may call the same tool in one turn.
const maxCallsPerTool = 2

// LLM is a chat model that may answer with text or with tool calls.
type LLM interface {
	Invoke(ctx context.Context, prompt Prompt) (Response, error)
}

// Coordinator runs the tool-calling loop between a model and the menu and
// cart tools until the model returns a proposal.
type Coordinator struct {
	llm           LLM
	catalog       *menu.Catalog
	maxIterations int
	historyTurns  int
	logger        orderagent.CoordinationLogger
}

// NewCoordinator initializes a new coordinator.
func NewCoordinator(llm LLM, c *menu.Catalog, maxIter int, log orderagent.CoordinationLogger) *Coordinator {
	if maxIter <= 0 {
		maxIter = 6
	}
	return &Coordinator{
		llm:           llm,
		catalog:       c,
		maxIterations: maxIter,
		historyTurns:  order.DefaultHistoryTurns,
		logger:        log,
	}
}

// WithHistoryTurns bounds how much of the conversation goes into the prompt.
func (c *Coordinator) WithHistoryTurns(n int) *Coordinator {
	if n > 0 {
		c.historyTurns = n
	}
	return c
}

// Interpret asks the model for a proposal for one customer utterance.
func (c *Coordinator) Interpret(ctx context.Context, utterance string, cart order.Cart, history order.History) (order.Proposal, error) {
	ctx, span := otel.Tracer(orderagent.TracerNameInterpreter).Start(ctx, "Coordinator.Interpret")
	defer span.End()

	slog.Info("NLU: Interpreting utterance", "utterance", utterance, "cart_lines", len(cart))

	registry := tools.NewRegistry(c.catalog, cart)
	prompt := NewPrompt(Task{Utterance: utterance, Cart: cart, History: history.Recent(c.historyTurns)}, registry)
	calls := make(map[string]int)

	for iter := 0; iter < c.maxIterations; iter++ {
		iterLog := orderagent.IterationLog{Iteration: iter + 1, Timestamp: time.Now()}

		if b, err := json.Marshal(prompt); err == nil {
			iterLog.LLMInput = string(b)
			slog.Info("NLU: Sending prompt to LLM",
				"iteration", iter+1,
				"messages_count", len(prompt.Messages),
				"tools_count", len(prompt.Tools),
				"prompt_size_bytes", len(b),
			)
		}

		res, err := c.llm.Invoke(ctx, prompt)
		if err != nil {
			iterLog.Error = err.Error()
			c.logIteration(iterLog)
			span.SetStatus(codes.Error, "LLM invoke failed")
			span.RecordError(err)
			return order.Proposal{}, fmt.Errorf("failed to invoke LLM: %w", err)
		}
		iterLog.LLMOutput = res

		contentLength := len(res.Content)
		if err := res.ParseModelOutput(); err != nil {
			iterLog.Error = fmt.Sprintf("failed to parse model output: %v", err)
			c.logIteration(iterLog)
			return order.Proposal{}, fmt.Errorf("failed to parse model output: %w", err)
		}

		slog.Info("NLU: LLM response received",
			"iteration", iter+1,
			"content_length", contentLength,
			"tool_calls", len(res.ToolCalls),
		)

		if len(res.ToolCalls) == 0 {
			p, err := DecodeProposal(res.Content)
			if err != nil {
				slog.Info("NLU: Final output rejected", "iteration", iter+1, "error", err)
				iterLog.Error = err.Error()
				prompt.Messages = append(prompt.Messages, nudge("invalid_final_json", err.Error(),
					"Return ONLY the proposal JSON object described in the instructions."))
				c.logIteration(iterLog)
				continue
			}

			slog.Info("NLU: Proposal accepted", "iteration", iter+1, "updates", len(p.Updates), "closing", p.Closing, "reset", p.Reset, "intent", p.Intent)
			span.SetAttributes(
				attribute.Int("nlu.iterations", iter+1),
				attribute.Int("nlu.updates", len(p.Updates)),
				attribute.String("nlu.intent", string(p.Intent)),
			)
			c.logIteration(iterLog)
			return p, nil
		}

		repeated := ""
		for _, call := range res.ToolCalls {
			calls[call.Name]++
			if calls[call.Name] > maxCallsPerTool {
				repeated = call.Name
			}
		}
		if repeated != "" {
			slog.Warn("NLU: Excessive tool repetition detected", "tool", repeated, "iteration", iter+1)
			iterLog.Error = "excessive tool repetition"
			prompt.Messages = append(prompt.Messages, nudge("excessive_tool_repetition", repeated,
				"You already have the menu and the cart. Return the proposal JSON now."))
			c.logIteration(iterLog)
			continue
		}

		assistantMsg := Message{Role: "assistant", Content: MessageParts{}}
		if res.Content != "" {
			assistantMsg.Content = append(assistantMsg.Content, MessagePart{Type: PartText, Text: res.Content})
		}
		for _, call := range res.ToolCalls {
			assistantMsg.Content = append(assistantMsg.Content, MessagePart{
				Type:      PartToolUse,
				ToolUseID: call.ToolUseID,
				ToolName:  call.Name,
				Data:      call.Input,
			})
		}
		prompt.Messages = append(prompt.Messages, assistantMsg)

		var toolCallLogs []orderagent.ToolCallLog
		var results []ToolResult
		for _, call := range res.ToolCalls {
			slog.Info("NLU: Handling tool call", "name", call.Name, "iteration", iter+1)
			tlog := orderagent.ToolCallLog{Name: call.Name, Input: call.Input}

			tool, err := registry.GetTool(call.Name)
			if err != nil {
				tlog.Error = err.Error()
				toolCallLogs = append(toolCallLogs, tlog)
				results = append(results, ToolResult{
					ToolUseID: call.ToolUseID,
					ToolName:  call.Name,
					Data:      map[string]any{"error": err.Error()},
				})
				continue
			}

			out, err := tool.Run(ctx, call.Input)
			if err != nil {
				tlog.Error = err.Error()
				toolCallLogs = append(toolCallLogs, tlog)
				results = append(results, ToolResult{
					ToolUseID: call.ToolUseID,
					ToolName:  tool.Name(),
					Data:      map[string]any{"error": fmt.Sprintf("tool %q failed: %v", call.Name, err)},
				})
				continue
			}

			tlog.Output = out
			toolCallLogs = append(toolCallLogs, tlog)
			results = append(results, ToolResult{ToolUseID: call.ToolUseID, ToolName: tool.Name(), Data: out})
		}
		prompt.Messages = append(prompt.Messages, NewToolResultMessage(results))

		iterLog.ToolCalls = toolCallLogs
		c.logIteration(iterLog)
	}

	err := fmt.Errorf("%w after %d iterations", ErrNoProposal, c.maxIterations)
	span.SetStatus(codes.Error, "no proposal")
	span.RecordError(err)
	return order.Proposal{}, err
}

func nudge(code, reason, hint string) Message {
	b, _ := json.Marshal(map[string]any{"error": code, "reason": reason, "hint": hint})
	return TextMessage("user", string(b))
}

// logIteration logs a step using the configured logger, handling errors gracefully
func (c *Coordinator) logIteration(iteration orderagent.IterationLog) {
	if c.logger != nil {
		if err := c.logger.LogIteration(iteration); err != nil {
			slog.Error("NLU: Failed to log iteration", "error", err, "iteration", iteration.Iteration)
		}
	}
}

// DecodeProposal reads the proposal object out of a model's final text. Code
// fences and text around the object are ignored.
func DecodeProposal(content string) (order.Proposal, error) {
	s := strings.TrimSpace(content)
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return order.Proposal{}, fmt.Errorf("no JSON object in output")
	}
	end, ok := matchingBrace(s, start)
	if !ok {
		return order.Proposal{}, fmt.Errorf("unterminated JSON object in output")
	}

	var p order.Proposal
	if err := json.Unmarshal([]byte(s[start:end+1]), &p); err != nil {
		return order.Proposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	if err := checkProposal(p); err != nil {
		return order.Proposal{}, err
	}
	return p, nil
}

func checkProposal(p order.Proposal) error {
	switch p.Intent {
	case "", order.IntentOrder, order.IntentMenuQuery, order.IntentSizeQuery,
		order.IntentGreeting, order.IntentAffirm, order.IntentOther:
	default:
		return fmt.Errorf("unknown intent %q", p.Intent)
	}
	for i, u := range p.Updates {
		switch u.Ref {
		case "", order.RefNew, order.RefImplicit, order.RefExplicit:
		default:
			return fmt.Errorf("update %d: unknown ref %q", i, u.Ref)
		}
		switch u.Action {
		case "", order.ActionAdd, order.ActionSet, order.ActionChange, order.ActionRemove, order.ActionReplace:
		default:
			return fmt.Errorf("update %d: unknown action %q", i, u.Action)
		}
		if u.Quantity < 0 {
			return fmt.Errorf("update %d: negative quantity", i)
		}
	}
	return nil
}
