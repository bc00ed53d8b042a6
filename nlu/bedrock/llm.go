package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"orderagent/nlu"
	"orderagent/tools"
)

const (
	// defaultModelID is an inference profile ID, not a foundation model ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-5-haiku-20241022-v1:0"

	// A proposal is small; 512 tokens leaves room for a tool plan as well.
	defaultMaxTokens = 512

	// Low temperature keeps tool use and JSON output consistent.
	defaultTemperature = 0.1

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{
		brc:  brc,
		opts: opts,
	}
}

func (c *LLMClient) Invoke(ctx context.Context, prompt nlu.Prompt) (nlu.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	var sys []types.SystemContentBlock
	for _, m := range prompt.Messages {
		if m.Role == "system" {
			sys = append(sys, &types.SystemContentBlockMemberText{Value: m.Content.Join()})
		}
	}

	var msgs []types.Message
	for _, m := range prompt.Messages {
		if m.Role == "system" {
			continue // already handled above
		}
		msg := types.Message{Role: types.ConversationRole(m.Role)}

		for _, part := range m.Content {
			switch part.Type {
			case nlu.PartText:
				if part.Text == "" {
					continue
				}
				msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: part.Text})

			case nlu.PartToolUse:
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
					ToolUseId: aws.String(part.ToolUseID),
					Name:      aws.String(part.ToolName),
					Input:     document.NewLazyDocument(copyData(part.Data)),
				}})
				slog.Debug("LLM_CLIENT: Added tool use content", "tool_name", part.ToolName, "tool_use_id", part.ToolUseID)

			case nlu.PartToolResult:
				result := copyData(part.Data)
				status := types.ToolResultStatusSuccess
				if _, failed := result["error"]; failed {
					status = types.ToolResultStatusError
				}
				msg.Content = append(msg.Content, &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
					ToolUseId: aws.String(part.ToolUseID),
					Status:    status,
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(result)},
					},
				}})
				slog.Debug("LLM_CLIENT: Added tool result content", "tool_use_id", part.ToolUseID, "status", status)
			}
		}

		if len(msg.Content) > 0 {
			msgs = append(msgs, msg)
		}
	}

	var specs []types.Tool
	for _, t := range prompt.Tools {
		spec, err := buildToolSpec(t)
		if err != nil {
			slog.Error("LLM_CLIENT: Failed to build tool spec", "error", err)
			continue
		}
		specs = append(specs, &types.ToolMemberToolSpec{Value: spec})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  &c.opts.ModelID,
		System:   sys,
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
	}
	if len(specs) > 0 {
		in.ToolConfig = &types.ToolConfiguration{Tools: specs, ToolChoice: &types.ToolChoiceMemberAuto{}}
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("LLM_CLIENT: Bedrock invoke failed", "error", err, "model", c.opts.ModelID)
		return nlu.Response{}, err
	}

	attrs := []any{"stop_reason", out.StopReason}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	if out.Usage != nil {
		attrs = append(attrs, "input_tokens", aws.ToInt32(out.Usage.InputTokens), "output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	slog.Info("LLM_CLIENT: Bedrock invoke succeeded", attrs...)

	switch out.StopReason {
	case "tool_use":
		calls := toolCallsFromOutput(out)
		slog.Info("LLM_CLIENT: Extracted tool calls", "calls_len", len(calls))
		return nlu.Response{ToolCalls: calls}, nil

	case "end_turn", "stop_sequence":
		text := textFromOutput(out)
		// The coordinator nudges the model on a bad proposal, so this only logs.
		if _, err := nlu.DecodeProposal(text); err != nil {
			slog.Warn("LLM_CLIENT: Final text is not a proposal", "error", err, "text_len", len(text))
		}
		return nlu.Response{Content: text}, nil

	case "max_tokens":
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit")
		return nlu.Response{}, fmt.Errorf("model hit MaxTokens limit; consider increasing MaxTokens")

	case "guardrail_intervened", "content_filtered":
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return nlu.Response{}, fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		return nlu.Response{Content: textFromOutput(out), ToolCalls: toolCallsFromOutput(out)}, nil
	}
}

// copyData round-trips tool data through JSON so the document encoder sees
// plain maps, slices and numbers.
func copyData(data map[string]any) map[string]any {
	out := make(map[string]any)
	if data == nil {
		return out
	}
	b, err := json.Marshal(data)
	if err == nil && json.Unmarshal(b, &out) == nil {
		return out
	}
	slog.Error("LLM_CLIENT: Failed to copy tool data", "error", err)
	out = make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// buildToolSpec constructs a ToolSpecification for a tool. The schema is
// marshaled first so its own MarshalJSON decides the wire shape.
func buildToolSpec(t nlu.ToolSpec) (types.ToolSpecification, error) {
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}
	if schemaMap == nil {
		schemaMap = map[string]any{"type": "object"}
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput returns the assistant text. A block that is a single JSON
// object wins; otherwise the blocks are joined with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return ""
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}

	for i := len(texts) - 1; i >= 0; i-- {
		s := strings.TrimSpace(texts[i])
		if len(s) > 1 && s[0] == '{' && s[len(s)-1] == '}' {
			return s
		}
	}
	return strings.Join(texts, "\n")
}

// toolCallsFromOutput extracts tool uses emitted by the assistant.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) []tools.Call {
	var calls []tools.Call

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return calls
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		var input map[string]any
		if tu.Value.Input == nil || tu.Value.Input.UnmarshalSmithyDocument(&input) != nil || input == nil {
			input = map[string]any{}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     normalizeInput(input).(map[string]any),
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls
}

// normalizeInput recursively coerces types for safe downstream use.
func normalizeInput(val any) any {
	switch v := val.(type) {
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
		return v

	case string:
		// Some models stringify nested arrays and objects.
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			var decoded any
			if json.Unmarshal([]byte(trimmed), &decoded) == nil {
				return normalizeInput(decoded)
			}
		}
		return v

	case []any:
		for i := range v {
			v[i] = normalizeInput(v[i])
		}
		return v

	case map[string]any:
		for key, val := range v {
			v[key] = normalizeInput(val)
		}
		return v

	default:
		return v
	}
}
