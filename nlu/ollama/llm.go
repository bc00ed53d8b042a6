package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"orderagent"
	"orderagent/nlu"
	"orderagent/tools"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

// Client talks to the Ollama chat API with native tool calling.
type Client struct {
	endpoint   string
	model      string
	httpClient orderagent.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   orderagent.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimSuffix(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.1,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
		},
	}, nil
}

// Message is an Ollama chat message. Tool results use role "tool" and carry
// the function name.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Name      string         `json:"name,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

// Tool represents a tool in Ollama's native format
type Tool struct {
	Type     string     `json:"type"`
	Function ToolSchema `json:"function"`
}

// ToolSchema represents the function schema for Ollama tools
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type wireToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type wireResponse struct {
	Message Message `json:"message"`
	// other metadata omitted but available
}

type wireRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options,omitempty"`
}

// Invoke sends the prompt to the Ollama API. Text content is returned
// verbatim; deciding between tool calls and a final answer is left to the
// coordinator.
func (c *Client) Invoke(ctx context.Context, prompt nlu.Prompt) (nlu.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages), "model", c.model)

	reqBody := wireRequest{
		Model:    c.model,
		Messages: c.buildRequest(prompt),
		Tools:    buildTools(prompt.Tools),
		Stream:   false,
		Options:  c.options,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nlu.Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nlu.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nlu.Response{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nlu.Response{}, fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("LLM_CLIENT: decode failed, returning raw", "err", err, "body", string(body))
		return nlu.Response{Content: string(body)}, nil
	}

	out := nlu.Response{Content: wr.Message.Content}
	for _, call := range wr.Message.ToolCalls {
		input := call.Function.Arguments
		if input == nil {
			input = map[string]any{}
		}
		out.ToolCalls = append(out.ToolCalls, tools.Call{Name: call.Function.Name, Input: input})
	}
	return out, nil
}

// buildRequest converts the prompt into Ollama chat messages.
// - Text parts become content
// - Tool uses become assistant tool_calls
// - Each tool result becomes its own role=tool message named after the tool
func (c *Client) buildRequest(prompt nlu.Prompt) []Message {
	messages := make([]Message, 0, len(prompt.Messages)+2)

	for _, m := range prompt.Messages {
		role := m.Role
		switch role {
		case "system", "user", "assistant":
		default:
			slog.Warn("ollama: unknown role, coercing to user", "role", m.Role)
			role = "user"
		}

		msg := Message{Role: role, Content: m.Content.Join()}
		var results []Message
		for _, part := range m.Content {
			switch part.Type {
			case nlu.PartToolUse:
				var call wireToolCall
				call.Function.Name = part.ToolName
				call.Function.Arguments = part.Data
				msg.ToolCalls = append(msg.ToolCalls, call)
			case nlu.PartToolResult:
				if strings.TrimSpace(part.ToolName) == "" {
					slog.Warn("ollama: dropping tool result without name")
					continue
				}
				b, err := json.Marshal(part.Data)
				if err != nil {
					slog.Warn("ollama: dropping unencodable tool result", "tool", part.ToolName, "error", err)
					continue
				}
				results = append(results, Message{Role: "tool", Name: part.ToolName, Content: string(b)})
			}
		}

		if msg.Content != "" || len(msg.ToolCalls) > 0 {
			messages = append(messages, msg)
		}
		messages = append(messages, results...)
	}

	return messages
}

// buildTools converts tool specs to Ollama's function format.
func buildTools(specs []nlu.ToolSpec) []Tool {
	out := make([]Tool, 0, len(specs))
	for _, spec := range specs {
		parameters := map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
		if spec.InputSchema != nil {
			if len(spec.InputSchema.Properties) > 0 {
				parameters["properties"] = spec.InputSchema.Properties
			}
			if len(spec.InputSchema.Required) > 0 {
				parameters["required"] = spec.InputSchema.Required
			}
		}
		out = append(out, Tool{
			Type: "function",
			Function: ToolSchema{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  parameters,
			},
		})
	}
	return out
}
