package nlu

import (
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"orderagent/tools"
)

// MessagePart is one block of a message: text, a tool use requested by the
// model, or the result of running that tool.
type MessagePart struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

const (
	PartText       = "text"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
)

type MessageParts []MessagePart

// Join concatenates the text parts.
func (mp MessageParts) Join() string {
	var b strings.Builder
	for _, part := range mp {
		if part.Type == PartText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

type Message struct {
	Role    string       `json:"role"`
	Content MessageParts `json:"content"`
}

// TextMessage is a message with a single text part.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: MessageParts{{Type: PartText, Text: text}}}
}

type ToolResult struct {
	ToolUseID string
	ToolName  string
	Data      map[string]any
}

// NewToolResultMessage wraps tool results in a user message, one part per result.
func NewToolResultMessage(results []ToolResult) Message {
	var parts MessageParts
	for _, result := range results {
		parts = append(parts, MessagePart{
			Type:      PartToolResult,
			ToolUseID: result.ToolUseID,
			ToolName:  result.ToolName,
			Data:      result.Data,
		})
	}
	return Message{
		Role:    "user",
		Content: parts,
	}
}

// ToolSpec describes a tool to the model.
type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Prompt is the backend-neutral conversation handed to an LLM client. The
// first message is the system prompt.
type Prompt struct {
	Messages []Message  `json:"messages"`
	Tools    []ToolSpec `json:"tools,omitempty"`
}

// HasToolResult reports whether a result for the named tool is already in the
// conversation.
func (p *Prompt) HasToolResult(tool string) bool {
	_, ok := p.ToolResult(tool)
	return ok
}

// ToolResult returns the most recent result data for the named tool.
func (p *Prompt) ToolResult(tool string) (map[string]any, bool) {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		for _, part := range p.Messages[i].Content {
			if part.Type == PartToolResult && part.ToolName == tool {
				return part.Data, true
			}
		}
	}
	return nil, false
}

// Task returns the text of the first user message.
func (p *Prompt) Task() string {
	for _, m := range p.Messages {
		if m.Role == "user" {
			return m.Content.Join()
		}
	}
	return ""
}

// Response represents the model's response structure.
type Response struct {
	Content   string       `json:"content,omitempty"`
	ToolCalls []tools.Call `json:"tool_calls,omitempty"`
}

// ParseModelOutput extracts {"tool_calls":[...]} objects embedded in the text
// of models without native tool calling. Tool calls found are appended to
// ToolCalls and removed from Content; any other text or JSON stays in Content.
func (r *Response) ParseModelOutput() error {
	s := strings.TrimSpace(r.Content)
	if s == "" {
		r.Content = ""
		return nil
	}

	var content strings.Builder
	var calls []tools.Call

	i := 0
	for i < len(s) {
		start := strings.IndexByte(s[i:], '{')
		if start == -1 {
			content.WriteString(s[i:])
			break
		}
		start += i
		content.WriteString(s[i:start])

		end, ok := matchingBrace(s, start)
		if !ok {
			content.WriteString(s[start:])
			break
		}

		obj := s[start : end+1]
		var probe struct {
			ToolCalls []tools.Call `json:"tool_calls"`
		}
		if err := json.Unmarshal([]byte(obj), &probe); err == nil && len(probe.ToolCalls) > 0 {
			for _, tc := range probe.ToolCalls {
				calls = append(calls, tools.Call{Name: tc.Name, Input: tc.Input, ToolUseID: tc.ToolUseID})
			}
		} else {
			content.WriteString(obj)
		}
		i = end + 1
	}

	r.Content = strings.TrimSpace(content.String())
	r.ToolCalls = append(r.ToolCalls, calls...)
	return nil
}

// matchingBrace returns the index of the brace closing the object that opens
// at start, skipping braces inside JSON strings.
func matchingBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
