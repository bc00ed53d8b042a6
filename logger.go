package orderagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// CoordinationLogger records each round trip between the interpreter and its model.
type CoordinationLogger interface {
	LogIteration(iteration IterationLog) error
}

// TurnLogger records one entry per conversation turn.
type TurnLogger interface {
	LogTurn(turn TurnLog) error
}

// NewLogFilePath returns a file path based on a cleaned up model name or id to
// make it easier to identify logs produced with various models.
func NewLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// IterationLog represents a single iteration of the interpreter loop
type IterationLog struct {
	Iteration int           `json:"iteration"`
	Timestamp time.Time     `json:"timestamp"`
	LLMInput  string        `json:"llm_input,omitempty"`
	LLMOutput any           `json:"llm_output"`
	ToolCalls []ToolCallLog `json:"tool_calls,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ToolCallLog represents a tool execution within an iteration
type ToolCallLog struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Output map[string]any `json:"output"`
	Error  string         `json:"error,omitempty"`
}

// TurnLog is what happened in one turn, from utterance to reply.
type TurnLog struct {
	OrderID   string    `json:"order_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Utterance string    `json:"utterance"`
	Proposal  any       `json:"proposal,omitempty"`
	Outcome   string    `json:"outcome"`
	Cart      string    `json:"cart"`
	Total     string    `json:"total"`
	Guardrail string    `json:"guardrail,omitempty"`
	Reply     string    `json:"reply"`
	Error     string    `json:"error,omitempty"`
}

// FileLogger accumulates iterations and turns and writes them out on Flush.
type FileLogger struct {
	mu         sync.Mutex
	iterations []IterationLog
	turns      []TurnLog
	writer     io.Writer
}

// NewFileLogger creates a new buffered file logger
func NewFileLogger(writer io.Writer) *FileLogger {
	return &FileLogger{
		iterations: make([]IterationLog, 0),
		turns:      make([]TurnLog, 0),
		writer:     writer,
	}
}

// LogIteration logs an iteration to the buffer (does not flush immediately)
func (l *FileLogger) LogIteration(iteration IterationLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.iterations = append(l.iterations, iteration)
	return nil
}

// LogTurn logs a turn to the buffer (does not flush immediately)
func (l *FileLogger) LogTurn(turn TurnLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turn)
	return nil
}

// Flush writes all accumulated entries to the writer and clears the buffer.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"counter_session": map[string]any{
			"timestamp":  time.Now(),
			"turns":      l.turns,
			"iterations": l.iterations,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write session log: %w", err)
	}

	l.iterations = l.iterations[:0]
	l.turns = l.turns[:0]
	return nil
}

// NoOpLogger discards all log entries
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (NoOpLogger) LogIteration(IterationLog) error { return nil }

func (NoOpLogger) LogTurn(TurnLog) error { return nil }

// StdoutLogger writes each entry as a JSON line (for Lambda/CloudWatch)
type StdoutLogger struct {
	w io.Writer
}

func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{w: os.Stdout}
}

func (l *StdoutLogger) LogIteration(iteration IterationLog) error {
	return l.writeLine("iteration", iteration)
}

func (l *StdoutLogger) LogTurn(turn TurnLog) error {
	return l.writeLine("turn", turn)
}

func (l *StdoutLogger) writeLine(kind string, v any) error {
	data, err := json.Marshal(map[string]any{kind: v})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
