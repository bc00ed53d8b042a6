package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"

	"orderagent"
	"orderagent/counter"
	"orderagent/nlu"
	"orderagent/nlu/mock"
	"orderagent/nlu/ollama"
	"orderagent/order"
	"orderagent/session"
	"orderagent/slack"
	"orderagent/storage"
)

func main() {
	useOllama := flag.Bool("ollama", false, "interpret with a local Ollama model instead of the rule-based mock")
	debug := flag.Bool("debug", false, "dump every response")
	flag.Parse()

	ctx := context.Background()

	var cfg orderagent.CounterConfig
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var src storage.MenuSource
	if cfg.MenuPath != "" {
		src = storage.NewFileMenuSource(cfg.MenuPath)
	}
	catalog, err := orderagent.LoadCatalog(ctx, src, cfg)
	if err != nil {
		log.Fatalf("SETUP: %s", err)
	}

	llm, model, err := newLLM(*useOllama, cfg)
	if err != nil {
		log.Fatalf("SETUP: Failed to create LLM client: %s", err)
	}

	logger, cleanup, err := newFileLogger(model)
	if err != nil {
		log.Fatalf("SETUP: Failed to create session logger: %s", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush session log", "error", err)
		}
	}()

	var kitchen orderagent.KitchenNotifier
	if cfg.KitchenWebhookURL != "" {
		kitchen = slack.NewClient(cfg.KitchenWebhookURL, cfg.KitchenChannel, http.DefaultClient)
	}

	interp := nlu.NewCoordinator(llm, catalog, cfg.MaxIterations, logger).WithHistoryTurns(cfg.HistoryTurns)
	svc := counter.NewService(
		interp,
		order.NewEngine(catalog, cfg.HistoryTurns),
		session.NewManager(storage.NewFileOrderStore(cfg.OrdersDir)),
		kitchen,
		logger,
	)

	fmt.Println("Barista: Hi! What can I get started for you? (Ctrl-D to quit)")

	var (
		orderID string
		history order.History
	)
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); scanner.Scan(); fmt.Print("> ") {
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			continue
		}

		resp, err := svc.Handle(ctx, counter.ChatRequest{Message: msg, OrderID: orderID, History: history})
		if err != nil {
			slog.Error("COUNTER: Turn failed", "error", err)
			fmt.Println("Barista: Sorry, something went wrong on our end. Could you say that again?")
			continue
		}
		if *debug {
			orderagent.Dump(resp)
		}

		fmt.Println("Barista:", resp.Text)
		if len(resp.Cart) > 0 {
			fmt.Printf("  order: %s (%s)\n", strings.Join(resp.Cart, ", "), resp.CartTotal)
		}
		if resp.OrderComplete {
			fmt.Printf("  receipt:\n    %s\n", strings.ReplaceAll(resp.Receipt, "\n", "\n    "))
			history = nil
		} else {
			history = append(history,
				order.Turn{Role: order.RoleCustomer, Text: msg},
				order.Turn{Role: order.RoleAssistant, Text: resp.Text},
			).Recent(cfg.HistoryTurns)
		}
		orderID = resp.OrderID
	}
	fmt.Println()
}

func newLLM(useOllama bool, cfg orderagent.CounterConfig) (nlu.LLM, string, error) {
	if !useOllama {
		return mock.NewLLMClient(), "mock", nil
	}

	var modelConfig orderagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		return nil, "", fmt.Errorf("failed to decode model config: %w", err)
	}
	llm, err := ollama.NewClient(ollama.ClientOpts{
		BaseEndpoint: cfg.BaseOllamaEndpoint,
		ModelID:      modelConfig.ModelID,
		HTTPClient:   http.DefaultClient,
	})
	if err != nil {
		return nil, "", err
	}
	return llm, modelConfig.ModelID, nil
}

type fileLogger interface {
	orderagent.CoordinationLogger
	orderagent.TurnLogger
}

func newFileLogger(model string) (fileLogger, func() error, error) {
	logFilePath := orderagent.NewLogFilePath(model)
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := orderagent.NewFileLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
