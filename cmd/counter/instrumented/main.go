package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"orderagent"
	"orderagent/counter"
	"orderagent/nlu"
	"orderagent/nlu/ollama"
	"orderagent/order"
	"orderagent/session"
	"orderagent/slack"
	"orderagent/storage"
)

// defaultConversation is replayed when no utterances are given on the command line.
var defaultConversation = []string{
	"Hi",
	"Can I get a Latte?",
	"Large.",
	"Iced.",
	"Oat milk.",
	"Yeah, add a banana bread",
	"No, that's all, thanks!",
}

func main() {
	ctx := context.Background()

	var modelConfig orderagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var cfg orderagent.CounterConfig
	if err := envdecode.Decode(&cfg); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var src storage.MenuSource
	if cfg.MenuPath != "" {
		src = storage.NewFileMenuSource(cfg.MenuPath)
	}
	catalog, err := orderagent.LoadCatalog(ctx, src, cfg)
	if err != nil {
		slog.Error("SETUP: Failed to load menu", "error", err)
		return
	}

	logger, cleanup, err := newFileLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create session logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush session log", "error", err)
		}
	}()

	llm, err := ollama.NewClient(ollama.ClientOpts{
		BaseEndpoint: cfg.BaseOllamaEndpoint,
		ModelID:      modelConfig.ModelID,
		HTTPClient:   http.DefaultClient,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "error", err)
		return
	}

	tracerProvider, meterProvider, otelShutdown, err := orderagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(orderagent.TracerNameCounter)
	meter := meterProvider.Meter(orderagent.MeterNameCounter)

	ctx, span := tracer.Start(ctx, orderagent.TracerNameCounter, trace.WithAttributes(
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("counter.max_iterations", cfg.MaxIterations),
		attribute.Int("counter.history_turns", cfg.HistoryTurns),
	))
	defer span.End()

	// Without a webhook, tickets go to a local server that logs them.
	webhookURL := cfg.KitchenWebhookURL
	if webhookURL == "" {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(bytes.Buffer)
			body.ReadFrom(r.Body) // nolint: errcheck
			slog.Info("KITCHEN: Received ticket",
				"method", r.Method,
				"path", r.URL.Path,
				"body", body.String(),
			)
			w.WriteHeader(http.StatusOK)
		}))
		defer testServer.Close()
		webhookURL = testServer.URL
	}

	interp := nlu.NewCoordinator(llm, catalog, cfg.MaxIterations, logger).WithHistoryTurns(cfg.HistoryTurns)
	svc := counter.NewInstrumentedService(
		interp,
		order.NewEngine(catalog, cfg.HistoryTurns),
		session.NewManager(storage.NewFileOrderStore(cfg.OrdersDir)),
		slack.NewClient(webhookURL, cfg.KitchenChannel, http.DefaultClient),
		logger,
		tracer,
		meter,
	)

	utterances := defaultConversation
	if len(os.Args) > 1 {
		utterances = os.Args[1:]
	}

	var (
		orderID string
		history order.History
	)
	for _, msg := range utterances {
		resp, err := svc.Handle(ctx, counter.ChatRequest{Message: msg, OrderID: orderID, History: history})
		if err != nil {
			slog.Error("FAILURE: Error handling turn", "message", msg, "error", err)
			return
		}
		slog.Info("RESULT: Turn handled", "customer", msg, "barista", resp.Text, "cart", resp.Cart, "total", resp.CartTotal, "outcome", resp.Outcome)
		if resp.OrderComplete {
			slog.Info("RESULT: Order sent to the kitchen", "receipt", resp.Receipt)
		}

		orderID = resp.OrderID
		history = append(history,
			order.Turn{Role: order.RoleCustomer, Text: msg},
			order.Turn{Role: order.RoleAssistant, Text: resp.Text},
		)
	}
}

type fileLogger interface {
	orderagent.CoordinationLogger
	orderagent.TurnLogger
}

func newFileLogger(modelID string) (fileLogger, func() error, error) {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(orderagent.NewLogFilePath(modelID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := orderagent.NewFileLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
