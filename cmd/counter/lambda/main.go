package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"orderagent"
	"orderagent/counter"
	"orderagent/nlu"
	"orderagent/nlu/bedrock"
	"orderagent/order"
	"orderagent/session"
	"orderagent/slack"
	"orderagent/storage"
)

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

	var s3Config orderagent.S3Config
	if err := envdecode.Decode(&s3Config); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		log.Fatalf("SETUP: Failed to load AWS config: %s", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)

	catalog, err := orderagent.LoadCatalog(ctx, storage.NewS3MenuSource(s3Client, s3Config.Bucket, s3Config.MenuKey), cfg)
	if err != nil {
		log.Fatalf("SETUP: %s", err)
	}
	slog.Info("SETUP: S3 menu and order store initialized", "bucket", s3Config.Bucket)

	llm := bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
		ModelID:     modelConfig.ModelID,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		TopP:        modelConfig.TopP,
	})

	tracerProvider, meterProvider, otelShutdown, err := orderagent.InitOtel(ctx)
	if err != nil {
		log.Fatalf("SETUP: Failed to initialize OpenTelemetry: %s", err)
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	var kitchen orderagent.KitchenNotifier
	if cfg.KitchenWebhookURL != "" {
		kitchen = slack.NewClient(cfg.KitchenWebhookURL, cfg.KitchenChannel, nil)
	}

	logger := orderagent.NewStdoutLogger()
	svc := counter.NewInstrumentedService(
		nlu.NewCoordinator(llm, catalog, cfg.MaxIterations, logger).WithHistoryTurns(cfg.HistoryTurns),
		order.NewEngine(catalog, cfg.HistoryTurns),
		session.NewManager(storage.NewS3OrderStore(s3Client, s3Config.Bucket, s3Config.OrdersPrefix)),
		kitchen,
		logger,
		tracerProvider.Tracer(orderagent.TracerNameCounter),
		meterProvider.Meter(orderagent.MeterNameCounter),
	)

	fn := func(ctx context.Context, req counter.ChatRequest) (counter.ChatResponse, error) {
		// Export before the execution environment is frozen.
		defer func() {
			if err := errors.Join(tracerProvider.ForceFlush(ctx), meterProvider.ForceFlush(ctx)); err != nil {
				slog.Error("RESULT: Failed to flush telemetry", "error", err)
			}
		}()

		resp, err := svc.Handle(ctx, req)
		if err != nil {
			slog.Error("RESULT: Error handling turn", "error", err)
			return counter.ChatResponse{}, err
		}
		return resp, nil
	}

	lambda.Start(fn)
}
