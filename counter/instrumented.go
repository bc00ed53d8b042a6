package counter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"orderagent"
	"orderagent/order"
	"orderagent/session"
)

// InstrumentedService is a Service that records a span per turn and the
// counter metrics.
type InstrumentedService struct {
	svc    *Service
	tracer trace.Tracer

	turns       metric.Int64Counter
	turnsFailed metric.Int64Counter
	closed      metric.Int64Counter
	vetoed      metric.Int64Counter
	corrections metric.Int64Counter
	turnTime    metric.Float64Histogram
	orderTotal  metric.Int64Histogram
}

// NewInstrumentedService initializes a new instrumented counter.
func NewInstrumentedService(interp orderagent.Interpreter, engine *order.Engine, sessions *session.Manager, kitchen orderagent.KitchenNotifier, log orderagent.TurnLogger, tracer trace.Tracer, meter metric.Meter) *InstrumentedService {
	s := &InstrumentedService{tracer: tracer}

	s.turns, _ = meter.Int64Counter("counter_turns_total",
		metric.WithDescription("Total number of turns handled"))
	s.turnsFailed, _ = meter.Int64Counter("counter_turns_failed_total",
		metric.WithDescription("Total number of turns that returned an error"))
	s.closed, _ = meter.Int64Counter("orders_closed_total",
		metric.WithDescription("Total number of orders sent to the kitchen"))
	s.vetoed, _ = meter.Int64Counter("closures_vetoed_total",
		metric.WithDescription("Total number of closing requests refused because a line was incomplete"))
	s.corrections, _ = meter.Int64Counter("guardrail_corrections_total",
		metric.WithDescription("Total number of corrections made to lines, by reason"))
	s.turnTime, _ = meter.Float64Histogram("turn_duration_seconds",
		metric.WithDescription("Duration of a turn in seconds"))
	s.orderTotal, _ = meter.Int64Histogram("order_total_cents",
		metric.WithDescription("Total of each closed order in cents"))
	interpTime, _ := meter.Float64Histogram("interpreter_duration_seconds",
		metric.WithDescription("Time taken by the interpreter in seconds"))

	timed := &timedInterpreter{next: interp, tracer: tracer, hist: interpTime}
	s.svc = NewService(timed, engine, sessions, kitchen, log)
	return s
}

// Handle runs one turn with full instrumentation.
func (s *InstrumentedService) Handle(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "InstrumentedService.Handle")
	defer span.End()

	s.turns.Add(ctx, 1)
	start := time.Now()
	resp, res, err := s.svc.handle(ctx, req)
	s.turnTime.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("outcome", string(res.Outcome)),
	))

	for _, c := range res.Corrections {
		s.corrections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(c.Reason))))
	}

	if err != nil {
		s.turnsFailed.Add(ctx, 1)
		span.SetStatus(codes.Error, "Turn failed")
		span.RecordError(err)
		return resp, err
	}

	switch res.Outcome {
	case order.OutcomeClosed:
		s.closed.Add(ctx, 1)
		if res.Receipt != nil {
			s.orderTotal.Record(ctx, int64(res.Receipt.Total))
		}
		span.AddEvent("Order sent to kitchen", trace.WithAttributes(
			attribute.Int("lines", len(res.Receipt.Items)),
		))
	case order.OutcomeVetoed:
		s.vetoed.Add(ctx, 1, metric.WithAttributes(attribute.Int("missing", len(res.Decision.Missing))))
	}

	span.SetAttributes(
		attribute.String("counter.outcome", string(res.Outcome)),
		attribute.String("counter.order_id", resp.OrderID),
		attribute.Int("counter.cart_lines", len(resp.Cart)),
		attribute.String("counter.cart_total", resp.CartTotal),
	)
	if res.Guardrail != "" {
		span.AddEvent("Guardrail applied", trace.WithAttributes(attribute.String("guardrail", res.Guardrail)))
	}
	return resp, nil
}

type timedInterpreter struct {
	next   orderagent.Interpreter
	tracer trace.Tracer
	hist   metric.Float64Histogram
}

func (t *timedInterpreter) Interpret(ctx context.Context, utterance string, cart order.Cart, history order.History) (order.Proposal, error) {
	ctx, span := t.tracer.Start(ctx, "Interpreter.Interpret")
	defer span.End()

	start := time.Now()
	p, err := t.next.Interpret(ctx, utterance, cart, history)
	t.hist.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, "Interpreter failed")
		span.RecordError(err)
		return p, err
	}
	span.SetAttributes(
		attribute.String("nlu.intent", string(p.Intent)),
		attribute.Int("nlu.updates", len(p.Updates)),
		attribute.Bool("nlu.closing", p.Closing),
	)
	return p, nil
}
