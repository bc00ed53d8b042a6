package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orderagent"
	"orderagent/order"
	"orderagent/session"
)

// ErrEmptyMessage is returned for a request without anything to interpret.
var ErrEmptyMessage = errors.New("message is required")

const replyNotUnderstood = "Sorry, I had trouble with that. Could you say it again?"

// ChatRequest is one customer turn as it arrives from the client.
type ChatRequest struct {
	Message string        `json:"message"`
	OrderID string        `json:"orderId,omitempty"`
	History order.History `json:"history,omitempty"`
}

// ChatResponse is what the client shows after a turn. OrderID is empty once
// the order has been sent to the kitchen.
type ChatResponse struct {
	Text          string          `json:"text"`
	OrderID       string          `json:"orderId"`
	OrderComplete bool            `json:"orderComplete"`
	Cart          []string        `json:"cart"`
	CartTotal     string          `json:"cartTotal"`
	Receipt       string          `json:"receipt,omitempty"`
	Guardrail     string          `json:"guardrail,omitempty"`
	Missing       []order.Missing `json:"missing,omitempty"`
	Outcome       order.Outcome   `json:"outcome"`
}

// Service handles a turn end to end: load the order, interpret the
// utterance, run the engine, persist and notify the kitchen on close.
type Service struct {
	interpreter orderagent.Interpreter
	engine      *order.Engine
	sessions    *session.Manager
	kitchen     orderagent.KitchenNotifier
	logger      orderagent.TurnLogger
}

// NewService wires a counter. kitchen and log may be nil.
func NewService(interp orderagent.Interpreter, engine *order.Engine, sessions *session.Manager, kitchen orderagent.KitchenNotifier, log orderagent.TurnLogger) *Service {
	return &Service{
		interpreter: interp,
		engine:      engine,
		sessions:    sessions,
		kitchen:     kitchen,
		logger:      log,
	}
}

// Handle runs one turn. Errors are returned only when the order could not be
// loaded or saved; everything else is answered in the response.
func (s *Service) Handle(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	resp, _, err := s.handle(ctx, req)
	return resp, err
}

func (s *Service) handle(ctx context.Context, req ChatRequest) (ChatResponse, order.Result, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return ChatResponse{}, order.Result{}, ErrEmptyMessage
	}

	sess, err := s.sessions.Open(ctx, req.OrderID)
	if err != nil {
		return ChatResponse{}, order.Result{}, fmt.Errorf("open order: %w", err)
	}
	slog.Info("COUNTER: Turn started", "order_id", sess.ID, "lines", len(sess.Lines))

	turn := orderagent.TurnLog{OrderID: sess.ID, Timestamp: time.Now(), Utterance: msg}

	proposal, ierr := s.interpreter.Interpret(ctx, msg, sess.Lines, req.History)
	if ierr != nil {
		slog.Error("COUNTER: Interpreter failed", "error", ierr, "order_id", sess.ID)
		turn.Error = ierr.Error()
		proposal = order.Proposal{Intent: order.IntentOther}
	}
	turn.Proposal = proposal

	res := s.engine.Turn(order.Input{
		Prior:     sess.Lines,
		Proposal:  proposal,
		Utterance: msg,
		History:   req.History,
	})
	if ierr != nil {
		res.Reply = replyNotUnderstood
	}
	if res.Outcome == order.OutcomeInternal {
		slog.Error("COUNTER: Engine rejected turn", "error", res.Err, "order_id", sess.ID)
	}

	resp := ChatResponse{
		Text:      res.Reply,
		Guardrail: res.Guardrail,
		Missing:   res.Decision.Missing,
		Outcome:   res.Outcome,
	}

	switch {
	case res.Outcome == order.OutcomeClosed:
		archived, err := s.sessions.Close(ctx, sess, res.Receipt)
		if err != nil {
			s.logTurn(turn, res, err)
			return ChatResponse{}, res, fmt.Errorf("close order: %w", err)
		}
		s.sendTicket(ctx, orderagent.Ticket{OrderID: archived.ID, Receipt: res.Receipt})

		resp.OrderComplete = true
		resp.Receipt = res.Receipt.String()
		resp.Cart = []string{}
		resp.CartTotal = res.Total.String()
		turn.OrderID = archived.ID

	case res.Outcome == order.OutcomeReset || !res.Cart.Equal(sess.Lines):
		next, err := s.sessions.Apply(ctx, sess, res.Cart, res.Total)
		if err != nil {
			s.logTurn(turn, res, err)
			return ChatResponse{}, res, fmt.Errorf("save order: %w", err)
		}
		sess = next
		fallthrough

	default:
		resp.OrderID = sess.ID
		resp.Cart = res.Cart.Lines()
		resp.CartTotal = res.Total.String()
		turn.OrderID = sess.ID
	}

	slog.Info("COUNTER: Turn finished", "order_id", turn.OrderID, "outcome", res.Outcome, "total", resp.CartTotal)
	s.logTurn(turn, res, nil)
	return resp, res, nil
}

func (s *Service) sendTicket(ctx context.Context, t orderagent.Ticket) {
	if s.kitchen == nil {
		return
	}
	if err := s.kitchen.SendTicket(ctx, t); err != nil {
		// The order is already archived with status new; the kitchen queue
		// still has it.
		slog.Error("COUNTER: Failed to send kitchen ticket", "order_id", t.OrderID, "error", err)
	}
}

func (s *Service) logTurn(turn orderagent.TurnLog, res order.Result, err error) {
	if s.logger == nil {
		return
	}
	turn.Outcome = string(res.Outcome)
	turn.Cart = res.Cart.String()
	turn.Total = res.Total.String()
	turn.Guardrail = res.Guardrail
	turn.Reply = res.Reply
	if err != nil {
		turn.Error = err.Error()
	}
	if res.Receipt != nil {
		turn.Cart = res.Receipt.Items.String()
		turn.Total = res.Receipt.Total.String()
	}
	if lerr := s.logger.LogTurn(turn); lerr != nil {
		slog.Error("COUNTER: Failed to log turn", "error", lerr)
	}
}
