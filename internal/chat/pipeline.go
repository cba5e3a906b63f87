// Package chat is the conversational front door: it runs one message at a
// time through the confirmation gate, the classifier and the dispatcher.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/audit"
	"github.com/ggonzalez94/seichat/internal/compose"
	"github.com/ggonzalez94/seichat/internal/dispatch"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/llm"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/policy"
	"github.com/ggonzalez94/seichat/internal/session"
	"github.com/ggonzalez94/seichat/internal/store"
)

// Generator produces free-form replies. Its failures are never shown to the user.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []model.HistoryMessage) (llm.Reply, error)
}

// Response is the displayable outcome of one message.
type Response struct {
	Message     string         `json:"message"`
	Success     bool           `json:"success"`
	Intent      intent.Kind    `json:"intent"`
	Confidence  float64        `json:"confidence"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

type Stats struct {
	SessionID    string      `json:"sessionId"`
	MessageCount int         `json:"messageCount"`
	SuccessCount int         `json:"successCount"`
	FailureCount int         `json:"failureCount"`
	LastAction   intent.Kind `json:"lastAction,omitempty"`
	HasPending   bool        `json:"hasPending"`
}

// Pipeline owns one session. Messages are processed strictly one after
// another.
type Pipeline struct {
	mu sync.Mutex

	id         string
	state      *session.Context
	dispatcher *dispatch.Dispatcher
	history    *History
	generator  Generator
	allowlist  []string
	audit      audit.Sink
	store      store.Store
	log        *zap.Logger
}

type Option func(*Pipeline)

func WithSessionID(id string) Option { return func(p *Pipeline) { p.id = id } }
func WithGenerator(g Generator) Option { return func(p *Pipeline) { p.generator = g } }
func WithAllowlist(intents []string) Option { return func(p *Pipeline) { p.allowlist = intents } }
func WithAudit(s audit.Sink) Option { return func(p *Pipeline) { p.audit = s } }
func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.log = l } }
func WithHistoryStore(s store.Store) Option { return func(p *Pipeline) { p.store = s } }

// New builds a pipeline. A persisted transcript for the session id is
// restored when a history store is configured.
func New(ctx context.Context, d *dispatch.Dispatcher, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		state:      session.New(),
		dispatcher: d,
		audit:      audit.Discard{},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.id == "" {
		p.id = uuid.NewString()
	}
	p.audit = audit.WithSession(p.audit, p.id)
	p.log = p.log.With(zap.String("session_id", p.id))
	h, err := loadHistory(ctx, p.store, p.id)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "restore chat history", err)
	}
	p.history = h
	return p, nil
}

func (p *Pipeline) SessionID() string { return p.id }

// ProcessMessage handles one user message and always returns a displayable
// response.
func (p *Pipeline) ProcessMessage(ctx context.Context, text string) (resp Response) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("message processing panicked", zap.Any("panic", r))
			resp = Response{Message: "Something went wrong while processing your message. Please try again.", Intent: intent.Unknown}
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return Response{Message: "Please type a message.", Intent: intent.Unknown, Suggestions: dispatch.Examples(4)}
	}
	p.appendHistory(ctx, RoleUser, text)
	resp = p.process(ctx, text)
	p.appendHistory(ctx, RoleAssistant, resp.Message)
	p.log.Debug("message processed",
		zap.String("intent", string(resp.Intent)),
		zap.Float64("confidence", resp.Confidence),
		zap.Bool("success", resp.Success),
	)
	return resp
}

func (p *Pipeline) process(ctx context.Context, text string) Response {
	if decision := session.Check(p.state, text); decision.Verdict != session.Pass {
		return p.resolvePending(ctx, decision)
	}

	res := intent.Parse(text)
	if res.Confidence < intent.FallbackThreshold {
		res.Kind = intent.Unknown
	}
	if !res.Actionable() && !intent.HasActionVerb(text) {
		if resp, ok := p.generate(ctx, text, res); ok {
			p.state.Observe(intent.Conversation, "", true)
			return resp
		}
	}

	if err := policy.CheckIntentAllowed(p.allowlist, res.Kind); err != nil {
		p.record(ctx, audit.Event{Type: audit.EventIntentBlocked, Severity: audit.SeverityCaution, Intent: string(res.Kind), Message: err.Error()})
		p.state.Observe(res.Kind, "", false)
		return Response{
			Message:    err.Error(),
			Intent:     res.Kind,
			Confidence: res.Confidence,
			Data:       map[string]any{dispatch.DataErrorType: clierr.Kind(err)},
		}
	}

	result := p.dispatcher.Dispatch(ctx, res, p.state.View())
	if pending := result.Pending(); pending != nil {
		if err := p.state.SetPending(pending); err != nil {
			p.log.Error("pending slot occupied", zap.Error(err))
			p.state.Observe(res.Kind, "", false)
			return Response{Message: err.Error(), Intent: res.Kind, Confidence: res.Confidence}
		}
	}
	msg, suggestions := compose.Message(res.Kind, result)
	p.state.Observe(res.Kind, result.TokenAddress(), result.Success)
	return Response{
		Message:     msg,
		Success:     result.Success,
		Intent:      res.Kind,
		Confidence:  res.Confidence,
		Suggestions: suggestions,
		Data:        result.Data,
	}
}

// resolvePending answers a message while an action awaits confirmation.
func (p *Pipeline) resolvePending(ctx context.Context, d session.Decision) Response {
	kind := d.Action.Intent()
	event := audit.Event{Intent: string(kind), Data: map[string]any{"action": d.Action.Summary()}}
	switch d.Verdict {
	case session.Confirm:
		event.Type, event.Message = audit.EventActionConfirmed, "user confirmed "+d.Action.Summary()
		p.record(ctx, event)
		result := p.dispatcher.Execute(ctx, d.Action)
		msg, suggestions := compose.Message(kind, result)
		p.state.Observe(kind, "", result.Success)
		return Response{Message: msg, Success: result.Success, Intent: kind, Confidence: 1, Suggestions: suggestions, Data: result.Data}
	case session.Cancel:
		event.Type, event.Message = audit.EventActionCancelled, "user cancelled "+d.Action.Summary()
		p.record(ctx, event)
		p.state.Observe(intent.TransferConfirmation, "", true)
		return Response{Message: compose.Cancelled(d.Action), Success: true, Intent: intent.TransferConfirmation, Confidence: 1, Suggestions: compose.Suggestions(kind)}
	default:
		p.state.Observe("", "", true)
		return Response{
			Message:     compose.Reprompt(d.Action),
			Success:     true,
			Intent:      intent.TransferConfirmation,
			Confidence:  1,
			Suggestions: compose.ConfirmSuggestions(),
			Data:        pendingData(d.Action),
		}
	}
}

func pendingData(a session.PendingAction) map[string]any {
	switch v := a.(type) {
	case session.PendingSwap:
		return map[string]any{dispatch.DataPendingSwap: v}
	default:
		return map[string]any{dispatch.DataPendingTransfer: v}
	}
}

// generate asks the LLM for a free-form reply. ok is false when no generator
// is configured or the call failed.
func (p *Pipeline) generate(ctx context.Context, text string, res intent.Result) (Response, bool) {
	if p.generator == nil {
		return Response{}, false
	}
	recent, err := p.history.Recent(ctx, llmWindow)
	if err != nil {
		p.log.Warn("read history for llm", zap.Error(err))
	}
	// The current message is already the last history entry.
	if n := len(recent); n > 0 && recent[n-1].Role == RoleUser && recent[n-1].Content == text {
		recent = recent[:n-1]
	}
	reply, err := p.generator.Generate(ctx, text, recent)
	if err != nil {
		p.log.Info("llm fallback failed, using rule-based reply", zap.Error(err))
		return Response{}, false
	}
	suggestions := reply.Suggestions
	if len(suggestions) == 0 {
		suggestions = dispatch.Examples(3)
	}
	return Response{
		Message:     reply.Message,
		Success:     true,
		Intent:      intent.Conversation,
		Confidence:  res.Confidence,
		Suggestions: suggestions,
		Data:        map[string]any{"source": "llm"},
	}, true
}

func (p *Pipeline) record(ctx context.Context, e audit.Event) {
	if err := p.audit.Record(ctx, e); err != nil {
		p.log.Warn("audit record failed", zap.String("type", e.Type), zap.Error(err))
	}
}

func (p *Pipeline) appendHistory(ctx context.Context, role, content string) {
	if err := p.history.Append(ctx, role, content); err != nil {
		p.log.Warn("history append failed", zap.Error(err))
	}
}

// History returns the session transcript, oldest first.
func (p *Pipeline) History(ctx context.Context) ([]model.HistoryMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.Messages(ctx)
}

// ClearHistory drops the transcript and the conversation context, including
// any pending action. Counters survive.
func (p *Pipeline) ClearHistory(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Reset()
	return p.history.Clear(ctx)
}

func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state.Stats()
	return Stats{
		SessionID:    p.id,
		MessageCount: s.MessageCount,
		SuccessCount: s.SuccessCount,
		FailureCount: s.FailureCount,
		LastAction:   p.state.LastAction,
		HasPending:   p.state.Pending() != nil,
	}
}
