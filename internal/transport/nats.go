// Package transport serves chat sessions over NATS request/reply.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/chat"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/model"
)

const (
	OpMessage = "message"
	OpHistory = "history"
	OpClear   = "clear"
	OpStats   = "stats"
)

// Request is the JSON body of a chat request. SessionID is required; Op
// defaults to message.
type Request struct {
	SessionID string `json:"session_id"`
	Op        string `json:"op,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Config struct {
	URL            string
	Subject        string
	Name           string
	ConnectTimeout time.Duration
	// RequestTimeout bounds a single message, chain calls included.
	RequestTimeout time.Duration
}

// Server answers requests on one subject using a session manager.
type Server struct {
	cfg      Config
	sessions *chat.Manager
	log      *zap.Logger
	now      func() time.Time
	conn     *nats.Conn
	sub      *nats.Subscription
}

func NewServer(cfg Config, sessions *chat.Manager, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Server{cfg: cfg, sessions: sessions, log: log, now: time.Now}
}

// Start connects and subscribes. It returns once the subscription is live.
func (s *Server) Start() error {
	conn, err := nats.Connect(s.cfg.URL,
		nats.Name(s.cfg.Name),
		nats.Timeout(s.cfg.ConnectTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("connect to nats at %s", s.cfg.URL), err)
	}
	sub, err := conn.Subscribe(s.cfg.Subject, s.onMessage)
	if err != nil {
		conn.Close()
		return clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("subscribe to %s", s.cfg.Subject), err)
	}
	s.conn, s.sub = conn, sub
	s.log.Info("serving chat over nats", zap.String("url", s.cfg.URL), zap.String("subject", s.cfg.Subject))
	return nil
}

func (s *Server) onMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	if err := msg.Respond(s.Handle(ctx, msg.Data)); err != nil {
		s.log.Warn("nats respond failed", zap.Error(err))
	}
}

// Handle decodes one request and returns the encoded envelope reply.
func (s *Server) Handle(ctx context.Context, data []byte) []byte {
	var req Request
	env := model.Envelope{Version: model.EnvelopeVersion}
	if err := json.Unmarshal(data, &req); err != nil {
		return s.encode(s.fail(env, "", clierr.Wrap(clierr.CodeUsage, "invalid request body", err)))
	}
	op := strings.ToLower(strings.TrimSpace(req.Op))
	if op == "" {
		op = OpMessage
	}
	env.Meta.Command = op

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return s.encode(s.fail(env, "", clierr.New(clierr.CodeUsage, "session_id is required")))
	}
	p, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return s.encode(s.fail(env, req.SessionID, err))
	}
	env.Meta.SessionID = p.SessionID()

	switch op {
	case OpMessage:
		resp := p.ProcessMessage(ctx, req.Message)
		env.Success = true
		env.Data = resp
		s.log.Debug("nats message handled", zap.String("session", p.SessionID()), zap.String("intent", string(resp.Intent)))
	case OpHistory:
		msgs, err := p.History(ctx)
		if err != nil {
			return s.encode(s.fail(env, p.SessionID(), err))
		}
		env.Success = true
		env.Data = msgs
	case OpClear:
		if err := p.ClearHistory(ctx); err != nil {
			return s.encode(s.fail(env, p.SessionID(), err))
		}
		env.Success = true
		env.Data = map[string]any{"cleared": true}
	case OpStats:
		env.Success = true
		env.Data = p.Stats()
	default:
		return s.encode(s.fail(env, p.SessionID(), clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown op %q", req.Op))))
	}
	return s.encode(env)
}

func (s *Server) fail(env model.Envelope, sessionID string, err error) model.Envelope {
	env.Success = false
	env.Meta.SessionID = sessionID
	env.Error = &model.ErrorBody{Code: clierr.ExitCode(err), Type: clierr.Kind(err), Message: err.Error()}
	return env
}

func (s *Server) encode(env model.Envelope) []byte {
	env.Meta.RequestID = uuid.NewString()
	env.Meta.Timestamp = s.now().UTC()
	buf, err := json.Marshal(env)
	if err != nil {
		s.log.Error("encode nats reply", zap.Error(err))
		return []byte(`{"version":"v1","success":false,"error":{"code":1,"type":"internal_error","message":"encode reply"}}`)
	}
	return buf
}

// Close drains the subscription and closes the connection.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	s.conn = nil
	return err
}

// Client sends requests to a running server.
type Client struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

func Dial(cfg Config) (*Client, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name(cfg.Name), nats.Timeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("connect to nats at %s", cfg.URL), err)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{conn: conn, subject: cfg.Subject, timeout: timeout}, nil
}

// Send performs one request and decodes the envelope reply.
func (c *Client) Send(ctx context.Context, req Request) (model.Envelope, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.Envelope{}, clierr.Wrap(clierr.CodeInternal, "encode request", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	msg, err := c.conn.RequestWithContext(ctx, c.subject, body)
	if err != nil {
		return model.Envelope{}, clierr.Wrap(clierr.CodeUnavailable, "nats request", err)
	}
	var env model.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return model.Envelope{}, clierr.Wrap(clierr.CodeUnavailable, "decode reply", err)
	}
	return env, nil
}

func (c *Client) Close() { c.conn.Close() }
