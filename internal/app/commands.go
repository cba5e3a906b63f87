package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/chat"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/out"
	"github.com/ggonzalez94/seichat/internal/schema"
	"github.com/ggonzalez94/seichat/internal/session"
	"github.com/ggonzalez94/seichat/internal/transport"
	"github.com/ggonzalez94/seichat/internal/version"
)

const defaultAuditLimit = 50

func (s *runtimeState) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := s.session(ctx)
			if err != nil {
				return err
			}
			if s.settings.OutputMode != out.ModeJSON {
				_, _ = fmt.Fprintf(s.runner.stdout, "session %s. Type /help for commands, /quit to leave.\n", p.SessionID())
			}
			scanner := bufio.NewScanner(s.runner.stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if strings.HasPrefix(line, "/") {
					quit, err := s.slashCommand(ctx, p, line)
					if err != nil {
						return err
					}
					if quit {
						return nil
					}
					continue
				}
				if err := s.emitResponse(p.SessionID(), p.ProcessMessage(ctx, line)); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return clierr.Wrap(clierr.CodeInternal, "read stdin", err)
			}
			return nil
		},
	}
}

func (s *runtimeState) slashCommand(ctx context.Context, p *chat.Pipeline, line string) (bool, error) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit":
		return true, nil
	case "/history":
		msgs, err := p.History(ctx)
		if err != nil {
			return false, err
		}
		if s.settings.OutputMode == out.ModeJSON {
			return false, s.emitSuccess(p.SessionID(), msgs)
		}
		for _, m := range msgs {
			_, _ = fmt.Fprintf(s.runner.stdout, "%s: %s\n", m.Role, m.Content)
		}
		return false, nil
	case "/clear":
		if err := p.ClearHistory(ctx); err != nil {
			return false, err
		}
		return false, out.Reply(s.runner.stdout, "History cleared.", nil)
	case "/stats":
		return false, s.emitSuccess(p.SessionID(), p.Stats())
	default:
		return false, out.Reply(s.runner.stdout, "Commands: /history, /clear, /stats, /quit", nil)
	}
}

func (s *runtimeState) emitResponse(sessionID string, resp chat.Response) error {
	if s.settings.OutputMode == out.ModeJSON {
		return s.emitSuccess(sessionID, resp)
	}
	return out.Reply(s.runner.stdout, resp.Message, resp.Suggestions)
}

func (s *runtimeState) newAskCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := s.session(ctx)
			if err != nil {
				return err
			}
			resp := p.ProcessMessage(ctx, strings.Join(args, " "))
			if yes && p.Stats().HasPending {
				if err := s.emitResponse(p.SessionID(), resp); err != nil {
					return err
				}
				resp = p.ProcessMessage(ctx, "yes")
			}
			return s.emitResponse(p.SessionID(), resp)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm a transfer or swap without prompting")
	return cmd
}

func (s *runtimeState) requireSession() error {
	if strings.TrimSpace(s.settings.SessionID) == "" {
		return clierr.New(clierr.CodeUsage, "--session is required")
	}
	return nil
}

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the transcript of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireSession(); err != nil {
				return err
			}
			p, err := s.session(cmd.Context())
			if err != nil {
				return err
			}
			msgs, err := p.History(cmd.Context())
			if err != nil {
				return err
			}
			return s.emitSuccess(p.SessionID(), msgs)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the transcript of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireSession(); err != nil {
				return err
			}
			p, err := s.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			return s.emitSuccess(p.SessionID(), p.Stats())
		},
	})
	return cmd
}

func (s *runtimeState) newTodoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage the persisted todo list",
	}
	run := func(ctx context.Context, res intent.Result) error {
		if err := s.ensureRuntime(ctx); err != nil {
			return err
		}
		result := s.newDispatcher(s.settings.SessionID).Dispatch(ctx, res, session.View{})
		if !result.Success {
			return clierr.New(clierr.CodeUnavailable, result.Message)
		}
		return s.emitResponse(s.settings.SessionID, chat.Response{
			Message:    result.Message,
			Success:    true,
			Intent:     res.Kind,
			Confidence: res.Confidence,
			Data:       result.Data,
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <text>",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), intent.Result{
				Kind:       intent.TodoAdd,
				Confidence: 1,
				Entities:   intent.Entities{TodoText: strings.Join(args, " ")},
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), intent.Result{Kind: intent.TodoList, Confidence: 1})
		},
	})
	return cmd
}

func (s *runtimeState) newAuditCommand() *cobra.Command {
	var eventType string
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded confirmation and execution events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureRuntime(cmd.Context()); err != nil {
				return err
			}
			if s.journal == nil {
				return clierr.New(clierr.CodeUnsupported, "audit history needs a persistent store; use --store sqlite or redis")
			}
			events, err := s.journal.List(cmd.Context(), eventType, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeUnavailable, "list audit events", err)
			}
			return s.emitSuccess(s.settings.SessionID, events)
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "Only events of this type (e.g. action.executed)")
	cmd.Flags().IntVar(&limit, "limit", defaultAuditLimit, "Maximum events to return")
	return cmd
}

func (s *runtimeState) transportConfig() transport.Config {
	return transport.Config{
		URL:            s.settings.NATSURL,
		Subject:        s.settings.NATSSubject,
		Name:           version.CLIName,
		ConnectTimeout: s.settings.Timeout,
		RequestTimeout: s.settings.ReceiptTimeout + s.settings.Timeout,
	}
}

func (s *runtimeState) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer chat requests over NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := s.ensureRuntime(ctx); err != nil {
				return err
			}
			srv := transport.NewServer(s.transportConfig(), s.sessions, s.log)
			if err := srv.Start(); err != nil {
				return err
			}
			s.log.Info("serving chat", zap.String("url", s.settings.NATSURL), zap.String("subject", s.settings.NATSSubject))
			<-ctx.Done()
			if err := srv.Close(); err != nil {
				s.log.Warn("drain nats connection", zap.Error(err))
			}
			return nil
		},
	}
}

func (s *runtimeState) newRemoteCommand() *cobra.Command {
	var op string
	cmd := &cobra.Command{
		Use:   "remote [message]",
		Short: "Send one request to a running `seichat serve`",
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if op == transport.OpMessage && strings.TrimSpace(message) == "" {
				return clierr.New(clierr.CodeUsage, "remote message requires text")
			}
			if err := s.requireSession(); err != nil {
				return err
			}
			client, err := transport.Dial(s.transportConfig())
			if err != nil {
				return err
			}
			defer client.Close()
			env, err := client.Send(cmd.Context(), transport.Request{
				SessionID: s.settings.SessionID,
				Op:        op,
				Message:   message,
			})
			if err != nil {
				return err
			}
			if env.Error != nil {
				return clierr.New(clierr.Code(env.Error.Code), env.Error.Message)
			}
			return out.Render(s.runner.stdout, env, s.settings.OutputMode)
		},
	}
	cmd.Flags().StringVar(&op, "op", transport.OpMessage, "Operation: message, history, clear or stats")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command and intent schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := schema.BuildDocument(s.root, strings.Join(args, " "))
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "build schema", err)
			}
			return s.emitSuccess(s.settings.SessionID, doc)
		},
	}
}
