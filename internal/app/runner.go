package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/audit"
	"github.com/ggonzalez94/seichat/internal/chain"
	"github.com/ggonzalez94/seichat/internal/chat"
	"github.com/ggonzalez94/seichat/internal/config"
	"github.com/ggonzalez94/seichat/internal/dispatch"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/observability"
	"github.com/ggonzalez94/seichat/internal/out"
	"github.com/ggonzalez94/seichat/internal/policy"
	"github.com/ggonzalez94/seichat/internal/store"
	"github.com/ggonzalez94/seichat/internal/version"
)

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	// chain replaces the configured backend when set.
	chain chain.Service
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	root        *cobra.Command
	lastCommand string
	log         *zap.Logger

	store     store.TTLStore
	audit     audit.Sink
	journal   *audit.Journal
	chain     chain.Service
	protocols dispatch.ProtocolSource
	market    dispatch.MarketSource
	sessions  *chat.Manager
	closers   []func() error
	warnings  []string
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r, log: zap.NewNop()}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := normalizeRunError(root.Execute())
	if err != nil {
		state.renderError(err)
	}
	state.close()
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Chat with your Sei wallet: balances, transfers, swaps and staking in plain language",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			if err := policy.ValidateAllowlist(settings.EnableIntents); err != nil {
				return err
			}
			s.settings = settings
			s.lastCommand = trimRootPath(cmd.CommandPath())

			logger, closeLog := observability.NewLogger(observability.LogConfig{
				Level:      settings.LogLevel,
				Format:     settings.LogFormat,
				File:       settings.LogFile,
				MaxSizeMB:  settings.LogMaxSizeMB,
				MaxBackups: settings.LogMaxBackups,
				MaxAgeDays: settings.LogMaxAgeDays,
				Name:       version.CLIName,
			}, s.runner.stderr)
			s.log = logger
			s.closers = append(s.closers, closeLog)
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	pf := cmd.PersistentFlags()
	pf.BoolVar(&s.flags.JSON, "json", false, "Output JSON envelopes")
	pf.BoolVar(&s.flags.Plain, "plain", false, "Output plain text (default)")
	pf.StringVar(&s.flags.EnableIntents, "enable-intents", "", "Allowlist intents that may run (comma-separated)")
	pf.StringVar(&s.flags.Timeout, "timeout", "", "Request timeout for chain and provider calls")
	pf.IntVar(&s.flags.Retries, "retries", -1, "Retries per provider request")
	pf.StringVar(&s.flags.Backend, "backend", "", "Chain backend: paper or evm")
	pf.StringVar(&s.flags.RPCURL, "rpc-url", "", "Sei EVM JSON-RPC endpoint")
	pf.StringVar(&s.flags.Address, "address", "", "Wallet address for read-only use")
	pf.StringVar(&s.flags.KeySource, "key-source", "", "Signing key source: auto, env, file or keystore")
	pf.StringVar(&s.flags.Store, "store", "", "Persistence store: sqlite, redis or memory")
	pf.StringVar(&s.flags.Session, "session", "", "Chat session id (new id when empty)")
	pf.StringVar(&s.flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.BoolVar(&s.flags.NoLLM, "no-llm", false, "Never call the language model")
	pf.StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newChatCommand())
	cmd.AddCommand(s.newAskCommand())
	cmd.AddCommand(s.newHistoryCommand())
	cmd.AddCommand(s.newTodoCommand())
	cmd.AddCommand(s.newAuditCommand())
	cmd.AddCommand(s.newServeCommand())
	cmd.AddCommand(s.newRemoteCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) emitSuccess(sessionID string, data any) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Warnings: s.warnings,
		Meta:     s.meta(sessionID),
	}
	return out.Render(s.runner.stdout, env, s.settings.OutputMode)
}

func (s *runtimeState) meta(sessionID string) model.EnvelopeMeta {
	return model.EnvelopeMeta{
		RequestID: uuid.NewString(),
		SessionID: sessionID,
		Timestamp: s.runner.now().UTC(),
		Command:   s.lastCommand,
	}
}

// renderError writes the failure envelope to stderr. Output mode falls back
// to JSON when settings never loaded.
func (s *runtimeState) renderError(err error) {
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
	}
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error:   &model.ErrorBody{Code: clierr.ExitCode(err), Type: clierr.Kind(err), Message: message},
		Meta:    s.meta(s.settings.SessionID),
	}
	mode := s.settings.OutputMode
	if mode == "" {
		mode = out.ModeJSON
	}
	_ = out.Render(s.runner.stderr, env, mode)
}

func (s *runtimeState) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Debug("close resource", zap.Error(err))
		}
	}
	s.closers = nil
}

// session returns the pipeline for the configured session id.
func (s *runtimeState) session(ctx context.Context) (*chat.Pipeline, error) {
	if err := s.ensureRuntime(ctx); err != nil {
		return nil, err
	}
	return s.sessions.Session(ctx, s.settings.SessionID)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
