package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/audit"
	"github.com/ggonzalez94/seichat/internal/chain"
	"github.com/ggonzalez94/seichat/internal/chain/evm"
	"github.com/ggonzalez94/seichat/internal/chain/paper"
	"github.com/ggonzalez94/seichat/internal/chain/signer"
	"github.com/ggonzalez94/seichat/internal/chat"
	"github.com/ggonzalez94/seichat/internal/config"
	"github.com/ggonzalez94/seichat/internal/dispatch"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/httpx"
	"github.com/ggonzalez94/seichat/internal/llm"
	"github.com/ggonzalez94/seichat/internal/providers"
	"github.com/ggonzalez94/seichat/internal/providers/binance"
	"github.com/ggonzalez94/seichat/internal/providers/defillama"
	"github.com/ggonzalez94/seichat/internal/providers/symphony"
	"github.com/ggonzalez94/seichat/internal/registry"
	"github.com/ggonzalez94/seichat/internal/store"
)

const symphonyRatePerSecond = 5

// ensureRuntime opens the store, the audit sink and the chain backend once
// per invocation and prepares the session manager.
func (s *runtimeState) ensureRuntime(ctx context.Context) error {
	if s.sessions != nil {
		return nil
	}
	if err := s.openStore(); err != nil {
		return err
	}
	if err := s.openAudit(); err != nil {
		return err
	}
	svc, err := s.buildChain(ctx)
	if err != nil {
		return err
	}
	s.chain = svc

	httpClient := httpx.New(s.settings.Timeout, s.settings.Retries)
	s.protocols = defillama.New(httpClient).WithCache(s.store, s.cachePolicy(defillama.DefaultCachePolicy), s.log)
	market := binance.New(s.settings.BinanceAPIKey, s.settings.BinanceSecretKey).
		WithCache(s.store, s.cachePolicy(binance.DefaultCachePolicy), s.log)
	if s.settings.BinanceBaseURL != "" {
		if err := checkEndpoint("binance base url", s.settings.BinanceBaseURL); err != nil {
			return err
		}
		market = market.WithBaseURL(s.settings.BinanceBaseURL)
	}
	s.market = market
	generator := s.buildGenerator()

	s.sessions = chat.NewManager(func(ctx context.Context, id string) (*chat.Pipeline, error) {
		if strings.TrimSpace(id) == "" {
			id = uuid.NewString()
		}
		d := s.newDispatcher(id)
		opts := []chat.Option{
			chat.WithSessionID(id),
			chat.WithAudit(s.audit),
			chat.WithLogger(s.log),
			chat.WithHistoryStore(s.store),
			chat.WithAllowlist(s.settings.EnableIntents),
		}
		if generator != nil {
			opts = append(opts, chat.WithGenerator(generator))
		}
		return chat.New(ctx, d, opts...)
	})
	return nil
}

func (s *runtimeState) newDispatcher(sessionID string) *dispatch.Dispatcher {
	return dispatch.New(s.chain,
		dispatch.WithStore(s.store),
		dispatch.WithAudit(audit.WithSession(s.audit, sessionID)),
		dispatch.WithProtocols(s.protocols),
		dispatch.WithMarket(s.market),
		dispatch.WithLogger(s.log.With(zap.String("session_id", sessionID))),
		dispatch.WithValidator(s.settings.Validator),
		dispatch.WithSwapPolicy(s.settings.SlippageBps, s.settings.MaxPriceImpact),
	)
}

func (s *runtimeState) openStore() error {
	st, err := store.Open(s.settings.StoreDriver, s.settings.StorePath, s.settings.StoreLockPath, s.settings.RedisURL)
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, "open store", err)
	}
	s.store = st
	s.closers = append(s.closers, st.Close)
	return nil
}

// openAudit keeps events in memory when the store is memory-backed so a
// throwaway session leaves nothing on disk.
func (s *runtimeState) openAudit() error {
	if s.settings.StoreDriver == "memory" {
		s.audit = audit.NewMemory()
		return nil
	}
	j, err := audit.OpenJournal(s.settings.AuditPath, s.settings.AuditLockPath)
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, "open audit journal", err)
	}
	s.audit = j
	s.journal = j
	s.closers = append(s.closers, j.Close)
	return nil
}

func (s *runtimeState) cachePolicy(base providers.CachePolicy) providers.CachePolicy {
	if s.settings.MaxStale > 0 {
		base.MaxStale = s.settings.MaxStale
	}
	return base
}

func (s *runtimeState) buildChain(ctx context.Context) (chain.Service, error) {
	if s.runner.chain != nil {
		return s.runner.chain, nil
	}
	switch s.settings.Backend {
	case config.BackendEVM:
		return s.buildEVM(ctx)
	default:
		backend, err := paper.New(paper.Options{Address: s.settings.Address})
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
}

func (s *runtimeState) buildEVM(ctx context.Context) (chain.Service, error) {
	rpcURL, err := registry.ResolveRPCURL(s.settings.RPCURL, s.settings.ChainID)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "resolve rpc url", err)
	}
	opts := evm.Options{
		Watch:     s.settings.Address,
		Validator: s.settings.Validator,
		Tx: evm.TxOptions{
			Simulate:           true,
			ReceiptTimeout:     s.settings.ReceiptTimeout,
			MaxFeeGwei:         s.settings.MaxFeeGwei,
			MaxPriorityFeeGwei: s.settings.MaxPriorityGwei,
		},
	}
	local, err := signer.NewLocalSignerFromInputs(s.settings.KeySource, "")
	switch {
	case err == nil:
		opts.Signer = local
	case s.settings.Address != "":
		s.log.Info("no signing key; running watch-only", zap.String("address", s.settings.Address), zap.Error(err))
		s.warnings = append(s.warnings, "no signing key loaded; the wallet is read-only")
	default:
		return nil, clierr.Wrap(clierr.CodeSigner, "load signing key (or pass --address for read-only use)", err)
	}

	aggregator := symphony.New(httpx.New(s.settings.Timeout, s.settings.Retries).WithRateLimit(symphonyRatePerSecond), s.settings.ChainID)
	if s.settings.SymphonyURL != "" {
		if err := checkEndpoint("symphony url", s.settings.SymphonyURL); err != nil {
			return nil, err
		}
		aggregator = aggregator.WithBaseURL(s.settings.SymphonyURL)
	}
	opts.Symphony = aggregator

	dialCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	backend, err := evm.Dial(dialCtx, rpcURL, opts)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error {
		backend.Close()
		return nil
	})
	return backend, nil
}

func checkEndpoint(name, endpoint string) error {
	if !registry.IsAllowedEndpoint(endpoint) {
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("%s %q must use https (plain http is allowed on loopback only)", name, endpoint))
	}
	return nil
}

// buildGenerator returns nil when the model is disabled or unusable; chat
// then falls back to the canned help reply.
func (s *runtimeState) buildGenerator() chat.Generator {
	if s.settings.LLMDisabled || strings.TrimSpace(s.settings.LLMAPIKey) == "" {
		return nil
	}
	client, err := llm.New(llm.Config{
		BaseURL:     s.settings.LLMBaseURL,
		APIKey:      s.settings.LLMAPIKey,
		Model:       s.settings.LLMModel,
		Temperature: s.settings.LLMTemperature,
		Timeout:     s.settings.Timeout,
		MaxRetries:  s.settings.Retries,
	})
	if err != nil {
		s.log.Warn("llm disabled", zap.Error(err))
		s.warnings = append(s.warnings, "language model unavailable: "+err.Error())
		return nil
	}
	return client
}
