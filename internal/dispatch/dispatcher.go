package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/audit"
	"github.com/ggonzalez94/seichat/internal/chain"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/session"
	"github.com/ggonzalez94/seichat/internal/store"
)

const (
	DefaultSlippageBps    int64   = 100
	DefaultMaxPriceImpact float64 = 5
)

// ProtocolSource ranks DeFi protocols on the chain by TVL.
type ProtocolSource interface {
	TopProtocols(ctx context.Context, limit int) ([]model.ProtocolTVL, error)
}

// MarketSource returns price and indicator snapshots for a ticker.
type MarketSource interface {
	TradingInfo(ctx context.Context, symbol string) (model.TradingInfo, error)
}

type handlerFunc func(ctx context.Context, res intent.Result, view session.View) Result

type Dispatcher struct {
	chain     chain.Service
	store     store.Store
	audit     audit.Sink
	protocols ProtocolSource
	market    MarketSource
	log       *zap.Logger
	now       func() time.Time

	slippageBps    int64
	maxPriceImpact float64
	validator      string

	handlers map[intent.Kind]handlerFunc
}

type Option func(*Dispatcher)

func WithStore(s store.Store) Option { return func(d *Dispatcher) { d.store = s } }
func WithAudit(s audit.Sink) Option { return func(d *Dispatcher) { d.audit = s } }
func WithProtocols(p ProtocolSource) Option { return func(d *Dispatcher) { d.protocols = p } }
func WithMarket(m MarketSource) Option { return func(d *Dispatcher) { d.market = m } }
func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = l } }
func WithValidator(v string) Option { return func(d *Dispatcher) { d.validator = v } }

// WithSwapPolicy overrides the slippage tolerance and the price-impact ceiling.
func WithSwapPolicy(slippageBps int64, maxPriceImpact float64) Option {
	return func(d *Dispatcher) {
		d.slippageBps = slippageBps
		d.maxPriceImpact = maxPriceImpact
	}
}

func New(svc chain.Service, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		chain:          svc,
		audit:          audit.Discard{},
		log:            zap.NewNop(),
		now:            time.Now,
		slippageBps:    DefaultSlippageBps,
		maxPriceImpact: DefaultMaxPriceImpact,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = map[intent.Kind]handlerFunc{
		intent.TokenScan:            d.handleTokenScan,
		intent.TokenCreate:          d.handleTokenCreate,
		intent.TokenBurn:            d.handleTokenBurn,
		intent.LiquidityAdd:         d.handleLiquidityAdd,
		intent.BalanceCheck:         d.handleBalance,
		intent.ProtocolData:         d.handleProtocolData,
		intent.TradingInfo:          d.handleTradingInfo,
		intent.SymphonySwap:         d.handleSwap,
		intent.StakeTokens:          d.handleStake,
		intent.UnstakeTokens:        d.handleUnstake,
		intent.LendTokens:           d.handleLend,
		intent.BorrowTokens:         d.handleBorrow,
		intent.RepayLoan:            d.handleRepay,
		intent.OpenPosition:         d.handleOpenPosition,
		intent.ClosePosition:        d.handleClosePosition,
		intent.GetPositions:         d.handleGetPositions,
		intent.WalletInfo:           d.handleWalletInfo,
		intent.SendTokens:           d.handleSend,
		intent.TransferConfirmation: d.handleNothingPending,
		intent.TodoAdd:              d.handleTodoAdd,
		intent.TodoList:             d.handleTodoList,
		intent.Help:                 d.handleHelp,
		intent.Conversation:         d.handleConversation,
		intent.Unknown:              d.handleUnknown,
	}
	return d
}

// Dispatch runs the handler for res.Kind. It never panics and never returns
// an error: collaborator failures come back as failed Results.
func (d *Dispatcher) Dispatch(ctx context.Context, res intent.Result, view session.View) (out Result) {
	defer d.recoverInto(&out, string(res.Kind))
	h, ok := d.handlers[res.Kind]
	if !ok {
		return d.handleUnknown(ctx, res, view)
	}
	out = h(ctx, res, view)
	if !out.Success {
		d.log.Info("handler failed", zap.String("intent", string(res.Kind)), zap.String("error_type", out.ErrorType()), zap.String("message", out.Message))
	}
	return out
}

func (d *Dispatcher) recoverInto(out *Result, where string) {
	if r := recover(); r != nil {
		d.log.Error("handler panicked", zap.String("intent", where), zap.Any("panic", r))
		*out = failure(clierr.New(clierr.CodeInternal, fmt.Sprintf("something went wrong while handling %s", where)))
	}
}

func (d *Dispatcher) record(ctx context.Context, event audit.Event) {
	if err := d.audit.Record(ctx, event); err != nil {
		d.log.Warn("audit record failed", zap.String("type", event.Type), zap.Error(err))
	}
}

// unsupported is returned when an optional collaborator is not configured.
func unsupported(what string) Result {
	return failure(clierr.New(clierr.CodeUnsupported, what+" is not configured for this session."))
}
