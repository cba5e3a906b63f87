// Package chaintest provides a scriptable chain.Service for tests.
package chaintest

import (
	"context"
	"sync"

	"github.com/ggonzalez94/seichat/internal/chain"
)

// Call is one recorded invocation.
type Call struct {
	Method string
	Args   []any
}

// Fake answers from its fields and records every call. Setting Err makes
// the method named by ErrOn (or every method when ErrOn is empty) fail.
type Fake struct {
	mu sync.Mutex

	Balances  map[string]string
	Quote     chain.SwapQuote
	Staking   chain.StakingInfo
	Positions []chain.Position
	Token     chain.TokenInfo
	Wallet    chain.WalletInfo
	TxHash    string
	Err       error
	ErrOn     string
	calls     []Call
}

func New() *Fake {
	return &Fake{
		Balances: map[string]string{"": "100"},
		Quote:    chain.SwapQuote{OutputAmount: "100", PriceImpact: 0.5, Route: []string{"SEI", "USDC"}},
		TxHash:   "0xabc",
	}
}

func (f *Fake) record(method string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
	if f.Err != nil && (f.ErrOn == "" || f.ErrOn == method) {
		return f.Err
	}
	return nil
}

// Calls returns the invocations of method, or all of them when method is "".
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) GetBalance(_ context.Context, token string) (string, error) {
	if err := f.record("GetBalance", token); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.Balances[token]; ok {
		return b, nil
	}
	return "0", nil
}

func (f *Fake) TransferToken(_ context.Context, amount, recipient, token string) (string, error) {
	return f.TxHash, f.record("TransferToken", amount, recipient, token)
}

func (f *Fake) GetSwapQuote(_ context.Context, req chain.SwapRequest) (chain.SwapQuote, error) {
	if err := f.record("GetSwapQuote", req); err != nil {
		return chain.SwapQuote{}, err
	}
	return f.Quote, nil
}

func (f *Fake) SwapTokens(_ context.Context, req chain.SwapRequest) (string, error) {
	return f.TxHash, f.record("SwapTokens", req)
}

func (f *Fake) StakeTokens(_ context.Context, req chain.StakeRequest) (string, error) {
	return f.TxHash, f.record("StakeTokens", req)
}

func (f *Fake) UnstakeTokens(_ context.Context, req chain.StakeRequest) (string, error) {
	return f.TxHash, f.record("UnstakeTokens", req)
}

func (f *Fake) ClaimRewards(context.Context) (string, error) {
	return f.TxHash, f.record("ClaimRewards")
}

func (f *Fake) GetStakingInfo(context.Context) (chain.StakingInfo, error) {
	return f.Staking, f.record("GetStakingInfo")
}

func (f *Fake) LendTokens(_ context.Context, req chain.LendRequest) (string, error) {
	return f.TxHash, f.record("LendTokens", req)
}

func (f *Fake) BorrowTokens(_ context.Context, req chain.LendRequest) (string, error) {
	return f.TxHash, f.record("BorrowTokens", req)
}

func (f *Fake) RepayLoan(_ context.Context, req chain.LendRequest) (string, error) {
	return f.TxHash, f.record("RepayLoan", req)
}

func (f *Fake) OpenPosition(_ context.Context, req chain.PositionRequest) (string, error) {
	return f.TxHash, f.record("OpenPosition", req)
}

func (f *Fake) ClosePosition(_ context.Context, positionID string) (string, error) {
	return f.TxHash, f.record("ClosePosition", positionID)
}

func (f *Fake) GetPositions(context.Context) ([]chain.Position, error) {
	return f.Positions, f.record("GetPositions")
}

func (f *Fake) CreateToken(_ context.Context, req chain.CreateTokenRequest) (string, error) {
	return f.TxHash, f.record("CreateToken", req)
}

func (f *Fake) BurnToken(_ context.Context, token, amount string) (string, error) {
	return f.TxHash, f.record("BurnToken", token, amount)
}

func (f *Fake) AddLiquidity(_ context.Context, req chain.LiquidityRequest) (string, error) {
	return f.TxHash, f.record("AddLiquidity", req)
}

func (f *Fake) ScanToken(_ context.Context, token string) (chain.TokenInfo, error) {
	if err := f.record("ScanToken", token); err != nil {
		return chain.TokenInfo{}, err
	}
	info := f.Token
	if info.Address == "" {
		info.Address = token
	}
	return info, nil
}

func (f *Fake) GetWalletInfo(context.Context) (chain.WalletInfo, error) {
	return f.Wallet, f.record("GetWalletInfo")
}

// Panic is a chain.Service whose every call panics.
type Panic struct{ chain.Service }

func (Panic) GetBalance(context.Context, string) (string, error) {
	panic("unexpected balance lookup")
}

var _ chain.Service = (*Fake)(nil)
