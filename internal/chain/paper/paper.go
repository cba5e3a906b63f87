// Package paper is an in-memory chain backend. It keeps simulated balances,
// stakes, loans and positions so the chat can be exercised without keys
// or network access.
package paper

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/ggonzalez94/seichat/internal/chain"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/id"
)

const (
	DefaultAddress  = "0x000000000000000000000000000000000000bEEF"
	DefaultBalance  = "1000"
	poolDepthUSD    = 50000
	unknownPriceUSD = 0.01
	// rewardRatePerHour is the fraction of the delegation earned per hour.
	rewardRatePerHour = 0.0001
	maxLoanToValue    = 0.5
)

var pricesUSD = map[string]float64{
	"SEI":  0.5,
	"WSEI": 0.5,
	"USDC": 1,
}

type Options struct {
	Address string
	// Balances seeds holdings by token address; "" is the native asset.
	Balances map[string]string
	Now      func() time.Time
}

type Backend struct {
	mu sync.Mutex

	address     string
	now         func() time.Time
	balances    map[string]*big.Rat
	delegated   *big.Rat
	accrued     *big.Rat
	accruedAt   time.Time
	supplied    map[string]*big.Rat
	debt        map[string]*big.Rat
	positions   []chain.Position
	tokens      map[string]chain.TokenInfo
	nonce       int
	positionSeq int
}

func New(opts Options) (*Backend, error) {
	b := &Backend{
		address:   lo.Ternary(opts.Address == "", DefaultAddress, opts.Address),
		now:       lo.Ternary(opts.Now == nil, time.Now, opts.Now),
		balances:  map[string]*big.Rat{},
		delegated: new(big.Rat),
		accrued:   new(big.Rat),
		supplied:  map[string]*big.Rat{},
		debt:      map[string]*big.Rat{},
		tokens:    map[string]chain.TokenInfo{},
	}
	b.accruedAt = b.now()
	seed := opts.Balances
	if len(seed) == 0 {
		seed = map[string]string{"": DefaultBalance}
	}
	for token, amount := range seed {
		v, err := id.ParseDecimal(amount)
		if err != nil {
			return nil, err
		}
		b.balances[key(token)] = v
	}
	return b, nil
}

// key normalizes a token address; the native asset is "".
func key(token string) string {
	if id.IsNative(token) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(token))
}

func (b *Backend) balance(token string) *big.Rat {
	if v, ok := b.balances[key(token)]; ok {
		return v
	}
	v := new(big.Rat)
	b.balances[key(token)] = v
	return v
}

func (b *Backend) debit(token string, amount *big.Rat) error {
	bal := b.balance(token)
	if bal.Cmp(amount) < 0 {
		short := new(big.Rat).Sub(amount, bal)
		return clierr.New(clierr.CodeInsufficient, fmt.Sprintf("insufficient %s balance: short by %s", id.DisplaySymbol(token), id.FormatRat(short)))
	}
	bal.Sub(bal, amount)
	return nil
}

func (b *Backend) credit(token string, amount *big.Rat) {
	bal := b.balance(token)
	bal.Add(bal, amount)
}

func (b *Backend) txHash() string {
	b.nonce++
	return fmt.Sprintf("0x%064x", b.nonce)
}

func parseAmount(v string) (*big.Rat, error) {
	r, err := id.ParseDecimal(v)
	if err != nil {
		return nil, err
	}
	if r.Sign() == 0 {
		return nil, clierr.New(clierr.CodeUsage, "amount must be greater than zero")
	}
	return r, nil
}

func priceOf(token string) float64 {
	if id.IsNative(token) {
		return pricesUSD["SEI"]
	}
	if t, ok := id.LookupByAddress(token); ok {
		return pricesUSD[t.Symbol]
	}
	return unknownPriceUSD
}

func (b *Backend) GetBalance(_ context.Context, token string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return id.FormatRat(b.balance(token)), nil
}

func (b *Backend) TransferToken(_ context.Context, amount, recipient, token string) (string, error) {
	if !id.IsAddress(recipient) {
		return "", clierr.New(clierr.CodeUsage, "invalid recipient address")
	}
	v, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(token, v); err != nil {
		return "", err
	}
	if strings.EqualFold(recipient, b.address) {
		b.credit(token, v)
	}
	return b.txHash(), nil
}

// quote prices amount of tokenIn in tokenOut against a constant-depth pool.
func quote(req chain.SwapRequest) (*big.Rat, float64, error) {
	in, err := parseAmount(req.Amount)
	if err != nil {
		return nil, 0, err
	}
	inFloat, _ := in.Float64()
	valueUSD := inFloat * priceOf(req.TokenIn)
	impact := valueUSD / poolDepthUSD * 100
	if impact >= 100 {
		return nil, 0, clierr.New(clierr.CodeUnavailable, "not enough liquidity for this swap")
	}
	out := new(big.Rat).Mul(in, ratFromFloat(priceOf(req.TokenIn)/priceOf(req.TokenOut)*(1-impact/100)))
	return out, impact, nil
}

func ratFromFloat(f float64) *big.Rat {
	r, _ := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', 12, 64))
	return r
}

// roundDown truncates r to digits fractional places.
func roundDown(r *big.Rat, digits int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n := new(big.Int).Mul(r.Num(), scale)
	return id.FormatUnits(n.Quo(n, r.Denom()), digits)
}

func (b *Backend) GetSwapQuote(_ context.Context, req chain.SwapRequest) (chain.SwapQuote, error) {
	out, impact, err := quote(req)
	if err != nil {
		return chain.SwapQuote{}, err
	}
	return chain.SwapQuote{
		OutputAmount: roundDown(out, 6),
		PriceImpact:  impact,
		Route:        []string{id.DisplaySymbol(req.TokenIn), id.DisplaySymbol(req.TokenOut)},
	}, nil
}

func (b *Backend) SwapTokens(_ context.Context, req chain.SwapRequest) (string, error) {
	out, _, err := quote(req)
	if err != nil {
		return "", err
	}
	if req.MinOut != "" {
		minOut, err := id.ParseDecimal(req.MinOut)
		if err != nil {
			return "", err
		}
		if out.Cmp(minOut) < 0 {
			return "", clierr.New(clierr.CodeBlocked, "swap output below minimum; price moved beyond slippage tolerance")
		}
	}
	in, _ := id.ParseDecimal(req.Amount)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(req.TokenIn, in); err != nil {
		return "", err
	}
	b.credit(req.TokenOut, out)
	return b.txHash(), nil
}

// accrue books rewards earned since the last staking change.
func (b *Backend) accrue() {
	now := b.now()
	hours := now.Sub(b.accruedAt).Hours()
	if hours > 0 && b.delegated.Sign() > 0 {
		earned := new(big.Rat).Mul(b.delegated, ratFromFloat(hours*rewardRatePerHour))
		b.accrued.Add(b.accrued, earned)
	}
	b.accruedAt = now
}

func (b *Backend) StakeTokens(_ context.Context, req chain.StakeRequest) (string, error) {
	v, err := parseAmount(req.Amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accrue()
	if err := b.debit("", v); err != nil {
		return "", err
	}
	b.delegated.Add(b.delegated, v)
	return b.txHash(), nil
}

func (b *Backend) UnstakeTokens(_ context.Context, req chain.StakeRequest) (string, error) {
	v, err := parseAmount(req.Amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accrue()
	if b.delegated.Cmp(v) < 0 {
		return "", clierr.New(clierr.CodeInsufficient, fmt.Sprintf("only %s SEI is delegated", id.FormatRat(b.delegated)))
	}
	b.delegated.Sub(b.delegated, v)
	b.credit("", v)
	return b.txHash(), nil
}

func (b *Backend) ClaimRewards(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accrue()
	if b.accrued.Sign() == 0 {
		return "", clierr.New(clierr.CodeInsufficient, "no staking rewards to claim")
	}
	b.credit("", b.accrued)
	b.accrued = new(big.Rat)
	return b.txHash(), nil
}

func (b *Backend) GetStakingInfo(context.Context) (chain.StakingInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accrue()
	return chain.StakingInfo{
		Validator:      "paper-validator",
		Delegated:      id.FormatRat(b.delegated),
		PendingRewards: roundDown(b.accrued, 6),
	}, nil
}

func (b *Backend) usd(book map[string]*big.Rat) float64 {
	return lo.Sum(lo.MapToSlice(book, func(token string, v *big.Rat) float64 {
		f, _ := v.Float64()
		return f * priceOf(token)
	}))
}

func addTo(book map[string]*big.Rat, token string, v *big.Rat) {
	if cur, ok := book[key(token)]; ok {
		cur.Add(cur, v)
		return
	}
	book[key(token)] = new(big.Rat).Set(v)
}

func (b *Backend) LendTokens(_ context.Context, req chain.LendRequest) (string, error) {
	v, err := parseAmount(req.Amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(req.Asset, v); err != nil {
		return "", err
	}
	addTo(b.supplied, req.Asset, v)
	return b.txHash(), nil
}

func (b *Backend) BorrowTokens(_ context.Context, req chain.LendRequest) (string, error) {
	v, err := parseAmount(req.Amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	f, _ := v.Float64()
	limit := b.usd(b.supplied) * maxLoanToValue
	if b.usd(b.debt)+f*priceOf(req.Asset) > limit {
		return "", clierr.New(clierr.CodeInsufficient, fmt.Sprintf("borrow exceeds your limit of $%.2f; supply more collateral first", limit))
	}
	addTo(b.debt, req.Asset, v)
	b.credit(req.Asset, v)
	return b.txHash(), nil
}

func (b *Backend) RepayLoan(_ context.Context, req chain.LendRequest) (string, error) {
	v, err := parseAmount(req.Amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	owed, ok := b.debt[key(req.Asset)]
	if !ok || owed.Sign() == 0 {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("you have no %s debt", id.DisplaySymbol(req.Asset)))
	}
	if v.Cmp(owed) > 0 {
		v = new(big.Rat).Set(owed)
	}
	if err := b.debit(req.Asset, v); err != nil {
		return "", err
	}
	owed.Sub(owed, v)
	return b.txHash(), nil
}

func (b *Backend) OpenPosition(_ context.Context, req chain.PositionRequest) (string, error) {
	v, err := parseAmount(req.Collateral)
	if err != nil {
		return "", err
	}
	if req.Side != "long" && req.Side != "short" {
		return "", clierr.New(clierr.CodeUsage, "side must be long or short")
	}
	if req.Leverage < 1 || req.Leverage > 50 {
		return "", clierr.New(clierr.CodeUsage, "leverage must be between 1 and 50")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit("", v); err != nil {
		return "", err
	}
	b.positionSeq++
	b.positions = append(b.positions, chain.Position{
		ID:         strconv.Itoa(b.positionSeq),
		Market:     req.Market,
		Side:       req.Side,
		Collateral: id.FormatRat(v),
		Leverage:   req.Leverage,
	})
	return b.txHash(), nil
}

func (b *Backend) ClosePosition(_ context.Context, positionID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos, idx, ok := lo.FindIndexOf(b.positions, func(p chain.Position) bool { return p.ID == positionID })
	if !ok {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("position #%s not found", positionID))
	}
	collateral, _ := id.ParseDecimal(pos.Collateral)
	b.credit("", collateral)
	b.positions = append(b.positions[:idx], b.positions[idx+1:]...)
	return b.txHash(), nil
}

func (b *Backend) GetPositions(context.Context) ([]chain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]chain.Position, len(b.positions))
	copy(out, b.positions)
	return out, nil
}

func (b *Backend) CreateToken(_ context.Context, req chain.CreateTokenRequest) (string, error) {
	supply, err := parseAmount(req.TotalSupply)
	if err != nil {
		return "", err
	}
	if req.Name == "" || req.Symbol == "" {
		return "", clierr.New(clierr.CodeUsage, "token name and symbol are required")
	}
	decimals := lo.Ternary(req.Decimals == 0, chain.DefaultDecimals, req.Decimals)
	b.mu.Lock()
	defer b.mu.Unlock()
	address := fmt.Sprintf("0x%040x", 0x5e1000+len(b.tokens)+1)
	b.tokens[key(address)] = chain.TokenInfo{
		Address:     address,
		Name:        req.Name,
		Symbol:      req.Symbol,
		Decimals:    decimals,
		TotalSupply: id.FormatRat(supply),
	}
	b.credit(address, supply)
	return b.txHash(), nil
}

// CreatedTokens lists tokens minted in this backend.
func (b *Backend) CreatedTokens() []chain.TokenInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Values(b.tokens)
}

func (b *Backend) BurnToken(_ context.Context, token, amount string) (string, error) {
	v, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(token, v); err != nil {
		return "", err
	}
	if info, ok := b.tokens[key(token)]; ok {
		supply, _ := id.ParseDecimal(info.TotalSupply)
		info.TotalSupply = id.FormatRat(supply.Sub(supply, v))
		b.tokens[key(token)] = info
	}
	return b.txHash(), nil
}

func (b *Backend) AddLiquidity(_ context.Context, req chain.LiquidityRequest) (string, error) {
	tokenAmount, err := parseAmount(req.TokenAmount)
	if err != nil {
		return "", err
	}
	seiAmount, err := parseAmount(req.SeiAmount)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	held := b.balance(req.Token)
	if held.Cmp(tokenAmount) < 0 {
		return "", clierr.New(clierr.CodeInsufficient, fmt.Sprintf("insufficient %s balance", id.DisplaySymbol(req.Token)))
	}
	if err := b.debit("", seiAmount); err != nil {
		return "", err
	}
	held.Sub(held, tokenAmount)
	return b.txHash(), nil
}

func (b *Backend) ScanToken(_ context.Context, token string) (chain.TokenInfo, error) {
	if !id.IsAddress(token) {
		return chain.TokenInfo{}, clierr.New(clierr.CodeUsage, "invalid token address")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.tokens[key(token)]
	if !ok {
		t, known := id.LookupByAddress(token)
		if !known {
			return chain.TokenInfo{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("token %s is not known to the paper backend", id.ShortAddress(token)))
		}
		info = chain.TokenInfo{Address: t.Address, Name: t.Symbol, Symbol: t.Symbol, Decimals: t.Decimals}
	}
	info.Holding = id.FormatRat(b.balance(token))
	return info, nil
}

func (b *Backend) GetWalletInfo(context.Context) (chain.WalletInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return chain.WalletInfo{
		Address:      b.address,
		SeiBalance:   id.FormatRat(b.balance("")),
		Network:      "sei-paper",
		Capabilities: []string{"transfer", "swap", "stake", "lend", "positions", "create-token"},
	}, nil
}

var _ chain.Service = (*Backend)(nil)
