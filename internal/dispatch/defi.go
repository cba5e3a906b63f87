package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/chain"
	"github.com/ggonzalez94/seichat/internal/id"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/session"
	"github.com/ggonzalez94/seichat/internal/store"
)

const defaultTotalSupply = "1000000000"

// positiveAmount returns the normalized amount or a usage failure.
func positiveAmount(e intent.Entities, what, example string) (string, *Result) {
	amount := e.AnyAmount()
	if amount == "" {
		r := invalid(fmt.Sprintf("I need an amount to %s.", what), example)
		return "", &r
	}
	v, err := id.ParseDecimal(amount)
	if err != nil {
		r := invalid(err.Error(), example)
		return "", &r
	}
	if v.Sign() == 0 {
		r := invalid(fmt.Sprintf("The amount to %s must be greater than zero.", what), example)
		return "", &r
	}
	return id.NormalizeDecimal(amount), nil
}

func txMessage(done, txHash string) Result {
	msg := done
	if txHash != "" {
		msg += "\nTransaction: " + txHash
	}
	return ok(msg, map[string]any{DataTxHash: txHash})
}

func (d *Dispatcher) handleStake(ctx context.Context, res intent.Result, _ session.View) Result {
	switch res.Mode {
	case intent.ModeClaim:
		tx, err := d.chain.ClaimRewards(ctx)
		if err != nil {
			return failure(err)
		}
		return txMessage("Claimed your staking rewards.", tx)
	case intent.ModeRewards:
		info, err := d.chain.GetStakingInfo(ctx)
		if err != nil {
			return failure(err)
		}
		msg := fmt.Sprintf("Delegated: %s SEI\nPending rewards: %s SEI", info.Delegated, info.PendingRewards)
		if info.Validator != "" {
			msg += "\nValidator: " + info.Validator
		}
		return ok(msg, map[string]any{"staking": info})
	}

	const example = "stake 100 SEI"
	amount, bad := positiveAmount(res.Entities, "stake", example)
	if bad != nil {
		return *bad
	}
	balance, err := d.chain.GetBalance(ctx, "")
	if err != nil {
		return failure(err)
	}
	if r := d.checkBalance(balance, amount, "SEI"); !r.Success {
		return r
	}
	tx, err := d.chain.StakeTokens(ctx, chain.StakeRequest{Amount: amount, Validator: d.validator})
	if err != nil {
		return failure(err)
	}
	return txMessage(fmt.Sprintf("Staked %s SEI.", amount), tx)
}

func (d *Dispatcher) handleUnstake(ctx context.Context, res intent.Result, _ session.View) Result {
	amount, bad := positiveAmount(res.Entities, "unstake", "unstake 50 SEI")
	if bad != nil {
		return *bad
	}
	tx, err := d.chain.UnstakeTokens(ctx, chain.StakeRequest{Amount: amount, Validator: d.validator})
	if err != nil {
		return failure(err)
	}
	return txMessage(fmt.Sprintf("Unstaking %s SEI. Unbonded funds become available after the unbonding period.", amount), tx)
}

// lendAsset resolves the asset a lending message names; SEI by default.
func lendAsset(e intent.Entities) (string, bool) {
	addr, ok := tickerToken(e.Ticker)
	if ok && addr == "" {
		addr = id.NativeAddress
	}
	return addr, ok
}

func (d *Dispatcher) lendingCall(ctx context.Context, e intent.Entities, verb, example string, call func(context.Context, chain.LendRequest) (string, error)) Result {
	asset, known := lendAsset(e)
	if !known {
		return unknownToken(e.Ticker, example)
	}
	amount, bad := positiveAmount(e, verb, example)
	if bad != nil {
		return *bad
	}
	tx, err := call(ctx, chain.LendRequest{Asset: asset, Amount: amount})
	if err != nil {
		return failure(err)
	}
	past := map[string]string{"lend": "Lent", "borrow": "Borrowed", "repay": "Repaid"}[verb]
	return txMessage(fmt.Sprintf("%s %s %s.", past, amount, id.DisplaySymbol(asset)), tx)
}

func (d *Dispatcher) handleLend(ctx context.Context, res intent.Result, _ session.View) Result {
	return d.lendingCall(ctx, res.Entities, "lend", "lend 100 USDC", d.chain.LendTokens)
}

func (d *Dispatcher) handleBorrow(ctx context.Context, res intent.Result, _ session.View) Result {
	return d.lendingCall(ctx, res.Entities, "borrow", "borrow 50 USDC", d.chain.BorrowTokens)
}

func (d *Dispatcher) handleRepay(ctx context.Context, res intent.Result, _ session.View) Result {
	return d.lendingCall(ctx, res.Entities, "repay", "repay 50 USDC", d.chain.RepayLoan)
}

func (d *Dispatcher) handleOpenPosition(ctx context.Context, res intent.Result, _ session.View) Result {
	const example = "open a long position on SEI with 100 SEI at 5x leverage"
	e := res.Entities
	if e.Side == "" {
		return invalid("Should the position be long or short?", example)
	}
	if e.Collateral != "" && e.Collateral != "SEI" {
		return invalid(fmt.Sprintf("Positions take SEI collateral only, not %s.", e.Collateral), example)
	}
	collateral, bad := positiveAmount(e, "use as collateral", example)
	if bad != nil {
		return *bad
	}
	leverage := e.Leverage
	if leverage == 0 {
		leverage = 1
	}
	market := e.Ticker
	if market == "" {
		market = "SEI"
	}
	tx, err := d.chain.OpenPosition(ctx, chain.PositionRequest{Market: market, Side: e.Side, Collateral: collateral, Leverage: leverage})
	if err != nil {
		return failure(err)
	}
	return txMessage(fmt.Sprintf("Opened a %dx %s position on %s with %s SEI collateral.", leverage, e.Side, market, collateral), tx)
}

func (d *Dispatcher) handleClosePosition(ctx context.Context, res intent.Result, _ session.View) Result {
	positionID := res.Entities.PositionID
	if positionID == "" {
		return invalid("Which position should I close?", "close position 1")
	}
	tx, err := d.chain.ClosePosition(ctx, positionID)
	if err != nil {
		return failure(err)
	}
	return txMessage(fmt.Sprintf("Closed position #%s.", positionID), tx)
}

func (d *Dispatcher) handleTokenCreate(ctx context.Context, res intent.Result, _ session.View) Result {
	const example = "create a token named Moon with symbol MOON and supply 1000000"
	e := res.Entities
	if e.TokenName == "" || e.TokenSymbol == "" {
		return invalid("I need both a name and a symbol for the new token.", example)
	}
	supply := e.TotalSupply
	if supply == "" {
		supply = defaultTotalSupply
	}
	if v, err := id.ParseDecimal(supply); err != nil || v.Sign() == 0 {
		return invalid("The total supply must be a positive number.", example)
	}
	req := chain.CreateTokenRequest{Name: e.TokenName, Symbol: strings.ToUpper(e.TokenSymbol), TotalSupply: supply, Decimals: chain.DefaultDecimals}
	tx, err := d.chain.CreateToken(ctx, req)
	if err != nil {
		return failure(err)
	}
	d.rememberCreated(ctx, model.CreatedToken{Name: req.Name, Symbol: req.Symbol, TotalSupply: supply, TxHash: tx, CreatedAt: d.now().UTC()})
	return txMessage(fmt.Sprintf("Created token %s (%s) with a supply of %s.", req.Name, req.Symbol, supply), tx)
}

// rememberCreated appends to the created-token registry. A store failure is
// logged; the token already exists on chain.
func (d *Dispatcher) rememberCreated(ctx context.Context, token model.CreatedToken) {
	if d.store == nil {
		return
	}
	var created []model.CreatedToken
	if _, err := store.GetJSON(ctx, d.store, store.KeyCreatedTokens, &created); err != nil {
		d.log.Warn("read created tokens", zap.Error(err))
	}
	created = append(created, token)
	if err := store.SetJSON(ctx, d.store, store.KeyCreatedTokens, created); err != nil {
		d.log.Warn("write created tokens", zap.Error(err))
	}
}

func (d *Dispatcher) handleTokenBurn(ctx context.Context, res intent.Result, _ session.View) Result {
	const example = "burn 1000 tokens of 0x1111111111111111111111111111111111111111"
	token := res.Entities.TokenAddress
	if token == "" {
		return invalid("Which token should I burn? Include its contract address.", example)
	}
	amount, bad := positiveAmount(res.Entities, "burn", example)
	if bad != nil {
		return *bad
	}
	tx, err := d.chain.BurnToken(ctx, token, amount)
	if err != nil {
		return failure(err)
	}
	out := txMessage(fmt.Sprintf("Burned %s of %s.", amount, id.DisplaySymbol(token)), tx)
	out.Data[DataTokenAddress] = token
	return out
}

func (d *Dispatcher) handleLiquidityAdd(ctx context.Context, res intent.Result, view session.View) Result {
	const example = "add liquidity 1000 tokens and 10 SEI to 0x1111111111111111111111111111111111111111"
	e := res.Entities
	token := inheritToken(e, view)
	if token == "" {
		return invalid("Which token pool? Include the token address.", example)
	}
	tokenAmount := e.TokenAmount
	if tokenAmount == "" {
		tokenAmount = e.Amount
	}
	if tokenAmount == "" || e.SeiAmount == "" {
		return invalid("I need both a token amount and a SEI amount.", example)
	}
	for _, v := range []string{tokenAmount, e.SeiAmount} {
		if r, err := id.ParseDecimal(v); err != nil || r.Sign() == 0 {
			return invalid("Liquidity amounts must be positive numbers.", example)
		}
	}
	balance, err := d.chain.GetBalance(ctx, "")
	if err != nil {
		return failure(err)
	}
	if r := d.checkBalance(balance, e.SeiAmount, "SEI"); !r.Success {
		return r
	}
	tx, err := d.chain.AddLiquidity(ctx, chain.LiquidityRequest{Token: token, TokenAmount: tokenAmount, SeiAmount: e.SeiAmount})
	if err != nil {
		return failure(err)
	}
	out := txMessage(fmt.Sprintf("Added %s %s and %s SEI of liquidity.", tokenAmount, id.DisplaySymbol(token), e.SeiAmount), tx)
	out.Data[DataTokenAddress] = token
	return out
}
