package dispatch

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/ggonzalez94/seichat/internal/audit"
	"github.com/ggonzalez94/seichat/internal/chain"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/id"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/session"
)

const (
	sendExample = "send 10 SEI to 0x1111111111111111111111111111111111111111"
	swapExample = "swap 10 SEI for USDC"
)

// tickerToken resolves a ticker to an ERC-20 address. An empty ticker or SEI
// resolves to "" (native); ok is false for a ticker the registry does not know.
func tickerToken(ticker string) (addr string, ok bool) {
	if ticker == "" || ticker == "SEI" {
		return "", true
	}
	t, known := id.KnownToken(ticker)
	if !known {
		return "", false
	}
	if id.IsNative(t.Address) {
		return "", true
	}
	return t.Address, true
}

func unknownToken(ticker, example string) Result {
	return invalid(fmt.Sprintf("I don't know the token %s. Supported tokens: %s.", ticker, strings.Join(id.Symbols(), ", ")), example)
}

func (d *Dispatcher) handleSend(ctx context.Context, res intent.Result, _ session.View) Result {
	e := res.Entities
	if e.Recipient == "" || !id.IsAddress(e.Recipient) {
		return invalid("I need a valid recipient address (0x followed by 40 hex characters).", sendExample)
	}
	amount := e.AnyAmount()
	if amount == "" {
		return invalid("I need an amount to send.", sendExample)
	}
	value, err := id.ParseDecimal(amount)
	if err != nil {
		return invalid(err.Error(), sendExample)
	}
	if value.Sign() == 0 {
		return invalid("The amount to send must be greater than zero.", sendExample)
	}
	token, known := tickerToken(e.Ticker)
	if !known {
		return unknownToken(e.Ticker, sendExample)
	}
	symbol := id.DisplaySymbol(token)

	balance, err := d.chain.GetBalance(ctx, token)
	if err != nil {
		return failure(err)
	}
	if res := d.checkBalance(balance, amount, symbol); !res.Success {
		return res
	}
	remaining, err := id.SubDecimal(balance, amount)
	if err != nil {
		return failure(err)
	}

	pending := session.PendingTransfer{
		Amount:           id.NormalizeDecimal(amount),
		Recipient:        e.Recipient,
		CurrentBalance:   balance,
		RemainingBalance: remaining,
		Token:            token,
	}
	msg := fmt.Sprintf("Please confirm: send %s %s to %s.\nCurrent balance: %s %s\nBalance after transfer: %s %s\nReply \"yes\" to confirm or \"no\" to cancel.",
		pending.Amount, symbol, pending.Recipient, balance, symbol, remaining, symbol)
	out := ok(msg, map[string]any{DataPendingTransfer: pending})
	out.FollowUp = []string{"yes", "no"}
	return out
}

// checkBalance fails with the computed shortfall when balance < amount.
func (d *Dispatcher) checkBalance(balance, amount, symbol string) Result {
	cmp, err := id.CompareDecimal(balance, amount)
	if err != nil {
		return failure(clierr.Wrap(clierr.CodeUnavailable, "chain returned an unreadable balance", err))
	}
	if cmp >= 0 {
		return Result{Success: true}
	}
	shortfall, err := id.SubDecimal(amount, balance)
	if err != nil {
		return failure(err)
	}
	out := failure(clierr.New(clierr.CodeInsufficient,
		fmt.Sprintf("Insufficient balance: you have %s %s but need %s %s (short by %s %s).", balance, symbol, amount, symbol, shortfall, symbol)))
	out.Data[DataShortfall] = shortfall
	return out
}

func (d *Dispatcher) handleSwap(ctx context.Context, res intent.Result, _ session.View) Result {
	e := res.Entities
	amount := e.AnyAmount()
	if amount == "" {
		return invalid("I need an amount to swap.", swapExample)
	}
	value, err := id.ParseDecimal(amount)
	if err != nil {
		return invalid(err.Error(), swapExample)
	}
	if value.Sign() == 0 {
		return invalid("The amount to swap must be greater than zero.", swapExample)
	}
	tokenIn := e.TokenIn
	if tokenIn == "" {
		tokenIn = id.NativeAddress
	}
	tokenOut := e.TokenOut
	if tokenOut == "" {
		return invalid("Which token do you want to receive?", swapExample)
	}
	if strings.EqualFold(tokenIn, tokenOut) {
		return invalid("The input and output tokens must differ.", swapExample)
	}
	amount = id.NormalizeDecimal(amount)
	inSymbol, outSymbol := id.DisplaySymbol(tokenIn), id.DisplaySymbol(tokenOut)

	balanceKey := tokenIn
	if id.IsNative(tokenIn) {
		balanceKey = ""
	}
	balance, err := d.chain.GetBalance(ctx, balanceKey)
	if err != nil {
		return failure(err)
	}
	if res := d.checkBalance(balance, amount, inSymbol); !res.Success {
		return res
	}

	quote, err := d.chain.GetSwapQuote(ctx, chain.SwapRequest{TokenIn: tokenIn, TokenOut: tokenOut, Amount: amount})
	if err != nil {
		return failure(err)
	}
	if quote.PriceImpact > d.maxPriceImpact {
		d.record(ctx, audit.Event{
			Type:     audit.EventPriceImpactRejected,
			Severity: audit.SeverityCaution,
			Intent:   string(intent.SymphonySwap),
			Message:  fmt.Sprintf("swap of %s %s for %s refused: price impact %.2f%% exceeds %.2f%%", amount, inSymbol, outSymbol, quote.PriceImpact, d.maxPriceImpact),
			Data: map[string]any{
				"tokenIn":     tokenIn,
				"tokenOut":    tokenOut,
				"amount":      amount,
				"priceImpact": quote.PriceImpact,
				"ceiling":     d.maxPriceImpact,
			},
		})
		out := failure(clierr.New(clierr.CodeBlocked, fmt.Sprintf(
			"Swap refused: the price impact of %.2f%% is above the %.2f%% safety limit. Try a smaller amount.", quote.PriceImpact, d.maxPriceImpact)))
		out.FollowUp = []string{fmt.Sprintf("swap %s %s for %s", halve(amount), inSymbol, outSymbol)}
		return out
	}
	minOut, err := id.ApplySlippage(quote.OutputAmount, d.slippageBps)
	if err != nil {
		return failure(clierr.Wrap(clierr.CodeUnavailable, "swap quote returned an unreadable output amount", err))
	}

	pending := session.PendingSwap{
		Amount:      amount,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		QuotedOut:   quote.OutputAmount,
		MinOut:      minOut,
		PriceImpact: quote.PriceImpact,
		Route:       quote.Route,
	}
	msg := fmt.Sprintf("Swap quote: %s %s -> %s %s (minimum %s %s with %.2f%% slippage, price impact %.2f%%).\nReply \"yes\" to execute or \"no\" to cancel.",
		amount, inSymbol, quote.OutputAmount, outSymbol, minOut, outSymbol, float64(d.slippageBps)/100, quote.PriceImpact)
	out := ok(msg, map[string]any{DataPendingSwap: pending})
	out.FollowUp = []string{"yes", "no"}
	return out
}

func halve(amount string) string {
	r, err := id.ParseDecimal(amount)
	if err != nil {
		return amount
	}
	return id.FormatRat(r.Quo(r, big.NewRat(2, 1)))
}

// Execute performs a confirmed pending action. The chain write happens
// exactly once; a failure is reported and not retried.
func (d *Dispatcher) Execute(ctx context.Context, action session.PendingAction) (out Result) {
	defer d.recoverInto(&out, "confirmed action")
	var (
		txHash string
		err    error
		done   string
	)
	switch p := action.(type) {
	case session.PendingTransfer:
		txHash, err = d.chain.TransferToken(ctx, p.Amount, p.Recipient, p.Token)
		done = fmt.Sprintf("Sent %s %s to %s.", p.Amount, id.DisplaySymbol(p.Token), p.Recipient)
	case session.PendingSwap:
		txHash, err = d.chain.SwapTokens(ctx, chain.SwapRequest{TokenIn: p.TokenIn, TokenOut: p.TokenOut, Amount: p.Amount, MinOut: p.MinOut})
		done = fmt.Sprintf("Swapped %s %s for at least %s %s.", p.Amount, id.DisplaySymbol(p.TokenIn), p.MinOut, id.DisplaySymbol(p.TokenOut))
	default:
		return failure(clierr.New(clierr.CodeInternal, "nothing to execute"))
	}
	event := audit.Event{Intent: string(action.Intent()), Data: map[string]any{"action": action.Summary()}}
	if err != nil {
		event.Type, event.Severity, event.Message = audit.EventActionFailed, audit.SeverityError, err.Error()
		d.record(ctx, event)
		d.log.Warn("confirmed action failed", zap.String("intent", string(action.Intent())), zap.Error(err))
		return failure(err)
	}
	event.Type, event.Message = audit.EventActionExecuted, done
	event.Data[DataTxHash] = txHash
	d.record(ctx, event)

	msg := done
	if txHash != "" {
		msg += "\nTransaction: " + txHash
	}
	return ok(msg, map[string]any{DataTxHash: txHash})
}

func (d *Dispatcher) handleNothingPending(context.Context, intent.Result, session.View) Result {
	out := ok("There is nothing waiting for confirmation right now.", nil)
	out.FollowUp = []string{sendExample, swapExample}
	return out
}
