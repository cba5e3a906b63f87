package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggonzalez94/seichat/internal/id"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/session"
)

const defaultProtocolLimit = 5

// inheritToken returns the address named in the message, or the last token
// the session talked about.
func inheritToken(e intent.Entities, view session.View) string {
	if e.TokenAddress != "" {
		return e.TokenAddress
	}
	return view.LastTokenAddress
}

func (d *Dispatcher) handleBalance(ctx context.Context, res intent.Result, _ session.View) Result {
	e := res.Entities
	token := ""
	switch {
	case e.TokenAddress != "":
		token = e.TokenAddress
	case e.Ticker != "":
		addr, known := tickerToken(e.Ticker)
		if !known {
			return unknownToken(e.Ticker, "what is my USDC balance")
		}
		token = addr
	}
	balance, err := d.chain.GetBalance(ctx, token)
	if err != nil {
		return failure(err)
	}
	symbol := id.DisplaySymbol(token)
	data := map[string]any{"balance": balance, "symbol": symbol}
	if token != "" {
		data[DataTokenAddress] = token
	}
	return ok(fmt.Sprintf("Your balance is %s %s.", balance, symbol), data)
}

func (d *Dispatcher) handleTokenScan(ctx context.Context, res intent.Result, view session.View) Result {
	token := inheritToken(res.Entities, view)
	if token == "" {
		return invalid("Which token should I scan? Paste its contract address.", "0x1111111111111111111111111111111111111111")
	}
	info, err := d.chain.ScanToken(ctx, token)
	if err != nil {
		return failure(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Token %s", id.ShortAddress(token))
	if info.Name != "" || info.Symbol != "" {
		fmt.Fprintf(&b, ": %s (%s)", info.Name, info.Symbol)
	}
	fmt.Fprintf(&b, "\nDecimals: %d", info.Decimals)
	if info.TotalSupply != "" {
		fmt.Fprintf(&b, "\nTotal supply: %s", info.TotalSupply)
	}
	if info.Holding != "" {
		fmt.Fprintf(&b, "\nYour holding: %s", info.Holding)
	}
	return ok(b.String(), map[string]any{DataTokenAddress: token, "token": info})
}

func (d *Dispatcher) handleWalletInfo(ctx context.Context, _ intent.Result, _ session.View) Result {
	info, err := d.chain.GetWalletInfo(ctx)
	if err != nil {
		return failure(err)
	}
	msg := fmt.Sprintf("Wallet %s on %s\nBalance: %s SEI", info.Address, info.Network, info.SeiBalance)
	if len(info.Capabilities) > 0 {
		msg += "\nCapabilities: " + strings.Join(info.Capabilities, ", ")
	}
	return ok(msg, map[string]any{"wallet": info})
}

func (d *Dispatcher) handleGetPositions(ctx context.Context, _ intent.Result, _ session.View) Result {
	positions, err := d.chain.GetPositions(ctx)
	if err != nil {
		return failure(err)
	}
	if len(positions) == 0 {
		return ok("You have no open positions.", map[string]any{"positions": positions})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d open position(s):", len(positions))
	for _, p := range positions {
		fmt.Fprintf(&b, "\n#%s %s %s %dx, collateral %s", p.ID, strings.ToUpper(p.Side), p.Market, p.Leverage, p.Collateral)
	}
	return ok(b.String(), map[string]any{"positions": positions})
}

func (d *Dispatcher) handleProtocolData(ctx context.Context, _ intent.Result, _ session.View) Result {
	if d.protocols == nil {
		return unsupported("Protocol data")
	}
	rows, err := d.protocols.TopProtocols(ctx, defaultProtocolLimit)
	if err != nil {
		return failure(err)
	}
	if len(rows) == 0 {
		return ok("No protocol data is available for Sei right now.", map[string]any{"protocols": rows})
	}
	var b strings.Builder
	b.WriteString("Top Sei protocols by TVL:")
	for _, p := range rows {
		fmt.Fprintf(&b, "\n%d. %s (%s) $%s, %+.2f%% 24h", p.Rank, p.Protocol, p.Category, compactUSD(p.TVLUSD), p.Change1D)
	}
	return ok(b.String(), map[string]any{"protocols": rows})
}

func (d *Dispatcher) handleTradingInfo(ctx context.Context, res intent.Result, _ session.View) Result {
	if d.market == nil {
		return unsupported("Market data")
	}
	symbol := res.Entities.Ticker
	if symbol == "" {
		symbol = "SEI"
	}
	info, err := d.market.TradingInfo(ctx, symbol)
	if err != nil {
		return failure(err)
	}
	msg := fmt.Sprintf("%s is trading at $%.4f (%+.2f%% 24h, range %.4f-%.4f).\nRSI(14): %.1f, EMA(20): %.4f, trend: %s.",
		info.Symbol, info.PriceUSD, info.Change24hPct, info.Low24h, info.High24h, info.RSI14, info.EMA20, info.Trend)
	return ok(msg, map[string]any{"market": info})
}

func compactUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
