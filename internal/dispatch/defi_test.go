package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ggonzalez94/seichat/internal/chain"
	"github.com/ggonzalez94/seichat/internal/chain/chaintest"
	"github.com/ggonzalez94/seichat/internal/id"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/session"
)

const burnTarget = "0x1111111111111111111111111111111111111111"

func TestTokenBurn(t *testing.T) {
	fake := chaintest.New()
	res := dispatchText(t, New(fake), "burn 1000 tokens of "+burnTarget, session.View{})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.TokenAddress() != burnTarget {
		t.Fatalf("expected token address in data, got %v", res.Data)
	}
	calls := fake.Calls("BurnToken")
	if len(calls) != 1 {
		t.Fatalf("expected one burn, got %d", len(calls))
	}
	if diff := cmp.Diff([]any{burnTarget, "1000"}, calls[0].Args); diff != "" {
		t.Fatalf("burn args mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenBurnValidation(t *testing.T) {
	tests := []struct {
		name     string
		entities intent.Entities
	}{
		{name: "missing address", entities: intent.Entities{TokenAmount: "5"}},
		{name: "missing amount", entities: intent.Entities{TokenAddress: burnTarget}},
		{name: "zero amount", entities: intent.Entities{TokenAddress: burnTarget, TokenAmount: "0"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := chaintest.New()
			res := New(fake).Dispatch(context.Background(), intent.Result{Kind: intent.TokenBurn, Entities: tc.entities}, session.View{})
			if res.Success || res.ErrorType() != "validation_error" {
				t.Fatalf("expected validation failure, got %+v", res)
			}
			if n := len(fake.Calls("BurnToken")); n != 0 {
				t.Fatalf("expected no burn, got %d", n)
			}
		})
	}
}

func TestLendingRequests(t *testing.T) {
	usdc, _ := id.KnownToken("USDC")
	tests := []struct {
		text   string
		method string
		want   chain.LendRequest
	}{
		{text: "lend 100 usdc", method: "LendTokens", want: chain.LendRequest{Asset: usdc.Address, Amount: "100"}},
		{text: "lend 12.50 sei", method: "LendTokens", want: chain.LendRequest{Asset: id.NativeAddress, Amount: "12.5"}},
		{text: "borrow 50 usdc", method: "BorrowTokens", want: chain.LendRequest{Asset: usdc.Address, Amount: "50"}},
		{text: "repay 20 usdc", method: "RepayLoan", want: chain.LendRequest{Asset: usdc.Address, Amount: "20"}},
		{text: "pay back 5 usdc", method: "RepayLoan", want: chain.LendRequest{Asset: usdc.Address, Amount: "5"}},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			fake := chaintest.New()
			res := dispatchText(t, New(fake), tc.text, session.View{})
			if !res.Success {
				t.Fatalf("expected success, got %+v", res)
			}
			if res.Data[DataTxHash] != fake.TxHash {
				t.Fatalf("expected tx hash %s, got %v", fake.TxHash, res.Data[DataTxHash])
			}
			calls := fake.Calls(tc.method)
			if len(calls) != 1 {
				t.Fatalf("expected one %s call, got %d", tc.method, len(calls))
			}
			if diff := cmp.Diff([]any{tc.want}, calls[0].Args); diff != "" {
				t.Fatalf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLendingRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "unknown asset", text: "lend 100 doge", want: "I don't know the token DOGE"},
		{name: "market symbol", text: "borrow 2 ETH", want: "I don't know the token ETH"},
		{name: "missing amount", text: "repay my usdc loan", want: "I need an amount to repay"},
		{name: "zero amount", text: "lend 0 usdc", want: "greater than zero"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := chaintest.New()
			res := dispatchText(t, New(fake), tc.text, session.View{})
			if res.Success || res.ErrorType() != "validation_error" {
				t.Fatalf("expected validation failure, got %+v", res)
			}
			if !strings.Contains(res.Message, tc.want) {
				t.Fatalf("expected %q in %q", tc.want, res.Message)
			}
			if n := len(fake.Calls("")); n != 0 {
				t.Fatalf("expected no chain calls, got %d", n)
			}
		})
	}
}

func TestOpenPosition(t *testing.T) {
	tests := []struct {
		text string
		want chain.PositionRequest
	}{
		{text: "open a long on btc with 2 sei", want: chain.PositionRequest{Market: "BTC", Side: "long", Collateral: "2", Leverage: 1}},
		{text: "open a 5x short position with 100 sei", want: chain.PositionRequest{Market: "SEI", Side: "short", Collateral: "100", Leverage: 5}},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			fake := chaintest.New()
			res := dispatchText(t, New(fake), tc.text, session.View{})
			if !res.Success {
				t.Fatalf("expected success, got %+v", res)
			}
			calls := fake.Calls("OpenPosition")
			if len(calls) != 1 {
				t.Fatalf("expected one open, got %d", len(calls))
			}
			if diff := cmp.Diff([]any{tc.want}, calls[0].Args); diff != "" {
				t.Fatalf("position mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpenPositionValidation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "missing side", text: "open a position on btc with 2 sei", want: "long or short"},
		{name: "non-SEI collateral", text: "open a 5x long on btc with 100 usdc", want: "SEI collateral only, not USDC"},
		{name: "missing collateral", text: "open a long on btc", want: "I need an amount"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := chaintest.New()
			res := dispatchText(t, New(fake), tc.text, session.View{})
			if res.Success || res.ErrorType() != "validation_error" {
				t.Fatalf("expected validation failure, got %+v", res)
			}
			if !strings.Contains(res.Message, tc.want) {
				t.Fatalf("expected %q in %q", tc.want, res.Message)
			}
			if n := len(fake.Calls("OpenPosition")); n != 0 {
				t.Fatalf("expected no open, got %d", n)
			}
		})
	}
}

func TestClosePosition(t *testing.T) {
	fake := chaintest.New()
	d := New(fake)

	res := dispatchText(t, d, "close position #7", session.View{})
	if !res.Success || !strings.Contains(res.Message, "#7") {
		t.Fatalf("unexpected result %+v", res)
	}
	calls := fake.Calls("ClosePosition")
	if len(calls) != 1 {
		t.Fatalf("expected one close, got %d", len(calls))
	}
	if diff := cmp.Diff([]any{"7"}, calls[0].Args); diff != "" {
		t.Fatalf("close args mismatch (-want +got):\n%s", diff)
	}

	res = dispatchText(t, d, "close my position", session.View{})
	if res.Success || res.ErrorType() != "validation_error" {
		t.Fatalf("expected validation failure, got %+v", res)
	}
	if n := len(fake.Calls("ClosePosition")); n != 1 {
		t.Fatalf("missing id must not close anything, got %d calls", n)
	}
}

func TestGetPositions(t *testing.T) {
	fake := chaintest.New()
	d := New(fake)

	res := dispatchText(t, d, "show my positions", session.View{})
	if !res.Success || !strings.Contains(res.Message, "no open positions") {
		t.Fatalf("unexpected empty result %+v", res)
	}

	fake.Positions = []chain.Position{{ID: "3", Market: "BTC", Side: "long", Collateral: "50", Leverage: 4}}
	res = dispatchText(t, d, "show my positions", session.View{})
	if !res.Success || !strings.Contains(res.Message, "#3 LONG BTC 4x, collateral 50") {
		t.Fatalf("unexpected result %+v", res)
	}

	fake.Err = errors.New("rpc down")
	res = dispatchText(t, d, "show my positions", session.View{})
	if res.Success || res.ErrorType() != "collaborator_failure" {
		t.Fatalf("expected collaborator failure, got %+v", res)
	}
}

type stubProtocols struct {
	rows  []model.ProtocolTVL
	limit int
}

func (s *stubProtocols) TopProtocols(_ context.Context, limit int) ([]model.ProtocolTVL, error) {
	s.limit = limit
	return s.rows, nil
}

type stubMarket struct {
	symbols []string
}

func (s *stubMarket) TradingInfo(_ context.Context, symbol string) (model.TradingInfo, error) {
	s.symbols = append(s.symbols, symbol)
	return model.TradingInfo{Symbol: symbol, PriceUSD: 1.25, Trend: "up"}, nil
}

func TestProtocolData(t *testing.T) {
	res := dispatchText(t, New(chaintest.New()), "show trending protocols on sei", session.View{})
	if res.Success || res.ErrorType() != "unsupported" {
		t.Fatalf("expected unsupported without a source, got %+v", res)
	}

	src := &stubProtocols{rows: []model.ProtocolTVL{{Rank: 1, Protocol: "Yei Finance", Category: "Lending", TVLUSD: 2_500_000, Change1D: 1.5}}}
	res = dispatchText(t, New(chaintest.New(), WithProtocols(src)), "show trending protocols on sei", session.View{})
	if !res.Success || !strings.Contains(res.Message, "1. Yei Finance (Lending)") {
		t.Fatalf("unexpected result %+v", res)
	}
	if src.limit != defaultProtocolLimit {
		t.Fatalf("expected limit %d, got %d", defaultProtocolLimit, src.limit)
	}
}

func TestTradingInfo(t *testing.T) {
	res := dispatchText(t, New(chaintest.New()), "what is the price of BTC?", session.View{})
	if res.Success || res.ErrorType() != "unsupported" {
		t.Fatalf("expected unsupported without a source, got %+v", res)
	}

	src := &stubMarket{}
	d := New(chaintest.New(), WithMarket(src))
	if res := dispatchText(t, d, "what is the price of BTC?", session.View{}); !res.Success || !strings.Contains(res.Message, "BTC is trading at $1.2500") {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := dispatchText(t, d, "show the price chart", session.View{}); !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if diff := cmp.Diff([]string{"BTC", "SEI"}, src.symbols); diff != "" {
		t.Fatalf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestHelpAndConversationFollowUps(t *testing.T) {
	d := New(chaintest.New())
	for _, kind := range []intent.Kind{intent.Help, intent.Conversation} {
		before := append([]string(nil), ExampleCommands...)
		res := d.Dispatch(context.Background(), intent.Result{Kind: kind, Confidence: 1}, session.View{})
		if !res.Success {
			t.Fatalf("%s: expected success, got %+v", kind, res)
		}
		if diff := cmp.Diff(ExampleCommands[:4], res.FollowUp); diff != "" {
			t.Fatalf("%s: follow-up mismatch (-want +got):\n%s", kind, diff)
		}
		res.FollowUp[0] = "changed"
		res.FollowUp = append(res.FollowUp, "extra")
		if diff := cmp.Diff(before, ExampleCommands); diff != "" {
			t.Fatalf("%s: example commands modified (-want +got):\n%s", kind, diff)
		}
	}
}
