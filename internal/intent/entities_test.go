package intent

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ggonzalez94/seichat/internal/id"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func TestExtract(t *testing.T) {
	usdc, _ := id.KnownToken("USDC")
	tests := []struct {
		name string
		text string
		want Entities
	}{
		{
			name: "transfer",
			text: "send 10 SEI to " + addrA,
			want: Entities{TokenAddress: addrA, Recipient: addrA, TransferAmount: "10", SeiAmount: "10", Ticker: "SEI"},
		},
		{
			name: "scan",
			text: "what about " + addrB + "?",
			want: Entities{TokenAddress: addrB},
		},
		{
			name: "burn tokens",
			text: "burn 500 tokens of " + addrB,
			want: Entities{TokenAddress: addrB, TokenAmount: "500"},
		},
		{
			name: "swap pair",
			text: "swap 10 SEI for USDC",
			want: Entities{SeiAmount: "10", TokenIn: id.NativeAddress, TokenOut: usdc.Address, Ticker: "SEI"},
		},
		{
			name: "swap generic amount",
			text: "swap 2.50 usdc to sei",
			want: Entities{Amount: "2.5", TokenIn: usdc.Address, TokenOut: id.NativeAddress, Ticker: "USDC"},
		},
		{
			name: "leverage not an amount",
			text: "open a 5x long with 100 USDC",
			want: Entities{Leverage: 5, Side: "long", Amount: "100", Ticker: "USDC", Collateral: "USDC"},
		},
		{
			name: "transfer unit outside registry",
			text: "send 3 doge to " + addrA,
			want: Entities{TokenAddress: addrA, Recipient: addrA, TransferAmount: "3", Amount: "3", Ticker: "DOGE"},
		},
		{
			name: "lending unit",
			text: "lend 40 usdc",
			want: Entities{Amount: "40", Ticker: "USDC"},
		},
		{
			name: "collateral unit",
			text: "open a long on btc with 2.5 sei",
			want: Entities{Side: "long", SeiAmount: "2.5", Ticker: "BTC", Collateral: "SEI"},
		},
		{
			name: "collateral without ticker",
			text: "go long with 100 tokens",
			want: Entities{Side: "long", TokenAmount: "100"},
		},
		{
			name: "leverage word",
			text: "go short with leverage 3",
			want: Entities{Leverage: 3, Side: "short"},
		},
		{
			name: "position id",
			text: "close position #12",
			want: Entities{PositionID: "12"},
		},
		{
			name: "token creation",
			text: "create a token named Moon symbol moon supply 1000000",
			want: Entities{TokenName: "Moon", TokenSymbol: "MOON", TotalSupply: "1000000", Amount: "1000000"},
		},
		{
			name: "only first per category",
			text: "stake 5 sei then 7 sei and 3 tokens plus 9",
			want: Entities{SeiAmount: "5", TokenAmount: "3", Ticker: "SEI"},
		},
		{
			name: "todo",
			text: "add todo: review staking rewards",
			want: Entities{TodoText: "review staking rewards"},
		},
		{
			name: "dollar ticker",
			text: "price of $btc",
			want: Entities{Ticker: "BTC"},
		},
		{
			name: "nothing",
			text: "hello there",
			want: Entities{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.text)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Extract(%q) mismatch (-want +got):\n%s", tc.text, diff)
			}
		})
	}
}

func TestExtractAddressesAlwaysValid(t *testing.T) {
	inputs := []string{
		"send 1 to 0x12345",
		"scan 0x" + "g111111111111111111111111111111111111111",
		"0x11111111111111111111111111111111111111112 is too long",
		"to " + addrA + " and " + addrB,
	}
	for _, in := range inputs {
		e := Extract(in)
		for _, v := range []string{e.TokenAddress, e.Recipient} {
			if v != "" && !id.IsAddress(v) {
				t.Fatalf("Extract(%q) produced invalid address %q", in, v)
			}
		}
	}
	e := Extract("to " + addrA + " and " + addrB)
	if e.TokenAddress != addrA || e.Recipient != addrA {
		t.Fatalf("expected first address only, got %+v", e)
	}
}
