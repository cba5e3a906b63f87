package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
)

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NativeAddress is the sentinel used for the chain's native asset in swap routes.
const NativeAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

type Chain struct {
	Name       string
	Slug       string
	EVMChainID int64
	Native     string
}

type Token struct {
	Symbol   string
	Address  string
	Decimals int
}

var chainBySlug = map[string]Chain{
	"pacific-1":  {Name: "Sei", Slug: "pacific-1", EVMChainID: 1329, Native: "SEI"},
	"mainnet":    {Name: "Sei", Slug: "pacific-1", EVMChainID: 1329, Native: "SEI"},
	"sei":        {Name: "Sei", Slug: "pacific-1", EVMChainID: 1329, Native: "SEI"},
	"atlantic-2": {Name: "Sei Testnet", Slug: "atlantic-2", EVMChainID: 1328, Native: "SEI"},
	"testnet":    {Name: "Sei Testnet", Slug: "atlantic-2", EVMChainID: 1328, Native: "SEI"},
}

var chainByID = map[int64]Chain{
	1329: chainBySlug["pacific-1"],
	1328: chainBySlug["atlantic-2"],
}

// Small bootstrap registry used to resolve tickers typed in chat.
var tokenRegistry = []Token{
	{Symbol: "SEI", Address: NativeAddress, Decimals: 18},
	{Symbol: "WSEI", Address: "0xE30feDd158A2e3b13e9badaeABaFc5516e95e8C7", Decimals: 18},
	{Symbol: "USDC", Address: "0x3894085Ef7Ff0f0aeDf52E2A2704928d1Ec074F1", Decimals: 6},
}

func ParseChain(input string) (Chain, error) {
	norm := strings.ToLower(strings.TrimSpace(input))
	if norm == "" {
		return Chain{}, clierr.New(clierr.CodeUsage, "chain is required")
	}
	if chain, ok := chainBySlug[norm]; ok {
		return chain, nil
	}
	if n, err := strconv.ParseInt(strings.TrimPrefix(norm, "eip155:"), 10, 64); err == nil {
		if chain, ok := chainByID[n]; ok {
			return chain, nil
		}
		return Chain{Name: fmt.Sprintf("EVM-%d", n), Slug: fmt.Sprintf("evm-%d", n), EVMChainID: n, Native: "ETH"}, nil
	}
	return Chain{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported chain input: %s", input))
}

// IsAddress reports whether v is a 0x-prefixed 20-byte hex address.
func IsAddress(v string) bool {
	return evmAddressPattern.MatchString(strings.TrimSpace(v))
}

func IsNative(address string) bool {
	return address == "" || strings.EqualFold(strings.TrimSpace(address), NativeAddress)
}

// ResolveToken maps a ticker or an address to a registry token. Unknown
// addresses resolve to themselves with 18 decimals.
func ResolveToken(input string) (Token, bool) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Token{}, false
	}
	if IsAddress(raw) {
		if t, ok := LookupByAddress(raw); ok {
			return t, true
		}
		return Token{Address: raw, Decimals: 18}, true
	}
	return KnownToken(raw)
}

func KnownToken(symbol string) (Token, bool) {
	for _, t := range tokenRegistry {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

func LookupByAddress(address string) (Token, bool) {
	for _, t := range tokenRegistry {
		if strings.EqualFold(t.Address, strings.TrimSpace(address)) {
			return t, true
		}
	}
	return Token{}, false
}

// Symbols lists registry tickers in registration order.
func Symbols() []string {
	out := make([]string, 0, len(tokenRegistry))
	for _, t := range tokenRegistry {
		out = append(out, t.Symbol)
	}
	return out
}

// DisplaySymbol returns a ticker for address or a shortened address.
func DisplaySymbol(address string) string {
	if IsNative(address) {
		return "SEI"
	}
	if t, ok := LookupByAddress(address); ok {
		return t.Symbol
	}
	return ShortAddress(address)
}

func ShortAddress(address string) string {
	if len(address) < 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
