package id

import "testing"

func TestParseChainVariants(t *testing.T) {
	tests := map[string]int64{
		"sei":         1329,
		"pacific-1":   1329,
		"atlantic-2":  1328,
		"1329":        1329,
		"eip155:1328": 1328,
	}
	for input, want := range tests {
		chain, err := ParseChain(input)
		if err != nil {
			t.Fatalf("ParseChain(%s) failed: %v", input, err)
		}
		if chain.EVMChainID != want {
			t.Fatalf("ParseChain(%s) chain id = %d, want %d", input, chain.EVMChainID, want)
		}
	}
	if _, err := ParseChain("not-a-chain"); err == nil {
		t.Fatal("expected unsupported chain error")
	}
}

func TestResolveTokenSymbolAndAddress(t *testing.T) {
	usdc, ok := ResolveToken("usdc")
	if !ok || usdc.Decimals != 6 {
		t.Fatalf("unexpected USDC resolution: %+v ok=%v", usdc, ok)
	}
	sei, ok := ResolveToken("SEI")
	if !ok || !IsNative(sei.Address) {
		t.Fatalf("expected SEI to resolve to native sentinel, got %+v", sei)
	}
	custom := "0x1111111111111111111111111111111111111111"
	tok, ok := ResolveToken(custom)
	if !ok || tok.Address != custom || tok.Decimals != 18 {
		t.Fatalf("unexpected custom token: %+v", tok)
	}
	if _, ok := ResolveToken("DOGE"); ok {
		t.Fatal("expected unknown ticker to miss")
	}
	if DisplaySymbol(usdc.Address) != "USDC" || DisplaySymbol(custom) != "0x1111...1111" {
		t.Fatalf("unexpected display symbols")
	}
}
