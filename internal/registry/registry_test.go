package registry

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func TestABIConstantsParse(t *testing.T) {
	abis := []string{ERC20ABI, SeiStakingABI, SeiDistributionABI}
	for _, raw := range abis {
		if _, err := abi.JSON(strings.NewReader(raw)); err != nil {
			t.Fatalf("failed to parse abi json: %v", err)
		}
	}
}

func TestDefaultRPCURL(t *testing.T) {
	if rpc, ok := DefaultRPCURL(SeiMainnetChainID); !ok || rpc == "" {
		t.Fatalf("expected sei mainnet rpc default, got ok=%v rpc=%q", ok, rpc)
	}
	if _, ok := DefaultRPCURL(999999); ok {
		t.Fatal("did not expect rpc default for unsupported chain")
	}
}

func TestResolveRPCURL(t *testing.T) {
	override, err := ResolveRPCURL(" https://rpc.example.test ", SeiMainnetChainID)
	if err != nil {
		t.Fatalf("resolve with override: %v", err)
	}
	if override != "https://rpc.example.test" {
		t.Fatalf("unexpected override value: %q", override)
	}
	if _, err := ResolveRPCURL("", 999999); err == nil {
		t.Fatal("expected missing chain default rpc error")
	}
}

func TestNetworkName(t *testing.T) {
	if NetworkName(SeiMainnetChainID) != "sei-pacific-1" || NetworkName(31337) != "evm-31337" {
		t.Fatalf("unexpected network names")
	}
	if !IsSeiChain(SeiTestnetChainID) || IsSeiChain(1) {
		t.Fatal("unexpected sei chain detection")
	}
}

func TestIsAllowedEndpoint(t *testing.T) {
	if !IsAllowedEndpoint(SymphonyBaseURL) {
		t.Fatal("expected canonical symphony endpoint to be allowed")
	}
	if IsAllowedEndpoint("http://api.symphony.ag") {
		t.Fatal("did not expect non-https endpoint to be allowed for non-loopback")
	}
	if !IsAllowedEndpoint("http://127.0.0.1:8080/v1") {
		t.Fatal("expected loopback endpoint to be allowed for tests/dev")
	}
	if IsAllowedEndpoint("not-a-url") || IsAllowedEndpoint("") {
		t.Fatal("did not expect malformed endpoint to be allowed")
	}
}
