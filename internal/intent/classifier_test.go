package intent

import "testing"

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		text string
		want Kind
		mode string
	}{
		{text: "send 10 SEI to " + addrA, want: SendTokens},
		{text: "transfer 3 sei to " + addrB + " please", want: SendTokens},
		{text: addrA, want: TokenScan},
		{text: "is " + addrA + " safe?", want: TokenScan},
		{text: "burn 100 tokens of " + addrA, want: TokenBurn},
		{text: "burn 100 tokens", want: Unknown},
		{text: "add liquidity to " + addrA + " with 10 sei", want: LiquidityAdd},
		{text: "create a token named Moon symbol MOON supply 1000", want: TokenCreate},
		{text: "claim rewards", want: StakeTokens, mode: ModeClaim},
		{text: "claim my staking rewards", want: StakeTokens, mode: ModeClaim},
		{text: "show my staking rewards", want: StakeTokens, mode: ModeRewards},
		{text: "stake 10 sei", want: StakeTokens},
		{text: "unstake 5 sei", want: UnstakeTokens},
		{text: "what's my balance", want: BalanceCheck},
		{text: "how much sei do i have", want: BalanceCheck},
		{text: "show trending protocols on sei", want: ProtocolData},
		{text: "what is the price of BTC?", want: TradingInfo},
		{text: "swap 10 SEI for USDC", want: SymphonySwap},
		{text: "trade", want: SymphonySwap},
		{text: "lend 100 usdc", want: LendTokens},
		{text: "borrow 50 usdc", want: BorrowTokens},
		{text: "repay 50 usdc", want: RepayLoan},
		{text: "pay back 50 USDC to the pool", want: RepayLoan},
		{text: "pay 5 sei to " + addrA, want: SendTokens},
		{text: "open a 5x long on btc with 100 usdc", want: OpenPosition},
		{text: "close position 3", want: ClosePosition},
		{text: "show my positions", want: GetPositions},
		{text: "wallet info", want: WalletInfo},
		{text: "add todo: check rewards", want: TodoAdd},
		{text: "show my todos", want: TodoList},
		{text: "help", want: Help},
		{text: "yes", want: TransferConfirmation},
		{text: "hello", want: Conversation},
		{text: "why is the sky blue?", want: Conversation},
		{text: "purple monkey dishwasher", want: Unknown},
	}
	for _, tc := range tests {
		got := Parse(tc.text)
		if got.Kind != tc.want {
			t.Fatalf("Parse(%q) = %s, want %s", tc.text, got.Kind, tc.want)
		}
		if got.Mode != tc.mode {
			t.Fatalf("Parse(%q) mode = %q, want %q", tc.text, got.Mode, tc.mode)
		}
		if got.RawMessage != tc.text {
			t.Fatalf("raw message not preserved for %q", tc.text)
		}
	}
}

func TestClassifyConfidenceBands(t *testing.T) {
	bands := []struct {
		text string
		want float64
	}{
		{addrA, 0.95},
		{"send 1 sei to " + addrA, 0.9},
		{"create a token named X", 0.9},
		{"what's my balance", 0.8},
		{"hello", 0.7},
		{"purple monkey dishwasher", 0.1},
	}
	for _, b := range bands {
		if got := Parse(b.text).Confidence; got != b.want {
			t.Fatalf("Parse(%q) confidence = %v, want %v", b.text, got, b.want)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []string{"send 10 SEI to " + addrA, "claim rewards", "hello?", "swap 1 usdc for sei", ""}
	for _, in := range inputs {
		first := Parse(in)
		for i := 0; i < 20; i++ {
			again := Parse(in)
			if again.Kind != first.Kind || again.Confidence != first.Confidence || again.Mode != first.Mode {
				t.Fatalf("Parse(%q) not deterministic: %+v vs %+v", in, first, again)
			}
		}
	}
}

func TestEveryRuleKindIsValid(t *testing.T) {
	for _, r := range rules {
		if !r.kind.Valid() {
			t.Fatalf("rule produces invalid kind %q", r.kind)
		}
		if r.confidence < FallbackThreshold || r.confidence > 1 {
			t.Fatalf("rule %s confidence %v out of range", r.kind, r.confidence)
		}
	}
	if Kind("Bogus").Valid() {
		t.Fatal("expected unknown label to be invalid")
	}
}

func TestHasActionVerb(t *testing.T) {
	if !HasActionVerb("Can you SWAP for me") || !HasActionVerb("create token please") {
		t.Fatal("expected action verbs to be detected")
	}
	if HasActionVerb("tell me a joke") || HasActionVerb("creative tokenomics") {
		t.Fatal("unexpected action verb match")
	}
}
