// Package compose turns handler results into the text shown to the user.
package compose

import (
	"fmt"
	"strings"

	"github.com/ggonzalez94/seichat/internal/dispatch"
	"github.com/ggonzalez94/seichat/internal/intent"
	"github.com/ggonzalez94/seichat/internal/session"
)

// contextLines are appended after a successful result.
var contextLines = map[intent.Kind]string{
	intent.TokenScan:     "Always verify a contract before trading it.",
	intent.TokenCreate:   "Your new token is recorded locally; add liquidity so others can trade it.",
	intent.TokenBurn:     "Burned tokens are permanently removed from circulation.",
	intent.LiquidityAdd:  "Liquidity providers earn a share of pool trading fees.",
	intent.BalanceCheck:  "Keep some SEI for gas fees.",
	intent.ProtocolData:  "TVL figures come from DefiLlama and update daily.",
	intent.TradingInfo:   "Indicators are computed from hourly candles and are not financial advice.",
	intent.SymphonySwap:  "Swaps are routed through Symphony for the best available price.",
	intent.StakeTokens:   "Staking rewards accrue every block.",
	intent.UnstakeTokens: "Unbonding on Sei takes 21 days.",
	intent.LendTokens:    "Supplied assets start earning interest immediately.",
	intent.BorrowTokens:  "Watch your health factor to avoid liquidation.",
	intent.RepayLoan:     "Repaying improves your health factor.",
	intent.OpenPosition:  "Leveraged positions can be liquidated if the market moves against you.",
	intent.SendTokens:    "Double-check the recipient; transfers cannot be reversed.",
}

var suggestions = map[intent.Kind][]string{
	intent.TokenScan:     {"what's my balance", "swap 10 SEI for USDC"},
	intent.TokenCreate:   {"add liquidity 1000 tokens and 10 SEI", "wallet info"},
	intent.TokenBurn:     {"scan the token again", "what's my balance"},
	intent.LiquidityAdd:  {"what's my balance", "show top protocols"},
	intent.BalanceCheck:  {"send 1 SEI to 0x...", "swap 10 SEI for USDC", "stake 10 SEI"},
	intent.ProtocolData:  {"price of SEI", "stake 10 SEI"},
	intent.TradingInfo:   {"swap 10 SEI for USDC", "show top protocols"},
	intent.SymphonySwap:  {"what's my balance", "price of SEI"},
	intent.StakeTokens:   {"show my staking rewards", "claim my rewards"},
	intent.UnstakeTokens: {"show my staking rewards", "what's my balance"},
	intent.LendTokens:    {"borrow 50 USDC", "what's my balance"},
	intent.BorrowTokens:  {"repay 50 USDC", "what's my balance"},
	intent.RepayLoan:     {"what's my balance"},
	intent.OpenPosition:  {"show my positions", "close position 1"},
	intent.ClosePosition: {"show my positions", "what's my balance"},
	intent.GetPositions:  {"open a long position on SEI with 10 SEI at 2x leverage"},
	intent.WalletInfo:    {"what's my balance", "show top protocols"},
	intent.SendTokens:    {"what's my balance", "wallet info"},
	intent.TodoAdd:       {"show my todos"},
	intent.TodoList:      {"add todo check staking rewards"},
}

// Suggestions returns the follow-ups offered after an intent.
func Suggestions(kind intent.Kind) []string {
	s := suggestions[kind]
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Message builds the final text and suggestion list for a handler result.
// Handler follow-ups take priority over the per-intent defaults.
func Message(kind intent.Kind, r dispatch.Result) (string, []string) {
	msg := r.Message
	if r.Success && r.Pending() == nil {
		if line, ok := contextLines[kind]; ok {
			msg += "\n\n" + line
		}
	}
	out := dedupe(append(append([]string{}, r.FollowUp...), Suggestions(kind)...))
	if len(out) == 0 {
		return msg, nil
	}
	return msg, out
}

// Reprompt reminds the user that an action is still waiting.
func Reprompt(p session.PendingAction) string {
	return fmt.Sprintf("You have a pending action: %s.\nPlease reply \"yes\" to confirm or \"no\" to cancel before doing anything else.", p.Summary())
}

func Cancelled(p session.PendingAction) string {
	switch p.(type) {
	case session.PendingSwap:
		return "Swap cancelled. No tokens were exchanged."
	default:
		return "Transfer cancelled. No funds were sent."
	}
}

// ConfirmSuggestions are offered while an action is pending.
func ConfirmSuggestions() []string {
	return []string{"yes", "no"}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
