package intent

import (
	"regexp"
	"strings"
)

// Confidence bands assigned by the rules below.
const (
	confidenceScan         = 0.95
	confidenceExact        = 0.9
	confidenceSpecific     = 0.85
	confidenceAction       = 0.8
	confidenceInformation  = 0.75
	confidenceConversation = 0.7
	confidenceAcknowledge  = 0.6
	confidenceUnknown      = 0.1
)

var (
	todoAddRe       = regexp.MustCompile(`^\s*(add\s+(a\s+)?(todo|task)|todo\s*:|remind\s+me\s+to)\b`)
	todoListRe      = regexp.MustCompile(`\b(show|list|view|see)\s+(my\s+)?(todos?|tasks|todo\s+list)\b|\bmy\s+(todos|tasks|todo\s+list)\b|^\s*todos?\s*$`)
	stakeClaimRe    = regexp.MustCompile(`\bclaim\b.*\brewards?\b|\bclaim\s+(my\s+)?staking\b`)
	stakeQueryRe    = regexp.MustCompile(`\b(staking|stake|delegation)\s+rewards?\b|\bmy\s+(stakes?|delegations?|staking)\b|\bhow\s+much\b.*\bstaked\b|\bpending\s+rewards\b`)
	sendVerbRe      = regexp.MustCompile(`\b(send|transfer|pay)\b`)
	actionVerbRe    = regexp.MustCompile(`\b(burn|liquidity|create|make|launch|deploy|swap|exchange|trade|convert|stake|unstake|delegate|lend|borrow|repay|send|transfer)\b`)
	createRe        = regexp.MustCompile(`\b(create|make|launch|deploy|mint)\b.*\b(token|coin|memecoin)\b`)
	burnRe          = regexp.MustCompile(`\bburn\b`)
	liquidityRe     = regexp.MustCompile(`\b(add|provide|supply)\b.*\bliquidity\b|\bliquidity\b.*\b(add|pool)\b`)
	balanceRe       = regexp.MustCompile(`\bbalances?\b|\bhow\s+much\s+(sei|do\s+i\s+have)\b|\bmy\s+(funds|holdings)\b`)
	protocolRe      = regexp.MustCompile(`\b(protocols?|tvl|trending|defi\s+(data|stats|rankings?))\b|\btop\s+(defi|projects|dapps)\b`)
	tradingRe       = regexp.MustCompile(`\b(price|prices|volume|market\s*cap|chart|rsi|ema|technicals?)\b|\btrading\s+(info|data|stats)\b`)
	swapRe          = regexp.MustCompile(`\b(swap|exchange|trade|convert)\b`)
	unstakeRe       = regexp.MustCompile(`\b(unstake|undelegate|unbond|redelegate)\b`)
	stakeRe         = regexp.MustCompile(`\b(stake|delegate)\b`)
	repayRe         = regexp.MustCompile(`\brepay\b|\bpay\s+back\b`)
	payBackRe       = regexp.MustCompile(`\bpay\s+back\b`)
	lendRe          = regexp.MustCompile(`\b(lend|supply|deposit)\b`)
	borrowRe        = regexp.MustCompile(`\bborrow\b`)
	closePositionRe = regexp.MustCompile(`\bclose\b.*\bposition\b`)
	openPositionRe  = regexp.MustCompile(`\b(open|go|take)\b.*\b(long|short|position)\b|\b(long|short)\b.*\bleverage\b`)
	positionsRe     = regexp.MustCompile(`\bpositions\b|\bmy\s+position\b`)
	walletRe        = regexp.MustCompile(`\bwallet\b|\bmy\s+address\b|\baccount\s+info\b`)
	helpRe          = regexp.MustCompile(`^\s*(help|commands|\?)\s*$|\bwhat\s+can\s+you\s+do\b|\bhelp\s+me\b`)
	acknowledgeRe   = regexp.MustCompile(`^\s*(yes|y|confirm|proceed|go\s+ahead|no|n|cancel|abort)\s*[.!]*\s*$`)
	conversationRe  = regexp.MustCompile(`^\s*(hi|hello|hey|gm|yo|good\s+(morning|afternoon|evening)|thanks|thank\s+you)\b|\?\s*$|^\s*(what|who|why|how|when|where|can|could|is|are|do|does|tell)\b`)
)

type rule struct {
	kind       Kind
	confidence float64
	match      func(lower string, e Entities) bool
	mode       func(lower string) string
}

func pattern(re *regexp.Regexp) func(string, Entities) bool {
	return func(lower string, _ Entities) bool { return re.MatchString(lower) }
}

// rules are evaluated top to bottom; the first match wins.
var rules = []rule{
	{kind: TodoAdd, confidence: confidenceExact, match: pattern(todoAddRe)},
	{kind: TodoList, confidence: confidenceExact, match: pattern(todoListRe)},
	{
		kind:       StakeTokens,
		confidence: confidenceSpecific,
		match: func(lower string, _ Entities) bool {
			return stakeClaimRe.MatchString(lower) || stakeQueryRe.MatchString(lower)
		},
		mode: func(lower string) string {
			if stakeClaimRe.MatchString(lower) {
				return ModeClaim
			}
			return ModeRewards
		},
	},
	{
		kind:       SendTokens,
		confidence: confidenceExact,
		match: func(lower string, e Entities) bool {
			if payBackRe.MatchString(lower) {
				return false
			}
			return sendVerbRe.MatchString(lower) && (e.Recipient != "" || strings.Contains(lower, " to "))
		},
	},
	{
		kind:       TokenScan,
		confidence: confidenceScan,
		match: func(lower string, e Entities) bool {
			return e.TokenAddress != "" && !actionVerbRe.MatchString(lower)
		},
	},
	{kind: TokenCreate, confidence: confidenceExact, match: pattern(createRe)},
	{
		kind:       TokenBurn,
		confidence: confidenceExact,
		match: func(lower string, e Entities) bool {
			return burnRe.MatchString(lower) && e.TokenAddress != ""
		},
	},
	{kind: LiquidityAdd, confidence: confidenceSpecific, match: pattern(liquidityRe)},
	{kind: BalanceCheck, confidence: confidenceAction, match: pattern(balanceRe)},
	{kind: ProtocolData, confidence: confidenceInformation, match: pattern(protocolRe)},
	{kind: TradingInfo, confidence: confidenceInformation, match: pattern(tradingRe)},
	{kind: SymphonySwap, confidence: confidenceSpecific, match: pattern(swapRe)},
	{kind: UnstakeTokens, confidence: confidenceAction, match: pattern(unstakeRe)},
	{kind: StakeTokens, confidence: confidenceAction, match: pattern(stakeRe)},
	{kind: RepayLoan, confidence: confidenceAction, match: pattern(repayRe)},
	{kind: LendTokens, confidence: confidenceAction, match: pattern(lendRe)},
	{kind: BorrowTokens, confidence: confidenceAction, match: pattern(borrowRe)},
	{kind: ClosePosition, confidence: confidenceAction, match: pattern(closePositionRe)},
	{kind: OpenPosition, confidence: confidenceAction, match: pattern(openPositionRe)},
	{kind: GetPositions, confidence: confidenceAction, match: pattern(positionsRe)},
	{kind: WalletInfo, confidence: confidenceAction, match: pattern(walletRe)},
	{kind: Help, confidence: confidenceAction, match: pattern(helpRe)},
	{kind: TransferConfirmation, confidence: confidenceAcknowledge, match: pattern(acknowledgeRe)},
	{kind: Conversation, confidence: confidenceConversation, match: pattern(conversationRe)},
}
