// Package intent turns a raw chat message into exactly one labelled intent
// with the structured values extracted from it.
package intent

// Kind is the closed set of intents a message can resolve to.
type Kind string

const (
	TokenScan            Kind = "TokenScan"
	TokenCreate          Kind = "TokenCreate"
	TokenBurn            Kind = "TokenBurn"
	LiquidityAdd         Kind = "LiquidityAdd"
	BalanceCheck         Kind = "BalanceCheck"
	ProtocolData         Kind = "ProtocolData"
	TradingInfo          Kind = "TradingInfo"
	Conversation         Kind = "Conversation"
	SymphonySwap         Kind = "SymphonySwap"
	StakeTokens          Kind = "StakeTokens"
	UnstakeTokens        Kind = "UnstakeTokens"
	LendTokens           Kind = "LendTokens"
	BorrowTokens         Kind = "BorrowTokens"
	RepayLoan            Kind = "RepayLoan"
	OpenPosition         Kind = "OpenPosition"
	ClosePosition        Kind = "ClosePosition"
	GetPositions         Kind = "GetPositions"
	WalletInfo           Kind = "WalletInfo"
	SendTokens           Kind = "SendTokens"
	TransferConfirmation Kind = "TransferConfirmation"
	TodoAdd              Kind = "TodoAdd"
	TodoList             Kind = "TodoList"
	Help                 Kind = "Help"
	Unknown              Kind = "Unknown"
)

var allKinds = []Kind{
	TokenScan, TokenCreate, TokenBurn, LiquidityAdd, BalanceCheck, ProtocolData,
	TradingInfo, Conversation, SymphonySwap, StakeTokens, UnstakeTokens, LendTokens,
	BorrowTokens, RepayLoan, OpenPosition, ClosePosition, GetPositions, WalletInfo,
	SendTokens, TransferConfirmation, TodoAdd, TodoList, Help, Unknown,
}

func (k Kind) Valid() bool {
	for _, v := range allKinds {
		if v == k {
			return true
		}
	}
	return false
}

// Kinds returns every intent label.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// StateChanging reports whether executing the intent writes to the chain or the store.
func (k Kind) StateChanging() bool {
	switch k {
	case TokenCreate, TokenBurn, LiquidityAdd, SymphonySwap, StakeTokens, UnstakeTokens,
		LendTokens, BorrowTokens, RepayLoan, OpenPosition, ClosePosition, SendTokens, TodoAdd:
		return true
	default:
		return false
	}
}

// Staking sub-modes carried by StakeTokens results.
const (
	ModeClaim   = "claim"
	ModeRewards = "rewards"
)

// Entities holds the values pulled out of a message. Empty means absent.
type Entities struct {
	TokenAddress   string `json:"tokenAddress,omitempty"`
	TokenName      string `json:"tokenName,omitempty"`
	TokenSymbol    string `json:"tokenSymbol,omitempty"`
	TotalSupply    string `json:"totalSupply,omitempty"`
	Amount         string `json:"amount,omitempty"`
	SeiAmount      string `json:"seiAmount,omitempty"`
	TokenAmount    string `json:"tokenAmount,omitempty"`
	TokenIn        string `json:"tokenIn,omitempty"`
	TokenOut       string `json:"tokenOut,omitempty"`
	Side           string `json:"side,omitempty"`
	Leverage       int    `json:"leverage,omitempty"`
	PositionID     string `json:"positionId,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	TransferAmount string `json:"transferAmount,omitempty"`
	Ticker         string `json:"ticker,omitempty"`
	Collateral     string `json:"collateral,omitempty"`
	TodoText       string `json:"todoText,omitempty"`
}

// AnyAmount returns the first amount found, preferring the most specific field.
func (e Entities) AnyAmount() string {
	for _, v := range []string{e.TransferAmount, e.SeiAmount, e.TokenAmount, e.Amount} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Result is the single classification produced for one message.
type Result struct {
	Kind       Kind     `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	RawMessage string   `json:"rawMessage"`
	Mode       string   `json:"mode,omitempty"`
}

// Actionable reports whether the result clears the fallback threshold.
func (r Result) Actionable() bool {
	return r.Confidence >= FallbackThreshold && r.Kind != Unknown && r.Kind != Conversation
}
