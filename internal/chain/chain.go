// Package chain defines the collaborator that performs on-chain reads and
// writes on behalf of the chat pipeline.
package chain

import "context"

// Service is the narrow surface the dispatcher uses. Implementations own
// timeouts and retries; every method returns a typed error on failure.
// An empty token address means the native asset.
type Service interface {
	GetBalance(ctx context.Context, token string) (string, error)
	TransferToken(ctx context.Context, amount, recipient, token string) (string, error)
	GetSwapQuote(ctx context.Context, req SwapRequest) (SwapQuote, error)
	SwapTokens(ctx context.Context, req SwapRequest) (string, error)

	StakeTokens(ctx context.Context, req StakeRequest) (string, error)
	UnstakeTokens(ctx context.Context, req StakeRequest) (string, error)
	ClaimRewards(ctx context.Context) (string, error)
	GetStakingInfo(ctx context.Context) (StakingInfo, error)

	LendTokens(ctx context.Context, req LendRequest) (string, error)
	BorrowTokens(ctx context.Context, req LendRequest) (string, error)
	RepayLoan(ctx context.Context, req LendRequest) (string, error)

	OpenPosition(ctx context.Context, req PositionRequest) (string, error)
	ClosePosition(ctx context.Context, positionID string) (string, error)
	GetPositions(ctx context.Context) ([]Position, error)

	CreateToken(ctx context.Context, req CreateTokenRequest) (string, error)
	BurnToken(ctx context.Context, token, amount string) (string, error)
	AddLiquidity(ctx context.Context, req LiquidityRequest) (string, error)
	ScanToken(ctx context.Context, token string) (TokenInfo, error)
	GetWalletInfo(ctx context.Context) (WalletInfo, error)
}

type SwapRequest struct {
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	Amount   string `json:"amount"`
	MinOut   string `json:"minOut,omitempty"`
}

type SwapQuote struct {
	OutputAmount string   `json:"outputAmount"`
	PriceImpact  float64  `json:"priceImpact"`
	Route        []string `json:"route,omitempty"`
}

type StakeRequest struct {
	Amount    string `json:"amount"`
	Validator string `json:"validator,omitempty"`
}

type StakingInfo struct {
	Validator      string `json:"validator,omitempty"`
	Delegated      string `json:"delegated"`
	PendingRewards string `json:"pendingRewards"`
}

type LendRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type PositionRequest struct {
	Market     string `json:"market"`
	Side       string `json:"side"`
	Collateral string `json:"collateral"`
	Leverage   int    `json:"leverage"`
}

type Position struct {
	ID         string `json:"id"`
	Market     string `json:"market"`
	Side       string `json:"side"`
	Collateral string `json:"collateral"`
	Leverage   int    `json:"leverage"`
}

type CreateTokenRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"totalSupply"`
	Decimals    int    `json:"decimals"`
}

type LiquidityRequest struct {
	Token       string `json:"token"`
	TokenAmount string `json:"tokenAmount"`
	SeiAmount   string `json:"seiAmount"`
}

type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Holding     string `json:"holding"`
}

type WalletInfo struct {
	Address      string   `json:"address"`
	SeiBalance   string   `json:"seiBalance"`
	Network      string   `json:"network"`
	Capabilities []string `json:"capabilities"`
}

// DefaultDecimals applies when token creation does not name a precision.
const DefaultDecimals = 18
