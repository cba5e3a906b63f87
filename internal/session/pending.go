package session

import (
	"fmt"
	"strings"

	"github.com/ggonzalez94/seichat/internal/id"
	"github.com/ggonzalez94/seichat/internal/intent"
)

// PendingAction is an irreversible operation whose parameters are validated
// and that waits for an explicit yes or no. Only PendingTransfer and
// PendingSwap implement it.
type PendingAction interface {
	Intent() intent.Kind
	Summary() string
	isPending()
}

type PendingTransfer struct {
	Amount           string `json:"amount"`
	Recipient        string `json:"recipient"`
	CurrentBalance   string `json:"currentBalance"`
	RemainingBalance string `json:"remainingBalance"`
	Token            string `json:"token,omitempty"`
}

func (PendingTransfer) Intent() intent.Kind { return intent.SendTokens }

func (p PendingTransfer) Summary() string {
	return fmt.Sprintf("send %s %s to %s (balance %s, remaining %s)",
		p.Amount, id.DisplaySymbol(p.Token), p.Recipient, p.CurrentBalance, p.RemainingBalance)
}

func (PendingTransfer) isPending() {}

type PendingSwap struct {
	Amount      string   `json:"amount"`
	TokenIn     string   `json:"tokenIn"`
	TokenOut    string   `json:"tokenOut"`
	QuotedOut   string   `json:"quotedOut"`
	MinOut      string   `json:"minOut"`
	PriceImpact float64  `json:"priceImpact"`
	Route       []string `json:"route,omitempty"`
}

func (PendingSwap) Intent() intent.Kind { return intent.SymphonySwap }

func (p PendingSwap) Summary() string {
	s := fmt.Sprintf("swap %s %s for at least %s %s (quoted %s, price impact %.2f%%)",
		p.Amount, id.DisplaySymbol(p.TokenIn), p.MinOut, id.DisplaySymbol(p.TokenOut), p.QuotedOut, p.PriceImpact)
	if len(p.Route) > 0 {
		s += " via " + strings.Join(p.Route, " > ")
	}
	return s
}

func (PendingSwap) isPending() {}
