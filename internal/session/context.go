// Package session holds per-chat conversation state and the confirmation
// gate that guards irreversible operations.
package session

import (
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/intent"
)

type Stats struct {
	MessageCount int `json:"messageCount"`
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// Context is the mutable state of one chat session. It is owned by a single
// pipeline and is not safe for concurrent use.
type Context struct {
	LastTokenAddress string
	LastAction       intent.Kind
	pending          PendingAction
	stats            Stats
}

func New() *Context {
	return &Context{}
}

// View is the read-only slice of Context handed to action handlers.
type View struct {
	LastTokenAddress string
	LastAction       intent.Kind
	HasPending       bool
}

func (c *Context) View() View {
	return View{LastTokenAddress: c.LastTokenAddress, LastAction: c.LastAction, HasPending: c.pending != nil}
}

func (c *Context) Pending() PendingAction {
	return c.pending
}

// SetPending fills the single pending slot. It fails if an action is
// already waiting for confirmation.
func (c *Context) SetPending(p PendingAction) error {
	if p == nil {
		return clierr.New(clierr.CodeUsage, "pending action is required")
	}
	if c.pending != nil {
		return clierr.New(clierr.CodeBlocked, "another action is awaiting confirmation")
	}
	c.pending = p
	return nil
}

// ClearPending empties the slot and returns what was there.
func (c *Context) ClearPending() PendingAction {
	p := c.pending
	c.pending = nil
	return p
}

// Observe records the outcome of one processed message.
func (c *Context) Observe(kind intent.Kind, tokenAddress string, success bool) {
	c.stats.MessageCount++
	if success {
		c.stats.SuccessCount++
	} else {
		c.stats.FailureCount++
	}
	if kind != "" {
		c.LastAction = kind
	}
	if tokenAddress != "" {
		c.LastTokenAddress = tokenAddress
	}
}

func (c *Context) Stats() Stats {
	return c.stats
}

// Reset drops everything except the counters.
func (c *Context) Reset() {
	c.LastTokenAddress = ""
	c.LastAction = ""
	c.pending = nil
}
