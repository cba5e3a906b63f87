package session

import (
	"regexp"
	"strings"
)

type Verdict int

const (
	// Pass means no action is pending; the message proceeds to classification.
	Pass Verdict = iota
	Confirm
	Cancel
	Reprompt
)

func (v Verdict) String() string {
	switch v {
	case Confirm:
		return "confirm"
	case Cancel:
		return "cancel"
	case Reprompt:
		return "reprompt"
	default:
		return "pass"
	}
}

var (
	swapAffirmRe     = regexp.MustCompile(`^(yes|y|confirm|proceed|go ahead|do it|ok|okay)\b`)
	swapNegateRe     = regexp.MustCompile(`^(no|n|cancel|stop|abort|not now)\b`)
	transferAffirmRe = regexp.MustCompile(`^(yes|y|confirm|proceed|go ahead|send it)\b|^yes\b.*\bconfirm\b|^confirm\b.*\byes\b`)
	transferNegateRe = regexp.MustCompile(`^(no|n|cancel|abort|stop|never mind|nevermind|don't send|dont send)\b`)
)

// Decision is the gate's ruling on one message. Action is set for every
// verdict except Pass.
type Decision struct {
	Verdict Verdict
	Action  PendingAction
}

// Check runs before classification. While an action is pending the gate owns
// the turn: an affirmative or negative reply clears the slot, anything else
// leaves it in place and asks again.
func Check(c *Context, text string) Decision {
	p := c.Pending()
	if p == nil {
		return Decision{Verdict: Pass}
	}
	affirm, negate := transferAffirmRe, transferNegateRe
	if _, ok := p.(PendingSwap); ok {
		affirm, negate = swapAffirmRe, swapNegateRe
	}
	reply := strings.ToLower(strings.TrimSpace(text))
	switch {
	case affirm.MatchString(reply):
		c.ClearPending()
		return Decision{Verdict: Confirm, Action: p}
	case negate.MatchString(reply):
		c.ClearPending()
		return Decision{Verdict: Cancel, Action: p}
	default:
		return Decision{Verdict: Reprompt, Action: p}
	}
}
