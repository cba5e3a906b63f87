// Package dispatch routes a classified intent to its handler and turns every
// outcome, including collaborator failures, into a displayable Result.
package dispatch

import (
	"fmt"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/session"
)

// Keys used in Result.Data.
const (
	DataPendingTransfer = "pendingTransfer"
	DataPendingSwap     = "pendingSwap"
	DataTokenAddress    = "tokenAddress"
	DataShortfall       = "shortfall"
	DataErrorType       = "errorType"
	DataErrorCode       = "errorCode"
	DataTxHash          = "txHash"
)

// Result is produced by every handler. A failed Result is still a terminal,
// displayable outcome.
type Result struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
	FollowUp []string       `json:"followUp,omitempty"`
}

// Pending returns the action a handler asked to hold for confirmation.
func (r Result) Pending() session.PendingAction {
	if !r.Success || r.Data == nil {
		return nil
	}
	if p, ok := r.Data[DataPendingTransfer].(session.PendingTransfer); ok {
		return p
	}
	if p, ok := r.Data[DataPendingSwap].(session.PendingSwap); ok {
		return p
	}
	return nil
}

// TokenAddress returns the token a handler wants remembered for later turns.
func (r Result) TokenAddress() string {
	if r.Data == nil {
		return ""
	}
	v, _ := r.Data[DataTokenAddress].(string)
	return v
}

// ErrorType returns the failure category, or "" for successful results.
func (r Result) ErrorType() string {
	if r.Data == nil {
		return ""
	}
	v, _ := r.Data[DataErrorType].(string)
	return v
}

func ok(message string, data map[string]any) Result {
	return Result{Success: true, Message: message, Data: data}
}

// failure converts err into a failed Result carrying its category.
func failure(err error) Result {
	code := clierr.CodeInternal
	if typed, ok := clierr.As(err); ok {
		code = typed.Code
	}
	return Result{
		Success: false,
		Message: err.Error(),
		Data: map[string]any{
			DataErrorType: clierr.Kind(err),
			DataErrorCode: int(code),
		},
	}
}

// invalid reports missing or malformed input with a usage example.
func invalid(problem, example string) Result {
	r := failure(clierr.New(clierr.CodeUsage, problem))
	r.Message = fmt.Sprintf("%s Try: \"%s\"", problem, example)
	r.FollowUp = []string{example}
	return r
}
