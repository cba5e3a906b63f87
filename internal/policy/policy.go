package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/intent"
)

// alwaysAllowed never touch the chain and keep the chat usable under any allowlist.
var alwaysAllowed = map[intent.Kind]bool{
	intent.Help:                 true,
	intent.Conversation:         true,
	intent.Unknown:              true,
	intent.TransferConfirmation: true,
}

// CheckIntentAllowed returns a blocked error when allowlist is non-empty and
// does not name kind.
func CheckIntentAllowed(allowlist []string, kind intent.Kind) error {
	if len(allowlist) == 0 || alwaysAllowed[kind] {
		return nil
	}
	norm := normalize(string(kind))
	for _, allowed := range allowlist {
		if normalize(allowed) == norm {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("%s is blocked by the --enable-intents policy", kind))
}

// ValidateAllowlist rejects entries that are not intent names.
func ValidateAllowlist(allowlist []string) error {
	for _, allowed := range allowlist {
		ok := false
		for _, k := range intent.Kinds() {
			if normalize(allowed) == normalize(string(k)) {
				ok = true
				break
			}
		}
		if !ok {
			return clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown intent %q in --enable-intents", allowed))
		}
	}
	return nil
}

func normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(v)
}
