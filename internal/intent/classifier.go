package intent

import (
	"regexp"
	"strings"
)

// FallbackThreshold is the confidence below which a result is treated as Unknown.
const FallbackThreshold = 0.3

// Classify assigns exactly one intent to text. It is pure: the same input
// always yields the same result.
func Classify(text string, entities Entities) Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, r := range rules {
		if !r.match(lower, entities) {
			continue
		}
		res := Result{Kind: r.kind, Confidence: r.confidence, Entities: entities, RawMessage: text}
		if r.mode != nil {
			res.Mode = r.mode(lower)
		}
		if res.Confidence < FallbackThreshold {
			res.Kind = Unknown
		}
		return res
	}
	return Result{Kind: Unknown, Confidence: confidenceUnknown, Entities: entities, RawMessage: text}
}

// Parse extracts entities and classifies text in one step.
func Parse(text string) Result {
	return Classify(text, Extract(text))
}

// llmSkipVerbs mark messages that must stay on the deterministic path.
var llmSkipVerbs = regexp.MustCompile(`\b(swap|exchange|trade|stake|unstake|redelegate|delegate|claim|create\s+token|add\s+liquidity|burn|send|transfer)\b`)

// HasActionVerb reports whether text names an operation that only the
// deterministic pipeline may handle.
func HasActionVerb(text string) bool {
	return llmSkipVerbs.MatchString(strings.ToLower(text))
}
