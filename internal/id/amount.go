package id

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseDecimal parses a non-negative decimal string exactly.
func ParseDecimal(v string) (*big.Rat, error) {
	v = strings.TrimSpace(v)
	if !decimalPattern.MatchString(v) {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("amount must be a non-negative decimal like 1.23, got %q", v))
	}
	r, ok := new(big.Rat).SetString(v)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, "invalid decimal amount")
	}
	return r, nil
}

// FormatRat renders r as a plain decimal with at most 18 fractional digits.
func FormatRat(r *big.Rat) string {
	s := r.FloatString(18)
	neg := strings.HasPrefix(s, "-")
	s = normalizeDecimal(strings.TrimPrefix(s, "-"))
	if neg && s != "0" {
		return "-" + s
	}
	return s
}

// SubDecimal returns a-b as a decimal string.
func SubDecimal(a, b string) (string, error) {
	ra, err := ParseDecimal(a)
	if err != nil {
		return "", err
	}
	rb, err := ParseDecimal(b)
	if err != nil {
		return "", err
	}
	return FormatRat(new(big.Rat).Sub(ra, rb)), nil
}

// CompareDecimal returns -1, 0 or 1 like big.Rat.Cmp.
func CompareDecimal(a, b string) (int, error) {
	ra, err := ParseDecimal(a)
	if err != nil {
		return 0, err
	}
	rb, err := ParseDecimal(b)
	if err != nil {
		return 0, err
	}
	return ra.Cmp(rb), nil
}

// ApplySlippage computes quoted * (1 - bps/10000).
func ApplySlippage(quoted string, bps int64) (string, error) {
	if bps < 0 || bps > 10000 {
		return "", clierr.New(clierr.CodeUsage, "slippage bps must be between 0 and 10000")
	}
	q, err := ParseDecimal(quoted)
	if err != nil {
		return "", err
	}
	factor := new(big.Rat).SetFrac64(10000-bps, 10000)
	return FormatRat(new(big.Rat).Mul(q, factor)), nil
}

// ToBaseUnits converts a decimal amount into integer base units. Precision
// beyond the token's decimals is rejected.
func ToBaseUnits(decimal string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, clierr.New(clierr.CodeUsage, "decimals must be >= 0")
	}
	decimal = strings.TrimSpace(decimal)
	if !decimalPattern.MatchString(decimal) {
		return nil, clierr.New(clierr.CodeUsage, "amount must be in decimal form like 1.23")
	}
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, "invalid decimal amount")
	}
	return n, nil
}

// FormatUnits converts integer base units into a decimal string.
func FormatUnits(n *big.Int, decimals int) string {
	if n == nil {
		return "0"
	}
	if decimals == 0 {
		return n.String()
	}
	s := new(big.Int).Abs(n).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	out := intPart
	if fracPart != "" {
		out = intPart + "." + fracPart
	}
	if n.Sign() < 0 {
		return "-" + out
	}
	return out
}

func NormalizeDecimal(v string) string {
	return normalizeDecimal(strings.TrimSpace(v))
}

func normalizeDecimal(v string) string {
	if !strings.Contains(v, ".") {
		out := strings.TrimLeft(v, "0")
		if out == "" {
			return "0"
		}
		return out
	}
	parts := strings.SplitN(v, ".", 2)
	intPart := strings.TrimLeft(parts[0], "0")
	if intPart == "" {
		intPart = "0"
	}
	fracPart := strings.TrimRight(parts[1], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}
