package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ggonzalez94/seichat/internal/id"
)

var (
	addressRe        = regexp.MustCompile(`(?i)\b0x[0-9a-f]{40}\b`)
	recipientRe      = regexp.MustCompile(`(?i)\bto\s+(0x[0-9a-f]{40})\b`)
	amountRe         = regexp.MustCompile(`(?i)(?:^|[^\w.#])(\d+(?:\.\d+)?)(?:\s*(sei|tokens?)\b)?`)
	transferAmountRe = regexp.MustCompile(`(?i)\b(?:send|transfer|pay)\s+(\d+(?:\.\d+)?)`)
	leverageXRe      = regexp.MustCompile(`(?i)\b(\d+)\s*x\b`)
	leverageWordRe   = regexp.MustCompile(`(?i)\bleverage\s+(?:of\s+)?(\d+)\b`)
	positionRe       = regexp.MustCompile(`(?i)\bposition\s+(?:id\s*)?#?(\d+)\b`)
	sideRe           = regexp.MustCompile(`(?i)\b(long|short)\b`)
	swapVerbRe       = regexp.MustCompile(`(?i)\b(swap|exchange|trade|convert)\b`)
	swapPairRe       = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(0x[0-9a-f]{40}|[a-z][a-z0-9]{1,10})\s+(?:for|to|into)\s+(0x[0-9a-f]{40}|[a-z][a-z0-9]{1,10})\b`)
	tokenNameRe      = regexp.MustCompile(`(?i)\b(?:named|called)\s+["']?([a-z][a-z0-9]*)`)
	tokenSymbolRe    = regexp.MustCompile(`(?i)\b(?:symbol|ticker)\s+["'$]?([a-z][a-z0-9]{0,10})\b`)
	supplyRe         = regexp.MustCompile(`(?i)\bsupply\s+(?:of\s+)?(\d+(?:\.\d+)?)`)
	assetUnitRe      = regexp.MustCompile(`(?i)\b(?:send|transfer|pay|lend|deposit|borrow|repay)\s+\d+(?:\.\d+)?\s*\$?([a-z][a-z0-9]{1,10})\b`)
	collateralRe     = regexp.MustCompile(`(?i)\bwith\s+\d+(?:\.\d+)?\s*([a-z][a-z0-9]{1,10})\b`)
	dollarTickerRe   = regexp.MustCompile(`\$([A-Za-z]{2,10})\b`)
	wordRe           = regexp.MustCompile(`\b[A-Za-z]{2,10}\b`)
	todoTextRe       = regexp.MustCompile(`(?i)^\s*(?:add\s+(?:a\s+)?(?:todo|task)|todo|remind\s+me\s+to)\s*:?\s+(.+?)\s*$`)
)

// unitStopwords follow an amount without naming an asset.
var unitStopwords = map[string]bool{
	"to": true, "token": true, "tokens": true, "of": true, "for": true,
	"from": true, "into": true, "on": true, "in": true, "at": true, "with": true,
}

// marketSymbols are tickers recognised for market lookups beyond the token registry.
var marketSymbols = []string{"BTC", "ETH", "SOL", "BNB", "ATOM", "USDT"}

// Extract pulls every recognisable value out of text. It never fails; a
// value that is not present in the text is left empty.
func Extract(text string) Entities {
	var e Entities

	if m := addressRe.FindString(text); m != "" {
		e.TokenAddress = m
	}
	if m := recipientRe.FindStringSubmatch(text); m != nil {
		e.Recipient = m[1]
	}
	if m := transferAmountRe.FindStringSubmatch(text); m != nil {
		e.TransferAmount = id.NormalizeDecimal(m[1])
	}

	extractLeverage(text, &e)
	if m := positionRe.FindStringSubmatch(text); m != nil {
		e.PositionID = m[1]
	}
	if m := sideRe.FindStringSubmatch(text); m != nil {
		e.Side = strings.ToLower(m[1])
	}

	extractAmounts(maskNonAmounts(text), &e)

	if swapVerbRe.MatchString(text) {
		extractSwapPair(text, &e)
	}
	if m := tokenNameRe.FindStringSubmatch(text); m != nil {
		e.TokenName = m[1]
	}
	if m := tokenSymbolRe.FindStringSubmatch(text); m != nil {
		e.TokenSymbol = strings.ToUpper(m[1])
	}
	if m := supplyRe.FindStringSubmatch(text); m != nil {
		e.TotalSupply = id.NormalizeDecimal(m[1])
	}
	e.Ticker = extractTicker(text)
	if m := assetUnitRe.FindStringSubmatch(text); m != nil && !unitStopwords[strings.ToLower(m[1])] {
		e.Ticker = strings.ToUpper(m[1])
	}
	if m := collateralRe.FindStringSubmatch(text); m != nil && !strings.HasPrefix(strings.ToLower(m[1]), "token") {
		e.Collateral = strings.ToUpper(m[1])
	}
	if m := todoTextRe.FindStringSubmatch(text); m != nil {
		e.TodoText = m[1]
	}
	return e
}

// maskNonAmounts blanks out spans whose digits are not amounts: addresses,
// leverage multipliers and position ids.
func maskNonAmounts(text string) string {
	for _, re := range []*regexp.Regexp{addressRe, leverageXRe, leverageWordRe, positionRe} {
		text = re.ReplaceAllStringFunc(text, func(s string) string {
			return strings.Repeat(" ", len(s))
		})
	}
	return text
}

// extractAmounts keeps only the first match per category.
func extractAmounts(text string, e *Entities) {
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		value := id.NormalizeDecimal(m[1])
		switch unit := strings.ToLower(m[2]); {
		case unit == "sei":
			if e.SeiAmount == "" {
				e.SeiAmount = value
			}
		case unit != "":
			if e.TokenAmount == "" {
				e.TokenAmount = value
			}
		default:
			if e.Amount == "" && e.SeiAmount == "" && e.TokenAmount == "" {
				e.Amount = value
			}
		}
	}
}

func extractLeverage(text string, e *Entities) {
	for _, re := range []*regexp.Regexp{leverageWordRe, leverageXRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			e.Leverage = n
			return
		}
	}
}

func extractSwapPair(text string, e *Entities) {
	m := swapPairRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	in, okIn := id.ResolveToken(m[2])
	out, okOut := id.ResolveToken(m[3])
	if okIn {
		e.TokenIn = in.Address
	}
	if okOut {
		e.TokenOut = out.Address
	}
	if okIn && e.Amount == "" && e.SeiAmount == "" && e.TokenAmount == "" {
		e.Amount = id.NormalizeDecimal(m[1])
	}
}

func extractTicker(text string) string {
	if m := dollarTickerRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	known := append(id.Symbols(), marketSymbols...)
	for _, w := range wordRe.FindAllString(addressRe.ReplaceAllString(text, " "), -1) {
		upper := strings.ToUpper(w)
		for _, s := range known {
			if upper == s {
				return s
			}
		}
	}
	return ""
}
