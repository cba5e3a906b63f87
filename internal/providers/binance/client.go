// Package binance serves price snapshots and hourly indicators for chat
// market queries from Binance spot markets.
package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/cinar/indicator"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/providers"
	"github.com/ggonzalez94/seichat/internal/store"
)

const (
	quoteSuffix   = "USDT"
	klineInterval = "1h"
	// klineLimit must cover the EMA window with room for the RSI warmup.
	klineLimit = 100
	emaPeriod  = 20
	rsiPeriod  = 14
	// trendBand is the distance from the EMA, in percent, treated as flat.
	trendBand = 0.5
)

// aliases maps chat tickers onto the listed base asset.
var aliases = map[string]string{"WSEI": "SEI"}

var DefaultCachePolicy = providers.CachePolicy{TTL: 30 * time.Second, MaxStale: 5 * time.Minute}

type Client struct {
	api    *gobinance.Client
	cache  store.TTLStore
	policy providers.CachePolicy
	log    *zap.Logger
	now    func() time.Time
}

// New builds a client for public market data. Keys are optional.
func New(apiKey, secretKey string) *Client {
	return &Client{
		api: gobinance.NewClient(apiKey, secretKey),
		log: zap.NewNop(),
		now: time.Now,
	}
}

// WithBaseURL points the client at another REST host.
func (c *Client) WithBaseURL(base string) *Client {
	c.api.BaseURL = strings.TrimRight(base, "/")
	return c
}

func (c *Client) WithCache(s store.TTLStore, policy providers.CachePolicy, log *zap.Logger) *Client {
	c.cache = s
	c.policy = policy
	if log != nil {
		c.log = log
	}
	return c
}

// Pair returns the USDT market for a chat ticker.
func Pair(symbol string) string {
	base := strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := aliases[base]; ok {
		base = alias
	}
	return base + quoteSuffix
}

func (c *Client) TradingInfo(ctx context.Context, symbol string) (model.TradingInfo, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.TradingInfo{}, clierr.New(clierr.CodeUsage, "symbol is required")
	}
	return providers.Fetch(ctx, c.cache, c.log, "binance:trading:"+symbol, c.policy, func(ctx context.Context) (model.TradingInfo, error) {
		return c.fetch(ctx, symbol)
	})
}

func (c *Client) fetch(ctx context.Context, symbol string) (model.TradingInfo, error) {
	pair := Pair(symbol)
	var (
		stats  *gobinance.PriceChangeStats
		closes []float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.api.NewListPriceChangeStatsService().Symbol(pair).Do(gctx)
		if err != nil {
			return wrapAPIError(fmt.Sprintf("fetch 24h stats for %s", pair), err)
		}
		found, ok := lo.Find(res, func(s *gobinance.PriceChangeStats) bool { return s.Symbol == pair })
		if !ok {
			return clierr.New(clierr.CodeUnsupported, fmt.Sprintf("no %s market on binance", pair))
		}
		stats = found
		return nil
	})
	g.Go(func() error {
		klines, err := c.api.NewKlinesService().Symbol(pair).Interval(klineInterval).Limit(klineLimit).Do(gctx)
		if err != nil {
			return wrapAPIError(fmt.Sprintf("fetch klines for %s", pair), err)
		}
		closes = lo.Map(klines, func(k *gobinance.Kline, _ int) float64 {
			v, _ := strconv.ParseFloat(k.Close, 64)
			return v
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.TradingInfo{}, err
	}

	info := model.TradingInfo{
		Symbol:       symbol,
		Pair:         pair,
		PriceUSD:     parseFloat(stats.LastPrice),
		Change24hPct: parseFloat(stats.PriceChangePercent),
		High24h:      parseFloat(stats.HighPrice),
		Low24h:       parseFloat(stats.LowPrice),
		Volume24h:    parseFloat(stats.QuoteVolume),
		Trend:        "unknown",
		FetchedAt:    c.now().UTC(),
	}
	if len(closes) >= emaPeriod {
		ema := indicator.Ema(emaPeriod, closes)
		_, rsi := indicator.RsiPeriod(rsiPeriod, closes)
		info.EMA20 = ema[len(ema)-1]
		info.RSI14 = rsi[len(rsi)-1]
		info.Trend = trend(info.PriceUSD, info.EMA20)
	}
	return info, nil
}

func trend(price, ema float64) string {
	if ema <= 0 {
		return "unknown"
	}
	delta := (price - ema) / ema * 100
	switch {
	case delta > trendBand:
		return "up"
	case delta < -trendBand:
		return "down"
	default:
		return "sideways"
	}
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

// invalidSymbol is Binance's error code for an unlisted pair.
const invalidSymbol = -1121

func wrapAPIError(msg string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == invalidSymbol {
		return clierr.Wrap(clierr.CodeUnsupported, msg, err)
	}
	return clierr.Wrap(clierr.CodeUnavailable, msg, err)
}
