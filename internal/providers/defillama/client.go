// Package defillama ranks protocols deployed on Sei by TVL.
package defillama

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/httpx"
	"github.com/ggonzalez94/seichat/internal/model"
	"github.com/ggonzalez94/seichat/internal/providers"
	"github.com/ggonzalez94/seichat/internal/registry"
	"github.com/ggonzalez94/seichat/internal/store"
)

const seiChain = "Sei"

type Client struct {
	http    *httpx.Client
	apiBase string
	chain   string
	cache   store.TTLStore
	policy  providers.CachePolicy
	log     *zap.Logger
}

func New(httpClient *httpx.Client) *Client {
	return &Client{
		http:    httpClient,
		apiBase: registry.DefiLlamaAPI,
		chain:   seiChain,
		log:     zap.NewNop(),
	}
}

// WithCache serves rankings from s for the policy's TTL.
func (c *Client) WithCache(s store.TTLStore, policy providers.CachePolicy, log *zap.Logger) *Client {
	c.cache = s
	c.policy = policy
	if log != nil {
		c.log = log
	}
	return c
}

type protocolResp struct {
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	Category  string             `json:"category"`
	Chains    []string           `json:"chains"`
	ChainTVLs map[string]float64 `json:"chainTvls"`
	Change1D  *float64           `json:"change_1d"`
}

// TopProtocols returns up to limit Sei protocols ordered by their Sei TVL.
func (c *Client) TopProtocols(ctx context.Context, limit int) ([]model.ProtocolTVL, error) {
	all, err := providers.Fetch(ctx, c.cache, c.log, "defillama:protocols:"+strings.ToLower(c.chain), c.policy, c.fetchProtocols)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	return all[:limit], nil
}

func (c *Client) fetchProtocols(ctx context.Context) ([]model.ProtocolTVL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/protocols", nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build protocols request", err)
	}
	var resp []protocolResp
	if _, err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return nil, err
	}

	type ranked struct {
		protocolResp
		tvl float64
	}
	filtered := make([]ranked, 0, len(resp))
	for _, p := range resp {
		tvl, ok := p.ChainTVLs[c.chain]
		if !ok || tvl <= 0 {
			continue
		}
		filtered = append(filtered, ranked{protocolResp: p, tvl: tvl})
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].tvl == filtered[j].tvl {
			return filtered[i].Name < filtered[j].Name
		}
		return filtered[i].tvl > filtered[j].tvl
	})

	out := make([]model.ProtocolTVL, 0, len(filtered))
	for i, item := range filtered {
		row := model.ProtocolTVL{Rank: i + 1, Protocol: item.Name, Category: item.Category, TVLUSD: item.tvl}
		if item.Change1D != nil {
			row.Change1D = *item.Change1D
		}
		if item.Slug != "" {
			row.SourceURL = fmt.Sprintf("https://defillama.com/protocol/%s", item.Slug)
		}
		out = append(out, row)
	}
	return out, nil
}

// DefaultCachePolicy keeps rankings for ten minutes.
var DefaultCachePolicy = providers.CachePolicy{TTL: 10 * time.Minute, MaxStale: time.Hour}
