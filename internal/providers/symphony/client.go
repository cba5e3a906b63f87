// Package symphony talks to the Symphony aggregator, which quotes Sei swaps
// and returns ready-to-sign swap calldata.
package symphony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/httpx"
	"github.com/ggonzalez94/seichat/internal/registry"
)

type Client struct {
	http    *httpx.Client
	baseURL string
	chainID int64
}

func New(httpClient *httpx.Client, chainID int64) *Client {
	return &Client{http: httpClient, baseURL: registry.SymphonyBaseURL, chainID: chainID}
}

// WithBaseURL points the client at another deployment.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// QuoteRequest amounts are in base units of tokenIn.
type QuoteRequest struct {
	TokenIn  string `json:"tokenIn"`
	TokenOut string `json:"tokenOut"`
	AmountIn string `json:"amountIn"`
	ChainID  int64  `json:"chainId"`
}

type Quote struct {
	AmountOut   string   `json:"amountOut"`
	PriceImpact float64  `json:"priceImpact"`
	Route       []string `json:"route"`
}

type SwapRequest struct {
	QuoteRequest
	MinAmountOut string `json:"minAmountOut"`
	Sender       string `json:"sender"`
}

// Tx is unsigned calldata for the router.
type Tx struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

type swapResponse struct {
	Tx Tx `json:"tx"`
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	req.ChainID = c.chainID
	var out Quote
	if err := c.post(ctx, "/v1/quote", req, &out); err != nil {
		return Quote{}, err
	}
	if strings.TrimSpace(out.AmountOut) == "" {
		return Quote{}, clierr.New(clierr.CodeUnavailable, "symphony quote missing amountOut")
	}
	return out, nil
}

func (c *Client) BuildSwap(ctx context.Context, req SwapRequest) (Tx, error) {
	req.ChainID = c.chainID
	var out swapResponse
	if err := c.post(ctx, "/v1/swap", req, &out); err != nil {
		return Tx{}, err
	}
	if out.Tx.To == "" || out.Tx.Data == "" {
		return Tx{}, clierr.New(clierr.CodeUnavailable, "symphony swap response missing transaction")
	}
	return out.Tx, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "encode symphony request", err)
	}
	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("build symphony %s request", path), err)
	}
	hReq.Header.Set("Content-Type", "application/json")
	_, err = c.http.DoJSON(ctx, hReq, out)
	return err
}
