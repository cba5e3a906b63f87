// Package evm implements chain.Service against a Sei EVM JSON-RPC node.
// Swaps route through Symphony; staking uses the Sei precompiles.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/ggonzalez94/seichat/internal/chain"
	"github.com/ggonzalez94/seichat/internal/chain/signer"
	clierr "github.com/ggonzalez94/seichat/internal/errors"
	"github.com/ggonzalez94/seichat/internal/id"
	"github.com/ggonzalez94/seichat/internal/providers/symphony"
	"github.com/ggonzalez94/seichat/internal/registry"
)

const (
	nativeDecimals = 18
	useiDecimals   = 6
)

var capabilities = []string{"balance", "transfer", "swap", "stake", "unstake", "claim", "burn", "scan"}

type Options struct {
	Signer signer.Signer
	// Watch is used for reads when no signer is configured.
	Watch     string
	Symphony  *symphony.Client
	Validator string
	Tx        TxOptions
}

type Backend struct {
	client    EthClient
	signer    signer.Signer
	account   common.Address
	chainID   *big.Int
	symphony  *symphony.Client
	validator string
	txOpts    TxOptions
	txMu      sync.Mutex

	erc20        abi.ABI
	staking      abi.ABI
	distribution abi.ABI

	decMu    sync.Mutex
	decimals map[common.Address]int
}

// Dial connects to rpcURL and builds a backend over it.
func Dial(ctx context.Context, rpcURL string, opts Options) (*Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	b, err := New(ctx, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return b, nil
}

func New(ctx context.Context, client EthClient, opts Options) (*Backend, error) {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "fetch chain id", err)
	}
	if !registry.IsSeiChain(chainID.Int64()) {
		return nil, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("rpc chain id %s is not a Sei network", chainID))
	}
	b := &Backend{
		client:    client,
		signer:    opts.Signer,
		chainID:   chainID,
		symphony:  opts.Symphony,
		validator: strings.TrimSpace(opts.Validator),
		txOpts:    opts.Tx.withDefaults(),
		decimals:  map[common.Address]int{},
	}
	switch {
	case opts.Signer != nil:
		b.account = opts.Signer.Address()
	case id.IsAddress(opts.Watch):
		b.account = common.HexToAddress(opts.Watch)
	}
	for _, p := range []struct {
		dst *abi.ABI
		src string
	}{{&b.erc20, registry.ERC20ABI}, {&b.staking, registry.SeiStakingABI}, {&b.distribution, registry.SeiDistributionABI}} {
		parsed, err := abi.JSON(strings.NewReader(p.src))
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "parse abi", err)
		}
		*p.dst = parsed
	}
	return b, nil
}

func (b *Backend) Close() { b.client.Close() }

func (b *Backend) owner() (common.Address, error) {
	if b.account == (common.Address{}) {
		return common.Address{}, clierr.New(clierr.CodeSigner, "no wallet configured; set SEICHAT_PRIVATE_KEY or --address")
	}
	return b.account, nil
}

func (b *Backend) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack "+method, err)
	}
	raw, err := b.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("call %s on %s", method, to.Hex()), err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil || len(out) == 0 {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "decode "+method, err)
	}
	return out, nil
}

func (b *Backend) tokenDecimals(ctx context.Context, token common.Address) (int, error) {
	b.decMu.Lock()
	d, ok := b.decimals[token]
	b.decMu.Unlock()
	if ok {
		return d, nil
	}
	if known, ok := id.LookupByAddress(token.Hex()); ok {
		d = known.Decimals
	} else {
		out, err := b.call(ctx, b.erc20, token, "decimals")
		if err != nil {
			return 0, err
		}
		v, ok := out[0].(uint8)
		if !ok {
			return 0, clierr.New(clierr.CodeUnavailable, "unexpected decimals type")
		}
		d = int(v)
	}
	b.decMu.Lock()
	b.decimals[token] = d
	b.decMu.Unlock()
	return d, nil
}

func (b *Backend) erc20Balance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := b.call(ctx, b.erc20, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return bigOut(out[0])
}

func tokenAddress(token string) (common.Address, error) {
	if !id.IsAddress(token) {
		return common.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid token address %q", token))
	}
	return common.HexToAddress(token), nil
}

func (b *Backend) GetBalance(ctx context.Context, token string) (string, error) {
	owner, err := b.owner()
	if err != nil {
		return "", err
	}
	if id.IsNative(token) {
		bal, err := b.client.BalanceAt(ctx, owner, nil)
		if err != nil {
			return "", clierr.Wrap(clierr.CodeUnavailable, "fetch native balance", err)
		}
		return id.FormatUnits(bal, nativeDecimals), nil
	}
	addr, err := tokenAddress(token)
	if err != nil {
		return "", err
	}
	dec, err := b.tokenDecimals(ctx, addr)
	if err != nil {
		return "", err
	}
	bal, err := b.erc20Balance(ctx, addr, owner)
	if err != nil {
		return "", err
	}
	return id.FormatUnits(bal, dec), nil
}

func (b *Backend) TransferToken(ctx context.Context, amount, recipient, token string) (string, error) {
	if !id.IsAddress(recipient) {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid recipient %q", recipient))
	}
	to := common.HexToAddress(recipient)
	if id.IsNative(token) {
		value, err := id.ToBaseUnits(amount, nativeDecimals)
		if err != nil {
			return "", err
		}
		return b.send(ctx, to, value, nil)
	}
	addr, err := tokenAddress(token)
	if err != nil {
		return "", err
	}
	data, err := b.erc20Calldata(ctx, addr, "transfer", to, amount)
	if err != nil {
		return "", err
	}
	return b.send(ctx, addr, nil, data)
}

func (b *Backend) erc20Calldata(ctx context.Context, token common.Address, method string, to common.Address, amount string) ([]byte, error) {
	dec, err := b.tokenDecimals(ctx, token)
	if err != nil {
		return nil, err
	}
	base, err := id.ToBaseUnits(amount, dec)
	if err != nil {
		return nil, err
	}
	data, err := b.erc20.Pack(method, to, base)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "pack "+method, err)
	}
	return data, nil
}

func routeAddress(token string) string {
	if id.IsNative(token) {
		return id.NativeAddress
	}
	return token
}

func (b *Backend) swapDecimals(ctx context.Context, token string) (int, error) {
	if id.IsNative(token) {
		return nativeDecimals, nil
	}
	addr, err := tokenAddress(token)
	if err != nil {
		return 0, err
	}
	return b.tokenDecimals(ctx, addr)
}

func (b *Backend) quoteRequest(ctx context.Context, req chain.SwapRequest) (symphony.QuoteRequest, int, error) {
	if b.symphony == nil {
		return symphony.QuoteRequest{}, 0, clierr.New(clierr.CodeUnsupported, "swaps need the symphony aggregator")
	}
	decIn, err := b.swapDecimals(ctx, req.TokenIn)
	if err != nil {
		return symphony.QuoteRequest{}, 0, err
	}
	decOut, err := b.swapDecimals(ctx, req.TokenOut)
	if err != nil {
		return symphony.QuoteRequest{}, 0, err
	}
	amountIn, err := id.ToBaseUnits(req.Amount, decIn)
	if err != nil {
		return symphony.QuoteRequest{}, 0, err
	}
	return symphony.QuoteRequest{
		TokenIn:  routeAddress(req.TokenIn),
		TokenOut: routeAddress(req.TokenOut),
		AmountIn: amountIn.String(),
	}, decOut, nil
}

func (b *Backend) GetSwapQuote(ctx context.Context, req chain.SwapRequest) (chain.SwapQuote, error) {
	qr, decOut, err := b.quoteRequest(ctx, req)
	if err != nil {
		return chain.SwapQuote{}, err
	}
	q, err := b.symphony.Quote(ctx, qr)
	if err != nil {
		return chain.SwapQuote{}, err
	}
	out, ok := new(big.Int).SetString(q.AmountOut, 10)
	if !ok {
		return chain.SwapQuote{}, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("symphony returned invalid amountOut %q", q.AmountOut))
	}
	return chain.SwapQuote{
		OutputAmount: id.FormatUnits(out, decOut),
		PriceImpact:  q.PriceImpact,
		Route:        q.Route,
	}, nil
}

func (b *Backend) SwapTokens(ctx context.Context, req chain.SwapRequest) (string, error) {
	owner, err := b.owner()
	if err != nil {
		return "", err
	}
	qr, decOut, err := b.quoteRequest(ctx, req)
	if err != nil {
		return "", err
	}
	minOut, err := floorUnits(req.MinOut, decOut)
	if err != nil {
		return "", err
	}
	tx, err := b.symphony.BuildSwap(ctx, symphony.SwapRequest{
		QuoteRequest: qr,
		MinAmountOut: minOut.String(),
		Sender:       owner.Hex(),
	})
	if err != nil {
		return "", err
	}
	if !id.IsAddress(tx.To) {
		return "", clierr.New(clierr.CodeUnavailable, fmt.Sprintf("symphony returned invalid router %q", tx.To))
	}
	router := common.HexToAddress(tx.To)
	if !id.IsNative(req.TokenIn) {
		amountIn, _ := new(big.Int).SetString(qr.AmountIn, 10)
		if err := b.ensureAllowance(ctx, common.HexToAddress(req.TokenIn), owner, router, amountIn); err != nil {
			return "", err
		}
	}
	data, err := decodeHex(tx.Data)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUnavailable, "decode swap calldata", err)
	}
	value, err := parseValue(tx.Value)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeUnavailable, "decode swap value", err)
	}
	return b.send(ctx, router, value, data)
}

// floorUnits converts a decimal into base units, dropping precision the
// token cannot hold. An unset amount is zero.
func floorUnits(v string, decimals int) (*big.Int, error) {
	if strings.TrimSpace(v) == "" {
		return new(big.Int), nil
	}
	r, err := id.ParseDecimal(v)
	if err != nil {
		return nil, err
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(r.Num(), r.Denom()), nil
}

func (b *Backend) ensureAllowance(ctx context.Context, token, owner, spender common.Address, amount *big.Int) error {
	out, err := b.call(ctx, b.erc20, token, "allowance", owner, spender)
	if err != nil {
		return err
	}
	current, err := bigOut(out[0])
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}
	data, err := b.erc20.Pack("approve", spender, amount)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "pack approve", err)
	}
	_, err = b.send(ctx, token, nil, data)
	return err
}

func (b *Backend) validatorFor(req string) (string, error) {
	v := strings.TrimSpace(req)
	if v == "" {
		v = b.validator
	}
	if v == "" {
		return "", clierr.New(clierr.CodeUsage, "no validator configured; set SEICHAT_VALIDATOR")
	}
	return v, nil
}

func (b *Backend) StakeTokens(ctx context.Context, req chain.StakeRequest) (string, error) {
	validator, err := b.validatorFor(req.Validator)
	if err != nil {
		return "", err
	}
	value, err := id.ToBaseUnits(req.Amount, nativeDecimals)
	if err != nil {
		return "", err
	}
	data, err := b.staking.Pack("delegate", validator)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "pack delegate", err)
	}
	return b.send(ctx, common.HexToAddress(registry.SeiStakingPrecompile), value, data)
}

func (b *Backend) UnstakeTokens(ctx context.Context, req chain.StakeRequest) (string, error) {
	validator, err := b.validatorFor(req.Validator)
	if err != nil {
		return "", err
	}
	usei, err := id.ToBaseUnits(req.Amount, useiDecimals)
	if err != nil {
		return "", err
	}
	data, err := b.staking.Pack("undelegate", validator, usei)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "pack undelegate", err)
	}
	return b.send(ctx, common.HexToAddress(registry.SeiStakingPrecompile), nil, data)
}

func (b *Backend) ClaimRewards(ctx context.Context) (string, error) {
	validator, err := b.validatorFor("")
	if err != nil {
		return "", err
	}
	data, err := b.distribution.Pack("withdrawDelegationRewards", validator)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "pack withdrawDelegationRewards", err)
	}
	return b.send(ctx, common.HexToAddress(registry.SeiDistributionPrecompile), nil, data)
}

func (b *Backend) GetStakingInfo(context.Context) (chain.StakingInfo, error) {
	return chain.StakingInfo{}, unsupported("staking queries")
}

func (b *Backend) LendTokens(context.Context, chain.LendRequest) (string, error) {
	return "", unsupported("lending")
}

func (b *Backend) BorrowTokens(context.Context, chain.LendRequest) (string, error) {
	return "", unsupported("borrowing")
}

func (b *Backend) RepayLoan(context.Context, chain.LendRequest) (string, error) {
	return "", unsupported("loan repayment")
}

func (b *Backend) OpenPosition(context.Context, chain.PositionRequest) (string, error) {
	return "", unsupported("perpetual positions")
}

func (b *Backend) ClosePosition(context.Context, string) (string, error) {
	return "", unsupported("perpetual positions")
}

func (b *Backend) GetPositions(context.Context) ([]chain.Position, error) {
	return nil, unsupported("perpetual positions")
}

func (b *Backend) CreateToken(context.Context, chain.CreateTokenRequest) (string, error) {
	return "", unsupported("token deployment")
}

func (b *Backend) AddLiquidity(context.Context, chain.LiquidityRequest) (string, error) {
	return "", unsupported("liquidity provision")
}

func unsupported(what string) error {
	return clierr.New(clierr.CodeUnsupported, what+" is not available on the evm backend; try --backend paper")
}

// BurnToken sends the amount to the dead address.
func (b *Backend) BurnToken(ctx context.Context, token, amount string) (string, error) {
	if id.IsNative(token) {
		return "", clierr.New(clierr.CodeUsage, "native SEI cannot be burned; name a token address")
	}
	addr, err := tokenAddress(token)
	if err != nil {
		return "", err
	}
	data, err := b.erc20Calldata(ctx, addr, "transfer", common.HexToAddress(registry.BurnAddress), amount)
	if err != nil {
		return "", err
	}
	return b.send(ctx, addr, nil, data)
}

func (b *Backend) ScanToken(ctx context.Context, token string) (chain.TokenInfo, error) {
	if id.IsNative(token) {
		bal, err := b.GetBalance(ctx, "")
		if err != nil {
			return chain.TokenInfo{}, err
		}
		return chain.TokenInfo{Address: id.NativeAddress, Name: "Sei", Symbol: "SEI", Decimals: nativeDecimals, Holding: bal}, nil
	}
	addr, err := tokenAddress(token)
	if err != nil {
		return chain.TokenInfo{}, err
	}
	info := chain.TokenInfo{Address: addr.Hex()}
	var supply, held *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := b.call(gctx, b.erc20, addr, "name")
		if err == nil {
			info.Name, _ = out[0].(string)
		}
		return err
	})
	g.Go(func() error {
		out, err := b.call(gctx, b.erc20, addr, "symbol")
		if err == nil {
			info.Symbol, _ = out[0].(string)
		}
		return err
	})
	g.Go(func() error {
		d, err := b.tokenDecimals(gctx, addr)
		info.Decimals = d
		return err
	})
	g.Go(func() error {
		out, err := b.call(gctx, b.erc20, addr, "totalSupply")
		if err != nil {
			return err
		}
		supply, err = bigOut(out[0])
		return err
	})
	if b.account != (common.Address{}) {
		g.Go(func() error {
			var err error
			held, err = b.erc20Balance(gctx, addr, b.account)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return chain.TokenInfo{}, err
	}
	info.TotalSupply = id.FormatUnits(supply, info.Decimals)
	if held != nil {
		info.Holding = id.FormatUnits(held, info.Decimals)
	}
	return info, nil
}

func (b *Backend) GetWalletInfo(ctx context.Context) (chain.WalletInfo, error) {
	owner, err := b.owner()
	if err != nil {
		return chain.WalletInfo{}, err
	}
	var balance string
	var chainID *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balance, err = b.GetBalance(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		chainID, err = b.client.ChainID(gctx)
		if err != nil {
			return clierr.Wrap(clierr.CodeUnavailable, "fetch chain id", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return chain.WalletInfo{}, err
	}
	return chain.WalletInfo{
		Address:      owner.Hex(),
		SeiBalance:   balance,
		Network:      registry.NetworkName(chainID.Int64()),
		Capabilities: append([]string(nil), capabilities...),
	}, nil
}

func bigOut(v any) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, clierr.New(clierr.CodeUnavailable, "unexpected uint256 result")
	}
	return n, nil
}

func parseValue(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(clean, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid value %q", v)
	}
	return n, nil
}

var _ chain.Service = (*Backend)(nil)
