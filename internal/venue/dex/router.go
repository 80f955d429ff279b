// Package dex implements domain.DexQuoter against Uniswap V2-style swap
// routers via eth_call. One client per configured router.
package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/jmalhotra4/arbscan/internal/domain"
)

// routerABIJSON covers the single router method the scanner needs.
const routerABIJSON = `[{"constant":true,"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"payable":false,"stateMutability":"view","type":"function"}]`

// RouterConfig identifies one on-chain venue.
type RouterConfig struct {
	// Name is the venue identifier carried on quotes and opportunities.
	Name string
	// RPCURL is the JSON-RPC endpoint for the venue's chain.
	RPCURL string
	// Router is the hex address of the V2-style router contract.
	Router string
}

// RouterClient quotes one router contract. Stateless per call apart from the
// underlying RPC connection.
type RouterClient struct {
	name      string
	router    common.Address
	client    *ethclient.Client
	routerABI abi.ABI
}

// NewRouterClient dials the RPC endpoint and prepares the router ABI.
func NewRouterClient(ctx context.Context, cfg RouterConfig) (*RouterClient, error) {
	if !common.IsHexAddress(cfg.Router) {
		return nil, fmt.Errorf("dex: %s: invalid router address %q", cfg.Name, cfg.Router)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dex: %s: dial %s: %w", cfg.Name, cfg.RPCURL, err)
	}

	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("dex: %s: parse router abi: %w", cfg.Name, err)
	}

	return &RouterClient{
		name:      cfg.Name,
		router:    common.HexToAddress(cfg.Router),
		client:    client,
		routerABI: routerABI,
	}, nil
}

// Name returns the venue identifier.
func (c *RouterClient) Name() string {
	return c.name
}

// Quote calls getAmountsOut(amountIn, [tokenIn, tokenOut]) and returns the
// final output amount. A revert or zero output is NoRoute, not an error:
// routers revert on missing pools and empty reserves, and both simply mean
// this venue cannot price the pair right now.
func (c *RouterClient) Quote(ctx context.Context, tokenIn, tokenOut domain.TokenMapping, amountIn *big.Int) domain.QuoteResult {
	path := []common.Address{
		common.HexToAddress(tokenIn.Identifier),
		common.HexToAddress(tokenOut.Identifier),
	}

	input, err := c.routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return domain.QuoteFailure(fmt.Errorf("dex: %s: pack getAmountsOut: %w", c.name, err))
	}

	msg := ethereum.CallMsg{To: &c.router, Data: input}
	data, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		if isRevert(err) {
			return domain.NoRouteResult()
		}
		return domain.QuoteFailure(fmt.Errorf("dex: %s: eth_call: %w", c.name, err))
	}

	return c.decodeAmounts(data)
}

// decodeAmounts unpacks a getAmountsOut return payload into a QuoteResult.
func (c *RouterClient) decodeAmounts(data []byte) domain.QuoteResult {
	if len(data) == 0 {
		// Empty return data: the router address holds no code on this chain.
		return domain.NoRouteResult()
	}

	var amounts []*big.Int
	if err := c.routerABI.UnpackIntoInterface(&amounts, "getAmountsOut", data); err != nil {
		return domain.QuoteFailure(fmt.Errorf("dex: %s: unpack getAmountsOut: %w", c.name, err))
	}
	if len(amounts) == 0 {
		return domain.NoRouteResult()
	}

	out := amounts[len(amounts)-1]
	if out == nil || out.Sign() <= 0 {
		return domain.NoRouteResult()
	}
	return domain.Quoted(out)
}

// Close releases the RPC connection.
func (c *RouterClient) Close() {
	c.client.Close()
}

// isRevert reports whether an eth_call failure is a contract revert rather
// than a transport problem. Node implementations word this differently, so
// match loosely.
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "revert") ||
		strings.Contains(msg, "invalid opcode")
}

var _ domain.DexQuoter = (*RouterClient)(nil)
