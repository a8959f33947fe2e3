package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// ErrSenderMismatch is returned when a local-key client is asked to send from
// another account.
var ErrSenderMismatch = errors.New("sender does not match configured key")

// Options parameterise the oracle client.
type Options struct {
	RPCURL          string
	WSURL           string
	ContractAddress string
	PrivateKey      string
	ChainID         int64
	Timeout         time.Duration
	PollInterval    time.Duration
	ReorgLag        uint64
}

// Client talks to the oracle contract through a node. Transactions are sent
// with eth_sendTransaction from a node-managed account unless a private key is
// configured, in which case they are signed locally.
type Client struct {
	opts     Options
	logger   zerolog.Logger
	rpc      *rpc.Client
	eth      *ethclient.Client
	ws       *ethclient.Client
	contract *bind.BoundContract
	address  common.Address
	key      *ecdsa.PrivateKey
	keyAddr  common.Address
	chainID  *big.Int
}

// Dial connects to the configured node and binds the oracle contract.
func Dial(ctx context.Context, opts Options, logger zerolog.Logger) (*Client, error) {
	if opts.RPCURL == "" {
		return nil, errors.New("ethereum rpc url not configured")
	}
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, fmt.Errorf("invalid oracle contract address %q", opts.ContractAddress)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}

	rpcClient, err := rpc.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	c := &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "oracle_client").Logger(),
		rpc:     rpcClient,
		eth:     ethclient.NewClient(rpcClient),
		address: common.HexToAddress(opts.ContractAddress),
	}
	c.contract = bind.NewBoundContract(c.address, oracleABI, c.eth, c.eth, c.eth)

	if opts.WSURL != "" {
		ws, err := ethclient.DialContext(ctx, opts.WSURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("dial websocket: %w", err)
		}
		c.ws = ws
	}

	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		c.key = key
		c.keyAddr = crypto.PubkeyToAddress(key.PublicKey)
		if opts.ChainID > 0 {
			c.chainID = big.NewInt(opts.ChainID)
		}
	}

	return c, nil
}

// Close releases node connections.
func (c *Client) Close() {
	if c.ws != nil {
		c.ws.Close()
	}
	if c.eth != nil {
		c.eth.Close()
	}
}

// Address returns the bound contract address.
func (c *Client) Address() common.Address {
	return c.address
}

// NetworkID returns the node's network identifier.
func (c *Client) NetworkID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()
	return c.eth.NetworkID(ctx)
}

// Accounts lists the active accounts. With a local key that is the key's
// address; otherwise the node's eth_accounts, first entry active.
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	if c.key != nil {
		return []common.Address{c.keyAddr}, nil
	}
	ctx, cancel := c.readContext(ctx)
	defer cancel()

	var accounts []common.Address
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts: %w", err)
	}
	return accounts, nil
}

// Deployed reports whether contract code exists at the bound address.
func (c *Client) Deployed(ctx context.Context) (bool, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()
	code, err := c.eth.CodeAt(ctx, c.address, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func (c *Client) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.Timeout)
}

func (c *Client) call(ctx context.Context, method string, want int, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()

	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) != want {
		return nil, fmt.Errorf("call %s: unexpected %d outputs", method, len(out))
	}
	return out, nil
}

func bigAt(out []interface{}, i int) (*big.Int, error) {
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, not uint256", i, out[i])
	}
	return v, nil
}

func bigs(out []interface{}) ([]*big.Int, error) {
	res := make([]*big.Int, len(out))
	for i := range out {
		v, err := bigAt(out, i)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (c *Client) callUint(ctx context.Context, method string) (*big.Int, error) {
	out, err := c.call(ctx, method, 1)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0)
}

func (c *Client) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := c.call(ctx, method, 1, args...)
	if err != nil {
		return false, err
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("call %s: output is %T, not bool", method, out[0])
	}
	return v, nil
}

// IsAdmin calls isAdmin(account).
func (c *Client) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	return c.callBool(ctx, "isAdmin", account)
}

// Owner calls owner().
func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, "owner", 1)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("call owner: output is %T, not address", out[0])
	}
	return owner, nil
}

// Paused calls paused().
func (c *Client) Paused(ctx context.Context) (bool, error) {
	return c.callBool(ctx, "paused")
}

// ValuesPerPack calls getValuesPerPack(tier) with a zero-based tier index.
func (c *Client) ValuesPerPack(ctx context.Context, tier int) (TierValues, error) {
	out, err := c.call(ctx, "getValuesPerPack", 5, big.NewInt(int64(tier)))
	if err != nil {
		return TierValues{}, err
	}
	v, err := bigs(out)
	if err != nil {
		return TierValues{}, fmt.Errorf("getValuesPerPack(%d): %w", tier, err)
	}
	return TierValues{Points: v[0], MinPoints: v[1], MaxPoints: v[2], MinPrice: v[3], MaxPrice: v[4]}, nil
}

// EthValues calls getEthValues().
func (c *Client) EthValues(ctx context.Context) (PriceRange, error) {
	out, err := c.call(ctx, "getEthValues", 2)
	if err != nil {
		return PriceRange{}, err
	}
	v, err := bigs(out)
	if err != nil {
		return PriceRange{}, fmt.Errorf("getEthValues: %w", err)
	}
	return PriceRange{Min: v[0], Max: v[1]}, nil
}

// OtherValues calls getOtherValues().
func (c *Client) OtherValues(ctx context.Context) (OtherValues, error) {
	out, err := c.call(ctx, "getOtherValues", 5)
	if err != nil {
		return OtherValues{}, err
	}
	v, err := bigs(out)
	if err != nil {
		return OtherValues{}, fmt.Errorf("getOtherValues: %w", err)
	}
	return OtherValues{BlocksPeriod: v[0], BlocksPerRequest: v[1], GasLow: v[2], GasMed: v[3], GasHigh: v[4]}, nil
}

// CountQueryInProgress calls countQueryInProgress().
func (c *Client) CountQueryInProgress(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "countQueryInProgress")
}

// ContractBalance calls getContractBalance(), in wei.
func (c *Client) ContractBalance(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "getContractBalance")
}

// PrevBlock calls prevBlock().
func (c *Client) PrevBlock(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "prevBlock")
}

// BlocksPeriod calls blocksPeriod().
func (c *Client) BlocksPeriod(ctx context.Context) (*big.Int, error) {
	return c.callUint(ctx, "blocksPeriod")
}

// AddAdmin sends addAdmin(admin).
func (c *Client) AddAdmin(ctx context.Context, from, admin common.Address) (common.Hash, error) {
	return c.transact(ctx, from, "addAdmin", admin)
}

// NextProcess sends nextProcess().
func (c *Client) NextProcess(ctx context.Context, from common.Address) (common.Hash, error) {
	return c.transact(ctx, from, "nextProcess")
}

// SetPointsPackaging sends setPointsPackaging with its ten positional arguments.
func (c *Client) SetPointsPackaging(ctx context.Context, from common.Address, update PackagingUpdate) (common.Hash, error) {
	return c.transact(ctx, from, "setPointsPackaging", update.args()...)
}

// SetRangeEthPrice sends setRangeEthPrice(min, max).
func (c *Client) SetRangeEthPrice(ctx context.Context, from common.Address, rng PriceRange) (common.Hash, error) {
	return c.transact(ctx, from, "setRangeEthPrice", rng.Min, rng.Max)
}

// SetOtherValues sends setOtherValues with the five operational values.
func (c *Client) SetOtherValues(ctx context.Context, from common.Address, values OtherValues) (common.Hash, error) {
	return c.transact(ctx, from, "setOtherValues", values.args()...)
}

// Pause sends pause().
func (c *Client) Pause(ctx context.Context, from common.Address) (common.Hash, error) {
	return c.transact(ctx, from, "pause")
}

// Unpause sends unpause().
func (c *Client) Unpause(ctx context.Context, from common.Address) (common.Hash, error) {
	return c.transact(ctx, from, "unpause")
}

func (c *Client) transact(ctx context.Context, from common.Address, method string, args ...interface{}) (common.Hash, error) {
	if c.key != nil {
		return c.transactSigned(ctx, from, method, args...)
	}

	data, err := oracleABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := map[string]interface{}{
		"from": from,
		"to":   c.address,
		"data": hexutil.Bytes(data),
	}
	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", msg); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}
	c.logger.Info().Str("method", method).Str("tx", hash.Hex()).Msg("transaction accepted by node")
	return hash, nil
}

func (c *Client) transactSigned(ctx context.Context, from common.Address, method string, args ...interface{}) (common.Hash, error) {
	if from != c.keyAddr {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrSenderMismatch, from.Hex())
	}

	chainID := c.chainID
	if chainID == nil {
		id, err := c.eth.ChainID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("read chain id: %w", err)
		}
		chainID = id
		c.chainID = id
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := c.contract.Transact(auth, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}
	c.logger.Info().Str("method", method).Str("tx", tx.Hash().Hex()).Msg("signed transaction sent")
	return tx.Hash(), nil
}

var _ Oracle = (*Client)(nil)
