// Package contracttest provides an in-memory oracle for tests.
package contracttest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"oracle-panel/internal/contract"
)

// Tx records a transaction sent through the fake.
type Tx struct {
	Method string
	From   common.Address
	Args   interface{}
	Hash   common.Hash
}

type subscriber struct {
	sink chan<- contract.Event
	done chan struct{}
}

// Oracle is a scripted, in-memory contract.Oracle.
type Oracle struct {
	mu sync.Mutex

	ContractAddr common.Address
	Network      *big.Int
	AccountList  []common.Address
	HasCode      bool

	Admins      map[common.Address]bool
	OwnerAddr   common.Address
	IsPaused    bool
	Tiers       [contract.Tiers]contract.TierValues
	Eth         contract.PriceRange
	Other       contract.OtherValues
	Pending     *big.Int
	Balance     *big.Int
	Prev        *big.Int
	Period      *big.Int
	Fail        map[string]error
	Sent        []Tx
	Calls       map[string]int
	subscribers map[int]*subscriber
	nextSub     int
}

// New returns a deployed oracle with zeroed configuration.
func New() *Oracle {
	zero := func() *big.Int { return new(big.Int) }
	o := &Oracle{
		ContractAddr: common.HexToAddress("0x00000000000000000000000000000000000000c0"),
		Network:      big.NewInt(5777),
		HasCode:      true,
		Admins:       make(map[common.Address]bool),
		Eth:          contract.PriceRange{Min: zero(), Max: zero()},
		Other:        contract.OtherValues{BlocksPeriod: zero(), BlocksPerRequest: zero(), GasLow: zero(), GasMed: zero(), GasHigh: zero()},
		Pending:      zero(),
		Balance:      zero(),
		Prev:         zero(),
		Period:       zero(),
		Fail:         make(map[string]error),
		Calls:        make(map[string]int),
		subscribers:  make(map[int]*subscriber),
	}
	for i := range o.Tiers {
		o.Tiers[i] = contract.TierValues{Points: zero(), MinPoints: zero(), MaxPoints: zero(), MinPrice: zero(), MaxPrice: zero()}
	}
	return o
}

// SetFail scripts an error for a method; nil clears it.
func (o *Oracle) SetFail(method string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		delete(o.Fail, method)
		return
	}
	o.Fail[method] = err
}

// SetPaused changes the paused flag.
func (o *Oracle) SetPaused(paused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.IsPaused = paused
}

// SetAccounts changes the node's account list.
func (o *Oracle) SetAccounts(accounts ...common.Address) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.AccountList = accounts
}

// Transactions returns a copy of the sent transactions.
func (o *Oracle) Transactions() []Tx {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Tx(nil), o.Sent...)
}

// CallCount returns how often a method was invoked.
func (o *Oracle) CallCount(method string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Calls[method]
}

// Subscribers returns the number of live event subscriptions.
func (o *Oracle) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subscribers)
}

// Emit delivers ev to every live subscription and blocks until each accepted it.
func (o *Oracle) Emit(ev contract.Event) {
	o.mu.Lock()
	subs := make([]*subscriber, 0, len(o.subscribers))
	for _, s := range o.subscribers {
		subs = append(subs, s)
	}
	o.mu.Unlock()

	for _, s := range subs {
		select {
		case s.sink <- ev:
		case <-s.done:
		}
	}
}

func (o *Oracle) enter(method string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Calls[method]++
	return o.Fail[method]
}

func (o *Oracle) Address() common.Address { return o.ContractAddr }

func (o *Oracle) NetworkID(context.Context) (*big.Int, error) {
	if err := o.enter("net_version"); err != nil {
		return nil, err
	}
	return o.Network, nil
}

func (o *Oracle) Accounts(context.Context) ([]common.Address, error) {
	if err := o.enter("eth_accounts"); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]common.Address(nil), o.AccountList...), nil
}

func (o *Oracle) Deployed(context.Context) (bool, error) {
	if err := o.enter("eth_getCode"); err != nil {
		return false, err
	}
	return o.HasCode, nil
}

func (o *Oracle) IsAdmin(_ context.Context, account common.Address) (bool, error) {
	if err := o.enter("isAdmin"); err != nil {
		return false, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Admins[account], nil
}

func (o *Oracle) Owner(context.Context) (common.Address, error) {
	if err := o.enter("owner"); err != nil {
		return common.Address{}, err
	}
	return o.OwnerAddr, nil
}

func (o *Oracle) Paused(context.Context) (bool, error) {
	if err := o.enter("paused"); err != nil {
		return false, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.IsPaused, nil
}

func (o *Oracle) ValuesPerPack(_ context.Context, tier int) (contract.TierValues, error) {
	if err := o.enter("getValuesPerPack"); err != nil {
		return contract.TierValues{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Tiers[tier], nil
}

func (o *Oracle) EthValues(context.Context) (contract.PriceRange, error) {
	if err := o.enter("getEthValues"); err != nil {
		return contract.PriceRange{}, err
	}
	return o.Eth, nil
}

func (o *Oracle) OtherValues(context.Context) (contract.OtherValues, error) {
	if err := o.enter("getOtherValues"); err != nil {
		return contract.OtherValues{}, err
	}
	return o.Other, nil
}

func (o *Oracle) CountQueryInProgress(context.Context) (*big.Int, error) {
	if err := o.enter("countQueryInProgress"); err != nil {
		return nil, err
	}
	return o.Pending, nil
}

func (o *Oracle) ContractBalance(context.Context) (*big.Int, error) {
	if err := o.enter("getContractBalance"); err != nil {
		return nil, err
	}
	return o.Balance, nil
}

func (o *Oracle) PrevBlock(context.Context) (*big.Int, error) {
	if err := o.enter("prevBlock"); err != nil {
		return nil, err
	}
	return o.Prev, nil
}

func (o *Oracle) BlocksPeriod(context.Context) (*big.Int, error) {
	if err := o.enter("blocksPeriod"); err != nil {
		return nil, err
	}
	return o.Period, nil
}

func (o *Oracle) send(method string, from common.Address, args interface{}) (common.Hash, error) {
	if err := o.enter(method); err != nil {
		return common.Hash{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	hash := common.BigToHash(big.NewInt(int64(len(o.Sent) + 1)))
	o.Sent = append(o.Sent, Tx{Method: method, From: from, Args: args, Hash: hash})
	return hash, nil
}

func (o *Oracle) AddAdmin(_ context.Context, from, admin common.Address) (common.Hash, error) {
	return o.send("addAdmin", from, admin)
}

func (o *Oracle) NextProcess(_ context.Context, from common.Address) (common.Hash, error) {
	return o.send("nextProcess", from, nil)
}

func (o *Oracle) SetPointsPackaging(_ context.Context, from common.Address, update contract.PackagingUpdate) (common.Hash, error) {
	return o.send("setPointsPackaging", from, update)
}

func (o *Oracle) SetRangeEthPrice(_ context.Context, from common.Address, rng contract.PriceRange) (common.Hash, error) {
	return o.send("setRangeEthPrice", from, rng)
}

func (o *Oracle) SetOtherValues(_ context.Context, from common.Address, values contract.OtherValues) (common.Hash, error) {
	return o.send("setOtherValues", from, values)
}

func (o *Oracle) Pause(_ context.Context, from common.Address) (common.Hash, error) {
	return o.send("pause", from, nil)
}

func (o *Oracle) Unpause(_ context.Context, from common.Address) (common.Hash, error) {
	return o.send("unpause", from, nil)
}

func (o *Oracle) SubscribeEvents(_ context.Context, sink chan<- contract.Event) (ethereum.Subscription, error) {
	if err := o.enter("subscribe"); err != nil {
		return nil, err
	}
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	sub := &subscriber{sink: sink, done: make(chan struct{})}
	o.subscribers[id] = sub
	o.mu.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
		close(sub.done)
		return nil
	}), nil
}

var _ contract.Oracle = (*Oracle)(nil)
