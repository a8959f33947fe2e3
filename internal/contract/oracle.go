package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Tiers is the number of packaging reward tiers.
const Tiers = 3

// TierValues is the raw result of getValuesPerPack. Prices are scaled by 10^4.
type TierValues struct {
	Points    *big.Int
	MinPoints *big.Int
	MaxPoints *big.Int
	MinPrice  *big.Int
	MaxPrice  *big.Int
}

// PriceRange is a scaled reference price corridor, used for both
// getEthValues and setRangeEthPrice.
type PriceRange struct {
	Min *big.Int
	Max *big.Int
}

// OtherValues holds the operational thresholds, in contract order.
type OtherValues struct {
	BlocksPeriod     *big.Int
	BlocksPerRequest *big.Int
	GasLow           *big.Int
	GasMed           *big.Int
	GasHigh          *big.Int
}

func (v OtherValues) args() []interface{} {
	return []interface{}{v.BlocksPeriod, v.BlocksPerRequest, v.GasLow, v.GasMed, v.GasHigh}
}

// TierUpdate carries the editable values of one tier.
type TierUpdate struct {
	MinPoints *big.Int
	MaxPoints *big.Int
	MinPrice  *big.Int
	MaxPrice  *big.Int
}

// PackagingUpdate is the full setPointsPackaging change-set. Tier 2 price
// bounds always equal tier 1's and are not sent separately.
type PackagingUpdate struct {
	Tiers [Tiers]TierUpdate
}

// NewPackagingUpdate builds an update whose second tier reuses the first
// tier's price bounds.
func NewPackagingUpdate(t1, t2, t3 TierUpdate) PackagingUpdate {
	t2.MinPrice = t1.MinPrice
	t2.MaxPrice = t1.MaxPrice
	return PackagingUpdate{Tiers: [Tiers]TierUpdate{t1, t2, t3}}
}

func (u PackagingUpdate) args() []interface{} {
	t1, t2, t3 := u.Tiers[0], u.Tiers[1], u.Tiers[2]
	return []interface{}{
		t1.MinPoints, t1.MaxPoints,
		t2.MinPoints, t2.MaxPoints,
		t3.MinPoints, t3.MaxPoints,
		t1.MinPrice, t1.MaxPrice,
		t3.MinPrice, t3.MaxPrice,
	}
}

// Reader exposes the contract's view methods.
type Reader interface {
	IsAdmin(ctx context.Context, account common.Address) (bool, error)
	Owner(ctx context.Context) (common.Address, error)
	Paused(ctx context.Context) (bool, error)
	ValuesPerPack(ctx context.Context, tier int) (TierValues, error)
	EthValues(ctx context.Context) (PriceRange, error)
	OtherValues(ctx context.Context) (OtherValues, error)
	CountQueryInProgress(ctx context.Context) (*big.Int, error)
	ContractBalance(ctx context.Context) (*big.Int, error)
	PrevBlock(ctx context.Context) (*big.Int, error)
	BlocksPeriod(ctx context.Context) (*big.Int, error)
}

// Writer sends state-changing transactions and returns their hash once the
// node accepted them.
type Writer interface {
	AddAdmin(ctx context.Context, from, admin common.Address) (common.Hash, error)
	NextProcess(ctx context.Context, from common.Address) (common.Hash, error)
	SetPointsPackaging(ctx context.Context, from common.Address, update PackagingUpdate) (common.Hash, error)
	SetRangeEthPrice(ctx context.Context, from common.Address, rng PriceRange) (common.Hash, error)
	SetOtherValues(ctx context.Context, from common.Address, values OtherValues) (common.Hash, error)
	Pause(ctx context.Context, from common.Address) (common.Hash, error)
	Unpause(ctx context.Context, from common.Address) (common.Hash, error)
}

// EventSource delivers decoded contract events until the subscription ends.
type EventSource interface {
	SubscribeEvents(ctx context.Context, sink chan<- Event) (ethereum.Subscription, error)
}

// Chain exposes node-level facts a session needs at start.
type Chain interface {
	Address() common.Address
	NetworkID(ctx context.Context) (*big.Int, error)
	Accounts(ctx context.Context) ([]common.Address, error)
	Deployed(ctx context.Context) (bool, error)
}

// Oracle is the full contract surface used by a session.
type Oracle interface {
	Reader
	Writer
	EventSource
	Chain
}
