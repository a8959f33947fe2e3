package mirror

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oracle-panel/internal/contract"
	"oracle-panel/internal/fault"
	"oracle-panel/internal/fixedpoint"
)

// Section names identify independently loaded parts of the mirror.
const (
	SectionTier1       = "tier1"
	SectionTier2       = "tier2"
	SectionTier3       = "tier3"
	SectionEthRange    = "eth_range"
	SectionOtherValues = "other_values"
	SectionStatus      = "status"
)

var tierSections = [contract.Tiers]string{SectionTier1, SectionTier2, SectionTier3}

// PackTier is one packaging reward tier with decoded prices.
type PackTier struct {
	CurrentPoints uint64          `json:"current_points"`
	MinPoints     uint64          `json:"min_points"`
	MaxPoints     uint64          `json:"max_points"`
	MinPrice      decimal.Decimal `json:"min_price"`
	MaxPrice      decimal.Decimal `json:"max_price"`
}

// PriceCorridor is the accepted reference ETH price band.
type PriceCorridor struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// OperationalValues are the oracle's scheduling and gas thresholds.
type OperationalValues struct {
	BlocksPeriod     uint64 `json:"blocks_period"`
	BlocksPerRequest uint64 `json:"blocks_per_request"`
	GasLow           uint64 `json:"gas_low"`
	GasMed           uint64 `json:"gas_med"`
	GasHigh          uint64 `json:"gas_high"`
}

// StatusSnapshot is derived, read-only contract status.
type StatusSnapshot struct {
	PendingQueries uint64          `json:"pending_queries"`
	Balance        decimal.Decimal `json:"balance"`
	PrevBlock      uint64          `json:"prev_block"`
	NextBlock      uint64          `json:"next_block"`
}

// Mirror is the cached snapshot of on-chain configuration for one session.
// A reload produces a new Mirror; a Mirror is never patched in place.
type Mirror struct {
	Tiers       [contract.Tiers]PackTier `json:"tiers"`
	Corridor    PriceCorridor            `json:"corridor"`
	Operational OperationalValues        `json:"operational"`
	Status      StatusSnapshot           `json:"status"`
	Owner       common.Address           `json:"owner"`
	IsAdmin     bool                     `json:"is_admin"`
	IsPaused    bool                     `json:"is_paused"`
	LoadedAt    time.Time                `json:"loaded_at"`
}

// Loader reads the mirror from the contract.
type Loader struct {
	reader contract.Reader
	logger zerolog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(reader contract.Reader, logger zerolog.Logger) *Loader {
	return &Loader{reader: reader, logger: logger.With().Str("component", "mirror").Logger()}
}

// LoadAll reads every section sequentially and returns a new mirror. A failed
// section keeps prev's value and contributes a read error to the joined
// result; sections read successfully are kept regardless.
func (l *Loader) LoadAll(ctx context.Context, prev *Mirror) (*Mirror, error) {
	next := clone(prev)
	var errs []error

	for i := 0; i < contract.Tiers; i++ {
		tier, err := l.loadTier(ctx, i)
		if err != nil {
			errs = append(errs, l.readFailed(tierSections[i], err))
			continue
		}
		next.Tiers[i] = tier
	}

	if corridor, err := l.loadCorridor(ctx); err != nil {
		errs = append(errs, l.readFailed(SectionEthRange, err))
	} else {
		next.Corridor = corridor
	}

	if values, err := l.loadOperational(ctx); err != nil {
		errs = append(errs, l.readFailed(SectionOtherValues, err))
	} else {
		next.Operational = values
	}

	if status, err := l.loadStatus(ctx); err != nil {
		errs = append(errs, l.readFailed(SectionStatus, err))
	} else {
		next.Status = status
	}

	next.LoadedAt = time.Now().UTC()
	l.logger.Debug().Int("failed_sections", len(errs)).Msg("mirror loaded")
	return next, errors.Join(errs...)
}

// LoadStatus refreshes only the status section.
func (l *Loader) LoadStatus(ctx context.Context, prev *Mirror) (*Mirror, error) {
	next := clone(prev)
	status, err := l.loadStatus(ctx)
	if err != nil {
		return next, l.readFailed(SectionStatus, err)
	}
	next.Status = status
	return next, nil
}

func (l *Loader) readFailed(section string, err error) error {
	l.logger.Error().Err(err).Str("section", section).Msg("contract read failed; keeping cached values")
	return fault.Read(section, err)
}

func (l *Loader) loadTier(ctx context.Context, index int) (PackTier, error) {
	raw, err := l.reader.ValuesPerPack(ctx, index)
	if err != nil {
		return PackTier{}, err
	}
	points, err := toUint(raw.Points, raw.MinPoints, raw.MaxPoints)
	if err != nil {
		return PackTier{}, fmt.Errorf("tier %d: %w", index+1, err)
	}
	return PackTier{
		CurrentPoints: points[0],
		MinPoints:     points[1],
		MaxPoints:     points[2],
		MinPrice:      fixedpoint.ToDecimal(raw.MinPrice),
		MaxPrice:      fixedpoint.ToDecimal(raw.MaxPrice),
	}, nil
}

func (l *Loader) loadCorridor(ctx context.Context) (PriceCorridor, error) {
	raw, err := l.reader.EthValues(ctx)
	if err != nil {
		return PriceCorridor{}, err
	}
	return PriceCorridor{Min: fixedpoint.ToDecimal(raw.Min), Max: fixedpoint.ToDecimal(raw.Max)}, nil
}

func (l *Loader) loadOperational(ctx context.Context) (OperationalValues, error) {
	raw, err := l.reader.OtherValues(ctx)
	if err != nil {
		return OperationalValues{}, err
	}
	v, err := toUint(raw.BlocksPeriod, raw.BlocksPerRequest, raw.GasLow, raw.GasMed, raw.GasHigh)
	if err != nil {
		return OperationalValues{}, err
	}
	return OperationalValues{BlocksPeriod: v[0], BlocksPerRequest: v[1], GasLow: v[2], GasMed: v[3], GasHigh: v[4]}, nil
}

func (l *Loader) loadStatus(ctx context.Context) (StatusSnapshot, error) {
	pending, err := l.reader.CountQueryInProgress(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	balance, err := l.reader.ContractBalance(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	prevBlock, err := l.reader.PrevBlock(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	period, err := l.reader.BlocksPeriod(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}

	v, err := toUint(pending, prevBlock, period)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return StatusSnapshot{
		PendingQueries: v[0],
		Balance:        fixedpoint.WeiToEther(balance),
		PrevBlock:      v[1],
		NextBlock:      v[1] + v[2],
	}, nil
}

func clone(prev *Mirror) *Mirror {
	if prev == nil {
		return &Mirror{}
	}
	cp := *prev
	return &cp
}

func toUint(values ...*big.Int) ([]uint64, error) {
	out := make([]uint64, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if !v.IsUint64() {
			return nil, fmt.Errorf("value %s does not fit in uint64", v.String())
		}
		out[i] = v.Uint64()
	}
	return out, nil
}

// FailedSections lists the sections named by read errors in err.
func FailedSections(err error) []string {
	if err == nil {
		return nil
	}
	var sections []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var fe *fault.Error
		if errors.As(e, &fe) && fe.Kind == fault.KindRead {
			sections = append(sections, fe.Op)
		}
	}
	walk(err)
	return sections
}
