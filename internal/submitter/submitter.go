package submitter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/fault"
	"oracle-panel/internal/metrics"
	"oracle-panel/internal/mirror"
	"oracle-panel/internal/storage"
)

// Operation names, used for gating, metrics and audit rows.
const (
	OpUpdatePacks       = "update-packs"
	OpUpdateEthRange    = "update-eth-range"
	OpUpdateOtherValues = "update-other-values"
	OpAddAdmin          = "add-admin"
	OpNextProcess       = "next-process"
	OpTogglePause       = "toggle-pause"
)

// Status line messages.
const (
	StatusSent      = "update sent, awaiting confirmation"
	StatusUnchanged = "no changes to submit"
)

// Surface is the display the submitter reads inputs from and reports to.
type Surface interface {
	Form
	Set(field, value string)
	SetStatus(msg string)
	Alert(msg string)
}

// Gate decides whether an operation may run.
type Gate interface {
	Guard(op string) error
	GuardAdmin(op string) error
	RefreshPaused(ctx context.Context) (bool, error)
}

// State is the part of the running session the submitter depends on.
type State interface {
	Mirror() *mirror.Mirror
	RefreshStatus(ctx context.Context) error
}

// Audit records accepted transactions.
type Audit interface {
	RecordSubmission(ctx context.Context, sub storage.Submission) error
}

// Meter counts operation outcomes.
type Meter interface {
	Submission(op, outcome string)
}

// Result describes the outcome of one operation.
type Result struct {
	Op     string `json:"op"`
	Sent   bool   `json:"sent"`
	TxHash string `json:"tx_hash,omitempty"`
}

// Config wires a Submitter. Audit and Meter are optional.
type Config struct {
	Writer    contract.Writer
	Gate      Gate
	Surface   Surface
	State     State
	Account   common.Address
	SessionID uuid.UUID
	Audit     Audit
	Meter     Meter
	Logger    zerolog.Logger
}

// Submitter turns form inputs into at most one transaction per operation.
type Submitter struct {
	writer    contract.Writer
	gate      Gate
	surface   Surface
	state     State
	account   common.Address
	sessionID uuid.UUID
	audit     Audit
	meter     Meter
	logger    zerolog.Logger
}

// New constructs a Submitter bound to one session.
func New(cfg Config) *Submitter {
	return &Submitter{
		writer:    cfg.Writer,
		gate:      cfg.Gate,
		surface:   cfg.Surface,
		state:     cfg.State,
		account:   cfg.Account,
		sessionID: cfg.SessionID,
		audit:     cfg.Audit,
		meter:     cfg.Meter,
		logger:    cfg.Logger.With().Str("component", "submitter").Logger(),
	}
}

type tierInput struct {
	minPoints, maxPoints uint64
	minPrice, maxPrice   decimal.Decimal
}

func (t tierInput) request() contract.TierUpdate {
	return contract.TierUpdate{
		MinPoints: bigUint(t.minPoints),
		MaxPoints: bigUint(t.maxPoints),
		MinPrice:  scaled(t.minPrice),
		MaxPrice:  scaled(t.maxPrice),
	}
}

// UpdatePacks submits the points and prices of all three tiers. Tier 2 price
// inputs are overwritten with tier 1's before validation.
func (s *Submitter) UpdatePacks(ctx context.Context) (Result, error) {
	op := OpUpdatePacks
	if err := s.gate.Guard(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	s.surface.Set(display.PriceMin(2), s.surface.Value(display.PriceMin(1)))
	s.surface.Set(display.PriceMax(2), s.surface.Value(display.PriceMax(1)))

	in := newInputs(s.surface)
	var tiers [contract.Tiers]tierInput
	for i := range tiers {
		n := i + 1
		minPts, ok1 := in.count(display.PointsMin(n))
		maxPts, ok2 := in.count(display.PointsMax(n))
		minPrice, ok3 := in.price(display.PriceMin(n))
		maxPrice, ok4 := in.price(display.PriceMax(n))
		in.orderedCounts(display.PointsMin(n), display.PointsMax(n), minPts, maxPts, ok1 && ok2)
		in.orderedPrices(display.PriceMin(n), display.PriceMax(n), minPrice, maxPrice, ok3 && ok4)
		tiers[i] = tierInput{minPoints: minPts, maxPoints: maxPts, minPrice: minPrice, maxPrice: maxPrice}
	}
	if err := in.err(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	if packsUnchanged(s.mirror(), tiers) {
		return s.unchanged(op)
	}

	update := contract.NewPackagingUpdate(tiers[0].request(), tiers[1].request(), tiers[2].request())
	hash, err := s.writer.SetPointsPackaging(ctx, s.account, update)
	if err != nil {
		return s.fail(op, fault.Submission(op, err), metrics.OutcomeFailed)
	}

	for i, t := range tiers {
		s.surface.Set(display.Points(i+1), strconv.FormatUint(t.minPoints, 10))
	}
	return s.sent(ctx, op, hash, packsPayload(tiers))
}

// UpdateEthRange submits the reference price corridor.
func (s *Submitter) UpdateEthRange(ctx context.Context) (Result, error) {
	op := OpUpdateEthRange
	if err := s.gate.Guard(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	in := newInputs(s.surface)
	lo, ok1 := in.price(display.FieldPriceEthMin)
	hi, ok2 := in.price(display.FieldPriceEthMax)
	in.orderedPrices(display.FieldPriceEthMin, display.FieldPriceEthMax, lo, hi, ok1 && ok2)
	if err := in.err(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	current := s.mirror().Corridor
	if lo.Equal(current.Min) && hi.Equal(current.Max) {
		return s.unchanged(op)
	}

	hash, err := s.writer.SetRangeEthPrice(ctx, s.account, contract.PriceRange{Min: scaled(lo), Max: scaled(hi)})
	if err != nil {
		return s.fail(op, fault.Submission(op, err), metrics.OutcomeFailed)
	}
	return s.sent(ctx, op, hash, map[string]string{"min": lo.String(), "max": hi.String()})
}

// UpdateOtherValues submits the five operational thresholds. Gas ordering is
// left to the contract.
func (s *Submitter) UpdateOtherValues(ctx context.Context) (Result, error) {
	op := OpUpdateOtherValues
	if err := s.gate.Guard(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	in := newInputs(s.surface)
	values := make([]uint64, len(display.OtherValueFields))
	for i, field := range display.OtherValueFields {
		values[i], _ = in.count(field)
	}
	if err := in.err(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	cur := s.mirror().Operational
	if values[0] == cur.BlocksPeriod && values[1] == cur.BlocksPerRequest &&
		values[2] == cur.GasLow && values[3] == cur.GasMed && values[4] == cur.GasHigh {
		return s.unchanged(op)
	}

	req := contract.OtherValues{
		BlocksPeriod:     bigUint(values[0]),
		BlocksPerRequest: bigUint(values[1]),
		GasLow:           bigUint(values[2]),
		GasMed:           bigUint(values[3]),
		GasHigh:          bigUint(values[4]),
	}
	hash, err := s.writer.SetOtherValues(ctx, s.account, req)
	if err != nil {
		return s.fail(op, fault.Submission(op, err), metrics.OutcomeFailed)
	}

	payload := make(map[string]uint64, len(values))
	for i, field := range display.OtherValueFields {
		payload[field] = values[i]
	}
	return s.sent(ctx, op, hash, payload)
}

// AddAdmin grants admin rights to the address in the address-admin input.
func (s *Submitter) AddAdmin(ctx context.Context) (Result, error) {
	op := OpAddAdmin
	if err := s.gate.Guard(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	raw := strings.TrimSpace(s.surface.Value(display.FieldAddressAdmin))
	if !common.IsHexAddress(raw) {
		return s.fail(op, fault.Validation(op, "not an address", display.FieldAddressAdmin), metrics.OutcomeRejected)
	}
	admin := common.HexToAddress(raw)

	hash, err := s.writer.AddAdmin(ctx, s.account, admin)
	if err != nil {
		return s.fail(op, fault.Submission(op, err), metrics.OutcomeFailed)
	}
	s.surface.Set(display.FieldAddressAdmin, "")
	return s.sent(ctx, op, hash, map[string]string{"admin": admin.Hex()})
}

// NextProcess asks the contract to start its next recalculation round. It is
// allowed while paused and refreshes the status counters once sent.
func (s *Submitter) NextProcess(ctx context.Context) (Result, error) {
	op := OpNextProcess
	if err := s.gate.GuardAdmin(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	hash, err := s.writer.NextProcess(ctx, s.account)
	if err != nil {
		return s.fail(op, fault.Submission(op, err), metrics.OutcomeFailed)
	}
	res, _ := s.sent(ctx, op, hash, nil)

	if err := s.state.RefreshStatus(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("status refresh after next-process failed")
		s.surface.SetStatus(err.Error())
	}
	return res, nil
}

// TogglePause reads the paused flag fresh and submits the opposite action.
// It is the one mutation allowed while the circuit is open.
func (s *Submitter) TogglePause(ctx context.Context) (Result, error) {
	op := OpTogglePause
	if err := s.gate.GuardAdmin(op); err != nil {
		return s.fail(op, err, metrics.OutcomeRejected)
	}

	paused, err := s.gate.RefreshPaused(ctx)
	if err != nil {
		return s.fail(op, err, metrics.OutcomeFailed)
	}

	send, action := s.writer.Pause, "pause"
	if paused {
		send, action = s.writer.Unpause, "unpause"
	}
	hash, err := send(ctx, s.account)
	if err != nil {
		return s.fail(op, fault.Submission(op, err), metrics.OutcomeFailed)
	}
	return s.sent(ctx, op, hash, map[string]string{"action": action})
}

func (s *Submitter) mirror() *mirror.Mirror {
	if m := s.state.Mirror(); m != nil {
		return m
	}
	return &mirror.Mirror{}
}

func (s *Submitter) unchanged(op string) (Result, error) {
	s.logger.Info().Str("op", op).Msg("inputs match the mirror; nothing submitted")
	s.surface.SetStatus(StatusUnchanged)
	s.count(op, metrics.OutcomeNoop)
	return Result{Op: op}, nil
}

func (s *Submitter) sent(ctx context.Context, op string, hash common.Hash, payload interface{}) (Result, error) {
	s.logger.Info().Str("op", op).Str("tx", hash.Hex()).Str("account", s.account.Hex()).Msg("transaction sent")
	s.surface.SetStatus(fmt.Sprintf("%s (tx %s)", StatusSent, hash.Hex()))
	s.count(op, metrics.OutcomeSent)

	if s.audit != nil {
		sub := storage.Submission{
			ID:        uuid.New(),
			SessionID: s.sessionID,
			Op:        op,
			Account:   s.account.Hex(),
			TxHash:    hash.Hex(),
		}
		if payload != nil {
			if body, err := json.Marshal(payload); err == nil {
				sub.Payload = body
			}
		}
		if err := s.audit.RecordSubmission(ctx, sub); err != nil {
			s.logger.Warn().Err(err).Str("op", op).Msg("audit record failed")
		}
	}
	return Result{Op: op, Sent: true, TxHash: hash.Hex()}, nil
}

// fail reports err on the status line, alerts for anything but a read
// failure, and returns it unchanged.
func (s *Submitter) fail(op string, err error, outcome string) (Result, error) {
	s.logger.Warn().Err(err).Str("op", op).Msg("operation not completed")
	s.surface.SetStatus(err.Error())
	if !fault.Is(err, fault.KindRead) {
		s.surface.Alert(err.Error())
	}
	s.count(op, outcome)
	return Result{Op: op}, err
}

func (s *Submitter) count(op, outcome string) {
	if s.meter != nil {
		s.meter.Submission(op, outcome)
	}
}

// packsUnchanged compares the editable pack fields with the mirror. Tier 2
// price bounds are not editable and are left out.
func packsUnchanged(m *mirror.Mirror, tiers [contract.Tiers]tierInput) bool {
	for i, t := range tiers {
		cur := m.Tiers[i]
		if t.minPoints != cur.MinPoints || t.maxPoints != cur.MaxPoints {
			return false
		}
		if i == 1 {
			continue
		}
		if !t.minPrice.Equal(cur.MinPrice) || !t.maxPrice.Equal(cur.MaxPrice) {
			return false
		}
	}
	return true
}

func packsPayload(tiers [contract.Tiers]tierInput) []map[string]string {
	out := make([]map[string]string, len(tiers))
	for i, t := range tiers {
		out[i] = map[string]string{
			"min_points": strconv.FormatUint(t.minPoints, 10),
			"max_points": strconv.FormatUint(t.maxPoints, 10),
			"min_price":  t.minPrice.String(),
			"max_price":  t.maxPrice.String(),
		}
	}
	return out
}
