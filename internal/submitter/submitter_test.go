package submitter

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-panel/internal/access"
	"oracle-panel/internal/contract"
	"oracle-panel/internal/contract/contracttest"
	"oracle-panel/internal/display"
	"oracle-panel/internal/fault"
	"oracle-panel/internal/mirror"
	"oracle-panel/internal/storage"
)

var operator = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func n(v int64) *big.Int { return big.NewInt(v) }

type fakeState struct {
	m         *mirror.Mirror
	refreshed int
	err       error
}

func (f *fakeState) Mirror() *mirror.Mirror { return f.m }

func (f *fakeState) RefreshStatus(context.Context) error {
	f.refreshed++
	return f.err
}

type auditLog struct{ rows []storage.Submission }

func (a *auditLog) RecordSubmission(_ context.Context, sub storage.Submission) error {
	a.rows = append(a.rows, sub)
	return nil
}

type fixture struct {
	oracle *contracttest.Oracle
	board  *display.Board
	gate   *access.Controller
	state  *fakeState
	audit  *auditLog
	sub    *Submitter
}

func newFixture(t *testing.T, paused bool) *fixture {
	t.Helper()
	ctx := context.Background()

	o := contracttest.New()
	o.Admins[operator] = true
	o.IsPaused = paused
	o.Tiers[0] = contract.TierValues{Points: n(5), MinPoints: n(0), MaxPoints: n(10), MinPrice: n(10000), MaxPrice: n(20000)}
	o.Tiers[1] = contract.TierValues{Points: n(6), MinPoints: n(1), MaxPoints: n(11), MinPrice: n(10000), MaxPrice: n(20000)}
	o.Tiers[2] = contract.TierValues{Points: n(7), MinPoints: n(2), MaxPoints: n(12), MinPrice: n(30000), MaxPrice: n(45000)}
	o.Eth = contract.PriceRange{Min: n(1500000), Max: n(3000000)}
	o.Other = contract.OtherValues{BlocksPeriod: n(100), BlocksPerRequest: n(10), GasLow: n(1), GasMed: n(2), GasHigh: n(3)}

	m, err := mirror.NewLoader(o, zerolog.Nop()).LoadAll(ctx, nil)
	require.NoError(t, err)

	board := display.NewBoard(zerolog.Nop())
	board.ShowMirror(m)

	gate := access.NewController(o, board, zerolog.Nop())
	require.NoError(t, gate.Refresh(ctx, operator))
	_, err = gate.RefreshPaused(ctx)
	require.NoError(t, err)

	f := &fixture{oracle: o, board: board, gate: gate, state: &fakeState{m: m}, audit: &auditLog{}}
	f.sub = New(Config{
		Writer:    o,
		Gate:      gate,
		Surface:   board,
		State:     f.state,
		Account:   operator,
		SessionID: uuid.New(),
		Audit:     f.audit,
		Logger:    zerolog.Nop(),
	})
	return f
}

func TestUnchangedInputsSubmitNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for name, run := range map[string]func(context.Context) (Result, error){
		OpUpdatePacks:       f.sub.UpdatePacks,
		OpUpdateEthRange:    f.sub.UpdateEthRange,
		OpUpdateOtherValues: f.sub.UpdateOtherValues,
	} {
		res, err := run(ctx)
		require.NoError(t, err, name)
		assert.False(t, res.Sent, name)
	}
	assert.Empty(t, f.oracle.Transactions())
	assert.Equal(t, StatusUnchanged, f.board.Status())
}

func TestEquivalentSpellingsCountAsUnchanged(t *testing.T) {
	f := newFixture(t, false)
	f.board.Set(display.PriceMin(1), "1")
	f.board.Set(display.PriceMax(1), "2.00001")
	f.board.Set(display.FieldPriceEthMin, " 150.0 ")

	_, err := f.sub.UpdatePacks(context.Background())
	require.NoError(t, err)
	_, err = f.sub.UpdateEthRange(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.oracle.Transactions())
}

func TestTierTwoPricesDoNotCountAsChanges(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.oracle.Tiers[1].MinPrice = n(12000)
	f.oracle.Tiers[1].MaxPrice = n(22000)
	m, err := mirror.NewLoader(f.oracle, zerolog.Nop()).LoadAll(ctx, nil)
	require.NoError(t, err)
	f.state.m = m
	f.board.ShowMirror(m)

	res, err := f.sub.UpdatePacks(ctx)
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Empty(t, f.oracle.Transactions())

	f.board.Set(display.PointsMax(2), "15")
	res, err = f.sub.UpdatePacks(ctx)
	require.NoError(t, err)
	assert.True(t, res.Sent)
	txs := f.oracle.Transactions()
	require.Len(t, txs, 1)
	update := txs[0].Args.(contract.PackagingUpdate)
	assert.Equal(t, update.Tiers[0].MinPrice, update.Tiers[1].MinPrice)
	assert.Equal(t, update.Tiers[0].MaxPrice, update.Tiers[1].MaxPrice)
}

func TestPausedRefusesEveryGatedUpdate(t *testing.T) {
	f := newFixture(t, true)
	before := f.state.m
	f.board.Set(display.PriceMin(1), "1.5")
	f.board.Set(display.FieldBlocksPeriod, "7")
	f.board.Set(display.FieldAddressAdmin, operator.Hex())

	for _, run := range []func(context.Context) (Result, error){
		f.sub.UpdatePacks, f.sub.UpdateEthRange, f.sub.UpdateOtherValues, f.sub.AddAdmin,
	} {
		res, err := run(context.Background())
		assert.True(t, fault.Is(err, fault.KindCircuit))
		assert.False(t, res.Sent)
	}
	assert.Empty(t, f.oracle.Transactions())
	assert.Same(t, before, f.state.m)
	assert.Len(t, f.board.Alerts(), 4)
}

func TestTierOnePriceChangeMirrorsIntoTierTwo(t *testing.T) {
	f := newFixture(t, false)
	f.board.Set(display.PriceMin(1), "1.5000")
	f.board.Set(display.PriceMin(2), "9.9999")

	res, err := f.sub.UpdatePacks(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Sent)

	txs := f.oracle.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "setPointsPackaging", txs[0].Method)
	assert.Equal(t, operator, txs[0].From)

	update := txs[0].Args.(contract.PackagingUpdate)
	assert.Equal(t, int64(15000), update.Tiers[0].MinPrice.Int64())
	assert.Equal(t, int64(20000), update.Tiers[0].MaxPrice.Int64())
	assert.Equal(t, int64(15000), update.Tiers[1].MinPrice.Int64())
	assert.Equal(t, int64(20000), update.Tiers[1].MaxPrice.Int64())
	assert.Equal(t, int64(30000), update.Tiers[2].MinPrice.Int64())
	assert.Equal(t, int64(1), update.Tiers[1].MinPoints.Int64())

	assert.Equal(t, "1.5000", f.board.Value(display.PriceMin(2)), "tier 2 input follows tier 1")
	assert.Equal(t, "0", f.board.Value(display.Points(1)))
	assert.Equal(t, "1", f.board.Value(display.Points(2)))
	assert.Contains(t, f.board.Status(), StatusSent)
	assert.True(t, f.state.m.Tiers[0].MinPrice.Equal(decimal.NewFromInt(1)), "mirror not patched")

	require.Len(t, f.audit.rows, 1)
	assert.Equal(t, OpUpdatePacks, f.audit.rows[0].Op)
	assert.Equal(t, txs[0].Hash.Hex(), f.audit.rows[0].TxHash)
}

func TestValidationNamesEveryBadField(t *testing.T) {
	f := newFixture(t, false)
	f.board.Set(display.PointsMin(3), "abc")
	f.board.Set(display.PriceMax(1), "-1")
	f.board.Set(display.PointsMin(2), "50")
	f.board.Set(display.PriceMin(3), "NaN")

	_, err := f.sub.UpdatePacks(context.Background())
	require.Error(t, err)

	var fe *fault.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fault.KindValidation, fe.Kind)
	assert.ElementsMatch(t, []string{
		display.PointsMin(3),
		display.PriceMax(1),
		display.PriceMax(2),
		display.PointsMin(2),
		display.PointsMax(2),
		display.PriceMin(3),
	}, fe.Fields)
	assert.Empty(t, f.oracle.Transactions())
}

func TestEthRangeRejectsInvertedCorridor(t *testing.T) {
	f := newFixture(t, false)
	f.board.Set(display.FieldPriceEthMin, "400")
	f.board.Set(display.FieldPriceEthMax, "300")

	_, err := f.sub.UpdateEthRange(context.Background())
	assert.True(t, fault.Is(err, fault.KindValidation))
	assert.Empty(t, f.oracle.Transactions())
}

func TestEthRangeSendsScaledCorridor(t *testing.T) {
	f := newFixture(t, false)
	f.board.Set(display.FieldPriceEthMax, "310.12345")

	_, err := f.sub.UpdateEthRange(context.Background())
	require.NoError(t, err)
	txs := f.oracle.Transactions()
	require.Len(t, txs, 1)
	rng := txs[0].Args.(contract.PriceRange)
	assert.Equal(t, int64(1500000), rng.Min.Int64())
	assert.Equal(t, int64(3101234), rng.Max.Int64())
}

func TestSubmissionFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, false)
	f.oracle.SetFail("setOtherValues", errors.New("user denied transaction"))
	f.board.Set(display.FieldGasHigh, "9")
	before := f.state.m

	res, err := f.sub.UpdateOtherValues(context.Background())
	assert.True(t, fault.Is(err, fault.KindSubmission))
	assert.False(t, res.Sent)
	assert.Same(t, before, f.state.m)
	assert.Equal(t, uint64(3), f.state.m.Operational.GasHigh)
	assert.Empty(t, f.audit.rows)
	assert.NotEmpty(t, f.board.Alerts())
}

func TestNonAdminIsRefused(t *testing.T) {
	f := newFixture(t, false)
	delete(f.oracle.Admins, operator)
	require.NoError(t, f.gate.Refresh(context.Background(), operator))

	_, err := f.sub.TogglePause(context.Background())
	assert.True(t, fault.Is(err, fault.KindAccess))
	_, err = f.sub.NextProcess(context.Background())
	assert.True(t, fault.Is(err, fault.KindAccess))
	assert.Empty(t, f.oracle.Transactions())
}

func TestTogglePauseWorksWhilePaused(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.sub.TogglePause(context.Background())
	require.NoError(t, err)

	f.oracle.SetPaused(false)
	_, err = f.sub.TogglePause(context.Background())
	require.NoError(t, err)

	txs := f.oracle.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "unpause", txs[0].Method)
	assert.Equal(t, "pause", txs[1].Method)
}

func TestNextProcessIgnoresPauseAndRefreshesStatus(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.sub.NextProcess(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.Equal(t, 1, f.state.refreshed)
	assert.Equal(t, "nextProcess", f.oracle.Transactions()[0].Method)
}

func TestAddAdminValidatesAndClearsInput(t *testing.T) {
	f := newFixture(t, false)
	f.board.Set(display.FieldAddressAdmin, "0x1234")

	_, err := f.sub.AddAdmin(context.Background())
	assert.True(t, fault.Is(err, fault.KindValidation))

	newAdmin := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	f.board.Set(display.FieldAddressAdmin, newAdmin.Hex())
	_, err = f.sub.AddAdmin(context.Background())
	require.NoError(t, err)

	txs := f.oracle.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, newAdmin, txs[0].Args)
	assert.Equal(t, "", f.board.Value(display.FieldAddressAdmin))
}
