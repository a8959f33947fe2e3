package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-panel/internal/alerting"
	"oracle-panel/internal/config"
	"oracle-panel/internal/contract"
	"oracle-panel/internal/contract/contracttest"
	"oracle-panel/internal/display"
	"oracle-panel/internal/storage"
	"oracle-panel/internal/submitter"
)

var operator = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func testApp() *App {
	cfg := &config.Config{}
	cfg.Events.BufferSize = 8
	cfg.Export.MaxDataPoints = 100
	cfg.Ethereum.ContractAddress = "0x00000000000000000000000000000000000000c0"
	return NewApp(cfg, zerolog.Nop())
}

func seededOracle() *contracttest.Oracle {
	n := func(v int64) *big.Int { return big.NewInt(v) }
	o := contracttest.New()
	o.Admins[operator] = true
	o.SetAccounts(operator)
	for i := range o.Tiers {
		o.Tiers[i] = contract.TierValues{Points: n(1), MinPoints: n(0), MaxPoints: n(10), MinPrice: n(10000), MaxPrice: n(20000)}
	}
	o.Eth = contract.PriceRange{Min: n(1500000), Max: n(3000000)}
	o.Other = contract.OtherValues{BlocksPeriod: n(100), BlocksPerRequest: n(10), GasLow: n(1), GasMed: n(2), GasHigh: n(3)}
	o.Balance, _ = new(big.Int).SetString("1250000000000000000", 10)
	return o
}

func TestPerformShowPrintsPanel(t *testing.T) {
	o := seededOracle()
	var out bytes.Buffer

	err := testApp().perform(context.Background(), o, nil, ActionOptions{Op: OpShow}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1.2500 ETH")
	assert.Contains(t, out.String(), operator.Hex())
	assert.Contains(t, out.String(), "information updated")
	assert.Empty(t, o.Transactions())
}

func TestPerformSubmitsWithInputs(t *testing.T) {
	o := seededOracle()
	var out bytes.Buffer

	opts := ActionOptions{
		Op:     submitter.OpUpdateOtherValues,
		Inputs: map[string]string{display.FieldGasHigh: "9"},
	}
	require.NoError(t, testApp().perform(context.Background(), o, nil, opts, &out))

	txs := o.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "setOtherValues", txs[0].Method)
	assert.Equal(t, int64(9), txs[0].Args.(contract.OtherValues).GasHigh.Int64())
	assert.Contains(t, out.String(), "transaction: ")
}

func TestPerformReportsOperationError(t *testing.T) {
	o := seededOracle()
	var out bytes.Buffer

	opts := ActionOptions{Op: submitter.OpUpdateEthRange, Inputs: map[string]string{display.FieldPriceEthMin: "x"}}
	err := testApp().perform(context.Background(), o, nil, opts, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "alerts:", "board still printed")

	err = testApp().perform(context.Background(), o, nil, ActionOptions{Op: "nope"}, &out)
	assert.Error(t, err)
}

func TestResolveAccount(t *testing.T) {
	o := seededOracle()

	got, err := resolveAccount(context.Background(), o, "")
	require.NoError(t, err)
	assert.Equal(t, operator, got)

	explicit := "0x00000000000000000000000000000000000000b2"
	got, err = resolveAccount(context.Background(), o, explicit)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(explicit), got)

	_, err = resolveAccount(context.Background(), o, "0x12")
	assert.Error(t, err)

	o.SetAccounts()
	_, err = resolveAccount(context.Background(), o, "")
	assert.EqualError(t, err, "wallet connection required")
}

func TestRenderHistory(t *testing.T) {
	var out bytes.Buffer
	renderHistory(&out, nil)
	assert.Equal(t, "no submissions found\n", out.String())

	out.Reset()
	renderHistory(&out, []storage.Submission{{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Op:        submitter.OpAddAdmin,
		Account:   operator.Hex(),
		TxHash:    "0xabc",
		Payload:   json.RawMessage(`{"admin":"0xb2"}`),
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	assert.Contains(t, out.String(), "2026-01-02T03:04:05Z")
	assert.Contains(t, out.String(), "add-admin")
	assert.Contains(t, out.String(), `{"admin":"0xb2"}`)
}

func TestDownsampleKeepsEnds(t *testing.T) {
	confs := make([]storage.Confirmation, 10)
	for i := range confs {
		confs[i].BlockNumber = int64(i)
	}
	got := downsample(confs, 4)
	require.Len(t, got, 4)
	assert.Equal(t, int64(0), got[0].BlockNumber)
	assert.Equal(t, int64(9), got[3].BlockNumber)
	assert.Len(t, downsample(confs, 20), 10)
}

func TestExportWritesCSVAndChart(t *testing.T) {
	dir := t.TempDir()
	desc := "query sent"
	confs := []storage.Confirmation{
		{TxHash: "0x1", Kind: "ethPriceUpdate", BlockNumber: 5, ReceivedAt: time.Now().UTC()},
		{TxHash: "0x2", Kind: "LogNewProvableQuery", BlockNumber: 6, Description: &desc, ReceivedAt: time.Now().UTC()},
		{TxHash: "0x3", Kind: "ethPriceUpdate", BlockNumber: 7, ReceivedAt: time.Now().UTC()},
	}

	csvPath := filepath.Join(dir, "out", "confirmations.csv")
	require.NoError(t, writeConfirmationsCSV(csvPath, confs))
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "query sent", records[2][5])

	bars := countByKind(confs)
	require.Len(t, bars, 2)
	assert.Equal(t, "LogNewProvableQuery", bars[0].Label)
	assert.Equal(t, 2.0, bars[1].Value)

	pngPath := filepath.Join(dir, "confirmations.png")
	require.NoError(t, writeConfirmationsPNG(pngPath, confs))
	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

type pastEvents struct {
	head   uint64
	events []contract.Event
	from   uint64
	to     uint64
}

func (p *pastEvents) LatestBlock(context.Context) (uint64, error) { return p.head, nil }

func (p *pastEvents) PastEvents(_ context.Context, from, to, _ uint64) ([]contract.Event, error) {
	p.from, p.to = from, to
	return p.events, nil
}

type confirmationLog struct {
	rows []storage.Confirmation
	fail error
}

func (c *confirmationLog) RecordConfirmation(_ context.Context, conf storage.Confirmation) error {
	if c.fail != nil {
		return c.fail
	}
	c.rows = append(c.rows, conf)
	return nil
}

func (c *confirmationLog) ListConfirmationsBetween(context.Context, time.Time, time.Time) ([]storage.Confirmation, error) {
	return c.rows, nil
}

func TestBackfillRecordsDistinctConfirmations(t *testing.T) {
	tx := common.HexToHash("0xaa")
	src := &pastEvents{head: 500, events: []contract.Event{
		{Kind: contract.EventEthPriceUpdate, TxHash: tx, BlockNumber: 10},
		{Kind: contract.EventEthPriceUpdate, TxHash: tx, BlockNumber: 10},
		{Kind: contract.EventNewPointsReward, TxHash: tx, BlockNumber: 10},
		{Kind: contract.EventLogNewProvableQuery, TxHash: common.HexToHash("0xbb"), Description: "sent"},
		{Kind: contract.EventPaused, TxHash: common.HexToHash("0xcc"), Removed: true},
	}}
	store := &confirmationLog{}

	err := testApp().backfill(context.Background(), src, store, BackfillOptions{FromBlock: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), src.to, "defaults to head")
	require.Len(t, store.rows, 3)
	assert.Equal(t, uuid.Nil, store.rows[0].SessionID)
	require.NotNil(t, store.rows[2].Description)
	assert.Equal(t, "sent", *store.rows[2].Description)

	err = testApp().backfill(context.Background(), src, &confirmationLog{fail: errors.New("down")}, BackfillOptions{FromBlock: 1})
	assert.Error(t, err)

	err = testApp().backfill(context.Background(), src, nil, BackfillOptions{FromBlock: 600, ToBlock: 10})
	assert.Error(t, err)
}

func TestAlertRelayForwardsAlertsOnly(t *testing.T) {
	a := testApp()
	board := display.NewBoard(zerolog.Nop())
	board.Set(display.FieldAccount, operator.Hex())
	o := seededOracle()
	manager := a.newManager(o, board, nil, nil)
	t.Cleanup(manager.Close)

	notes := &recorder{}
	fwd := newTestForwarder(notes)
	board.Subscribe(a.alertRelay(fwd, board, manager))

	board.SetStatus("ignored")
	board.Alert("contract paused")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fwd.Run(ctx) }()

	require.Eventually(t, func() bool { return notes.count() == 1 }, time.Second, 5*time.Millisecond)
	note := notes.first()
	assert.Equal(t, "contract paused", note.Message)
	assert.Equal(t, operator.Hex(), note.Account)
	assert.Equal(t, a.Config.Ethereum.ContractAddress, note.Contract)
	assert.Empty(t, note.SessionID)
}

type recorder struct {
	mu    sync.Mutex
	notes []alerting.Notification
}

func (r *recorder) Notify(_ context.Context, note alerting.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

func (r *recorder) first() alerting.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notes[0]
}

func newTestForwarder(n alerting.Notifier) *alerting.Forwarder {
	return alerting.NewForwarder(n, 0, 8, zerolog.Nop())
}
