package contract

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSenderEvent(t *testing.T) {
	sender := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tx := common.HexToHash("0x01")
	log := types.Log{
		Topics:      []common.Hash{oracleABI.Events["packagingFullUpdate"].ID, common.BytesToHash(sender.Bytes())},
		TxHash:      tx,
		BlockNumber: 42,
	}

	ev, err := DecodeEvent(log)
	require.NoError(t, err)
	assert.Equal(t, EventPackagingFullUpdate, ev.Kind)
	assert.Equal(t, tx, ev.TxHash)
	assert.Equal(t, sender, ev.Sender)
	assert.Equal(t, uint64(42), ev.BlockNumber)
}

func TestDecodeProvableQueryDescription(t *testing.T) {
	data, err := oracleABI.Events["LogNewProvableQuery"].Inputs.Pack("Provable query was sent, standing by for the answer..")
	require.NoError(t, err)

	ev, err := DecodeEvent(types.Log{
		Topics: []common.Hash{oracleABI.Events["LogNewProvableQuery"].ID},
		Data:   data,
	})
	require.NoError(t, err)
	assert.Equal(t, EventLogNewProvableQuery, ev.Kind)
	assert.Equal(t, "Provable query was sent, standing by for the answer..", ev.Description)
}

func TestDecodePausedAccount(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	data, err := oracleABI.Events["Paused"].Inputs.Pack(account)
	require.NoError(t, err)

	ev, err := DecodeEvent(types.Log{Topics: []common.Hash{oracleABI.Events["Paused"].ID}, Data: data})
	require.NoError(t, err)
	assert.Equal(t, EventPaused, ev.Kind)
	assert.Equal(t, account, ev.Sender)
}

func TestDecodeUnknownTopic(t *testing.T) {
	_, err := DecodeEvent(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	assert.ErrorIs(t, err, errUnknownEvent)

	_, err = DecodeEvent(types.Log{})
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestEventTopicsCoverAllKinds(t *testing.T) {
	topics := eventTopics()
	require.Len(t, topics, 7)
	for i, kind := range EventKinds {
		got, ok := kindByTopic(topics[i])
		require.True(t, ok)
		assert.Equal(t, kind, got)
	}
}

func TestPackagingUpdateMirrorsTierOnePrices(t *testing.T) {
	n := func(v int64) *big.Int { return big.NewInt(v) }
	update := NewPackagingUpdate(
		TierUpdate{MinPoints: n(0), MaxPoints: n(10), MinPrice: n(15000), MaxPrice: n(20000)},
		TierUpdate{MinPoints: n(1), MaxPoints: n(11), MinPrice: n(999), MaxPrice: n(999)},
		TierUpdate{MinPoints: n(2), MaxPoints: n(12), MinPrice: n(30000), MaxPrice: n(40000)},
	)

	assert.Equal(t, int64(15000), update.Tiers[1].MinPrice.Int64())
	assert.Equal(t, int64(20000), update.Tiers[1].MaxPrice.Int64())

	args := update.args()
	require.Len(t, args, 10)
	want := []int64{0, 10, 1, 11, 2, 12, 15000, 20000, 30000, 40000}
	for i, w := range want {
		assert.Equal(t, w, args[i].(*big.Int).Int64(), "arg %d", i)
	}

	_, err := oracleABI.Pack("setPointsPackaging", args...)
	require.NoError(t, err)
}

type fakeFilterer struct {
	head    uint64
	queries []ethereum.FilterQuery
	logs    []types.Log
}

func (f *fakeFilterer) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.queries = append(f.queries, q)
	return f.logs, nil
}

func (f *fakeFilterer) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}

func (f *fakeFilterer) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func TestLogPollerOverlapsWindows(t *testing.T) {
	src := &fakeFilterer{head: 100}
	p := &logPoller{src: src, next: 101, lag: 3}

	logs, err := p.poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, logs)
	assert.Empty(t, src.queries, "no new blocks, no query")

	src.head = 105
	_, err = p.poll(context.Background())
	require.NoError(t, err)
	require.Len(t, src.queries, 1)
	assert.Equal(t, int64(98), src.queries[0].FromBlock.Int64())
	assert.Equal(t, int64(105), src.queries[0].ToBlock.Int64())
	assert.Equal(t, uint64(106), p.next)
}

func TestPastEventsWalksWindows(t *testing.T) {
	src := &fakeFilterer{logs: []types.Log{
		{Topics: []common.Hash{oracleABI.Events["ethPriceUpdate"].ID}, TxHash: common.HexToHash("0x02")},
		{Topics: []common.Hash{common.HexToHash("0xdead")}},
	}}
	c := &Client{address: common.HexToAddress("0xc0"), logger: zerolog.Nop()}

	events, err := c.pastEvents(context.Background(), src, 10, 24, 5)
	require.NoError(t, err)
	require.Len(t, src.queries, 3)
	assert.Equal(t, int64(10), src.queries[0].FromBlock.Int64())
	assert.Equal(t, int64(14), src.queries[0].ToBlock.Int64())
	assert.Equal(t, int64(24), src.queries[2].ToBlock.Int64())
	assert.Len(t, events, 3, "undecodable logs skipped")
	assert.Equal(t, EventEthPriceUpdate, events[0].Kind)

	_, err = c.pastEvents(context.Background(), src, 5, 4, 5)
	assert.Error(t, err)
}
