package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"oracle-panel/internal/scheduler"
)

// EventKind is the contract event name, as emitted on chain.
type EventKind string

const (
	EventPackagingFullUpdate   EventKind = "packagingFullUpdate"
	EventOtherValuesFullUpdate EventKind = "otherValuesFullUpdate"
	EventEthPriceUpdate        EventKind = "ethPriceUpdate"
	EventNewPointsReward       EventKind = "newPointsReward"
	EventLogNewProvableQuery   EventKind = "LogNewProvableQuery"
	EventPaused                EventKind = "Paused"
	EventUnpaused              EventKind = "Unpaused"
)

// EventKinds lists every event the panel subscribes to.
var EventKinds = []EventKind{
	EventPackagingFullUpdate,
	EventOtherValuesFullUpdate,
	EventEthPriceUpdate,
	EventNewPointsReward,
	EventLogNewProvableQuery,
	EventPaused,
	EventUnpaused,
}

// Event is a decoded contract log.
type Event struct {
	Kind        EventKind
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
	Sender      common.Address
	Description string
	Removed     bool
}

var errUnknownEvent = errors.New("unknown event topic")

func eventTopics() []common.Hash {
	topics := make([]common.Hash, 0, len(EventKinds))
	for _, kind := range EventKinds {
		topics = append(topics, oracleABI.Events[string(kind)].ID)
	}
	return topics
}

func kindByTopic(topic common.Hash) (EventKind, bool) {
	for _, kind := range EventKinds {
		if oracleABI.Events[string(kind)].ID == topic {
			return kind, true
		}
	}
	return "", false
}

// DecodeEvent turns a raw log into an Event.
func DecodeEvent(log types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return Event{}, errUnknownEvent
	}
	kind, ok := kindByTopic(log.Topics[0])
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", errUnknownEvent, log.Topics[0].Hex())
	}

	ev := Event{
		Kind:        kind,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
		Removed:     log.Removed,
	}

	switch kind {
	case EventLogNewProvableQuery:
		values := make(map[string]interface{})
		if err := oracleABI.UnpackIntoMap(values, string(kind), log.Data); err != nil {
			return Event{}, fmt.Errorf("unpack %s: %w", kind, err)
		}
		ev.Description, _ = values["description"].(string)
	case EventPaused, EventUnpaused:
		values := make(map[string]interface{})
		if err := oracleABI.UnpackIntoMap(values, string(kind), log.Data); err != nil {
			return Event{}, fmt.Errorf("unpack %s: %w", kind, err)
		}
		ev.Sender, _ = values["account"].(common.Address)
	default:
		if len(log.Topics) > 1 {
			ev.Sender = common.BytesToAddress(log.Topics[1].Bytes())
		}
	}
	return ev, nil
}

// logFilterer is the subset of ethclient used to receive logs.
type logFilterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

func (c *Client) eventQuery() ethereum.FilterQuery {
	return ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{eventTopics()},
	}
}

// SubscribeEvents streams decoded events into sink. It pushes over the
// websocket endpoint when one is configured and polls logs otherwise.
func (c *Client) SubscribeEvents(ctx context.Context, sink chan<- Event) (ethereum.Subscription, error) {
	if c.ws != nil {
		return c.subscribePush(ctx, c.ws, sink)
	}
	return c.subscribePoll(ctx, c.eth, sink)
}

func (c *Client) subscribePush(ctx context.Context, src logFilterer, sink chan<- Event) (ethereum.Subscription, error) {
	logs := make(chan types.Log)
	sub, err := src.SubscribeFilterLogs(ctx, c.eventQuery(), logs)
	if err != nil {
		return nil, fmt.Errorf("subscribe oracle events: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case <-quit:
				return nil
			case err := <-sub.Err():
				return err
			case log := <-logs:
				if !c.forward(log, sink, quit) {
					return nil
				}
			}
		}
	}), nil
}

func (c *Client) subscribePoll(ctx context.Context, src logFilterer, sink chan<- Event) (ethereum.Subscription, error) {
	head, err := src.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read head block: %w", err)
	}
	poller := &logPoller{
		src:   src,
		query: c.eventQuery(),
		next:  head + 1,
		lag:   c.opts.ReorgLag,
	}
	sched := scheduler.New(scheduler.Options{
		Name:     "event_poller",
		Interval: c.opts.PollInterval,
	}, c.logger)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		pollCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-quit:
			case <-ctx.Done():
			}
			cancel()
		}()

		err := sched.Run(pollCtx, func(ctx context.Context, _ time.Time) error {
			logs, err := poller.poll(ctx)
			if err != nil {
				return err
			}
			for _, log := range logs {
				if !c.forward(log, sink, quit) {
					return nil
				}
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}), nil
}

// forward decodes and delivers one log; it reports false once quit fires.
func (c *Client) forward(log types.Log, sink chan<- Event, quit <-chan struct{}) bool {
	ev, err := DecodeEvent(log)
	if err != nil {
		c.logger.Warn().Err(err).Str("tx", log.TxHash.Hex()).Msg("skipping undecodable log")
		return true
	}
	select {
	case sink <- ev:
		return true
	case <-quit:
		return false
	}
}

// logPoller walks the chain in block windows. Each window re-reads the last
// lag blocks so logs rewritten by a shallow reorg are seen again; the event
// ledger absorbs the resulting duplicates.
type logPoller struct {
	src   logFilterer
	query ethereum.FilterQuery
	next  uint64
	lag   uint64
}

func (p *logPoller) poll(ctx context.Context) ([]types.Log, error) {
	head, err := p.src.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read head block: %w", err)
	}
	if head < p.next {
		return nil, nil
	}

	from := p.next
	if from > p.lag {
		from -= p.lag
	} else {
		from = 0
	}

	q := p.query
	q.FromBlock = new(big.Int).SetUint64(from)
	q.ToBlock = new(big.Int).SetUint64(head)
	logs, err := p.src.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter oracle logs [%d,%d]: %w", from, head, err)
	}
	p.next = head + 1
	return logs, nil
}

// LatestBlock returns the current head block number.
func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := c.readContext(ctx)
	defer cancel()
	return c.eth.BlockNumber(ctx)
}

// PastEvents reads the oracle events of blocks [from, to] in windows of at
// most window blocks, oldest first. Undecodable logs are skipped.
func (c *Client) PastEvents(ctx context.Context, from, to, window uint64) ([]Event, error) {
	return c.pastEvents(ctx, c.eth, from, to, window)
}

func (c *Client) pastEvents(ctx context.Context, src logFilterer, from, to, window uint64) ([]Event, error) {
	if from > to {
		return nil, fmt.Errorf("empty block range [%d,%d]", from, to)
	}
	if window == 0 {
		window = 5000
	}

	var events []Event
	for start := from; start <= to; start += window {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		end := start + window - 1
		if end > to || end < start {
			end = to
		}

		q := c.eventQuery()
		q.FromBlock = new(big.Int).SetUint64(start)
		q.ToBlock = new(big.Int).SetUint64(end)
		logs, err := src.FilterLogs(ctx, q)
		if err != nil {
			return events, fmt.Errorf("filter oracle logs [%d,%d]: %w", start, end, err)
		}
		for _, log := range logs {
			ev, err := DecodeEvent(log)
			if err != nil {
				c.logger.Warn().Err(err).Str("tx", log.TxHash.Hex()).Msg("skipping undecodable log")
				continue
			}
			events = append(events, ev)
		}
		if end == to {
			break
		}
	}
	return events, nil
}
