package display

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"oracle-panel/internal/fixedpoint"
	"oracle-panel/internal/mirror"
)

// Update kinds pushed to listeners.
const (
	UpdateField  = "field"
	UpdateStatus = "status"
	UpdateAlert  = "alert"
)

// Update is one change to the display surface.
type Update struct {
	Type  string    `json:"type"`
	Field string    `json:"field,omitempty"`
	Value string    `json:"value"`
	At    time.Time `json:"at"`
}

// Listener receives updates after they are applied. Listeners must not block.
type Listener func(Update)

// State is a point-in-time copy of the board.
type State struct {
	Fields map[string]string `json:"fields"`
	Status string            `json:"status"`
	Alerts []Update          `json:"alerts"`
}

const maxAlerts = 20

// Board holds the named display fields, the status line and recent alerts.
// Field values are the strings a user sees or types; the form inputs of the
// update operations live here too.
type Board struct {
	mu        sync.RWMutex
	fields    map[string]string
	status    string
	alerts    []Update
	listeners map[int]Listener
	nextID    int
	logger    zerolog.Logger
}

// NewBoard returns an empty board.
func NewBoard(logger zerolog.Logger) *Board {
	return &Board{
		fields:    make(map[string]string),
		listeners: make(map[int]Listener),
		logger:    logger.With().Str("component", "display").Logger(),
	}
}

// Subscribe registers l and returns a function removing it.
func (b *Board) Subscribe(l Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *Board) publish(u Update) {
	b.mu.RLock()
	ls := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		ls = append(ls, l)
	}
	b.mu.RUnlock()

	for _, l := range ls {
		l(u)
	}
}

// Set writes a field.
func (b *Board) Set(field, value string) {
	b.mu.Lock()
	old, ok := b.fields[field]
	b.fields[field] = value
	b.mu.Unlock()

	if ok && old == value {
		return
	}
	b.publish(Update{Type: UpdateField, Field: field, Value: value, At: time.Now().UTC()})
}

// SetAll writes several fields.
func (b *Board) SetAll(values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Set(k, values[k])
	}
}

// Get reads a field.
func (b *Board) Get(field string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.fields[field]
	return v, ok
}

// Value reads a field, returning "" when unset.
func (b *Board) Value(field string) string {
	v, _ := b.Get(field)
	return v
}

// SetStatus replaces the status line.
func (b *Board) SetStatus(msg string) {
	b.mu.Lock()
	b.status = msg
	b.mu.Unlock()

	b.logger.Info().Str("status", msg).Msg("status updated")
	b.publish(Update{Type: UpdateStatus, Value: msg, At: time.Now().UTC()})
}

// Status returns the current status line.
func (b *Board) Status() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Alert raises a user-visible alert.
func (b *Board) Alert(msg string) {
	u := Update{Type: UpdateAlert, Value: msg, At: time.Now().UTC()}

	b.mu.Lock()
	b.alerts = append(b.alerts, u)
	if len(b.alerts) > maxAlerts {
		b.alerts = b.alerts[len(b.alerts)-maxAlerts:]
	}
	b.mu.Unlock()

	b.logger.Warn().Str("alert", msg).Msg("user alert")
	b.publish(u)
}

// Alerts returns the retained alerts, oldest first.
func (b *Board) Alerts() []Update {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Update(nil), b.alerts...)
}

// Snapshot copies the board state.
func (b *Board) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fields := make(map[string]string, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	return State{Fields: fields, Status: b.status, Alerts: append([]Update(nil), b.alerts...)}
}

// ShowMirror populates every mirror-backed field, both the read-only ones
// and the editable inputs.
func (b *Board) ShowMirror(m *mirror.Mirror) {
	values := make(map[string]string)
	for i, tier := range m.Tiers {
		n := i + 1
		values[Points(n)] = u64(tier.CurrentPoints)
		values[PointsMin(n)] = u64(tier.MinPoints)
		values[PointsMax(n)] = u64(tier.MaxPoints)
		values[PriceMin(n)] = tier.MinPrice.StringFixed(fixedpoint.Places)
		values[PriceMax(n)] = tier.MaxPrice.StringFixed(fixedpoint.Places)
	}
	values[FieldPriceEthMin] = m.Corridor.Min.StringFixed(fixedpoint.Places)
	values[FieldPriceEthMax] = m.Corridor.Max.StringFixed(fixedpoint.Places)

	ops := m.Operational
	for i, v := range []uint64{ops.BlocksPeriod, ops.BlocksPerRequest, ops.GasLow, ops.GasMed, ops.GasHigh} {
		values[OtherValueFields[i]] = u64(v)
	}

	b.SetAll(values)
	b.ShowStatus(m.Status)
}

// ShowStatus populates the status counters.
func (b *Board) ShowStatus(s mirror.StatusSnapshot) {
	b.SetAll(map[string]string{
		FieldPendingQueries: u64(s.PendingQueries),
		FieldBalance:        fixedpoint.FormatEther(s.Balance),
		FieldPrevBlock:      u64(s.PrevBlock),
		FieldNextBlock:      u64(s.NextBlock),
	})
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
