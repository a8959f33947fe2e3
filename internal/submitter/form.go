package submitter

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"oracle-panel/internal/fault"
	"oracle-panel/internal/fixedpoint"
)

// Form reads operator inputs by field name.
type Form interface {
	Value(field string) string
}

// inputs validates every field of one operation before any value is used.
// Bad fields accumulate so a single error can name all of them.
type inputs struct {
	form Form
	bad  []string
}

func newInputs(form Form) *inputs {
	return &inputs{form: form}
}

func (in *inputs) invalid(field string) {
	for _, f := range in.bad {
		if f == field {
			return
		}
	}
	in.bad = append(in.bad, field)
}

// count parses a non-negative integer field.
func (in *inputs) count(field string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(in.form.Value(field)), 10, 64)
	if err != nil {
		in.invalid(field)
		return 0, false
	}
	return v, true
}

// price parses a non-negative decimal field, normalized to what the chain
// would store.
func (in *inputs) price(field string) (decimal.Decimal, bool) {
	d, err := fixedpoint.ParseDecimal(in.form.Value(field))
	if err != nil {
		in.invalid(field)
		return decimal.Zero, false
	}
	n, err := fixedpoint.Normalize(d)
	if err != nil {
		in.invalid(field)
		return decimal.Zero, false
	}
	return n, true
}

func (in *inputs) orderedCounts(minField, maxField string, lo, hi uint64, ok bool) {
	if ok && lo > hi {
		in.invalid(minField)
		in.invalid(maxField)
	}
}

func (in *inputs) orderedPrices(minField, maxField string, lo, hi decimal.Decimal, ok bool) {
	if ok && lo.GreaterThan(hi) {
		in.invalid(minField)
		in.invalid(maxField)
	}
}

func (in *inputs) err(op string) error {
	if len(in.bad) == 0 {
		return nil
	}
	return fault.Validation(op, "invalid input", in.bad...)
}

// scaled encodes a validated price; validated prices are never negative.
func scaled(d decimal.Decimal) *big.Int {
	v, err := fixedpoint.ToScaled(d)
	if err != nil {
		return new(big.Int)
	}
	return v
}

func bigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
