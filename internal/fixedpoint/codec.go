package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"oracle-panel/internal/fault"
)

// Places is the number of implied fractional digits in on-chain prices.
const Places = 4

var (
	scale    = decimal.New(1, Places)
	ethUnits = int32(18)
)

// ToDecimal converts a scaled on-chain integer into its decimal value.
func ToDecimal(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -Places)
}

// ToScaled converts a decimal into the on-chain scaled integer. Digits past the
// fourth fractional digit are truncated.
func ToScaled(d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, fault.Validation("encode", fmt.Sprintf("negative value %s", d.String()))
	}
	return d.Mul(scale).Truncate(0).BigInt(), nil
}

// ParseScaled parses user text and converts it to a scaled integer.
func ParseScaled(s string) (*big.Int, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return ToScaled(d)
}

// ParseDecimal parses a finite decimal literal. NaN and infinities are rejected.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fault.Validation("parse", "value required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fault.Validation("parse", fmt.Sprintf("%q is not a finite number", s))
	}
	return d, nil
}

// Normalize returns d as it would read back from the chain after encoding.
func Normalize(d decimal.Decimal) (decimal.Decimal, error) {
	raw, err := ToScaled(d)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ToDecimal(raw), nil
}

// WeiToEther converts a wei amount to ether.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -ethUnits)
}

// FormatEther renders an ether amount with four decimals, e.g. "1.2500 ETH".
func FormatEther(eth decimal.Decimal) string {
	return eth.StringFixed(Places) + " ETH"
}
