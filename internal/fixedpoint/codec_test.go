package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-panel/internal/fault"
)

func TestScaledRoundTripOnMultiples(t *testing.T) {
	for _, r := range []int64{0, 10000, 20000, 150000, 990000000} {
		raw := big.NewInt(r)
		back, err := ToScaled(ToDecimal(raw))
		require.NoError(t, err)
		assert.Equal(t, 0, raw.Cmp(back), "raw %d", r)
	}
}

func TestDecimalRoundTripUpToFourPlaces(t *testing.T) {
	for _, s := range []string{"0", "1", "1.5", "2.0000", "1.2345", "0.0001", "3120.75"} {
		d := decimal.RequireFromString(s)
		raw, err := ToScaled(d)
		require.NoError(t, err)
		assert.True(t, ToDecimal(raw).Equal(d), "value %s", s)
	}
}

func TestToDecimalKeepsFourPlaces(t *testing.T) {
	assert.Equal(t, "1.5", ToDecimal(big.NewInt(15000)).String())
	assert.Equal(t, "0.0001", ToDecimal(big.NewInt(1)).String())
	assert.Equal(t, "12", ToDecimal(big.NewInt(120000)).String())
}

func TestToScaledTruncatesExtraDigits(t *testing.T) {
	raw, err := ToScaled(decimal.RequireFromString("1.23459"))
	require.NoError(t, err)
	assert.Equal(t, int64(12345), raw.Int64())
	assert.False(t, ToDecimal(raw).Equal(decimal.RequireFromString("1.23459")))
}

func TestToScaledRejectsNegative(t *testing.T) {
	_, err := ToScaled(decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindValidation))
}

func TestParseScaledRejectsNonFinite(t *testing.T) {
	for _, s := range []string{"NaN", "Inf", "-Inf", "abc", "", "  "} {
		_, err := ParseScaled(s)
		require.Error(t, err, "input %q", s)
		assert.True(t, fault.Is(err, fault.KindValidation))
	}
}

func TestParseScaled(t *testing.T) {
	raw, err := ParseScaled(" 1.5 ")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), raw.Int64())
}

func TestFormatEther(t *testing.T) {
	wei, ok := new(big.Int).SetString("1250000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, "1.2500 ETH", FormatEther(WeiToEther(wei)))
	assert.Equal(t, "0.0000 ETH", FormatEther(WeiToEther(nil)))
}
