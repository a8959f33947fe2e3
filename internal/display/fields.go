package display

import "fmt"

// Display field names. They double as form input names for editable values.
const (
	FieldAccount         = "account"
	FieldNetwork         = "network"
	FieldContractAddress = "contract-address"
	FieldOwner           = "owner"
	FieldPriceEthMin     = "priceethmin"
	FieldPriceEthMax     = "priceethmax"
	FieldBlocksPeriod    = "blocks-period"
	FieldBlocksRequest   = "blocks-request"
	FieldGasLow          = "limit-gas-low"
	FieldGasMed          = "limit-gas-med"
	FieldGasHigh         = "limit-gas-high"
	FieldPendingQueries  = "pending-queries"
	FieldBalance         = "balance"
	FieldPrevBlock       = "prev-block"
	FieldNextBlock       = "next-block"
	FieldPauseButton     = "pause-button"
	FieldAddressAdmin    = "address-admin"
)

// Points is the read-only current points field of tier (1-based).
func Points(tier int) string { return fmt.Sprintf("points%d", tier) }

// PointsMin is the minimum points input of tier (1-based).
func PointsMin(tier int) string { return fmt.Sprintf("points-min%d", tier) }

// PointsMax is the maximum points input of tier (1-based).
func PointsMax(tier int) string { return fmt.Sprintf("points-max%d", tier) }

// PriceMin is the minimum price input of tier (1-based).
func PriceMin(tier int) string { return fmt.Sprintf("price-min%d", tier) }

// PriceMax is the maximum price input of tier (1-based).
func PriceMax(tier int) string { return fmt.Sprintf("price-max%d", tier) }

// OtherValueFields lists the operational value inputs in contract order.
var OtherValueFields = []string{FieldBlocksPeriod, FieldBlocksRequest, FieldGasLow, FieldGasMed, FieldGasHigh}

// PauseLabel is the pause button caption for the given paused state.
func PauseLabel(paused bool) string {
	if paused {
		return "Unpause"
	}
	return "Pause"
}

// Layout lists every display field in reading order, tiers expanded.
func Layout(tiers int) []string {
	fields := []string{FieldAccount, FieldNetwork, FieldContractAddress, FieldOwner}
	for n := 1; n <= tiers; n++ {
		fields = append(fields, Points(n), PointsMin(n), PointsMax(n), PriceMin(n), PriceMax(n))
	}
	fields = append(fields, FieldPriceEthMin, FieldPriceEthMax)
	fields = append(fields, OtherValueFields...)
	return append(fields, FieldPendingQueries, FieldBalance, FieldPrevBlock, FieldNextBlock, FieldPauseButton)
}
