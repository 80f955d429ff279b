package domain

import (
	"math/big"
	"time"
)

// Direction names the execution path of a detected spread.
type Direction string

const (
	// DirectionCEXToDEX buys the base asset on the CEX and sells it on the DEX.
	DirectionCEXToDEX Direction = "cex_to_dex"
	// DirectionDEXToCEX buys on the DEX and sells on the CEX.
	DirectionDEXToCEX Direction = "dex_to_cex"
	// DirectionDEXToDEX buys on the cheaper DEX and sells on the dearer one.
	DirectionDEXToDEX Direction = "dex_to_dex"
)

// Opportunity is one profitable directional spread, emitted only when the
// fee-adjusted profit strictly exceeds the configured minimum. It is a
// snapshot: nothing re-validates it after emission, and any consumer that
// wants to act on it must re-quote first.
type Opportunity struct {
	ID             string
	Base           string
	Quote          string
	ChainID        int
	Notional       *big.Int // smallest unit of the base token
	BuyVenue       string
	SellVenue      string
	BuyPrice       float64
	SellPrice      float64
	GrossSpreadPct float64
	NetProfitPct   float64
	EstCostPct     float64 // flat fee model: flashloan + swap + taker + gas
	Direction      Direction
	DetectedAt     time.Time
}
