package backtest

import (
	"math"

	"volrv/internal/config"
)

// CostModel prices trades. It is a pure function of (trade, configuration)
// and is always invoked: a zero-bps configuration still runs the model and
// produces zero, so cost semantics stay auditable and comparable.
type CostModel struct {
	cfg config.CostConfig
}

// NewCostModel creates a cost model from configuration.
func NewCostModel(cfg config.CostConfig) *CostModel {
	return &CostModel{cfg: cfg}
}

// ExecutionPrice perturbs the reference price by the configured slippage,
// in the adverse direction of the trade: buys fill higher, sells lower.
func (m *CostModel) ExecutionPrice(refPrice, quantityDelta float64) float64 {
	if m.cfg.SlippageBps == 0 || quantityDelta == 0 {
		return refPrice
	}
	adj := refPrice * m.cfg.SlippageBps / 10000.0
	if quantityDelta > 0 {
		return refPrice + adj
	}
	return refPrice - adj
}

// Cost returns the transaction cost for a fill at the given execution price.
func (m *CostModel) Cost(quantityDelta, execPrice float64, tradeType TradeType) float64 {
	bps := m.cfg.CostBpsRebalance
	if tradeType == TradeRoll {
		bps = m.cfg.CostBpsRoll
	}
	return math.Abs(quantityDelta) * execPrice * bps / 10000.0
}

// Fill builds the priced trade fields in one step: slippage-adjusted
// execution price, notional, and cost.
func (m *CostModel) Fill(refPrice, quantityDelta float64, tradeType TradeType) (price, notional, cost float64) {
	price = m.ExecutionPrice(refPrice, quantityDelta)
	notional = math.Abs(quantityDelta) * price
	cost = m.Cost(quantityDelta, price, tradeType)
	return price, notional, cost
}
