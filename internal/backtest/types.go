package backtest

import (
	"time"

	"volrv/internal/roll"
)

// TradeType distinguishes signal-driven rebalances from roll substitutions
// so their costs stay separable.
type TradeType string

const (
	TradeRebalance TradeType = "rebalance"
	TradeRoll      TradeType = "roll"
)

// RecordFlag audits the origin of each per-date record.
type RecordFlag string

const (
	FlagOK            RecordFlag = "ok"
	FlagSkippedNoData RecordFlag = "skipped_no_data"
	FlagSuspect       RecordFlag = "suspect"
)

// CarryBasis labels whether a carry/roll component was measured from an
// actual roll execution or estimated by the configured proxy.
type CarryBasis string

const (
	CarryExactRoll     CarryBasis = "exact_roll"
	CarryProxyEstimate CarryBasis = "proxy_estimate"
)

// Position is the realized holding for one underlying on one date.
// Positions are mutated only by trades: position(t) equals position(t-1)
// plus the signed deltas of all trades dated t.
type Position struct {
	Date        time.Time  `json:"date"`
	Underlying  string     `json:"underlying"`
	Contract    string     `json:"contract"`
	Size        float64    `json:"size"`
	TargetRaw   float64    `json:"target_raw"`
	SignalDate  time.Time  `json:"signal_date,omitempty"`
	SignalValue float64    `json:"signal_value"`
	IsRollDate  bool       `json:"is_roll_date"`
	Flag        RecordFlag `json:"flag"`
}

// Trade is the only mutator of positions.
type Trade struct {
	Date          time.Time `json:"date"`
	Underlying    string    `json:"underlying"`
	Contract      string    `json:"contract"`
	QuantityDelta float64   `json:"quantity_delta"`
	Price         float64   `json:"price"`
	Type          TradeType `json:"trade_type"`
	Cost          float64   `json:"cost"`
	Notional      float64   `json:"notional"`
	SignalDate    time.Time `json:"signal_date,omitempty"`
}

// PnLRecord is the realized profit accounting for one date. Derived, never
// mutated after its date is computed.
type PnLRecord struct {
	Date          time.Time  `json:"date"`
	Underlying    string     `json:"underlying"`
	PositionPrev  float64    `json:"position_prev"`
	GrossPnL      float64    `json:"gross_pnl"`
	CostPnL       float64    `json:"cost_pnl"`
	NetPnL        float64    `json:"net_pnl"`
	CumulativePnL float64    `json:"cumulative_pnl"`
	Equity        float64    `json:"equity"`
	Flag          RecordFlag `json:"flag"`
}

// AttributionRecord decomposes one date's realized PnL. Invariant: the four
// components sum to Total within the configured tolerance.
type AttributionRecord struct {
	Date         time.Time  `json:"date"`
	Underlying   string     `json:"underlying"`
	Total        float64    `json:"total_pnl"`
	CarryRollPnL float64    `json:"carry_roll_pnl"`
	SpotCurvePnL float64    `json:"spot_curve_pnl"`
	CostPnL      float64    `json:"cost_pnl"`
	ResidualPnL  float64    `json:"residual_pnl"`
	CarryBasis   CarryBasis `json:"carry_basis"`
	Suspect      bool       `json:"suspect"`
}

// Summary is the machine-readable run digest for report collaborators.
type Summary struct {
	RunID                  string    `json:"run_id"`
	Underlying             string    `json:"underlying"`
	GeneratedAt            time.Time `json:"generated_at"`
	StartDate              time.Time `json:"start_date"`
	EndDate                time.Time `json:"end_date"`
	TradingDays            int       `json:"trading_days"`
	InitialCapital         float64   `json:"initial_capital"`
	TotalNetPnL            float64   `json:"total_net_pnl"`
	TotalGrossPnL          float64   `json:"total_gross_pnl"`
	FinalEquity            float64   `json:"final_equity"`
	TotalCost              float64   `json:"total_cost"`
	Turnover               float64   `json:"turnover"`
	HitRate                float64   `json:"hit_rate"`
	Sharpe                 float64   `json:"sharpe"`
	MaxDrawdown            float64   `json:"max_drawdown"`
	RebalanceTradeCount    int       `json:"rebalance_trade_count"`
	RollTradeCount         int       `json:"roll_trade_count"`
	RollEventCount         int       `json:"roll_event_count"`
	RollUnavailableCount   int       `json:"roll_unavailable_count"`
	SkippedNoDataCount     int       `json:"skipped_no_data_count"`
	SuspectAttributionDays int       `json:"suspect_attribution_days"`
	AttributionMaxAbsError float64   `json:"attribution_max_abs_error"`

	Params map[string]interface{} `json:"params"`
}

// Result bundles every artifact of one backtest run.
type Result struct {
	RunID       string                 `json:"run_id"`
	Underlying  string                 `json:"underlying"`
	Positions   []Position             `json:"positions"`
	Trades      []Trade                `json:"trades"`
	PnL         []PnLRecord            `json:"pnl"`
	Attribution []AttributionRecord    `json:"attribution"`
	RollEvents  []roll.Event           `json:"roll_events"`
	Unavailable []roll.UnavailableFlag `json:"roll_unavailable"`
	Summary     Summary                `json:"summary"`
}
