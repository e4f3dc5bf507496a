package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"volrv/internal/backtest"
	"volrv/internal/roll"
)

// PostgresRepository persists runs to postgres. Detail streams land in
// per-record tables so collaborators can query them directly; the summary is
// kept as JSONB to survive field additions without migrations.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an open connection. The schema is managed by
// the migrate command, not here.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveRun(ctx context.Context, result *backtest.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, underlying, generated_at, start_date, end_date, summary)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.RunID, result.Underlying, result.Summary.GeneratedAt,
		result.Summary.StartDate, result.Summary.EndDate, summaryJSON)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, p := range result.Positions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_positions (run_id, position_date, contract, size, target_raw,
				signal_date, signal_value, is_roll_date, flag)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.RunID, p.Date, p.Contract, p.Size, p.TargetRaw,
			nullableDate(p.SignalDate), p.SignalValue, p.IsRollDate, string(p.Flag))
		if err != nil {
			return fmt.Errorf("failed to insert position: %w", err)
		}
	}

	for _, t := range result.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_trades (run_id, trade_date, contract, quantity_delta, price,
				trade_type, cost, notional, signal_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.RunID, t.Date, t.Contract, t.QuantityDelta, t.Price,
			string(t.Type), t.Cost, t.Notional, nullableDate(t.SignalDate))
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	for _, p := range result.PnL {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_pnl (run_id, pnl_date, position_prev, gross_pnl, cost_pnl,
				net_pnl, cumulative_pnl, equity, flag)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.RunID, p.Date, p.PositionPrev, p.GrossPnL, p.CostPnL,
			p.NetPnL, p.CumulativePnL, p.Equity, string(p.Flag))
		if err != nil {
			return fmt.Errorf("failed to insert pnl record: %w", err)
		}
	}

	for _, a := range result.Attribution {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_attribution (run_id, attr_date, total_pnl, carry_roll_pnl,
				spot_curve_pnl, cost_pnl, residual_pnl, carry_basis, suspect)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.RunID, a.Date, a.Total, a.CarryRollPnL,
			a.SpotCurvePnL, a.CostPnL, a.ResidualPnL, string(a.CarryBasis), a.Suspect)
		if err != nil {
			return fmt.Errorf("failed to insert attribution record: %w", err)
		}
	}

	for _, ev := range result.RollEvents {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_roll_events (run_id, event_date, from_contract, to_contract,
				trigger, days_to_expiry, from_price, to_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			result.RunID, ev.Date, ev.FromContract, ev.ToContract,
			string(ev.Trigger), ev.DaysToExpiry, ev.FromPrice, ev.ToPrice)
		if err != nil {
			return fmt.Errorf("failed to insert roll event: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetSummary(ctx context.Context, runID string) (*backtest.Summary, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT summary FROM runs WHERE run_id = $1`, runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var summary backtest.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &summary, nil
}

func (r *PostgresRepository) ListRuns(ctx context.Context, limit int) ([]backtest.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT summary FROM runs ORDER BY generated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []backtest.Summary
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var summary backtest.Summary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (r *PostgresRepository) GetPositions(ctx context.Context, runID string) ([]backtest.Position, error) {
	if err := r.ensureRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT position_date, contract, size, target_raw, signal_date, signal_value,
			is_roll_date, flag
		FROM run_positions WHERE run_id = $1 ORDER BY position_date`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []backtest.Position
	for rows.Next() {
		var p backtest.Position
		var signalDate sql.NullTime
		var flag string
		if err := rows.Scan(&p.Date, &p.Contract, &p.Size, &p.TargetRaw,
			&signalDate, &p.SignalValue, &p.IsRollDate, &flag); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if signalDate.Valid {
			p.SignalDate = signalDate.Time
		}
		p.Flag = backtest.RecordFlag(flag)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (r *PostgresRepository) GetTrades(ctx context.Context, runID string) ([]backtest.Trade, error) {
	if err := r.ensureRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT trade_date, contract, quantity_delta, price, trade_type, cost, notional,
			signal_date
		FROM run_trades WHERE run_id = $1 ORDER BY trade_date, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []backtest.Trade
	for rows.Next() {
		var t backtest.Trade
		var signalDate sql.NullTime
		var tradeType string
		if err := rows.Scan(&t.Date, &t.Contract, &t.QuantityDelta, &t.Price,
			&tradeType, &t.Cost, &t.Notional, &signalDate); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		if signalDate.Valid {
			t.SignalDate = signalDate.Time
		}
		t.Type = backtest.TradeType(tradeType)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *PostgresRepository) GetPnL(ctx context.Context, runID string) ([]backtest.PnLRecord, error) {
	if err := r.ensureRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT pnl_date, position_prev, gross_pnl, cost_pnl, net_pnl, cumulative_pnl,
			equity, flag
		FROM run_pnl WHERE run_id = $1 ORDER BY pnl_date`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pnl: %w", err)
	}
	defer rows.Close()

	var records []backtest.PnLRecord
	for rows.Next() {
		var rec backtest.PnLRecord
		var flag string
		if err := rows.Scan(&rec.Date, &rec.PositionPrev, &rec.GrossPnL, &rec.CostPnL,
			&rec.NetPnL, &rec.CumulativePnL, &rec.Equity, &flag); err != nil {
			return nil, fmt.Errorf("failed to scan pnl record: %w", err)
		}
		rec.Flag = backtest.RecordFlag(flag)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) GetAttribution(ctx context.Context, runID string) ([]backtest.AttributionRecord, error) {
	if err := r.ensureRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT attr_date, total_pnl, carry_roll_pnl, spot_curve_pnl, cost_pnl,
			residual_pnl, carry_basis, suspect
		FROM run_attribution WHERE run_id = $1 ORDER BY attr_date`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribution: %w", err)
	}
	defer rows.Close()

	var records []backtest.AttributionRecord
	for rows.Next() {
		var rec backtest.AttributionRecord
		var basis string
		if err := rows.Scan(&rec.Date, &rec.Total, &rec.CarryRollPnL, &rec.SpotCurvePnL,
			&rec.CostPnL, &rec.ResidualPnL, &basis, &rec.Suspect); err != nil {
			return nil, fmt.Errorf("failed to scan attribution record: %w", err)
		}
		rec.CarryBasis = backtest.CarryBasis(basis)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) GetRollEvents(ctx context.Context, runID string) ([]roll.Event, error) {
	if err := r.ensureRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_date, from_contract, to_contract, trigger, days_to_expiry,
			from_price, to_price
		FROM run_roll_events WHERE run_id = $1 ORDER BY event_date`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roll events: %w", err)
	}
	defer rows.Close()

	var events []roll.Event
	for rows.Next() {
		var ev roll.Event
		var trigger string
		if err := rows.Scan(&ev.Date, &ev.FromContract, &ev.ToContract, &trigger,
			&ev.DaysToExpiry, &ev.FromPrice, &ev.ToPrice); err != nil {
			return nil, fmt.Errorf("failed to scan roll event: %w", err)
		}
		ev.Trigger = roll.Trigger(trigger)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *PostgresRepository) DeleteRun(ctx context.Context, runID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *PostgresRepository) Close() error { return r.db.Close() }

func (r *PostgresRepository) ensureRun(ctx context.Context, runID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM runs WHERE run_id = $1)`, runID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	if !exists {
		return ErrRunNotFound
	}
	return nil
}

func nullableDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
