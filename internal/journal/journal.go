package journal

import (
	"context"
	"fmt"

	"auto_trader/internal/models"
	"auto_trader/pkg/db"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS trades (
	id          BIGSERIAL PRIMARY KEY,
	symbol      TEXT             NOT NULL,
	side        TEXT             NOT NULL,
	quantity    DOUBLE PRECISION NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	exit_price  DOUBLE PRECISION NOT NULL,
	entry_time  TIMESTAMPTZ      NOT NULL,
	exit_time   TIMESTAMPTZ      NOT NULL,
	pnl         DOUBLE PRECISION NOT NULL,
	pnl_pct     DOUBLE PRECISION NOT NULL
)`

const insertSQL = `
INSERT INTO trades (symbol, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl, pnl_pct)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const recentSQL = `
SELECT symbol, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl, pnl_pct
FROM trades ORDER BY exit_time DESC LIMIT $1`

// Store — append-only журнал закрытых сделок в Postgres.
// Nil-стор валиден: все операции становятся no-op, журнал опционален.
type Store struct {
	tx db.TxManager
}

func New(tx db.TxManager) (*Store, error) {
	s := &Store{tx: tx}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, createTableSQL)
		return err
	})
}

func (s *Store) Append(ctx context.Context, rec models.TradeRecord) (err error) {
	if s == nil {
		return nil
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Append: %w", err)
		}
	}()

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, insertSQL,
			rec.Symbol, string(rec.Side), rec.Quantity,
			rec.EntryPrice, rec.ExitPrice,
			rec.EntryTime, rec.ExitTime,
			rec.Pnl, rec.PnlPct,
		)
		return err
	})
}

func (s *Store) Recent(ctx context.Context, limit int) (out []models.TradeRecord, err error) {
	if s == nil {
		return nil, nil
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Recent: %w", err)
		}
	}()

	rows, err := s.tx.Conn().Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.TradeRecord
		var side string
		if err := rows.Scan(
			&rec.Symbol, &side, &rec.Quantity,
			&rec.EntryPrice, &rec.ExitPrice,
			&rec.EntryTime, &rec.ExitTime,
			&rec.Pnl, &rec.PnlPct,
		); err != nil {
			return nil, err
		}
		rec.Side = models.PositionSide(side)
		out = append(out, rec)
	}
	return out, rows.Err()
}
