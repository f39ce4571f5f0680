package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" driver
	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS account_balances (
	run_id     TEXT          NOT NULL,
	client     INTEGER       NOT NULL,
	available  NUMERIC(28,4) NOT NULL,
	held       NUMERIC(28,4) NOT NULL,
	total      NUMERIC(28,4) NOT NULL,
	locked     BOOLEAN       NOT NULL,
	updated_at TIMESTAMPTZ   NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, client)
)`

// BalanceStore persists the final snapshot of a run.
type BalanceStore struct {
	db *sql.DB
}

func NewBalanceStore(db *sql.DB) *BalanceStore {
	return &BalanceStore{
		db: db,
	}
}

// Open connects to dsn and makes sure the balances table exists.
func Open(ctx context.Context, dsn string) (*BalanceStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not reach database: %w", err)
	}
	s := NewBalanceStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (p *BalanceStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}
	return nil
}

func (p *BalanceStore) saveBalance(ctx context.Context, dbTx *sql.Tx, runID string, b models.AccountBalance) error {
	const query = `INSERT INTO account_balances (run_id, client, available, held, total, locked)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (run_id, client) DO UPDATE
	SET available = EXCLUDED.available, held = EXCLUDED.held, total = EXCLUDED.total,
		locked = EXCLUDED.locked, updated_at = now()`

	_, err := dbTx.ExecContext(ctx, query, runID, int(b.AccountID), b.Available, b.Held, b.Total, b.Locked)
	return err
}

// SaveBalances writes every balance of the run in a single transaction.
func (p *BalanceStore) SaveBalances(ctx context.Context, runID string, balances []models.AccountBalance) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	for _, b := range balances {
		if err = p.saveBalance(ctx, dbTx, runID, b); err != nil {
			return fmt.Errorf("could not save balance of client %d: %w", b.AccountID, err)
		}
	}
	return dbTx.Commit()
}

// LoadBalances reads back the balances saved for a run, ordered by client.
func (p *BalanceStore) LoadBalances(ctx context.Context, runID string) ([]models.AccountBalance, error) {
	const query = `SELECT client, available, held, total, locked FROM account_balances
	WHERE run_id = $1 ORDER BY client`

	rows, err := p.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []models.AccountBalance
	for rows.Next() {
		var (
			b      models.AccountBalance
			client int
		)
		if err := rows.Scan(&client, &b.Available, &b.Held, &b.Total, &b.Locked); err != nil {
			return nil, err
		}
		b.AccountID = uint16(client)
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func (p *BalanceStore) Close() error {
	return p.db.Close()
}

var _ interfaces.BalanceSink = (*BalanceStore)(nil)
