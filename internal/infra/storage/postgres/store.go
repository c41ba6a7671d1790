// Package postgres stores deposits in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gabapcia/depositwatch/internal/deposittrack"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS deposits (
		blockchain      TEXT           NOT NULL,
		network         TEXT           NOT NULL,
		hash            TEXT           NOT NULL,
		token           TEXT           NOT NULL,
		block_number    BIGINT         NOT NULL,
		block_timestamp TIMESTAMPTZ    NOT NULL,
		fee             NUMERIC(78, 0) NOT NULL,
		pubkey          TEXT           NOT NULL,
		created_at      TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
		PRIMARY KEY (blockchain, network, hash)
	)`,
	`CREATE INDEX IF NOT EXISTS deposits_token_timestamp_idx
		ON deposits (blockchain, network, token, block_timestamp)`,
	`CREATE INDEX IF NOT EXISTS deposits_block_number_idx
		ON deposits (block_number)`,
}

// pool is the part of *pgxpool.Pool the store uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store is a deposittrack.DepositStore.
type Store struct {
	pool pool
}

var _ deposittrack.DepositStore = (*Store)(nil)

// New connects to connStr, checks the connection and creates the schema if needed.
func New(ctx context.Context, connStr string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}

	conn, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	store := NewStore(conn)
	if err := store.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return store, nil
}

// NewStore wraps an existing pool. The schema is not touched.
func NewStore(conn *pgxpool.Pool) *Store {
	return &Store{pool: conn}
}

// Migrate creates the deposits table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Upsert implements deposittrack.DepositStore.
func (s *Store) Upsert(ctx context.Context, d deposittrack.Deposit) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO deposits (blockchain, network, hash, token, block_number, block_timestamp, fee, pubkey)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)
		 ON CONFLICT (blockchain, network, hash) DO NOTHING`,
		d.Blockchain, d.Network, d.Hash, d.Token,
		int64(d.BlockNumber), time.Unix(int64(d.BlockTimestamp), 0).UTC(), d.Fee.String(), d.Pubkey,
	)
	return err
}

// LatestStoredBlockNumber implements deposittrack.DepositStore.
func (s *Store) LatestStoredBlockNumber(ctx context.Context) (uint64, bool, error) {
	var latest *int64
	if err := s.pool.QueryRow(ctx, `SELECT MAX(block_number) FROM deposits`).Scan(&latest); err != nil {
		return 0, false, err
	}

	if latest == nil {
		return 0, false, nil
	}
	return uint64(*latest), true, nil
}

type depositRow struct {
	Blockchain     string    `db:"blockchain"`
	Network        string    `db:"network"`
	Hash           string    `db:"hash"`
	Token          string    `db:"token"`
	BlockNumber    int64     `db:"block_number"`
	BlockTimestamp time.Time `db:"block_timestamp"`
	Fee            string    `db:"fee"`
	Pubkey         string    `db:"pubkey"`
}

func (r depositRow) toDeposit() (deposittrack.Deposit, error) {
	fee, ok := new(big.Int).SetString(r.Fee, 10)
	if !ok {
		return deposittrack.Deposit{}, fmt.Errorf("deposit %s: invalid fee %q", r.Hash, r.Fee)
	}

	return deposittrack.Deposit{
		BlockNumber:    uint64(r.BlockNumber),
		BlockTimestamp: uint64(r.BlockTimestamp.Unix()),
		Fee:            fee,
		Hash:           r.Hash,
		Pubkey:         r.Pubkey,
		Blockchain:     r.Blockchain,
		Network:        r.Network,
		Token:          r.Token,
	}, nil
}

// Query implements deposittrack.DepositStore. Deposits come back ordered by block.
func (s *Store) Query(ctx context.Context, blockchain, network, token string, minBlockTimestamp *time.Time) ([]deposittrack.Deposit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT blockchain, network, hash, token, block_number, block_timestamp, fee::text AS fee, pubkey
		 FROM deposits
		 WHERE blockchain = $1 AND network = $2 AND token = $3
		   AND ($4::timestamptz IS NULL OR block_timestamp >= $4)
		 ORDER BY block_number, hash`,
		blockchain, network, token, minBlockTimestamp,
	)
	if err != nil {
		return nil, err
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[depositRow])
	if err != nil {
		return nil, err
	}

	deposits := make([]deposittrack.Deposit, 0, len(records))
	for _, r := range records {
		d, err := r.toDeposit()
		if err != nil {
			return nil, err
		}
		deposits = append(deposits, d)
	}
	return deposits, nil
}
