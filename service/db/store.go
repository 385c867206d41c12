package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the transfer history.
// The history is an audit record of transfers this service submitted and
// their terminal outcomes; it is never consulted when deciding anything
// on chain.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Transfer represents one submitted transfer in our system.
type Transfer struct {
	ID        int64
	Signature string
	Network   string // "mainnet" or "devnet"
	Kind      string // "native" or "token"
	Recipient string
	Mint      *string // nil for native SOL
	RawAmount uint64  // minor units; full u64 range, stored as NUMERIC
	Status    string  // "finalized" or "failed"
	CreatedAt time.Time
}

// RecordTransferParams contains the parameters for recording a transfer.
type RecordTransferParams struct {
	Signature string
	Network   string
	Kind      string
	Recipient string
	Mint      *string
	RawAmount uint64
	Status    string
}

// ListTransfersParams contains pagination parameters.
type ListTransfersParams struct {
	Network string
	Limit   int32
	Offset  int32
}

const transferColumns = `id, signature, network, kind, recipient, mint, raw_amount::text, status, created_at`

// scanTransfer reads one transfer row. The raw amount travels as text
// because its range exceeds BIGINT.
func scanTransfer(row pgx.Row) (*Transfer, error) {
	var t Transfer
	var raw string
	if err := row.Scan(
		&t.ID,
		&t.Signature,
		&t.Network,
		&t.Kind,
		&t.Recipient,
		&t.Mint,
		&raw,
		&t.Status,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed raw amount %q: %w", raw, err)
	}
	t.RawAmount = amount
	return &t, nil
}

// RecordTransfer inserts a transfer outcome into the history.
func (s *Store) RecordTransfer(ctx context.Context, params RecordTransferParams) (*Transfer, error) {
	const q = `
		INSERT INTO transfers (signature, network, kind, recipient, mint, raw_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		RETURNING ` + transferColumns

	t, err := scanTransfer(s.pool.QueryRow(ctx, q,
		params.Signature,
		params.Network,
		params.Kind,
		params.Recipient,
		params.Mint,
		strconv.FormatUint(params.RawAmount, 10),
		params.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}
	return t, nil
}

// ListTransfers returns transfers for a network, newest first.
func (s *Store) ListTransfers(ctx context.Context, params ListTransfersParams) ([]*Transfer, error) {
	const q = `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE network = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, q, params.Network, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}

// GetTransferBySignature returns a single transfer by its signature.
func (s *Store) GetTransferBySignature(ctx context.Context, signature string) (*Transfer, error) {
	const q = `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE signature = $1`

	t, err := scanTransfer(s.pool.QueryRow(ctx, q, signature))
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer %s: %w", signature, err)
	}
	return t, nil
}

// EnsureSchema creates the transfers table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS transfers (
			id         BIGSERIAL PRIMARY KEY,
			signature  TEXT NOT NULL UNIQUE,
			network    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			recipient  TEXT NOT NULL,
			mint       TEXT,
			raw_amount NUMERIC(20, 0) NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to ensure transfers schema: %w", err)
	}
	return nil
}
