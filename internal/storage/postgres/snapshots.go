package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// CommitSnapshot closes the settlement and stores its snapshot in one transaction.
// The row lock taken by the conditional UPDATE makes concurrent closers wait;
// once the winner commits, they see status = 'closed' and affect zero rows.
func (s *Store) CommitSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE settlements SET status = 'closed', closed_at = $1, closed_by = $2, close_token = $3
		 WHERE id = $4 AND status = 'open'`,
		snapshot.ClosedAt, snapshot.ClosedBy, nullString(snapshot.IdempotencyToken), snapshot.SettlementID,
	)
	if err != nil {
		return fmt.Errorf("failed to close settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM settlements WHERE id = $1`, snapshot.SettlementID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("settlement %s: %w", snapshot.SettlementID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check settlement existence: %w", err)
		}
		return fmt.Errorf("settlement %s: %w", snapshot.SettlementID, storage.ErrSettlementClosed)
	}

	balances := make([][]any, len(snapshot.Balances))
	for i, b := range snapshot.Balances {
		balances[i] = []any{snapshot.SettlementID, b.ParticipantID, b.AmountCents}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"snapshot_balances"},
		[]string{"settlement_id", "participant_id", "amount_cents"},
		pgx.CopyFromRows(balances),
	); err != nil {
		return fmt.Errorf("failed to insert balances: %w", err)
	}

	transfers := make([][]any, len(snapshot.Transfers))
	for i, t := range snapshot.Transfers {
		transfers[i] = []any{snapshot.SettlementID, int32(i), t.From, t.To, t.AmountCents}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"snapshot_transfers"},
		[]string{"settlement_id", "seq", "from_participant", "to_participant", "amount_cents"},
		pgx.CopyFromRows(transfers),
	); err != nil {
		return fmt.Errorf("failed to insert transfers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSnapshot reads the persisted snapshot of a closed settlement.
func (s *Store) GetSnapshot(ctx context.Context, settlementID string) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{SettlementID: settlementID}
	var status string
	var closedAt *int64
	var closedBy, token *string

	err := s.pool.QueryRow(ctx,
		`SELECT status, closed_at, closed_by, close_token FROM settlements WHERE id = $1`,
		settlementID,
	).Scan(&status, &closedAt, &closedBy, &token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	if status != string(models.StatusClosed) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrSettlementOpen)
	}
	if closedAt != nil {
		snapshot.ClosedAt = *closedAt
	}
	if closedBy != nil {
		snapshot.ClosedBy = *closedBy
	}
	if token != nil {
		snapshot.IdempotencyToken = *token
	}

	rows, err := s.pool.Query(ctx,
		`SELECT participant_id, amount_cents FROM snapshot_balances WHERE settlement_id = $1 ORDER BY participant_id`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	snapshot.Balances, err = pgx.CollectRows(rows, pgx.RowToStructByPos[models.ParticipantBalance])
	if err != nil {
		return nil, fmt.Errorf("failed to scan balances: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT from_participant, to_participant, amount_cents FROM snapshot_transfers
		 WHERE settlement_id = $1 ORDER BY seq`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}
	snapshot.Transfers, err = pgx.CollectRows(rows, pgx.RowToStructByPos[models.Transfer])
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfers: %w", err)
	}
	return snapshot, nil
}
