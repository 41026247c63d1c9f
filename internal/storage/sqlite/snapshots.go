package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// CommitSnapshot closes the settlement and stores its snapshot in one transaction.
// The status flip is a compare-and-swap on status = 'open'; losing writers see
// zero affected rows and get storage.ErrSettlementClosed.
func (s *SQLiteStore) CommitSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE settlements SET status = 'closed', closed_at = ?, closed_by = ?, close_token = ?
		 WHERE id = ? AND status = 'open'`,
		snapshot.ClosedAt, snapshot.ClosedBy, nullString(snapshot.IdempotencyToken), snapshot.SettlementID,
	)
	if err != nil {
		return fmt.Errorf("failed to close settlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check closed rows: %w", err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM settlements WHERE id = ?", snapshot.SettlementID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("settlement %s: %w", snapshot.SettlementID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check settlement existence: %w", err)
		}
		return fmt.Errorf("settlement %s: %w", snapshot.SettlementID, storage.ErrSettlementClosed)
	}

	for _, b := range snapshot.Balances {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_balances (settlement_id, participant_id, amount_cents) VALUES (?, ?, ?)`,
			snapshot.SettlementID, b.ParticipantID, b.AmountCents,
		)
		if err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
	}

	for i, t := range snapshot.Transfers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_transfers (settlement_id, seq, from_participant, to_participant, amount_cents)
			 VALUES (?, ?, ?, ?, ?)`,
			snapshot.SettlementID, i, t.From, t.To, t.AmountCents,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transfer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSnapshot reads the persisted snapshot of a closed settlement.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, settlementID string) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{SettlementID: settlementID}
	var status string
	var closedAt sql.NullInt64
	var closedBy, token sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT status, closed_at, closed_by, close_token FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&status, &closedAt, &closedBy, &token)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	if status != string(models.StatusClosed) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrSettlementOpen)
	}
	snapshot.ClosedAt = closedAt.Int64
	snapshot.ClosedBy = closedBy.String
	snapshot.IdempotencyToken = token.String

	snapshot.Balances, err = s.snapshotBalances(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	snapshot.Transfers, err = s.snapshotTransfers(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *SQLiteStore) snapshotBalances(ctx context.Context, settlementID string) ([]models.ParticipantBalance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, amount_cents FROM snapshot_balances WHERE settlement_id = ? ORDER BY participant_id`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	defer rows.Close()

	balances := make([]models.ParticipantBalance, 0)
	for rows.Next() {
		var b models.ParticipantBalance
		if err := rows.Scan(&b.ParticipantID, &b.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	return balances, nil
}

func (s *SQLiteStore) snapshotTransfers(ctx context.Context, settlementID string) ([]models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_participant, to_participant, amount_cents FROM snapshot_transfers
		 WHERE settlement_id = ? ORDER BY seq`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]models.Transfer, 0)
	for rows.Next() {
		var t models.Transfer
		if err := rows.Scan(&t.From, &t.To, &t.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}
