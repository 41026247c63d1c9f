package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// CreateSettlement persists a new open settlement and its initial participants.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	settlement.Status = models.StatusOpen

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlements (id, name, status, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		settlement.ID, settlement.Name, string(settlement.Status), settlement.CreatedBy, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	if err := insertParticipants(ctx, tx, settlement.ID, settlement.Participants); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID, including its participants.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var status string
	var closedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_by, created_at, closed_at FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&settlement.ID, &settlement.Name, &status, &settlement.CreatedBy, &settlement.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	settlement.Status = models.SettlementStatus(status)
	if closedAt.Valid {
		settlement.ClosedAt = closedAt.Int64
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, settlement_id, name, user_id FROM participants WHERE settlement_id = ? ORDER BY id`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		var userID sql.NullString
		if err := rows.Scan(&p.ID, &p.SettlementID, &p.Name, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.UserID = userID.String
		settlement.Participants = append(settlement.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return settlement, nil
}

// ListSettlementsByUser returns settlements the user created or participates in.
// Participants are not loaded.
func (s *SQLiteStore) ListSettlementsByUser(ctx context.Context, userID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, created_by, created_at, closed_at FROM settlements
		 WHERE created_by = ?
		    OR id IN (SELECT settlement_id FROM participants WHERE user_id = ?)
		 ORDER BY created_at DESC, id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var status string
		var closedAt sql.NullInt64
		if err := rows.Scan(&settlement.ID, &settlement.Name, &status, &settlement.CreatedBy,
			&settlement.CreatedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement.Status = models.SettlementStatus(status)
		settlement.ClosedAt = closedAt.Int64
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// AddParticipants adds participants to an open settlement.
func (s *SQLiteStore) AddParticipants(ctx context.Context, settlementID string, participants []models.Participant) ([]models.Participant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireOpen(ctx, tx, settlementID); err != nil {
		return nil, err
	}

	added := make([]models.Participant, len(participants))
	copy(added, participants)
	if err := insertParticipants(ctx, tx, settlementID, added); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, nil
}

// insertParticipants assigns IDs where missing and inserts the rows.
func insertParticipants(ctx context.Context, tx *sql.Tx, settlementID string, participants []models.Participant) error {
	for i := range participants {
		p := &participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.SettlementID = settlementID

		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (id, settlement_id, name, user_id) VALUES (?, ?, ?, ?)`,
			p.ID, settlementID, p.Name, nullString(p.UserID),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("participant %q: %w", p.Name, storage.ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}
