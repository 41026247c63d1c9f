package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// CreateSettlement persists a new open settlement and its initial participants.
func (s *Store) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	settlement.Status = models.StatusOpen

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO settlements (id, name, status, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`,
		settlement.ID, settlement.Name, string(settlement.Status), settlement.CreatedBy, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	if err := insertParticipants(ctx, tx, settlement.ID, settlement.Participants); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID, including its participants.
func (s *Store) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var status string
	var closedAt *int64

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, status, created_by, created_at, closed_at FROM settlements WHERE id = $1`,
		settlementID,
	).Scan(&settlement.ID, &settlement.Name, &status, &settlement.CreatedBy, &settlement.CreatedAt, &closedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	settlement.Status = models.SettlementStatus(status)
	if closedAt != nil {
		settlement.ClosedAt = *closedAt
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, settlement_id, name, COALESCE(user_id, '') FROM participants WHERE settlement_id = $1 ORDER BY id`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	settlement.Participants, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Participant, error) {
		var p models.Participant
		err := row.Scan(&p.ID, &p.SettlementID, &p.Name, &p.UserID)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan participants: %w", err)
	}
	return settlement, nil
}

// ListSettlementsByUser returns settlements the user created or participates in.
func (s *Store) ListSettlementsByUser(ctx context.Context, userID string) ([]*models.Settlement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, status, created_by, created_at, COALESCE(closed_at, 0) FROM settlements
		 WHERE created_by = $1
		    OR id IN (SELECT settlement_id FROM participants WHERE user_id = $1)
		 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	settlements, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Settlement, error) {
		st := &models.Settlement{}
		var status string
		err := row.Scan(&st.ID, &st.Name, &status, &st.CreatedBy, &st.CreatedAt, &st.ClosedAt)
		st.Status = models.SettlementStatus(status)
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan settlements: %w", err)
	}
	return settlements, nil
}

// AddParticipants adds participants to an open settlement.
func (s *Store) AddParticipants(ctx context.Context, settlementID string, participants []models.Participant) ([]models.Participant, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOpen(ctx, tx, settlementID); err != nil {
		return nil, err
	}

	added := make([]models.Participant, len(participants))
	copy(added, participants)
	if err := insertParticipants(ctx, tx, settlementID, added); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, nil
}

func insertParticipants(ctx context.Context, tx pgx.Tx, settlementID string, participants []models.Participant) error {
	for i := range participants {
		p := &participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.SettlementID = settlementID

		_, err := tx.Exec(ctx,
			`INSERT INTO participants (id, settlement_id, name, user_id) VALUES ($1, $2, $3, $4)`,
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
