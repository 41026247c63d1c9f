package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage"
)

// CreateExpense records an expense and its share rows on an open settlement.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOpen(ctx, tx, expense.SettlementID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO expenses (id, settlement_id, description, payer_id, amount_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		expense.ID, expense.SettlementID, expense.Description, expense.PayerID,
		expense.AmountCents, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	batch := &pgx.Batch{}
	for _, participantID := range shareParticipants(expense) {
		var exact *int64
		if len(expense.ExactShares) > 0 {
			v := expense.ExactShares[participantID]
			exact = &v
		}
		batch.Queue(
			`INSERT INTO expense_shares (expense_id, participant_id, exact_cents) VALUES ($1, $2, $3)`,
			expense.ID, participantID, exact,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert expense shares: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListExpenses returns every expense of a settlement with its share rows, oldest first.
// Expenses created within the same second keep insertion order.
func (s *Store) ListExpenses(ctx context.Context, settlementID string) ([]models.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, e.settlement_id, e.description, e.payer_id, e.amount_cents, e.created_at,
		        sh.participant_id, sh.exact_cents
		 FROM expenses e
		 LEFT JOIN expense_shares sh ON sh.expense_id = e.id
		 WHERE e.settlement_id = $1
		 ORDER BY e.created_at, e.seq, sh.participant_id`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var participantID *string
		var exact *int64
		if err := rows.Scan(&e.ID, &e.SettlementID, &e.Description, &e.PayerID, &e.AmountCents,
			&e.CreatedAt, &participantID, &exact); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if n := len(expenses); n == 0 || expenses[n-1].ID != e.ID {
			expenses = append(expenses, e)
		}
		current := &expenses[len(expenses)-1]
		if participantID == nil {
			continue
		}
		current.ParticipantIDs = append(current.ParticipantIDs, *participantID)
		if exact != nil {
			if current.ExactShares == nil {
				current.ExactShares = make(map[string]int64)
			}
			current.ExactShares[*participantID] = *exact
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// FetchExpenseShares returns the balance-relevant view of every expense in one query.
func (s *Store) FetchExpenseShares(ctx context.Context, settlementID string) ([]models.ExpenseShare, error) {
	expenses, err := s.ListExpenses(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	shares := make([]models.ExpenseShare, len(expenses))
	for i := range expenses {
		shares[i] = expenses[i].Share()
	}
	return shares, nil
}

// DeleteExpense removes an expense from an open settlement.
func (s *Store) DeleteExpense(ctx context.Context, settlementID, expenseID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOpen(ctx, tx, settlementID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND settlement_id = $2`, expenseID, settlementID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// shareParticipants is the sorted union of the listed participants and the exact share keys.
func shareParticipants(expense *models.Expense) []string {
	seen := make(map[string]bool, len(expense.ParticipantIDs)+len(expense.ExactShares))
	var ids []string
	for _, id := range expense.ParticipantIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range expense.ExactShares {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
