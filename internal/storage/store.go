// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/settlewise/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSettlementClosed is returned when a write targets a settlement that is no longer open.
	// CommitSnapshot returns it when another close won the race.
	ErrSettlementClosed = errors.New("settlement already closed")

	// ErrSettlementOpen is returned when a snapshot is requested for a settlement that is still open.
	ErrSettlementOpen = errors.New("settlement is still open")

	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Store defines the interface for settlement storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	SettlementStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// SettlementStore covers settlements, their participants and expenses, and snapshots.
type SettlementStore interface {
	// CreateSettlement persists a new open settlement with its initial participants.
	// ID, CreatedAt and participant IDs are populated by the store when empty.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// GetSettlement retrieves a settlement and its participants ordered by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByUser returns settlements created by or shared with the user, newest first.
	ListSettlementsByUser(ctx context.Context, userID string) ([]*models.Settlement, error)

	// AddParticipants adds participants to an open settlement.
	AddParticipants(ctx context.Context, settlementID string, participants []models.Participant) ([]models.Participant, error)

	// CreateExpense records an expense on an open settlement.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ListExpenses returns all expenses of a settlement, oldest first.
	ListExpenses(ctx context.Context, settlementID string) ([]models.Expense, error)

	// DeleteExpense removes an expense from an open settlement.
	DeleteExpense(ctx context.Context, settlementID, expenseID string) error

	// FetchExpenseShares returns the payer, amount and sharing participants of every expense
	// in one query.
	FetchExpenseShares(ctx context.Context, settlementID string) ([]models.ExpenseShare, error)

	// CommitSnapshot atomically moves the settlement from open to closed and stores the snapshot.
	// It returns ErrSettlementClosed if the settlement is not open anymore and ErrNotFound if it
	// does not exist. Nothing is written in either case.
	CommitSnapshot(ctx context.Context, snapshot *models.Snapshot) error

	// GetSnapshot reads the persisted snapshot of a closed settlement.
	GetSnapshot(ctx context.Context, settlementID string) (*models.Snapshot, error)
}

// UserStore covers registered user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
