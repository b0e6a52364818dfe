package repositories

import (
	"context"
	"errors"

	"github.com/upb/todo-app/models"
)

// ErrNotFound is returned by writes that matched no row
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	Context() context.Context
}

// TodoRepository handles to-do item data operations
type TodoRepository interface {
	// GetByUserID retrieves every item owned by userID, newest first
	GetByUserID(ctx context.Context, userID string) ([]*models.TodoItem, error)

	// GetByID retrieves an item by its todo ID. It returns nil, nil when absent.
	GetByID(ctx context.Context, todoID string) (*models.TodoItem, error)

	Create(ctx context.Context, item *models.TodoItem) error

	// Update replaces name, due date and done flag
	Update(ctx context.Context, todoID string, update models.UpdateTodoRequest) error

	UpdateAttachmentURL(ctx context.Context, todoID, attachmentURL string) error

	Delete(ctx context.Context, todoID string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) TodoRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Todos TodoRepository
}
