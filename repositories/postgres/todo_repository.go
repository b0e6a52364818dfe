package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/todo-app/models"
	"github.com/upb/todo-app/repositories"
	"go.uber.org/zap"
)

const todoColumns = `todo_id, user_id, created_at, name, due_date, done, attachment_url`

// TodoRepository implements repositories.TodoRepository
type TodoRepository struct {
	db     *DB
	tx     *sql.Tx
	logger *zap.Logger
}

// NewTodoRepository creates a new to-do repository
func NewTodoRepository(db *DB, logger *zap.Logger) repositories.TodoRepository {
	return &TodoRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID retrieves every item owned by userID, newest first
func (r *TodoRepository) GetByUserID(ctx context.Context, userID string) ([]*models.TodoItem, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.executor(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	items := make([]*models.TodoItem, 0)
	for rows.Next() {
		item := &models.TodoItem{}
		if err := scanTodo(rows, item); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todo rows: %w", err)
	}

	return items, nil
}

// GetByID retrieves an item by todo ID. A missing item yields nil, nil.
func (r *TodoRepository) GetByID(ctx context.Context, todoID string) (*models.TodoItem, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM todos
		WHERE todo_id = $1
	`

	item := &models.TodoItem{}
	err := scanTodo(r.executor(ctx).QueryRowContext(ctx, query, todoID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	return item, nil
}

// Create inserts a new item
func (r *TodoRepository) Create(ctx context.Context, item *models.TodoItem) error {
	query := `
		INSERT INTO todos (` + todoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		item.TodoID,
		item.UserID,
		item.CreatedAt,
		item.Name,
		item.DueDate,
		item.Done,
		item.AttachmentURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}

	r.logger.Debug("todo created", zap.String("todo_id", item.TodoID))
	return nil
}

// Update replaces name, due date and done flag
func (r *TodoRepository) Update(ctx context.Context, todoID string, update models.UpdateTodoRequest) error {
	query := `
		UPDATE todos
		SET name = $2,
		    due_date = $3,
		    done = $4
		WHERE todo_id = $1
	`

	result, err := r.executor(ctx).ExecContext(ctx, query, todoID, update.Name, update.DueDate, update.Done)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	if err := requireRow(result, todoID); err != nil {
		return err
	}

	r.logger.Debug("todo updated", zap.String("todo_id", todoID))
	return nil
}

// UpdateAttachmentURL sets the attachment URL of an item
func (r *TodoRepository) UpdateAttachmentURL(ctx context.Context, todoID, attachmentURL string) error {
	query := `UPDATE todos SET attachment_url = $2 WHERE todo_id = $1`

	result, err := r.executor(ctx).ExecContext(ctx, query, todoID, attachmentURL)
	if err != nil {
		return fmt.Errorf("failed to update todo attachment: %w", err)
	}
	if err := requireRow(result, todoID); err != nil {
		return err
	}

	r.logger.Debug("todo attachment updated", zap.String("todo_id", todoID))
	return nil
}

// Delete removes an item
func (r *TodoRepository) Delete(ctx context.Context, todoID string) error {
	query := `DELETE FROM todos WHERE todo_id = $1`

	result, err := r.executor(ctx).ExecContext(ctx, query, todoID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if err := requireRow(result, todoID); err != nil {
		return err
	}

	r.logger.Debug("todo deleted", zap.String("todo_id", todoID))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *TodoRepository) WithTx(tx repositories.Transaction) repositories.TodoRepository {
	return &TodoRepository{
		db:     r.db,
		tx:     sqlTxOf(tx),
		logger: r.logger,
	}
}

func (r *TodoRepository) executor(ctx context.Context) Queryer {
	return queryer(ctx, r.db, r.tx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTodo(row rowScanner, item *models.TodoItem) error {
	return row.Scan(
		&item.TodoID,
		&item.UserID,
		&item.CreatedAt,
		&item.Name,
		&item.DueDate,
		&item.Done,
		&item.AttachmentURL,
	)
}

func requireRow(result sql.Result, todoID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("todo %s: %w", todoID, repositories.ErrNotFound)
	}
	return nil
}
