// Package todos implements per-user to-do management with ownership checks
// and attachment handling.
package todos

import (
	"context"
	"errors"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/upb/todo-app/internal/observability"
	"github.com/upb/todo-app/models"
	"github.com/upb/todo-app/repositories"
	"github.com/upb/todo-app/services"
	"github.com/upb/todo-app/storage"
	"github.com/upb/todo-app/utils"
	"go.uber.org/zap"
)

// TodoService handles to-do operations for authenticated users
type TodoService struct {
	todos   repositories.TodoRepository
	txMgr   repositories.TransactionManager
	storage storage.AttachmentStorage
	logger  *zap.Logger
	newID   func() string
}

// NewTodoService creates a new TodoService instance
func NewTodoService(todos repositories.TodoRepository, txMgr repositories.TransactionManager, attachments storage.AttachmentStorage, logger *zap.Logger) *TodoService {
	return &TodoService{
		todos:   todos,
		txMgr:   txMgr,
		storage: attachments,
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
	}
}

// ListTodos returns every item owned by userID, newest first
func (s *TodoService) ListTodos(ctx context.Context, userID string) (items []*models.TodoItem, err error) {
	defer func() { record("list", err) }()

	if userID == "" {
		return nil, services.ErrUnauthorized
	}

	items, err = s.todos.GetByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list todos", err)
	}

	s.logger.Debug("todos listed",
		zap.String("user_id", userID),
		zap.Int("count", len(items)))
	return items, nil
}

// CreateTodo validates req and stores a new item owned by userID
func (s *TodoService) CreateTodo(ctx context.Context, userID string, req models.CreateTodoRequest) (item *models.TodoItem, err error) {
	defer func() { record("create", err) }()

	if userID == "" {
		return nil, services.ErrUnauthorized
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	item = models.NewTodoItem(userID, req)
	if err := s.todos.Create(ctx, item); err != nil {
		return nil, services.WrapInternal("failed to create todo", err)
	}

	s.logger.Info("todo created",
		zap.String("user_id", userID),
		zap.String("todo_id", item.TodoID))
	return item, nil
}

// UpdateTodo replaces name, due date and done flag of an item owned by userID
func (s *TodoService) UpdateTodo(ctx context.Context, userID, todoID string, req models.UpdateTodoRequest) (err error) {
	defer func() { record("update", err) }()

	if err := validate(req); err != nil {
		return err
	}

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		repo := s.todos.WithTx(tx)
		if _, err := s.ownedTodo(ctx, repo, userID, todoID); err != nil {
			return err
		}
		if err := repo.Update(ctx, todoID, req); err != nil {
			return translateWriteError("failed to update todo", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("todo updated",
		zap.String("user_id", userID),
		zap.String("todo_id", todoID))
	return nil
}

// DeleteTodo removes an item owned by userID. Removing its attachment object
// afterwards is best effort.
func (s *TodoService) DeleteTodo(ctx context.Context, userID, todoID string) (err error) {
	defer func() { record("delete", err) }()

	item, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.TodoItem, error) {
		repo := s.todos.WithTx(tx)
		item, err := s.ownedTodo(ctx, repo, userID, todoID)
		if err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, todoID); err != nil {
			return nil, translateWriteError("failed to delete todo", err)
		}
		return item, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("todo deleted",
		zap.String("user_id", userID),
		zap.String("todo_id", todoID))

	if item.AttachmentURL != nil {
		s.deleteAttachment(ctx, todoID, *item.AttachmentURL)
	}
	return nil
}

// AttachFile assigns a fresh attachment to an item owned by userID and
// returns the presigned URL the client uploads the file to. A previous
// attachment object is removed best effort.
func (s *TodoService) AttachFile(ctx context.Context, userID, todoID string) (uploadURL string, err error) {
	defer func() { record("attach", err) }()

	attachmentID := s.newID()
	var previousURL *string

	uploadURL, err = services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (string, error) {
		repo := s.todos.WithTx(tx)
		item, err := s.ownedTodo(ctx, repo, userID, todoID)
		if err != nil {
			return "", err
		}
		previousURL = item.AttachmentURL

		uploadURL, err := s.storage.GetUploadURL(ctx, attachmentID)
		if err != nil {
			return "", services.WrapExternal("failed to issue upload URL", err)
		}

		if err := repo.UpdateAttachmentURL(ctx, todoID, s.storage.GetDownloadURL(attachmentID)); err != nil {
			return "", translateWriteError("failed to update todo attachment", err)
		}
		return uploadURL, nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("attachment URL issued",
		zap.String("user_id", userID),
		zap.String("todo_id", todoID),
		zap.String("attachment_id", attachmentID))

	if previousURL != nil {
		s.deleteAttachment(ctx, todoID, *previousURL)
	}
	return uploadURL, nil
}

// ownedTodo loads todoID and checks that userID owns it
func (s *TodoService) ownedTodo(ctx context.Context, repo repositories.TodoRepository, userID, todoID string) (*models.TodoItem, error) {
	if userID == "" {
		return nil, services.ErrUnauthorized
	}

	item, err := repo.GetByID(ctx, todoID)
	if err != nil {
		return nil, services.WrapInternal("failed to get todo", err)
	}
	if item == nil {
		return nil, services.ErrTodoNotFound.WithDetail("todo_id", todoID)
	}
	if !item.IsOwnedBy(userID) {
		s.logger.Warn("todo ownership mismatch",
			zap.String("user_id", userID),
			zap.String("todo_id", todoID))
		return nil, services.ErrTodoNotAuthorized
	}
	return item, nil
}

func (s *TodoService) deleteAttachment(ctx context.Context, todoID, attachmentURL string) {
	attachmentID := attachmentIDFromURL(attachmentURL)
	if attachmentID == "" {
		s.logger.Warn("cannot derive attachment id",
			zap.String("todo_id", todoID),
			zap.String("attachment_url", attachmentURL))
		return
	}

	if err := s.storage.DeleteAttachment(ctx, attachmentID); err != nil {
		s.logger.Warn("failed to delete attachment",
			zap.String("todo_id", todoID),
			zap.String("attachment_id", attachmentID),
			zap.Error(err))
	}
}

// attachmentIDFromURL returns the object key, the last path segment of the download URL
func attachmentIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	id := path.Base(u.Path)
	if id == "." || id == "/" {
		return ""
	}
	return id
}

func validate(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		domainErr := services.ErrInvalidInput.Wrap(err)
		for field, msg := range utils.GetValidationFields(err) {
			domainErr.Details[field] = msg
		}
		return domainErr
	}
	return nil
}

func translateWriteError(message string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrTodoNotFound
	}
	return services.WrapInternal(message, err)
}

func record(operation string, err error) {
	status := "ok"
	if err != nil {
		status = string(services.GetErrorType(err))
		if status == "" {
			status = "error"
		}
	}
	observability.TodoOperationsTotal.WithLabelValues(operation, status).Inc()
}
