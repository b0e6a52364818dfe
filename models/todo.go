package models

import (
	"time"

	"github.com/google/uuid"
)

// TodoItem is a to-do entry owned by a single user
type TodoItem struct {
	UserID        string    `json:"userId" db:"user_id"`
	TodoID        string    `json:"todoId" db:"todo_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	Name          string    `json:"name" db:"name"`
	DueDate       string    `json:"dueDate" db:"due_date"`
	Done          bool      `json:"done" db:"done"`
	AttachmentURL *string   `json:"attachmentUrl,omitempty" db:"attachment_url"`
}

// IsOwnedBy reports whether userID owns the item
func (t *TodoItem) IsOwnedBy(userID string) bool {
	return t.UserID == userID
}

// CreateTodoRequest is the payload for creating a to-do
type CreateTodoRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	DueDate string `json:"dueDate" validate:"required,max=64"`
}

// UpdateTodoRequest is the payload for updating a to-do
type UpdateTodoRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255"`
	DueDate string `json:"dueDate" validate:"required,max=64"`
	Done    bool   `json:"done"`
}

// AttachmentUploadResponse carries the presigned URL a client uploads to
type AttachmentUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// NewTodoItem creates a new, not yet done, TodoItem for userID
func NewTodoItem(userID string, req CreateTodoRequest) *TodoItem {
	return &TodoItem{
		UserID:    userID,
		TodoID:    uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Name:      req.Name,
		DueDate:   req.DueDate,
		Done:      false,
	}
}
