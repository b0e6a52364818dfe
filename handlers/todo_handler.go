package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/todo-app/middleware"
	"github.com/upb/todo-app/models"
	"github.com/upb/todo-app/utils"
	"go.uber.org/zap"
)

// TodoIDParam is the chi URL parameter carrying the item id
const TodoIDParam = "todoId"

var errInvalidJSON = errors.New("invalid JSON body")

// TodoService is the business logic behind the to-do routes
type TodoService interface {
	ListTodos(ctx context.Context, userID string) ([]*models.TodoItem, error)
	CreateTodo(ctx context.Context, userID string, req models.CreateTodoRequest) (*models.TodoItem, error)
	UpdateTodo(ctx context.Context, userID, todoID string, req models.UpdateTodoRequest) error
	DeleteTodo(ctx context.Context, userID, todoID string) error
	AttachFile(ctx context.Context, userID, todoID string) (string, error)
}

// TodoListResponse wraps the items of the caller
type TodoListResponse struct {
	Items []*models.TodoItem `json:"items"`
}

// TodoItemResponse wraps a single item
type TodoItemResponse struct {
	Item *models.TodoItem `json:"item"`
}

// TodoHandler serves /api/v1/todos. Routes must sit behind RequireAuth.
type TodoHandler struct {
	service TodoService
	logger  *zap.Logger
}

// NewTodoHandler creates a new TodoHandler
func NewTodoHandler(service TodoService, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/todos
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTodos(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		HandleServiceError(w, err, h.requestLogger(r))
		return
	}

	h.write(w, http.StatusOK, TodoListResponse{Items: items})
}

// HandleCreate handles POST /api/v1/todos
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		HandleValidationError(w, errInvalidJSON, h.logger)
		return
	}

	item, err := h.service.CreateTodo(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	if err != nil {
		HandleServiceError(w, err, h.requestLogger(r))
		return
	}

	h.write(w, http.StatusCreated, TodoItemResponse{Item: item})
}

// HandleUpdate handles PATCH /api/v1/todos/{todoId}
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		HandleValidationError(w, errInvalidJSON, h.logger)
		return
	}

	err := h.service.UpdateTodo(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, TodoIDParam), req)
	if err != nil {
		HandleServiceError(w, err, h.requestLogger(r))
		return
	}

	utils.WriteNoContent(w)
}

// HandleDelete handles DELETE /api/v1/todos/{todoId}
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteTodo(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, TodoIDParam))
	if err != nil {
		HandleServiceError(w, err, h.requestLogger(r))
		return
	}

	utils.WriteNoContent(w)
}

// HandleAttachment handles POST /api/v1/todos/{todoId}/attachment
func (h *TodoHandler) HandleAttachment(w http.ResponseWriter, r *http.Request) {
	uploadURL, err := h.service.AttachFile(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, TodoIDParam))
	if err != nil {
		HandleServiceError(w, err, h.requestLogger(r))
		return
	}

	h.write(w, http.StatusCreated, models.AttachmentUploadResponse{UploadURL: uploadURL})
}

func (h *TodoHandler) write(w http.ResponseWriter, status int, data interface{}) {
	if err := utils.WriteJSON(w, status, utils.SuccessResponse{Data: data}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *TodoHandler) requestLogger(r *http.Request) *zap.Logger {
	return h.logger.With(
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("user_id", middleware.GetUserIDFromContext(r.Context())))
}
