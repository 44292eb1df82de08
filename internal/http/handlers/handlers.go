package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/service"
)

// Catalog - операции сервисного слоя, нужные хендлерам (реализуется *service.Service).
type Catalog interface {
	ListContent(ctx context.Context, opts models.ListOptions) (*models.Page, error)
	ContentByID(ctx context.Context, id string) (*models.Item, error)
}

// Handlers агрегирует зависимости.
type Handlers struct {
	Catalog Catalog
}

func New(c Catalog) *Handlers {
	return &Handlers{Catalog: c}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// errInvalidArgument - локальная ошибка парсинга -> service.ErrInvalidArgument (400).
func errInvalidArgument(err error) error {
	return fmt.Errorf("%w: %v", service.ErrInvalidArgument, err)
}
