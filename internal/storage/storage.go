// storage определяет контракты доступа к хранилищу каталога.
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
)

var (
	// ErrNotFound - сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrInvalidFilter - фильтр не поддерживается хранилищем (неизвестный список, сортировка, период).
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrNotMigrated - схема хранилища не создана (миграции не применены).
	ErrNotMigrated = errors.New("storage schema is not migrated")
)

// ContentStorage описывает операции над элементами каталога.
type ContentStorage interface {
	// ListContent возвращает страницу списка opts.List с учётом фильтра и
	// общее число элементов под фильтр. Страница за пределами выборки - пустая, не ошибка.
	// Ожидается, что opts уже нормализованы (Page >= 1, PageSize >= 1).
	ListContent(ctx context.Context, opts models.ListOptions) (*models.Page, error)
	// ListItems возвращает только элементы страницы, без подсчёта Total.
	// Используется, когда Total уже известен (например, из кэша).
	ListItems(ctx context.Context, opts models.ListOptions) ([]models.Item, error)
	// CountContent возвращает число элементов списка под фильтр.
	CountContent(ctx context.Context, list models.List, filter models.Filter) (int, error)
	// ContentByID возвращает элемент по строковому идентификатору.
	// Если запись не найдена или id некорректен - ErrNotFound.
	ContentByID(ctx context.Context, id string) (*models.Item, error)
}

// Storage задаёт контракт доступа к хранилищу для catalog-service.
type Storage interface {
	ContentStorage
	Close()
}
