// service содержит бизнес-логику catalog-service: выдачу страниц списков
// с нормализацией параметров, повторами к основному хранилищу,
// переходом на mock-данные, кэшированием Total и оптимизацией изображений.
package service

import (
	"errors"

	"github.com/pribylovaa/go-movie-catalog/internal/cache"
	"github.com/pribylovaa/go-movie-catalog/internal/config"
	"github.com/pribylovaa/go-movie-catalog/internal/image"
	"github.com/pribylovaa/go-movie-catalog/internal/storage"
)

var (
	// ErrNotFound - сущность отсутствует.
	// Транспорт: 404.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument - некорректные входные аргументы (список, сортировка, период).
	// Транспорт: 400.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Recorder получает события сервиса для метрик.
type Recorder interface {
	// FallbackUsed - ответ отдан из запасного хранилища.
	FallbackUsed(op string)
	// CacheLookup - результат обращения к кэшу Total.
	CacheLookup(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) FallbackUsed(string) {}
func (nopRecorder) CacheLookup(bool)    {}

// Service - описывает бизнес-логику catalog-service.
type Service struct {
	storage  storage.Storage
	fallback storage.ContentStorage
	cache    cache.TotalCache
	images   *image.Optimizer
	recorder Recorder
	cfg      config.Config
}

// Option настраивает необязательные зависимости Service.
type Option func(*Service)

// WithFallback задаёт запасное хранилище (обычно mock-набор).
func WithFallback(st storage.ContentStorage) Option {
	return func(s *Service) { s.fallback = st }
}

// WithCache включает кэш Total.
func WithCache(c cache.TotalCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithImages включает переписывание URL изображений.
func WithImages(o *image.Optimizer) Option {
	return func(s *Service) { s.images = o }
}

// WithRecorder подключает сбор метрик.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New создает новый экземпляр Service.
func New(storage storage.Storage, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		cfg:      cfg,
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if cfg.Fallback.Disabled {
		s.fallback = nil
	}
	if cfg.Images.Disabled {
		s.images = nil
	}

	return s
}
