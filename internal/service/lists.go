package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/cache"
	"github.com/pribylovaa/go-movie-catalog/internal/image"
	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/storage"
	"github.com/pribylovaa/go-movie-catalog/pkg/log"

	"github.com/cenkalti/backoff/v4"
)

// Источники ответа (для логов).
const (
	sourcePrimary  = "primary"
	sourceFallback = "fallback"
)

// ListContent возвращает страницу списка с нормализацией параметров по конфигу.
//
// Правила нормализации:
// - page < 1 -> 1;
// - pageSize <= 0 -> cfg.LimitsConfig.Default;
// - pageSize > max -> cfg.LimitsConfig.Max;
// - пустые поля фильтра -> значения по умолчанию для списка.
//
// Основное хранилище опрашивается с повторами (экспоненциальная задержка);
// если все попытки неудачны, ответ берётся из запасного хранилища.
// Total кэшируется: при попадании в кэш COUNT не выполняется.
//
// Для ListCollection сначала загружается сама подборка (Page.Collection);
// если её нет или это не подборка - ErrNotFound.
//
// Ошибки:
// - ErrInvalidArgument - неизвестный список/сортировка/период, CollectionID
// не для того списка (в т.ч. storage.ErrInvalidFilter);
// - ErrNotFound - подборка не найдена;
// - отмена/дедлайн ctx - прокидываются без перехода на запасное хранилище;
// - прочие ошибки стораджа - обёрнутые и прокинуты наверх.
func (s *Service) ListContent(ctx context.Context, opts models.ListOptions) (*models.Page, error) {
	const op = "service.lists.ListContent"

	lg := log.From(ctx)
	lg.Info("list_content_request",
		slog.String("op", op),
		slog.String("list", string(opts.List)),
		slog.Int("page", opts.Page),
		slog.Int("page_size", opts.PageSize),
		slog.String("sort", string(opts.Filter.SortBy)),
		slog.String("period", string(opts.Filter.Period)),
		slog.String("category", opts.Filter.Category),
		slog.Bool("vip_only", opts.Filter.VIPOnly),
		slog.String("collection_id", opts.Filter.CollectionID),
	)

	opts, err := s.normalize(opts)
	if err != nil {
		lg.Warn("list_content_invalid_argument",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var collection *models.Item
	if opts.List == models.ListCollection {
		if collection, err = s.collectionInfo(ctx, opts.Filter.CollectionID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	page, source, err := s.listPage(ctx, opts)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFilter) {
			lg.Warn("list_content_invalid_filter",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)

			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
		}

		lg.Error("list_content_storage_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.optimizeImages(page.Items)
	page.Collection = collection

	lg.Info("list_content_ok",
		slog.String("op", op),
		slog.String("source", source),
		slog.Int("items", len(page.Items)),
		slog.Int("total", page.Total),
		slog.Int("page", page.Page),
	)

	return page, nil
}

// ContentByID возвращает элемент по идентификатору.
//
// Ошибки:
// - ErrNotFound - если запись отсутствует (маппинг storage.ErrNotFound);
// - прочие ошибки стораджа - обёрнутые и прокинуты наверх
// (если запасное хранилище тоже не ответило).
func (s *Service) ContentByID(ctx context.Context, id string) (*models.Item, error) {
	const op = "service.lists.ContentByID"

	lg := log.From(ctx)
	lg.Info("content_by_id_request",
		slog.String("op", op),
		slog.String("id", id),
	)

	var item *models.Item
	err := s.retry(ctx, op, func(ctx context.Context) error {
		var err error
		item, err = s.storage.ContentByID(ctx, id)
		return err
	})

	if err != nil && !errors.Is(err, storage.ErrNotFound) && ctx.Err() == nil && s.fallback != nil {
		lg.Warn("content_by_id_fallback",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("err", err.Error()),
		)

		var ferr error
		item, ferr = s.fallback.ContentByID(ctx, id)
		if ferr == nil {
			s.recorder.FallbackUsed(op)
		}
		err = ferr
	}

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("content_by_id_not_found",
				slog.String("op", op),
				slog.String("id", id),
			)

			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		lg.Error("content_by_id_storage_error",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("err", err.Error()),
		)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.images != nil {
		item.ImageURL = s.images.Optimize(item.ImageURL, image.PresetFor(item.Kind))
	}

	lg.Info("content_by_id_ok",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("kind", string(item.Kind)),
	)

	return item, nil
}

// collectionInfo возвращает подборку id; элемент другого вида - ErrNotFound.
func (s *Service) collectionInfo(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.ContentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if item.Kind != models.KindCollection {
		log.From(ctx).Warn("collection_kind_mismatch",
			slog.String("id", id),
			slog.String("kind", string(item.Kind)),
		)

		return nil, fmt.Errorf("%w: %s is a %s", ErrNotFound, id, item.Kind)
	}

	return item, nil
}

// normalize проверяет перечисления и приводит пагинацию к лимитам конфига.
func (s *Service) normalize(opts models.ListOptions) (models.ListOptions, error) {
	list, err := models.ParseList(string(opts.List))
	if err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	opts.List = list

	if opts.Filter.SortBy, err = models.ParseSortBy(string(opts.Filter.SortBy)); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if opts.Filter.Period, err = models.ParsePeriod(string(opts.Filter.Period)); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	opts.Filter = opts.Filter.WithDefaults(list)
	if err := opts.Filter.CheckScope(list); err != nil {
		return opts, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = s.cfg.LimitsConfig.Default
	}
	if s.cfg.LimitsConfig.Max > 0 && opts.PageSize > s.cfg.LimitsConfig.Max {
		opts.PageSize = s.cfg.LimitsConfig.Max
	}

	return opts, nil
}

// listPage получает страницу из основного хранилища (с учётом кэша Total),
// а при его недоступности - из запасного.
func (s *Service) listPage(ctx context.Context, opts models.ListOptions) (*models.Page, string, error) {
	const op = "service.lists.listPage"

	key := cache.Key(opts.List, opts.Filter)

	var page *models.Page
	var err error

	if total, ok := s.cachedTotal(ctx, key); ok {
		var items []models.Item
		err = s.retry(ctx, op, func(ctx context.Context) error {
			var err error
			items, err = s.storage.ListItems(ctx, opts)
			return err
		})
		if err == nil {
			page = &models.Page{Items: items, Total: total}
		}
	} else {
		err = s.retry(ctx, op, func(ctx context.Context) error {
			var err error
			page, err = s.storage.ListContent(ctx, opts)
			return err
		})
		if err == nil {
			s.storeTotal(ctx, key, page.Total)
		}
	}

	if err == nil {
		page.Page = opts.Page
		page.PageSize = opts.PageSize
		return page, sourcePrimary, nil
	}

	// Ошибки фильтра и отмену вызывающего запасное хранилище не исправит.
	if errors.Is(err, storage.ErrInvalidFilter) || ctx.Err() != nil || s.fallback == nil {
		return nil, "", err
	}

	log.From(ctx).Warn("list_content_fallback",
		slog.String("op", op),
		slog.String("list", string(opts.List)),
		slog.String("err", err.Error()),
	)

	page, ferr := s.fallback.ListContent(ctx, opts)
	if ferr != nil {
		return nil, "", errors.Join(err, fmt.Errorf("fallback: %w", ferr))
	}

	s.recorder.FallbackUsed("service.lists.ListContent")
	page.Page = opts.Page
	page.PageSize = opts.PageSize

	return page, sourceFallback, nil
}

// cachedTotal читает Total из кэша. Ошибки кэша логируются и трактуются как промах.
func (s *Service) cachedTotal(ctx context.Context, key string) (int, bool) {
	if s.cache == nil {
		return 0, false
	}

	total, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.From(ctx).Warn("total_cache_get_error",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
		ok = false
	}

	s.recorder.CacheLookup(ok)

	return total, ok
}

func (s *Service) storeTotal(ctx context.Context, key string, total int) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, total, s.cacheTTL()); err != nil {
		log.From(ctx).Warn("total_cache_set_error",
			slog.String("key", key),
			slog.String("err", err.Error()),
		)
	}
}

func (s *Service) cacheTTL() time.Duration {
	if s.cfg.Redis.TTL > 0 {
		return s.cfg.Redis.TTL
	}

	return time.Minute
}

func (s *Service) optimizeImages(items []models.Item) {
	if s.images == nil {
		return
	}

	for i := range items {
		items[i].ImageURL = s.images.Optimize(items[i].ImageURL, image.PresetFor(items[i].Kind))
	}
}

// retry выполняет fn с повторами по cfg.Fallback и таймаутом на каждую попытку
// (cfg.Timeouts.Storage). ErrNotFound, ErrInvalidFilter, ErrNotMigrated и отмена ctx не повторяются.
func (s *Service) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	if s.cfg.Fallback.InitialBackoff > 0 {
		b.InitialInterval = s.cfg.Fallback.InitialBackoff
	}
	if s.cfg.Fallback.MaxBackoff > 0 {
		b.MaxInterval = s.cfg.Fallback.MaxBackoff
	}
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.Fallback.Retries), ctx)

	attempt := 0
	operation := func() error {
		attempt++

		actx, cancel := ctx, context.CancelFunc(func() {})
		if s.cfg.Timeouts.Storage > 0 {
			actx, cancel = context.WithTimeout(ctx, s.cfg.Timeouts.Storage)
		}
		defer cancel()

		err := fn(actx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidFilter),
			errors.Is(err, storage.ErrNotMigrated), ctx.Err() != nil:
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	notify := func(err error, next time.Duration) {
		log.From(ctx).Warn("storage_retry",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("next_backoff", next),
			slog.String("err", err.Error()),
		)
	}

	return backoff.RetryNotify(operation, policy, notify)
}
