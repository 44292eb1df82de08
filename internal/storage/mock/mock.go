// mock - детерминированное in-memory хранилище каталога.
//
// Используется как запасной источник, когда основное хранилище недоступно,
// и как бэкенд для локальной разработки. Пагинация - клиентская: выборка
// под фильтр формируется целиком, страница вырезается через pager.SliceWindow.
package mock

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/pager"
	"github.com/pribylovaa/go-movie-catalog/internal/storage"

	"github.com/google/uuid"
)

// Размеры наборов по умолчанию.
const (
	DefaultMixedPerKind = 100
	DefaultPhotos       = 240
	DefaultCollections  = 120
)

// Options - параметры генерации набора данных.
type Options struct {
	// Seed - зерно ГПСЧ; одинаковые Seed и Now дают одинаковые данные.
	Seed uint64
	// Now - «текущее» время набора; нулевое значение -> time.Now().
	Now time.Time
	// MixedPerKind - число элементов каждого вида в смешанных списках (hot, latest).
	MixedPerKind int
	// Photos, Collections - размеры отдельных списков.
	Photos      int
	Collections int
	// Latency - искусственная задержка ответа (учитывает отмену ctx).
	Latency time.Duration
}

// Storage - in-memory реализация storage.Storage.
// После создания данные не меняются, поэтому методы безопасны для конкурентного использования.
type Storage struct {
	now     time.Time
	latency time.Duration
	lists   map[models.List][]models.Item
	byID    map[uuid.UUID]models.Item
	// members - фильмы подборок в порядке добавления.
	members map[uuid.UUID][]models.Item
}

var _ storage.Storage = (*Storage)(nil)

// New генерирует набор данных.
func New(opts Options) *Storage {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	mixed := cmp.Or(opts.MixedPerKind, DefaultMixedPerKind)
	photosN := cmp.Or(opts.Photos, DefaultPhotos)
	collectionsN := cmp.Or(opts.Collections, DefaultCollections)

	g := newGenerator(opts.Seed, now)
	movies := g.movies(mixed)
	photos := g.photos(max(mixed, photosN))
	collections := g.collections(max(mixed, collectionsN))
	members := g.members(collections, movies)

	all := make([]models.Item, 0, len(movies)+mixed*2)
	all = append(all, movies...)
	all = append(all, photos[:mixed]...)
	all = append(all, collections[:mixed]...)

	s := &Storage{
		now:     now,
		latency: opts.Latency,
		lists: map[models.List][]models.Item{
			models.ListHot:         all,
			models.ListLatest:      all,
			models.ListPhotos:      photos[:photosN],
			models.ListCollections: collections[:collectionsN],
		},
		byID:    make(map[uuid.UUID]models.Item, len(movies)+len(photos)+len(collections)),
		members: members,
	}

	for _, set := range [][]models.Item{movies, photos, collections} {
		for _, it := range set {
			s.byID[it.ID] = it
		}
	}

	return s
}

// Now - «текущее» время набора данных (точка отсчёта периодов).
func (s *Storage) Now() time.Time { return s.now }

// ListContent возвращает страницу списка. Неизвестный список, сортировка
// или период - storage.ErrInvalidFilter.
func (s *Storage) ListContent(ctx context.Context, opts models.ListOptions) (*models.Page, error) {
	const op = "storage.mock.ListContent"

	items, err := s.selectItems(ctx, opts.List, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page := max(opts.Page, 1)
	size := opts.PageSize
	if size < 1 {
		size = pager.DefaultPageSize
	}

	return &models.Page{
		Items:    pager.SliceWindow(items, page, size),
		Total:    len(items),
		Page:     page,
		PageSize: size,
	}, nil
}

// ListItems возвращает только элементы страницы.
func (s *Storage) ListItems(ctx context.Context, opts models.ListOptions) ([]models.Item, error) {
	const op = "storage.mock.ListItems"

	page, err := s.ListContent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page.Items, nil
}

// All возвращает всю выборку списка под фильтр, без пагинации.
func (s *Storage) All(ctx context.Context, list models.List, filter models.Filter) ([]models.Item, error) {
	const op = "storage.mock.All"

	items, err := s.selectItems(ctx, list, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// Dump возвращает все элементы набора (каждый один раз) в порядке id.
// Используется для первичного наполнения основного хранилища.
func (s *Storage) Dump() []models.Item {
	out := make([]models.Item, 0, len(s.byID))
	for _, it := range s.byID {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b models.Item) int { return bytes.Compare(a.ID[:], b.ID[:]) })

	return out
}

// Memberships возвращает состав подборок: id подборки -> id фильмов в порядке добавления.
// Используется вместе с Dump для наполнения основного хранилища.
func (s *Storage) Memberships() map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID, len(s.members))
	for id, movies := range s.members {
		ids := make([]uuid.UUID, 0, len(movies))
		for _, m := range movies {
			ids = append(ids, m.ID)
		}
		out[id] = ids
	}

	return out
}

// CountContent возвращает число элементов под фильтр.
func (s *Storage) CountContent(ctx context.Context, list models.List, filter models.Filter) (int, error) {
	const op = "storage.mock.CountContent"

	items, err := s.selectItems(ctx, list, filter)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return len(items), nil
}

// ContentByID ищет элемент во всех наборах.
// Некорректный формат id трактуется как «нет такой записи».
func (s *Storage) ContentByID(ctx context.Context, id string) (*models.Item, error) {
	const op = "storage.mock.ContentByID"

	if err := s.delay(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	it, ok := s.byID[parsed]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &it, nil
}

// Close ничего не освобождает.
func (s *Storage) Close() {}

// selectItems возвращает всю выборку под фильтр в порядке сортировки.
func (s *Storage) selectItems(ctx context.Context, list models.List, filter models.Filter) ([]models.Item, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}

	if err := filter.CheckScope(list); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidFilter, err)
	}

	var src []models.Item
	switch list {
	case models.ListCollection:
		// Неизвестная подборка - пустая выборка; её существование проверяет сервис.
		if id, err := uuid.Parse(strings.TrimSpace(filter.CollectionID)); err == nil {
			src = s.members[id]
		}
	default:
		var ok bool
		if src, ok = s.lists[list]; !ok {
			return nil, fmt.Errorf("%w: unknown list %q", storage.ErrInvalidFilter, list)
		}
	}

	filter = filter.WithDefaults(list)

	less, err := comparator(filter.SortBy)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParsePeriod(string(filter.Period)); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidFilter, err)
	}

	var since time.Time
	if d := filter.Period.Duration(); d > 0 {
		since = s.now.Add(-d)
	}

	out := make([]models.Item, 0, len(src))
	for _, it := range src {
		if !since.IsZero() && it.UpdatedAt.Before(since) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(it.Category, filter.Category) {
			continue
		}
		if filter.VIPOnly && !it.IsVIP {
			continue
		}
		out = append(out, it)
	}

	slices.SortStableFunc(out, less)

	return out, nil
}

// comparator - порядок сортировки; равные ключи упорядочиваются по ID.
func comparator(sort models.SortBy) (func(a, b models.Item) int, error) {
	byID := func(a, b models.Item) int { return bytes.Compare(a.ID[:], b.ID[:]) }

	switch sort {
	case models.SortLatest:
		return func(a, b models.Item) int {
			return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), byID(a, b))
		}, nil
	case models.SortPopular:
		return func(a, b models.Item) int {
			return cmp.Or(cmp.Compare(b.HotScore(), a.HotScore()), byID(a, b))
		}, nil
	case models.SortRating:
		return func(a, b models.Item) int {
			return cmp.Or(cmp.Compare(b.Rating, a.Rating), byID(a, b))
		}, nil
	case models.SortTitle:
		return func(a, b models.Item) int {
			return cmp.Or(strings.Compare(a.Title, b.Title), byID(a, b))
		}, nil
	case models.SortTopRated:
		return func(a, b models.Item) int {
			return cmp.Or(cmp.Compare(b.Rating, a.Rating), cmp.Compare(b.Stats.Likes, a.Stats.Likes), byID(a, b))
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", storage.ErrInvalidFilter, sort)
	}
}

func (s *Storage) delay(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.latency <= 0 {
		return nil
	}

	t := time.NewTimer(s.latency)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
