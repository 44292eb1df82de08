package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectColumns = `id, kind, title, description, image_url, category, tags, is_vip, is_new, quality,
	rating, views, downloads, likes, favorites, details, updated_at`

// whereClause - общий фильтр выборки и подсчёта:
// $1 - kind ('' - любой), $2 - нижняя граница updated_at (NULL - без ограничения),
// $3 - категория ('' - любая), $4 - только VIP, $5 - подборка (NULL - без ограничения).
const whereClause = `
	WHERE ($1 = '' OR kind = $1)
	AND ($2::timestamptz IS NULL OR updated_at >= $2)
	AND ($3 = '' OR lower(category) = lower($3))
	AND (NOT $4 OR is_vip)
	AND ($5::uuid IS NULL OR id IN (SELECT movie_id FROM collection_movies WHERE collection_id = $5))`

// orderBy - белый список сортировок; равные ключи упорядочиваются по id.
var orderBy = map[models.SortBy]string{
	models.SortLatest:  "updated_at DESC, id",
	models.SortPopular: "(views + likes * 5 + favorites * 10) DESC, id",
	models.SortRating:  "rating DESC, id",
	// COLLATE "C" - побайтовый порядок, как у mock-хранилища.
	models.SortTitle:    `title COLLATE "C", id`,
	models.SortTopRated: "rating DESC, likes DESC, id",
}

// details - JSONB-представление полей, специфичных для вида контента.
type details struct {
	Movie      *movieDetails      `json:"movie,omitempty"`
	Photo      *photoDetails      `json:"photo,omitempty"`
	Collection *collectionDetails `json:"collection,omitempty"`
}

type movieDetails struct {
	Year            int      `json:"year"`
	DurationMinutes int      `json:"duration_minutes"`
	Genres          []string `json:"genres,omitempty"`
}

type photoDetails struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type collectionDetails struct {
	MovieCount int `json:"movie_count"`
}

// filterArgs переводит фильтр списка в аргументы whereClause.
func (s *Storage) filterArgs(list models.List, filter models.Filter, now time.Time) ([]any, models.Filter, error) {
	switch list {
	case models.ListHot, models.ListLatest, models.ListPhotos, models.ListCollections, models.ListCollection:
	default:
		return nil, filter, fmt.Errorf("%w: unknown list %q", storage.ErrInvalidFilter, list)
	}
	if err := filter.CheckScope(list); err != nil {
		return nil, filter, fmt.Errorf("%w: %v", storage.ErrInvalidFilter, err)
	}

	filter = filter.WithDefaults(list)

	// Некорректный id подборки даёт пустую выборку, как и неизвестный.
	var collection *uuid.UUID
	if list == models.ListCollection {
		id, err := uuid.Parse(filter.CollectionID)
		if err != nil {
			id = uuid.Nil
		}
		collection = &id
	}
	if _, ok := orderBy[filter.SortBy]; !ok {
		return nil, filter, fmt.Errorf("%w: unknown sort %q", storage.ErrInvalidFilter, filter.SortBy)
	}
	if _, err := models.ParsePeriod(string(filter.Period)); err != nil {
		return nil, filter, fmt.Errorf("%w: %v", storage.ErrInvalidFilter, err)
	}

	var since *time.Time
	if d := filter.Period.Duration(); d > 0 {
		t := now.Add(-d).UTC()
		since = &t
	}

	return []any{string(list.Kind()), since, filter.Category, filter.VIPOnly, collection}, filter, nil
}

// ListContent возвращает страницу списка: выборка LIMIT/OFFSET и COUNT(*)
// отправляются одним batch-ем. Страница за пределами выборки - пустая.
func (s *Storage) ListContent(ctx context.Context, opts models.ListOptions) (*models.Page, error) {
	const op = "storage.postgres.ListContent"

	q, err := s.buildPageQuery(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	batch := &pgx.Batch{}
	batch.Queue(q.selectSQL, q.selectArgs...)
	batch.Queue(q.countSQL, q.countArgs...)

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	rows, err := br.Query()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	items, err := collectItems(rows, q.size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	var total int
	if err := br.QueryRow().Scan(&total); err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, mapError(err))
	}

	return &models.Page{Items: items, Total: total, Page: q.page, PageSize: q.size}, nil
}

// ListItems возвращает только элементы страницы, без COUNT(*).
func (s *Storage) ListItems(ctx context.Context, opts models.ListOptions) ([]models.Item, error) {
	const op = "storage.postgres.ListItems"

	q, err := s.buildPageQuery(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.db.Query(ctx, q.selectSQL, q.selectArgs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	items, err := collectItems(rows, q.size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return items, nil
}

type pageQuery struct {
	selectSQL  string
	selectArgs []any
	countSQL   string
	countArgs  []any
	page, size int
}

func (s *Storage) buildPageQuery(opts models.ListOptions) (pageQuery, error) {
	args, filter, err := s.filterArgs(opts.List, opts.Filter, time.Now())
	if err != nil {
		return pageQuery{}, err
	}

	page := max(opts.Page, 1)
	size := opts.PageSize
	if size <= 0 {
		// Защита от нуля/отрицательного значения.
		size = 1
	}

	selectArgs := make([]any, 0, len(args)+2)
	selectArgs = append(selectArgs, args...)
	selectArgs = append(selectArgs, size, (page-1)*size)

	return pageQuery{
		selectSQL: `SELECT ` + selectColumns + ` FROM content` + whereClause + `
	ORDER BY ` + orderBy[filter.SortBy] + `
	LIMIT $6 OFFSET $7`,
		selectArgs: selectArgs,
		countSQL:   `SELECT count(*) FROM content` + whereClause,
		countArgs:  args,
		page:       page,
		size:       size,
	}, nil
}

// collectItems читает строки выборки и закрывает rows.
func collectItems(rows pgx.Rows, capacity int) ([]models.Item, error) {
	defer rows.Close()

	items := make([]models.Item, 0, capacity)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return items, nil
}

// CountContent возвращает число элементов списка под фильтр.
func (s *Storage) CountContent(ctx context.Context, list models.List, filter models.Filter) (int, error) {
	const op = "storage.postgres.CountContent"

	args, _, err := s.filterArgs(list, filter, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM content`+whereClause, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return total, nil
}

// ContentByID возвращает элемент по идентификатору.
// Если запись не найдена - storage.ErrNotFound.
// Некорректный формат id трактуется как «нет такой записи».
func (s *Storage) ContentByID(ctx context.Context, id string) (*models.Item, error) {
	const op = "storage.postgres.ContentByID"

	correctID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM content WHERE id = $1`, correctID)

	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return &it, nil
}

// SaveContent сохраняет пачку элементов с upsert по id.
// Используется для первичного наполнения БД.
func (s *Storage) SaveContent(ctx context.Context, items []models.Item) error {
	const op = "storage.postgres.SaveContent"

	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("%s: item %s: %w", op, it.ID, err)
		}

		raw, err := json.Marshal(encodeDetails(it))
		if err != nil {
			return fmt.Errorf("%s: details %s: %w", op, it.ID, err)
		}

		id := it.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		tags := it.Tags
		if tags == nil {
			tags = []string{}
		}

		batch.Queue(`
		INSERT INTO content (id, kind, title, description, image_url, category, tags, is_vip, is_new, quality,
			rating, views, downloads, likes, favorites, details, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE
		SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		image_url = EXCLUDED.image_url,
		category = EXCLUDED.category,
		tags = EXCLUDED.tags,
		is_vip = EXCLUDED.is_vip,
		is_new = EXCLUDED.is_new,
		quality = EXCLUDED.quality,
		rating = EXCLUDED.rating,
		views = EXCLUDED.views,
		downloads = EXCLUDED.downloads,
		likes = EXCLUDED.likes,
		favorites = EXCLUDED.favorites,
		details = EXCLUDED.details,
		updated_at = EXCLUDED.updated_at
		`, id, string(it.Kind), it.Title, it.Description, it.ImageURL, it.Category, tags, it.IsVIP, it.IsNew,
			it.Quality, it.Rating, it.Stats.Views, it.Stats.Downloads, it.Stats.Likes, it.Stats.Favorites,
			raw, it.UpdatedAt.UTC())
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: batch item %d: %w", op, i, mapError(err))
		}
	}

	return nil
}

// SaveCollectionMovies заменяет состав подборок: для каждой подборки из
// members старые связи удаляются, новые пишутся в порядке слайса. Всё в одной транзакции.
func (s *Storage) SaveCollectionMovies(ctx context.Context, members map[uuid.UUID][]uuid.UUID) error {
	const op = "storage.postgres.SaveCollectionMovies"

	if len(members) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for collectionID, movieIDs := range members {
			batch.Queue(`DELETE FROM collection_movies WHERE collection_id = $1`, collectionID)
			for pos, movieID := range movieIDs {
				batch.Queue(`
				INSERT INTO collection_movies (collection_id, movie_id, position)
				VALUES ($1, $2, $3)
				ON CONFLICT (collection_id, movie_id) DO UPDATE SET position = EXCLUDED.position
				`, collectionID, movieID, pos)
			}
		}

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

func scanItem(row pgx.Row) (models.Item, error) {
	var (
		it   models.Item
		kind string
		raw  []byte
	)

	if err := row.Scan(
		&it.ID,
		&kind,
		&it.Title,
		&it.Description,
		&it.ImageURL,
		&it.Category,
		&it.Tags,
		&it.IsVIP,
		&it.IsNew,
		&it.Quality,
		&it.Rating,
		&it.Stats.Views,
		&it.Stats.Downloads,
		&it.Stats.Likes,
		&it.Stats.Favorites,
		&raw,
		&it.UpdatedAt,
	); err != nil {
		return models.Item{}, err
	}

	it.Kind = models.Kind(kind)
	it.UpdatedAt = it.UpdatedAt.UTC()
	if len(it.Tags) == 0 {
		it.Tags = nil
	}

	var d details
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d); err != nil {
			return models.Item{}, fmt.Errorf("details: %w", err)
		}
	}
	decodeDetails(&it, d)

	return it, nil
}

func encodeDetails(it models.Item) details {
	var d details

	switch {
	case it.Movie != nil:
		d.Movie = &movieDetails{
			Year:            it.Movie.Year,
			DurationMinutes: int(it.Movie.Duration / time.Minute),
			Genres:          it.Movie.Genres,
		}
	case it.Photo != nil:
		d.Photo = &photoDetails{Format: it.Photo.Format, Width: it.Photo.Width, Height: it.Photo.Height}
	case it.Collection != nil:
		d.Collection = &collectionDetails{MovieCount: it.Collection.MovieCount}
	}

	return d
}

// decodeDetails заполняет ветку деталей, соответствующую виду элемента.
// Если в БД деталей нет, ветка создаётся пустой, чтобы элемент оставался валидным.
func decodeDetails(it *models.Item, d details) {
	switch it.Kind {
	case models.KindMovie:
		it.Movie = &models.MovieDetails{}
		if d.Movie != nil {
			it.Movie.Year = d.Movie.Year
			it.Movie.Duration = time.Duration(d.Movie.DurationMinutes) * time.Minute
			it.Movie.Genres = d.Movie.Genres
		}
	case models.KindPhoto:
		it.Photo = &models.PhotoDetails{}
		if d.Photo != nil {
			*it.Photo = models.PhotoDetails{Format: d.Photo.Format, Width: d.Photo.Width, Height: d.Photo.Height}
		}
	case models.KindCollection:
		it.Collection = &models.CollectionDetails{}
		if d.Collection != nil {
			it.Collection.MovieCount = d.Collection.MovieCount
		}
	}
}
