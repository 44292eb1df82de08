package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
)

// Параметры запроса списка.
const (
	ParamPage     = "page"
	ParamPageSize = "page_size"
	ParamPeriod   = "period"
	ParamSort     = "sort"
	ParamCategory = "category"
	ParamVIPOnly  = "vip_only"
)

func ItemFromModel(it models.Item) Item {
	out := Item{
		Kind:        string(it.Kind),
		ID:          it.ID.String(),
		Title:       it.Title,
		Description: it.Description,
		ImageURL:    it.ImageURL,
		Category:    it.Category,
		Tags:        it.Tags,
		IsVIP:       it.IsVIP,
		IsNew:       it.IsNew,
		Quality:     it.Quality,
		Rating:      it.Rating,
		RatingColor: string(models.RatingColorOf(it.Rating)),
		Stats: Stats{
			Views:     it.Stats.Views,
			Downloads: it.Stats.Downloads,
			Likes:     it.Stats.Likes,
			Favorites: it.Stats.Favorites,
		},
		UpdatedAt: it.UpdatedAt.UTC().Unix(),
	}

	switch {
	case it.Movie != nil:
		out.Movie = &Movie{
			Year:        it.Movie.Year,
			DurationSec: int64(it.Movie.Duration / time.Second),
			Genres:      it.Movie.Genres,
		}
	case it.Photo != nil:
		out.Photo = &Photo{Format: it.Photo.Format, Width: it.Photo.Width, Height: it.Photo.Height}
	case it.Collection != nil:
		out.Collection = &Collection{MovieCount: it.Collection.MovieCount}
	}

	return out
}

// ToModel разбирает элемент ответа; ошибка - при битом id или виде контента.
func (m Item) ToModel() (models.Item, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return models.Item{}, fmt.Errorf("item id %q: %w", m.ID, err)
	}

	it := models.Item{
		Kind:        models.Kind(m.Kind),
		ID:          id,
		Title:       m.Title,
		Description: m.Description,
		ImageURL:    m.ImageURL,
		Category:    m.Category,
		Tags:        m.Tags,
		IsVIP:       m.IsVIP,
		IsNew:       m.IsNew,
		Quality:     m.Quality,
		Rating:      m.Rating,
		Stats: models.Stats{
			Views:     m.Stats.Views,
			Downloads: m.Stats.Downloads,
			Likes:     m.Stats.Likes,
			Favorites: m.Stats.Favorites,
		},
		UpdatedAt: time.Unix(m.UpdatedAt, 0).UTC(),
	}

	if m.Movie != nil {
		it.Movie = &models.MovieDetails{
			Year:     m.Movie.Year,
			Duration: time.Duration(m.Movie.DurationSec) * time.Second,
			Genres:   m.Movie.Genres,
		}
	}
	if m.Photo != nil {
		it.Photo = &models.PhotoDetails{Format: m.Photo.Format, Width: m.Photo.Width, Height: m.Photo.Height}
	}
	if m.Collection != nil {
		it.Collection = &models.CollectionDetails{MovieCount: m.Collection.MovieCount}
	}

	if err := it.Validate(); err != nil {
		return models.Item{}, err
	}

	return it, nil
}

func ListFromModel(p *models.Page) ListResponse {
	if p == nil {
		return ListResponse{Items: []Item{}}
	}

	items := make([]Item, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, ItemFromModel(it))
	}

	out := ListResponse{
		Items:    items,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.Page*p.PageSize < p.Total,
	}
	if p.Collection != nil {
		c := ItemFromModel(*p.Collection)
		out.Collection = &c
	}

	return out
}

func (m ListResponse) ToModel() (*models.Page, error) {
	items := make([]models.Item, 0, len(m.Items))
	for _, raw := range m.Items {
		it, err := raw.ToModel()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	page := &models.Page{
		Items:    items,
		Total:    m.Total,
		Page:     m.Page,
		PageSize: m.PageSize,
	}
	if m.Collection != nil {
		c, err := m.Collection.ToModel()
		if err != nil {
			return nil, fmt.Errorf("collection: %w", err)
		}
		page.Collection = &c
	}

	return page, nil
}

// ListPath - путь запроса списка: подборка адресуется по id,
// остальные списки - по имени.
func ListPath(opts models.ListOptions) string {
	if opts.List == models.ListCollection {
		return "/v1/collections/" + url.PathEscape(strings.TrimSpace(opts.Filter.CollectionID)) + "/items"
	}

	return "/v1/lists/" + url.PathEscape(string(opts.List))
}

// ListQuery кодирует параметры списка в query-строку. Пустые значения опускаются.
// CollectionID передаётся в пути (ListPath).
func ListQuery(opts models.ListOptions) url.Values {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set(ParamPage, strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set(ParamPageSize, strconv.Itoa(opts.PageSize))
	}
	if opts.Filter.Period != "" {
		q.Set(ParamPeriod, string(opts.Filter.Period))
	}
	if opts.Filter.SortBy != "" {
		q.Set(ParamSort, string(opts.Filter.SortBy))
	}
	if c := strings.TrimSpace(opts.Filter.Category); c != "" {
		q.Set(ParamCategory, c)
	}
	if opts.Filter.VIPOnly {
		q.Set(ParamVIPOnly, "true")
	}

	return q
}

// ParseListQuery разбирает query-параметры запроса списка.
// Проверяются только числа и флаги; перечисления проверяет сервисный слой.
func ParseListQuery(list string, q url.Values) (models.ListOptions, error) {
	opts := models.ListOptions{
		List: models.List(list),
		Filter: models.Filter{
			Period:   models.Period(q.Get(ParamPeriod)),
			SortBy:   models.SortBy(q.Get(ParamSort)),
			Category: q.Get(ParamCategory),
		},
	}

	var err error
	if opts.Page, err = parseInt(q, ParamPage); err != nil {
		return opts, err
	}
	if opts.PageSize, err = parseInt(q, ParamPageSize); err != nil {
		return opts, err
	}

	if v := q.Get(ParamVIPOnly); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%s: %w", ParamVIPOnly, err)
		}
		opts.Filter.VIPOnly = b
	}

	return opts, nil
}

func parseInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return int(n), nil
}
