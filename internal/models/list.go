package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidValue - значение перечисления не распознано.
var ErrInvalidValue = errors.New("invalid value")

// List - именованный список каталога.
type List string

const (
	// ListHot - самое популярное за период (смешанный контент).
	ListHot List = "hot"
	// ListLatest - последние обновления (смешанный контент).
	ListLatest List = "latest"
	// ListPhotos - фотосеты.
	ListPhotos List = "photos"
	// ListCollections - подборки.
	ListCollections List = "collections"
	// ListCollection - фильмы одной подборки (Filter.CollectionID).
	ListCollection List = "collection"
)

// Lists - общие списки в порядке отображения. ListCollection сюда не входит:
// без идентификатора подборки он не имеет смысла.
var Lists = []List{ListHot, ListLatest, ListPhotos, ListCollections}

// ParseList разбирает имя списка.
func ParseList(s string) (List, error) {
	l := List(strings.ToLower(strings.TrimSpace(s)))
	if l == ListCollection {
		return l, nil
	}
	for _, known := range Lists {
		if l == known {
			return l, nil
		}
	}

	return "", fmt.Errorf("%w: list %q", ErrInvalidValue, s)
}

// Kind возвращает вид контента списка; "" - смешанный список.
func (l List) Kind() Kind {
	switch l {
	case ListPhotos:
		return KindPhoto
	case ListCollections:
		return KindCollection
	case ListCollection:
		return KindMovie
	default:
		return ""
	}
}

// Period - окно времени, за которое отбирается контент.
type Period string

const (
	Period24Hours Period = "24hours"
	Period7Days   Period = "7days"
	Period30Days  Period = "30days"
)

// DefaultPeriod применяется, если период не задан.
const DefaultPeriod = Period7Days

// ParsePeriod разбирает период. Пустая строка - без ограничения по времени
// (для hot WithDefaults подставит DefaultPeriod).
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "", Period24Hours, Period7Days, Period30Days:
		return p, nil
	default:
		return "", fmt.Errorf("%w: period %q", ErrInvalidValue, s)
	}
}

// Duration - длительность окна; 0 - без ограничения.
func (p Period) Duration() time.Duration {
	switch p {
	case Period24Hours:
		return 24 * time.Hour
	case Period7Days:
		return 7 * 24 * time.Hour
	case Period30Days:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// SortBy - порядок сортировки.
type SortBy string

const (
	SortLatest  SortBy = "latest"
	SortPopular SortBy = "popular"
	SortRating  SortBy = "rating"
	// SortTitle - по названию (побайтово, по возрастанию).
	SortTitle SortBy = "title"
	// SortTopRated - по рейтингу, при равенстве - по лайкам.
	SortTopRated SortBy = "top-rated"
)

// ParseSortBy разбирает порядок сортировки; пустая строка -> "".
// Пустое значение означает «по умолчанию для списка».
func ParseSortBy(s string) (SortBy, error) {
	switch v := SortBy(strings.ToLower(strings.TrimSpace(s))); v {
	case "", SortLatest, SortPopular, SortRating, SortTitle, SortTopRated:
		return v, nil
	default:
		return "", fmt.Errorf("%w: sort %q", ErrInvalidValue, s)
	}
}

// Filter - параметры выборки, не относящиеся к пагинации.
//
// Тип сравним (==): контроллер списка отличает смену фильтра
// от смены страницы простым сравнением.
type Filter struct {
	Period   Period
	SortBy   SortBy
	Category string
	VIPOnly  bool
	// CollectionID - подборка для ListCollection; для остальных списков пустой.
	CollectionID string
}

// ErrCollectionScope - CollectionID не согласован со списком.
var ErrCollectionScope = errors.New("collection scope mismatch")

// CheckScope проверяет, что CollectionID задан ровно для ListCollection.
func (f Filter) CheckScope(l List) error {
	id := strings.TrimSpace(f.CollectionID)
	switch {
	case l == ListCollection && id == "":
		return fmt.Errorf("%w: list %q requires a collection id", ErrCollectionScope, l)
	case l != ListCollection && id != "":
		return fmt.Errorf("%w: list %q does not take a collection id", ErrCollectionScope, l)
	}

	return nil
}

// DefaultFilter - фильтр по умолчанию для списка:
// hot - популярное за 7 дней, остальные - последние обновления.
func DefaultFilter(l List) Filter {
	f := Filter{SortBy: SortLatest}
	if l == ListHot {
		f.SortBy = SortPopular
		f.Period = DefaultPeriod
	}

	return f
}

// WithDefaults дополняет пустые поля f значениями DefaultFilter(l).
func (f Filter) WithDefaults(l List) Filter {
	def := DefaultFilter(l)
	if f.SortBy == "" {
		f.SortBy = def.SortBy
	}
	if f.Period == "" {
		f.Period = def.Period
	}
	f.Category = strings.TrimSpace(f.Category)
	f.CollectionID = strings.TrimSpace(f.CollectionID)

	return f
}

// ListOptions - параметры выборки страницы списка.
//
// Особенности:
//   - Page < 1 трактуется как первая страница;
//   - при PageSize <= 0 применяется серверный default (config.LimitsConfig.Default).
type ListOptions struct {
	List     List
	Page     int
	PageSize int
	Filter   Filter
}

// Page - страница результатов и общее число элементов под фильтр.
type Page struct {
	Items    []Item
	Total    int
	Page     int
	PageSize int
	// Collection - сама подборка для ListCollection, иначе nil.
	Collection *Item
}
