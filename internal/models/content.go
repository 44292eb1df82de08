// models содержит доменные сущности каталога: элементы контента
// (фильм, фотосет, подборка), списки и параметры выборки.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidItem - элемент не соответствует своему виду.
var ErrInvalidItem = errors.New("invalid item")

// Kind - вид контента. Набор закрыт: movie, photo, collection.
type Kind string

const (
	KindMovie      Kind = "movie"
	KindPhoto      Kind = "photo"
	KindCollection Kind = "collection"
)

// Valid сообщает, что k - один из известных видов.
func (k Kind) Valid() bool {
	switch k {
	case KindMovie, KindPhoto, KindCollection:
		return true
	default:
		return false
	}
}

// MovieDetails - поля, специфичные для фильма.
type MovieDetails struct {
	Year     int
	Duration time.Duration
	Genres   []string
}

// PhotoDetails - поля, специфичные для фотосета.
type PhotoDetails struct {
	// Format - формат исходника (JPEG, PNG, WebP...).
	Format string
	Width  int
	Height int
}

// CollectionDetails - поля, специфичные для подборки.
type CollectionDetails struct {
	MovieCount int
}

// Stats - счётчики взаимодействий.
type Stats struct {
	Views     int64
	Downloads int64
	Likes     int64
	Favorites int64
}

// Item - доменная сущность элемента каталога.
//
// Особенности:
//   - ID - UUID (в mock-данных - детерминированный UUIDv5);
//   - ровно одно из Movie/Photo/Collection заполнено и соответствует Kind;
//   - UpdatedAt - в UTC.
type Item struct {
	Kind        Kind
	ID          uuid.UUID
	Title       string
	Description string
	ImageURL    string
	Category    string
	Tags        []string
	IsVIP       bool
	IsNew       bool
	// Quality - метка качества (4K, HD, 1080P...).
	Quality   string
	Rating    float64
	Stats     Stats
	UpdatedAt time.Time

	Movie      *MovieDetails
	Photo      *PhotoDetails
	Collection *CollectionDetails
}

// Validate проверяет, что заполнена ровно та ветка деталей, что соответствует Kind.
func (it Item) Validate() error {
	if !it.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, it.Kind)
	}

	set := 0
	for _, ok := range []bool{it.Movie != nil, it.Photo != nil, it.Collection != nil} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("%w: more than one details variant", ErrInvalidItem)
	}

	switch it.Kind {
	case KindMovie:
		if it.Movie == nil {
			return fmt.Errorf("%w: movie without movie details", ErrInvalidItem)
		}
	case KindPhoto:
		if it.Photo == nil {
			return fmt.Errorf("%w: photo without photo details", ErrInvalidItem)
		}
	case KindCollection:
		if it.Collection == nil {
			return fmt.Errorf("%w: collection without collection details", ErrInvalidItem)
		}
	}

	return nil
}

// HotScore - «горячесть» элемента: просмотры + 5×лайки + 10×избранное.
func (it Item) HotScore() int64 {
	return it.Stats.Views + it.Stats.Likes*5 + it.Stats.Favorites*10
}

// RatingColor - цветовая категория рейтинга для отображения.
type RatingColor string

const (
	RatingRed      RatingColor = "red"
	RatingPurple   RatingColor = "purple"
	RatingDimWhite RatingColor = "dim-white"
)

// Пороговые значения рейтинга.
const (
	RatingHigh   = 9.0
	RatingMedium = 7.5
)

// RatingColorOf возвращает цвет рейтинга: >= 9.0 - red, >= 7.5 - purple, иначе dim-white.
func RatingColorOf(rating float64) RatingColor {
	switch {
	case rating >= RatingHigh:
		return RatingRed
	case rating >= RatingMedium:
		return RatingPurple
	default:
		return RatingDimWhite
	}
}
