package pager

import (
	"errors"
	"strings"
)

// ErrDataSource - любая ошибка источника данных, кроме отмены.
var ErrDataSource = errors.New("data source error")

// FetchError - ошибка загрузки, отражаемая в State.Err.
//
// Error() возвращает сообщение исходной ошибки, а если оно пустое -
// заданное в конфиге контроллера FailureMessage.
type FetchError struct {
	Fallback string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		if msg := strings.TrimSpace(e.Err.Error()); msg != "" {
			return msg
		}
	}

	if e.Fallback != "" {
		return e.Fallback
	}

	return ErrDataSource.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is позволяет проверять errors.Is(err, ErrDataSource).
func (e *FetchError) Is(target error) bool { return target == ErrDataSource }

// State - наблюдаемый снимок состояния списка.
//
// Инварианты после завершения загрузки: Loading == false и
// IsPageChanging == false; после успешной загрузки len(Items) <= Total.
type State[T any] struct {
	// Items - элементы в порядке источника.
	Items []T
	// Total - число элементов под текущий фильтр (не только на странице).
	Total int
	// Page - номер последней успешно загруженной страницы (0 до первой загрузки).
	Page int
	// Loading - идёт загрузка.
	Loading bool
	// IsPageChanging - идёт загрузка с очисткой видимых элементов (не append).
	IsPageChanging bool
	// Err - ошибка последней загрузки; nil при успехе и во время загрузки.
	Err error
}

// HasMore сообщает, есть ли ещё страницы для LoadMore.
func (s State[T]) HasMore() bool {
	return len(s.Items) > 0 && len(s.Items) < s.Total
}

// ErrorMessage возвращает человекочитаемый текст ошибки или "".
func (s State[T]) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}

	return s.Err.Error()
}

func (s State[T]) clone() State[T] {
	if s.Items != nil {
		items := make([]T, len(s.Items))
		copy(items, s.Items)
		s.Items = items
	}

	return s
}
