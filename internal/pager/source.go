package pager

import "context"

// Result - ответ источника данных: элементы страницы и общее число
// элементов, подходящих под текущий фильтр.
type Result[T any] struct {
	Items []T
	Total int
}

// DataSource - внешний источник страниц (mock, БД, удалённый API).
//
// Ядро никогда не просит источник остановиться явно: поздние ответы
// просто игнорируются. Отмена ctx носит рекомендательный характер.
type DataSource[T any, F comparable] interface {
	FetchPage(ctx context.Context, q Query[F]) (Result[T], error)
}

// SourceFunc адаптирует функцию к интерфейсу DataSource.
type SourceFunc[T any, F comparable] func(ctx context.Context, q Query[F]) (Result[T], error)

// FetchPage вызывает f(ctx, q).
func (f SourceFunc[T, F]) FetchPage(ctx context.Context, q Query[F]) (Result[T], error) {
	return f(ctx, q)
}

// SliceSource строит DataSource поверх бэкенда без пагинации:
// fetchAll возвращает всю выборку под фильтр, страница вырезается через Window,
// Total - длина всей выборки.
func SliceSource[T any, F comparable](fetchAll func(ctx context.Context, filter F) ([]T, error)) DataSource[T, F] {
	return SourceFunc[T, F](func(ctx context.Context, q Query[F]) (Result[T], error) {
		all, err := fetchAll(ctx, q.Filter)
		if err != nil {
			return Result[T]{}, err
		}

		return Result[T]{
			Items: SliceWindow(all, q.Page, q.PageSize),
			Total: len(all),
		}, nil
	})
}
