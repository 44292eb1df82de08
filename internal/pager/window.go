package pager

// Window возвращает полуинтервал [start, end) страницы page размером pageSize
// в общей выдаче: start = (page-1)*pageSize, end = start+pageSize.
//
// Значения вне диапазона (page < 1, pageSize < 1) приводятся к 1,
// функция никогда не возвращает отрицательный start.
func Window(page, pageSize int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	start = (page - 1) * pageSize
	end = start + pageSize

	return start, end
}

// SliceWindow вырезает страницу из полной выборки items.
// Окно обрезается по длине items; страница за пределами выборки - пустой срез.
func SliceWindow[T any](items []T, page, pageSize int) []T {
	start, end := Window(page, pageSize)
	if start >= len(items) {
		return []T{}
	}
	if end > len(items) {
		end = len(items)
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	return out
}
