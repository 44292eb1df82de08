package pager

// DefaultPageSize применяется, когда ни вызывающий код, ни конфиг
// контроллера не задали размер страницы.
const DefaultPageSize = 12

// Query - параметры запроса страницы.
//
// Filter непрозрачен для ядра: он сравнивается только на равенство,
// чтобы отличить «смену страницы» от «смены фильтра/сортировки».
type Query[F comparable] struct {
	Page     int
	PageSize int
	Filter   F
}

// Normalize доводит запрос до инвариантов: Page >= 1, PageSize >= 1.
// Некорректные значения не считаются ошибкой и зажимаются:
// page < 1 -> 1; pageSize < 1 -> defaultPageSize (или DefaultPageSize).
func (q Query[F]) Normalize(defaultPageSize int) Query[F] {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}

	return q
}

// ChangeKind - классификация изменения параметров запроса.
type ChangeKind int

const (
	// NoOp - все поля совпадают.
	NoOp ChangeKind = iota
	// PageChange - отличается только номер страницы.
	PageChange
	// FilterChange - отличается любое поле, кроме номера страницы.
	FilterChange
)

func (k ChangeKind) String() string {
	switch k {
	case NoOp:
		return "no-op"
	case PageChange:
		return "page-change"
	case FilterChange:
		return "filter-change"
	default:
		return "unknown"
	}
}

// Classify сравнивает старые и новые параметры.
// PageSize относится к «не-страничным» полям: его смена сбрасывает выдачу.
func Classify[F comparable](prev, next Query[F]) ChangeKind {
	if prev.Filter != next.Filter || prev.PageSize != next.PageSize {
		return FilterChange
	}
	if prev.Page != next.Page {
		return PageChange
	}

	return NoOp
}

// OptionStore хранит текущие параметры запроса вне состояния потребителя.
//
// Merge чистый и ничего не меняет; фиксация (commit) выполняется
// оркестратором только в момент фактического старта запроса,
// поэтому Current() всегда соответствует последнему инициированному запросу.
//
// OptionStore не потокобезопасен: его защищает мьютекс контроллера.
type OptionStore[F comparable] struct {
	current         Query[F]
	defaultPageSize int
}

// NewOptionStore создаёт хранилище с нормализованными начальными параметрами.
func NewOptionStore[F comparable](initial Query[F], defaultPageSize int) *OptionStore[F] {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}

	return &OptionStore[F]{
		current:         initial.Normalize(defaultPageSize),
		defaultPageSize: defaultPageSize,
	}
}

// Current возвращает последние зафиксированные параметры.
func (s *OptionStore[F]) Current() Query[F] {
	return s.current
}

// Merge применяет mutate к копии текущих параметров и нормализует результат.
func (s *OptionStore[F]) Merge(mutate func(*Query[F])) Query[F] {
	next := s.current
	if mutate != nil {
		mutate(&next)
	}

	return next.Normalize(s.defaultPageSize)
}

// Classify - см. пакетную функцию Classify.
func (s *OptionStore[F]) Classify(prev, next Query[F]) ChangeKind {
	return Classify(prev, next)
}

func (s *OptionStore[F]) commit(q Query[F]) {
	s.current = q.Normalize(s.defaultPageSize)
}
