// source связывает контроллер списка (pager) с источниками данных каталога:
// сервисом в том же процессе, удалённым API и mock-набором без пагинации.
package source

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/internal/pager"
	"github.com/pribylovaa/go-movie-catalog/internal/storage/mock"
)

// Source - источник страниц каталога для контроллера списка.
type Source = pager.DataSource[models.Item, models.Filter]

// Controller - контроллер списка каталога.
type Controller = pager.Controller[models.Item, models.Filter]

// Lister - постраничная выдача (реализуется *service.Service).
type Lister interface {
	ListContent(ctx context.Context, opts models.ListOptions) (*models.Page, error)
}

// RemoteLister - постраничная выдача по HTTP (реализуется *client.Client).
type RemoteLister interface {
	List(ctx context.Context, opts models.ListOptions) (*models.Page, error)
}

// CollectionInfo запоминает подборки из ответов списка ListCollection,
// чтобы потребитель контроллера мог показать заголовок подборки.
// Безопасен для конкурентного использования.
type CollectionInfo struct {
	mu   sync.Mutex
	byID map[string]models.Item
}

// Get возвращает последнюю полученную подборку id.
func (c *CollectionInfo) Get(id string) (models.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.byID[strings.TrimSpace(id)]
	return it, ok
}

func (c *CollectionInfo) observe(page *models.Page) {
	if page.Collection == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.byID == nil {
		c.byID = make(map[string]models.Item)
	}
	c.byID[page.Collection.ID.String()] = *page.Collection
}

// Option настраивает источник.
type Option func(*options)

type options struct {
	info *CollectionInfo
}

// WithCollectionInfo сохраняет подборки из ответов в info.
func WithCollectionInfo(info *CollectionInfo) Option {
	return func(o *options) { o.info = info }
}

// NewServiceSource - источник поверх сервисного слоя в том же процессе.
func NewServiceSource(svc Lister, list models.List, opts ...Option) Source {
	return pageSource(list, svc.ListContent, opts)
}

// NewRemoteSource - источник поверх HTTP API каталога.
func NewRemoteSource(cl RemoteLister, list models.List, opts ...Option) Source {
	return pageSource(list, cl.List, opts)
}

// NewMockSource - источник без серверной пагинации: mock-набор отдаёт
// всю выборку, страница вырезается на стороне контроллера.
// Сведений о подборке mock-источник не даёт.
func NewMockSource(st *mock.Storage, list models.List) Source {
	return pager.SliceSource[models.Item, models.Filter](func(ctx context.Context, f models.Filter) ([]models.Item, error) {
		return st.All(ctx, list, f)
	})
}

func pageSource(list models.List, fetch func(context.Context, models.ListOptions) (*models.Page, error), opts []Option) Source {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return pager.SourceFunc[models.Item, models.Filter](func(ctx context.Context, q pager.Query[models.Filter]) (pager.Result[models.Item], error) {
		page, err := fetch(ctx, models.ListOptions{
			List:     list,
			Page:     q.Page,
			PageSize: q.PageSize,
			Filter:   q.Filter,
		})
		if err != nil {
			return pager.Result[models.Item]{}, err
		}

		if o.info != nil {
			o.info.observe(page)
		}

		return pager.Result[models.Item]{Items: page.Items, Total: page.Total}, nil
	})
}

// DefaultMinLoading - минимальная видимая длительность загрузки для списка:
// hot и фильмы подборки - 5s, latest и photos - 500ms, collections - без задержки.
func DefaultMinLoading(list models.List) time.Duration {
	switch list {
	case models.ListHot, models.ListCollection:
		return 5 * time.Second
	case models.ListLatest, models.ListPhotos:
		return 500 * time.Millisecond
	default:
		return 0
	}
}

// DefaultFailureMessage - текст ошибки по умолчанию для списка.
func DefaultFailureMessage(list models.List) string {
	switch list {
	case models.ListHot:
		return "Failed to load hot content"
	case models.ListLatest:
		return "Failed to load latest updates"
	case models.ListPhotos:
		return "Failed to load photos"
	case models.ListCollections:
		return "Failed to load collections"
	case models.ListCollection:
		return "Failed to load collection movies"
	default:
		return "Failed to load content"
	}
}

// ListConfig - параметры контроллера списка. Нулевые поля - умолчания списка.
type ListConfig struct {
	// PageSize - размер страницы (по умолчанию pager.DefaultPageSize).
	PageSize int
	// Filter - начальный фильтр (пустые поля - умолчания списка).
	Filter models.Filter
	// MinLoading переопределяет DefaultMinLoading; отрицательное значение отключает задержку.
	MinLoading time.Duration
	AutoLoad   bool

	Context  context.Context
	Logger   *slog.Logger
	Clock    pager.Clock
	OnChange func(pager.State[models.Item])
	OnSettle func(name string, mode pager.Mode, outcome pager.Outcome, dur time.Duration)
}

// NewListController создаёт контроллер списка list поверх src.
func NewListController(src Source, list models.List, cfg ListConfig) *Controller {
	minLoading := cfg.MinLoading
	switch {
	case minLoading == 0:
		minLoading = DefaultMinLoading(list)
	case minLoading < 0:
		minLoading = 0
	}

	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	return pager.New(src, pager.Config[models.Item, models.Filter]{
		Name: string(list),
		Initial: pager.Query[models.Filter]{
			Page:     1,
			PageSize: cfg.PageSize,
			Filter:   cfg.Filter.WithDefaults(list),
		},
		DefaultPageSize: pager.DefaultPageSize,
		AutoLoad:        cfg.AutoLoad,
		MinLoading:      minLoading,
		FailureMessage:  DefaultFailureMessage(list),
		Context:         cfg.Context,
		Logger:          lg,
		Clock:           cfg.Clock,
		OnChange:        cfg.OnChange,
		OnSettle:        cfg.OnSettle,
	})
}
