package pager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Unit-тесты контроллера: сценарии обновления, догрузки, смены фильтра,
// отбрасывания устаревших ответов и обработки ошибок.

type item struct {
	ID   int
	Sort string
}

// dataset возвращает n элементов, помеченных сортировкой sort.
func dataset(n int, sort string) []item {
	out := make([]item, n)
	for i := range out {
		out[i] = item{ID: i, Sort: sort}
	}

	return out
}

// sliceSource - источник без пагинации на 300 элементов и счётчик обращений.
func sliceSource(total int, calls *atomic.Int32) DataSource[item, testFilter] {
	return SliceSource(func(_ context.Context, f testFilter) ([]item, error) {
		calls.Add(1)
		return dataset(total, f.Sort), nil
	})
}

func newTestController(src DataSource[item, testFilter], mutate func(cfg *Config[item, testFilter])) *Controller[item, testFilter] {
	cfg := Config[item, testFilter]{
		Name:    "test",
		Initial: Query[testFilter]{PageSize: 12, Filter: testFilter{Sort: "latest"}},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return New(src, cfg)
}

// TestController_RefreshFirstPage - сценарий A: 300 элементов, первая страница из 12.
func TestController_RefreshFirstPage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), nil)
	defer c.Close()

	c.Refresh(context.Background())

	st := c.State()
	require.Len(t, st.Items, 12)
	require.Equal(t, 300, st.Total)
	require.Equal(t, 1, st.Page)
	require.False(t, st.Loading)
	require.False(t, st.IsPageChanging)
	require.NoError(t, st.Err)
	require.True(t, st.HasMore())
	require.EqualValues(t, 1, calls.Load())
}

// TestController_LoadMoreAppends - сценарий B и P5: догрузка дописывает страницы,
// Total не уменьшается.
func TestController_LoadMoreAppends(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestController(sliceSource(30, &calls), nil)
	defer c.Close()

	c.Refresh(context.Background())
	require.Len(t, c.State().Items, 12)

	c.LoadMore(context.Background())
	st := c.State()
	require.Len(t, st.Items, 24)
	require.Equal(t, 30, st.Total)
	require.Equal(t, 2, st.Page)
	require.Equal(t, 12, st.Items[12].ID, "append keeps source order")

	c.LoadMore(context.Background())
	st = c.State()
	require.Len(t, st.Items, 30, "last page is clamped to total")
	require.Equal(t, 30, st.Total)
	require.False(t, st.HasMore())

	// P6: элементов уже столько же, сколько Total.
	c.LoadMore(context.Background())
	require.EqualValues(t, 3, calls.Load(), "load more must not fetch when everything is loaded")
}

// TestController_AutoLoad - автозагрузка первой страницы при создании.
func TestController_AutoLoad(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), func(cfg *Config[item, testFilter]) {
		cfg.AutoLoad = true
	})
	defer c.Close()

	c.Wait()

	st := c.State()
	require.Len(t, st.Items, 12)
	require.Equal(t, 300, st.Total)
	require.False(t, st.Loading)
}

// blockingSource отдаёт результат только после release для запросов, на которые указывает hold.
type blockingSource struct {
	hold    func(q Query[testFilter]) bool
	started chan Query[testFilter]
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingSource(hold func(q Query[testFilter]) bool) *blockingSource {
	return &blockingSource{
		hold:    hold,
		started: make(chan Query[testFilter], 16),
		release: make(chan struct{}),
	}
}

func (s *blockingSource) FetchPage(ctx context.Context, q Query[testFilter]) (Result[item], error) {
	s.calls.Add(1)
	s.started <- q

	if s.hold(q) {
		// Источник игнорирует отмену: контроллер обязан отбросить поздний ответ сам.
		<-s.release
	}

	all := dataset(300, q.Filter.Sort)

	return Result[item]{Items: SliceWindow(all, q.Page, q.PageSize), Total: len(all)}, nil
}

// TestController_StaleResultDiscarded - P1: поздний ответ старого запроса не виден.
func TestController_StaleResultDiscarded(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(q Query[testFilter]) bool { return q.Filter.Sort == "latest" })

	var outcomes []Outcome
	var mu sync.Mutex
	c := newTestController(src, func(cfg *Config[item, testFilter]) {
		cfg.OnSettle = func(_ string, _ Mode, o Outcome, _ time.Duration) {
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		}
	})
	defer c.Close()

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Category = "drama" })
	<-src.started

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "popular" })
	<-src.started

	require.Eventually(t, func() bool { return !c.State().Loading }, time.Second, time.Millisecond)

	close(src.release)
	c.Wait()

	st := c.State()
	require.Len(t, st.Items, 12)
	for _, it := range st.Items {
		require.Equal(t, "popular", it.Sort)
	}
	require.Equal(t, "popular", c.Options().Filter.Sort)
	require.Equal(t, "drama", c.Options().Filter.Category)

	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []Outcome{OutcomeSuccess, OutcomeStale}, outcomes)
}

// TestController_UpdateDuringLoadMore - сценарий C: смена сортировки во время догрузки.
func TestController_UpdateDuringLoadMore(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(q Query[testFilter]) bool { return q.Page == 2 })
	c := newTestController(src, nil)
	defer c.Close()

	c.Refresh(context.Background())
	<-src.started

	loadMoreDone := make(chan struct{})
	go func() {
		defer close(loadMoreDone)
		c.LoadMore(context.Background())
	}()

	q := <-src.started
	require.Equal(t, 2, q.Page)

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "popular" })
	q = <-src.started
	require.Equal(t, 1, q.Page, "sort change must fetch page 1")
	c.Wait()

	close(src.release)
	<-loadMoreDone

	st := c.State()
	require.Len(t, st.Items, 12)
	require.Equal(t, 1, st.Page)
	require.Equal(t, 0, st.Items[0].ID)
	for _, it := range st.Items {
		require.Equal(t, "popular", it.Sort)
	}
}

// TestController_FilterChangeResetsPage - P4: смена фильтра на странице 5
// сбрасывает страницу на 1 и Total на 0 ещё до ответа.
func TestController_FilterChangeResetsPage(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(q Query[testFilter]) bool { return q.Filter.Category == "x" })
	c := newTestController(src, func(cfg *Config[item, testFilter]) {
		cfg.Initial.Page = 5
	})
	defer c.Close()

	c.Refresh(context.Background())
	<-src.started

	c.UpdateOptions(func(q *Query[testFilter]) { q.Page = 5 })
	<-src.started
	c.Wait()
	require.Equal(t, 5, c.State().Page)
	require.Equal(t, 300, c.State().Total)

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Category = "x" })

	st := c.State()
	require.Equal(t, 0, st.Total, "total must be reset before the fetch")
	require.Empty(t, st.Items)
	require.True(t, st.Loading)
	require.True(t, st.IsPageChanging)

	q := <-src.started
	require.Equal(t, 1, q.Page)
	require.Equal(t, "x", q.Filter.Category)

	close(src.release)
	c.Wait()
	require.Equal(t, 1, c.State().Page)
	require.Equal(t, 300, c.State().Total)
}

// TestController_PageChangeKeepsFilter - смена только страницы сохраняет фильтры.
func TestController_PageChangeKeepsFilter(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(Query[testFilter]) bool { return false })
	c := newTestController(src, nil)
	defer c.Close()

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "rating" })
	<-src.started
	c.Wait()

	c.UpdateOptions(func(q *Query[testFilter]) { q.Page = 3 })
	q := <-src.started
	c.Wait()

	require.Equal(t, 3, q.Page)
	require.Equal(t, "rating", q.Filter.Sort)

	st := c.State()
	require.Equal(t, 3, st.Page)
	require.Equal(t, 24, st.Items[0].ID)
}

// TestController_LoadMoreWhileLoading - P6: догрузка во время загрузки ничего не запускает.
func TestController_LoadMoreWhileLoading(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(Query[testFilter]) bool { return true })
	c := newTestController(src, nil)
	defer c.Close()

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "popular" })
	<-src.started

	c.LoadMore(context.Background())
	require.EqualValues(t, 1, src.calls.Load())

	close(src.release)
	c.Wait()
}

// TestController_LoadMoreWithoutItems - до первой загрузки Total == 0, догружать нечего.
func TestController_LoadMoreWithoutItems(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), nil)
	defer c.Close()

	c.LoadMore(context.Background())
	require.Zero(t, calls.Load())
}

var errNetwork = errors.New("network is unreachable")

// TestController_RefreshFailure - сценарий D: ошибка источника на обновлении.
func TestController_RefreshFailure(t *testing.T) {
	t.Parallel()

	src := SourceFunc[item, testFilter](func(context.Context, Query[testFilter]) (Result[item], error) {
		return Result[item]{}, errNetwork
	})
	c := newTestController(src, nil)
	defer c.Close()

	c.Refresh(context.Background())

	st := c.State()
	require.Error(t, st.Err)
	require.ErrorIs(t, st.Err, ErrDataSource)
	require.ErrorIs(t, st.Err, errNetwork)
	require.Equal(t, "network is unreachable", st.ErrorMessage())
	require.Empty(t, st.Items)
	require.False(t, st.Loading)
	require.False(t, st.IsPageChanging)
}

// TestController_FailureMessageFallback - пустое сообщение ошибки заменяется FailureMessage.
func TestController_FailureMessageFallback(t *testing.T) {
	t.Parallel()

	src := SourceFunc[item, testFilter](func(context.Context, Query[testFilter]) (Result[item], error) {
		return Result[item]{}, errors.New("  ")
	})
	c := newTestController(src, func(cfg *Config[item, testFilter]) {
		cfg.FailureMessage = "Не удалось загрузить список"
	})
	defer c.Close()

	c.Refresh(context.Background())
	require.Equal(t, "Не удалось загрузить список", c.State().ErrorMessage())
}

// TestController_FailedAppendRetriesSamePage - неудачная догрузка не пропускает страницу.
func TestController_FailedAppendRetriesSamePage(t *testing.T) {
	t.Parallel()

	var failed atomic.Bool
	var pages []int
	var mu sync.Mutex

	src := SourceFunc[item, testFilter](func(_ context.Context, q Query[testFilter]) (Result[item], error) {
		mu.Lock()
		pages = append(pages, q.Page)
		mu.Unlock()

		if q.Page == 2 && failed.CompareAndSwap(false, true) {
			return Result[item]{}, errNetwork
		}

		all := dataset(100, q.Filter.Sort)
		return Result[item]{Items: SliceWindow(all, q.Page, q.PageSize), Total: len(all)}, nil
	})
	c := newTestController(src, nil)
	defer c.Close()

	c.Refresh(context.Background())
	c.LoadMore(context.Background())

	st := c.State()
	require.Error(t, st.Err)
	require.Len(t, st.Items, 12, "failed append keeps visible items")
	require.Equal(t, 100, st.Total)

	c.LoadMore(context.Background())
	st = c.State()
	require.NoError(t, st.Err)
	require.Len(t, st.Items, 24)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 2}, pages)
}

// TestController_NoOpUpdate - повтор тех же параметров после успеха не загружает,
// после ошибки - загружает заново.
func TestController_NoOpUpdate(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	var calls atomic.Int32
	src := SourceFunc[item, testFilter](func(_ context.Context, q Query[testFilter]) (Result[item], error) {
		calls.Add(1)
		if fail.Load() {
			return Result[item]{}, errNetwork
		}
		return Result[item]{Items: dataset(q.PageSize, q.Filter.Sort), Total: 50}, nil
	})
	c := newTestController(src, nil)
	defer c.Close()

	c.Refresh(context.Background())
	c.UpdateOptions(nil)
	c.Wait()
	require.EqualValues(t, 1, calls.Load())

	fail.Store(true)
	c.Refresh(context.Background())
	require.Error(t, c.State().Err)

	fail.Store(false)
	c.UpdateOptions(nil)
	c.Wait()
	require.EqualValues(t, 3, calls.Load())
	require.NoError(t, c.State().Err)
}

// TestController_MinLoading - P3: быстрый ответ держит Loading не меньше MinLoading.
func TestController_MinLoading(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), func(cfg *Config[item, testFilter]) {
		cfg.MinLoading = 60 * time.Millisecond
	})
	defer c.Close()

	start := time.Now()
	c.Refresh(context.Background())
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	require.False(t, c.State().Loading)
}

// TestController_MinLoadingFakeClock - MinLoading отсчитывается по часам из конфига.
func TestController_MinLoadingFakeClock(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), func(cfg *Config[item, testFilter]) {
		cfg.MinLoading = 5 * time.Second
		cfg.Clock = clk
	})
	defer c.Close()

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "popular" })
	require.Eventually(t, func() bool { return clk.pending() == 1 }, time.Second, time.Millisecond)
	require.True(t, c.State().Loading)

	clk.Advance(5 * time.Second)
	c.Wait()
	require.False(t, c.State().Loading)
	require.Len(t, c.State().Items, 12)
}

// TestController_Abort - явная отмена снимает флаги загрузки и отбрасывает ответ.
func TestController_Abort(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(Query[testFilter]) bool { return true })
	c := newTestController(src, nil)
	defer c.Close()

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "popular" })
	<-src.started

	c.Abort()
	st := c.State()
	require.False(t, st.Loading)
	require.False(t, st.IsPageChanging)

	close(src.release)
	c.Wait()

	st = c.State()
	require.Empty(t, st.Items)
	require.NoError(t, st.Err)

	// Повторный Abort без запроса в полёте - no-op.
	c.Abort()
}

// TestController_ParentCancelled - отмена контекста вызывающего не показывается как ошибка.
func TestController_ParentCancelled(t *testing.T) {
	t.Parallel()

	src := SourceFunc[item, testFilter](func(ctx context.Context, _ Query[testFilter]) (Result[item], error) {
		<-ctx.Done()
		return Result[item]{}, ctx.Err()
	})

	var got Outcome
	c := newTestController(src, func(cfg *Config[item, testFilter]) {
		cfg.OnSettle = func(_ string, _ Mode, o Outcome, _ time.Duration) { got = o }
	})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Дедлайн - это сбой, а не отмена: ошибка видна.
	c.Refresh(ctx)
	require.Equal(t, OutcomeFailed, got)
	require.ErrorIs(t, c.State().Err, context.DeadlineExceeded)

	ctx2, cancel2 := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel2()
	}()

	c.Refresh(ctx2)
	require.Equal(t, OutcomeCancelled, got)
	st := c.State()
	require.NoError(t, st.Err)
	require.False(t, st.Loading)
}

// TestController_OnChange - подписчик видит старт загрузки и итоговое состояние.
func TestController_OnChange(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []State[item]

	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), func(cfg *Config[item, testFilter]) {
		cfg.OnChange = func(s State[item]) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		}
	})
	defer c.Close()

	c.Refresh(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	require.True(t, seen[0].Loading)
	require.True(t, seen[0].IsPageChanging)
	require.False(t, seen[1].Loading)
	require.Len(t, seen[1].Items, 12)
}

// TestController_LoadMoreFromOnChange - бесконечная прокрутка: подписчик
// догружает страницу прямо из OnChange, вызов не блокируется.
func TestController_LoadMoreFromOnChange(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var once sync.Once
	var mu sync.Mutex
	var last State[item]

	var c *Controller[item, testFilter]
	c = newTestController(sliceSource(300, &calls), func(cfg *Config[item, testFilter]) {
		cfg.OnChange = func(s State[item]) {
			mu.Lock()
			last = s
			mu.Unlock()

			if !s.Loading && s.HasMore() {
				once.Do(func() { c.LoadMore(context.Background()) })
			}
		}
	})
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Refresh(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh with load more from OnChange did not return")
	}

	st := c.State()
	require.Len(t, st.Items, 24)
	require.Equal(t, 2, st.Page)
	require.EqualValues(t, 2, calls.Load())

	mu.Lock()
	defer mu.Unlock()
	require.False(t, last.Loading)
	require.Len(t, last.Items, 24, "subscriber sees the appended page last")
}

// TestController_FailedPageChangeThenLoadMore - после неудачного перехода на
// страницу догружать нечего; повтор загружает ту же страницу, и догрузка идёт от неё.
func TestController_FailedPageChangeThenLoadMore(t *testing.T) {
	t.Parallel()

	var failed atomic.Bool
	var pages []int
	var mu sync.Mutex

	src := SourceFunc[item, testFilter](func(_ context.Context, q Query[testFilter]) (Result[item], error) {
		mu.Lock()
		pages = append(pages, q.Page)
		mu.Unlock()

		if q.Page == 5 && failed.CompareAndSwap(false, true) {
			return Result[item]{}, errNetwork
		}

		all := dataset(300, q.Filter.Sort)
		return Result[item]{Items: SliceWindow(all, q.Page, q.PageSize), Total: len(all)}, nil
	})
	c := newTestController(src, nil)
	defer c.Close()

	c.Refresh(context.Background())
	c.UpdateOptions(func(q *Query[testFilter]) { q.Page = 5 })
	c.Wait()

	st := c.State()
	require.Error(t, st.Err)
	require.Empty(t, st.Items)
	require.False(t, st.HasMore())

	c.LoadMore(context.Background())
	require.Empty(t, c.State().Items, "load more must not append to an empty list")

	c.UpdateOptions(nil)
	c.Wait()
	require.NoError(t, c.State().Err)
	require.Equal(t, 48, c.State().Items[0].ID)

	c.LoadMore(context.Background())
	st = c.State()
	require.Len(t, st.Items, 24)
	require.Equal(t, 6, st.Page)
	require.Equal(t, 60, st.Items[12].ID)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 5, 5, 6}, pages)
}

// TestController_AutoLoadNotifiesStart - подписчик видит скелетон автозагрузки.
func TestController_AutoLoadNotifiesStart(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []State[item]

	var calls atomic.Int32
	c := newTestController(sliceSource(300, &calls), func(cfg *Config[item, testFilter]) {
		cfg.AutoLoad = true
		cfg.OnChange = func(s State[item]) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		}
	})
	defer c.Close()

	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	require.True(t, seen[0].Loading)
	require.True(t, seen[0].IsPageChanging)
	require.False(t, seen[1].Loading)
	require.Len(t, seen[1].Items, 12)
}

// TestController_Close - после Close методы не запускают загрузки.
func TestController_Close(t *testing.T) {
	t.Parallel()

	src := newBlockingSource(func(Query[testFilter]) bool { return true })
	c := newTestController(src, nil)

	c.UpdateOptions(func(q *Query[testFilter]) { q.Filter.Sort = "popular" })
	<-src.started

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		c.Close()
	}()

	require.Eventually(t, func() bool { return !c.State().Loading }, time.Second, time.Millisecond)
	close(src.release)
	<-closed

	c.Refresh(context.Background())
	c.LoadMore(context.Background())
	c.UpdateOptions(func(q *Query[testFilter]) { q.Page = 2 })
	c.Close()

	require.EqualValues(t, 1, src.calls.Load())
	require.Empty(t, c.State().Items)
}
