// pager реализует клиентский контроллер постраничного списка:
// загрузка страниц из абстрактного источника, режимы replace/append,
// отбрасывание устаревших ответов и минимальная видимая длительность загрузки.
//
// Конкурентная модель: один мьютекс на контроллер - единственный писатель
// состояния. Выдача токена, фиксация параметров и сброс состояния на старте
// выполняются синхронно в вызывающей горутине, поэтому «побеждает» всегда
// последний инициированный запрос, независимо от порядка ответов.
package pager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Mode - режим загрузки.
type Mode int

const (
	// Replace очищает видимые элементы на старте и заменяет их результатом.
	Replace Mode = iota
	// Append оставляет видимые элементы и дописывает к ним результат.
	Append
)

func (m Mode) String() string {
	if m == Append {
		return "append"
	}

	return "replace"
}

// Outcome - итог одной попытки загрузки.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeStale     Outcome = "stale"
	OutcomeCancelled Outcome = "cancelled"
)

// Config - параметры контроллера, задаются один раз при создании.
type Config[T any, F comparable] struct {
	// Name - имя списка для логов и метрик.
	Name string
	// Initial - начальные параметры запроса (нормализуются).
	Initial Query[F]
	// DefaultPageSize применяется при PageSize < 1 (по умолчанию DefaultPageSize).
	DefaultPageSize int
	// AutoLoad - загрузить первую страницу сразу при создании.
	AutoLoad bool
	// MinLoading - минимальная видимая длительность загрузки (0 - без задержки).
	MinLoading time.Duration
	// FailureMessage - текст ошибки, если у ошибки источника нет сообщения.
	FailureMessage string
	// Context ограничивает жизнь фоновых загрузок (UpdateOptions, AutoLoad).
	Context context.Context
	// Logger - базовый логгер; nil -> slog.Default().
	Logger *slog.Logger
	// Clock - часы для Gate; nil -> SystemClock.
	Clock Clock
	// OnChange получает снимки состояния в порядке их возникновения.
	// Устаревшие снимки (обогнанные более новыми) не доставляются.
	// Из колбэка можно вызывать методы контроллера, кроме Close и Wait.
	OnChange func(State[T])
	// OnSettle вызывается по завершении каждой попытки (для метрик).
	OnSettle func(name string, mode Mode, outcome Outcome, dur time.Duration)
}

type attempt[F comparable] struct {
	tok       *Token
	q         Query[F]
	mode      Mode
	needTotal bool
	start     time.Time
}

type snapshot[T any] struct {
	version uint64
	state   State[T]
}

// Controller - постраничный список поверх DataSource.
type Controller[T any, F comparable] struct {
	src    DataSource[T, F]
	cfg    Config[T, F]
	gate   Gate
	log    *slog.Logger
	tokens Tokens

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	store   *OptionStore[F]
	state   State[T]
	version uint64
	started bool
	closed  bool

	notifyMu   sync.Mutex
	delivered  uint64
	pending    *snapshot[T]
	delivering bool
}

// New создаёт контроллер. При cfg.AutoLoad первая страница загружается
// в фоне, а начальное состояние уже имеет Loading и IsPageChanging.
func New[T any, F comparable](src DataSource[T, F], cfg Config[T, F]) *Controller[T, F] {
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}

	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	if cfg.Name != "" {
		lg = lg.With(slog.String("list", cfg.Name))
	}

	base, stop := context.WithCancel(parent)

	c := &Controller[T, F]{
		src:   src,
		cfg:   cfg,
		gate:  Gate{Clock: cfg.Clock},
		log:   lg,
		base:  base,
		stop:  stop,
		store: NewOptionStore(cfg.Initial, cfg.DefaultPageSize),
	}

	if cfg.AutoLoad {
		c.mu.Lock()
		a, snap := c.beginLocked(c.base, c.store.Current(), Replace)
		c.mu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.notify(snap)
			c.run(a)
		}()
	}

	return c
}

// State возвращает копию текущего состояния.
func (c *Controller[T, F]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.clone()
}

// Options возвращает параметры последнего инициированного запроса.
func (c *Controller[T, F]) Options() Query[F] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Current()
}

// Refresh перезагружает первую страницу с текущими фильтрами (replace).
// Items и Total очищаются до запроса. Блокирует до завершения попытки;
// ошибки не возвращаются, а отражаются в State().Err.
func (c *Controller[T, F]) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	q := c.store.Current()
	q.Page = 1
	c.state.Items = nil
	c.state.Total = 0

	a, snap := c.beginLocked(ctx, q, Replace)
	c.mu.Unlock()

	c.notify(snap)
	c.run(a)
}

// LoadMore догружает следующую страницу (append). No-op, если загрузка
// уже идёт, видимых элементов нет или страниц больше нет (len(Items) >= Total).
// Блокирует до завершения.
func (c *Controller[T, F]) LoadMore(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state.Loading || !c.state.HasMore() {
		c.mu.Unlock()
		return
	}

	// Непустой Items всегда заканчивается страницей state.Page: replace
	// очищает их на старте, неудачный append их не трогает.
	q := c.store.Current()
	q.Page = c.state.Page + 1

	a, snap := c.beginLocked(ctx, q, Append)
	c.mu.Unlock()

	c.notify(snap)
	c.run(a)
}

// UpdateOptions применяет mutate к текущим параметрам и запускает
// replace-загрузку в фоне. Запрос в полёте инвалидируется сразу.
//
// Смена фильтра, сортировки или размера страницы сбрасывает страницу на 1
// и Total на 0; смена только страницы сохраняет фильтры.
// Не блокирует; дождаться фоновой загрузки можно через Wait.
func (c *Controller[T, F]) UpdateOptions(mutate func(*Query[F])) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	prev := c.store.Current()
	next := c.store.Merge(mutate)
	kind := Classify(prev, next)

	// Повтор тех же параметров не нужен, если они уже в полёте или загружены без ошибки.
	if kind == NoOp && c.started && (c.tokens.InFlight() || c.state.Err == nil) {
		c.mu.Unlock()
		c.log.Debug("pager_update_noop")
		return
	}

	c.tokens.InvalidateCurrent()

	if kind == FilterChange {
		next.Page = 1
		c.state.Total = 0
	}

	c.log.Debug("pager_update_options",
		slog.String("change", kind.String()),
		slog.Int("page", next.Page),
		slog.Int("page_size", next.PageSize),
	)

	a, snap := c.beginLocked(c.base, next, Replace)
	c.wg.Add(1)
	c.mu.Unlock()

	c.notify(snap)

	go func() {
		defer c.wg.Done()
		c.run(a)
	}()
}

// Abort инвалидирует запрос в полёте (например, потребитель ушёл со страницы).
// Элементы не трогаются, Loading и IsPageChanging сбрасываются.
func (c *Controller[T, F]) Abort() {
	c.mu.Lock()
	if !c.tokens.InvalidateCurrent() {
		c.mu.Unlock()
		return
	}

	c.state.Loading = false
	c.state.IsPageChanging = false
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug("pager_aborted")
	c.notify(snap)
}

// Wait ждёт завершения фоновых загрузок (UpdateOptions, AutoLoad).
func (c *Controller[T, F]) Wait() {
	c.wg.Wait()
}

// Close отменяет все загрузки и ждёт фоновые горутины.
// После Close методы изменения состояния становятся no-op.
func (c *Controller[T, F]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.closed = true
	c.tokens.InvalidateCurrent()
	c.state.Loading = false
	c.state.IsPageChanging = false
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()
}

// beginLocked переводит контроллер в Fetching. Вызывается под c.mu.
func (c *Controller[T, F]) beginLocked(parent context.Context, q Query[F], mode Mode) (attempt[F], snapshot[T]) {
	if parent == nil {
		parent = c.base
	}

	tok := c.tokens.Issue(parent)
	c.store.commit(q)
	q = c.store.Current()

	c.started = true
	c.state.Loading = true
	c.state.Err = nil
	if mode == Replace {
		c.state.IsPageChanging = true
		c.state.Items = nil
	}

	a := attempt[F]{
		tok:       tok,
		q:         q,
		mode:      mode,
		needTotal: mode == Replace || c.state.Total == 0,
		start:     c.gate.clock().Now(),
	}

	c.log.Debug("pager_fetch_start",
		slog.Uint64("seq", tok.Seq()),
		slog.String("mode", mode.String()),
		slog.Int("page", q.Page),
		slog.Int("page_size", q.PageSize),
	)

	return a, c.snapshotLocked()
}

// run выполняет I/O попытки и применяет результат, только если токен ещё валиден.
func (c *Controller[T, F]) run(a attempt[F]) {
	ctx := a.tok.Context()

	res, err := c.src.FetchPage(ctx, a.q)
	_ = c.gate.Wait(ctx, a.start, c.cfg.MinLoading)

	c.mu.Lock()

	if !c.tokens.Valid(a.tok) {
		c.mu.Unlock()
		c.log.Debug("pager_fetch_stale", slog.Uint64("seq", a.tok.Seq()))
		c.settled(a, OutcomeStale)
		return
	}

	outcome := OutcomeSuccess

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		// Отменён родительский контекст, а новее запроса нет: отмену не показываем.
		outcome = OutcomeCancelled
		c.state.Loading = false
		c.state.IsPageChanging = false
	case err != nil:
		outcome = OutcomeFailed
		c.state.Err = &FetchError{Fallback: c.cfg.FailureMessage, Err: err}
		c.state.Loading = false
		c.state.IsPageChanging = false
	default:
		if a.mode == Append {
			c.state.Items = append(c.state.Items, res.Items...)
		} else {
			c.state.Items = append([]T(nil), res.Items...)
		}
		if a.needTotal {
			c.state.Total = res.Total
		}
		c.state.Page = a.q.Page
		c.state.Loading = false
		c.state.IsPageChanging = false
	}

	c.tokens.Release(a.tok)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	switch outcome {
	case OutcomeFailed:
		c.log.Warn("pager_fetch_failed",
			slog.Uint64("seq", a.tok.Seq()),
			slog.Int("page", a.q.Page),
			slog.String("err", err.Error()),
		)
	case OutcomeCancelled:
		c.log.Debug("pager_fetch_cancelled", slog.Uint64("seq", a.tok.Seq()))
	default:
		c.log.Debug("pager_fetch_ok",
			slog.Uint64("seq", a.tok.Seq()),
			slog.Int("page", a.q.Page),
			slog.Int("items", len(snap.state.Items)),
			slog.Int("total", snap.state.Total),
		)
	}

	c.notify(snap)
	c.settled(a, outcome)
}

func (c *Controller[T, F]) snapshotLocked() snapshot[T] {
	c.version++

	return snapshot[T]{version: c.version, state: c.state.clone()}
}

// notify доставляет снимок в OnChange. Колбэк вызывается без блокировок,
// поэтому из него можно звать методы контроллера. Пока идёт доставка,
// новые снимки копятся в pending (остаётся только самый свежий) и
// доставляются тем же вызовом после возврата из колбэка.
func (c *Controller[T, F]) notify(s snapshot[T]) {
	if c.cfg.OnChange == nil {
		return
	}

	c.notifyMu.Lock()
	if s.version > c.delivered && (c.pending == nil || s.version > c.pending.version) {
		c.pending = &s
	}
	if c.delivering {
		c.notifyMu.Unlock()
		return
	}

	c.delivering = true
	for c.pending != nil {
		next := *c.pending
		c.pending = nil
		if next.version <= c.delivered {
			continue
		}

		c.delivered = next.version
		c.notifyMu.Unlock()
		c.cfg.OnChange(next.state)
		c.notifyMu.Lock()
	}
	c.delivering = false
	c.notifyMu.Unlock()
}

func (c *Controller[T, F]) settled(a attempt[F], outcome Outcome) {
	if c.cfg.OnSettle == nil {
		return
	}

	c.cfg.OnSettle(c.cfg.Name, a.mode, outcome, c.gate.clock().Now().Sub(a.start))
}
