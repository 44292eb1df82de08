package pager

import (
	"context"
	"time"
)

// Clock абстрагирует время для Gate (подменяется в тестах).
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock - часы на основе пакета time.
var SystemClock Clock = realClock{}

// Gate гарантирует минимальную видимую длительность загрузки,
// чтобы скелетон не «мигал» на быстрых ответах.
type Gate struct {
	Clock Clock
}

func (g Gate) clock() Clock {
	if g.Clock == nil {
		return SystemClock
	}

	return g.Clock
}

// Remaining возвращает, сколько ещё нужно ждать до floor с момента start.
func (g Gate) Remaining(start time.Time, floor time.Duration) time.Duration {
	if floor <= 0 {
		return 0
	}

	elapsed := g.clock().Now().Sub(start)
	if elapsed >= floor {
		return 0
	}

	return floor - elapsed
}

// Wait приостанавливает вызывающего на floor-elapsed, если загрузка
// оказалась быстрее floor. Если ctx уже отменён, возвращается сразу с ctx.Err();
// оркестратор в любом случае перепроверяет токен после ожидания.
func (g Gate) Wait(ctx context.Context, start time.Time, floor time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := g.Remaining(start, floor)
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.clock().After(d):
		return nil
	}
}
