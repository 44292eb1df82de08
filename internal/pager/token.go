package pager

import (
	"context"
	"sync"
)

// Token - право одной попытки загрузки изменить состояние.
//
// Контекст токена отменяется при инвалидации: источник данных может
// прервать I/O, но корректность обеспечивает только проверка Valid.
type Token struct {
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Seq - порядковый номер токена (монотонно растёт в пределах Tokens).
func (t *Token) Seq() uint64 {
	if t == nil {
		return 0
	}

	return t.seq
}

// Context - контекст, который отменяется при инвалидации токена.
func (t *Token) Context() context.Context {
	if t == nil {
		return context.Background()
	}

	return t.ctx
}

// Tokens выдаёт токены отмены: в любой момент валиден не более чем один.
type Tokens struct {
	mu      sync.Mutex
	seq     uint64
	current *Token
}

// Issue инвалидирует предыдущий токен и выдаёт новый.
// Контекст нового токена наследуется от parent.
func (m *Tokens) Issue(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.cancel()
	}

	m.seq++
	ctx, cancel := context.WithCancel(parent)
	m.current = &Token{seq: m.seq, ctx: ctx, cancel: cancel}

	return m.current
}

// Invalidate инвалидирует токен t, если он ещё текущий.
// Для уже вытесненного токена только освобождает его контекст.
func (m *Tokens) Invalidate(t *Token) {
	if t == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t.cancel()
	if m.current == t {
		m.current = nil
	}
}

// InvalidateCurrent инвалидирует текущий токен и сообщает, был ли он.
func (m *Tokens) InvalidateCurrent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return false
	}

	m.current.cancel()
	m.current = nil

	return true
}

// Valid сообщает, что t - последний выданный и не инвалидированный токен.
func (m *Tokens) Valid(t *Token) bool {
	if t == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current == t
}

// Release завершает жизнь текущего токена после применения результата.
// После Release токен больше не валиден, а новых запросов в полёте нет.
func (m *Tokens) Release(t *Token) {
	m.Invalidate(t)
}

// InFlight сообщает, есть ли действующий токен.
func (m *Tokens) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current != nil
}
