package middleware

import (
	"context"
	"net/http"
	"time"
)

// HeaderRequestTimeout - бюджет, который просит клиент (формат time.ParseDuration).
const HeaderRequestTimeout = "X-Request-Timeout"

// Timeout ограничивает обработку запроса бюджетом limit. Клиент может
// попросить меньший бюджет через X-Request-Timeout: больший или
// некорректный заголовок игнорируется. Более ранний дедлайн контекста
// сохраняется. limit <= 0 делает мидлвар no-op.
func Timeout(limit time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), requestBudget(r, limit))
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestBudget(r *http.Request, limit time.Duration) time.Duration {
	raw := r.Header.Get(HeaderRequestTimeout)
	if raw == "" {
		return limit
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 || d > limit {
		return limit
	}

	return d
}
