// interceptors предоставляет набор серверных gRPC-интерсепторов служебного порта
// catalog-service: восстановление после паник, логирование и таймауты.
package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout возвращает unary-интерсептор с бюджетом d на вызов.
//
// Контракт:
//  1. d <= 0 - ctx не меняется;
//  2. дедлайн во входящем ctx уже есть - он не переопределяется,
//     даже если он позже, чем now+d;
//  3. иначе ctx оборачивается через context.WithTimeout(ctx, d), cancel вызывается
//     после handler.
//
// По истечении дедлайна handler обычно возвращает context.DeadlineExceeded;
// gRPC-рантайм транслирует это в codes.DeadlineExceeded.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, cancel := withBudget(ctx, d)
		defer cancel()

		return handler(ctx, req)
	}
}

// withBudget навешивает дедлайн d, если его ещё нет.
func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
