package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-movie-catalog/pkg/log"
)

// UnaryLoggingInterceptor логирует unary-вызовы и кладёт обогащённый логгер в ctx.
//
// Формат:
//   - request_id из metadata x-request-id, иначе новый UUID;
//   - method (FullMethod), peer (IP:port или "-");
//   - по завершении одна запись msg="grpc" с code и dur;
//     уровень Info для OK и ошибок клиента, Warn для серверных кодов.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		l := callLogger(ctx, base, info.FullMethod)
		ctx = log.Into(ctx, l)

		resp, err := handler(ctx, req)

		logDone(ctx, l, err, start)
		return resp, err
	}
}

// StreamLoggingInterceptor - то же для stream-вызовов; запись пишется при закрытии стрима.
func StreamLoggingInterceptor(base *slog.Logger) grpc.StreamServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()

		l := callLogger(ss.Context(), base, info.FullMethod)
		ctx := log.Into(ss.Context(), l)

		err := handler(srv, &loggedStream{ServerStream: ss, ctx: ctx})

		logDone(ctx, l, err, start)
		return err
	}
}

func callLogger(ctx context.Context, base *slog.Logger, method string) *slog.Logger {
	var rid string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			rid = v[0]
		}
	}
	if rid == "" {
		rid = uuid.NewString()
	}

	peerStr := "-"
	if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
		peerStr = p.Addr.String()
	}

	return base.With(
		slog.String("request_id", rid),
		slog.String("method", method),
		slog.String("peer", peerStr),
	)
}

func logDone(ctx context.Context, l *slog.Logger, err error, start time.Time) {
	code := status.Code(err)

	level := slog.LevelInfo
	switch code {
	case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss, codes.DeadlineExceeded:
		level = slog.LevelWarn
	}

	l.LogAttrs(ctx, level, "grpc",
		slog.String("code", code.String()),
		slog.Duration("dur", time.Since(start)),
	)
}

// loggedStream подменяет Context стрима, чтобы логгер был доступен обработчику.
type loggedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *loggedStream) Context() context.Context { return s.ctx }
