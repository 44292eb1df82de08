package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-movie-catalog/internal/cache"
	"github.com/pribylovaa/go-movie-catalog/internal/models"
	"github.com/pribylovaa/go-movie-catalog/pkg/log"
)

// StartWarmup периодически прогревает кэш Total для фильтров по умолчанию
// каждого списка (период s.cfg.Redis.WarmInterval).
//
// Особенности:
//   - первый проход выполняется сразу;
//   - ошибки отдельных списков логируются и не прерывают цикл;
//   - останавливается по ctx.
func (s *Service) StartWarmup(ctx context.Context) error {
	const op = "service/warmup/StartWarmup"

	interval := s.cfg.Redis.WarmInterval

	if s.cache == nil {
		return fmt.Errorf("%s: total cache is not configured", op)
	}
	if interval <= 0 {
		return fmt.Errorf("%s: warm interval must be > 0", op)
	}

	lg := log.From(ctx)
	lg.Info("warmup_start",
		slog.String("op", op),
		slog.Int("lists", len(models.Lists)),
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.warmOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			lg.Info("warmup_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			s.warmOnce(ctx)
		}
	}
}

// warmOnce - один проход: COUNT по каждому списку и запись в кэш.
// Возвращает число успешно прогретых списков.
func (s *Service) warmOnce(ctx context.Context) int {
	const op = "service/warmup/warmOnce"

	lg := log.From(ctx)

	var warmed, failed int
	for _, list := range models.Lists {
		filter := models.Filter{}.WithDefaults(list)

		var total int
		err := s.retry(ctx, op, func(ctx context.Context) error {
			var err error
			total, err = s.storage.CountContent(ctx, list, filter)
			return err
		})
		if err != nil {
			failed++
			lg.Warn("warmup_count_error",
				slog.String("op", op),
				slog.String("list", string(list)),
				slog.String("err", err.Error()),
			)
			continue
		}

		key := cache.Key(list, filter)
		if err := s.cache.Set(ctx, key, total, s.cacheTTL()); err != nil {
			failed++
			lg.Warn("warmup_cache_error",
				slog.String("op", op),
				slog.String("key", key),
				slog.String("err", err.Error()),
			)
			continue
		}
		warmed++
	}

	lg.Info("warmup_done",
		slog.String("op", op),
		slog.Int("warmed", warmed),
		slog.Int("failed", failed),
	)

	return warmed
}
