package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/go-movie-catalog/internal/storage"
)

// mapError переводит коды ошибок PostgreSQL в ошибки storage.
// Остальные ошибки возвращаются как есть.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn:
		return fmt.Errorf("%w: %s", storage.ErrNotMigrated, pgErr.Message)
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("invalid content row (%s): %w", pgErr.ConstraintName, err)
	default:
		return err
	}
}
