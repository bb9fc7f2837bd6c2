package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	pgdb "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

func pgErrorCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

// missingRowError は version 付き UPDATE が 0 行だった場合に、行が存在するかどうかで
// notFound と conflict のどちらを返すかを決めます。
func missingRowError(ctx context.Context, exec pgdb.Queryer, existsQuery string, args []any, notFound, conflict error) error {
	var exists bool
	if err := exec.QueryRow(ctx, existsQuery, args...).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return conflict
	}
	return notFound
}
