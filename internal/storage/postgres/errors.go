package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextEncoding = "22P02"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// isMalformedID срабатывает, когда строка не приводится к UUID на стороне базы.
func isMalformedID(err error) bool {
	return pgErrorCode(err) == pgInvalidTextEncoding
}
