package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/agentmem/agentmem/internal/apperr"
)

// WrapDBError classifies a database/sql-flavored error into the apperr
// taxonomy, the same sentinel-wrapping idiom the teacher's
// internal/storage/sqlite/errors.go uses, generalized across backends: it
// converts sql.ErrNoRows to NotFound and sniffs common unique-constraint
// phrasing (sqlite, postgres, and MySQL-protocol drivers all differ in
// exact wording) into Conflict.
func WrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFoundf(op, "no rows")
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") || strings.Contains(msg, "conflict"):
		return apperr.Conflictf(op, "%s", err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "too many connections") || strings.Contains(msg, "eof"):
		return apperr.Transientf(op, "%s", err)
	case strings.Contains(msg, "constraint"):
		return apperr.Validationf(op, "%s", err)
	default:
		return apperr.Internalf(op, "%s", err)
	}
}
