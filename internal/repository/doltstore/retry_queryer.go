package doltstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/agentmem/agentmem/internal/apperr"
	"github.com/agentmem/agentmem/internal/retry"
)

// queryer is satisfied by retryingQueryer and a *sql.Tx, letting repo
// methods run unmodified inside or outside an explicit transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// retryingQueryer wraps a *sql.DB so that transient network errors against
// the dolt sql-server (a connection-pooled TCP service, unlike the embedded
// SQLite backend) are retried under internal/retry, the same transient
// errors the teacher's isRetryableError recognizes for server-mode Dolt.
// Only ExecContext and QueryContext retry; QueryRowContext is passed
// straight to the *sql.DB.
type retryingQueryer struct {
	db  *sql.DB
	cfg retry.Config
}

// isRetryableConnErr mirrors the teacher's isRetryableError
// (internal/storage/dolt/store.go): transient MySQL-protocol connection
// errors worth retrying under the same bounded backoff window.
func isRetryableConnErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"database is read only",
		"lost connection",
		"gone away",
		"i/o timeout",
		"unknown database",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

func (q *retryingQueryer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retry.Do(ctx, q.cfg, func(ctx context.Context) error {
		var execErr error
		res, execErr = q.db.ExecContext(ctx, query, args...)
		if execErr == nil {
			return nil
		}
		if isRetryableConnErr(execErr) {
			return apperr.Transientf("doltstore.exec", "%s", execErr)
		}
		return execErr
	})
	return res, err
}

func (q *retryingQueryer) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := retry.Do(ctx, q.cfg, func(ctx context.Context) error {
		var queryErr error
		rows, queryErr = q.db.QueryContext(ctx, query, args...)
		if queryErr == nil {
			return nil
		}
		if isRetryableConnErr(queryErr) {
			return apperr.Transientf("doltstore.query", "%s", queryErr)
		}
		return queryErr
	})
	return rows, err
}

func (q *retryingQueryer) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, query, args...)
}
