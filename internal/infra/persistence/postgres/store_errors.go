package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"referral/internal/domain/repository"
)

// SQLSTATE classes and codes inspected by the classifiers below.
const (
	sqlStateClassConnection  = "08"    // connection_exception
	sqlStateAdminShutdown    = "57P01" // admin_shutdown
	sqlStateCrashShutdown    = "57P02" // crash_shutdown
	sqlStateCannotConnectNow = "57P03" // cannot_connect_now
	sqlStateTooManyConns     = "53300" // too_many_connections
	sqlStateUndefinedTable   = "42P01" // undefined_table
	sqlStateInvalidCatalog   = "3D000" // invalid_catalog_name
	sqlStateInvalidSchema    = "3F000" // invalid_schema_name
	sqlStateUniqueViolation  = "23505" // unique_violation
	sqlStateReadOnlyTx       = "25006" // read_only_sql_transaction
	sqlStateQueryCanceled    = "57014" // query_canceled, raised by statement_timeout
)

// IsStoreUnavailable reports whether err means the session store is unreachable,
// timed out, or is missing its schema. It inspects typed errors only.
func IsStoreUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, repository.ErrStoreUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isUnavailableSQLState(pgErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isUnavailableSQLState(code string) bool {
	if strings.HasPrefix(code, sqlStateClassConnection) {
		return true
	}

	switch code {
	case sqlStateAdminShutdown, sqlStateCrashShutdown, sqlStateCannotConnectNow,
		sqlStateTooManyConns, sqlStateUndefinedTable, sqlStateInvalidCatalog,
		sqlStateInvalidSchema, sqlStateReadOnlyTx, sqlStateQueryCanceled:
		return true
	default:
		return false
	}
}

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

// classify maps a store error to ErrStoreUnavailable when the call exceeded its
// bound or the predicate matches. Other errors are wrapped with op.
func classify(ctx context.Context, err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || IsStoreUnavailable(err) {
		return errors.Wrapf(repository.ErrStoreUnavailable, "%s: %v", op, err)
	}

	return errors.Wrap(err, op)
}
