// Package resilience classifies transient storage errors and retries
// operations that fail with them.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError marks an error as safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// transientSQLStates are Postgres error codes worth retrying: connection
// exceptions (class 08), server shutdown, too many connections, and
// serialization or deadlock failures.
var transientSQLStates = map[string]bool{
	"53300": true,
	"57P01": true,
	"57P02": true,
	"57P03": true,
	"40001": true,
	"40P01": true,
}

// IsTransient reports whether err (or anything in its chain) is a
// TransientError, a retryable Postgres error, a network timeout, or a
// dropped connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || transientSQLStates[pgErr.Code]
	}
	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"database is locked",
		"sqlite_busy",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
