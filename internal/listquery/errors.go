package listquery

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Validation errors are returned before any statement reaches the database.
var (
	ErrInvalidFilterField      = errors.New("invalid filter field")
	ErrInvalidFilterValue      = errors.New("invalid filter value")
	ErrInvalidOperator         = errors.New("invalid filter operator")
	ErrInvalidSortKey          = errors.New("invalid sort key")
	ErrInvalidPage             = errors.New("invalid page")
	ErrUnresolvedJoinReference = errors.New("unresolved join reference")
	ErrFanOutJoin              = errors.New("join key is not unique on the subquery side")
)

// Storage errors classify failures reported by the datastore.
var (
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
)

// StorageError tags a driver error with its taxonomy kind while keeping the
// original error reachable through errors.As.
type StorageError struct {
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the driver error.
func (e *StorageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsValidation reports whether err was raised while compiling a query.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFilterField) ||
		errors.Is(err, ErrInvalidFilterValue) ||
		errors.Is(err, ErrInvalidOperator) ||
		errors.Is(err, ErrInvalidSortKey) ||
		errors.Is(err, ErrInvalidPage)
}

// ClassifyStorageError maps driver errors onto ErrStorageUnavailable and
// ErrConstraintViolation. Errors it does not recognise are returned as is.
func ClassifyStorageError(err error) error {
	if err == nil {
		return nil
	}
	var tagged *StorageError
	if errors.As(err, &tagged) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return &StorageError{Kind: ErrConstraintViolation, Err: err}
		case strings.HasPrefix(pgErr.Code, "08"),
			strings.HasPrefix(pgErr.Code, "53"),
			strings.HasPrefix(pgErr.Code, "57P"):
			return &StorageError{Kind: ErrStorageUnavailable, Err: err}
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		pgconn.Timeout(err) {
		return &StorageError{Kind: ErrStorageUnavailable, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &StorageError{Kind: ErrStorageUnavailable, Err: err}
	}

	return err
}
