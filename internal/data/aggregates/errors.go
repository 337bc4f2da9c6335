package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	types "github.com/yungbote/finsights-backend/internal/domain/documents"
)

var (
	// ErrConflict marks a compare-and-swap miss.
	ErrConflict = errors.New("concurrent modification")
	// ErrBusy marks lock contention that outlived the lock timeout.
	ErrBusy = errors.New("record busy")
)

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func BusyError(msg string) error {
	return errors.Join(ErrBusy, errors.New(strings.TrimSpace(msg)))
}

// MapError maps infrastructure failures into record store error codes.
// Errors that already carry a code pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *types.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, ErrConflict):
		return types.Wrap(types.CodeConflict, op, err)
	case errors.Is(err, ErrBusy):
		return types.Wrap(types.CodeBusy, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.NewError(types.CodeNotFound, op, "document not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return types.DuplicateError(op, "duplicate key", err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return types.NewError(types.CodeConstraintViolation, op, "check constraint violated", err)
	case errors.Is(err, context.DeadlineExceeded):
		return types.Wrap(types.CodeBusy, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return types.DuplicateError(op, pgErr.Message, err) // unique_violation
		case "23502", "23514":
			return types.Wrap(types.CodeConstraintViolation, op, err) // not_null / check
		case "55P03", "57014":
			return types.Wrap(types.CodeBusy, op, err) // lock_not_available / statement timeout
		case "40001", "40P01":
			return types.Wrap(types.CodeConflict, op, err) // serialization / deadlock
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return types.Wrap(types.CodeBusy, op, err)
		case sqlite3.ErrConstraint:
			switch liteErr.ExtendedCode {
			case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
				return types.DuplicateError(op, liteErr.Error(), err)
			}
			return types.Wrap(types.CodeConstraintViolation, op, err)
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return types.DuplicateError(op, err.Error(), err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "lock timeout"):
		return types.Wrap(types.CodeBusy, op, err)
	case strings.Contains(msg, "deadlock"), strings.Contains(msg, "serialization"):
		return types.Wrap(types.CodeConflict, op, err)
	default:
		return types.Wrap(types.CodeInternal, op, err)
	}
}
