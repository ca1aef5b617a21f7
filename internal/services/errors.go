package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAccessDenied           = errors.New("access denied")
	ErrNotFound               = errors.New("not found")
	ErrConflictRetry          = errors.New("concurrent vote conflict, try again")
	ErrInvalidInput           = errors.New("invalid input")
	ErrForbidden              = errors.New("only the owner may do this")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email already registered")
)

// isUniqueViolation reports whether err came from a unique index. gorm
// translates it when TranslateError is on; the pgconn check covers
// connections opened without translation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
