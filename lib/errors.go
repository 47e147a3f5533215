package lib

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Database errors
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// Domain errors
var (
	ErrValidation             = errors.New("validation failed")
	ErrStock                  = errors.New("insufficient stock")
	ErrTimeout                = errors.New("timed out")
	ErrAggregationUnavailable = errors.New("stock aggregation unavailable")
)

// Auth errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// AppError carries a user facing message next to one of the sentinel kinds above.
type AppError struct {
	Kind    error
	Message string
	Details []string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewValidationError(message string, details ...string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message, Details: details}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: message}
}

func NewConflictError(message string, details ...string) *AppError {
	return &AppError{Kind: ErrConflict, Message: message, Details: details}
}

// NewStockError lists every line that could not be satisfied.
func NewStockError(details []string) *AppError {
	return &AppError{Kind: ErrStock, Message: "Insufficient stock", Details: details}
}

func NewTimeoutError(message string, err error) *AppError {
	return &AppError{Kind: ErrTimeout, Message: message, Err: err}
}

// MessageOf returns the user facing message of an AppError, or fallback.
func MessageOf(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// DetailsOf returns the detail lines of an AppError, if any.
func DetailsOf(err error) []string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	var code string
	var driverErr pgdriver.Error
	var pgxErr *pgconn.PgError
	switch {
	case errors.As(err, &driverErr):
		code = driverErr.Field('C') // SQLSTATE
	case errors.As(err, &pgxErr):
		code = pgxErr.Code
	}

	switch code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case "P0002": // no_data_found
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
