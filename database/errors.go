// Package database provides connection management and shared error types for
// the gridiron-datastore time-series storage layer.
//
// This package includes:
//   - Database connection management using GORM and PostgreSQL
//   - Support for TimescaleDB hypertables and continuous aggregates
//   - The typed error taxonomy shared by the write, query, and cache layers
//
// Key Concepts:
//   - TimescaleDB hypertables for time-series data optimization
//   - Continuous aggregates for pre-computed daily/weekly rollups
//   - Composite primary keys for hypertable compatibility
//   - Automatic compression and retention policies for data lifecycle management
package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError represents a row-level validation failure. Invalid points
// are dropped and counted; a ValidationError never aborts a batch.
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// TransactionError represents a failed batch write. The whole batch was
// rolled back; nothing from it was persisted.
type TransactionError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// CostLimitError represents a query refused before execution because the
// daily spend budget is exhausted. Callers should treat this as back-pressure,
// not a transient fault to retry.
type CostLimitError struct {
	Spent float64
	Limit float64
	Day   string
}

// Error implements the error interface
func (e *CostLimitError) Error() string {
	return fmt.Sprintf("daily cost limit reached for %s: spent %.4f of %.4f", e.Day, e.Spent, e.Limit)
}

// SchemaInitError represents a fatal schema initialization failure. The
// service must not accept traffic until initialization succeeds.
type SchemaInitError struct {
	Step string
	Err  error
}

// Error implements the error interface
func (e *SchemaInitError) Error() string {
	return fmt.Sprintf("schema initialization failed at step %q: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *SchemaInitError) Unwrap() error {
	return e.Err
}

// ConnectivityError represents a transport-level database failure. This layer
// does not retry; that responsibility belongs to the caller.
type ConnectivityError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("database unreachable during %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewValidationErrorWithValue creates a new ValidationError with a value
func NewValidationErrorWithValue(field, reason string, value interface{}) error {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}

// ClassifyWriteError wraps a failed write as either a ConnectivityError or a
// TransactionError. The gorm postgres driver speaks pgx, so transport faults
// surface as connection-class PgErrors or as plain dial/timeout errors with
// no PgError at all once the server is gone.
func ClassifyWriteError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection_exception; 57P01..57P03 are shutdown/crash
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03" {
			return &ConnectivityError{Operation: operation, Err: err}
		}
		return &TransactionError{Operation: operation, Err: err}
	}
	if pgconn.Timeout(err) {
		return &ConnectivityError{Operation: operation, Err: err}
	}
	return &TransactionError{Operation: operation, Err: err}
}

// ClassifyQueryError wraps a failed read as a ConnectivityError when the
// failure is transport-level, otherwise returns the error unchanged.
func ClassifyQueryError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03" {
			return &ConnectivityError{Operation: operation, Err: err}
		}
		return err
	}
	if pgconn.Timeout(err) {
		return &ConnectivityError{Operation: operation, Err: err}
	}
	return err
}
