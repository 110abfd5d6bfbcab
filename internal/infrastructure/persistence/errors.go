package persistence

import (
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the transaction scope translates
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// sqlState extracts the SQLSTATE from either PostgreSQL driver's error type
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// translateError maps driver level conflicts to domain errors.
// Domain errors pass through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch sqlState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return fmt.Errorf("%w: %v", shared.ErrConcurrentModification, err)
	case sqlStateUniqueViolation:
		return fmt.Errorf("%w: %v", shared.ErrAlreadyExists, err)
	}
	return err
}
