package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/feral-file/nft-datastore/internal/domain"
)

// classifyError maps a driver or GORM error onto the domain error taxonomy.
// Context cancellation is passed through untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrConstraintViolation) || errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isConstraintError(err) {
		return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}

// isConstraintError checks if the error is a uniqueness or reference violation
func isConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	// Fallback for drivers that do not implement error translation
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint") ||
		strings.Contains(errStr, "SQLSTATE 23505")
}
