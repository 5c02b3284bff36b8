// Package repository provides data access interfaces and implementations
// for the bibliometrics service.
//
// # Overview
//
// The package defines repository interfaces and their PostgreSQL
// implementations following the repository pattern to abstract data
// persistence from business logic.
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple
// goroutines. The underlying pgxpool handles connection pooling and
// synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Database errors are wrapped with context using fmt.Errorf with the %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrAlreadyExists: Unique constraint violation
//   - domain.ErrInvalidInput: Invalid parameters provided
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// Pass a transaction from database.DB.WithTransaction for atomic operations.
//
// # Usage Pattern
//
// Repositories are typically created at application startup and passed to
// services:
//
//	db, _ := database.New(ctx, cfg, logger)
//	paperRepo := repository.NewPgPaperRepository(db)
package repository

import (
	"github.com/papertalks/bibliometrics-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction
// contexts. Repository constructors accept DBTX so the same implementation
// works against a pool, a transaction or a pgxmock pool in tests.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
