package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgreSQL error codes the booking core reacts to
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
	pqExclusionViolation   = "23P01"
)

// ErrStaleWrite is returned by callers when an optimistic guard matched no row.
// TxRunner replays the transaction just like a serialization failure.
var ErrStaleWrite = errors.New("stale write")

// TxRunner runs a function inside a transaction, retrying when PostgreSQL aborts it
// for serialization failure or deadlock. Any other error, including one returned by
// fn, rolls the transaction back and is returned unchanged.
type TxRunner struct {
	db         DB
	maxRetries int
	backoff    time.Duration
	logger     *logrus.Logger
	onRetry    func()
}

// NewTxRunner creates a new TxRunner
func NewTxRunner(db DB, maxRetries int, logger *logrus.Logger) *TxRunner {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TxRunner{
		db:         db,
		maxRetries: maxRetries,
		backoff:    20 * time.Millisecond,
		logger:     logger,
	}
}

// OnRetry registers fn to be called every time a transaction is replayed
func (r *TxRunner) OnRetry(fn func()) {
	r.onRetry = fn
}

// ReadCommitted is the isolation used for row-locked transitions and folds
var ReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// Run executes fn in a transaction with the given options
func (r *TxRunner) Run(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err = r.runOnce(ctx, opts, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == r.maxRetries {
			break
		}

		r.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": r.maxRetries,
		}).Warn("Transaction aborted by database, retrying")

		if r.onRetry != nil {
			r.onRetry()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", r.maxRetries, err)
}

func (r *TxRunner) runOnce(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsRetryable reports whether the database aborted the transaction and it may be replayed
func IsRetryable(err error) bool {
	if errors.Is(err, ErrStaleWrite) {
		return true
	}
	switch pqCode(err) {
	case pqSerializationFailure, pqDeadlockDetected:
		return true
	default:
		return false
	}
}

// IsExclusionViolation reports whether an exclusion constraint rejected the write
func IsExclusionViolation(err error) bool {
	return pqCode(err) == pqExclusionViolation
}

// IsUniqueViolation reports whether a unique constraint rejected the write
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}
