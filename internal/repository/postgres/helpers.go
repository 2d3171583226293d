package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/CaioWing/checkpoint/internal/domain"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// storageError passes domain errors through and hides everything else behind
// domain.ErrStorage so pgx types never reach callers.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		domain.ErrNotFound, domain.ErrConflict, domain.ErrInvalidInput, domain.ErrAlreadyEntered,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrConflict, op)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func inTx(ctx context.Context, db beginner, op string, fn func(pgx.Tx) error) error {
	return storageError(op, pgx.BeginFunc(ctx, db, fn))
}

// pgTime drops precision PostgreSQL does not keep so values returned to
// callers equal what was stored.
func pgTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func pgTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := pgTime(*t)
	return &v
}

// checkinTime truncates a check-in time for storage. A check-in that follows
// the last checkout within the same microsecond is moved just past it so the
// truncation cannot reorder the two events.
func checkinTime(at time.Time, checkoutAt *time.Time) time.Time {
	t := pgTime(at)
	if checkoutAt != nil && at.After(*checkoutAt) && !t.After(*checkoutAt) {
		return pgTime(checkoutAt.Add(time.Microsecond))
	}
	return t
}
