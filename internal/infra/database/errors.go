package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// wrapPgError adds the postgres error code to the message when there is one.
func wrapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: duplicate key (%s): %w", op, pgErr.ConstraintName, err)
		case pgCheckViolation:
			return fmt.Errorf("%s: check constraint %s violated: %w", op, pgErr.ConstraintName, err)
		}
		return fmt.Errorf("%s: postgres error %s: %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
