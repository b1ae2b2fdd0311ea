package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/moneyledger/internal/domain"
)

// PostgreSQL error codes the ledger reacts to.
const (
	pgErrLockNotAvailable = "55P03"
	pgErrQueryCanceled    = "57014"
	pgErrForeignKey       = "23503"
)

// mapError translates driver errors into domain errors where one applies.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrLockNotAvailable, pgErrQueryCanceled:
			return errors.Join(domain.ErrLockTimeout, err)
		case pgErrForeignKey:
			return errors.Join(domain.ErrAccountNotFound, err)
		}
	}

	return err
}
