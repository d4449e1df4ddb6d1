package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateKey は一意制約違反
var ErrDuplicateKey = errors.New("duplicate key")

const uniqueViolation = "23505"

// classifyPgError は一意制約違反に ErrDuplicateKey を付与する
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}
