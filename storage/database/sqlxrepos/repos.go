// Package sqlxrepos implements the domain repositories on PostgreSQL via
// sqlx. Methods taking an exec override run against the caller's open
// transaction instead of the pool.
package sqlxrepos

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/ujuzi/core"
)

// pq error codes
const pqUniqueViolation = "23505"

// execer is the slice of the sqlx API the repositories need; *sqlx.DB and
// *sqlx.Tx both satisfy it.
type execer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// getExec resolves a service-provided executor override, falling back to the
// pool. Overrides are transactions begun by database.DB and always satisfy
// execer.
func getExec(db *sqlx.DB, svcExec []core.DBExecutor) execer {
	if len(svcExec) > 0 {
		if ex, ok := svcExec[0].(execer); ok {
			return ex
		}
	}
	return db
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}
