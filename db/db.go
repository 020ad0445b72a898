// Package zendb holds the helpers shared by every storage backend.
package zendb

import (
	"database/sql"
	"errors"

	"github.com/pingcap/log"
)

const (
	LOCAL  = "local"
	MEMORY = "memory"
)

// TxnRollback is meant to be deferred right after BeginTx. It is a no-op
// once the transaction has been committed and logs any other failure.
func TxnRollback(tx *sql.Tx) {
	err := tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("rollback failed: " + err.Error())
	}
}
