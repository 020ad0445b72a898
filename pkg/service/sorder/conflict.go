package sorder

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/israelwong/zen-sub001/pkg/movable"
)

// isBusy reports SQLite lock contention, which means another writer holds
// the database and the attempt should be treated as a conflict.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func isOptimisticMiss(err error) bool {
	return errors.Is(err, movable.ErrVersionMismatch) || errors.Is(err, movable.ErrRankMismatch)
}

// classify turns a failure of the write phase into a movable.Error.
func classify(op, scope, itemID string, applied int, err error) error {
	if err == nil {
		return nil
	}
	var merr *movable.Error
	if errors.As(err, &merr) {
		return err
	}
	if isOptimisticMiss(err) || isBusy(err) {
		e := movable.NewConflictError(op, scope, err)
		e.ItemID = itemID
		return e
	}
	return movable.NewPersistenceError(op, scope, itemID, applied, err)
}
