//nolint:revive // exported
package dbtime

import "time"

// Rows store times as unix milliseconds in UTC.

func DBNow() time.Time {
	return DBTime(time.Now())
}

func DBTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func ToMillis(t time.Time) int64 {
	return DBTime(t).UnixMilli()
}

func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
