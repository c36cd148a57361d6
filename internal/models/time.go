package models

import "time"

// NowMillis returns the current time as a Unix millisecond timestamp.
// Every timestamp on the wire uses this unit.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Millis converts t to a Unix millisecond timestamp
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}
