package repository

import (
	"sync/atomic"
	"time"
)

// Clock supplies the timestamps a repository stamps on CreatedAt and UpdatedAt.
type Clock func() time.Time

// lastSystemMicros is the last value SystemClock returned, in Unix microseconds.
var lastSystemMicros atomic.Int64

// SystemClock returns the current UTC time at microsecond precision, the precision
// PostgreSQL keeps for TIMESTAMPTZ. Successive calls are strictly increasing: when the
// wall clock has not advanced a full microsecond, the previous value plus one is returned.
func SystemClock() time.Time {
	for {
		last := lastSystemMicros.Load()
		next := max(time.Now().UnixMicro(), last+1)
		if lastSystemMicros.CompareAndSwap(last, next) {
			return time.UnixMicro(next).UTC()
		}
	}
}

// OrSystem returns c, or SystemClock when c is nil.
func (c Clock) OrSystem() Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
