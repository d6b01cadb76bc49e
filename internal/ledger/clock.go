package ledger

import "time"

// Clock supplies the wall time used to stamp donations and events.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)
