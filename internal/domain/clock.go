package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps fetched_at on expanded observations.
var clock = clockwork.NewRealClock()

// SetClock replaces the fetched_at time source, typically with a
// clockwork fake. nil restores the wall clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// fetchTime is the fetched_at value for one expansion: UTC at microsecond
// precision, the resolution PostgreSQL keeps for timestamptz.
func fetchTime() time.Time {
	return clock.Now().UTC().Truncate(time.Microsecond)
}
