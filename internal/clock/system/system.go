// Package system supplies wall-clock time for scrape timestamps.
package system

import "time"

// Clock reports UTC wall-clock time truncated to milliseconds, the precision of the
// scrapedAt field.
type Clock struct{}

// New creates a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Fixed always reports the same instant. Useful for reproducible runs.
type Fixed time.Time

// Now returns the fixed instant in UTC.
func (f Fixed) Now() time.Time {
	return time.Time(f).UTC()
}
