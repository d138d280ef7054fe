// Package system provides a real clock implementation.
package system

import "time"

// Clock reads the wall clock. It is stateless, so callers share it by value.
type Clock struct{}

// New returns a wall Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
