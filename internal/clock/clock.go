// Package clock supplies review timestamps. The scheduler never reads the
// clock itself; callers take an instant from a Clock and pass it in.
package clock

import "time"

// Clock abstracts time so reviews can be replayed deterministically in tests.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Func adapts a function to the Clock interface.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}
