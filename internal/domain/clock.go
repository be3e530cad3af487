package domain

import "time"

// Clock supplies the current time to reducers and services. Injecting it
// keeps every reducer deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, always in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
