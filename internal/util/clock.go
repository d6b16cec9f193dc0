package util

import "time"

// Now returns the current UTC time truncated to the database's microsecond precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
