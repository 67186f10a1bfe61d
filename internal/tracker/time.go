package tracker

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now

// nowRFC3339 returns the current UTC time as an RFC3339 string, the
// timestamp format used for every created_at/updated_at column.
func nowRFC3339() string {
	return timeNow().UTC().Format(time.RFC3339)
}
