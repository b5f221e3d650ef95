package eventloop

import "time"

// clockNow returns the current monotonic time. It exists as a single choke
// point so that tests can stub it without touching every call site, and so
// GetCurrentTime and the timeout source agree on exactly the same clock.
var clockNow = time.Now

// GetCurrentTime returns the loop's view of the current time, taken from a
// monotonic clock reading. Timeout scheduling and each source's last-run
// time are both derived from this same clock, so comparisons between them are always
// monotonic regardless of wall-clock adjustments.
func (l *Loop) GetCurrentTime() time.Time {
	return clockNow()
}
