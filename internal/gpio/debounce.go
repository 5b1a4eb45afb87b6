package gpio

import "time"

// debouncer accepts a level only after it has been stable for window.
type debouncer struct {
	window time.Duration

	primed    bool
	stable    bool
	candidate bool
	since     time.Time
}

// update feeds one raw reading and reports whether it completed a press.
// The first reading only establishes the resting level.
func (d *debouncer) update(active bool, now time.Time) bool {
	if !d.primed {
		d.primed = true
		d.stable = active
		d.candidate = active
		d.since = now
		return false
	}

	if active != d.candidate {
		d.candidate = active
		d.since = now
	}
	if d.candidate == d.stable || now.Sub(d.since) < d.window {
		return false
	}

	d.stable = d.candidate

	return d.stable
}
