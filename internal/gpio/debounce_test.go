package gpio

import (
	"testing"
	"time"

	"codeberg.org/mutker/dashmon/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestDebouncerIgnoresGlitches(t *testing.T) {
	t0 := time.Unix(0, 0)
	d := debouncer{window: 50 * time.Millisecond}

	assert.False(t, d.update(false, t0), "first reading sets the resting level")
	assert.False(t, d.update(true, t0.Add(10*time.Millisecond)))
	assert.False(t, d.update(false, t0.Add(30*time.Millisecond)), "bounced back before the window")
	assert.False(t, d.update(false, t0.Add(200*time.Millisecond)))
}

func TestDebouncerAcceptsStablePress(t *testing.T) {
	t0 := time.Unix(0, 0)
	d := debouncer{window: 50 * time.Millisecond}
	d.update(false, t0)

	assert.False(t, d.update(true, t0.Add(10*time.Millisecond)))
	assert.False(t, d.update(true, t0.Add(59*time.Millisecond)))
	assert.True(t, d.update(true, t0.Add(60*time.Millisecond)))
	assert.False(t, d.update(true, t0.Add(100*time.Millisecond)), "held button fires once")

	// release is debounced too but is not an event
	assert.False(t, d.update(false, t0.Add(110*time.Millisecond)))
	assert.False(t, d.update(false, t0.Add(170*time.Millisecond)))
	assert.False(t, d.stable)

	assert.False(t, d.update(true, t0.Add(180*time.Millisecond)))
	assert.True(t, d.update(true, t0.Add(230*time.Millisecond)))
}

func TestDebouncerStartsPressed(t *testing.T) {
	t0 := time.Unix(0, 0)
	d := debouncer{window: 50 * time.Millisecond}

	assert.False(t, d.update(true, t0))
	assert.False(t, d.update(true, t0.Add(time.Second)), "a button held at startup is not a press")
}

func TestLastEventWins(t *testing.T) {
	r := &Reader{logger: logger.New("test")}

	_, ok := r.Poll()
	assert.False(t, ok)

	t0 := time.Unix(0, 0)
	r.store(Event{Pin: 17, At: t0})
	r.store(Event{Pin: 27, At: t0.Add(time.Millisecond)})

	ev, ok := r.Poll()
	assert.True(t, ok)
	assert.Equal(t, 27, ev.Pin)

	ev, ok = r.Poll()
	assert.True(t, ok, "poll does not consume")
	assert.Equal(t, 27, ev.Pin)

	ev, ok = r.Take()
	assert.True(t, ok)
	assert.Equal(t, 27, ev.Pin)

	_, ok = r.Take()
	assert.False(t, ok)

	r.store(Event{Pin: 17})
	r.Clear()
	_, ok = r.Poll()
	assert.False(t, ok)
}
