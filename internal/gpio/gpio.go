package gpio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
)

// Event is one accepted button press.
type Event struct {
	Pin int
	At  time.Time
}

type button struct {
	pin  int
	file *os.File
}

// Reader polls button value files and keeps only the most recent press.
type Reader struct {
	cfg     Config
	logger  logger.Logger
	buttons []button

	mu    sync.Mutex
	last  Event
	ready bool
}

// New opens every configured pin, exporting it first when needed. A pin
// that cannot be opened is logged and skipped.
func New(cfg Config, log logger.Logger) (*Reader, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	r := &Reader{cfg: cfg, logger: log}
	for _, pin := range cfg.Pins {
		f, err := r.open(pin)
		if err != nil {
			log.Warn().Err(err).Int("pin", pin).Msg("Skipping GPIO pin")
			continue
		}
		r.buttons = append(r.buttons, button{pin: pin, file: f})
	}

	log.Debug().
		Int("configured", len(cfg.Pins)).
		Int("opened", len(r.buttons)).
		Bool("active_low", cfg.ActiveLow).
		Dur("debounce", cfg.Debounce).
		Msg("GPIO reader initialized")

	return r, nil
}

func (r *Reader) valuePath(pin int) string {
	return filepath.Join(r.cfg.BasePath, fmt.Sprintf("gpio%d", pin), "value")
}

func (r *Reader) open(pin int) (*os.File, error) {
	errFactory := errors.New()

	path := r.valuePath(pin)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.export(pin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	return f, nil
}

// export is best effort. Pins exported at boot leave the export file read-only.
func (r *Reader) export(pin int) {
	id := []byte(strconv.Itoa(pin))
	if err := os.WriteFile(filepath.Join(r.cfg.BasePath, "export"), id, defaultFilePerm); err != nil {
		r.logger.Debug().Err(errors.New().Wrap(ErrExportFailed, err)).Int("pin", pin).Msg("GPIO export failed")
		return
	}

	direction := filepath.Join(r.cfg.BasePath, fmt.Sprintf("gpio%d", pin), "direction")
	if err := os.WriteFile(direction, []byte("in"), defaultFilePerm); err != nil {
		r.logger.Debug().Err(err).Int("pin", pin).Msg("Failed to set GPIO direction")
	}
}

// Pins returns the pins being polled.
func (r *Reader) Pins() []int {
	pins := make([]int, len(r.buttons))
	for i, b := range r.buttons {
		pins[i] = b.pin
	}

	return pins
}

// Run polls every opened pin on its own goroutine until ctx is cancelled,
// then closes the value files.
func (r *Reader) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, b := range r.buttons {
		wg.Add(1)
		go func(b button) {
			defer wg.Done()
			r.poll(ctx, b)
		}(b)
	}
	wg.Wait()

	for _, b := range r.buttons {
		b.file.Close()
	}
}

func (r *Reader) poll(ctx context.Context, b button) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	d := debouncer{window: r.cfg.Debounce}
	buf := make([]byte, 8)
	failing := false

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			active, err := r.read(b.file, buf)
			if err != nil {
				if !failing {
					r.logger.Warn().Err(err).Int("pin", b.pin).Msg("Failed to read GPIO value")
					failing = true
				}
				continue
			}
			failing = false

			if d.update(active, now) {
				r.store(Event{Pin: b.pin, At: now})
			}
		}
	}
}

func (r *Reader) read(f *os.File, buf []byte) (bool, error) {
	n, err := f.ReadAt(buf, 0)
	if n == 0 {
		return false, errors.New().Wrap(ErrReadFailed, err)
	}

	value := bytes.TrimSpace(buf[:n])
	if len(value) == 0 {
		return false, errors.New().New(ErrReadFailed)
	}

	return (value[0] == '1') != r.cfg.ActiveLow, nil
}

// store overwrites any unconsumed event.
func (r *Reader) store(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		r.logger.Debug().Int("pin", r.last.Pin).Msg("Overwriting unconsumed button event")
	}
	r.last = ev
	r.ready = true
	r.logger.Debug().Int("pin", ev.Pin).Msg("Button pressed")
}

// Poll returns the pending event without consuming it.
func (r *Reader) Poll() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last, r.ready
}

// Clear drops the pending event.
func (r *Reader) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ready = false
}

// Take returns and clears the pending event.
func (r *Reader) Take() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.last, r.ready
	r.ready = false

	return ev, ok
}
