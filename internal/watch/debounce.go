package watch

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultQuietWindow is how long the tree must stay quiet before a
	// coalesced rebuild fires.
	DefaultQuietWindow = 2 * time.Second
	// DefaultMaxDelay bounds how long a rebuild can be postponed by a
	// steady stream of changes.
	DefaultMaxDelay = 30 * time.Second
)

// Debouncer coalesces bursts of change notifications into single rebuild
// triggers. A rebuild fires once the quiet window elapses after the last
// notification, or once the first notification has waited MaxDelay,
// whichever comes first.
type Debouncer struct {
	quiet time.Duration
	max   time.Duration
	emit  func(cause string, count int)

	requests  chan struct{}
	readyOnce sync.Once
	ready     chan struct{}
}

// NewDebouncer creates a debouncer invoking emit from its Run goroutine.
func NewDebouncer(quiet, max time.Duration, emit func(cause string, count int)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}
	if max <= 0 {
		max = DefaultMaxDelay
	}
	return &Debouncer{
		quiet:    quiet,
		max:      max,
		emit:     emit,
		requests: make(chan struct{}, 64),
		ready:    make(chan struct{}),
	}
}

// Request records one change notification. It never blocks; when the buffer
// is full a flush is already due and the extra notification carries no
// information.
func (d *Debouncer) Request() {
	select {
	case d.requests <- struct{}{}:
	default:
	}
}

// Ready is closed once Run is consuming requests. Intended for deterministic
// startup sequencing in tests.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Run owns all debounce state on a single goroutine and blocks until ctx is
// done. The emit callback runs on this goroutine, so a slow rebuild
// naturally serializes triggers while further requests keep coalescing.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := time.NewTimer(time.Hour)
	stopTimer(quietTimer)
	maxTimer := time.NewTimer(time.Hour)
	stopTimer(maxTimer)

	var quietC, maxC <-chan time.Time
	count := 0

	flush := func(cause string) {
		if count == 0 {
			return
		}
		n := count
		count = 0
		quietC, maxC = nil, nil
		d.emit(cause, n)
	}

	d.readyOnce.Do(func() { close(d.ready) })

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.requests:
			count++
			resetTimer(quietTimer, d.quiet)
			quietC = quietTimer.C
			if count == 1 {
				resetTimer(maxTimer, d.max)
				maxC = maxTimer.C
			}
		case <-quietC:
			flush("quiet")
		case <-maxC:
			flush("max_delay")
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
