package watch

import (
	"sync"
	"time"
)

// EventBatch is the set of events for one path that settled together.
type EventBatch struct {
	Path   string
	Events []Event
	first  time.Time
	timer  *time.Timer
	gen    int
}

// Debouncer coalesces events per path. A batch is emitted once no event
// arrived for delay, or maxDelay after its first event, whichever is first.
type Debouncer struct {
	delay    time.Duration
	maxDelay time.Duration
	out      chan EventBatch

	mu      sync.Mutex
	pending map[string]*EventBatch
	closed  bool
}

// NewDebouncer creates a debouncer. A maxDelay below delay is raised to delay.
func NewDebouncer(delay, maxDelay time.Duration, queueCapacity int) *Debouncer {
	if maxDelay < delay {
		maxDelay = delay
	}
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	return &Debouncer{
		delay:    delay,
		maxDelay: maxDelay,
		out:      make(chan EventBatch, queueCapacity),
		pending:  make(map[string]*EventBatch),
	}
}

// Add records ev and restarts its path's quiet timer.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	b, ok := d.pending[ev.Path]
	if !ok {
		b = &EventBatch{Path: ev.Path, Events: make([]Event, 0, 4), first: time.Now()}
		d.pending[ev.Path] = b
	}
	b.Events = append(b.Events, ev)

	wait := d.delay
	if left := d.maxDelay - time.Since(b.first); left < wait {
		wait = max(left, 0)
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	path, gen := ev.Path, b.gen
	b.timer = time.AfterFunc(wait, func() { d.flush(path, b, gen) })
}

// Batches returns the settled batches. It is closed by Close.
func (d *Debouncer) Batches() <-chan EventBatch {
	return d.out
}

func (d *Debouncer) flush(path string, b *EventBatch, gen int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// a timer that lost the race with a newer Add sees a newer generation
	if d.closed || d.pending[path] != b || b.gen != gen {
		return
	}
	delete(d.pending, path)

	select {
	case d.out <- *b:
	default:
		// consumer is behind; drop the oldest batch
		select {
		case <-d.out:
		default:
		}
		d.out <- *b
	}
}

// Close drops pending events and closes Batches.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, b := range d.pending {
		if b.timer != nil {
			b.timer.Stop()
		}
	}
	d.pending = nil
	close(d.out)
}
