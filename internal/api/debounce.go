package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDebounceDelay is the quiet window before a burst of queries turns
// into a request.
const DefaultDebounceDelay = 300 * time.Millisecond

// Result is one debounced fetch outcome.
type Result struct {
	Query string
	Data  interface{}
	Err   error
}

// Debouncer coalesces rapid successive queries (a user typing in a search
// box) into at most one fetch per quiet window. Responses that arrive after a
// newer query was submitted are discarded by sequence comparison rather than
// by cancelling the in-flight request.
type Debouncer struct {
	delay time.Duration
	fetch func(ctx context.Context, query string) (interface{}, error)
	log   zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64

	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDebouncer creates a debouncer around a fetch function. A zero delay uses
// DefaultDebounceDelay.
func NewDebouncer(delay time.Duration, fetch func(ctx context.Context, query string) (interface{}, error), log zerolog.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		delay:   delay,
		fetch:   fetch,
		log:     log.With().Str("component", "debouncer").Logger(),
		results: make(chan Result, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Query submits a new query, resetting the quiet window. Only the last query
// of a burst is fetched.
func (d *Debouncer) Query(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.run(seq, query)
	})
}

// run executes one fetch and delivers its result unless a newer query has
// been submitted since.
func (d *Debouncer) run(seq uint64, query string) {
	data, err := d.fetch(d.ctx, query)

	d.mu.Lock()
	stale := seq != d.seq
	d.mu.Unlock()

	if stale {
		d.log.Debug().Str("query", query).Msg("Discarding stale response")
		return
	}

	result := Result{Query: query, Data: data, Err: err}

	// Keep only the newest undelivered result: a slow consumer should see
	// the latest state, not a backlog.
	for {
		select {
		case d.results <- result:
			return
		default:
			select {
			case <-d.results:
			default:
			}
		}
	}
}

// Results delivers debounced fetch outcomes, newest-wins.
func (d *Debouncer) Results() <-chan Result {
	return d.results
}

// Close stops pending timers and cancels any in-flight fetch.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++ // invalidate any fetch still in flight
	d.mu.Unlock()
	d.cancel()
}
