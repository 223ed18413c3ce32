package sync

import (
	"context"
	gosync "sync"
	"time"
)

// State represents the current state of the polled operation.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

// String returns a short label for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "syncing"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Status holds the outcome of the most recent runs.
type Status struct {
	State     State
	LastRun   time.Time
	LastOK    time.Time
	LastError error
	Runs      int
	InFlight  int
}

// Ticker is the subset of time.Ticker the poller needs. Tests substitute a
// manually driven implementation.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// RunFunc is one poll. Its error is recorded in Status and otherwise
// ignored; a failed run never suppresses later runs.
type RunFunc func(ctx context.Context) error

// Poller runs a function immediately on Start and then on every tick of a
// fixed interval until Stop. Each run happens on its own goroutine so a
// slow run never delays the next tick.
type Poller struct {
	run       RunFunc
	interval  time.Duration
	newTicker TickerFunc

	mu      gosync.Mutex
	status  Status
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	runs    gosync.WaitGroup
}

// New creates a Poller. interval <= 0 falls back to 30 seconds and a nil
// newTicker uses real time.
func New(run RunFunc, interval time.Duration, newTicker TickerFunc) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if newTicker == nil {
		newTicker = NewTicker
	}
	return &Poller{
		run:       run,
		interval:  interval,
		newTicker: newTicker,
	}
}

// Interval returns the fixed polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start fires one run immediately and arms the ticker. It returns false if
// the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return false
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	ticker := p.newTicker(p.interval)
	stopCh, done := p.stopCh, p.done
	p.mu.Unlock()

	p.fire(ctx)
	go p.loop(ctx, ticker, stopCh, done)
	return true
}

// Stop halts the ticker and releases it. Runs already in flight are left to
// finish on their own. Stop is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.done
	p.mu.Unlock()

	<-done
}

// Running reports whether the ticker is armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wait blocks until every run started so far has returned.
func (p *Poller) Wait() {
	p.runs.Wait()
}

// Status returns a copy of the current status.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(ctx context.Context, ticker Ticker, stopCh, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			p.mu.Lock()
			if p.stopCh == stopCh {
				p.running = false
			}
			p.mu.Unlock()
			return
		case <-ticker.C():
			p.fire(ctx)
		}
	}
}

// fire starts one run on its own goroutine.
func (p *Poller) fire(ctx context.Context) {
	p.runs.Add(1)
	p.begin()
	go func() {
		defer p.runs.Done()
		err := p.run(ctx)
		p.finish(err)
	}()
}

func (p *Poller) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.InFlight++
	p.status.State = StateRunning
}

func (p *Poller) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.status.InFlight--
	p.status.Runs++
	p.status.LastRun = now
	p.status.LastError = err
	if err == nil {
		p.status.LastOK = now
	}

	switch {
	case p.status.InFlight > 0:
		p.status.State = StateRunning
	case err != nil:
		p.status.State = StateError
	default:
		p.status.State = StateIdle
	}
}
