package catalog

import (
	"sync"
	"time"

	"cinease/models"
)

const (
	DefaultSettleDelay = 300 * time.Millisecond
	DefaultInterval    = 5 * time.Second
)

// RotationState is a snapshot of the featured carousel. Current is nil when
// no movie is featured.
type RotationState struct {
	Current       *models.Movie `json:"current"`
	Index         int           `json:"index"`
	Count         int           `json:"count"`
	Transitioning bool          `json:"transitioning"`
}

// Rotation shows one featured movie at a time. A move is two-phase: the
// carousel enters the transitioning state, and only after the settle delay
// does the index change. While transitioning every other move is refused.
//
// A single pending timer and a single ticker are owned by the rotation.
// Both are cancelled by Stop and by any change to the featured set, and a
// generation counter keeps a timer that already fired from applying stale
// state.
type Rotation struct {
	settle   time.Duration
	interval time.Duration

	mu            sync.Mutex
	featured      []models.Movie
	index         int
	transitioning bool
	gen           uint64
	pending       *time.Timer
	onChange      func(RotationState)

	running bool
	reset   chan struct{}
	done    chan struct{}
}

func NewRotation(movies []models.Movie, settle, interval time.Duration) *Rotation {
	if settle < 0 {
		settle = 0
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Rotation{
		settle:   settle,
		interval: interval,
		featured: Featured(movies),
		reset:    make(chan struct{}, 1),
	}
}

// Featured keeps the flagged movies in catalog order.
func Featured(movies []models.Movie) []models.Movie {
	var out []models.Movie
	for _, m := range movies {
		if m.Featured {
			out = append(out, m)
		}
	}
	return out
}

// OnChange registers fn to run after every state change, for callers that
// push carousel updates instead of polling State. fn runs without the
// rotation's lock held.
func (r *Rotation) OnChange(fn func(RotationState)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Rotation) State() RotationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Rotation) stateLocked() RotationState {
	st := RotationState{Index: r.index, Count: len(r.featured), Transitioning: r.transitioning}
	if len(r.featured) > 0 {
		m := r.featured[r.index]
		st.Current = &m
	}
	return st
}

// SetMovies re-derives the featured subset. When the subset is the same
// movies in the same order only their details are refreshed and a transition
// in flight still lands. Otherwise the transition is abandoned, the index is
// clamped, and a size change restarts the auto-advance interval.
func (r *Rotation) SetMovies(movies []models.Movie) {
	next := Featured(movies)
	r.mu.Lock()
	same := sameMovies(r.featured, next)
	sizeChanged := len(next) != len(r.featured)
	r.featured = next
	if !same {
		r.cancelPendingLocked()
		if r.index >= len(next) {
			r.index = 0
		}
	}
	st, fn := r.stateLocked(), r.onChange
	r.mu.Unlock()

	if sizeChanged {
		select {
		case r.reset <- struct{}{}:
		default:
		}
	}
	if fn != nil && !same {
		fn(st)
	}
}

func sameMovies(a, b []models.Movie) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// GoTo starts a transition to index i, wrapping out of range values modulo
// the number of featured movies. It reports false and changes nothing when
// i is already current, a transition is in flight, or nothing is featured.
func (r *Rotation) GoTo(i int) bool {
	r.mu.Lock()
	ok := r.goToLocked(i)
	st, fn := r.stateLocked(), r.onChange
	r.mu.Unlock()

	if ok && fn != nil {
		fn(st)
	}
	return ok
}

func (r *Rotation) goToLocked(i int) bool {
	n := len(r.featured)
	if n == 0 {
		return false
	}
	idx := ((i % n) + n) % n
	if idx == r.index || r.transitioning {
		return false
	}
	r.transitioning = true
	gen := r.gen
	r.pending = time.AfterFunc(r.settle, func() { r.finish(gen, idx) })
	return true
}

func (r *Rotation) finish(gen uint64, idx int) {
	r.mu.Lock()
	if gen != r.gen || !r.transitioning {
		r.mu.Unlock()
		return
	}
	r.index = idx
	r.transitioning = false
	r.pending = nil
	st, fn := r.stateLocked(), r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(st)
	}
}

// Advance moves to the next featured movie, the step the auto-advance timer
// takes. It does nothing with fewer than two movies or mid-transition.
func (r *Rotation) Advance() bool {
	return r.advance(nil)
}

// advance takes the step unless done is closed; the check and the step
// happen under one lock so Stop cannot race a tick.
func (r *Rotation) advance(done <-chan struct{}) bool {
	r.mu.Lock()
	if done != nil {
		select {
		case <-done:
			r.mu.Unlock()
			return false
		default:
		}
	}
	ok := false
	if n := len(r.featured); n >= 2 && !r.transitioning {
		ok = r.goToLocked((r.index + 1) % n)
	}
	st, fn := r.stateLocked(), r.onChange
	r.mu.Unlock()

	if ok && fn != nil {
		fn(st)
	}
	return ok
}

// Start runs the auto-advance loop until Stop.
func (r *Rotation) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.done = make(chan struct{})
	go r.loop(r.done)
}

func (r *Rotation) loop(done <-chan struct{}) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.reset:
			t.Reset(r.interval)
		case <-t.C:
			r.advance(done)
		}
	}
}

// Stop ends the auto-advance loop and abandons any transition in flight.
func (r *Rotation) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		close(r.done)
		r.running = false
	}
	r.cancelPendingLocked()
}

func (r *Rotation) cancelPendingLocked() {
	r.gen++
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.transitioning = false
}
