package engine

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"zapstream/internal/grid"
	"zapstream/internal/leaderboard"
	"zapstream/internal/models"
	"zapstream/internal/notify"
	"zapstream/internal/session"
	"zapstream/internal/zap"
)

const eventChanSize = 1024

// Listener receives the engine's outputs. Callbacks run on the engine
// goroutine and must not block.
type Listener interface {
	OnLeaderboard(entries []models.LeaderboardEntry)
	OnGrid(plan grid.Plan)
	OnNotification(n models.Notification)
	OnSession(view models.SessionView)
}

type eventType int

const (
	evReceipt eventType = iota + 1
	evProfile
	evBacklogComplete
	evSessionSwitch
	evOptions
)

// event is the single envelope everything enters the engine through.
type event struct {
	typ        eventType
	receipt    *nostr.Event
	pubkey     string
	profile    models.Profile
	generation uint64
	target     string
	opts       grid.Options
}

// Engine is the single logical actor for one live session. All state is
// owned by the Run goroutine; the Submit methods only enqueue, so the stream
// sources and the engine never share mutable state.
type Engine struct {
	sess  *session.Session
	agg   *leaderboard.Aggregator
	sched *notify.Scheduler

	// resolved remembers payer metadata delivered this session, so a repeat
	// payer's later zaps notify without waiting on a fetch that will never
	// happen again.
	resolved map[string]models.Profile

	opts     grid.Options
	listener Listener

	// requestProfile is invoked once per newly-seen payer so the transport
	// can resolve kind-0 metadata. Must not block; may be nil.
	requestProfile func(pubkey string, generation uint64)

	events   chan event
	debounce time.Duration

	// Mirrors the session generation for transport goroutines that need to
	// stamp callbacks without entering the loop.
	generation atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Engine for the given target with the given display options.
func New(target string, opts grid.Options, listener Listener, debounce time.Duration) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		sess:     session.New(target),
		agg:      leaderboard.NewAggregator(),
		resolved: make(map[string]models.Profile),
		opts:     opts,
		listener: listener,
		events:   make(chan event, eventChanSize),
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	e.sched = notify.NewScheduler(listener.OnNotification)
	return e
}

// OnNewPayer registers the profile-resolution trigger. Call before Start.
func (e *Engine) OnNewPayer(fn func(pubkey string, generation uint64)) {
	e.requestProfile = fn
}

// Start launches the engine loop.
func (e *Engine) Start() {
	go e.run()
}

// Stop shuts the loop down and waits for it to exit.
func (e *Engine) Stop() {
	e.cancel()
	<-e.done
}

// Generation returns the current session generation. Transports capture it
// when they begin an async fetch and stamp the completion with it.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// SubmitReceipt enqueues a raw zap receipt event.
func (e *Engine) SubmitReceipt(ev *nostr.Event) {
	e.enqueue(event{typ: evReceipt, receipt: ev})
}

// SubmitProfile enqueues resolved payer metadata. generation must be the
// value of Generation() captured when the fetch began; stale completions
// from a previous session are dropped.
func (e *Engine) SubmitProfile(pubkey string, profile models.Profile, generation uint64) {
	e.enqueue(event{typ: evProfile, pubkey: pubkey, profile: profile, generation: generation})
}

// MarkBacklogComplete signals that historical delivery finished and
// subsequent receipts are live.
func (e *Engine) MarkBacklogComplete() {
	e.enqueue(event{typ: evBacklogComplete})
}

// SwitchSession resets all state and rebinds the engine to a new target.
func (e *Engine) SwitchSession(target string) {
	e.enqueue(event{typ: evSessionSwitch, target: target})
}

// SetOptions updates the display options and triggers a replan.
func (e *Engine) SetOptions(opts grid.Options) {
	e.enqueue(event{typ: evOptions, opts: opts})
}

func (e *Engine) enqueue(ev event) {
	select {
	case e.events <- ev:
	case <-e.ctx.Done():
	}
}

func (e *Engine) run() {
	defer close(e.done)

	e.emitSession()

	// A single timer coalesces grid replans. Accumulation is never deferred;
	// only the O(n) layout pass is.
	replanTimer := time.NewTimer(e.debounce)
	if !replanTimer.Stop() {
		<-replanTimer.C
	}
	replanPending := false

	for {
		select {
		case ev := <-e.events:
			if e.handle(ev) && !replanPending {
				replanPending = true
				replanTimer.Reset(e.debounce)
			}
		case <-replanTimer.C:
			replanPending = false
			e.replan()
		case <-e.ctx.Done():
			replanTimer.Stop()
			return
		}
	}
}

// handle applies one event and reports whether the grid needs replanning.
func (e *Engine) handle(ev event) bool {
	switch ev.typ {
	case evReceipt:
		return e.handleReceipt(ev.receipt)

	case evProfile:
		if ev.generation != e.sess.Generation() {
			log.Printf("[ENGINE] Dropping stale profile for %s (gen %d != %d)",
				ev.pubkey, ev.generation, e.sess.Generation())
			return false
		}
		e.resolved[ev.pubkey] = ev.profile
		e.agg.AttachProfile(ev.pubkey, ev.profile)
		e.sched.OnProfileResolved(ev.pubkey, ev.profile)
		e.emitLeaderboard()
		return true

	case evBacklogComplete:
		log.Printf("[ENGINE] Backlog complete: %d records", e.sess.Len())
		e.sess.MarkBacklogComplete()
		e.emitSession()
		return true

	case evSessionSwitch:
		log.Printf("[ENGINE] Switching session to %s", ev.target)
		e.sess.Reset(ev.target)
		e.generation.Store(e.sess.Generation())
		e.agg.Reset()
		e.resolved = make(map[string]models.Profile)
		e.sched.OnSessionReset()
		e.emitLeaderboard()
		e.emitSession()
		return true

	case evOptions:
		e.opts = ev.opts
		return true
	}
	return false
}

func (e *Engine) handleReceipt(raw *nostr.Event) bool {
	record, err := zap.Decode(raw)
	if err != nil {
		if errors.Is(err, zap.ErrInvoice) {
			// Worth a diagnostic line; missing tags and bad JSON are routine
			// legacy noise and dropped without comment.
			log.Printf("[ENGINE] Dropping receipt %s: %v", raw.ID, err)
		}
		return false
	}

	if !e.sess.Add(record) {
		return false // duplicate delivery or foreign target
	}

	firstSeen := e.agg.Total(record.PayerPubkey) == nil
	e.agg.Accumulate(record)
	if firstSeen && e.requestProfile != nil {
		e.requestProfile(record.PayerPubkey, e.sess.Generation())
	}
	e.sched.OnRecordAdded(record, e.sess)
	// A repeat payer's metadata has already arrived; deliver the pending
	// notification now instead of waiting on a fetch that will not recur.
	if profile, ok := e.resolved[record.PayerPubkey]; ok {
		e.sched.OnProfileResolved(record.PayerPubkey, profile)
	}
	e.emitLeaderboard()
	e.emitSession()
	return true
}

func (e *Engine) emitSession() {
	e.listener.OnSession(models.SessionView{
		Target:          e.sess.Key(),
		BacklogComplete: e.sess.BacklogComplete(),
		Records:         e.sess.Len(),
	})
}

// emitLeaderboard pushes a fresh projection of every payer. Always recomputed
// on the spot; the listener never sees a stale board, and decides its own
// display depth.
func (e *Engine) emitLeaderboard() {
	e.listener.OnLeaderboard(e.agg.TopN(e.agg.Len()))
}

// replan rebuilds the grid plan from the current projections.
func (e *Engine) replan() {
	var records []*models.ZapRecord
	if e.opts.SortMode == grid.SortByTime {
		records = e.sess.RecordsByTime()
	} else {
		records = e.sess.RecordsByAmount()
	}

	items := make([]grid.Item, len(records))
	for i, r := range records {
		items[i] = grid.Item{ID: r.ID, AmountSats: r.AmountSats}
	}
	e.listener.OnGrid(grid.BuildPlan(items, e.opts))
}
