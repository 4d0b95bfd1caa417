// Package client implements the board view's reconciliation engine: the
// state machine that keeps one open board in sync with the server. It is
// rendering-framework independent; a UI drives it through Open/Apply/Sleep/
// Wake and observes it through the OnChange callback.
package client

import (
	"context"
	"sync"
	"time"

	"corkboard/api/internal/board"
)

// State describes where the local copy stands relative to the server.
type State int

const (
	// StateClean: local copy matches the last known server state.
	StateClean State = iota
	// StatePending: an optimistic local change is in flight.
	StatePending
	// StateReconciling: a refresh signal arrived and a re-fetch is running.
	StateReconciling
)

// Mode gates all background activity.
type Mode int

const (
	ModeActive Mode = iota
	ModeSleep
)

// Gateway applies one mutation server-side.
type Gateway interface {
	Apply(ctx context.Context, m Mutation) error
}

// Fetcher retrieves the full current board document.
type Fetcher interface {
	Fetch(ctx context.Context) (*board.Board, error)
}

// Stream delivers refresh signals. onError fires when the stream breaks;
// the returned stop func tears the subscription down.
type Stream interface {
	Subscribe(ctx context.Context, onRefresh func(), onError func(error)) (stop func(), err error)
}

// Config wires an Engine. ReconnectDelay is the fixed pause before re-opening
// a broken stream; Delay overrides the timer for tests.
type Config struct {
	Gateway        Gateway
	Fetcher        Fetcher
	Stream         Stream
	ReconnectDelay time.Duration
	OnChange       func(*board.Board)
	OnError        func(error)

	// After schedules a callback; defaults to time.AfterFunc.
	After func(d time.Duration, f func()) *time.Timer
}

type sentValue struct {
	value   string
	extract func(*board.Board) string
}

// Engine is the per-board-view reconciliation state machine.
type Engine struct {
	mu    sync.Mutex
	board *board.Board
	state State
	mode  Mode

	visible bool

	gateway  Gateway
	fetcher  Fetcher
	stream   Stream
	delay    time.Duration
	after    func(d time.Duration, f func()) *time.Timer
	onChange func(*board.Board)
	onError  func(error)

	// lastSent tracks, per field-group, the value this client most recently
	// wrote. Used to tell our own echo apart from genuine external changes.
	lastSent map[string]sentValue

	stopStream     func()
	reconnectTimer *time.Timer
}

func NewEngine(cfg Config) *Engine {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.After == nil {
		cfg.After = time.AfterFunc
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func(*board.Board) {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}
	return &Engine{
		mode:     ModeActive,
		visible:  true,
		gateway:  cfg.Gateway,
		fetcher:  cfg.Fetcher,
		stream:   cfg.Stream,
		delay:    cfg.ReconnectDelay,
		after:    cfg.After,
		onChange: cfg.OnChange,
		onError:  cfg.OnError,
		lastSent: make(map[string]sentValue),
	}
}

// Open fetches the board and subscribes to refresh signals.
func (e *Engine) Open(ctx context.Context) error {
	b, err := e.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.board = b
	e.state = StateClean
	e.mode = ModeActive
	e.mu.Unlock()
	e.onChange(b)

	return e.subscribe(ctx)
}

func (e *Engine) subscribe(ctx context.Context) error {
	stop, err := e.stream.Subscribe(ctx,
		func() { e.handleRefresh(ctx) },
		func(streamErr error) { e.handleStreamError(ctx, streamErr) },
	)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.stopStream = stop
	e.mu.Unlock()
	return nil
}

// Board returns the current local copy. Callers must not mutate it; all
// changes go through Apply.
func (e *Engine) Board() *board.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.board
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Apply runs one optimistic mutation: transform the local copy immediately,
// send the gateway call, and roll the local copy back if the call fails.
// There is no automatic retry; the error goes back to the caller.
func (e *Engine) Apply(ctx context.Context, m Mutation) error {
	if m.NoOp {
		return nil
	}

	e.mu.Lock()
	snapshot := e.board.Clone()
	if err := m.Transform(e.board); err != nil {
		e.board = snapshot
		e.mu.Unlock()
		return err
	}
	if m.FieldGroup != "" && m.Extract != nil {
		e.lastSent[m.FieldGroup] = sentValue{value: m.Extract(e.board), extract: m.Extract}
	}
	e.state = StatePending
	current := e.board
	e.mu.Unlock()
	e.onChange(current)

	if err := e.gateway.Apply(ctx, m); err != nil {
		e.mu.Lock()
		e.board = snapshot
		e.state = StateClean
		if m.FieldGroup != "" {
			delete(e.lastSent, m.FieldGroup)
		}
		e.mu.Unlock()
		e.onChange(snapshot)
		return err
	}

	e.mu.Lock()
	e.state = StateClean
	e.mu.Unlock()
	return nil
}

// handleRefresh re-fetches the board after an invalidation signal. The fresh
// snapshot replaces the local copy wholesale, except that field-groups whose
// incoming value equals what this client last sent are our own write echoing
// back and are left alone.
func (e *Engine) handleRefresh(ctx context.Context) {
	e.mu.Lock()
	if e.mode == ModeSleep {
		e.mu.Unlock()
		return
	}
	e.state = StateReconciling
	e.mu.Unlock()

	fresh, err := e.fetcher.Fetch(ctx)
	if err != nil {
		e.mu.Lock()
		e.state = StateClean
		e.mu.Unlock()
		e.onError(err)
		return
	}

	e.mu.Lock()
	for group, sent := range e.lastSent {
		incoming := sent.extract(fresh)
		if incoming == sent.value {
			// Own echo: consume the marker, value already local.
			delete(e.lastSent, group)
			continue
		}
		// Someone else changed this field since we wrote it. The fresh
		// value wins; our marker is stale.
		delete(e.lastSent, group)
	}
	e.board = fresh
	e.state = StateClean
	e.mu.Unlock()
	e.onChange(fresh)
}

func (e *Engine) handleStreamError(ctx context.Context, streamErr error) {
	e.onError(streamErr)

	e.mu.Lock()
	if e.mode != ModeActive || !e.visible {
		e.mu.Unlock()
		return
	}
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
	}
	e.reconnectTimer = e.after(e.delay, func() {
		e.mu.Lock()
		if e.mode != ModeActive {
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
		if err := e.subscribe(ctx); err != nil {
			e.handleStreamError(ctx, err)
			return
		}
		// The stream may have missed signals while down.
		e.handleRefresh(ctx)
	})
	e.mu.Unlock()
}

// Sleep closes the stream and cancels any pending reconnect. Nothing
// background runs until Wake.
func (e *Engine) Sleep() {
	e.mu.Lock()
	e.mode = ModeSleep
	stop := e.stopStream
	e.stopStream = nil
	if e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
	}
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Wake does one refresh, resubscribes, and returns to active mode. Waking an
// already-active engine keeps the live subscription instead of stacking a
// second one.
func (e *Engine) Wake(ctx context.Context) error {
	e.mu.Lock()
	e.mode = ModeActive
	subscribed := e.stopStream != nil
	e.mu.Unlock()

	e.handleRefresh(ctx)
	if subscribed {
		return nil
	}
	return e.subscribe(ctx)
}

// SetVisible tells the engine whether the view is on screen. A hidden view
// never schedules reconnects.
func (e *Engine) SetVisible(visible bool) {
	e.mu.Lock()
	e.visible = visible
	if !visible && e.reconnectTimer != nil {
		e.reconnectTimer.Stop()
		e.reconnectTimer = nil
	}
	e.mu.Unlock()
}

// Close tears the engine down.
func (e *Engine) Close() {
	e.Sleep()
}
