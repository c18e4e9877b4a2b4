package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tanema/scratchvm/conf"
	"github.com/tanema/scratchvm/host"
	"github.com/tanema/scratchvm/lerrors"
	"github.com/tanema/scratchvm/runtime"
)

// scriptEntry is one registered top-level script: which hat starts it, on
// which target, and (for BroadcastReceived/BackdropChanged/KeyPressed) the
// field value a dispatch must match before starting it.
type scriptEntry struct {
	script     *runtime.Script
	target     host.Target
	hat        HatType
	matchField string
}

// Engine is the cooperative scheduler: it owns the thread pool, the hat and
// broadcast registries, clone bookkeeping, and the frame-paced event loop.
// It is not safe for concurrent use from multiple goroutines, deliberately:
// a running script's host primitives (broadcast, stop, create clone) call
// straight back into Engine methods from inside Step, on the same
// goroutine, the same way original_source's engine dispatches primitives
// synchronously from inside its own step. A mutex here would just deadlock
// that reentrancy; the single-goroutine, single-EventLoop-at-a-time
// contract is the actual concurrency model, same as the C++ original.
type Engine struct {
	cfg   Config
	clock host.Clock
	sink  lerrors.Sink

	targets           []host.Target
	executableTargets []host.Target
	clones            map[host.Target]bool

	scripts    []*scriptEntry
	broadcasts []*Broadcast

	threads       []*runtime.VM
	threadsToStop map[*runtime.VM]bool
	activeThread  *runtime.VM
	running       bool

	frameDuration   time.Duration
	redrawHook      host.RedrawHook
	redrawRequested bool
	stopEventLoop   bool

	keys  map[string]bool
	mouse host.MouseState
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock overrides the default system clock.
func WithClock(c host.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithSink overrides the default diagnostic sink.
func WithSink(s lerrors.Sink) Option { return func(e *Engine) { e.sink = s } }

// WithRedrawHook installs the callback Step invokes once per frame.
func WithRedrawHook(h host.RedrawHook) Option { return func(e *Engine) { e.redrawHook = h } }

// New builds an Engine from cfg.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:           cfg,
		clock:         NewSystemClock(),
		sink:          lerrors.DefaultSink,
		clones:        map[host.Target]bool{},
		threadsToStop: map[*runtime.VM]bool{},
		keys:          map[string]bool{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.updateFrameDuration()
	return e
}

func (e *Engine) updateFrameDuration() {
	e.frameDuration = time.Duration(float64(time.Second) / e.cfg.FPS)
}

// AddTarget registers target as part of the project. executable controls
// whether hats run against it (the stage and every non-clone sprite are
// executable at project load; a clone becomes executable only once
// InitClone succeeds).
func (e *Engine) AddTarget(target host.Target, executable bool) {
	e.targets = append(e.targets, target)
	if executable {
		e.executableTargets = append(e.executableTargets, target)
	}
}

// AddBroadcast registers a new named Broadcast and returns it.
func (e *Engine) AddBroadcast(name string) *Broadcast {
	b := NewBroadcast(name)
	e.broadcasts = append(e.broadcasts, b)
	return b
}

// FindBroadcast looks up a Broadcast by name, or nil if none is registered.
func (e *Engine) FindBroadcast(name string) *Broadcast {
	for _, b := range e.broadcasts {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// FindBroadcastByID looks up a Broadcast by its stable identity, or nil if
// none is registered.
func (e *Engine) FindBroadcastByID(id uuid.UUID) *Broadcast {
	for _, b := range e.broadcasts {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// RegisterScript wires a compiled Script to the hat that starts it. matchField
// is the broadcast/backdrop name or key name hats that filter on a field
// compare against; it's ignored for GreenFlag and CloneInit.
func (e *Engine) RegisterScript(script *runtime.Script, target host.Target, hat HatType, matchField string) {
	e.scripts = append(e.scripts, &scriptEntry{script: script, target: target, hat: hat, matchField: matchField})
}

// Start deletes any leftover clones and fires every GreenFlag hat, the
// project-start sequence per original_source's Engine::start.
func (e *Engine) Start() {
	e.deleteClones()
	e.running = true
	e.StartHats(GreenFlag, nil, "")
}

// Stop implements "stop all": it deletes every clone, kills the currently
// active thread (if Stop is called from inside a running script's EXEC
// callback), and marks the rest of the current step's threads to be
// swept at the end of it. If no thread is active, Stop was called from
// outside a running script, so every thread is cleared immediately and the
// project is considered stopped — this matches a known upstream quirk
// (scripts started by other still-running threads during the same step can
// outlive a "stop all"), preserved here for behavioral compatibility.
func (e *Engine) Stop() {
	e.deleteClones()
	if e.activeThread != nil {
		e.activeThread.Stop()
		e.threadsToStop[e.activeThread] = true
		for _, t := range e.threads {
			e.threadsToStop[t] = true
		}
	} else {
		e.threads = nil
		e.running = false
	}
}

// StopTarget stops every running thread on target except exceptScript (pass
// nil to stop all of them).
func (e *Engine) StopTarget(target host.Target, exceptScript *runtime.VM) {
	for _, t := range e.threads {
		if t.Target() == target && t != exceptScript {
			e.threadsToStop[t] = true
		}
	}
}

func (e *Engine) deleteClones() {
	for clone := range e.clones {
		e.DeinitClone(clone)
	}
}

// InitClone creates a clone target: runs its CloneInit hats and admits it
// into the executable-target list, unless the configured clone limit (-1
// meaning unlimited) has already been reached, in which case it's silently
// rejected and reported through the diagnostic sink.
func (e *Engine) InitClone(clone host.Target) bool {
	if e.cfg.CloneLimit != conf.UNLIMITEDCLONES && len(e.clones) >= e.cfg.CloneLimit {
		e.sink.Diagnostic(lerrors.CloneLimitReached, map[string]string{"target": clone.Name()},
			"clone limit reached; clone request dropped")
		return false
	}
	e.clones[clone] = true
	e.executableTargets = append(e.executableTargets, clone)
	e.StartHats(CloneInit, clone, "")
	return true
}

// DeinitClone removes a clone from the executable-target list and clone
// set. It does not stop the clone's running threads; callers that want
// that call StopTarget first.
func (e *Engine) DeinitClone(clone host.Target) {
	delete(e.clones, clone)
	for i, t := range e.executableTargets {
		if t == clone {
			e.executableTargets = append(e.executableTargets[:i], e.executableTargets[i+1:]...)
			break
		}
	}
}

// PushThread starts script against target immediately, without any hat
// matching, and adds it to the running thread list.
func (e *Engine) PushThread(script *runtime.Script, target host.Target) *runtime.VM {
	vm := script.Start(target)
	e.threads = append(e.threads, vm)
	e.running = true
	return vm
}

// RestartThread replaces thread's position in the running list with a fresh
// VM for the same (script, target) pair, or appends it if the old thread
// already fell off the list.
func (e *Engine) RestartThread(thread *runtime.VM) *runtime.VM {
	fresh := thread.Script().Start(thread.Target())
	for i, t := range e.threads {
		if t == thread {
			e.threads[i] = fresh
			return fresh
		}
	}
	e.threads = append(e.threads, fresh)
	return fresh
}

// StartHats starts every registered script of the given hat type whose
// matchField (if any) equals field, scanning the executable-target list from
// its end to its start (the front-most sprite layer, last in the list, is
// started and therefore run first, the same draw/execution ordering
// original_source uses), or only target if it is non-nil. A hat that's configured to restart existing threads
// (GreenFlag) restarts any already-running thread for the same
// (target, script) pair instead of leaving it be; everything else defers to
// an already-running thread.
func (e *Engine) StartHats(hat HatType, target host.Target, field string) []*runtime.VM {
	var started []*runtime.VM
	targets := e.executableTargets
	if target != nil {
		targets = []host.Target{target}
	}
	for i := len(targets) - 1; i >= 0; i-- {
		tgt := targets[i]
		for _, entry := range e.scripts {
			if entry.hat != hat || entry.target != tgt {
				continue
			}
			if hat != GreenFlag && hat != CloneInit && entry.matchField != "" && entry.matchField != field {
				continue
			}
			if hatRestartsExisting(hat) {
				restarted := false
				for _, t := range e.threads {
					if t.Target() == tgt && t.Script() == entry.script {
						started = append(started, e.RestartThread(t))
						restarted = true
						break
					}
				}
				if restarted {
					continue
				}
			} else {
				running := false
				for _, t := range e.threads {
					if t.Target() == tgt && t.Script() == entry.script && !t.AtEnd() {
						running = true
						break
					}
				}
				if running {
					continue
				}
			}
			started = append(started, e.PushThread(entry.script, tgt))
		}
	}
	return started
}

// Broadcast starts every BroadcastReceived hat listening for b, in every
// target.
func (e *Engine) Broadcast(b *Broadcast) []*runtime.VM {
	if b == nil {
		return nil
	}
	hat := BroadcastReceived
	if b.IsBackdrop {
		hat = BackdropChanged
	}
	return e.StartHats(hat, nil, b.Name)
}

// BroadcastRunning reports whether any non-finished thread's script listens
// for b; used by the "broadcast and wait"-style synchronization primitive.
func (e *Engine) BroadcastRunning(b *Broadcast) bool {
	if b == nil {
		return false
	}
	hat := BroadcastReceived
	if b.IsBackdrop {
		hat = BackdropChanged
	}
	for _, entry := range e.scripts {
		if entry.hat != hat || entry.matchField != b.Name {
			continue
		}
		for _, t := range e.threads {
			if !t.AtEnd() && t.Script() == entry.script {
				return true
			}
		}
	}
	return false
}

// SetKeyState records a key's pressed state for the `key pressed?`
// primitive (IsKeyPressed). It does not start KeyPressed hats.
func (e *Engine) SetKeyState(name string, pressed bool) { e.keys[name] = pressed }

// IsKeyPressed implements host.KeyState.
func (e *Engine) IsKeyPressed(name string) bool { return e.keys[name] }

// SetMouseState installs the host's live pointer position/button reporter,
// consulted by the `mouse x`/`mouse y`/`mouse down?` primitives.
func (e *Engine) SetMouseState(m host.MouseState) { e.mouse = m }

// MousePosition reports the pointer's current position, or (0, 0) if no
// MouseState has been installed.
func (e *Engine) MousePosition() (x, y float64) {
	if e.mouse == nil {
		return 0, 0
	}
	return e.mouse.Position()
}

// IsMouseDown reports whether the primary mouse button is held, or false if
// no MouseState has been installed.
func (e *Engine) IsMouseDown() bool {
	if e.mouse == nil {
		return false
	}
	return e.mouse.IsDown()
}

// RequestRedraw marks the current step as having requested a mid-frame
// redraw; stepThreads yields once it sees this (outside turbo mode).
func (e *Engine) RequestRedraw() { e.redrawRequested = true }

// IsRunning reports whether any thread is still active.
func (e *Engine) IsRunning() bool { return e.running }

// SetFPS updates the simulated frame rate used to compute the per-step work
// budget and the event loop's sleep pacing.
func (e *Engine) SetFPS(fps float64) {
	e.cfg.FPS = fps
	e.updateFrameDuration()
}

// Step runs one scheduler frame: drop threads that finished since the last
// step, run every thread until it yields or the frame's work budget is
// spent, then fire the redraw hook. A fatal error from any one thread stops
// just that thread (the rest of the frame still runs) and is returned after
// the frame completes; only the first such error in the frame is reported.
func (e *Engine) Step() error {
	e.threads = filterThreads(e.threads, func(t *runtime.VM) bool { return !t.AtEnd() })
	e.redrawRequested = false
	err := e.stepThreads()
	if e.redrawHook != nil {
		e.redrawHook()
	}
	return err
}

// stepThreads runs each thread that hasn't yielded yet this frame exactly
// once, in passes, so a script started mid-frame (by a broadcast fired from
// an earlier thread in the same frame) still gets its first pass before the
// frame ends. A thread that calls Run() and returns without finishing has
// yielded for this frame and is not run again until the next Step; passes
// stop once a pass produces no newly-run thread, or the frame's
// 75%-of-duration work budget is spent, or (outside turbo mode) a redraw
// was requested.
func (e *Engine) stepThreads() error {
	workBudget := time.Duration(float64(e.frameDuration) * conf.WORKBUDGETFRACTION)
	stepStart := e.clock.CurrentSteadyTime()
	ranThisFrame := map[*runtime.VM]bool{}
	var firstErr error

	for len(e.threads) > 0 && e.clock.CurrentSteadyTime().Sub(stepStart) < workBudget && (e.cfg.TurboMode || !e.redrawRequested) {
		progressed := 0
		for _, t := range e.threads {
			if ranThisFrame[t] || t.AtEnd() {
				continue
			}
			ranThisFrame[t] = true
			progressed++
			e.activeThread = t
			if err := t.Run(); err != nil {
				e.sink.Diagnostic(lerrors.ScriptFault, map[string]string{"target": t.Target().Name(), "error": err.Error()}, "thread stopped")
				if firstErr == nil {
					firstErr = err
				}
				e.threadsToStop[t] = true
			}
		}
		if len(e.threadsToStop) > 0 {
			e.threads = filterThreads(e.threads, func(t *runtime.VM) bool { return !e.threadsToStop[t] })
			e.threadsToStop = map[*runtime.VM]bool{}
		}
		e.threads = filterThreads(e.threads, func(t *runtime.VM) bool { return !t.AtEnd() })
		if progressed == 0 {
			break
		}
	}
	if len(e.threads) == 0 {
		e.running = false
	}
	e.activeThread = nil
	return firstErr
}

func filterThreads(threads []*runtime.VM, keep func(*runtime.VM) bool) []*runtime.VM {
	out := threads[:0]
	for _, t := range threads {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// EventLoop runs Step on a cadence paced by the configured FPS until ctx is
// canceled, or (when untilProjectStops is true) until every thread has
// finished. Each iteration sleeps off whatever's left of the frame after
// Step returns.
func (e *Engine) EventLoop(ctx context.Context, untilProjectStops bool) error {
	e.stopEventLoop = false
	for {
		tickStart := e.clock.CurrentSteadyTime()
		e.Step()

		if untilProjectStops && !e.IsRunning() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if e.stopEventLoop {
			return nil
		}

		elapsed := e.clock.CurrentSteadyTime().Sub(tickStart)
		if sleepFor := e.frameDuration - elapsed; sleepFor > 0 {
			e.clock.Sleep(sleepFor)
		}
	}
}

// StopEventLoop requests that a running EventLoop return after its current
// iteration.
func (e *Engine) StopEventLoop() { e.stopEventLoop = true }

// Run fires the project's GreenFlag hats and drives the event loop until
// every thread finishes or ctx is canceled, the green-flag-click to
// project-end sequence a host uses to run a whole project headlessly.
func (e *Engine) Run(ctx context.Context) error {
	e.Start()
	return e.EventLoop(ctx, true)
}
