package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

const saveTimeout = 10 * time.Second

type saveReq struct {
	key   Key
	tools []*tool.Tool
}

// Autosaver debounces tool-list saves and runs them on a single background
// goroutine. Saves are fire-and-forget with last-write-wins semantics: a
// newer snapshot supersedes one still waiting in the slot, and an in-flight
// save from an older list may complete after a newer one was scheduled.
// Hold/Release suppress the debounce fire while a drag is in progress.
type Autosaver struct {
	gw    Gateway
	delay time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	latest      *saveReq
	held        bool
	firePending bool

	reqCh chan saveReq
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewAutosaver creates an autosaver with the given debounce delay and starts
// its background save loop.
func NewAutosaver(gw Gateway, delay time.Duration) *Autosaver {
	a := &Autosaver{
		gw:    gw,
		delay: delay,
		reqCh: make(chan saveReq, 1),
		done:  make(chan struct{}),
	}
	a.wg.Add(1)
	go a.saveLoop()
	return a
}

// Schedule records the latest tool list for a key and (re)arms the debounce
// timer. The list is snapshotted immediately so later engine mutations do
// not leak into an already-scheduled save.
func (a *Autosaver) Schedule(key Key, tools []*tool.Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.latest = &saveReq{key: key, tools: copyTools(tools)}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	if a.held {
		a.firePending = true
		a.mu.Unlock()
		return
	}
	req := a.latest
	a.latest = nil
	a.mu.Unlock()

	if req != nil {
		a.offer(*req)
	}
}

// offer pushes a request into the single-slot channel, superseding any
// request still waiting there.
func (a *Autosaver) offer(req saveReq) {
	for {
		select {
		case a.reqCh <- req:
			return
		default:
			select {
			case <-a.reqCh:
			default:
			}
		}
	}
}

// Hold suppresses debounce fires until Release. Called when a drag session
// becomes active.
func (a *Autosaver) Hold() {
	a.mu.Lock()
	a.held = true
	a.mu.Unlock()
}

// Release lifts a Hold and runs any fire that was deferred during it.
func (a *Autosaver) Release() {
	a.mu.Lock()
	a.held = false
	pending := a.firePending
	a.firePending = false
	a.mu.Unlock()
	if pending {
		a.fire()
	}
}

// Flush synchronously saves whatever is pending, bypassing the debounce.
// Used on key switches and shutdown.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	req := a.latest
	a.latest = nil
	a.firePending = false
	a.mu.Unlock()

	if req == nil {
		return nil
	}
	return a.gw.Save(ctx, req.key, req.tools)
}

func (a *Autosaver) saveLoop() {
	defer a.wg.Done()
	for {
		select {
		case req := <-a.reqCh:
			a.save(req)
		case <-a.done:
			return
		}
	}
}

func (a *Autosaver) save(req saveReq) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.gw.Save(ctx, req.key, req.tools); err != nil {
		// Fire-and-forget: the failure is logged and the next debounce
		// tick rewrites the full list anyway.
		slog.Warn("autosave failed", "key", req.key.String(), "error", err)
		return
	}
	slog.Debug("autosave complete", "key", req.key.String(), "tools", len(req.tools))
}

// Close flushes any pending snapshot and stops the save loop.
func (a *Autosaver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	err := a.Flush(ctx)

	// Drain anything already sitting in the slot before exiting.
	select {
	case req := <-a.reqCh:
		a.save(req)
	default:
	}

	close(a.done)
	a.wg.Wait()
	return err
}
