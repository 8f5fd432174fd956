// Package engine owns the drawing gesture lifecycle and the committed tool
// list. All gesture processing is synchronous under one lock; persistence is
// the only asynchronous work and never blocks a transition.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/tv_annotate/internal/chartgeo"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
	"github.com/dgnsrekt/tv_annotate/internal/hittest"
	"github.com/dgnsrekt/tv_annotate/internal/store"
	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

// State names a gesture lifecycle phase.
type State string

const (
	StateIdle     State = "idle"
	StateDrawing  State = "drawing"
	StateSelected State = "selected"
	StateDragging State = "dragging"
)

// Config tunes gesture behavior.
type Config struct {
	// DragThresholdPx is the cumulative pointer displacement that turns an
	// armed drag into an active one. The two-phase gate is a deliberate
	// anti-jitter invariant; keep the pixel threshold exact.
	DragThresholdPx float64
	// SnapTolerancePercent clamps a dragged or newly placed price to the
	// nearest snap level when within this percentage of the visible price
	// range. Zero disables snapping.
	SnapTolerancePercent float64
	// AutosaveDelay is the debounce applied after the last mutation.
	AutosaveDelay time.Duration
}

// DefaultConfig returns the tuning the UI ships with.
func DefaultConfig() Config {
	return Config{
		DragThresholdPx: 5,
		AutosaveDelay:   1500 * time.Millisecond,
	}
}

// Viewport is the per-frame chart window pushed by the embedding renderer.
type Viewport struct {
	Bounds  chartgeo.Bounds `json:"bounds"`
	Samples []int64         `json:"samples"`
}

// Engine is the drawing state machine. One owned value, synchronously
// accessed; callers from any goroutine serialize on its lock.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	gw     store.Gateway
	saver  *store.Autosaver
	broker *dispatch.Broker

	key      store.Key
	tools    []*tool.Tool
	viewport Viewport
	frameOK  bool

	state      State
	activeType tool.Type
	draft      []tool.Point
	preview    *tool.Point
	selectedID string
	drag       *dragSession

	snapLevels []float64

	lastMove    tool.PixelPoint
	hasLastMove bool
}

// New creates an engine persisting through gw and publishing notifications
// on broker. broker may be nil for tests.
func New(cfg Config, gw store.Gateway, broker *dispatch.Broker) *Engine {
	if cfg.DragThresholdPx <= 0 {
		cfg.DragThresholdPx = 5
	}
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = 1500 * time.Millisecond
	}
	return &Engine{
		cfg:    cfg,
		gw:     gw,
		saver:  store.NewAutosaver(gw, cfg.AutosaveDelay),
		broker: broker,
		state:  StateIdle,
	}
}

func (e *Engine) publish(evt dispatch.Event) {
	if e.broker != nil {
		e.broker.Publish(evt)
	}
}

// SetViewport installs the frame's chart bounds and sample timestamps.
// Degenerate bounds disable interaction for the frame instead of failing.
func (e *Engine) SetViewport(v Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.viewport = v
	e.frameOK = !v.Bounds.Degenerate() && v.Bounds.Width > 0 && v.Bounds.Height > 0
	if !e.frameOK {
		slog.Warn("degenerate chart bounds; interaction disabled for frame",
			"start", v.Bounds.StartTimestamp, "end", v.Bounds.EndTimestamp,
			"min_price", v.Bounds.MinPrice, "max_price", v.Bounds.MaxPrice)
	}
}

// SetSnapLevels installs the caller-supplied nearby price levels used for
// optional snapping.
func (e *Engine) SetSnapLevels(levels []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapLevels = append([]float64(nil), levels...)
}

// SetActiveTool enters Drawing for the given type from any state, clearing
// selection.
func (e *Engine) SetActiveTool(typ tool.Type) error {
	if _, ok := tool.Lookup(typ); !ok {
		return tool.NewError(tool.CodeValidation, "unknown tool type: "+string(typ), nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.abortDragLocked()
	e.state = StateDrawing
	e.activeType = typ
	e.draft = nil
	e.preview = nil
	e.setSelectedLocked("")
	return nil
}

// CancelDrawing discards any in-progress draft unconditionally.
func (e *Engine) CancelDrawing() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDrawing {
		e.state = StateIdle
		e.activeType = ""
		e.draft = nil
		e.preview = nil
	}
}

// PointerDown advances the gesture machine for a press at pixel (x, y).
func (e *Engine) PointerDown(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.frameOK {
		return
	}
	ptr := tool.PixelPoint{X: x, Y: y}

	switch e.state {
	case StateDrawing:
		e.pointerDownDrawingLocked(ptr)
	case StateIdle:
		if res, ok := hittest.Resolve(e.tools, e.viewport.Bounds, ptr); ok {
			e.state = StateSelected
			e.setSelectedLocked(res.ToolID)
		}
	case StateSelected:
		e.pointerDownSelectedLocked(ptr)
	case StateDragging:
		// A second press mid-drag is a delivery glitch; ignore it.
	}
}

func (e *Engine) pointerDownDrawingLocked(ptr tool.PixelPoint) {
	p, err := chartgeo.ToDomain(ptr, e.viewport.Bounds, e.viewport.Samples)
	if err != nil {
		slog.Warn("pointer conversion failed; interaction disabled for frame", "error", err)
		e.frameOK = false
		return
	}
	p.Price = e.snapPriceLocked(p.Price)

	arity := tool.Arity(e.activeType)
	if arity == 1 {
		e.commitDraftLocked([]tool.Point{p})
		return
	}
	if len(e.draft) == 0 {
		e.draft = []tool.Point{p}
		return
	}
	e.commitDraftLocked([]tool.Point{e.draft[0], p})
}

func (e *Engine) commitDraftLocked(points []tool.Point) {
	t, err := tool.New(e.activeType, points, "")
	if err != nil {
		// Point count mismatch at commit: stay in Drawing.
		slog.Warn("draft commit rejected", "type", e.activeType, "error", err)
		return
	}
	e.tools = append(e.tools, t)
	e.state = StateIdle
	e.activeType = ""
	e.draft = nil
	e.preview = nil
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolCommitted, ToolID: t.ID})
}

func (e *Engine) pointerDownSelectedLocked(ptr tool.PixelPoint) {
	res, ok := hittest.Resolve(e.tools, e.viewport.Bounds, ptr)
	if !ok {
		e.state = StateIdle
		e.setSelectedLocked("")
		return
	}
	if res.ToolID != e.selectedID {
		e.setSelectedLocked(res.ToolID)
		return
	}
	t := e.findLocked(res.ToolID)
	if t == nil || t.Locked {
		// Locked tools keep selection highlighting but never arm a drag.
		return
	}
	e.armDragLocked(t, res.Handle, ptr)
}

// PointerMove advances rubber-band previews and drag sessions. Re-entrant
// delivery of identical coordinates is a no-op.
func (e *Engine) PointerMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.frameOK {
		return
	}
	ptr := tool.PixelPoint{X: x, Y: y}
	if e.hasLastMove && ptr == e.lastMove {
		return
	}
	e.lastMove = ptr
	e.hasLastMove = true

	switch e.state {
	case StateDrawing:
		e.pointerMoveDrawingLocked(ptr)
	case StateSelected:
		if e.drag != nil && !e.drag.active {
			e.maybeActivateDragLocked(ptr)
		}
	case StateDragging:
		e.updateDragLocked(ptr)
	}
}

func (e *Engine) pointerMoveDrawingLocked(ptr tool.PixelPoint) {
	if len(e.draft) == 0 || tool.Arity(e.activeType) < 2 {
		return
	}
	p, err := chartgeo.ToDomain(ptr, e.viewport.Bounds, e.viewport.Samples)
	if err != nil {
		return
	}
	// Non-committing rubber-band preview: only the trailing point moves.
	e.preview = &p
}

// PointerUp completes or disarms the current gesture.
func (e *Engine) PointerUp(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateDragging:
		e.commitDragLocked()
	case StateSelected:
		// Armed but the threshold was never exceeded: a plain click.
		e.drag = nil
	}
}

// ContextMenu handles a right-click at pixel (x, y): any in-progress drag or
// armed press is aborted, selection highlighting is cleared, and when a tool
// is under the pointer a show_context_menu event is published for external
// UI chrome.
func (e *Engine) ContextMenu(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.abortDragLocked()
	if e.state == StateSelected || e.state == StateDragging {
		e.state = StateIdle
	}
	e.setSelectedLocked("")

	if !e.frameOK {
		return
	}
	ptr := tool.PixelPoint{X: x, Y: y}
	if res, ok := hittest.Resolve(e.tools, e.viewport.Bounds, ptr); ok {
		e.publish(dispatch.Event{Type: dispatch.EventShowContextMenu, ToolID: res.ToolID, X: x, Y: y})
	}
}

// DeleteTool removes a committed tool. Locked tools and unknown ids are
// silent no-ops.
func (e *Engine) DeleteTool(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, t := range e.tools {
		if t.ID != id {
			continue
		}
		if t.Locked {
			slog.Debug("delete refused for locked tool", "id", id)
			return
		}
		e.tools = append(e.tools[:i], e.tools[i+1:]...)
		if e.drag != nil && e.drag.toolID == id {
			e.abortDragLocked()
		}
		if e.selectedID == id {
			e.setSelectedLocked("")
			if e.state == StateSelected || e.state == StateDragging {
				e.state = StateIdle
			}
		}
		e.scheduleSaveLocked()
		e.publish(dispatch.Event{Type: dispatch.EventToolDeleted, ToolID: id})
		return
	}
}

// ClearTools deletes every unlocked tool for the active key.
func (e *Engine) ClearTools() {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.tools[:0]
	removed := 0
	for _, t := range e.tools {
		if t.Locked {
			kept = append(kept, t)
			continue
		}
		removed++
	}
	e.tools = kept
	if removed == 0 {
		return
	}
	if e.selectedID != "" && e.findLocked(e.selectedID) == nil {
		e.abortDragLocked()
		e.setSelectedLocked("")
		if e.state == StateSelected || e.state == StateDragging {
			e.state = StateIdle
		}
	}
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolDeleted})
}

// CloneTool duplicates a committed tool under a fresh id, appended last so
// insertion-order hit priority is preserved.
func (e *Engine) CloneTool(id string) (*tool.Tool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.findLocked(id)
	if t == nil {
		return nil, tool.NewError(tool.CodeNotFound, "tool not found: "+id, nil)
	}
	c := t.Clone()
	c.Locked = false
	e.tools = append(e.tools, c)
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolCommitted, ToolID: c.ID})
	return c.Copy(), nil
}

// UpdateStyle replaces a tool's style. Locked tools refuse the edit.
func (e *Engine) UpdateStyle(id string, style tool.Style) error {
	return e.mutate(id, func(t *tool.Tool) { t.Style = style })
}

// SetText replaces a tool's text. Locked tools refuse the edit.
func (e *Engine) SetText(id, text string) error {
	return e.mutate(id, func(t *tool.Tool) { t.Text = text })
}

// SetVisible toggles rendering without counting as an edit, so it applies to
// locked tools too.
func (e *Engine) SetVisible(id string, visible bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.findLocked(id)
	if t == nil {
		return nil
	}
	t.Visible = visible
	t.UpdatedAt = time.Now().UTC()
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolUpdated, ToolID: id})
	return nil
}

// SetAllVisible applies one visibility to every tool, locked ones included.
func (e *Engine) SetAllVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range e.tools {
		t.Visible = visible
		t.UpdatedAt = now
	}
	if len(e.tools) == 0 {
		return
	}
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolUpdated})
}

// SetAllLocked applies one lock state to every tool.
func (e *Engine) SetAllLocked(locked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range e.tools {
		t.Locked = locked
		t.UpdatedAt = now
	}
	if len(e.tools) == 0 {
		return
	}
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolUpdated})
}

// SetLocked locks or unlocks a tool. Unlocking is always permitted.
func (e *Engine) SetLocked(id string, locked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.findLocked(id)
	if t == nil {
		return nil
	}
	t.Locked = locked
	t.UpdatedAt = time.Now().UTC()
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolUpdated, ToolID: id})
	return nil
}

func (e *Engine) mutate(id string, fn func(*tool.Tool)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.findLocked(id)
	if t == nil {
		return nil
	}
	if t.Locked {
		slog.Debug("edit refused for locked tool", "id", id)
		return nil
	}
	fn(t)
	t.UpdatedAt = time.Now().UTC()
	e.scheduleSaveLocked()
	e.publish(dispatch.Event{Type: dispatch.EventToolUpdated, ToolID: id})
	return nil
}

// SwitchKey atomically swaps the active symbol/timeframe: in-progress
// sessions are cancelled, pending previews discarded, the old key's pending
// save flushed, and the new key's tools loaded before the swap. There is
// never a frame where stale tools render against new chart bounds.
func (e *Engine) SwitchKey(ctx context.Context, key store.Key) error {
	e.mu.Lock()
	if key == e.key && e.tools != nil {
		e.mu.Unlock()
		return nil
	}
	e.abortDragLocked()
	e.state = StateIdle
	e.activeType = ""
	e.draft = nil
	e.preview = nil
	e.setSelectedLocked("")
	e.mu.Unlock()

	// Flush outside the lock: persistence must never block a transition
	// longer than necessary, and Load below may be slow.
	if err := e.saver.Flush(ctx); err != nil {
		slog.Warn("flush before key switch failed", "error", err)
	}

	tools, err := e.gw.Load(ctx, key)
	if err != nil {
		return tool.NewError(tool.CodePersistence, "load tools for "+key.String(), err)
	}

	e.mu.Lock()
	e.key = key
	e.tools = tools
	if e.tools == nil {
		e.tools = []*tool.Tool{}
	}
	e.mu.Unlock()

	slog.Info("chart key switched", "key", key.String(), "tools", len(tools))
	return nil
}

// Key returns the active symbol/timeframe.
func (e *Engine) Key() store.Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// Tools returns a defensive copy of the committed list in insertion order.
func (e *Engine) Tools() []*tool.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*tool.Tool, 0, len(e.tools))
	for _, t := range e.tools {
		out = append(out, t.Copy())
	}
	return out
}

// Tool returns a copy of one committed tool.
func (e *Engine) Tool(id string) (*tool.Tool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.findLocked(id)
	if t == nil {
		return nil, tool.NewError(tool.CodeNotFound, "tool not found: "+id, nil)
	}
	return t.Copy(), nil
}

// ToolSegments maps one committed tool into the pixel segments a renderer
// draws under the current viewport.
func (e *Engine) ToolSegments(id string) ([]tool.Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.findLocked(id)
	if t == nil {
		return nil, tool.NewError(tool.CodeNotFound, "tool not found: "+id, nil)
	}
	px, err := chartgeo.MapPoints(t.Points, e.viewport.Bounds)
	if err != nil {
		return nil, err
	}
	return tool.Segments(t.Type, px, e.viewport.Bounds.Width, e.viewport.Bounds.Height)
}

// Snapshot describes the observable session state for renderers.
type Snapshot struct {
	State      State        `json:"state"`
	ActiveType tool.Type    `json:"active_type,omitempty"`
	SelectedID string       `json:"selected_id,omitempty"`
	Draft      []tool.Point `json:"draft,omitempty"`
	DragArmed  bool         `json:"drag_armed,omitempty"`
	Key        store.Key    `json:"key"`
}

// Snapshot returns the current session state. The draft includes the
// rubber-band preview point when one exists.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	draft := append([]tool.Point(nil), e.draft...)
	if e.preview != nil {
		draft = append(draft, *e.preview)
	}
	return Snapshot{
		State:      e.state,
		ActiveType: e.activeType,
		SelectedID: e.selectedID,
		Draft:      draft,
		DragArmed:  e.drag != nil && !e.drag.active,
		Key:        e.key,
	}
}

// ExportState serializes the committed tool list.
func (e *Engine) ExportState() ([]byte, error) {
	return tool.Export(e.Tools())
}

// ImportState replaces the committed list with a deserialized one; malformed
// entries are dropped at load, never fatal.
func (e *Engine) ImportState(data []byte) (int, error) {
	tools, err := tool.Import(data)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abortDragLocked()
	e.state = StateIdle
	e.draft = nil
	e.preview = nil
	e.setSelectedLocked("")
	e.tools = tools
	e.scheduleSaveLocked()
	return len(tools), nil
}

// Close flushes pending saves and stops background work.
func (e *Engine) Close() error {
	return e.saver.Close()
}

func (e *Engine) findLocked(id string) *tool.Tool {
	if id == "" {
		return nil
	}
	for _, t := range e.tools {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (e *Engine) setSelectedLocked(id string) {
	if e.selectedID == id {
		return
	}
	e.selectedID = id
	e.publish(dispatch.Event{Type: dispatch.EventSelectionChanged, ToolID: id})
}

func (e *Engine) scheduleSaveLocked() {
	e.saver.Schedule(e.key, e.tools)
}
