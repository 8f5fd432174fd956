package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

func mustTool(t *testing.T, typ tool.Type, pts ...tool.Point) *tool.Tool {
	t.Helper()
	tl, err := tool.New(typ, pts, "")
	if err != nil {
		t.Fatalf("tool.New(%s) = %v; want nil", typ, err)
	}
	return tl
}

func TestMemoryGateway_KeyIsolationAndRestore(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	aapl := Key{Symbol: "AAPL", Timeframe: "1H"}
	msft := Key{Symbol: "MSFT", Timeframe: "1H"}

	tools := []*tool.Tool{
		mustTool(t, tool.TypeTrendline, tool.Point{Timestamp: 1, Price: 2}, tool.Point{Timestamp: 3, Price: 4}),
		mustTool(t, tool.TypeHorizontal, tool.Point{Timestamp: 5, Price: 6}),
	}
	if err := gw.Save(ctx, aapl, tools); err != nil {
		t.Fatalf("Save() = %v; want nil", err)
	}

	got, err := gw.Load(ctx, msft)
	if err != nil || len(got) != 0 {
		t.Fatalf("Load(MSFT) = %v, %v; want empty list", got, err)
	}

	got, err = gw.Load(ctx, aapl)
	if err != nil {
		t.Fatalf("Load(AAPL) = %v; want nil", err)
	}
	if len(got) != 2 || got[0].ID != tools[0].ID || got[1].ID != tools[1].ID {
		t.Fatalf("Load(AAPL) = %d tools; want the saved pair in order", len(got))
	}

	// Mutating the loaded copy must not reach the stored list.
	got[0].Points[0].Price = 999
	again, _ := gw.Load(ctx, aapl)
	if again[0].Points[0].Price != 2 {
		t.Fatalf("Load() returned a shared slice; want defensive copies")
	}
}

func TestSQLiteGateway_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw, err := NewSQLiteGateway(filepath.Join(t.TempDir(), "tools.db"))
	if err != nil {
		t.Fatalf("NewSQLiteGateway() = %v; want nil", err)
	}
	defer gw.Close()

	key := Key{Symbol: "AAPL", Timeframe: "1H"}
	tools := []*tool.Tool{
		mustTool(t, tool.TypeFibonacci, tool.Point{Timestamp: 10, Price: 100}, tool.Point{Timestamp: 20, Price: 200}),
		mustTool(t, tool.TypeText, tool.Point{Timestamp: 30, Price: 150}),
	}
	tools[1].Text = "note"
	tools[1].Locked = true

	if err := gw.Save(ctx, key, tools); err != nil {
		t.Fatalf("Save() = %v; want nil", err)
	}
	got, err := gw.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load() = %v; want nil", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() = %d tools; want 2", len(got))
	}
	if got[0].ID != tools[0].ID || got[1].Text != "note" || !got[1].Locked {
		t.Fatalf("Load() round-trip mismatch: %+v", got)
	}

	// Re-saving replaces rather than appends.
	if err := gw.Save(ctx, key, tools[:1]); err != nil {
		t.Fatalf("Save(shorter) = %v; want nil", err)
	}
	got, _ = gw.Load(ctx, key)
	if len(got) != 1 {
		t.Fatalf("Load() after shrink = %d tools; want 1", len(got))
	}
}

func TestSQLiteGateway_EmptyKey(t *testing.T) {
	gw, err := NewSQLiteGateway(filepath.Join(t.TempDir(), "tools.db"))
	if err != nil {
		t.Fatalf("NewSQLiteGateway() = %v; want nil", err)
	}
	defer gw.Close()

	got, err := gw.Load(context.Background(), Key{Symbol: "NVDA", Timeframe: "5m"})
	if err != nil {
		t.Fatalf("Load(unknown key) = %v; want nil", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load(unknown key) = %d tools; want 0", len(got))
	}
}

func TestNoopGateway_DiscardsEverything(t *testing.T) {
	gw := NewNoopGateway()
	key := Key{Symbol: "BTCUSD", Timeframe: "1h"}

	tl, err := tool.New(tool.TypeHorizontal, []tool.Point{{Timestamp: 1000, Price: 50}}, "")
	if err != nil {
		t.Fatalf("tool.New() = %v; want nil", err)
	}
	if err := gw.Save(context.Background(), key, []*tool.Tool{tl}); err != nil {
		t.Fatalf("Save() = %v; want nil", err)
	}

	got, err := gw.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load() = %v; want nil", err)
	}
	if len(got) != 0 {
		t.Fatalf("Load() after Save = %d tools; want 0", len(got))
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("Close() = %v; want nil", err)
	}
}

// countingGateway records saves for autosaver assertions.
type countingGateway struct {
	mu    sync.Mutex
	saves []saveReq
}

func (c *countingGateway) Load(_ context.Context, _ Key) ([]*tool.Tool, error) { return nil, nil }

func (c *countingGateway) Save(_ context.Context, key Key, tools []*tool.Tool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, saveReq{key: key, tools: tools})
	return nil
}

func (c *countingGateway) Close() error { return nil }

func (c *countingGateway) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saves)
}

func (c *countingGateway) last() saveReq {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves[len(c.saves)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestAutosaver_DebouncesToOneSave(t *testing.T) {
	gw := &countingGateway{}
	a := NewAutosaver(gw, 30*time.Millisecond)
	defer a.Close()

	key := Key{Symbol: "AAPL", Timeframe: "1H"}
	one := []*tool.Tool{mustTool(t, tool.TypeHorizontal, tool.Point{Timestamp: 1, Price: 2})}
	two := append(one, mustTool(t, tool.TypeVertical, tool.Point{Timestamp: 3, Price: 4}))

	a.Schedule(key, one)
	a.Schedule(key, two)

	waitFor(t, func() bool { return gw.count() >= 1 })
	if gw.count() != 1 {
		t.Fatalf("saves = %d; want 1 (debounced)", gw.count())
	}
	if got := gw.last(); len(got.tools) != 2 {
		t.Fatalf("saved snapshot = %d tools; want the latest (2)", len(got.tools))
	}
}

func TestAutosaver_HoldDefersFire(t *testing.T) {
	gw := &countingGateway{}
	a := NewAutosaver(gw, 20*time.Millisecond)
	defer a.Close()

	key := Key{Symbol: "AAPL", Timeframe: "1H"}
	a.Hold()
	a.Schedule(key, []*tool.Tool{mustTool(t, tool.TypeText, tool.Point{Timestamp: 1, Price: 2})})

	time.Sleep(80 * time.Millisecond)
	if gw.count() != 0 {
		t.Fatalf("saves during hold = %d; want 0 (suppressed mid-drag)", gw.count())
	}

	a.Release()
	waitFor(t, func() bool { return gw.count() == 1 })
}

func TestAutosaver_FlushBypassesDebounce(t *testing.T) {
	gw := &countingGateway{}
	a := NewAutosaver(gw, time.Hour)
	defer a.Close()

	key := Key{Symbol: "AAPL", Timeframe: "1H"}
	a.Schedule(key, nil)
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() = %v; want nil", err)
	}
	if gw.count() != 1 {
		t.Fatalf("saves after Flush = %d; want 1", gw.count())
	}
	// Nothing pending: Flush is a no-op.
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush(empty) = %v; want nil", err)
	}
	if gw.count() != 1 {
		t.Fatalf("saves after empty Flush = %d; want still 1", gw.count())
	}
}
