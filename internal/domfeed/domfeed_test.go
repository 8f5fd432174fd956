package domfeed

import (
	"context"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
)

type captureSink struct {
	downs []dispatch.PointerEvent
}

func (s *captureSink) PointerDown(x, y float64) {
	s.downs = append(s.downs, dispatch.PointerEvent{Kind: dispatch.KindDown, X: x, Y: y})
}
func (s *captureSink) PointerMove(x, y float64) {}
func (s *captureSink) PointerUp(x, y float64)   {}
func (s *captureSink) ContextMenu(x, y float64) {}

func TestBindingPayloadDispatched(t *testing.T) {
	sink := &captureSink{}
	f := NewFeed("http://127.0.0.1:9220", "tradingview.com", dispatch.NewDispatcher(sink))

	f.onTargetEvent(&runtime.EventBindingCalled{
		Name:    bindingName,
		Payload: `{"kind":"down","x":12,"y":34}`,
	})

	if len(sink.downs) != 1 {
		t.Fatalf("len(downs) = %d; want 1", len(sink.downs))
	}
	if got := sink.downs[0]; got.X != 12 || got.Y != 34 {
		t.Errorf("event = %+v; want x=12 y=34", got)
	}
}

func TestStartHonorsCancelledContext(t *testing.T) {
	sink := &captureSink{}
	f := NewFeed("http://127.0.0.1:9220", "tradingview.com", dispatch.NewDispatcher(sink))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.Start(ctx); err == nil {
		t.Fatalf("Start(cancelled ctx) = nil; want error")
	}
	f.Stop()
}

func TestMalformedAndForeignBindingsIgnored(t *testing.T) {
	sink := &captureSink{}
	f := NewFeed("http://127.0.0.1:9220", "tradingview.com", dispatch.NewDispatcher(sink))

	f.onTargetEvent(&runtime.EventBindingCalled{Name: bindingName, Payload: `{broken`})
	f.onTargetEvent(&runtime.EventBindingCalled{Name: "somethingElse", Payload: `{"kind":"down","x":1,"y":2}`})

	if len(sink.downs) != 0 {
		t.Fatalf("len(downs) = %d; want 0", len(sink.downs))
	}
}
