// Package domfeed is the second pointer delivery path: it attaches to the
// chart tab over CDP, installs DOM listeners on the chart container, and
// forwards pointer events through a runtime binding. The library callback
// feed and this one report the same gestures; the dispatcher deduplicates.
package domfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
)

const bindingName = "__annotatorPointer"

// listenerScript wires the chart container's pointer events to the binding.
// The native context menu is suppressed so right-click belongs to the
// annotation layer.
const listenerScript = `(() => {
	if (window.__annotatorListeners) { return "already-installed"; }
	const root = document.querySelector('.chart-container') || document.body;
	const send = (kind, ev) => {
		const rect = root.getBoundingClientRect();
		window.` + bindingName + `(JSON.stringify({
			kind: kind,
			x: ev.clientX - rect.left,
			y: ev.clientY - rect.top,
		}));
	};
	root.addEventListener('pointerdown', ev => { if (ev.button === 0) send('down', ev); }, true);
	root.addEventListener('pointermove', ev => send('move', ev), true);
	root.addEventListener('pointerup', ev => { if (ev.button === 0) send('up', ev); }, true);
	root.addEventListener('contextmenu', ev => {
		ev.preventDefault();
		send('contextmenu', ev);
	}, true);
	window.__annotatorListeners = true;
	return "installed";
})()`

// Feed owns the CDP attachment for the DOM listener source.
type Feed struct {
	cdpURL     string
	urlFilter  string
	dispatcher *dispatch.Dispatcher

	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
}

func NewFeed(cdpURL, urlFilter string, dispatcher *dispatch.Dispatcher) *Feed {
	return &Feed{cdpURL: cdpURL, urlFilter: urlFilter, dispatcher: dispatcher}
}

// Start connects to the browser, attaches to the first matching chart tab,
// and installs the listeners. ctx parents the CDP connection, so cancelling
// it detaches the feed.
func (f *Feed) Start(ctx context.Context) error {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, f.cdpURL)
	f.allocCancel = allocCancel

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("domfeed: connect to browser: %w", err)
	}
	tempCtx, tempCancel := chromedp.NewContext(allocCtx)
	defer tempCancel()
	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("domfeed: connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("domfeed: enumerate targets: %w", err)
	}

	for _, t := range targets {
		if t.Type != "page" || !strings.Contains(t.URL, f.urlFilter) {
			continue
		}
		tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithTargetID(t.TargetID))
		f.tabCancel = tabCancel

		chromedp.ListenTarget(tabCtx, f.onTargetEvent)

		var installResult string
		err := chromedp.Run(tabCtx,
			runtime.Enable(),
			runtime.AddBinding(bindingName),
			chromedp.Evaluate(listenerScript, &installResult),
		)
		if err != nil {
			tabCancel()
			f.tabCancel = nil
			return fmt.Errorf("domfeed: install listeners: %w", err)
		}

		slog.Info("dom pointer feed attached",
			"target_id", t.TargetID, "url", t.URL, "install", installResult)
		return nil
	}

	return fmt.Errorf("domfeed: no tab matching %q", f.urlFilter)
}

func (f *Feed) onTargetEvent(ev interface{}) {
	bc, ok := ev.(*runtime.EventBindingCalled)
	if !ok || bc.Name != bindingName {
		return
	}
	var evt dispatch.PointerEvent
	if err := json.Unmarshal([]byte(bc.Payload), &evt); err != nil {
		slog.Warn("dropped malformed dom pointer payload", "error", err)
		return
	}
	evt.Source = dispatch.SourceDOM
	f.dispatcher.Dispatch(evt)
}

// Stop detaches from the tab and browser.
func (f *Feed) Stop() {
	if f.tabCancel != nil {
		f.tabCancel()
		f.tabCancel = nil
	}
	if f.allocCancel != nil {
		f.allocCancel()
		f.allocCancel = nil
	}
	slog.Info("dom pointer feed stopped")
}
