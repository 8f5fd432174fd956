// Package wsfeed ingests chart-library callback traffic over a WebSocket.
// The embedding page opens one connection and streams pointer events plus
// viewport updates as JSON text frames.
package wsfeed

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
	"github.com/dgnsrekt/tv_annotate/internal/engine"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// SessionSink receives non-pointer session updates from the page.
// Implemented by *engine.Engine.
type SessionSink interface {
	SetViewport(v engine.Viewport)
	SetSnapLevels(levels []float64)
}

// frame is the wire envelope for one message from the page.
type frame struct {
	Type     string                 `json:"type"`
	Event    *dispatch.PointerEvent `json:"event,omitempty"`
	Viewport *engine.Viewport       `json:"viewport,omitempty"`
	Levels   []float64              `json:"levels,omitempty"`
}

// Handler upgrades connections and pumps frames into the dispatcher.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	session    SessionSink
	conns      atomic.Int64
}

func NewHandler(dispatcher *dispatch.Dispatcher, session SessionSink) *Handler {
	return &Handler{dispatcher: dispatcher, session: session}
}

// ConnCount returns the number of live connections.
func (h *Handler) ConnCount() int64 {
	return h.conns.Load()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	h.conns.Add(1)
	slog.Info("pointer feed connected", "remote", r.RemoteAddr)

	go func() {
		defer func() {
			conn.Close()
			h.conns.Add(-1)
			slog.Info("pointer feed disconnected", "remote", r.RemoteAddr)
		}()
		for {
			data, err := wsutil.ReadClientText(conn)
			if err != nil {
				if err != io.EOF {
					slog.Debug("pointer feed read exit", "error", err)
				}
				return
			}
			h.handleFrame(data)
		}
	}()
}

func (h *Handler) handleFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("dropped malformed pointer frame", "error", err)
		return
	}

	switch f.Type {
	case "pointer":
		if f.Event == nil {
			slog.Warn("pointer frame without event")
			return
		}
		evt := *f.Event
		if evt.Source == "" {
			evt.Source = dispatch.SourceLibrary
		}
		h.dispatcher.Dispatch(evt)
	case "viewport":
		if f.Viewport == nil {
			slog.Warn("viewport frame without viewport")
			return
		}
		h.session.SetViewport(*f.Viewport)
	case "snap_levels":
		h.session.SetSnapLevels(f.Levels)
	default:
		slog.Warn("unknown pointer feed frame type", "type", f.Type)
	}
}
