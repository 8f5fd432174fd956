package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
	"github.com/dgnsrekt/tv_annotate/internal/engine"
	"github.com/dgnsrekt/tv_annotate/internal/store"
	"github.com/dgnsrekt/tv_annotate/internal/tool"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the engine surface the HTTP API drives. Implemented by
// *engine.Engine.
type Service interface {
	SetActiveTool(typ tool.Type) error
	CancelDrawing()
	Snapshot() engine.Snapshot
	SetViewport(v engine.Viewport)
	SetSnapLevels(levels []float64)
	Tools() []*tool.Tool
	Tool(id string) (*tool.Tool, error)
	ToolSegments(id string) ([]tool.Segment, error)
	DeleteTool(id string)
	ClearTools()
	CloneTool(id string) (*tool.Tool, error)
	UpdateStyle(id string, style tool.Style) error
	SetText(id, text string) error
	SetVisible(id string, visible bool) error
	SetLocked(id string, locked bool) error
	SetAllVisible(visible bool)
	SetAllLocked(locked bool)
	SwitchKey(ctx context.Context, key store.Key) error
	Key() store.Key
	ExportState() ([]byte, error)
	ImportState(data []byte) (int, error)
}

// Options carries the extra handlers mounted alongside the REST surface.
type Options struct {
	// Broker feeds the /api/v1/events SSE stream. Nil disables it.
	Broker *dispatch.Broker
	// Dispatcher receives pointer events injected over the API. Nil
	// disables the injection endpoint.
	Dispatcher *dispatch.Dispatcher
	// PointerWS is the websocket ingest handler, mounted at PointerWSPath.
	PointerWS     http.Handler
	PointerWSPath string
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Chart Annotator API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerToolHandlers(api, svc)
	registerSessionHandlers(api, svc, opts.Dispatcher)
	registerStateHandlers(api, svc)

	if opts.Broker != nil {
		router.Get("/api/v1/events", eventsHandler(opts.Broker))
	}
	if opts.PointerWS != nil && opts.PointerWSPath != "" {
		router.Handle(opts.PointerWSPath, opts.PointerWS)
	}

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *tool.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case tool.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case tool.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case tool.CodeLockedTool:
			return huma.Error409Conflict(coded.Message)
		case tool.CodeDomainConversion, tool.CodeInvalidGeometry:
			return huma.Error422UnprocessableEntity(coded.Message)
		case tool.CodePersistence:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
