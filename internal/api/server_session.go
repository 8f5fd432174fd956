package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tv_annotate/internal/dispatch"
	"github.com/dgnsrekt/tv_annotate/internal/engine"
	"github.com/dgnsrekt/tv_annotate/internal/store"
	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

func registerSessionHandlers(api huma.API, svc Service, dispatcher *dispatch.Dispatcher) {
	type snapshotOutput struct {
		Body engine.Snapshot
	}
	huma.Register(api, huma.Operation{OperationID: "get-session", Method: http.MethodGet, Path: "/api/v1/session", Summary: "Get the gesture session state", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			return &snapshotOutput{Body: svc.Snapshot()}, nil
		})

	type activeToolInput struct {
		Body struct {
			Type tool.Type `json:"type" required:"true" doc:"Tool type to start drawing"`
		}
	}
	type statusOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-active-tool", Method: http.MethodPut, Path: "/api/v1/session/tool", Summary: "Enter drawing mode with a tool type", Tags: []string{"Session"}},
		func(ctx context.Context, input *activeToolInput) (*statusOutput, error) {
			if err := svc.SetActiveTool(input.Body.Type); err != nil {
				return nil, mapErr(err)
			}
			out := &statusOutput{}
			out.Body.Status = "drawing"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "cancel-drawing", Method: http.MethodDelete, Path: "/api/v1/session/tool", Summary: "Cancel drawing mode, discarding any draft", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			svc.CancelDrawing()
			out := &statusOutput{}
			out.Body.Status = "idle"
			return out, nil
		})

	type viewportInput struct {
		Body engine.Viewport
	}
	huma.Register(api, huma.Operation{OperationID: "set-viewport", Method: http.MethodPut, Path: "/api/v1/session/viewport", Summary: "Push the chart viewport bounds and candle samples", Tags: []string{"Session"}},
		func(ctx context.Context, input *viewportInput) (*statusOutput, error) {
			svc.SetViewport(input.Body)
			out := &statusOutput{}
			out.Body.Status = "updated"
			return out, nil
		})

	type snapInput struct {
		Body struct {
			Levels []float64 `json:"levels"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-snap-levels", Method: http.MethodPut, Path: "/api/v1/session/snap-levels", Summary: "Push nearby price levels used for snapping", Tags: []string{"Session"}},
		func(ctx context.Context, input *snapInput) (*statusOutput, error) {
			svc.SetSnapLevels(input.Body.Levels)
			out := &statusOutput{}
			out.Body.Status = "updated"
			return out, nil
		})

	type keyOutput struct {
		Body store.Key
	}
	huma.Register(api, huma.Operation{OperationID: "get-chart-key", Method: http.MethodGet, Path: "/api/v1/session/key", Summary: "Get the active symbol and timeframe", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*keyOutput, error) {
			return &keyOutput{Body: svc.Key()}, nil
		})

	type keyInput struct {
		Body store.Key
	}
	huma.Register(api, huma.Operation{OperationID: "switch-chart-key", Method: http.MethodPut, Path: "/api/v1/session/key", Summary: "Switch symbol/timeframe, persisting the old chart and loading the new one", Tags: []string{"Session"}},
		func(ctx context.Context, input *keyInput) (*keyOutput, error) {
			if input.Body.Symbol == "" || input.Body.Timeframe == "" {
				return nil, huma.Error400BadRequest("symbol and timeframe are required")
			}
			if err := svc.SwitchKey(ctx, input.Body); err != nil {
				return nil, mapErr(err)
			}
			return &keyOutput{Body: svc.Key()}, nil
		})

	if dispatcher == nil {
		return
	}
	type pointerInput struct {
		Body dispatch.PointerEvent
	}
	huma.Register(api, huma.Operation{OperationID: "inject-pointer-event", Method: http.MethodPost, Path: "/api/v1/session/pointer", Summary: "Inject a raw pointer event into the gesture pipeline", Tags: []string{"Session"}},
		func(ctx context.Context, input *pointerInput) (*statusOutput, error) {
			evt := input.Body
			if evt.Source == "" {
				evt.Source = dispatch.SourceLibrary
			}
			dispatcher.Dispatch(evt)
			out := &statusOutput{}
			out.Body.Status = "dispatched"
			return out, nil
		})
}
