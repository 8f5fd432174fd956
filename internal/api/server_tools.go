package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

func registerToolHandlers(api huma.API, svc Service) {
	type specListOutput struct {
		Body struct {
			Specs []tool.Spec `json:"specs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tool-types", Method: http.MethodGet, Path: "/api/v1/tools/types", Summary: "List supported tool types and defaults", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct{}) (*specListOutput, error) {
			out := &specListOutput{}
			out.Body.Specs = tool.AllSpecs()
			return out, nil
		})

	type toolListOutput struct {
		Body struct {
			Tools []*tool.Tool `json:"tools"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tools", Method: http.MethodGet, Path: "/api/v1/tools", Summary: "List committed tools for the active chart", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct{}) (*toolListOutput, error) {
			out := &toolListOutput{}
			out.Body.Tools = svc.Tools()
			return out, nil
		})

	type toolIDInput struct {
		ToolID string `path:"tool_id"`
	}
	type toolOutput struct {
		Body *tool.Tool
	}
	huma.Register(api, huma.Operation{OperationID: "get-tool", Method: http.MethodGet, Path: "/api/v1/tools/{tool_id}", Summary: "Get a committed tool by ID", Tags: []string{"Tools"}},
		func(ctx context.Context, input *toolIDInput) (*toolOutput, error) {
			t, err := svc.Tool(input.ToolID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &toolOutput{Body: t}, nil
		})

	type segmentsOutput struct {
		Body struct {
			ToolID   string         `json:"tool_id"`
			Segments []tool.Segment `json:"segments"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-tool-segments", Method: http.MethodGet, Path: "/api/v1/tools/{tool_id}/segments", Summary: "Get a tool's renderable pixel segments under the current viewport", Tags: []string{"Tools"}},
		func(ctx context.Context, input *toolIDInput) (*segmentsOutput, error) {
			segs, err := svc.ToolSegments(input.ToolID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &segmentsOutput{}
			out.Body.ToolID = input.ToolID
			out.Body.Segments = segs
			return out, nil
		})

	type toolStatusOutput struct {
		Body struct {
			ToolID string `json:"tool_id,omitempty"`
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-tool", Method: http.MethodDelete, Path: "/api/v1/tools/{tool_id}", Summary: "Delete a tool (locked tools are left in place)", Tags: []string{"Tools"}},
		func(ctx context.Context, input *toolIDInput) (*toolStatusOutput, error) {
			svc.DeleteTool(input.ToolID)
			out := &toolStatusOutput{}
			out.Body.ToolID = input.ToolID
			out.Body.Status = "deleted"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "delete-all-tools", Method: http.MethodDelete, Path: "/api/v1/tools", Summary: "Delete all unlocked tools on the active chart", Tags: []string{"Tools"}},
		func(ctx context.Context, input *struct{}) (*toolStatusOutput, error) {
			svc.ClearTools()
			out := &toolStatusOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "clone-tool", Method: http.MethodPost, Path: "/api/v1/tools/{tool_id}/clone", Summary: "Clone a tool under a fresh ID", Tags: []string{"Tools"}},
		func(ctx context.Context, input *toolIDInput) (*toolOutput, error) {
			c, err := svc.CloneTool(input.ToolID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &toolOutput{Body: c}, nil
		})

	type styleInput struct {
		ToolID string `path:"tool_id"`
		Body   tool.Style
	}
	huma.Register(api, huma.Operation{OperationID: "set-tool-style", Method: http.MethodPut, Path: "/api/v1/tools/{tool_id}/style", Summary: "Replace a tool's style", Tags: []string{"Tools"}},
		func(ctx context.Context, input *styleInput) (*toolStatusOutput, error) {
			if err := svc.UpdateStyle(input.ToolID, input.Body); err != nil {
				return nil, mapErr(err)
			}
			out := &toolStatusOutput{}
			out.Body.ToolID = input.ToolID
			out.Body.Status = "updated"
			return out, nil
		})

	type textInput struct {
		ToolID string `path:"tool_id"`
		Body   struct {
			Text string `json:"text"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-tool-text", Method: http.MethodPut, Path: "/api/v1/tools/{tool_id}/text", Summary: "Replace a tool's text", Tags: []string{"Tools"}},
		func(ctx context.Context, input *textInput) (*toolStatusOutput, error) {
			if err := svc.SetText(input.ToolID, input.Body.Text); err != nil {
				return nil, mapErr(err)
			}
			out := &toolStatusOutput{}
			out.Body.ToolID = input.ToolID
			out.Body.Status = "updated"
			return out, nil
		})

	type visibilityInput struct {
		ToolID string `path:"tool_id"`
		Body   struct {
			Visible bool `json:"visible"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-tool-visibility", Method: http.MethodPut, Path: "/api/v1/tools/{tool_id}/visibility", Summary: "Show or hide a tool", Tags: []string{"Tools"}},
		func(ctx context.Context, input *visibilityInput) (*toolStatusOutput, error) {
			if err := svc.SetVisible(input.ToolID, input.Body.Visible); err != nil {
				return nil, mapErr(err)
			}
			out := &toolStatusOutput{}
			out.Body.ToolID = input.ToolID
			out.Body.Status = "updated"
			return out, nil
		})

	type lockInput struct {
		ToolID string `path:"tool_id"`
		Body   struct {
			Locked bool `json:"locked"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-tool-lock", Method: http.MethodPut, Path: "/api/v1/tools/{tool_id}/lock", Summary: "Lock or unlock a tool", Tags: []string{"Tools"}},
		func(ctx context.Context, input *lockInput) (*toolStatusOutput, error) {
			if err := svc.SetLocked(input.ToolID, input.Body.Locked); err != nil {
				return nil, mapErr(err)
			}
			out := &toolStatusOutput{}
			out.Body.ToolID = input.ToolID
			out.Body.Status = "updated"
			return out, nil
		})

	type toggleInput struct {
		Body struct {
			Value bool `json:"value"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-all-visibility", Method: http.MethodPut, Path: "/api/v1/tools/visibility", Summary: "Show or hide every tool on the active chart", Tags: []string{"Tools"}},
		func(ctx context.Context, input *toggleInput) (*toolStatusOutput, error) {
			svc.SetAllVisible(input.Body.Value)
			out := &toolStatusOutput{}
			out.Body.Status = "updated"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-all-lock", Method: http.MethodPut, Path: "/api/v1/tools/lock", Summary: "Lock or unlock every tool on the active chart", Tags: []string{"Tools"}},
		func(ctx context.Context, input *toggleInput) (*toolStatusOutput, error) {
			svc.SetAllLocked(input.Body.Value)
			out := &toolStatusOutput{}
			out.Body.Status = "updated"
			return out, nil
		})
}
