package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerStateHandlers(api huma.API, svc Service) {
	type exportOutput struct {
		Body json.RawMessage
	}
	huma.Register(api, huma.Operation{OperationID: "export-tools", Method: http.MethodGet, Path: "/api/v1/state/export", Summary: "Export the active chart's tools as JSON", Tags: []string{"State"}},
		func(ctx context.Context, input *struct{}) (*exportOutput, error) {
			data, err := svc.ExportState()
			if err != nil {
				return nil, mapErr(err)
			}
			return &exportOutput{Body: data}, nil
		})

	type importInput struct {
		Body json.RawMessage
	}
	type importOutput struct {
		Body struct {
			Imported int    `json:"imported"`
			Status   string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "import-tools", Method: http.MethodPost, Path: "/api/v1/state/import", Summary: "Replace the active chart's tools from exported JSON; malformed entries are dropped", Tags: []string{"State"}},
		func(ctx context.Context, input *importInput) (*importOutput, error) {
			n, err := svc.ImportState(input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &importOutput{}
			out.Body.Imported = n
			out.Body.Status = "imported"
			return out, nil
		})
}
