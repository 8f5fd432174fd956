package tool

import (
	"reflect"
	"testing"
	"time"
)

func TestExportImport_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tools := []*Tool{
		{
			ID:   "a1",
			Type: TypeTrendline,
			Points: []Point{
				{Timestamp: 1700000000, Price: 101.5},
				{Timestamp: 1700003600, Price: 108.25},
			},
			Style:     registry[TypeTrendline].DefaultStyle,
			Visible:   true,
			Locked:    true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "b2",
			Type:      TypeText,
			Points:    []Point{{Timestamp: 1700000000, Price: 99}},
			Style:     registry[TypeText].DefaultStyle,
			Text:      "support retest",
			Visible:   false,
			CreatedAt: now,
			UpdatedAt: now.Add(time.Minute),
		},
	}

	data, err := Export(tools)
	if err != nil {
		t.Fatalf("Export() = %v; want nil", err)
	}
	got, err := Import(data)
	if err != nil {
		t.Fatalf("Import() = %v; want nil", err)
	}
	if !reflect.DeepEqual(got, tools) {
		t.Fatalf("Import(Export(tools)) = %+v; want %+v", got, tools)
	}
}

func TestImport_DropsMalformedTools(t *testing.T) {
	payload := []byte(`[
		{"id":"ok","type":"horizontal","points":[{"timestamp":1,"price":2}],"style":{"color":"#787B86","thickness":1,"opacity":1},"visible":true},
		{"id":"short","type":"trendline","points":[{"timestamp":1,"price":2}],"style":{},"visible":true},
		{"id":"bad","type":"gann_fan","points":[],"style":{},"visible":true}
	]`)
	got, err := Import(payload)
	if err != nil {
		t.Fatalf("Import() = %v; want nil (malformed entries dropped, not fatal)", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("Import() kept %d tools; want only the valid one", len(got))
	}
}

func TestImport_AssignsMissingIDs(t *testing.T) {
	payload := []byte(`[{"type":"vertical","points":[{"timestamp":5,"price":9}],"style":{"color":"#787B86","thickness":1,"opacity":1},"visible":true}]`)
	got, err := Import(payload)
	if err != nil {
		t.Fatalf("Import() = %v; want nil", err)
	}
	if len(got) != 1 || got[0].ID == "" {
		t.Fatalf("Import() id = %q; want generated id", got[0].ID)
	}
	if got[0].CreatedAt.IsZero() || got[0].UpdatedAt.IsZero() {
		t.Fatalf("Import() timestamps not backfilled: %+v", got[0])
	}
}

func TestImport_MalformedPayload(t *testing.T) {
	if _, err := Import([]byte(`{not json`)); err == nil {
		t.Fatalf("Import(garbage) = nil; want VALIDATION error")
	}
}
