package tool

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Export serializes a tool list to its wire representation. Every field
// round-trips through Import exactly.
func Export(tools []*Tool) ([]byte, error) {
	if tools == nil {
		tools = []*Tool{}
	}
	data, err := json.Marshal(tools)
	if err != nil {
		return nil, fmt.Errorf("tool export: %w", err)
	}
	return data, nil
}

// Import deserializes a tool list. Malformed entries (unknown type, point
// count below the type's arity) are dropped with a logged warning rather
// than failing the whole load. Tools arriving without an id are assigned a
// fresh one, mirroring server-side id assignment on creation.
func Import(data []byte) ([]*Tool, error) {
	var tools []*Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, NewError(CodeValidation, "tool import: malformed payload", err)
	}

	out := make([]*Tool, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		if err := t.Validate(); err != nil {
			slog.Warn("dropping malformed tool at import",
				"id", t.ID,
				"type", t.Type,
				"points", len(t.Points),
				"error", err)
			continue
		}
		if t.ID == "" {
			t.ID = NewID()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		out = append(out, t)
	}
	return out, nil
}
