package store

import (
	"context"
	"sync"

	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

// MemoryGateway keeps tool lists in memory. Used for tests and ephemeral
// runs.
type MemoryGateway struct {
	mu    sync.RWMutex
	lists map[Key][]*tool.Tool
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{lists: make(map[Key][]*tool.Tool)}
}

func (m *MemoryGateway) Load(_ context.Context, key Key) ([]*tool.Tool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyTools(m.lists[key]), nil
}

func (m *MemoryGateway) Save(_ context.Context, key Key, tools []*tool.Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = copyTools(tools)
	return nil
}

func (m *MemoryGateway) Close() error { return nil }

func copyTools(tools []*tool.Tool) []*tool.Tool {
	out := make([]*tool.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Copy())
	}
	return out
}
