package store

import (
	"context"

	"github.com/dgnsrekt/tv_annotate/internal/tool"
)

// Key identifies one persisted tool list.
type Key struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

func (k Key) String() string {
	return k.Symbol + "/" + k.Timeframe
}

// Gateway persists tool lists keyed by symbol/timeframe. The engine is
// agnostic to whether the backing store is local or remote.
type Gateway interface {
	Load(ctx context.Context, key Key) ([]*tool.Tool, error)
	Save(ctx context.Context, key Key, tools []*tool.Tool) error
	Close() error
}

// NoopGateway discards saves and loads nothing. Selected when the DB path
// is configured empty, meaning persistence is switched off.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (n *NoopGateway) Load(_ context.Context, _ Key) ([]*tool.Tool, error) { return nil, nil }

func (n *NoopGateway) Save(_ context.Context, _ Key, _ []*tool.Tool) error { return nil }

func (n *NoopGateway) Close() error { return nil }
