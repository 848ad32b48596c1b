package app

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
)

// debugBlock is the built-in block used when the caller supplies no registry.
// It logs lifecycle transitions so any manifest can be exercised end to end
// without a rendering backend.
type debugBlock struct {
	logger  *slog.Logger
	updates int
}

func (b *debugBlock) Mount(ctx context.Context, mc block.MountContext) error {
	b.logger = ctxlog.FromContext(ctx)
	b.logger.Debug("Debug block mounted.", "assets", len(mc.Assets), "params", len(mc.Params))
	return nil
}

func (b *debugBlock) Update(uc block.UpdateContext) {
	b.updates++
	// Every update would be far too chatty at debug level.
	if b.updates%32 == 1 {
		b.logger.Debug("Debug block updated.", "progress", uc.Progress, "updates", b.updates)
	}
}

func (b *debugBlock) Dispose() {
	b.logger.Debug("Debug block disposed.", "updates", b.updates)
}

// registryForManifest maps every block type the manifest names to the debug
// block, so validation passes and the sweep has something to drive.
func registryForManifest(m *config.Manifest) *block.Registry {
	reg := block.NewRegistry()
	for _, sec := range m.Sections {
		if sec.BlockType == "" || reg.Has(sec.BlockType) {
			continue
		}
		reg.Register(sec.BlockType, func() block.Block { return &debugBlock{} })
	}
	return reg
}

// stubLoader fabricates asset payloads with a small simulated latency. The
// payload size is derived from the asset id so budget accounting stays
// deterministic across runs.
type stubLoader struct {
	latency time.Duration
}

func (l *stubLoader) Load(ctx context.Context, assetID string) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(l.latency):
	}
	h := fnv.New32a()
	h.Write([]byte(assetID))
	size := 64<<10 + int(h.Sum32()%(1<<20))
	return make([]byte, size), nil
}
