package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vk/scrollstory/internal/block"
	"github.com/vk/scrollstory/internal/config"
	"github.com/vk/scrollstory/internal/ctxlog"
	"github.com/vk/scrollstory/internal/prefetch"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	manifest *config.Manifest
	blocks   *block.Registry
	assets   prefetch.Loader
}

// New is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. Passing nil for
// loader, blocks, or assets selects the built-in defaults: a loader chosen by
// manifest extension, a debug block registry covering every manifest block
// type, and a stub asset loader.
func New(outW io.Writer, appConfig *Config, loader config.Loader, blocks *block.Registry, assets prefetch.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if loader == nil {
		loader = loaderForPath(appConfig.ManifestPath)
	}
	manifest, err := loader.Load(ctx, appConfig.ManifestPath)
	if err != nil {
		// A failure to load the manifest is a fatal startup error.
		panic(fmt.Errorf("failed to load manifest: %w", err))
	}
	logger.Debug("Manifest loaded into unified model.", "sections", len(manifest.Sections))

	if blocks == nil {
		blocks = registryForManifest(manifest)
		logger.Debug("Built-in debug registry assembled.", "types", blocks.Names())
	}

	// Validation covers settings ranges, section identity, block type
	// resolution, and timeline construction in one pass.
	if err := config.Validate(ctx, manifest, blocks); err != nil {
		panic(err)
	}
	logger.Debug("Manifest validation passed.")

	if assets == nil {
		assets = &stubLoader{latency: 5 * time.Millisecond}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		manifest: manifest,
		blocks:   blocks,
		assets:   assets,
	}
}

// Manifest returns the loaded manifest. This is primarily for testing.
func (a *App) Manifest() *config.Manifest {
	return a.manifest
}

// Blocks returns the application's block registry. This is primarily for
// testing.
func (a *App) Blocks() *block.Registry {
	return a.blocks
}
