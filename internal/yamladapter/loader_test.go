package yamladapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullManifest(t *testing.T) {
	path := writeManifest(t, `
story:
  prefetch_threshold: 0.8
  dispose_distance: 1
sections:
  - id: intro
    block: hero
    assets:
      model: "cdn://intro/model"
    params:
      title: Welcome
    keyframes:
      - t: 0
        values: { opacity: 0 }
      - t: 1
        easing: ease-out
        values: { opacity: 1 }
`)

	m, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 0.8, m.Settings.PrefetchThreshold)
	assert.Equal(t, 1, m.Settings.DisposeDistance)
	// Omitted knobs keep their defaults.
	assert.Equal(t, 4, m.Settings.MaxConcurrentLoads)

	require.Len(t, m.Sections, 1)
	intro := m.Sections[0]
	assert.Equal(t, "intro", intro.ID)
	assert.Equal(t, "hero", intro.BlockType)
	assert.Equal(t, "cdn://intro/model", intro.AssetRefs["model"])
	assert.Equal(t, "Welcome", intro.Params["title"])
	require.Len(t, intro.Keyframes, 2)
	assert.Equal(t, "ease-out", intro.Keyframes[1].Easing)
}

func TestLoad_InvalidYAMLIsRejected(t *testing.T) {
	path := writeManifest(t, "sections: [\n")
	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode manifest")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read manifest")
}
