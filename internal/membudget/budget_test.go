package membudget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocate_WithinBudget(t *testing.T) {
	tr := New(1000)

	assert.True(t, tr.Allocate("a", 400))
	assert.True(t, tr.Allocate("b", 600))
	assert.Equal(t, int64(1000), tr.Used())
	assert.Equal(t, 100.0, tr.UsagePercent())
}

func TestAllocate_RefusalChangesNothing(t *testing.T) {
	tr := New(1000)
	assert.True(t, tr.Allocate("a", 800))

	assert.False(t, tr.Allocate("b", 300))
	assert.Equal(t, int64(800), tr.Used())
	assert.Equal(t, int64(0), tr.SectionAllocation("b"))
}

func TestAllocate_SameSectionAccumulates(t *testing.T) {
	tr := New(1000)
	assert.True(t, tr.Allocate("a", 100))
	assert.True(t, tr.Allocate("a", 250))
	assert.Equal(t, int64(350), tr.SectionAllocation("a"))
	assert.Equal(t, int64(350), tr.Used())
}

func TestFree_ReleasesEntireAllocation(t *testing.T) {
	tr := New(1000)
	tr.Allocate("a", 300)
	tr.Allocate("b", 200)

	tr.Free("a")

	assert.Equal(t, int64(0), tr.SectionAllocation("a"))
	assert.Equal(t, int64(200), tr.Used())

	// Freeing an unknown section is a no-op.
	tr.Free("zzz")
	assert.Equal(t, int64(200), tr.Used())
}

func TestEstimateTexture(t *testing.T) {
	// 1024x1024 RGBA, no mips: exactly 4 MiB.
	plain := EstimateTexture(TextureInfo{Width: 1024, Height: 1024, Channels: 4})
	assert.Equal(t, int64(4<<20), plain)

	mipped := EstimateTexture(TextureInfo{Width: 1024, Height: 1024, Channels: 4, Mipmapped: true})
	assert.Greater(t, mipped, plain)
	assert.Less(t, mipped, plain*3/2)
}

func TestEstimateMesh(t *testing.T) {
	got := EstimateMesh(MeshInfo{VertexCount: 100, VertexStride: 32, IndexCount: 300, IndexStride: 4})
	assert.Equal(t, int64(100*32+300*4), got)
}

type fakeSizer struct{ n int64 }

func (f fakeSizer) EstimatedBytes() int64 { return f.n }

func TestEstimateAsset(t *testing.T) {
	assert.Equal(t, int64(4<<20), EstimateAsset(TextureInfo{Width: 1024, Height: 1024, Channels: 4}))
	assert.Equal(t, int64(128), EstimateAsset(make([]byte, 128)))
	assert.Equal(t, int64(777), EstimateAsset(fakeSizer{n: 777}))
	assert.Equal(t, int64(defaultAssetBytes), EstimateAsset(struct{}{}))
}

func TestDefaultBudget_Positive(t *testing.T) {
	assert.Positive(t, DefaultBudget())
}
