package membudget

// TextureInfo describes a decoded image asset for size estimation.
type TextureInfo struct {
	Width    int
	Height   int
	Channels int
	// Mipmapped textures carry roughly a third of extra resident data.
	Mipmapped bool
}

// MeshInfo describes a geometry asset for size estimation.
type MeshInfo struct {
	VertexCount  int
	VertexStride int
	IndexCount   int
	IndexStride  int
}

// mipOverhead approximates the geometric series of mip levels (4/3).
const mipOverhead = 4.0 / 3.0

// defaultAssetBytes is the flat estimate for handles with no known shape.
// Deliberately coarse; callers needing accuracy should expose one of the
// *Info shapes from their loader.
const defaultAssetBytes = 1 << 20

// EstimateTexture returns the approximate resident bytes for a texture:
// pixel area times bytes per channel, plus mip overhead when applicable.
func EstimateTexture(info TextureInfo) int64 {
	channels := info.Channels
	if channels <= 0 {
		channels = 4
	}
	size := float64(info.Width) * float64(info.Height) * float64(channels)
	if info.Mipmapped {
		size *= mipOverhead
	}
	return int64(size)
}

// EstimateMesh returns the approximate resident bytes for a mesh from its
// vertex and index buffer sizes.
func EstimateMesh(info MeshInfo) int64 {
	stride := info.VertexStride
	if stride <= 0 {
		// Position + normal + uv as float32.
		stride = 32
	}
	idxStride := info.IndexStride
	if idxStride <= 0 {
		idxStride = 4
	}
	return int64(info.VertexCount)*int64(stride) + int64(info.IndexCount)*int64(idxStride)
}

// EstimateAsset inspects an opaque loader handle and returns a byte estimate
// for the shapes it recognizes, falling back to a flat default otherwise.
func EstimateAsset(handle any) int64 {
	switch h := handle.(type) {
	case TextureInfo:
		return EstimateTexture(h)
	case *TextureInfo:
		return EstimateTexture(*h)
	case MeshInfo:
		return EstimateMesh(h)
	case *MeshInfo:
		return EstimateMesh(*h)
	case []byte:
		return int64(len(h))
	case Sizer:
		return h.EstimatedBytes()
	default:
		return defaultAssetBytes
	}
}

// Sizer lets loader handles report their own resident size estimate.
type Sizer interface {
	EstimatedBytes() int64
}
