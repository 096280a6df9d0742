package annfile

import (
	"unsafe"

	"github.com/hnswann/engine/pkg/format"
)

// NodeRecord returns node id's fixed-size record.
func (idx *Index) NodeRecord(id uint32) format.NodeRecord {
	off := idx.header.NodesOffset + uint64(id)*format.NodeRecordSize
	return format.ParseNodeRecord(idx.data[off : off+format.NodeRecordSize])
}

// QVec returns the quantized (u8) vector for id — a zero-copy slice into
// the mapping.
func (idx *Index) QVec(id uint32) []byte {
	d := uint64(idx.header.Dimension)
	off := idx.header.QuantizedVectorsOffset + uint64(id)*d
	return idx.data[off : off+d]
}

// FVec returns the full-precision (f32) vector for id — a zero-copy view
// over the mapping, reinterpreting its bytes in place rather than
// copying and decoding them. This is the one place the engine reaches
// for unsafe: there is no portable way in Go to alias a []byte as
// []float32 without it, and the whole point of mmapping the arena is to
// avoid a per-query copy of every candidate's vector.
func (idx *Index) FVec(id uint32) []float32 {
	d := uint64(idx.header.Dimension)
	off := idx.header.VectorsOffset + uint64(id)*d*4
	b := idx.data[off : off+d*4]
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), d)
}

// Connections returns the raw connection arena as a zero-copy byte slice.
// Most callers want neighborsAtLayer instead; this exists for callers
// (and tests) that want to walk the arena themselves.
func (idx *Index) Connections() []byte {
	return idx.data[idx.header.ConnectionsOffset:]
}

// neighborsAtLayer walks the connection arena's blocks for id, skipping
// blocks for layers below layer, and returns the block at layer as a
// slice of u32 neighbor IDs. Returns nil if id has no block at layer.
func (idx *Index) neighborsAtLayer(id uint32, layer int) []uint32 {
	rec := idx.NodeRecord(id)
	if layer < 0 || layer >= int(rec.LayerCount) {
		return nil
	}

	off := idx.header.ConnectionsOffset + uint64(rec.ConnectionsOffset)
	for l := 0; l < layer; l++ {
		count := readU32(idx.data, off)
		off += 4 + uint64(count)*4
	}

	count := readU32(idx.data, off)
	off += 4

	out := make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		out[i] = readU32(idx.data, off)
		off += 4
	}
	return out
}

func readU32(b []byte, off uint64) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
