package hnsw

import "github.com/hnswann/engine/pkg/format"

// The methods below satisfy format.GraphSource, letting the serializer
// stream this graph to disk without pkg/format importing pkg/hnsw.

// NumElements returns the number of vectors in the index.
func (idx *Index) NumElements() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// EntryPointID returns the current entry point's node ID.
func (idx *Index) EntryPointID() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.entryPoint == nil {
		return 0
	}
	return idx.entryPoint.ID()
}

// DegreeM returns the upper-layer degree cap.
func (idx *Index) DegreeM() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.M
}

// DegreeM0 returns the layer-0 degree cap.
func (idx *Index) DegreeM0() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.M0
}

// EfConstruction returns the build-time beam width.
func (idx *Index) EfConstruction() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.efConstruction
}

// NodeLevel returns the node's layer_max.
func (idx *Index) NodeLevel(id uint64) int {
	node := idx.GetNode(id)
	if node == nil {
		return 0
	}
	return node.Level()
}

// NodeVector returns the node's vector (not a copy — Save only reads it).
func (idx *Index) NodeVector(id uint64) []float32 {
	node := idx.GetNode(id)
	if node == nil {
		return nil
	}
	return node.vector
}

// NodeNeighbors returns a node's neighbor IDs at the given layer.
func (idx *Index) NodeNeighbors(id uint64, layer int) []uint64 {
	node := idx.GetNode(id)
	if node == nil {
		return nil
	}
	return node.GetNeighbors(layer)
}

// Save serializes the graph to path using the on-disk format implemented
// by pkg/format.
func (idx *Index) Save(path string) error {
	return format.Save(path, idx)
}
