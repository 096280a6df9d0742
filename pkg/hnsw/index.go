package hnsw

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hnswann/engine/internal/simd"
	"github.com/hnswann/engine/pkg/observability"
)

// Index represents an in-memory HNSW (Hierarchical Navigable Small World)
// graph used during the build phase. Construction is single-writer: callers
// must not call Insert concurrently from multiple goroutines — BatchInsert
// enforces this by calling Insert sequentially rather than from a worker pool.
type Index struct {
	// Configuration parameters
	M              int     // Maximum number of connections per layer (except layer 0)
	M0             int     // Maximum number of connections for layer 0
	efConstruction int     // Size of dynamic candidate list during construction
	lMax           int     // Hard ceiling on layer_max: every node's level is in [0, lMax)
	ml             float64 // Normalization factor for level generation

	// Index state
	nodes       map[uint64]*Node // All nodes in the index
	entryPoint  *Node            // Entry point for search (highest level node)
	maxLayer    int              // Maximum layer in the index
	nodeCounter uint64           // Counter for generating unique node IDs
	dimension   int              // Vector dimension (set on first insert)

	// Concurrency control
	mu   sync.RWMutex // Protects index-level operations
	rand *rand.Rand   // Random number generator for level assignment

	// Statistics
	size int64 // Number of vectors in the index

	// metrics is nil unless the caller opts in via SetMetrics; build
	// operations skip recording rather than constructing a default
	// registry, so an Index never registers Prometheus collectors behind
	// a caller's back.
	metrics *observability.Metrics
}

// SetMetrics attaches a Prometheus metrics recorder to the index. Build
// operations (BatchInsert) report to it when non-nil.
func (idx *Index) SetMetrics(m *observability.Metrics) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.metrics = m
}

// IndexConfig holds configuration for creating a new Index
type IndexConfig struct {
	M              int // Bi-directional links per node (typical: 16-32)
	EfConstruction int // Size of candidate list during insertion (typical: 200)

	// LMax is the hard ceiling on the number of layers a node's layer_max
	// can reach: randomLevel() never returns more than LMax-1. Zero falls
	// back to 16, matching the original reference implementation's default.
	LMax int

	// Seed, when non-zero, makes level assignment deterministic across
	// runs. A zero value falls back to a time-seeded generator, matching
	// the non-reproducible behavior callers get when they don't care.
	Seed int64
}

// DefaultConfig returns a configuration with recommended default values
func DefaultConfig() IndexConfig {
	return IndexConfig{
		M:              16,
		EfConstruction: 200,
		LMax:           16,
	}
}

// New creates a new HNSW index with the given configuration. Distance is
// always simd.L2 (full-precision Euclidean) — the graph never holds a
// pluggable distance metric, since the on-disk format and the quantized
// coarse search both assume Euclidean ordering.
func New(config IndexConfig) *Index {
	if config.M == 0 {
		config.M = 16
	}
	if config.EfConstruction == 0 {
		config.EfConstruction = 200
	}
	if config.LMax == 0 {
		config.LMax = 16
	}

	// M0 is typically 2*M for the base layer
	M0 := config.M * 2

	// Normalization factor for level generation
	// ml = 1/ln(M) ensures exponential decay of layer probabilities
	ml := 1.0 / math.Log(float64(config.M))

	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewSource(config.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Index{
		M:              config.M,
		M0:             M0,
		efConstruction: config.EfConstruction,
		lMax:           config.LMax,
		ml:             ml,
		nodes:          make(map[uint64]*Node),
		maxLayer:       -1,
		nodeCounter:    0,
		rand:           rng,
	}
}

// randomLevel generates a random layer for a new node
// Uses exponential decay: P(level>=l) = e^(-l/ml) = M^(-l)
// This ensures most nodes are on lower layers, with fewer on higher layers.
// The result is capped at lMax-1: layer_max never reaches the ceiling fixed
// at construction.
func (idx *Index) randomLevel() int {
	r := idx.rand.Float64()
	level := int(math.Floor(-math.Log(r) * idx.ml))
	if level > idx.lMax-1 {
		level = idx.lMax - 1
	}
	return level
}

// Size returns the number of vectors in the index
func (idx *Index) Size() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.size
}

// Dimension returns the vector dimension of the index
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// MaxLayer returns the highest layer in the index
func (idx *Index) MaxLayer() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.maxLayer
}

// GetNode retrieves a node by ID (thread-safe)
func (idx *Index) GetNode(id uint64) *Node {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nodes[id]
}

// EntryPoint returns the current entry point node
func (idx *Index) EntryPoint() *Node {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entryPoint
}

// IndexStats summarizes the current build-time state of the graph, for
// logging and metrics.
type IndexStats struct {
	Size           int64
	Dimension      int
	MaxLayer       int
	M              int
	M0             int
	EfConstruction int
	LMax           int
	NodesPerLayer  map[int]int // Number of nodes at each layer
}

// GetStats returns current index statistics
func (idx *Index) GetStats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodesPerLayer := make(map[int]int)
	for _, node := range idx.nodes {
		for layer := 0; layer <= node.level; layer++ {
			nodesPerLayer[layer]++
		}
	}

	return IndexStats{
		Size:           idx.size,
		Dimension:      idx.dimension,
		MaxLayer:       idx.maxLayer,
		M:              idx.M,
		M0:             idx.M0,
		EfConstruction: idx.efConstruction,
		LMax:           idx.lMax,
		NodesPerLayer:  nodesPerLayer,
	}
}

// distance calculates the distance between two vectors
func (idx *Index) distance(a, b []float32) float32 {
	return simd.L2(a, b)
}

// distanceToNode calculates the distance from a vector to a node
func (idx *Index) distanceToNode(vector []float32, node *Node) float32 {
	return simd.L2(vector, node.vector)
}

// distanceBetweenNodes calculates the distance between two nodes
func (idx *Index) distanceBetweenNodes(a, b *Node) float32 {
	return simd.L2(a.vector, b.vector)
}
