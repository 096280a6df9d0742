package hnsw

import (
	"fmt"
	"time"

	"github.com/hnswann/engine/pkg/observability"
)

// BatchInsertResult represents the result of a batch insert operation
type BatchInsertResult struct {
	TotalProcessed int
	SuccessCount   int
	FailureCount   int
	Errors         []error
	VectorIDs      []uint64
}

// ProgressCallback is called during batch operations to report progress
type ProgressCallback func(processed, total int)

// BatchInsert loads a set of vectors into the index, one at a time, in
// order.
//
// The build phase is single-writer: Insert mutates shared graph state
// (entry point, per-node neighbor lists, layer counts) in a way that is
// only safe from one goroutine at a time, so this never calls Insert
// concurrently. BatchInsert(vectors) and a caller-written loop of
// Insert(vectors[i]) must build identical graphs from identical input.
// Neither Insert nor BatchInsert transforms the vectors; normalization
// happens only when the graph is saved.
func (idx *Index) BatchInsert(vectors [][]float32, progressCb ProgressCallback) *BatchInsertResult {
	result := &BatchInsertResult{
		TotalProcessed: len(vectors),
		Errors:         make([]error, 0),
		VectorIDs:      make([]uint64, len(vectors)),
	}

	if len(vectors) == 0 {
		return result
	}

	start := time.Now()
	observability.Debugf("batch insert starting: %d vectors", len(vectors))

	for i, vector := range vectors {
		id, err := idx.Insert(vector)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("vector %d: %w", i, err))
			result.FailureCount++
		} else {
			result.VectorIDs[i] = id
			result.SuccessCount++
		}

		if progressCb != nil {
			progressCb(i+1, len(vectors))
		}
	}

	elapsed := time.Since(start)
	observability.Info("batch insert completed", map[string]interface{}{
		"succeeded": result.SuccessCount,
		"failed":    result.FailureCount,
		"duration":  elapsed,
	})

	idx.mu.RLock()
	m := idx.metrics
	idx.mu.RUnlock()
	stats := idx.GetStats()
	if m != nil {
		m.RecordBuild(elapsed, result.SuccessCount)
		m.RecordBatchInsert()
		for layer, count := range stats.NodesPerLayer {
			m.UpdateNodesPerLayer(fmt.Sprintf("%d", layer), count)
		}
	}

	return result
}

// GetBatchStats returns a snapshot of build-time index state useful for
// reporting progress during a long BatchInsert run.
func (idx *Index) GetBatchStats() map[string]interface{} {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var entryPointID interface{}
	if idx.entryPoint != nil {
		entryPointID = idx.entryPoint.id
	}

	return map[string]interface{}{
		"total_vectors":  idx.size,
		"max_layer":      idx.maxLayer,
		"entry_point_id": entryPointID,
	}
}
