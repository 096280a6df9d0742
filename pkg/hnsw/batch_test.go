package hnsw

import (
	"math/rand"
	"testing"
)

func randomVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rand.Float32()
	}
	return vec
}

func TestBatchInsert(t *testing.T) {
	idx := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})

	vectors := make([][]float32, 100)
	for i := 0; i < 100; i++ {
		vectors[i] = randomVector(768)
	}

	result := idx.BatchInsert(vectors, nil)

	if result.TotalProcessed != 100 {
		t.Errorf("Expected 100 processed, got %d", result.TotalProcessed)
	}
	if result.SuccessCount != 100 {
		t.Errorf("Expected 100 successes, got %d", result.SuccessCount)
	}
	if result.FailureCount != 0 {
		t.Errorf("Expected 0 failures, got %d", result.FailureCount)
	}
	if len(result.VectorIDs) != 100 {
		t.Errorf("Expected 100 IDs, got %d", len(result.VectorIDs))
	}
	if idx.Size() != 100 {
		t.Errorf("Expected index size 100, got %d", idx.Size())
	}
}

func TestBatchInsertWithProgress(t *testing.T) {
	idx := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})

	vectors := make([][]float32, 100)
	for i := 0; i < 100; i++ {
		vectors[i] = randomVector(768)
	}

	progressCalls := 0
	lastProcessed := 0

	result := idx.BatchInsert(vectors, func(processed, total int) {
		progressCalls++
		if processed < lastProcessed {
			t.Errorf("Progress decreased: %d -> %d", lastProcessed, processed)
		}
		lastProcessed = processed
		if total != 100 {
			t.Errorf("Expected total 100, got %d", total)
		}
	})

	if result.SuccessCount != 100 {
		t.Errorf("Expected 100 successes, got %d", result.SuccessCount)
	}
	if progressCalls == 0 {
		t.Error("Expected progress callbacks to be called")
	}
}

func TestBatchInsertEmpty(t *testing.T) {
	idx := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})

	var vectors [][]float32
	result := idx.BatchInsert(vectors, nil)

	if result.TotalProcessed != 0 {
		t.Errorf("Expected 0 processed, got %d", result.TotalProcessed)
	}
}

func TestGetBatchStats(t *testing.T) {
	idx := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})

	for i := 0; i < 50; i++ {
		idx.Insert(randomVector(768))
	}

	stats := idx.GetBatchStats()

	totalVectors, ok := stats["total_vectors"].(int64)
	if !ok || totalVectors != 50 {
		t.Errorf("Expected total_vectors 50, got %v", stats["total_vectors"])
	}

	maxLayer, ok := stats["max_layer"].(int)
	if !ok {
		t.Error("Expected max_layer in stats")
	}
	if maxLayer < 0 {
		t.Errorf("Invalid max_layer: %d", maxLayer)
	}
}

// TestBatchInsertMatchesSequentialInsert confirms BatchInsert builds the
// exact same graph topology as an equivalent loop of direct Insert calls,
// since both must treat the caller's vectors identically (see the warning
// in BatchInsert's doc comment).
func TestBatchInsertMatchesSequentialInsert(t *testing.T) {
	vectors := make([][]float32, 50)
	for i := range vectors {
		vectors[i] = randomVector(32)
	}

	batched := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})
	batched.BatchInsert(vectors, nil)

	sequential := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})
	for _, v := range vectors {
		if _, err := sequential.Insert(v); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if batched.Size() != sequential.Size() {
		t.Fatalf("size differs: batch=%d sequential=%d", batched.Size(), sequential.Size())
	}

	for id := uint64(0); id < uint64(len(vectors)); id++ {
		bn := batched.GetNode(id)
		sn := sequential.GetNode(id)
		if bn.Level() != sn.Level() {
			t.Fatalf("node %d: level differs: batch=%d sequential=%d", id, bn.Level(), sn.Level())
		}
		for layer := 0; layer <= bn.Level(); layer++ {
			bNeighbors := bn.GetNeighbors(layer)
			sNeighbors := sn.GetNeighbors(layer)
			if len(bNeighbors) != len(sNeighbors) {
				t.Fatalf("node %d layer %d: neighbor count differs: batch=%v sequential=%v", id, layer, bNeighbors, sNeighbors)
			}
			for i := range bNeighbors {
				if bNeighbors[i] != sNeighbors[i] {
					t.Fatalf("node %d layer %d: neighbors differ: batch=%v sequential=%v", id, layer, bNeighbors, sNeighbors)
				}
			}
		}
	}
}

func BenchmarkBatchInsert(b *testing.B) {
	idx := New(IndexConfig{M: 16, EfConstruction: 200, Seed: 1})

	vectors := make([][]float32, 1000)
	for i := 0; i < 1000; i++ {
		vectors[i] = randomVector(768)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.BatchInsert(vectors, nil)
	}
}
