package hnsw

import (
	"sync"
	"testing"
)

func TestNewNode(t *testing.T) {
	vector := []float32{1.0, 2.0, 3.0}
	node := NewNode(123, vector, 2)

	if node.ID() != 123 {
		t.Errorf("Expected ID 123, got %d", node.ID())
	}
	if node.Level() != 2 {
		t.Errorf("Expected level 2, got %d", node.Level())
	}
	if len(node.Vector()) != 3 {
		t.Errorf("Expected vector length 3, got %d", len(node.Vector()))
	}

	for layer := 0; layer <= 2; layer++ {
		neighbors := node.GetNeighbors(layer)
		if neighbors == nil {
			t.Errorf("Neighbors at layer %d should be initialized", layer)
		}
		if len(neighbors) != 0 {
			t.Errorf("Layer %d should start with 0 neighbors, got %d", layer, len(neighbors))
		}
	}
}

func TestNodeAddNeighbor(t *testing.T) {
	node := NewNode(1, []float32{1, 2, 3}, 2)

	node.AddNeighbor(0, 2)
	neighbors := node.GetNeighbors(0)
	if len(neighbors) != 1 || neighbors[0] != 2 {
		t.Errorf("Expected neighbor 2 at layer 0")
	}

	node.AddNeighbor(0, 3)
	neighbors = node.GetNeighbors(0)
	if len(neighbors) != 2 {
		t.Errorf("Expected 2 neighbors at layer 0, got %d", len(neighbors))
	}

	node.AddNeighbor(0, 2)
	neighbors = node.GetNeighbors(0)
	if len(neighbors) != 2 {
		t.Errorf("Duplicate neighbor should be ignored, got %d neighbors", len(neighbors))
	}
}

func TestNodeSetNeighbors(t *testing.T) {
	node := NewNode(1, []float32{1, 2, 3}, 1)

	newNeighbors := []uint64{10, 20, 30}
	node.SetNeighbors(0, newNeighbors)

	neighbors := node.GetNeighbors(0)
	if len(neighbors) != 3 {
		t.Errorf("Expected 3 neighbors, got %d", len(neighbors))
	}

	newNeighbors[0] = 999
	neighbors = node.GetNeighbors(0)
	if neighbors[0] == 999 {
		t.Error("Node neighbors should not be affected by external modification")
	}
}

func TestNodeHasNeighbor(t *testing.T) {
	node := NewNode(1, []float32{1, 2, 3}, 2)

	node.AddNeighbor(0, 5)
	node.AddNeighbor(1, 6)

	if !node.HasNeighbor(0, 5) {
		t.Error("Should have neighbor 5 at layer 0")
	}
	if !node.HasNeighbor(1, 6) {
		t.Error("Should have neighbor 6 at layer 1")
	}
	if node.HasNeighbor(0, 6) {
		t.Error("Should not have neighbor 6 at layer 0")
	}
	if node.HasNeighbor(2, 5) {
		t.Error("Should not have neighbor 5 at layer 2")
	}
}

func TestNodeConcurrency(t *testing.T) {
	node := NewNode(1, []float32{1, 2, 3}, 0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			node.AddNeighbor(0, id)
		}(uint64(i))
	}

	wg.Wait()

	neighbors := node.GetNeighbors(0)
	if len(neighbors) != 100 {
		t.Errorf("Expected 100 neighbors, got %d", len(neighbors))
	}
}
