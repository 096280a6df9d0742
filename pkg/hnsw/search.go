package hnsw

import (
	"container/heap"
	"fmt"
)

// Result represents a search result with ID and distance
type Result struct {
	ID       uint64  // Node ID
	Distance float32 // Distance to query vector
}

// SearchResult holds the results of a search operation
type SearchResult struct {
	Results []Result // Sorted results (closest first)
	Visited int      // Number of nodes visited during search
}

// Search performs k-NN search for the nearest neighbors of a query vector
// k: number of nearest neighbors to return
// efSearch: size of the dynamic candidate list (controls accuracy vs speed)
//
//	Higher values give better recall but slower search
//	Typical values: 50-200
//
// Search operates on the in-memory build-time graph; it is used by the
// recall tests and by tooling that wants to validate a graph before it is
// serialized. Production query traffic goes through the mmap-backed
// two-stage searcher in pkg/annfile instead.
func (idx *Index) Search(query []float32, k int, efSearch int) (*SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	idx.mu.RLock()

	if idx.dimension == 0 {
		idx.mu.RUnlock()
		return nil, fmt.Errorf("index is empty")
	}

	if len(query) != idx.dimension {
		idx.mu.RUnlock()
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d",
			idx.dimension, len(query))
	}

	if idx.entryPoint == nil {
		idx.mu.RUnlock()
		return nil, fmt.Errorf("index has no entry point")
	}

	if efSearch < k {
		efSearch = k
	}

	entryPoint := idx.entryPoint
	maxLayer := idx.maxLayer

	idx.mu.RUnlock()

	// Phase 1: greedy descent from the top layer to layer 1
	ep := entryPoint
	currentDist := idx.distance(query, ep.vector)
	visited := 1

	for lc := maxLayer; lc > 0; lc-- {
		changed := true
		for changed {
			changed = false

			neighbors := ep.GetNeighbors(lc)
			for _, neighborID := range neighbors {
				visited++
				neighborNode := idx.GetNode(neighborID)
				if neighborNode == nil {
					continue
				}

				dist := idx.distance(query, neighborNode.vector)
				if dist < currentDist {
					currentDist = dist
					ep = neighborNode
					changed = true
				}
			}
		}
	}

	// Phase 2: beam search layer 0 with efSearch candidates
	candidates := idx.searchLayerForQuery(query, ep, efSearch, 0, &visited)

	results := make([]Result, 0, k)
	for i := 0; i < len(candidates) && i < k; i++ {
		results = append(results, Result{
			ID:       candidates[i].id,
			Distance: candidates[i].distance,
		})
	}

	return &SearchResult{
		Results: results,
		Visited: visited,
	}, nil
}

// searchLayerForQuery is the query-time counterpart of searchLayer: same
// greedy-with-ef-candidates shape, but tracks a visited-node counter for
// observability.
func (idx *Index) searchLayerForQuery(query []float32, entryPoint *Node, ef int, layer int, visited *int) []heapItem {
	visitedSet := make(map[uint64]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	dist := idx.distance(query, entryPoint.vector)
	heap.Push(candidates, heapItem{id: entryPoint.ID(), distance: dist})
	heap.Push(results, heapItem{id: entryPoint.ID(), distance: dist})
	visitedSet[entryPoint.ID()] = true
	*visited++

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(heapItem)

		if current.distance > results.Peek().(heapItem).distance {
			break
		}

		currentNode := idx.GetNode(current.id)
		if currentNode == nil {
			continue
		}

		neighbors := currentNode.GetNeighbors(layer)
		for _, neighborID := range neighbors {
			if visitedSet[neighborID] {
				continue
			}
			visitedSet[neighborID] = true
			*visited++

			neighborNode := idx.GetNode(neighborID)
			if neighborNode == nil {
				continue
			}

			neighborDist := idx.distance(query, neighborNode.vector)

			if neighborDist < results.Peek().(heapItem).distance || results.Len() < ef {
				heap.Push(candidates, heapItem{id: neighborID, distance: neighborDist})
				heap.Push(results, heapItem{id: neighborID, distance: neighborDist})

				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	resultSlice := make([]heapItem, results.Len())
	for i := len(resultSlice) - 1; i >= 0; i-- {
		resultSlice[i] = heap.Pop(results).(heapItem)
	}

	return resultSlice
}

// KNNSearch is a convenience method for k-NN search with default efSearch:
// max(k*2, 50).
func (idx *Index) KNNSearch(query []float32, k int) (*SearchResult, error) {
	efSearch := k * 2
	if efSearch < 50 {
		efSearch = 50
	}
	return idx.Search(query, k, efSearch)
}

// GetVector retrieves a vector by its ID
func (idx *Index) GetVector(id uint64) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	node := idx.nodes[id]
	if node == nil {
		return nil, fmt.Errorf("node with ID %d not found", id)
	}

	vector := make([]float32, len(node.vector))
	copy(vector, node.vector)
	return vector, nil
}
