package annfile

import (
	"container/heap"
	"sort"
	"time"

	"github.com/hnswann/engine/internal/quant"
	"github.com/hnswann/engine/internal/simd"
)

// Result is one (id, distance) pair from Search, in the full-precision
// metric. Ascending in Distance.
type Result struct {
	ID       uint64
	Distance float32
}

// candItem is a candidate during the quantized coarse search: Dist is
// neg_dot_u8's output, so smaller is closer, matching l2_f32's ordering.
type candItem struct {
	id   uint32
	dist float32
}

// candMinHeap pops the closest candidate first; ties break on the lower
// ID for deterministic traversal order.
type candMinHeap []candItem

func (h candMinHeap) Len() int { return len(h) }
func (h candMinHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].id < h[j].id
}
func (h candMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candMinHeap) Push(x interface{}) { *h = append(*h, x.(candItem)) }
func (h *candMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// candMaxHeap keeps the worst of the best-ef results at the top, so it
// can be evicted in O(log ef) when a better candidate arrives.
type candMaxHeap []candItem

func (h candMaxHeap) Len() int { return len(h) }
func (h candMaxHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist > h[j].dist
	}
	return h[i].id > h[j].id
}
func (h candMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candMaxHeap) Push(x interface{}) { *h = append(*h, x.(candItem)) }
func (h *candMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
func (h candMaxHeap) peek() candItem {
	if len(h) == 0 {
		return candItem{dist: 1e30}
	}
	return h[0]
}

// Search runs the two-stage query described in spec §4.6: quantize the
// query, zoom from the entry point down to layer 1 using the coarse
// kernel, beam-search layer 0 for up to ef_search coarse candidates, then
// rerank those candidates with full-precision L2 and truncate to k.
//
// Search is safe to call concurrently; each call owns its own scratch
// drawn from idx.scratchPool.
func (idx *Index) Search(query []float32, k, efSearch int) []Result {
	n := int(idx.header.NumElements)
	if n == 0 {
		return nil
	}
	if efSearch < k {
		efSearch = k
	}

	start := time.Now()

	s := idx.scratchPool.Get().(*scratch)
	defer idx.scratchPool.Put(s)
	s.reset(n)

	if cap(s.queryQuant) < len(query) {
		s.queryQuant = make([]int8, len(query))
	}
	s.queryQuant = s.queryQuant[:len(query)]
	quant.QuantizeQueryInto(s.queryQuant, query)
	qq := s.queryQuant

	entry := uint32(idx.header.EntryPointID)
	maxLayer := int(idx.header.MaxLayer)

	cur := entry
	curDist := simd.NegDotU8(qq, idx.QVec(cur))

	for lc := maxLayer; lc > 0; lc-- {
		changed := true
		for changed {
			changed = false
			for _, nb := range idx.neighborsAtLayer(cur, lc) {
				d := simd.NegDotU8(qq, idx.QVec(nb))
				if d < curDist {
					curDist = d
					cur = nb
					changed = true
				}
			}
		}
	}

	coarse := idx.coarseBeamSearch(qq, cur, curDist, efSearch, s)

	results := make([]Result, 0, len(coarse))
	for _, c := range coarse {
		dist := simd.L2(query, idx.FVec(c.id))
		results = append(results, Result{ID: uint64(c.id), Distance: dist})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}

	if idx.metrics != nil {
		idx.metrics.RecordSearch(time.Since(start), s.visits, len(coarse), len(results))
	}

	return results
}

// coarseBeamSearch runs the layer-0 beam search with the quantized
// kernel, returning up to ef candidates sorted closest-first.
func (idx *Index) coarseBeamSearch(qq []int8, entry uint32, entryDist float32, ef int, s *scratch) []candItem {
	candidates := &candMinHeap{}
	results := &candMaxHeap{}

	heap.Push(candidates, candItem{id: entry, dist: entryDist})
	heap.Push(results, candItem{id: entry, dist: entryDist})
	s.markVisited(entry)

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(candItem)
		if current.dist > results.peek().dist && results.Len() >= ef {
			break
		}

		for _, nb := range idx.neighborsAtLayer(current.id, 0) {
			if s.isVisited(nb) {
				continue
			}
			s.markVisited(nb)

			d := simd.NegDotU8(qq, idx.QVec(nb))
			if results.Len() < ef || d < results.peek().dist {
				heap.Push(candidates, candItem{id: nb, dist: d})
				heap.Push(results, candItem{id: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candItem)
	}
	return out
}
