// Package annfile implements the mmap-backed loader and two-stage
// (quantized-coarse, full-precision-rerank) searcher for a built index.
// Everything here operates on an immutable, shared mapping: once Load
// returns a ready Index, Search may be called concurrently from any
// number of goroutines, each using its own scratch space drawn from a
// pool.
package annfile

// State is the loader's lifecycle: Unloaded never appears on a value
// returned by Load (Load either fails or returns a Ready index); it
// exists so State's zero value is meaningful in tests that construct an
// Index by hand.
type State int

const (
	Unloaded State = iota
	Mapped
	Verified
	Prefaulted
	Ready
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Mapped:
		return "mapped"
	case Verified:
		return "verified"
	case Prefaulted:
		return "prefaulted"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
