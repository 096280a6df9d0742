package annfile

import (
	"hash/crc32"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/hnswann/engine/pkg/format"
	"github.com/hnswann/engine/pkg/observability"
)

// pageSize is the prefault stride; touching one byte per page forces the
// OS to resolve every page's fault up front instead of during the first
// query.
const pageSize = 4096

// Index is a loaded, read-only, mmap-backed index. The mapping outlives
// every slice returned by its accessors — they all borrow from data,
// which is only released by Close.
type Index struct {
	state State

	file *os.File
	data []byte // the full mapping

	header format.Header

	scratchPool sync.Pool

	// metrics is nil unless the caller opts in via SetMetrics; Search and
	// verify skip recording rather than constructing a default registry.
	metrics *observability.Metrics
}

// SetMetrics attaches a Prometheus metrics recorder to the index. Search
// reports to it when non-nil.
func (idx *Index) SetMetrics(m *observability.Metrics) {
	idx.metrics = m
}

// LoadOption configures a Load call.
type LoadOption func(*Index)

// WithMetrics attaches a metrics recorder before verification runs, so a
// checksum failure on load is observable. SetMetrics only takes effect
// for calls made after Load returns, which is too late to see that.
func WithMetrics(m *observability.Metrics) LoadOption {
	return func(idx *Index) { idx.metrics = m }
}

// Load opens path, maps it read-only, validates its header and checksum,
// and prefaults every page. It returns a fully Ready Index or a
// *format.LoadError describing exactly what went wrong.
func Load(path string, opts ...LoadOption) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &format.LoadError{Kind: format.ErrIo, Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &format.LoadError{Kind: format.ErrIo, Err: err}
	}
	size := fi.Size()
	if size < format.HeaderSize {
		f.Close()
		return nil, &format.LoadError{Kind: format.ErrFileTooSmall}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, &format.LoadError{Kind: format.ErrIo, Err: err}
	}

	idx := &Index{state: Mapped, file: f, data: data}
	for _, opt := range opts {
		opt(idx)
	}
	observability.Debugf("annfile: mapped %s (%d bytes)", path, size)

	if err := idx.verify(size); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}
	idx.state = Verified
	observability.Debug("annfile: header and checksum verified", map[string]interface{}{
		"num_elements": idx.header.NumElements,
		"dimension":    idx.header.Dimension,
	})

	idx.prefault()
	idx.state = Prefaulted
	observability.Debug("annfile: mapping prefaulted")

	idx.scratchPool.New = func() interface{} {
		return newScratch(int(idx.header.NumElements), int(idx.header.Dimension))
	}

	idx.state = Ready
	observability.Info("annfile: index ready", map[string]interface{}{"path": path})
	return idx, nil
}

// verify checks magic, offset ordering, and the CRC32 of the payload
// region, in that order — cheapest checks first.
func (idx *Index) verify(size int64) error {
	if string(idx.data[0:8]) != format.Magic {
		return &format.LoadError{Kind: format.ErrInvalidMagic}
	}

	h := format.ParseHeader(idx.data)

	offsets := []uint64{h.NodesOffset, h.QuantizedVectorsOffset, h.VectorsOffset, h.ConnectionsOffset}
	for _, off := range offsets {
		if off > uint64(size) {
			return &format.LoadError{Kind: format.ErrFileTooSmall}
		}
	}

	n := uint64(h.NumElements)
	d := uint64(h.Dimension)
	nodesEnd := h.NodesOffset + n*format.NodeRecordSize
	qEnd := h.QuantizedVectorsOffset + n*d
	fEnd := h.VectorsOffset + n*d*4

	if h.NodesOffset != format.HeaderSize ||
		h.QuantizedVectorsOffset < nodesEnd ||
		h.VectorsOffset < qEnd ||
		h.ConnectionsOffset < fEnd {
		return &format.LoadError{Kind: format.ErrOffsetInconsistent}
	}
	if h.ConnectionsOffset > uint64(size) {
		return &format.LoadError{Kind: format.ErrFileTooSmall}
	}

	crc := crc32.ChecksumIEEE(idx.data[format.HeaderSize:])
	if crc != h.Checksum {
		observability.Warn("annfile: checksum mismatch", map[string]interface{}{
			"expected": h.Checksum,
			"computed": crc,
		})
		if idx.metrics != nil {
			idx.metrics.RecordChecksumFailure()
		}
		return &format.LoadError{Kind: format.ErrChecksumMismatch}
	}

	idx.header = h
	return nil
}

// prefault advises the OS the mapping will be needed soon and benefits
// from huge pages, then touches one byte per page so the first query
// doesn't pay for page faults.
func (idx *Index) prefault() {
	unix.Madvise(idx.data, unix.MADV_WILLNEED)
	unix.Madvise(idx.data, unix.MADV_HUGEPAGE)

	var sink byte
	for off := 0; off < len(idx.data); off += pageSize {
		sink += idx.data[off]
	}
	_ = sink
}

// Close unmaps the file and releases the file handle. Any slice returned
// by an accessor becomes invalid after Close.
func (idx *Index) Close() error {
	if err := unix.Munmap(idx.data); err != nil {
		return err
	}
	return idx.file.Close()
}

// State returns the loader's current lifecycle state.
func (idx *Index) State() State {
	return idx.state
}

// Header returns the parsed file header.
func (idx *Index) Header() format.Header {
	return idx.header
}
