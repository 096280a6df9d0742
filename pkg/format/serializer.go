package format

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/hnswann/engine/internal/quant"
)

// GraphSource is the read-only view of an in-memory HNSW graph the
// serializer needs. pkg/hnsw.Index implements it; the serializer itself
// has no dependency on pkg/hnsw, so the two packages don't import each
// other.
type GraphSource interface {
	NumElements() int
	Dimension() int
	EntryPointID() uint64
	MaxLayer() int
	DegreeM() int
	DegreeM0() int
	EfConstruction() int

	// NodeLevel returns the node's layer_max; its node record covers
	// layers 0..=NodeLevel(id).
	NodeLevel(id uint64) int
	NodeVector(id uint64) []float32
	NodeNeighbors(id uint64, layer int) []uint64
}

// Save streams g into a single contiguous file at path following the
// layout algorithm in spec §4.4: a placeholder header, then the node
// table, padding, the quantized arena, padding, the full-precision arena,
// and the connection arena — with a CRC32 computed over every byte after
// the header — followed by a final header rewrite with the real offsets
// and checksum.
//
// Save rejects an empty graph: the on-disk format has no representation
// for "no entry point", so num_elements == 0 is treated as a caller error
// rather than producing a file a loader would have to special-case.
func Save(path string, g GraphSource) error {
	n := g.NumElements()
	if n == 0 {
		return fmt.Errorf("format: cannot save an empty graph (num_elements == 0)")
	}
	d := g.Dimension()

	nodesOffset := uint64(HeaderSize)
	nodesSize := uint64(n) * NodeRecordSize
	qOffset := alignUp(nodesOffset+nodesSize, Alignment)
	qSize := uint64(n) * uint64(d)
	fOffset := alignUp(qOffset+qSize, Alignment)
	fSize := uint64(n) * uint64(d) * 4
	connOffset := fOffset + fSize

	nodeRecords, connArena := buildNodeTableAndConnections(g, n)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("format: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	crc := crc32.NewIEEE()
	mw := io.MultiWriter(w, crc)

	if _, err := w.Write(make([]byte, HeaderSize)); err != nil {
		return fmt.Errorf("format: write header placeholder: %w", err)
	}

	for _, rec := range nodeRecords {
		if _, err := mw.Write(rec.MarshalBinary()); err != nil {
			return fmt.Errorf("format: write node record: %w", err)
		}
	}
	if err := padTo(mw, nodesOffset+nodesSize, qOffset); err != nil {
		return err
	}

	// Quantized (u8) arena. The builder stores vectors raw (distances
	// during insertion are computed on the caller's original values), so
	// normalization happens here, once, at save time — per spec, both
	// arenas hold normalized vectors regardless of what Insert was given.
	for id := 0; id < n; id++ {
		v := quant.Normalize(g.NodeVector(uint64(id)))
		q := quant.QuantizeDB(v)
		if _, err := mw.Write(q); err != nil {
			return fmt.Errorf("format: write quantized vector: %w", err)
		}
	}
	if err := padTo(mw, qOffset+qSize, fOffset); err != nil {
		return err
	}

	// Full-precision (f32) arena: the same normalized vectors, so the
	// quantized and full-precision arenas stay coherent.
	for id := 0; id < n; id++ {
		v := quant.Normalize(g.NodeVector(uint64(id)))
		if err := binary.Write(mw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("format: write full-precision vector: %w", err)
		}
	}

	if _, err := mw.Write(connArena); err != nil {
		return fmt.Errorf("format: write connection arena: %w", err)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("format: flush: %w", err)
	}

	header := Header{
		Version:                Version,
		Dimension:              uint32(d),
		NumElements:            uint32(n),
		EntryPointID:           uint32(g.EntryPointID()),
		MaxLayer:               uint16(g.MaxLayer()),
		M:                      uint32(g.DegreeM()),
		M0:                     uint32(g.DegreeM0()),
		EfConstruction:         uint32(g.EfConstruction()),
		NodesOffset:            nodesOffset,
		QuantizedVectorsOffset: qOffset,
		VectorsOffset:          fOffset,
		ConnectionsOffset:      connOffset,
		Checksum:               crc.Sum32(),
	}

	if _, err := f.WriteAt(header.MarshalBinary(), 0); err != nil {
		return fmt.Errorf("format: rewrite header: %w", err)
	}

	return f.Sync()
}

// buildNodeTableAndConnections computes the node table and the connection
// arena bytes up front, since each node's connections_offset field must
// be known before the node table itself is streamed out.
func buildNodeTableAndConnections(g GraphSource, n int) ([]NodeRecord, []byte) {
	records := make([]NodeRecord, n)
	var connArena []byte
	var running uint32

	for id := 0; id < n; id++ {
		layerCount := g.NodeLevel(uint64(id)) + 1
		records[id] = NodeRecord{
			LayerCount:        uint8(layerCount),
			ConnectionsOffset: running,
		}

		for layer := 0; layer < layerCount; layer++ {
			neighbors := g.NodeNeighbors(uint64(id), layer)
			block := make([]byte, 4+4*len(neighbors))
			binary.LittleEndian.PutUint32(block[0:4], uint32(len(neighbors)))
			for i, nb := range neighbors {
				binary.LittleEndian.PutUint32(block[4+4*i:8+4*i], uint32(nb))
			}
			connArena = append(connArena, block...)
			running += uint32(len(block))
		}
	}

	return records, connArena
}

// padTo writes zero bytes to w until the stream has advanced from
// current to target bytes.
func padTo(w io.Writer, current, target uint64) error {
	if target < current {
		return fmt.Errorf("format: internal error: pad target %d precedes current offset %d", target, current)
	}
	n := target - current
	if n == 0 {
		return nil
	}
	if _, err := w.Write(make([]byte, n)); err != nil {
		return fmt.Errorf("format: write padding: %w", err)
	}
	return nil
}
