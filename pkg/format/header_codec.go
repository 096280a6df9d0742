package format

import "encoding/binary"

// MarshalBinary writes h into a fresh HeaderSize-byte buffer following the
// normative layout (spec §6): magic, version, dimension, element count,
// entry point, max layer, M/M0/efConstruction, four offsets, checksum,
// and zeroed reserved padding.
func (h *Header) MarshalBinary() []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[0:8], Magic)
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint32(buf[12:16], h.Dimension)
	binary.LittleEndian.PutUint32(buf[16:20], h.NumElements)
	binary.LittleEndian.PutUint32(buf[20:24], h.EntryPointID)
	binary.LittleEndian.PutUint16(buf[24:26], h.MaxLayer)
	// buf[26:28] _pad, left zero
	binary.LittleEndian.PutUint32(buf[28:32], h.M)
	binary.LittleEndian.PutUint32(buf[32:36], h.M0)
	binary.LittleEndian.PutUint32(buf[36:40], h.EfConstruction)
	binary.LittleEndian.PutUint64(buf[40:48], h.NodesOffset)
	binary.LittleEndian.PutUint64(buf[48:56], h.QuantizedVectorsOffset)
	binary.LittleEndian.PutUint64(buf[56:64], h.VectorsOffset)
	binary.LittleEndian.PutUint64(buf[64:72], h.ConnectionsOffset)
	binary.LittleEndian.PutUint64(buf[72:80], uint64(h.Checksum))
	// buf[80:256] reserved, left zero

	return buf
}

// ParseHeader reads a Header out of the first HeaderSize bytes of b.
// Callers are responsible for length/magic validation before calling this
// (see annfile.Load); ParseHeader itself performs no checks.
func ParseHeader(b []byte) Header {
	var h Header
	h.Version = binary.LittleEndian.Uint32(b[8:12])
	h.Dimension = binary.LittleEndian.Uint32(b[12:16])
	h.NumElements = binary.LittleEndian.Uint32(b[16:20])
	h.EntryPointID = binary.LittleEndian.Uint32(b[20:24])
	h.MaxLayer = binary.LittleEndian.Uint16(b[24:26])
	h.M = binary.LittleEndian.Uint32(b[28:32])
	h.M0 = binary.LittleEndian.Uint32(b[32:36])
	h.EfConstruction = binary.LittleEndian.Uint32(b[36:40])
	h.NodesOffset = binary.LittleEndian.Uint64(b[40:48])
	h.QuantizedVectorsOffset = binary.LittleEndian.Uint64(b[48:56])
	h.VectorsOffset = binary.LittleEndian.Uint64(b[56:64])
	h.ConnectionsOffset = binary.LittleEndian.Uint64(b[64:72])
	h.Checksum = uint32(binary.LittleEndian.Uint64(b[72:80]))
	return h
}

// MarshalBinary writes r into a fresh NodeRecordSize-byte buffer.
func (r *NodeRecord) MarshalBinary() []byte {
	buf := make([]byte, NodeRecordSize)
	buf[0] = r.LayerCount
	// buf[1:4] pad, left zero
	binary.LittleEndian.PutUint32(buf[4:8], r.ConnectionsOffset)
	return buf
}

// ParseNodeRecord reads a NodeRecord out of the first NodeRecordSize bytes
// of b.
func ParseNodeRecord(b []byte) NodeRecord {
	return NodeRecord{
		LayerCount:        b[0],
		ConnectionsOffset: binary.LittleEndian.Uint32(b[4:8]),
	}
}
