package raknet

import "sort"

// recordSet encodes a set of u24 batch sequence numbers as single ids and
// closed ranges (§3 ACK/NAK record, §8 property 3: compaction is lossless).
type recordSet struct {
	singles []uint32
	ranges  [][2]uint32
}

// compact sorts and range-compacts a set of sequence numbers. Duplicate ids
// are deduped as a side effect of the sort+scan.
func compact(ids []uint32) recordSet {
	if len(ids) == 0 {
		return recordSet{}
	}
	sorted := append([]uint32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var rs recordSet
	start, prev := sorted[0], sorted[0]
	flush := func(end uint32) {
		if start == end {
			rs.singles = append(rs.singles, start)
		} else {
			rs.ranges = append(rs.ranges, [2]uint32{start, end})
		}
	}
	for _, id := range sorted[1:] {
		if id == prev {
			continue // dedup
		}
		if id == prev+1 {
			prev = id
			continue
		}
		flush(prev)
		start, prev = id, id
	}
	flush(prev)
	return rs
}

// expand is the inverse of compact: it returns every sequence number named
// by the record set, used by tests to verify losslessness.
func (rs recordSet) expand() []uint32 {
	var out []uint32
	for _, id := range rs.singles {
		out = append(out, id)
	}
	for _, r := range rs.ranges {
		for id := r[0]; id <= r[1]; id++ {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (rs recordSet) recordCount() int { return len(rs.singles) + len(rs.ranges) }

func (rs recordSet) encode(id byte) []byte {
	s := NewWriteStream()
	s.WriteByte(id)
	s.WriteUint16(uint16(rs.recordCount()))
	for _, single := range rs.singles {
		s.WriteByte(1)
		s.WriteUint24LE(single)
	}
	for _, r := range rs.ranges {
		s.WriteByte(0)
		s.WriteUint24LE(r[0])
		s.WriteUint24LE(r[1])
	}
	return s.Bytes()
}

// EncodeACK builds an ACK datagram acknowledging the given batch sequence
// numbers.
func EncodeACK(ids []uint32) []byte { return compact(ids).encode(IDACK) }

// EncodeNAK builds a NAK datagram requesting retransmission of the given
// batch sequence numbers.
func EncodeNAK(ids []uint32) []byte { return compact(ids).encode(IDNAK) }

// DecodeRecords parses a whole ACK or NAK datagram, skipping its leading id
// byte, back into the full set of named sequence numbers.
func DecodeRecords(data []byte) ([]uint32, error) {
	s := NewStream(data)
	if _, err := s.ReadByte(); err != nil { // id byte
		return nil, err
	}
	count, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	var ids []uint32
	for i := uint16(0); i < count; i++ {
		isSingle, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		start, err := s.ReadUint24LE()
		if err != nil {
			return nil, err
		}
		if isSingle == 1 {
			ids = append(ids, start)
			continue
		}
		end, err := s.ReadUint24LE()
		if err != nil {
			return nil, err
		}
		for seq := start; seq <= end; seq++ {
			ids = append(ids, seq)
		}
	}
	return ids, nil
}
