package raknet

import "fmt"

// Frame is the reliability engine's unit: one upstream payload, or one
// fragment of one (§3). Index fields are only meaningful when the
// corresponding Reliability predicate is true; they are left zero
// otherwise.
type Frame struct {
	Reliability Reliability

	IsFragment    bool
	CompoundID    uint16
	CompoundSize  uint32
	CompoundIndex uint32

	ReliableIndex uint32
	SequenceIndex uint32
	OrderChannel  uint8
	OrderIndex    uint32

	Payload []byte
}

// size returns the serialized size of the frame, used to decide batching
// and fragmentation thresholds.
func (f *Frame) size() int {
	n := 3 // flags byte + 2 byte bit-length
	if f.Reliability.IsReliable() {
		n += 3
	}
	if f.Reliability.IsSequenced() {
		n += 3
	}
	if f.Reliability.IsOrdered() {
		n += 4
	}
	if f.IsFragment {
		n += 10
	}
	return n + len(f.Payload)
}

func (f *Frame) encode(s *Stream) {
	flags := byte(f.Reliability) << 5
	if f.IsFragment {
		flags |= 0x10
	}
	s.WriteByte(flags)
	s.WriteUint16(uint16(len(f.Payload)) * 8)

	if f.Reliability.IsReliable() {
		s.WriteUint24LE(f.ReliableIndex)
	}
	if f.Reliability.IsSequenced() {
		s.WriteUint24LE(f.SequenceIndex)
	}
	if f.Reliability.IsOrdered() {
		s.WriteUint24LE(f.OrderIndex)
		s.WriteByte(f.OrderChannel)
	}
	if f.IsFragment {
		var b [4]byte
		b[0] = byte(f.CompoundSize >> 24)
		b[1] = byte(f.CompoundSize >> 16)
		b[2] = byte(f.CompoundSize >> 8)
		b[3] = byte(f.CompoundSize)
		s.WriteBytes(b[:])
		s.WriteUint16(f.CompoundID)
		b[0] = byte(f.CompoundIndex >> 24)
		b[1] = byte(f.CompoundIndex >> 16)
		b[2] = byte(f.CompoundIndex >> 8)
		b[3] = byte(f.CompoundIndex)
		s.WriteBytes(b[:])
	}
	s.WriteBytes(f.Payload)
}

func decodeFrame(s *Stream) (*Frame, error) {
	flags, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	f := &Frame{
		Reliability: Reliability((flags >> 5) & 0x07),
		IsFragment:  flags&0x10 != 0,
	}
	lengthBits, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	lengthBytes := int((lengthBits + 7) / 8)

	if f.Reliability.IsReliable() {
		if f.ReliableIndex, err = s.ReadUint24LE(); err != nil {
			return nil, err
		}
	}
	if f.Reliability.IsSequenced() {
		if f.SequenceIndex, err = s.ReadUint24LE(); err != nil {
			return nil, err
		}
	}
	if f.Reliability.IsOrdered() {
		if f.OrderIndex, err = s.ReadUint24LE(); err != nil {
			return nil, err
		}
		if f.OrderChannel, err = s.ReadByte(); err != nil {
			return nil, err
		}
		if f.OrderChannel >= NumOrderChannels {
			return nil, fmt.Errorf("raknet: order channel %d out of range", f.OrderChannel)
		}
	}
	if f.IsFragment {
		b, err := s.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		f.CompoundSize = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		if f.CompoundID, err = s.ReadUint16(); err != nil {
			return nil, err
		}
		if b, err = s.ReadBytes(4); err != nil {
			return nil, err
		}
		f.CompoundIndex = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	payload, err := s.ReadBytes(lengthBytes)
	if err != nil {
		return nil, err
	}
	f.Payload = append([]byte(nil), payload...)
	return f, nil
}

// Batch is a single outbound/inbound datagram: a batch sequence number plus
// the frames packed into it (§3).
type Batch struct {
	Seq    uint32
	Frames []*Frame
}

// Encode serializes the batch. Callers are responsible for keeping the
// result within the session's MTU; see batchLocked in outbound.go.
func (b *Batch) Encode() []byte {
	s := NewWriteStream()
	s.WriteByte(IDFrameBatchMin)
	s.WriteUint24LE(b.Seq)
	for _, f := range b.Frames {
		f.encode(s)
	}
	return s.Bytes()
}

// size is the serialized size of the batch so far, including its header.
func (b *Batch) size() int {
	n := BatchHeaderSize
	for _, f := range b.Frames {
		n += f.size()
	}
	return n
}

// DecodeBatch parses a connected datagram into its batch sequence number
// and frames. It returns an error on any malformed field; callers must drop
// the datagram rather than partially apply it (§7).
func DecodeBatch(data []byte) (*Batch, error) {
	s := NewStream(data)
	flag, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	if !IsConnected(flag) {
		return nil, fmt.Errorf("raknet: not a frame batch: flag 0x%02X", flag)
	}
	seq, err := s.ReadUint24LE()
	if err != nil {
		return nil, err
	}
	b := &Batch{Seq: seq}
	for s.Remaining() > 0 {
		f, err := decodeFrame(s)
		if err != nil {
			return nil, fmt.Errorf("raknet: malformed frame in batch %d: %w", seq, err)
		}
		b.Frames = append(b.Frames, f)
	}
	return b, nil
}
