package raknet

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Stream is a cursor over a byte slice used to read and write the
// big-endian wire fields of the offline handshake and the little-endian
// fields inside a frame batch. It is not safe for concurrent use; each
// datagram gets its own Stream.
type Stream struct {
	data   []byte
	offset int
}

// NewStream wraps data for reading.
func NewStream(data []byte) *Stream {
	return &Stream{data: data}
}

// NewWriteStream starts an empty Stream for building a datagram.
func NewWriteStream() *Stream {
	return &Stream{data: make([]byte, 0, 64)}
}

func (s *Stream) Remaining() int { return len(s.data) - s.offset }

func (s *Stream) ReadByte() (byte, error) {
	if s.offset >= len(s.data) {
		return 0, fmt.Errorf("raknet: short read: need 1 byte, have %d", s.Remaining())
	}
	b := s.data[s.offset]
	s.offset++
	return b, nil
}

func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.offset+n > len(s.data) {
		return nil, fmt.Errorf("raknet: short read: need %d bytes, have %d", n, s.Remaining())
	}
	b := s.data[s.offset : s.offset+n]
	s.offset += n
	return b, nil
}

func (s *Stream) ReadUint16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (s *Stream) ReadUint24LE() (uint32, error) {
	b, err := s.ReadBytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

func (s *Stream) ReadUint32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (s *Stream) ReadUint64() (uint64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadString reads a u16-length-prefixed string, as used by the motd field
// of UnconnectedPong.
func (s *Stream) ReadString() (string, error) {
	n, err := s.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadAddress reads a RakNet-encoded IPv4 address (inverted octets, the
// legacy wire quirk every RakNet implementation still honours).
func (s *Stream) ReadAddress() (*net.UDPAddr, error) {
	version, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != 4 {
		return nil, fmt.Errorf("raknet: unsupported address version %d", version)
	}
	octets, err := s.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	ip := net.IPv4(^octets[0], ^octets[1], ^octets[2], ^octets[3])
	port, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ip, Port: int(port)}, nil
}

func (s *Stream) WriteByte(b byte) { s.data = append(s.data, b) }

func (s *Stream) WriteBytes(b []byte) { s.data = append(s.data, b...) }

func (s *Stream) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.data = append(s.data, b[:]...)
}

func (s *Stream) WriteUint24LE(v uint32) {
	s.data = append(s.data, byte(v), byte(v>>8), byte(v>>16))
}

func (s *Stream) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.data = append(s.data, b[:]...)
}

func (s *Stream) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	s.data = append(s.data, b[:]...)
}

func (s *Stream) WriteString(str string) {
	s.WriteUint16(uint16(len(str)))
	s.data = append(s.data, str...)
}

func (s *Stream) WriteAddress(addr *net.UDPAddr) {
	ip4 := addr.IP.To4()
	if ip4 == nil {
		// IPv6 peers never reach the RakNet offline address encoding in
		// this spec; callers should not hit this path.
		ip4 = net.IPv4zero.To4()
	}
	s.WriteByte(4)
	for _, o := range ip4 {
		s.WriteByte(^o)
	}
	s.WriteUint16(uint16(addr.Port))
}

// Bytes returns the accumulated (or wrapped) buffer.
func (s *Stream) Bytes() []byte { return s.data }
