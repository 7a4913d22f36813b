package bedrock

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer builds the body of a single Bedrock packet. It is a much smaller
// cousin of raknet.Stream: little-endian fixed fields plus LEB128 varints,
// matching the Bedrock wire format rather than RakNet's.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) Uint8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) Int32(v int32)   { w.VarInt32(v) }
func (w *Writer) Int64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}
func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *Writer) Float32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}
func (w *Writer) VarUint32(v uint32) { w.buf = WriteVarUint32(w.buf, v) }
func (w *Writer) VarInt32(v int32)   { w.VarUint32(uint32((v << 1) ^ (v >> 31))) }
func (w *Writer) String(s string) {
	w.VarUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
func (w *Writer) Strings(ss []string) {
	w.VarUint32(uint32(len(ss)))
	for _, s := range ss {
		w.String(s)
	}
}

// Reader parses the body of a single Bedrock packet.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) remaining() int { return len(r.buf) - r.off }

func (r *Reader) Bool() (bool, error) {
	b, err := r.Uint8()
	return b != 0, err
}

func (r *Reader) Uint8() (uint8, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("bedrock: short read")
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) Uint16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, fmt.Errorf("bedrock: short read")
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) Int64() (int64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("bedrock: short read")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return int64(v), nil
}

func (r *Reader) Uint64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("bedrock: short read")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) Float32() (float32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("bedrock: short read")
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return math.Float32frombits(v), nil
}

func (r *Reader) VarUint32() (uint32, error) {
	v, n, err := ReadVarUint32(r.buf[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

func (r *Reader) VarInt32() (int32, error) {
	u, err := r.VarUint32()
	if err != nil {
		return 0, err
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

func (r *Reader) String() (string, error) {
	n, err := r.VarUint32()
	if err != nil {
		return "", err
	}
	if r.remaining() < int(n) {
		return "", fmt.Errorf("bedrock: short read")
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *Reader) Strings() ([]string, error) {
	n, err := r.VarUint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], err = r.String(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
