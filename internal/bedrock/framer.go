package bedrock

import "fmt"

// FrameMarker is the leading byte RakNet payloads carry once a client has
// moved past the offline handshake into the Bedrock session layer (§4.5).
const FrameMarker byte = 0xFE

// DecodeInbound strips the session-layer framing from one reassembled
// RakNet payload — marker byte, then decryption, then decompression — and
// splits the remaining batch into individual packets (§4.5).
func (s *Session) DecodeInbound(data []byte) ([]Outbound, error) {
	if len(data) == 0 || data[0] != FrameMarker {
		return nil, &ProtocolError{ReasonBadPacket, "missing frame marker"}
	}
	body := data[1:]

	s.mu.Lock()
	enc := s.encryptorLocked()
	compressionEnabled := s.compressionEnabled
	algo := s.compressionAlgorithm
	s.mu.Unlock()

	if enc != nil {
		plain, err := enc.Decrypt(body)
		if err != nil {
			return nil, &ProtocolError{ReasonBadPacket, "decrypt: " + err.Error()}
		}
		body = plain
	}

	if compressionEnabled {
		if len(body) == 0 {
			return nil, &ProtocolError{ReasonBadPacket, "empty compressed frame"}
		}
		if body[0] == NoCompressionMarker {
			body = body[1:]
		} else {
			out, err := Decompress(algo, body)
			if err != nil {
				return nil, &ProtocolError{ReasonBadPacket, "decompress: " + err.Error()}
			}
			body = out
		}
	}

	return decodeBatch(body)
}

func decodeBatch(data []byte) ([]Outbound, error) {
	var packets []Outbound
	r := NewReader(data)
	for r.remaining() > 0 {
		n, err := r.VarUint32()
		if err != nil {
			return nil, fmt.Errorf("bedrock: malformed packet batch: %w", err)
		}
		if r.remaining() < int(n) {
			return nil, fmt.Errorf("bedrock: malformed packet batch: short packet")
		}
		chunk := r.buf[r.off : r.off+int(n)]
		r.off += int(n)

		cr := NewReader(chunk)
		h, err := cr.VarUint32()
		if err != nil {
			return nil, fmt.Errorf("bedrock: malformed packet header: %w", err)
		}
		hdr := decodeHeader(h)
		packets = append(packets, Outbound{ID: hdr.ID, Body: chunk[cr.off:]})
	}
	return packets, nil
}

// EncodeOutbound reassembles one or more packets into a single framed
// RakNet payload, mirroring DecodeInbound: batch, then optionally
// compress, then optionally encrypt, then prepend the marker byte.
func (s *Session) EncodeOutbound(packets []Outbound) ([]byte, error) {
	var batch []byte
	for _, p := range packets {
		w := NewWriter()
		w.VarUint32(header{ID: p.ID}.encode())
		packetBytes := append(w.Bytes(), p.Body...)

		lw := NewWriter()
		lw.VarUint32(uint32(len(packetBytes)))
		batch = append(batch, lw.Bytes()...)
		batch = append(batch, packetBytes...)
	}

	s.mu.Lock()
	compressionEnabled := s.compressionEnabled
	algo := s.compressionAlgorithm
	threshold := s.compressionThreshold
	enc := s.encryptorLocked()
	s.mu.Unlock()

	payload := batch
	if compressionEnabled {
		compressed, did, err := Compress(algo, threshold, batch)
		if err != nil {
			return nil, err
		}
		if did {
			payload = compressed
		} else {
			payload = append([]byte{NoCompressionMarker}, batch...)
		}
	}

	if enc != nil {
		ciphertext, _, err := enc.Encrypt(payload)
		if err != nil {
			return nil, err
		}
		payload = ciphertext
	}

	return append([]byte{FrameMarker}, payload...), nil
}
