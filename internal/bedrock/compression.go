package bedrock

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

// Algorithm names a negotiated compression scheme (§6 config,
// compression.algorithm).
type Algorithm string

const (
	AlgorithmDeflate Algorithm = "deflate"
	AlgorithmSnappy  Algorithm = "snappy"
)

// NoCompressionMarker is the canonical §9 framing choice: a leading 0xFF
// byte inside the (already decrypted) payload means "no compression was
// applied to this packet", even though the session negotiated one. Every
// other payload was compressed with whichever single algorithm the session
// negotiated at NetworkSettings time — there is no separate per-packet
// algorithm tag, since a session never switches algorithms mid-connection.
const NoCompressionMarker byte = 0xFF

// ErrCompressionUnsupported is returned for snappy, which this
// implementation declares but does not implement (§9 open question: the
// marker-byte framing is canonical, snappy stays a stub rather than being
// wired to an unvetted dependency).
var ErrCompressionUnsupported = errors.New("bedrock: compression algorithm not implemented")

// Compress compresses body with algo if it meets threshold, returning
// (compressed, true) or (body, false) when below threshold — the caller
// prepends NoCompressionMarker in the false case (§4.5 outbound encoding).
func Compress(algo Algorithm, threshold int, body []byte) ([]byte, bool, error) {
	if len(body) < threshold {
		return body, false, nil
	}
	switch algo {
	case AlgorithmDeflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.BestSpeed)
		if err != nil {
			return nil, false, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, false, err
		}
		if err := w.Close(); err != nil {
			return nil, false, err
		}
		return buf.Bytes(), true, nil
	case AlgorithmSnappy:
		return nil, false, ErrCompressionUnsupported
	default:
		return nil, false, fmt.Errorf("bedrock: unknown compression algorithm %q", algo)
	}
}

// Decompress reverses Compress for the session's negotiated algorithm.
func Decompress(algo Algorithm, body []byte) ([]byte, error) {
	switch algo {
	case AlgorithmDeflate:
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("bedrock: deflate decompress: %w", err)
		}
		return out, nil
	case AlgorithmSnappy:
		return nil, ErrCompressionUnsupported
	default:
		return nil, fmt.Errorf("bedrock: unknown compression algorithm %q", algo)
	}
}
