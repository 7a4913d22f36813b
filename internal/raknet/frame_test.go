package raknet

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFragmentationRoundTrip is §8 property 2: for any payload up to 16 MiB
// given to the outbound engine with a chosen mtu, the produced compound,
// fed back through the inbound engine, reconstructs the original bytes.
func TestFragmentationRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 500, 6000, 200_000}
	mtus := []uint16{MinMTU, DefaultMTU, MaxMTU}

	for _, size := range sizes {
		for _, mtu := range mtus {
			payload := make([]byte, size)
			_, _ = rand.Read(payload)

			sender := NewSession(mtu, 1)
			sender.Enqueue(PriorityMedium, ReliableOrdered, 0, payload)
			datagrams, err := sender.Tick(0)
			require.NoError(t, err)

			receiver := NewSession(mtu, 2)
			var delivered [][]byte
			for _, dg := range datagrams {
				if len(dg) == 0 || dg[0] == IDACK || dg[0] == IDNAK {
					continue
				}
				res, err := receiver.HandleDatagram(dg)
				require.NoError(t, err)
				delivered = append(delivered, res.Delivered...)
			}

			require.Len(t, delivered, 1)
			require.True(t, bytes.Equal(payload, delivered[0]), "size=%d mtu=%d", size, mtu)
		}
	}
}

// TestFrameAtExactMTUFragments is the §8 boundary case: a frame exactly mtu
// bytes is fragmented into at least two pieces.
func TestFrameAtExactMTUFragments(t *testing.T) {
	mtu := uint16(DefaultMTU)
	payload := make([]byte, mtu)

	s := NewSession(mtu, 1)
	s.Enqueue(PriorityHigh, Reliable, 0, payload)
	datagrams, err := s.Tick(0)
	require.NoError(t, err)
	require.True(t, len(datagrams) >= 2, "expected at least 2 batches, got %d", len(datagrams))
}

func TestOrderedDeliveryOutOfOrder(t *testing.T) {
	// §8 property 1 / scenario 3: frames delivered out of order are
	// reassembled strictly in order on their channel.
	sender := NewSession(DefaultMTU, 1)
	var datagrams [][]byte
	// One Tick per frame, so each frame travels in its own batch.
	for i := 0; i < 4; i++ {
		sender.Enqueue(PriorityHigh, ReliableOrdered, 0, []byte{byte(i)})
		batches, err := sender.Tick(0)
		require.NoError(t, err)
		datagrams = append(datagrams, batches...)
	}

	// Shuffle delivery order: 0, 2, 1, 3.
	order := []int{0, 2, 1, 3}
	receiver := NewSession(DefaultMTU, 2)
	var delivered [][]byte
	for _, idx := range order {
		res, err := receiver.HandleDatagram(datagrams[idx])
		require.NoError(t, err)
		delivered = append(delivered, res.Delivered...)
	}
	require.Len(t, delivered, 4)
	for i, d := range delivered {
		require.Equal(t, byte(i), d[0])
	}
}

func TestSequencedDropsStale(t *testing.T) {
	// §8 property 4: sequenced frames with sequence_index < last_delivered
	// are never delivered upstream.
	receiver := NewSession(DefaultMTU, 1)

	mkBatch := func(seq uint32, seqIndex uint32) []byte {
		b := &Batch{Seq: seq, Frames: []*Frame{{
			Reliability:   UnreliableSequenced,
			SequenceIndex: seqIndex,
			OrderChannel:  0,
			Payload:       []byte{byte(seqIndex)},
		}}}
		return b.Encode()
	}

	res, err := receiver.HandleDatagram(mkBatch(0, 5))
	require.NoError(t, err)
	require.Len(t, res.Delivered, 1)

	res, err = receiver.HandleDatagram(mkBatch(1, 3))
	require.NoError(t, err)
	require.Empty(t, res.Delivered, "stale sequenced frame must be dropped")

	res, err = receiver.HandleDatagram(mkBatch(2, 6))
	require.NoError(t, err)
	require.Len(t, res.Delivered, 1)
}

func TestOutOfRangeOrderChannelIsRejected(t *testing.T) {
	// A malicious or buggy peer can put any value 0-255 in the wire's
	// order_channel byte; only NumOrderChannels of those are valid
	// indices into the fixed per-session channel array. Out-of-range
	// values must be rejected as malformed wire data (§7), not used to
	// index the array.
	b := &Batch{Seq: 0, Frames: []*Frame{{
		Reliability:  ReliableOrdered,
		OrderChannel: NumOrderChannels, // one past the last valid index
		Payload:      []byte{0},
	}}}

	receiver := NewSession(DefaultMTU, 1)
	_, err := receiver.HandleDatagram(b.Encode())
	require.Error(t, err)
}

func TestEmptyDatagramDropped(t *testing.T) {
	s := NewSession(DefaultMTU, 1)
	res, err := s.HandleDatagram(nil)
	require.NoError(t, err)
	require.Empty(t, res.Delivered)
}
