package raknet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNAKRetransmitsTwice is the §8 boundary case: a recovery buffer entry
// NAK'd twice in a row is retransmitted twice.
func TestNAKRetransmitsTwice(t *testing.T) {
	s := NewSession(DefaultMTU, 1)
	s.Enqueue(PriorityHigh, Reliable, 0, []byte("hello"))
	datagrams, err := s.Tick(0)
	require.NoError(t, err)
	require.Len(t, datagrams, 1)
	original := datagrams[0]

	batch, err := DecodeBatch(original)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := s.HandleDatagram(EncodeNAK([]uint32{batch.Seq}))
		require.NoError(t, err)
		require.Len(t, res.Retransmits, 1)
		require.Equal(t, original, res.Retransmits[0])
	}
}

func TestACKRemovesFromRecovery(t *testing.T) {
	s := NewSession(DefaultMTU, 1)
	s.Enqueue(PriorityHigh, Reliable, 0, []byte("hello"))
	datagrams, err := s.Tick(0)
	require.NoError(t, err)
	batch, err := DecodeBatch(datagrams[0])
	require.NoError(t, err)

	_, err = s.HandleDatagram(EncodeACK([]uint32{batch.Seq}))
	require.NoError(t, err)

	res, err := s.HandleDatagram(EncodeNAK([]uint32{batch.Seq}))
	require.NoError(t, err)
	require.Empty(t, res.Retransmits, "acked batch must be gone from recovery buffer")
}

func TestImmediateNAKOnGap(t *testing.T) {
	receiver := NewSession(DefaultMTU, 1)

	mk := func(seq uint32) []byte {
		return (&Batch{Seq: seq, Frames: []*Frame{{Payload: []byte{1}}}}).Encode()
	}

	_, err := receiver.HandleDatagram(mk(0))
	require.NoError(t, err)

	res, err := receiver.HandleDatagram(mk(2))
	require.NoError(t, err)
	require.NotNil(t, res.ImmediateNAK)

	ids, err := DecodeRecords(res.ImmediateNAK)
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, ids)
}
