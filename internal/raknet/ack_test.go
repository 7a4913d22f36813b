package raknet

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestACKCompactionLossless is §8 property 3: for any set S of u24 batch
// ids, parsing the compacted ACK back yields exactly S.
func TestACKCompactionLossless(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		set := map[uint32]struct{}{}
		for i := 0; i < 40; i++ {
			set[uint32(r.Intn(200))] = struct{}{}
		}
		var ids []uint32
		for id := range set {
			ids = append(ids, id)
		}

		encoded := EncodeACK(ids)
		require.Equal(t, IDACK, encoded[0])

		decoded, err := DecodeRecords(encoded)
		require.NoError(t, err)

		got := map[uint32]struct{}{}
		for _, id := range decoded {
			got[id] = struct{}{}
		}
		require.Equal(t, set, got)
	}
}

func TestNACKEncodeFlag(t *testing.T) {
	encoded := EncodeNAK([]uint32{10, 11, 12})
	if encoded[0] != IDNAK {
		t.Errorf("expected NAK flag 0x%02X, got 0x%02X", IDNAK, encoded[0])
	}
}

func TestCompactSingleAndRange(t *testing.T) {
	rs := compact([]uint32{1, 2, 3, 7, 9, 10})
	require.ElementsMatch(t, []uint32{7}, rs.singles)
	require.ElementsMatch(t, [][2]uint32{{1, 3}, {9, 10}}, rs.ranges)
}
