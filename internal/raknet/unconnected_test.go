package raknet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func testInfo() ServerInfo {
	return ServerInfo{GUID: 0xDEADBEEF, MOTD: func() string { return "A Bedrock Server" }}
}

// TestHappyHandshake is §8 scenario 1: ping/pong, then request/reply 1 and
// 2 in sequence.
func TestHappyHandshake(t *testing.T) {
	info := testInfo()

	ping := NewWriteStream()
	ping.WriteByte(IDUnconnectedPing)
	ping.WriteUint64(1000)
	ping.WriteBytes(offlineMagic[:])
	ping.WriteUint64(42)

	pong, err := HandleUnconnectedPing(ping.Bytes(), info)
	require.NoError(t, err)
	require.Equal(t, IDUnconnectedPong, pong[0])

	s := NewStream(pong)
	_, _ = s.ReadByte()
	ts, _ := s.ReadUint64()
	require.EqualValues(t, 1000, ts)
	guid, _ := s.ReadUint64()
	require.Equal(t, info.GUID, guid)

	req1 := NewWriteStream()
	req1.WriteByte(IDOpenConnectionRequest1)
	req1.WriteBytes(offlineMagic[:])
	req1.WriteByte(ProtocolVersion)
	req1.WriteBytes(make([]byte, 1000))

	reply1, err := HandleOpenConnectionRequest1(req1.Bytes(), info)
	require.NoError(t, err)
	require.Equal(t, IDOpenConnectionReply1, reply1[0])

	peer := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 34000}
	req2 := NewWriteStream()
	req2.WriteByte(IDOpenConnectionRequest2)
	req2.WriteBytes(offlineMagic[:])
	req2.WriteAddress(peer)
	req2.WriteUint16(1400)
	req2.WriteUint64(42)

	result, err := HandleOpenConnectionRequest2(req2.Bytes(), peer, info)
	require.NoError(t, err)
	require.EqualValues(t, 1400, result.MTU)
	require.EqualValues(t, 42, result.ClientGUID)
	require.Equal(t, IDOpenConnectionReply2, result.Reply[0])
}

// TestProtocolMismatchTooNew is §8 scenario 2.
func TestProtocolMismatchTooNew(t *testing.T) {
	info := testInfo()
	req1 := NewWriteStream()
	req1.WriteByte(IDOpenConnectionRequest1)
	req1.WriteBytes(offlineMagic[:])
	req1.WriteByte(ProtocolVersion + 1)
	req1.WriteBytes(make([]byte, 200))

	reply, err := HandleOpenConnectionRequest1(req1.Bytes(), info)
	require.NoError(t, err)
	require.Equal(t, IDIncompatibleProtocol, reply[0])
}

func TestIsOfflineClassification(t *testing.T) {
	require.True(t, IsOffline(IDUnconnectedPing))
	require.True(t, IsOffline(IDOpenConnectionRequest1))
	require.True(t, IsOffline(IDOpenConnectionRequest2))
	require.False(t, IsOffline(IDACK))
	require.True(t, IsConnected(IDFrameBatchMin))
	require.False(t, IsConnected(IDUnconnectedPing))
}
