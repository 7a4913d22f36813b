package orchestrator

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedrocknet/beacon/internal/bedrock"
	"github.com/bedrocknet/beacon/internal/config"
	"github.com/bedrocknet/beacon/internal/logging"
	"github.com/bedrocknet/beacon/internal/metrics"
	"github.com/bedrocknet/beacon/internal/raknet"
)

func startTestInstance(t *testing.T) (*Instance, *net.UDPAddr) {
	t.Helper()
	cfg := config.Default()
	cfg.IPv4Addr = "127.0.0.1:0"
	log := logging.New()
	in := New(cfg, log, metrics.New(), bedrock.StubIdentityVerifier{}, nil, nil)

	addr, err := net.ResolveUDPAddr("udp4", cfg.IPv4Addr)
	require.NoError(t, err)
	endpoint, err := raknet.Listen(addr)
	require.NoError(t, err)
	in.endpoint = endpoint

	go in.motd.run(motdRefreshInterval)
	go in.dispatchLoop()

	t.Cleanup(in.Shutdown)
	return in, endpoint.LocalAddr().(*net.UDPAddr)
}

// TestUnknownConnectedDatagramIsIgnored exercises property 5: a connected
// (post-handshake) datagram byte from an address with no prior
// OpenConnectionRequest2 produces no reply and creates no client entry.
func TestUnknownConnectedDatagramIsIgnored(t *testing.T) {
	in, serverAddr := startTestInstance(t)

	conn, err := net.DialUDP("udp4", nil, serverAddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{raknet.IDFrameBatchMin, 0, 0, 0})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 64)
	_, _, err = conn.ReadFromUDP(buf)
	require.Error(t, err, "expected no reply to an unsolicited connected datagram")
	require.Equal(t, 0, in.ClientCount())
}

func TestUnconnectedPingReplies(t *testing.T) {
	_, serverAddr := startTestInstance(t)

	conn, err := net.DialUDP("udp4", nil, serverAddr)
	require.NoError(t, err)
	defer conn.Close()

	out := raknet.NewWriteStream()
	out.WriteByte(raknet.IDUnconnectedPing)
	out.WriteUint64(12345)
	out.WriteBytes(make([]byte, 16))
	_, err = conn.Write(out.Bytes())
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, raknet.IDUnconnectedPong, buf[0])
	_ = n
}

func TestHandshakeCreatesClient(t *testing.T) {
	in, serverAddr := startTestInstance(t)

	conn, err := net.DialUDP("udp4", nil, serverAddr)
	require.NoError(t, err)
	defer conn.Close()

	req1 := raknet.NewWriteStream()
	req1.WriteByte(raknet.IDOpenConnectionRequest1)
	req1.WriteBytes(make([]byte, 16))
	req1.WriteByte(raknet.ProtocolVersion)
	req1.WriteBytes(make([]byte, 32))
	_, err = conn.Write(req1.Bytes())
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, raknet.IDOpenConnectionReply1, buf[0])
	_ = n

	req2 := raknet.NewWriteStream()
	req2.WriteByte(raknet.IDOpenConnectionRequest2)
	req2.WriteBytes(make([]byte, 16))
	req2.WriteAddress(serverAddr)
	req2.WriteUint16(raknet.DefaultMTU)
	req2.WriteUint64(999)
	_, err = conn.Write(req2.Bytes())
	require.NoError(t, err)

	n, err = conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, raknet.IDOpenConnectionReply2, buf[0])

	require.Eventually(t, func() bool {
		return in.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)
}
