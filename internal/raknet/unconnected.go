package raknet

import (
	"fmt"
	"net"
)

// ServerInfo is the small bit of process-wide state the stateless
// unconnected handler needs to answer handshake datagrams (§4.2).
type ServerInfo struct {
	GUID uint64
	MOTD func() string
}

// Request2Result is returned by HandleOpenConnectionRequest2 on success; the
// caller (the registry) uses it to create the new client entry (§4.2,
// §8 scenario 1).
type Request2Result struct {
	Reply      []byte
	MTU        uint16
	ClientGUID uint64
}

// HandleUnconnectedPing answers an UnconnectedPing with an UnconnectedPong
// echoing the peer's timestamp and the current motd (§4.2, §6).
func HandleUnconnectedPing(data []byte, info ServerInfo) ([]byte, error) {
	s := NewStream(data)
	if _, err := s.ReadByte(); err != nil { // id
		return nil, err
	}
	t, err := s.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("raknet: malformed UnconnectedPing: %w", err)
	}
	if _, err := s.ReadBytes(16); err != nil { // magic
		return nil, fmt.Errorf("raknet: malformed UnconnectedPing: %w", err)
	}

	out := NewWriteStream()
	out.WriteByte(IDUnconnectedPong)
	out.WriteUint64(t)
	out.WriteUint64(info.GUID)
	out.WriteBytes(offlineMagic[:])
	motd := ""
	if info.MOTD != nil {
		motd = info.MOTD()
	}
	out.WriteString(motd)
	return out.Bytes(), nil
}

// HandleOpenConnectionRequest1 replies with OpenConnectionReply1, echoing
// the requested MTU, or with IncompatibleProtocol if the peer's RakNet
// protocol version does not match ours (§4.2, §8 scenario 2).
func HandleOpenConnectionRequest1(data []byte, info ServerInfo) ([]byte, error) {
	s := NewStream(data)
	if _, err := s.ReadByte(); err != nil { // id
		return nil, err
	}
	if _, err := s.ReadBytes(16); err != nil { // magic
		return nil, fmt.Errorf("raknet: malformed OpenConnectionRequest1: %w", err)
	}
	version, err := s.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("raknet: malformed OpenConnectionRequest1: %w", err)
	}
	// The remainder is zero-padding sized to probe the MTU; its length,
	// not its content, is the signal.
	padding := s.Remaining()

	if version != ProtocolVersion {
		out := NewWriteStream()
		out.WriteByte(IDIncompatibleProtocol)
		out.WriteByte(ProtocolVersion)
		out.WriteBytes(offlineMagic[:])
		out.WriteUint64(info.GUID)
		return out.Bytes(), nil
	}

	requestedMTU := clampMTU(udpHeaderMargin(padding))
	out := NewWriteStream()
	out.WriteByte(IDOpenConnectionReply1)
	out.WriteBytes(offlineMagic[:])
	out.WriteUint64(info.GUID)
	out.WriteByte(0) // security=0, no cookie challenge
	out.WriteUint16(uint16(requestedMTU))
	return out.Bytes(), nil
}

// udpHeaderMargin folds the zero-padding length back into the MTU the peer
// is probing for: request1's total datagram size (header + padding) is
// what the peer intends to fit on the wire.
func udpHeaderMargin(padding int) int {
	return 1 + 16 + 1 + padding // id + magic + version + padding, mirrors request1 layout
}

func clampMTU(v int) int {
	if v < MinMTU {
		return MinMTU
	}
	if v > MaxMTU {
		return MaxMTU
	}
	return v
}

// HandleOpenConnectionRequest2 validates the request and returns the
// OpenConnectionReply2 bytes along with the negotiated MTU and the peer's
// self-reported GUID. The caller is responsible for inserting the new
// client entry into the registry — this function never mutates state
// (§4.2: "stateless responder").
func HandleOpenConnectionRequest2(data []byte, peer *net.UDPAddr, info ServerInfo) (*Request2Result, error) {
	s := NewStream(data)
	if _, err := s.ReadByte(); err != nil {
		return nil, err
	}
	if _, err := s.ReadBytes(16); err != nil {
		return nil, fmt.Errorf("raknet: malformed OpenConnectionRequest2: %w", err)
	}
	if _, err := s.ReadAddress(); err != nil { // server address, as the client saw it; unused
		return nil, fmt.Errorf("raknet: malformed OpenConnectionRequest2: %w", err)
	}
	mtu, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("raknet: malformed OpenConnectionRequest2: %w", err)
	}
	clientGUID, err := s.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("raknet: malformed OpenConnectionRequest2: %w", err)
	}
	if mtu < MinMTU {
		mtu = MinMTU
	}
	if mtu > MaxMTU {
		mtu = MaxMTU
	}

	out := NewWriteStream()
	out.WriteByte(IDOpenConnectionReply2)
	out.WriteBytes(offlineMagic[:])
	out.WriteUint64(info.GUID)
	out.WriteAddress(peer)
	out.WriteUint16(mtu)
	out.WriteByte(0) // encryption=0: the RakNet layer itself is never encrypted

	return &Request2Result{Reply: out.Bytes(), MTU: mtu, ClientGUID: clientGUID}, nil
}
