package raknet

import (
	"errors"
	"net"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// recvBufferSize is the socket receive buffer requested via SO_RCVBUF; a
// busy server fields many clients on one socket and the default kernel
// buffer is easily overrun under load.
const recvBufferSize = 4 << 20

// Endpoint owns the UDP socket shared by every client and by the
// unconnected handler (§4.1). recv_from/send_to suspend the calling
// goroutine (§5); concurrent Send calls are safe, matching the shared
// resource model.
type Endpoint struct {
	conn *net.UDPConn
}

// Listen binds addr and tunes the socket for a many-client workload.
func Listen(addr *net.UDPAddr) (*Endpoint, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	tuneSocket(conn)
	return &Endpoint{conn: conn}, nil
}

// tuneSocket, on linux only, raises SO_RCVBUF and sets SO_REUSEPORT so a
// second process/socket can share the port for horizontal scaling; on other
// platforms it does nothing. Failures are
// logged at debug and otherwise ignored — the socket is still usable with
// kernel defaults (§4.1 rationale: keep the hot path working even when the
// platform doesn't support the tuning knobs).
func tuneSocket(conn *net.UDPConn) {
	if runtime.GOOS != "linux" {
		return
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		logrus.WithError(err).Debug("raknet: could not obtain raw socket conn for tuning")
		return
	}
	_ = raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufferSize); err != nil {
			logrus.WithError(err).Debug("raknet: SO_RCVBUF tuning failed")
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			logrus.WithError(err).Debug("raknet: SO_REUSEPORT tuning failed")
		}
	})
}

// RecvNext blocks for the next datagram and returns a copy of its payload
// plus the sender's address (§4.1).
func (e *Endpoint) RecvNext(buf []byte) ([]byte, *net.UDPAddr, error) {
	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, addr, nil
}

// Send writes data to addr. Socket I/O errors on send are logged by the
// caller and otherwise ignored — UDP is best-effort (§7).
func (e *Endpoint) Send(data []byte, addr *net.UDPAddr) error {
	_, err := e.conn.WriteToUDP(data, addr)
	return err
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr { return e.conn.LocalAddr() }

// Close releases the socket.
func (e *Endpoint) Close() error { return e.conn.Close() }

// IsUseOfClosed reports whether err indicates the endpoint's socket was
// already closed, so a shutting-down receive loop can exit quietly rather
// than logging a spurious error.
func IsUseOfClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.EINVAL)
}
