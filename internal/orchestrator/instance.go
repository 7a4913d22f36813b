// Package orchestrator owns the UDP endpoint, the client registry, and the
// command/level service handles — the single process-wide object that
// binds transport, protocol, and external collaborators together (§4.7).
package orchestrator

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/bedrocknet/beacon/internal/bedrock"
	"github.com/bedrocknet/beacon/internal/config"
	"github.com/bedrocknet/beacon/internal/logging"
	"github.com/bedrocknet/beacon/internal/metrics"
	"github.com/bedrocknet/beacon/internal/raknet"
)

const motdRefreshInterval = 2 * time.Second

// Instance is the orchestrator: it owns the UDP socket(s), the client
// registry, and the command/level service handles, and drives the
// unconnected handshake and per-client dispatch (§4.7).
type Instance struct {
	cfg      config.Config
	log      *logrus.Logger
	metrics  *metrics.Collector
	verifier bedrock.IdentityVerifier
	commands CommandService
	level    LevelService

	guid uint64
	motd *motdHolder

	endpoint *raknet.Endpoint
	registry *registry
	events   *EventBus

	wg   sync.WaitGroup
	done chan struct{}
}

// New constructs an Instance from configuration; it does not bind a socket
// until Start is called.
func New(cfg config.Config, log *logrus.Logger, m *metrics.Collector, verifier bedrock.IdentityVerifier, commands CommandService, level LevelService) *Instance {
	if verifier == nil {
		verifier = bedrock.StubIdentityVerifier{}
	}
	if commands == nil {
		commands = NoopCommandService{}
	}
	if level == nil {
		level = NoopLevelService{}
	}
	return &Instance{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		verifier: verifier,
		commands: commands,
		level:    level,
		guid:     serverGUID(),
		motd:     newMOTDHolder(cfg.MOTD),
		registry: newRegistry(),
		events:   newEventBus(),
		done:     make(chan struct{}),
	}
}

// Events returns the instance's event bus, so callers can subscribe to
// connection lifecycle events (e.g. for logging or metrics not already
// covered by the Collector). The Instance publishes EventClientConnected
// and EventClientDisconnected; it does not publish EventCommandExecuted.
func (in *Instance) Events() *EventBus { return in.events }

// serverGUID derives a 64-bit opaque server identifier from an xid rather
// than math/rand (§3 [ADD]): xid's 12 bytes are folded into 8 with a
// little-endian XOR-fold, which is adequate for a handshake identifier
// that only needs to look different across restarts, not be
// cryptographically unpredictable.
func serverGUID() uint64 {
	id := xid.New()
	raw := id.Bytes() // 12 bytes
	var buf [8]byte
	for i, b := range raw {
		buf[i%8] ^= b
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Start binds the UDP endpoint and launches the motd refresher and the
// datagram dispatch loop. It blocks until Shutdown is called or the socket
// errors out.
func (in *Instance) Start() error {
	addr, err := net.ResolveUDPAddr("udp4", in.cfg.IPv4Addr)
	if err != nil {
		return err
	}
	endpoint, err := raknet.Listen(addr)
	if err != nil {
		return err
	}
	in.endpoint = endpoint

	in.log.WithField("addr", endpoint.LocalAddr().String()).Info("listening")

	go in.motd.run(motdRefreshInterval)

	return in.dispatchLoop()
}

// Shutdown closes the socket, disconnects every registered client, and
// releases the command/level service handles (§4.7).
func (in *Instance) Shutdown() {
	select {
	case <-in.done:
		return
	default:
	}
	close(in.done)
	in.motd.stop()
	if in.endpoint != nil {
		in.endpoint.Close()
	}
	in.registry.broadcast("", func(c *client) { c.RequestShutdown() })
	in.wg.Wait()
	if err := in.commands.Close(); err != nil {
		in.log.WithError(err).Warn("command service close")
	}
	if err := in.level.Close(); err != nil {
		in.log.WithError(err).Warn("level service close")
	}
}

// ClientCount reports the number of registered clients, for tests and
// metrics wiring.
func (in *Instance) ClientCount() int { return in.registry.count() }

func (in *Instance) serverInfo() raknet.ServerInfo {
	return raknet.ServerInfo{GUID: in.guid, MOTD: in.motd.get}
}

// dispatchLoop is the single goroutine that owns the UDP socket's receive
// path: it answers stateless offline handshakes directly and otherwise
// forwards connected datagrams to the owning client's goroutine, creating
// that goroutine exactly once, at OpenConnectionRequest2 (§4.1, §4.2, §5).
func (in *Instance) dispatchLoop() error {
	buf := make([]byte, raknet.MaxMTU+128)
	for {
		data, addr, err := in.endpoint.RecvNext(buf)
		if err != nil {
			if raknet.IsUseOfClosed(err) {
				return nil
			}
			in.log.WithError(err).Warn("recv error")
			continue
		}
		if len(data) == 0 {
			continue
		}
		in.metrics.AddBytesIn(len(data))

		switch {
		case raknet.IsOffline(data[0]):
			in.handleOffline(data, addr)
		case raknet.IsConnected(data[0]):
			// Property 5: an unknown address sending a connected-datagram
			// byte gets no reply and no session — only a prior
			// OpenConnectionRequest2 creates one.
			if c, ok := in.registry.lookup(addr.String()); ok {
				c.Post(data)
			}
		default:
			// Neither an offline handshake byte nor a connected-datagram
			// byte: not RakNet traffic, ignored.
		}
	}
}

func (in *Instance) handleOffline(data []byte, addr *net.UDPAddr) {
	info := in.serverInfo()
	switch data[0] {
	case raknet.IDUnconnectedPing:
		reply, err := raknet.HandleUnconnectedPing(data, info)
		if err != nil {
			in.log.WithError(err).Debug("malformed ping")
			return
		}
		in.sendTo(reply, addr)
	case raknet.IDOpenConnectionRequest1:
		reply, err := raknet.HandleOpenConnectionRequest1(data, info)
		if err != nil {
			in.log.WithError(err).Debug("malformed request1")
			return
		}
		in.sendTo(reply, addr)
	case raknet.IDOpenConnectionRequest2:
		in.handleRequest2(data, addr, info)
	}
}

func (in *Instance) handleRequest2(data []byte, addr *net.UDPAddr, info raknet.ServerInfo) {
	if in.registry.count() >= in.cfg.MaxConnections {
		in.log.WithField("addr", addr.String()).Warn("rejecting connection: max_connections reached")
		return
	}
	result, err := raknet.HandleOpenConnectionRequest2(data, addr, info)
	if err != nil {
		in.log.WithError(err).Debug("malformed request2")
		return
	}
	in.sendTo(result.Reply, addr)

	if _, exists := in.registry.lookup(addr.String()); exists {
		return // duplicate request2 from a peer we've already accepted
	}

	entry := newClient(addr, result.MTU, result.ClientGUID, in.verifier, in.commands, in.level, in.cfg, logging.WithAddr(in.log, addr), in.metrics, in.endpoint.Send)
	in.registry.insert(addr.String(), entry)
	in.metrics.ClientConnected()
	in.events.publish(Event{Type: EventClientConnected, ClientAddr: addr.String()})

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		defer in.registry.remove(addr.String())
		defer in.metrics.ClientDisconnected()
		defer in.events.publish(Event{Type: EventClientDisconnected, ClientAddr: addr.String()})
		entry.run()
	}()
}

func (in *Instance) sendTo(data []byte, addr *net.UDPAddr) {
	in.metrics.AddBytesOut(len(data))
	if err := in.endpoint.Send(data, addr); err != nil {
		in.log.WithError(err).Warn("send failed")
	}
}
