package orchestrator

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bedrocknet/beacon/internal/bedrock"
	"github.com/bedrocknet/beacon/internal/config"
	"github.com/bedrocknet/beacon/internal/metrics"
	"github.com/bedrocknet/beacon/internal/raknet"
)

// client glues one peer's raknet.Session (transport reliability) to its
// bedrock.Session (login state machine and wire framing) and gives it the
// single owning goroutine the concurrency model requires (§5): every method
// below except Post and RequestShutdown runs exclusively inside run, so
// neither session needs its own tick-safe locking beyond what each already
// does for defensive reasons.
type client struct {
	addr      *net.UDPAddr
	transport *raknet.Session
	protocol  *bedrock.Session
	log       *logrus.Entry
	metrics   *metrics.Collector
	commands  CommandService
	send      func([]byte, *net.UDPAddr) error

	inbox   chan []byte
	done    chan struct{} // closed once, by disconnect, when the client goroutine has torn down
	stopReq chan struct{} // closed once, by RequestShutdown, to ask the owning goroutine to disconnect
}

func newClient(addr *net.UDPAddr, mtu uint16, remoteGUID uint64, verifier bedrock.IdentityVerifier, commands CommandService, level LevelService, cfg config.Config, log *logrus.Entry, m *metrics.Collector, send func([]byte, *net.UDPAddr) error) *client {
	protocol := bedrock.NewSession(verifier, cfg.Compression.Algorithm, cfg.Compression.Threshold)
	protocol.SetThrottle(cfg.Throttle.Enabled, cfg.Throttle.Threshold, cfg.Throttle.Scalar)
	protocol.SetMaxRenderDistance(cfg.MaxRenderDistance)
	protocol.SetLevelProvider(level)
	return &client{
		addr:      addr,
		transport: raknet.NewSession(mtu, remoteGUID),
		protocol:  protocol,
		log:       log,
		metrics:   m,
		commands:  commands,
		send:      send,
		inbox:     make(chan []byte, 64),
		done:      make(chan struct{}),
		stopReq:   make(chan struct{}),
	}
}

// RequestShutdown asks the client's owning goroutine to disconnect at its
// next opportunity. Safe to call from any goroutine; the actual teardown
// still runs on the client's own goroutine (§5).
func (c *client) RequestShutdown() {
	select {
	case <-c.stopReq:
	default:
		close(c.stopReq)
	}
}

// Post hands one raw datagram to the client's owning goroutine. Safe to
// call from the dispatcher goroutine; it never touches session state
// directly.
func (c *client) Post(data []byte) {
	select {
	case c.inbox <- data:
	case <-c.done:
	}
}

// run is the client's sole owning goroutine: every inbound datagram and
// every tick flows through this one select loop (§5).
func (c *client) run() {
	ticker := time.NewTicker(raknet.Tick)
	defer ticker.Stop()

	var tickCount uint64
	for {
		select {
		case data := <-c.inbox:
			c.handleDatagram(data)
		case <-ticker.C:
			tickCount++
			c.tick(tickCount)
			if c.transport.Idle() {
				// Inactivity ends the session without a Disconnect packet (§7).
				select {
				case <-c.done:
				default:
					close(c.done)
					c.transport.Close()
				}
				return
			}
		case <-c.stopReq:
			c.disconnect(bedrock.ReasonServerShutdown)
			return
		case <-c.done:
			return
		}
	}
}

func (c *client) handleDatagram(data []byte) {
	result, err := c.transport.HandleDatagram(data)
	if err != nil {
		c.log.WithError(err).Warn("malformed datagram")
		return
	}
	if result.ImmediateNAK != nil {
		c.metrics.AddNAKsSent(1)
		c.sendRaw(result.ImmediateNAK)
	}
	for _, retransmit := range result.Retransmits {
		c.metrics.AddRetransmits(1)
		c.sendRaw(retransmit)
	}
	for _, payload := range result.Delivered {
		if c.processPayload(payload) {
			return
		}
	}
}

// processPayload decodes and dispatches one reassembled session-layer
// payload, returning true if it caused the client to disconnect.
func (c *client) processPayload(payload []byte) bool {
	packets, err := c.protocol.DecodeInbound(payload)
	if err != nil {
		c.log.WithError(err).Warn("malformed session payload")
		c.disconnect(bedrock.ReasonBadPacket)
		return true
	}
	for _, pkt := range packets {
		if pkt.ID == bedrock.IDText {
			c.handleText(pkt.Body)
			continue
		}
		out, err := c.protocol.Handle(pkt.ID, pkt.Body)
		var protoErr *bedrock.ProtocolError
		if errors.As(err, &protoErr) {
			c.log.WithField("packet_id", pkt.ID).Warn(protoErr.Error())
			c.disconnect(protoErr.Reason)
			return true
		}
		if err != nil {
			c.log.WithError(err).Error("internal error handling packet")
			c.disconnect(bedrock.ReasonBadPacket)
			return true
		}
		if len(out) > 0 {
			c.enqueuePackets(out)
		}
	}
	return false
}

// handleText intercepts chat-shaped Text packets before they reach the
// login/steady-state protocol handler: a "/"-prefixed message is a
// command, dispatched to the orchestrator's CommandService, never a
// protocol concern for bedrock.Session itself.
func (c *client) handleText(body []byte) {
	text, err := bedrock.DecodeText(body)
	if err != nil {
		c.log.WithError(err).Warn("malformed text packet")
		return
	}
	if !strings.HasPrefix(strings.TrimSpace(text.Message), "/") {
		return
	}
	if err := c.commands.Execute(c.addr.String(), text.Message); err != nil {
		c.log.WithError(err).Warn("command execution failed")
	}
}

func (c *client) enqueuePackets(packets []bedrock.Outbound) {
	framed, err := c.protocol.EncodeOutbound(packets)
	if err != nil {
		c.log.WithError(err).Error("encode outbound packets")
		return
	}
	c.transport.Enqueue(raknet.PriorityMedium, raknet.ReliableOrdered, 0, framed)
}

func (c *client) tick(tickCount uint64) {
	batches, err := c.transport.Tick(tickCount)
	if err != nil {
		if errors.Is(err, raknet.ErrWindowExceeded) {
			c.log.Warn("reliable window exceeded, disconnecting")
			c.disconnect(bedrock.ReasonTimeout)
			return
		}
		c.log.WithError(err).Error("tick")
	}
	for _, b := range batches {
		c.sendRaw(b)
	}
}

func (c *client) sendRaw(data []byte) {
	c.metrics.AddBytesOut(len(data))
	if err := c.send(data, c.addr); err != nil {
		c.log.WithError(err).Warn("send failed")
	}
}

// disconnect sends a best-effort Disconnect packet and tears the client
// down; it is idempotent against repeat calls via done's close-once guard.
func (c *client) disconnect(reason bedrock.DisconnectReason) {
	select {
	case <-c.done:
		return
	default:
	}
	msg := (&bedrock.Disconnect{Reason: reason, Message: string(reason)}).Encode()
	if framed, err := c.protocol.EncodeOutbound([]bedrock.Outbound{{ID: bedrock.IDDisconnect, Body: msg}}); err == nil {
		c.transport.Enqueue(raknet.PriorityHigh, raknet.Reliable, 0, framed)
		for _, b := range c.transport.Flush() {
			c.sendRaw(b)
		}
	}
	close(c.done)
	c.transport.Close()
}
