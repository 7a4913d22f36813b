package raknet

import (
	"sync"
	"time"
)

// orderChannel holds one ordering lane's inbound reorder buffer and its
// outbound index counter (§3).
type orderChannel struct {
	nextOutIndex   uint32
	nextDeliver    uint32
	lastSequenced  uint32
	haveSequenced  bool
	reorder        map[uint32][]byte
}

// compoundState tracks reassembly progress for one compound id (§3).
type compoundState struct {
	size  uint32
	parts map[uint32][]byte
}

// recoveryEntry is one retransmittable batch kept for NAK-driven resend
// (§3 recovery_buffer, §4.4 timeouts).
type recoveryEntry struct {
	data  []byte
	sentAt time.Time
}

// Session is the per-client RakNet transport state (§3 "Transport state").
// Exactly one goroutine — the client's own receive/tick loop — mutates a
// given Session; see §5.
type Session struct {
	mu sync.Mutex

	MTU        uint16
	RemoteGUID uint64

	lastActivity time.Time

	nextBatchSeq      uint32
	highestSeenSeq    uint32
	haveSeenAnyBatch  bool
	nextReliableIndex uint32
	nextSequenceIndex uint32
	nextCompoundID    uint16

	orderChannels [NumOrderChannels]*orderChannel
	compounds     map[uint16]*compoundState

	recovery    map[uint32]*recoveryEntry
	recoveryAge []uint32 // insertion order, for window eviction

	pendingAcks map[uint32]struct{}
	pendingNaks map[uint32]struct{}

	sendQueues [3][]*Frame // frames awaiting a tick to be batched, by Priority
	closed     bool
}

// NewSession creates transport state for a freshly accepted client (§4.2:
// created on a valid OpenConnectionRequest2).
func NewSession(mtu uint16, remoteGUID uint64) *Session {
	s := &Session{
		MTU:          mtu,
		RemoteGUID:   remoteGUID,
		lastActivity: time.Now(),
		compounds:    make(map[uint16]*compoundState),
		recovery:     make(map[uint32]*recoveryEntry),
		pendingAcks:  make(map[uint32]struct{}),
		pendingNaks:  make(map[uint32]struct{}),
	}
	for i := range s.orderChannels {
		s.orderChannels[i] = &orderChannel{reorder: make(map[uint32][]byte)}
	}
	return s
}

// Touch records fresh activity from the peer, resetting the inactivity
// timeout clock (§3 lifecycle).
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Idle reports whether the session has been silent longer than
// InactivityTimeout (§3 lifecycle, §7).
func (s *Session) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity) > InactivityTimeout
}

// Close marks the session as shutting down; further Enqueue calls are
// ignored and a final flush drains best-effort (§3 lifecycle, §4.4
// cancellation).
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
