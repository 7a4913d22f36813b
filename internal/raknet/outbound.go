package raknet

import (
	"errors"
	"time"
)

// ErrWindowExceeded is returned from Tick when the recovery buffer would
// have to evict an unacknowledged reliable batch to stay within
// ReliableWindow; the caller disconnects the client in that case rather
// than silently losing data (§9 design notes).
var ErrWindowExceeded = errors.New("raknet: reliable window exceeded with unacknowledged data")

// ackFlushThreshold forces an ACK flush even off the 4-tick cadence once
// the pending set grows this large (§4.4).
const ackFlushThreshold = 64

// chunkMax returns the largest payload that fits in one frame without
// fragmentation, for the session's negotiated MTU (§3 invariant, §4.4).
func (s *Session) chunkMax() int {
	n := int(s.MTU) - BatchHeaderSize - FrameHeaderSize
	if n < 1 {
		n = 1
	}
	return n
}

// Enqueue accepts one upstream payload for delivery with the given
// priority, reliability and (if ordered) channel, splitting it into a
// compound if it would not otherwise fit inside the MTU (§4.4).
func (s *Session) Enqueue(priority Priority, reliability Reliability, orderChannel uint8, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	chunkMax := s.chunkMax()
	var chunks [][]byte
	if len(payload) <= chunkMax {
		chunks = [][]byte{payload}
	} else {
		for i := 0; i < len(payload); i += chunkMax {
			end := i + chunkMax
			if end > len(payload) {
				end = len(payload)
			}
			chunks = append(chunks, payload[i:end])
		}
	}

	var orderIndex, sequenceIndex uint32
	if reliability.IsOrdered() {
		ch := s.orderChannels[orderChannel]
		orderIndex = ch.nextOutIndex
		ch.nextOutIndex++
	}
	if reliability.IsSequenced() {
		sequenceIndex = s.nextSequenceIndex
		s.nextSequenceIndex++
	}

	isFragment := len(chunks) > 1
	compoundID := s.nextCompoundID
	if isFragment {
		s.nextCompoundID++
	}

	for i, chunk := range chunks {
		f := &Frame{
			Reliability:   reliability,
			IsFragment:    isFragment,
			CompoundID:    compoundID,
			CompoundSize:  uint32(len(chunks)),
			CompoundIndex: uint32(i),
			OrderChannel:  orderChannel,
			OrderIndex:    orderIndex,
			SequenceIndex: sequenceIndex,
			Payload:       chunk,
		}
		if reliability.IsReliable() {
			f.ReliableIndex = s.nextReliableIndex
			s.nextReliableIndex++
		}
		s.sendQueues[priority] = append(s.sendQueues[priority], f)
	}
}

// Tick runs one scheduler pass (§4.4, §5, driven by the orchestrator
// heartbeat). tickCount is the client's own monotonic tick counter. It
// returns every raw datagram that must now be sent to the peer: the ACK
// flush, proactive retransmits, and freshly batched frames, in that
// priority order. NAKs are not produced here; HandleDatagram returns them.
func (s *Session) Tick(tickCount uint64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]byte

	if acks := s.drainPendingAcksLocked(tickCount); len(acks) > 0 {
		out = append(out, EncodeACK(acks))
	}

	out = append(out, s.proactiveRetransmitsLocked()...)

	drainHigh := true
	drainMedium := tickCount%2 == 0
	drainLow := tickCount%4 == 0

	var popped []*Frame
	if drainHigh {
		popped = append(popped, s.sendQueues[PriorityHigh]...)
		s.sendQueues[PriorityHigh] = nil
	}
	if drainMedium {
		popped = append(popped, s.sendQueues[PriorityMedium]...)
		s.sendQueues[PriorityMedium] = nil
	}
	if drainLow {
		popped = append(popped, s.sendQueues[PriorityLow]...)
		s.sendQueues[PriorityLow] = nil
	}

	batches, err := s.batchLocked(popped)
	if err != nil {
		return out, err
	}
	out = append(out, batches...)
	return out, nil
}

// drainPendingAcksLocked decides, per the 4-tick/threshold policy, whether
// to flush the pending ACK set this tick.
func (s *Session) drainPendingAcksLocked(tickCount uint64) []uint32 {
	if len(s.pendingAcks) == 0 {
		return nil
	}
	if tickCount%4 != 0 && len(s.pendingAcks) < ackFlushThreshold {
		return nil
	}
	ids := make([]uint32, 0, len(s.pendingAcks))
	for id := range s.pendingAcks {
		ids = append(ids, id)
	}
	s.pendingAcks = make(map[uint32]struct{})
	return ids
}

// proactiveRetransmitsLocked resends any recovery-buffer entry that has
// aged past ReliabilityTimeout without being ACKed (§4.4 timeouts).
func (s *Session) proactiveRetransmitsLocked() [][]byte {
	var out [][]byte
	now := time.Now()
	for _, seq := range s.recoveryAge {
		entry, ok := s.recovery[seq]
		if !ok {
			continue
		}
		if now.Sub(entry.sentAt) >= ReliabilityTimeout {
			out = append(out, entry.data)
			entry.sentAt = now
		}
	}
	return out
}

// batchLocked greedily packs frames into MTU-sized batches, assigning each
// a fresh batch sequence number and storing reliable batches in the
// recovery buffer (§4.4 batching).
func (s *Session) batchLocked(frames []*Frame) ([][]byte, error) {
	var out [][]byte
	var cur []*Frame
	curSize := BatchHeaderSize
	hasReliable := false

	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		b := &Batch{Seq: s.nextBatchSeq, Frames: cur}
		s.nextBatchSeq++
		data := b.Encode()
		out = append(out, data)
		if hasReliable {
			if err := s.storeRecoveryLocked(b.Seq, data); err != nil {
				return err
			}
		}
		cur = nil
		curSize = BatchHeaderSize
		hasReliable = false
		return nil
	}

	for _, f := range frames {
		fs := f.size()
		if curSize+fs > int(s.MTU) && len(cur) > 0 {
			if err := flush(); err != nil {
				return out, err
			}
		}
		cur = append(cur, f)
		curSize += fs
		if f.Reliability.IsReliable() {
			hasReliable = true
		}
	}
	if err := flush(); err != nil {
		return out, err
	}
	return out, nil
}

// storeRecoveryLocked caches a reliable batch for NAK-driven retransmit,
// evicting the oldest entry once ReliableWindow is exceeded. Evicting an
// entry that was never acknowledged is the "unrecoverable peer" condition
// (§9 design notes) and is reported to the caller so it can disconnect the
// client.
func (s *Session) storeRecoveryLocked(seq uint32, data []byte) error {
	s.recovery[seq] = &recoveryEntry{data: data, sentAt: time.Now()}
	s.recoveryAge = append(s.recoveryAge, seq)
	if len(s.recoveryAge) <= ReliableWindow {
		return nil
	}
	oldest := s.recoveryAge[0]
	s.recoveryAge = s.recoveryAge[1:]
	if _, stillUnacked := s.recovery[oldest]; stillUnacked {
		delete(s.recovery, oldest)
		return ErrWindowExceeded
	}
	return nil
}

// Flush drains every send queue and returns the resulting datagrams,
// ignoring tick cadence; used once at shutdown for a best-effort final
// flush (§3 lifecycle, §4.4 cancellation).
func (s *Session) Flush() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var popped []*Frame
	for p := range s.sendQueues {
		popped = append(popped, s.sendQueues[p]...)
		s.sendQueues[p] = nil
	}
	batches, _ := s.batchLocked(popped)
	var out [][]byte
	if acks := s.drainPendingAcksLocked(0); len(acks) > 0 {
		out = append(out, EncodeACK(acks))
	}
	out = append(out, batches...)
	return out
}
