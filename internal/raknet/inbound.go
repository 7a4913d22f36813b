package raknet

// InboundResult is what processing one connected datagram produces: zero or
// more payloads ready to hand to the Bedrock framer, an immediate NAK to
// send for a newly detected gap, and zero or more raw batches to resend
// because the peer NAK'd them (§4.3).
type InboundResult struct {
	Delivered    [][]byte
	ImmediateNAK []byte
	Retransmits  [][]byte
}

// HandleDatagram dispatches a connected datagram to the ACK, NAK, or frame
// batch handler by peeking its first byte (§4.3 step 1).
func (s *Session) HandleDatagram(data []byte) (*InboundResult, error) {
	if len(data) == 0 {
		return &InboundResult{}, nil
	}
	s.Touch()
	switch {
	case data[0] == IDACK:
		ids, err := DecodeRecords(data)
		if err != nil {
			return nil, err
		}
		s.handleACK(ids)
		return &InboundResult{}, nil
	case data[0] == IDNAK:
		ids, err := DecodeRecords(data)
		if err != nil {
			return nil, err
		}
		return &InboundResult{Retransmits: s.handleNAK(ids)}, nil
	case IsConnected(data[0]):
		batch, err := DecodeBatch(data)
		if err != nil {
			return nil, err
		}
		return s.handleBatch(batch), nil
	default:
		return &InboundResult{}, nil
	}
}

// handleACK removes acknowledged batches from the recovery buffer (§4.3
// step 2).
func (s *Session) handleACK(ids []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.recovery, id)
	}
}

// handleNAK returns the exact bytes of every recovery-buffer entry named,
// for immediate highest-priority retransmission (§4.3 step 3).
func (s *Session) handleNAK(ids []uint32) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for _, id := range ids {
		if entry, ok := s.recovery[id]; ok {
			out = append(out, entry.data)
		}
	}
	return out
}

// handleBatch implements §4.3 step 4: records the sequence for the next ACK
// flush, detects gaps for an immediate NAK, and walks every frame through
// fragment reassembly, sequencing, and ordering before returning whatever
// is now ready for upstream delivery.
func (s *Session) handleBatch(b *Batch) *InboundResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &InboundResult{}
	s.pendingAcks[b.Seq] = struct{}{}

	if !s.haveSeenAnyBatch {
		s.haveSeenAnyBatch = true
		s.highestSeenSeq = b.Seq
	} else if b.Seq > s.highestSeenSeq {
		if b.Seq-s.highestSeenSeq > 1 {
			missing := make([]uint32, 0, b.Seq-s.highestSeenSeq-1)
			for gap := s.highestSeenSeq + 1; gap < b.Seq; gap++ {
				missing = append(missing, gap)
			}
			res.ImmediateNAK = EncodeNAK(missing)
		}
		s.highestSeenSeq = b.Seq
	}
	// A batch older than highestSeenSeq is a late arrival filling a
	// previously-NAK'd gap; it is processed normally below, satisfying
	// scenario 3 ("cancelled by the arrival of 1").

	for _, f := range b.Frames {
		for _, payload := range s.resolveFrame(f) {
			res.Delivered = append(res.Delivered, payload)
		}
	}
	return res
}

// resolveFrame applies sequencing, fragmentation and ordering to a single
// frame and returns zero or more payloads ready for upstream delivery, in
// the order they must be delivered. Caller holds s.mu.
func (s *Session) resolveFrame(f *Frame) [][]byte {
	if f.Reliability.IsSequenced() {
		ch := s.orderChannels[f.OrderChannel]
		if ch.haveSequenced && f.SequenceIndex <= ch.lastSequenced {
			return nil // stale, drop (§3 invariant, §8 property 4)
		}
		ch.lastSequenced = f.SequenceIndex
		ch.haveSequenced = true
	}

	payload := f.Payload
	if f.IsFragment {
		complete, ok := s.assembleCompound(f)
		if !ok {
			return nil
		}
		payload = complete
	}

	if !f.Reliability.IsOrdered() {
		return [][]byte{payload}
	}
	return s.deliverOrdered(f.OrderChannel, f.OrderIndex, payload)
}

// assembleCompound appends one fragment to its compound and, once every
// part has arrived, concatenates them in index order (§3 compound
// invariant, §4.3 step d).
func (s *Session) assembleCompound(f *Frame) ([]byte, bool) {
	cs, ok := s.compounds[f.CompoundID]
	if !ok {
		cs = &compoundState{size: f.CompoundSize, parts: make(map[uint32][]byte)}
		s.compounds[f.CompoundID] = cs
	}
	cs.parts[f.CompoundIndex] = f.Payload
	if uint32(len(cs.parts)) < cs.size {
		return nil, false
	}
	out := make([]byte, 0, int(cs.size)*len(f.Payload))
	for i := uint32(0); i < cs.size; i++ {
		part, ok := cs.parts[i]
		if !ok {
			return nil, false // still incomplete; a duplicate index masked a gap
		}
		out = append(out, part...)
	}
	delete(s.compounds, f.CompoundID)
	return out, true
}

// deliverOrdered inserts payload at orderIndex on channel, then drains and
// returns every contiguous payload starting at the channel's next expected
// index (§3 invariant, §4.3 step e, §8 property 1).
func (s *Session) deliverOrdered(channel uint8, orderIndex uint32, payload []byte) [][]byte {
	ch := s.orderChannels[channel]
	if orderIndex < ch.nextDeliver {
		return nil // duplicate of an already-delivered index
	}
	ch.reorder[orderIndex] = payload

	var out [][]byte
	for {
		p, ok := ch.reorder[ch.nextDeliver]
		if !ok {
			break
		}
		delete(ch.reorder, ch.nextDeliver)
		out = append(out, p)
		ch.nextDeliver++
	}
	return out
}

// PendingAcks returns and clears the set of batch sequence numbers seen
// since the last flush, for the scheduler's periodic ACK flush (§4.4).
func (s *Session) PendingAcks() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pendingAcks) == 0 {
		return nil
	}
	ids := make([]uint32, 0, len(s.pendingAcks))
	for id := range s.pendingAcks {
		ids = append(ids, id)
	}
	s.pendingAcks = make(map[uint32]struct{})
	return ids
}
