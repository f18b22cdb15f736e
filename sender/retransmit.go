package sender

import "time"

// retransmitTrigger names which policy caused a given resend, used only for
// logging/metrics
type retransmitTrigger int

const (
	triggerTimeout retransmitTrigger = iota
	triggerFastRetransmit
	triggerSackHole
)

func (t retransmitTrigger) String() string {
	switch t {
	case triggerTimeout:
		return "timeout"
	case triggerFastRetransmit:
		return "fast-retransmit"
	case triggerSackHole:
		return "sack-hole"
	default:
		return "unknown"
	}
}

// timeoutScan resends every in-window, non-sacked segment whose last send is
// older than the current RTO. The first offending segment in a scan is
// treated as the congestion timeout event; the rest of the scan's resends
// share it rather than re-collapsing the window per segment
func (s *Sender) timeoutScan(now time.Time) {
	rto := s.est.RTO()
	collapsed := false

	var stale []*segment
	s.w.list.Each(func(sg *segment) {
		if s.w.sacked[sg.offset] {
			return
		}
		if now.Sub(sg.lastSendTime) > rto {
			stale = append(stale, sg)
		}
	})

	for _, sg := range stale {
		if !collapsed {
			s.p.OnTimeout()
			s.est.Backoff()
			collapsed = true
		}
		s.retransmit(sg, now, triggerTimeout)
	}
}

// onDuplicateAck is called for every ACK whose cumulative value equals
// send_base. It implements fast retransmit on the third duplicate and, when
// SACK blocks accompany it, selective retransmission of the holes they
// expose
func (s *Sender) onDuplicateAck(now time.Time) {
	base := s.w.sendBase
	s.w.dupAckCount[base]++
	count := s.w.dupAckCount[base]

	switch {
	case count == tripleDupAckThreshold:
		if sg, ok := s.w.byOffset[base]; ok && !s.w.sacked[base] {
			s.retransmit(sg, now, triggerFastRetransmit)
		}
		s.p.OnThirdDupAck(s.w.nextSeq)
		s.sackSelectiveRetransmit(now)
	case count > tripleDupAckThreshold:
		s.p.OnAdditionalDupAck()
	}
}

// sackSelectiveRetransmit resends the in-window offsets that fall before the
// first SACK block or inside a hole between two blocks. Variant A throttles
// the burst to three segments per invocation (an unexplained but harmless
// throttle carried over from the original implementation); variant B
// retransmits the whole hole set. Either way, a safety gate skips an offset
// whose last send is more recent than half the current RTO
func (s *Sender) sackSelectiveRetransmit(now time.Time) {
	holes := s.w.holes()
	if len(holes) == 0 {
		return
	}

	limit := len(holes)
	if s.variant == VariantA && limit > 3 {
		limit = 3
	}

	halfRTO := s.est.RTO() / 2
	sent := 0
	for _, offset := range holes {
		if sent >= limit {
			break
		}
		sg, ok := s.w.byOffset[offset]
		if !ok {
			continue
		}
		if now.Sub(sg.lastSendTime) <= halfRTO {
			continue
		}
		s.retransmit(sg, now, triggerSackHole)
		sent++
	}
}

// retransmit resends sg's existing payload, updating its bookkeeping. It
// never copies the payload — the window owns it until acknowledgment
func (s *Sender) retransmit(sg *segment, now time.Time, trigger retransmitTrigger) {
	sg.lastSendTime = now
	sg.retransmitted = true
	s.transmit(sg.offset, sg.payload)
	s.stats.retransmits[trigger.String()]++
	if s.log != nil {
		s.log.WithFields(map[string]interface{}{
			"offset":  sg.offset,
			"trigger": trigger.String(),
		}).Debug("retransmit")
	}
}
