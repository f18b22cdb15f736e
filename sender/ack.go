package sender

import (
	"time"

	"github.com/udpftp/udpftp/wire"
)

// handleAck updates all sender state in response to one received ACK
// datagram. It must be called with s.mu held
func (s *Sender) handleAck(cum uint32, sacks []wire.SackBlock, now time.Time) {
	switch {
	case cum > s.w.sendBase:
		ackedBytes, sampleSeg := s.w.advance(cum)
		if sampleSeg != nil {
			s.est.Sample(now.Sub(sampleSeg.lastSendTime))
		}
		s.w.setSackBlocks(sacks)
		s.p.OnNewAck(ackedBytes, cum)

	case cum == s.w.sendBase:
		s.stats.duplicateAcks++
		s.w.setSackBlocks(sacks)
		s.onDuplicateAck(now)

	default:
		// Stale ACK (cum < send_base); the receiver's view is behind
		// ours, nothing to do
	}
}
