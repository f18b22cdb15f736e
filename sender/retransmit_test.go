package sender

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/udpftp/udpftp/rtt"
	"github.com/udpftp/udpftp/wire"
)

func newTestSender(variant Variant) *Sender {
	s := &Sender{
		variant: variant,
		w:       newWindow(100000),
		est:     rtt.NewEstimator(10*time.Millisecond, time.Second, 200*time.Millisecond),
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	s.stats.retransmits = make(map[string]uint64)
	if variant == VariantB {
		s.p = newRenoPacer(wire.MSS)
	} else {
		s.p = newFixedWindow(64 * wire.MSS)
	}
	return s
}

func TestOnDuplicateAckFastRetransmitsOnThird(t *testing.T) {
	s := newTestSender(VariantA)
	now := time.Now()
	s.w.insert(0, make([]byte, 100), now)
	s.w.nextSeq = 100

	s.onDuplicateAck(now)
	s.onDuplicateAck(now)
	assert.Zero(t, s.stats.retransmits[triggerFastRetransmit.String()])

	s.onDuplicateAck(now)
	assert.Equal(t, uint64(1), s.stats.retransmits[triggerFastRetransmit.String()])
}

func TestOnDuplicateAckSkipsSackedBase(t *testing.T) {
	s := newTestSender(VariantA)
	now := time.Now()
	s.w.insert(0, make([]byte, 100), now)
	s.w.nextSeq = 100
	s.w.sacked[0] = true

	for i := 0; i < 3; i++ {
		s.onDuplicateAck(now)
	}
	assert.Zero(t, s.stats.retransmits[triggerFastRetransmit.String()])
}

func TestSackSelectiveRetransmitThrottlesVariantA(t *testing.T) {
	s := newTestSender(VariantA)
	past := time.Now().Add(-time.Second)
	for i := uint32(0); i < 5; i++ {
		s.w.insert(i*100, make([]byte, 100), past)
	}
	s.w.nextSeq = 500
	s.w.setSackBlocks([]wire.SackBlock{{Start: 500, End: 500}})

	s.sackSelectiveRetransmit(time.Now())
	assert.Equal(t, uint64(3), s.stats.retransmits[triggerSackHole.String()])
}

func TestTimeoutScanCollapsesOnce(t *testing.T) {
	s := newTestSender(VariantB)
	past := time.Now().Add(-time.Second)
	s.w.insert(0, make([]byte, 100), past)
	s.w.insert(100, make([]byte, 100), past)
	s.w.nextSeq = 200

	rp := s.p.(*renoPacer)
	// Grow cwnd past its initial one MSS so the collapse back to MSS is visible
	rp.controller().OnNewAck(4*wire.MSS, 4*wire.MSS)
	before := rp.controller().Cwnd()

	s.timeoutScan(time.Now())

	assert.Equal(t, uint64(2), s.stats.retransmits[triggerTimeout.String()])
	assert.Less(t, rp.controller().Cwnd(), before)
}
