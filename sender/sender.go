// Package sender implements the sliding-window sender: byte accounting,
// transmit pacing, RTT estimation and the three retransmit triggers, in both
// the fixed-window (variant A) and Reno congestion-controlled (variant B)
// flavors.
//
// The control loop follows the design note in SPEC_FULL.md §5: rather than
// the teacher's sleep-polling transmit thread plus a separately locked
// receive thread, a single goroutine multiplexes ACK arrival, the next RTO
// deadline and shutdown through the wake package, removing the poll loop
// while preserving the required interleaving (every wake services admission
// then a timeout scan before the next wait)
package sender

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/udpftp/udpftp/buffer"
	"github.com/udpftp/udpftp/rtt"
	"github.com/udpftp/udpftp/wake"
	"github.com/udpftp/udpftp/wire"
)

// Variant selects the sender's admission/congestion strategy
type Variant int

const (
	VariantA Variant = iota // fixed window + SACK, no congestion control
	VariantB                // Reno congestion control
)

const (
	wakerForAck = iota
	wakerForResend
	wakerForStop

	tripleDupAckThreshold = 3

	// postEOFGrace is how long the sender waits for progress after EOF is
	// first sent before abandoning the transfer
	postEOFGrace = 10 * time.Second

	// settleDelay absorbs trailing receiver ACKs once the transfer is
	// cumulatively complete
	settleDelay = 200 * time.Millisecond
)

// Config carries the tunables a Sender needs beyond the wire defaults
type Config struct {
	Variant Variant
	SWS     uint32 // fixed send-window size, variant A only
	RTOMin  time.Duration
	RTOMax  time.Duration
	RTOInit time.Duration
	Log     *logrus.Entry
}

// Stats is a point-in-time snapshot of sender state, read by the metrics
// collector under the sender's lock
type Stats struct {
	SendBase      uint32
	NextSeq       uint32
	BytesInFlight uint32
	Cap           uint32
	SRTT          time.Duration
	RTTVar        time.Duration
	RTO           time.Duration
	Done          bool

	// CongestionPhase and Ssthresh are only meaningful for variant B;
	// CongestionPhase is the empty string for variant A
	CongestionPhase string
	Ssthresh        uint32

	SegmentsSent  int
	Retransmits   map[string]uint64
	DuplicateAcks int
}

// Sender drives the transmit/retransmit control loop for one file transfer
type Sender struct {
	conn    *net.UDPConn
	peer    *net.UDPAddr
	file    io.ReaderAt
	variant Variant

	w   *window
	p   pacer
	est *rtt.Estimator

	mu   sync.Mutex
	stop bool

	ackWaker    wake.Waker
	resendWaker wake.Waker
	stopWaker   wake.Waker
	sleeper     wake.Sleeper

	resendTimer *time.Timer

	eofFirstSentAt time.Time

	log *logrus.Entry

	stats struct {
		segmentsSent  int
		retransmits   map[string]uint64
		duplicateAcks int
	}
}

// New creates a Sender for a file of the given size, ready to run once
// Serve is called
func New(conn *net.UDPConn, peer *net.UDPAddr, file io.ReaderAt, fileSize uint32, cfg Config) *Sender {
	var p pacer
	if cfg.Variant == VariantB {
		p = newRenoPacer(wire.MSS)
	} else {
		sws := cfg.SWS
		if sws == 0 {
			sws = 64 * wire.MSS
		}
		p = newFixedWindow(sws)
	}

	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Sender{
		conn:    conn,
		peer:    peer,
		file:    file,
		variant: cfg.Variant,
		w:       newWindow(fileSize),
		p:       p,
		est:     rtt.NewEstimator(cfg.RTOMin, cfg.RTOMax, cfg.RTOInit),
		log:     log,
	}
	s.stats.retransmits = make(map[string]uint64)
	return s
}

// Serve runs the control loop until the transfer completes, the post-EOF
// grace period expires with no progress, or Stop is called. It returns nil
// on a completed transfer
func (s *Sender) Serve() error {
	go s.receiveLoop()

	s.sleeper.AddWaker(&s.ackWaker, wakerForAck)
	s.sleeper.AddWaker(&s.resendWaker, wakerForResend)
	s.sleeper.AddWaker(&s.stopWaker, wakerForStop)

	// Prime the loop: cut and send the first segments immediately
	s.ackWaker.Assert()

	for {
		id, _ := s.sleeper.Fetch(true)
		if id == wakerForStop {
			return nil
		}

		now := time.Now()
		var aborted bool
		s.mu.Lock()
		s.admit(now)
		s.timeoutScan(now)
		if s.w.eofSent && s.eofFirstSentAt.IsZero() {
			s.eofFirstSentAt = now
		}
		if !s.w.done() && !s.eofFirstSentAt.IsZero() && now.Sub(s.eofFirstSentAt) > postEOFGrace {
			aborted = true
		}
		done := s.w.done()
		s.rearmResendTimer()
		s.mu.Unlock()

		if aborted {
			s.log.Warn("post-EOF grace exhausted, abandoning transfer")
			return errors.New("udpftp: transfer abandoned after EOF grace period")
		}
		if done {
			time.Sleep(settleDelay)
			return nil
		}
	}
}

// Stop requests a clean shutdown of the control loop
func (s *Sender) Stop() {
	s.mu.Lock()
	s.stop = true
	s.mu.Unlock()
	s.stopWaker.Assert()
}

// admit cuts and sends as many new segments as the current cap allows, then
// sends the EOF pseudo-segment once next_seq reaches file_size
func (s *Sender) admit(now time.Time) {
	for {
		inFlight := s.inFlightBytes()
		ceiling := s.p.Cap()
		if inFlight >= ceiling {
			break
		}
		usable := ceiling - inFlight
		remaining := s.w.fileSize - s.w.nextSeq
		if remaining == 0 {
			break
		}
		size := usable
		if size > wire.MSS {
			size = wire.MSS
		}
		if size > remaining {
			size = remaining
		}
		if size == 0 {
			break
		}

		payload := buffer.NewView(int(size))
		if _, err := s.file.ReadAt(payload, int64(s.w.nextSeq)); err != nil && err != io.EOF {
			s.log.WithError(err).Error("reading input file")
			break
		}

		offset := s.w.nextSeq
		s.transmit(offset, payload)
		s.w.insert(offset, payload, now)
		s.w.nextSeq += size
		s.stats.segmentsSent++
	}

	if s.w.eofRemaining() {
		eof := buffer.NewViewFromBytes([]byte(wire.EOFPayload))
		s.transmit(s.w.nextSeq, eof)
		s.w.insert(s.w.nextSeq, eof, now)
		s.w.eofSent = true
		s.stats.segmentsSent++
		s.log.WithField("offset", s.w.nextSeq).Debug("EOF sent")
	}
}

// inFlightBytes is the quantity measured against the pacer's cap: payload
// bytes outstanding for variant B, next_seq-send_base for variant A
func (s *Sender) inFlightBytes() uint32 {
	if s.variant == VariantB {
		return s.w.bytesInFlight()
	}
	return s.w.unackedSpan()
}

// transmit sends a raw data segment on the wire. This is the one operation
// the control loop performs while still holding the lock — acceptable
// because a UDP send does not block on receiver behavior, only on local
// socket buffer space
func (s *Sender) transmit(offset uint32, payload []byte) {
	datagram := wire.EncodeData(offset, payload)
	if _, err := s.conn.WriteToUDP(datagram, s.peer); err != nil {
		s.log.WithError(err).Debug("send failed")
	}
}

// receiveLoop owns the socket's read side: it blocks for ACK datagrams and
// hands each one to handleAck under the sender's lock, then wakes the
// control loop
func (s *Sender) receiveLoop() {
	buf := make([]byte, wire.MaxDatagram)
	for {
		s.mu.Lock()
		stopped := s.stop
		s.mu.Unlock()
		if stopped {
			return
		}

		s.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		if addr.String() != s.peer.String() {
			continue
		}

		cum, sacks, ok := wire.DecodeAck(buf[:n])
		if !ok {
			continue
		}

		s.mu.Lock()
		s.handleAck(cum, sacks, time.Now())
		s.mu.Unlock()
		s.ackWaker.Assert()
	}
}

// rearmResendTimer schedules the next resend-waker assertion for the
// earliest deadline among in-window segments, so the control loop wakes
// exactly when a timeout scan could have work to do instead of polling
func (s *Sender) rearmResendTimer() {
	if s.resendTimer != nil {
		s.resendTimer.Stop()
	}
	earliest, ok := s.earliestDeadline()
	if !ok {
		return
	}
	d := time.Until(earliest)
	if d < 0 {
		d = 0
	}
	s.resendTimer = time.AfterFunc(d, s.resendWaker.Assert)
}

func (s *Sender) earliestDeadline() (time.Time, bool) {
	rto := s.est.RTO()
	var earliest time.Time
	found := false
	s.w.list.Each(func(sg *segment) {
		if s.w.sacked[sg.offset] {
			return
		}
		d := sg.lastSendTime.Add(rto)
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	})
	return earliest, found
}

// Snapshot returns a point-in-time view of sender state for metrics
func (s *Sender) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	retransmits := make(map[string]uint64, len(s.stats.retransmits))
	for k, v := range s.stats.retransmits {
		retransmits[k] = v
	}

	st := Stats{
		SendBase:      s.w.sendBase,
		NextSeq:       s.w.nextSeq,
		BytesInFlight: s.inFlightBytes(),
		Cap:           s.p.Cap(),
		SRTT:          s.est.SRTT(),
		RTTVar:        s.est.RTTVar(),
		RTO:           s.est.RTO(),
		Done:          s.w.done(),
		SegmentsSent:  s.stats.segmentsSent,
		Retransmits:   retransmits,
		DuplicateAcks: s.stats.duplicateAcks,
	}
	if rp, ok := s.p.(*renoPacer); ok {
		st.CongestionPhase = rp.controller().CurrentPhase().String()
		st.Ssthresh = rp.controller().Ssthresh()
	}
	return st
}
