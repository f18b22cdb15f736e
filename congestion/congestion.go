// Package congestion implements the TCP Reno-style congestion controller
// used by the congestion-controlled sender variant (variant B): slow start,
// congestion avoidance, fast recovery and timeout collapse.
//
// The three phases are modeled as a tagged variant rather than a flat record
// of booleans — per the design note that a pair of independent
// in_slow_start/in_fast_recovery flags can represent the impossible
// (true, true) state. RecoveryPoint is only meaningful in FastRecovery and
// is inaccessible outside it
package congestion

// Phase is the congestion controller's current state
type Phase int

const (
	SlowStart Phase = iota
	CongestionAvoidance
	FastRecovery
)

func (p Phase) String() string {
	switch p {
	case SlowStart:
		return "slow-start"
	case CongestionAvoidance:
		return "congestion-avoidance"
	case FastRecovery:
		return "fast-recovery"
	default:
		return "unknown"
	}
}

// Controller holds the Reno state machine. Units are bytes; MSS is the
// granularity of every additive step
type Controller struct {
	mss      float64
	cwnd     float64
	ssthresh float64
	phase    Phase

	// recoveryPoint is next_seq at the moment FastRecovery was entered.
	// Only valid when phase == FastRecovery
	recoveryPoint uint32
}

// InitialSsthresh is the controller's starting slow-start threshold, per
// spec
const InitialSsthresh = 64000

// New creates a Controller with cwnd = mss and ssthresh = InitialSsthresh,
// starting in SlowStart
func New(mss uint32) *Controller {
	return &Controller{
		mss:      float64(mss),
		cwnd:     float64(mss),
		ssthresh: InitialSsthresh,
		phase:    SlowStart,
	}
}

// Cwnd returns the current congestion window in bytes
func (c *Controller) Cwnd() uint32 {
	return uint32(c.cwnd)
}

// Ssthresh returns the current slow-start threshold in bytes
func (c *Controller) Ssthresh() uint32 {
	return uint32(c.ssthresh)
}

// CurrentPhase returns the controller's current phase
func (c *Controller) CurrentPhase() Phase {
	return c.phase
}

// RecoveryPoint returns the fast-recovery exit point and true, or (0, false)
// when the controller is not in FastRecovery
func (c *Controller) RecoveryPoint() (uint32, bool) {
	if c.phase != FastRecovery {
		return 0, false
	}
	return c.recoveryPoint, true
}

// OnNewAck is called when a cumulative ACK newly acknowledges bytesAcked
// bytes. newCum is the ACK's cumulative value, used to test whether it
// covers the fast-recovery point
func (c *Controller) OnNewAck(bytesAcked uint32, newCum uint32) {
	switch c.phase {
	case FastRecovery:
		if newCum >= c.recoveryPoint {
			c.phase = CongestionAvoidance
			c.cwnd = c.ssthresh
		}
	case SlowStart:
		c.cwnd += float64(bytesAcked)
		if c.cwnd >= c.ssthresh {
			c.phase = CongestionAvoidance
		}
	case CongestionAvoidance:
		c.cwnd += c.mss * float64(bytesAcked) / c.cwnd
	}
	c.clampCwnd()
}

// OnThirdDupAck is called when the dup-ACK count for send_base reaches the
// triple-duplicate threshold. nextSeq is the sender's next_seq at that
// moment, stashed as the fast-recovery exit point
func (c *Controller) OnThirdDupAck(nextSeq uint32) {
	c.ssthresh = max(c.cwnd/2, 2*c.mss)
	c.cwnd = c.ssthresh + 3*c.mss
	c.recoveryPoint = nextSeq
	c.phase = FastRecovery
	c.clampCwnd()
}

// OnAdditionalDupAck is called for each dup-ACK observed while already in
// FastRecovery; it inflates cwnd to reflect the segment that left the
// network
func (c *Controller) OnAdditionalDupAck() {
	if c.phase != FastRecovery {
		return
	}
	c.cwnd += c.mss
}

// OnTimeout collapses the window: ssthresh halves, cwnd resets to one MSS,
// and the controller returns to SlowStart
func (c *Controller) OnTimeout() {
	c.ssthresh = max(c.cwnd/2, 2*c.mss)
	c.cwnd = c.mss
	c.phase = SlowStart
}

func (c *Controller) clampCwnd() {
	if c.cwnd < c.mss {
		c.cwnd = c.mss
	}
	if c.ssthresh < 2*c.mss {
		c.ssthresh = 2 * c.mss
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
