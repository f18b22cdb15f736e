package sender

import "github.com/udpftp/udpftp/congestion"

// pacer decides how much data may be outstanding at once and reacts to the
// events that move that limit. renoPacer adapts congestion.Controller for
// variant B; fixedWindow implements it directly for variant A, where the cap
// never moves
type pacer interface {
	// Cap returns the current admission ceiling, in bytes
	Cap() uint32

	// OnNewAck is called when a cumulative ACK newly acknowledges
	// bytesAcked bytes; newCum is the ACK's cumulative value
	OnNewAck(bytesAcked uint32, newCum uint32)

	// OnThirdDupAck is called once, when the dup-ACK count for
	// send_base first reaches the triple-duplicate threshold
	OnThirdDupAck(nextSeq uint32)

	// OnAdditionalDupAck is called for every dup-ACK observed after the
	// third
	OnAdditionalDupAck()

	// OnTimeout is called when a timeout retransmit fires
	OnTimeout()
}

// fixedWindow is the variant-A pacer: a constant-size sliding window (SWS)
// with no congestion reaction at all — loss recovery is left entirely to
// the retransmit policies
type fixedWindow struct {
	sws uint32
}

func newFixedWindow(sws uint32) *fixedWindow {
	return &fixedWindow{sws: sws}
}

func (f *fixedWindow) Cap() uint32                               { return f.sws }
func (f *fixedWindow) OnNewAck(bytesAcked uint32, newCum uint32) {}
func (f *fixedWindow) OnThirdDupAck(nextSeq uint32)              {}
func (f *fixedWindow) OnAdditionalDupAck()                       {}
func (f *fixedWindow) OnTimeout()                                {}

// renoPacer adapts a congestion.Controller (which speaks in its own domain
// vocabulary, Cwnd rather than Cap) to the pacer interface
type renoPacer struct {
	c *congestion.Controller
}

func newRenoPacer(mss uint32) *renoPacer {
	return &renoPacer{c: congestion.New(mss)}
}

func (r *renoPacer) Cap() uint32                               { return r.c.Cwnd() }
func (r *renoPacer) OnNewAck(bytesAcked uint32, newCum uint32) { r.c.OnNewAck(bytesAcked, newCum) }
func (r *renoPacer) OnThirdDupAck(nextSeq uint32)              { r.c.OnThirdDupAck(nextSeq) }
func (r *renoPacer) OnAdditionalDupAck()                       { r.c.OnAdditionalDupAck() }
func (r *renoPacer) OnTimeout()                                { r.c.OnTimeout() }

// controller exposes the underlying Reno state for metrics collection.
// Variant A uses fixedWindow, which has no controller
func (r *renoPacer) controller() *congestion.Controller { return r.c }
