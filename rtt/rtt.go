// Package rtt implements the Karn/Jacobson round-trip-time estimator used by
// the sender to size its retransmission timeout
package rtt

import "time"

const (
	alpha = 0.125 // srtt gain
	beta  = 0.25  // rttvar gain
)

// Estimator tracks the smoothed RTT, RTT variation and the resulting RTO, as
// described in RFC 6298. Bounds on RTO are caller-supplied so variant A
// (tight, 2s ceiling) and variant B (backed-off, 60s ceiling) share the same
// estimator
type Estimator struct {
	min, max time.Duration

	srtt    time.Duration
	rttvar  time.Duration
	rto     time.Duration
	started bool
}

// NewEstimator creates an Estimator whose RTO is clamped to [min, max] and
// starts at an initial value before the first sample arrives
func NewEstimator(min, max, initial time.Duration) *Estimator {
	return &Estimator{min: min, max: max, rto: clamp(initial, min, max)}
}

// Sample folds a single observed round-trip time r into the estimator. The
// caller is responsible for enforcing Karn's rule: r must come from a
// segment that was never retransmitted
func (e *Estimator) Sample(r time.Duration) {
	if !e.started {
		e.srtt = r
		e.rttvar = r / 2
		e.started = true
	} else {
		diff := e.srtt - r
		if diff < 0 {
			diff = -diff
		}
		e.rttvar = e.rttvar - (e.rttvar / 4) + (diff / 4)
		e.srtt = e.srtt - time.Duration(alpha*float64(e.srtt)) + time.Duration(alpha*float64(r))
	}
	e.rto = clamp(e.srtt+4*e.rttvar, e.min, e.max)
}

// Backoff doubles the current RTO, used after a timeout retransmit and
// before the next valid sample recomputes it from scratch
func (e *Estimator) Backoff() {
	e.rto = clamp(e.rto*2, e.min, e.max)
}

// RTO returns the current retransmission timeout
func (e *Estimator) RTO() time.Duration {
	return e.rto
}

// SRTT returns the current smoothed RTT (zero if no sample has landed yet)
func (e *Estimator) SRTT() time.Duration {
	return e.srtt
}

// RTTVar returns the current RTT variation estimate
func (e *Estimator) RTTVar() time.Duration {
	return e.rttvar
}

func clamp(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
