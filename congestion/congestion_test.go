package congestion

import "testing"

const testMSS = 1180

func TestSlowStartGrowsToThreshold(t *testing.T) {
	c := New(testMSS)
	c.ssthresh = 4 * testMSS // shrink so the test converges quickly

	prev := c.Cwnd()
	for i := 0; i < 10 && c.CurrentPhase() == SlowStart; i++ {
		c.OnNewAck(testMSS, 0)
		if c.Cwnd() < prev {
			t.Fatalf("cwnd decreased during slow start: %d -> %d", prev, c.Cwnd())
		}
		prev = c.Cwnd()
	}
	if c.CurrentPhase() != CongestionAvoidance {
		t.Fatalf("expected to exit slow start, still in %v at cwnd=%d", c.CurrentPhase(), c.Cwnd())
	}
}

func TestThirdDupAckEntersFastRecovery(t *testing.T) {
	c := New(testMSS)
	c.OnNewAck(testMSS, 0) // cwnd now 2*MSS

	cwndBefore := c.Cwnd()
	c.OnThirdDupAck(100000)

	if c.CurrentPhase() != FastRecovery {
		t.Fatalf("expected FastRecovery, got %v", c.CurrentPhase())
	}
	wantSsthresh := uint32(max(float64(cwndBefore)/2, 2*testMSS))
	if c.Ssthresh() != wantSsthresh {
		t.Errorf("ssthresh: got %d want %d", c.Ssthresh(), wantSsthresh)
	}
	if c.Cwnd() != c.Ssthresh()+3*testMSS {
		t.Errorf("cwnd: got %d want ssthresh+3*mss=%d", c.Cwnd(), c.Ssthresh()+3*testMSS)
	}
	rp, ok := c.RecoveryPoint()
	if !ok || rp != 100000 {
		t.Errorf("recovery point: got (%d,%v) want (100000,true)", rp, ok)
	}
}

func TestAdditionalDupAckInflatesCwnd(t *testing.T) {
	c := New(testMSS)
	c.OnThirdDupAck(1000)
	before := c.Cwnd()
	c.OnAdditionalDupAck()
	if c.Cwnd() != before+testMSS {
		t.Errorf("cwnd: got %d want %d", c.Cwnd(), before+testMSS)
	}
}

func TestExitFastRecoveryOnCoveringAck(t *testing.T) {
	c := New(testMSS)
	c.OnThirdDupAck(5000)
	ssthresh := c.Ssthresh()

	c.OnNewAck(10, 4000) // doesn't cover recovery point yet
	if c.CurrentPhase() != FastRecovery {
		t.Fatalf("expected to remain in FastRecovery, got %v", c.CurrentPhase())
	}

	c.OnNewAck(10, 5000) // covers recovery point
	if c.CurrentPhase() != CongestionAvoidance {
		t.Fatalf("expected CongestionAvoidance, got %v", c.CurrentPhase())
	}
	if c.Cwnd() != ssthresh {
		t.Errorf("cwnd: got %d want ssthresh=%d", c.Cwnd(), ssthresh)
	}
}

func TestTimeoutCollapsesWindow(t *testing.T) {
	c := New(testMSS)
	c.OnNewAck(testMSS*20, 0)
	cwndBefore := c.Cwnd()

	c.OnTimeout()
	if c.CurrentPhase() != SlowStart {
		t.Fatalf("expected SlowStart after timeout, got %v", c.CurrentPhase())
	}
	if c.Cwnd() != testMSS {
		t.Errorf("cwnd: got %d want mss=%d", c.Cwnd(), testMSS)
	}
	wantSsthresh := uint32(max(float64(cwndBefore)/2, 2*testMSS))
	if c.Ssthresh() != wantSsthresh {
		t.Errorf("ssthresh: got %d want %d", c.Ssthresh(), wantSsthresh)
	}
}

func TestInvariantsHoldAfterFirstLoss(t *testing.T) {
	c := New(testMSS)
	c.OnThirdDupAck(1)
	if c.Cwnd() < testMSS {
		t.Errorf("cwnd below MSS: %d", c.Cwnd())
	}
	if c.Ssthresh() < 2*testMSS {
		t.Errorf("ssthresh below 2*MSS: %d", c.Ssthresh())
	}
}
