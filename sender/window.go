package sender

import (
	"sort"
	"time"

	"github.com/udpftp/udpftp/buffer"
	"github.com/udpftp/udpftp/wire"
)

// window holds the sender's per-offset segment state: the set of segments
// transmitted but not yet cumulatively acknowledged, plus the SACK marking
// derived from the receiver's latest reported blocks
type window struct {
	sendBase uint32
	nextSeq  uint32
	fileSize uint32
	eofSent  bool

	list     segmentList
	byOffset map[uint32]*segment

	sacked     map[uint32]bool
	sackBlocks []wire.SackBlock

	dupAckCount map[uint32]int
}

func newWindow(fileSize uint32) *window {
	return &window{
		fileSize:    fileSize,
		byOffset:    make(map[uint32]*segment),
		sacked:      make(map[uint32]bool),
		dupAckCount: make(map[uint32]int),
	}
}

// bytesInFlight is the sum of payload lengths of segments currently in the
// window, used by variant B against cwnd
func (w *window) bytesInFlight() uint32 {
	var total uint32
	for _, s := range w.byOffset {
		total += uint32(len(s.payload))
	}
	return total
}

// unackedSpan is next_seq - send_base, used by variant A against a fixed SWS
func (w *window) unackedSpan() uint32 {
	return w.nextSeq - w.sendBase
}

// eofRemaining reports whether the EOF pseudo-segment still needs to be
// created
func (w *window) eofRemaining() bool {
	return w.nextSeq == w.fileSize && !w.eofSent
}

// done reports whether the whole transfer, including EOF, has been
// cumulatively acknowledged
func (w *window) done() bool {
	return w.eofSent && w.sendBase > w.fileSize
}

// insert records a freshly transmitted (or retransmitted) segment
func (w *window) insert(offset uint32, payload buffer.View, now time.Time) *segment {
	if s, ok := w.byOffset[offset]; ok {
		s.lastSendTime = now
		s.retransmitted = true
		return s
	}
	s := &segment{offset: offset, payload: payload, lastSendTime: now}
	w.byOffset[offset] = s
	w.list.PushBack(s)
	return s
}

// advance prunes the window and SACK marking of everything below the new
// send_base, and clears the duplicate-ACK counter. It returns the number of
// payload bytes newly acknowledged, used for congestion-window growth
// accounting, and the segment to take a Karn-qualified RTT sample from (nil
// if every newly acknowledged segment was retransmitted)
func (w *window) advance(newSendBase uint32) (ackedBytes uint32, sampleFrom *segment) {
	if newSendBase <= w.sendBase {
		return 0, nil
	}
	for {
		s := w.list.Front()
		if s == nil || s.offset >= newSendBase {
			break
		}
		ackedBytes += uint32(len(s.payload))
		if !s.retransmitted {
			// Karn's rule: sample from the segment closest to the new
			// cumulative-ACK boundary that was never retransmitted
			sampleFrom = s
		}
		w.list.Remove(s)
		delete(w.byOffset, s.offset)
		delete(w.sacked, s.offset)
	}
	w.sendBase = newSendBase
	w.dupAckCount = make(map[uint32]int)
	return ackedBytes, sampleFrom
}

// setSackBlocks replaces the current SACK marking and recomputes which
// in-window segments lie fully inside a reported block. Per the spec's
// conservative choice, a segment is marked sacked only if it is fully
// contained in some block — partial overlap does not count
func (w *window) setSackBlocks(blocks []wire.SackBlock) {
	w.sackBlocks = blocks
	w.sacked = make(map[uint32]bool)
	for _, s := range w.byOffset {
		for _, b := range blocks {
			if s.offset >= b.Start && s.end() <= b.End {
				w.sacked[s.offset] = true
				break
			}
		}
	}
}

// holes returns, in ascending order, the in-window offsets that lie before
// the first SACK block or in a gap between two consecutive blocks, excluding
// anything already marked sacked
func (w *window) holes() []uint32 {
	if len(w.sackBlocks) == 0 || len(w.byOffset) == 0 {
		return nil
	}
	sorted := append([]wire.SackBlock(nil), w.sackBlocks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []uint32
	inHole := func(offset uint32) bool {
		if w.sacked[offset] {
			return false
		}
		if offset < sorted[0].Start {
			return true
		}
		for i := 0; i < len(sorted)-1; i++ {
			if offset >= sorted[i].End && offset < sorted[i+1].Start {
				return true
			}
		}
		return false
	}
	w.list.Each(func(s *segment) {
		if inHole(s.offset) {
			out = append(out, s.offset)
		}
	})
	return out
}
