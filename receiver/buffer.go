package receiver

import (
	"sort"

	"github.com/udpftp/udpftp/wire"
)

// outOfOrder holds segments received ahead of recv_base, keyed by offset,
// and synthesizes the SACK blocks reported back to the sender. recv_base
// itself is owned by Receiver; this type only ever sees offsets beyond it
type outOfOrder struct {
	segments map[uint32][]byte
}

func newOutOfOrder() *outOfOrder {
	return &outOfOrder{segments: make(map[uint32][]byte)}
}

// has reports whether offset is already buffered (used to detect duplicate
// out-of-order arrivals)
func (o *outOfOrder) has(offset uint32) bool {
	_, ok := o.segments[offset]
	return ok
}

func (o *outOfOrder) insert(offset uint32, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	o.segments[offset] = cp
}

func (o *outOfOrder) remove(offset uint32) {
	delete(o.segments, offset)
}

func (o *outOfOrder) get(offset uint32) ([]byte, bool) {
	p, ok := o.segments[offset]
	return p, ok
}

// sackBlocks sorts the buffered offsets exceeding recv_base and folds
// contiguous runs into (start, end) pairs, returning at most two — the
// same folding rule the teacher's receiver would need for in-order delivery
// bookkeeping, generalized here to emit wire blocks instead
func (o *outOfOrder) sackBlocks() []wire.SackBlock {
	if len(o.segments) == 0 {
		return nil
	}

	offsets := make([]uint32, 0, len(o.segments))
	for off := range o.segments {
		offsets = append(offsets, off)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	var blocks []wire.SackBlock
	runStart := offsets[0]
	runEnd := runStart + uint32(len(o.segments[runStart]))

	for _, off := range offsets[1:] {
		if off == runEnd {
			runEnd = off + uint32(len(o.segments[off]))
			continue
		}
		blocks = append(blocks, wire.SackBlock{Start: runStart, End: runEnd})
		runStart = off
		runEnd = off + uint32(len(o.segments[off]))
	}
	blocks = append(blocks, wire.SackBlock{Start: runStart, End: runEnd})

	if len(blocks) > 2 {
		blocks = blocks[:2]
	}
	return blocks
}
