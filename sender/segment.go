package sender

import (
	"time"

	"github.com/udpftp/udpftp/buffer"
	"github.com/udpftp/udpftp/ilist"
)

// segment is one entry of the sender's window: an offset, its payload, and
// the bookkeeping needed for RTO scanning and Karn's rule. It can be linked
// into a segmentList, following the teacher's segment/segmentList split
// (transport/tcp/segment.go + transport/udp/udp_packet_list.go)
type segment struct {
	segmentEntry

	offset       uint32
	payload      buffer.View
	lastSendTime time.Time

	// retransmitted disqualifies this segment from an RTT sample per
	// Karn's rule: its send-time no longer reflects a single round trip
	retransmitted bool
}

// end is the offset one past the last byte of payload this segment carries
func (s *segment) end() uint32 {
	return s.offset + uint32(len(s.payload))
}

// segmentEntry is the intrusive-list linkage embedded in segment, following
// the teacher's naming convention for its own per-type list entries
type segmentEntry struct {
	ilist.Entry
}

// segmentList is a specialization of ilist.List for *segment, kept in
// ascending offset order since segments are always appended at next_seq and
// only ever removed from the front as send_base advances
type segmentList struct {
	list ilist.List
}

func (l *segmentList) PushBack(s *segment) {
	l.list.PushBack(s)
}

func (l *segmentList) Front() *segment {
	if l.list.Front() == nil {
		return nil
	}
	return l.list.Front().(*segment)
}

func (l *segmentList) Remove(s *segment) {
	l.list.Remove(s)
}

func (l *segmentList) Empty() bool {
	return l.list.Empty()
}

// Each calls fn for every segment in ascending offset order. fn must not
// mutate the list it is iterating
func (l *segmentList) Each(fn func(*segment)) {
	for e := l.list.Front(); e != nil; e = e.Next() {
		fn(e.(*segment))
	}
}
