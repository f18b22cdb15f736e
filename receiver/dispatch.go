package receiver

import (
	"github.com/udpftp/udpftp/wire"
)

// handlePacket dispatches one decoded data segment against the current
// recv_base and returns (done, finalAck) — done is true once the EOF
// sentinel has been accepted in order, and finalAck is the ACK datagram the
// caller should resend as the terminal burst
func (r *Receiver) handlePacket(offset uint32, payload []byte) (bool, []byte) {
	if string(payload) == wire.EOFPayload {
		return r.handleEOF(offset)
	}

	switch {
	case offset == r.recvBase:
		return r.handleInOrder(payload)
	case offset < r.recvBase:
		r.stats.duplicatesSeen++
		r.sendCumulativeAck()
		return false, nil
	default:
		if !r.buf.has(offset) {
			r.buf.insert(offset, payload)
		} else {
			r.stats.duplicatesSeen++
		}
		r.sendCumulativeAck()
		return false, nil
	}
}

// handleEOF implements the two EOF sub-cases: accepted in order (terminal),
// or arriving ahead of recv_base (buffered like any other out-of-order
// segment, reported via the ordinary cumulative ACK)
func (r *Receiver) handleEOF(offset uint32) (bool, []byte) {
	if offset != r.recvBase {
		if !r.buf.has(offset) {
			r.buf.insert(offset, []byte(wire.EOFPayload))
		}
		r.sendCumulativeAck()
		return false, nil
	}

	r.recvBase += uint32(len(wire.EOFPayload))
	r.complete = true
	ack := wire.EncodeAck(r.recvBase, nil)
	r.sendRaw(ack, immediateEOFAcks)
	return true, ack
}

// handleInOrder writes payload at recv_base, then drains every contiguous
// segment the out-of-order buffer already holds, stopping if that drain
// itself reaches the EOF sentinel
func (r *Receiver) handleInOrder(payload []byte) (bool, []byte) {
	r.sink.Write(payload)
	r.recvBase += uint32(len(payload))

	for {
		data, ok := r.buf.get(r.recvBase)
		if !ok {
			break
		}
		r.buf.remove(r.recvBase)

		if string(data) == wire.EOFPayload {
			r.recvBase += uint32(len(wire.EOFPayload))
			r.complete = true
			ack := wire.EncodeAck(r.recvBase, nil)
			r.sendRaw(ack, immediateEOFAcks)
			return true, ack
		}

		r.sink.Write(data)
		r.recvBase += uint32(len(data))
	}

	r.sendCumulativeAck()
	return false, nil
}

// sendCumulativeAck reports the current recv_base together with whatever
// SACK blocks the out-of-order buffer can synthesize
func (r *Receiver) sendCumulativeAck() {
	ack := wire.EncodeAck(r.recvBase, r.buf.sackBlocks())
	r.sendRaw(ack, 1)
}

// sendRaw writes copies bytes to the peer. It is a no-op when conn is unset,
// which keeps the dispatch logic unit-testable without a real socket
func (r *Receiver) sendRaw(datagram []byte, copies int) {
	if r.conn == nil {
		return
	}
	for i := 0; i < copies; i++ {
		r.conn.WriteToUDP(datagram, r.peer)
	}
	r.stats.acksSent += copies
}
