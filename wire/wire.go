// Package wire implements the on-the-wire encoding of data segments and ACK
// datagrams. The header layout follows the teacher's header package in
// spirit (a fixed-size, big-endian field block with simple byte-slice
// accessors) but the fields themselves are this protocol's own: a 32-bit
// byte offset rather than TCP's port/seq/ack/flags tuple
package wire

import "encoding/binary"

const (
	// HeaderSize is the size, in bytes, of both the data-segment and the
	// ACK header
	HeaderSize = 20

	// MSS is the maximum payload size of a data segment
	MSS = 1180

	// MaxDatagram is the largest datagram either peer will send
	MaxDatagram = HeaderSize + MSS

	// EOFPayload is the literal payload marking the end of the byte
	// stream. It occupies 3 bytes of sequence space at offset file_size
	EOFPayload = "EOF"

	// sackAreaSize is the number of bytes in the ACK header given over to
	// SACK blocks (two (start,end) uint32 pairs)
	sackAreaSize = 16

	// maxSackBlocks is the number of SACK ranges an ACK can carry
	maxSackBlocks = 2
)

// SackBlock describes a contiguous run [Start, End) of bytes the receiver
// holds out of order
type SackBlock struct {
	Start uint32
	End   uint32
}

// EncodeData writes a data-segment datagram: a 4-byte big-endian offset
// followed by 16 reserved zero bytes and the payload
func EncodeData(offset uint32, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], offset)
	copy(buf[HeaderSize:], payload)
	return buf
}

// DecodeData parses a data-segment datagram. It returns ok=false for any
// datagram shorter than HeaderSize, which must be silently discarded by the
// caller
func DecodeData(datagram []byte) (offset uint32, payload []byte, ok bool) {
	if len(datagram) < HeaderSize {
		return 0, nil, false
	}
	offset = binary.BigEndian.Uint32(datagram[0:4])
	payload = datagram[HeaderSize:]
	return offset, payload, true
}

// EncodeAck writes an ACK datagram: a 4-byte big-endian cumulative offset
// followed by up to two (start, end) SACK pairs, zero-padded to 16 bytes
func EncodeAck(cumulative uint32, sacks []SackBlock) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], cumulative)

	for i := 0; i < len(sacks) && i < maxSackBlocks; i++ {
		off := 4 + i*8
		binary.BigEndian.PutUint32(buf[off:off+4], sacks[i].Start)
		binary.BigEndian.PutUint32(buf[off+4:off+8], sacks[i].End)
	}
	return buf
}

// DecodeAck parses an ACK datagram, returning ok=false for any datagram
// shorter than HeaderSize. SACK pairs are validated per spec: a pair is kept
// only if 0 < start < end and start >= cumulative; zero-padded or stale
// slots are silently dropped rather than surfaced as an error
func DecodeAck(datagram []byte) (cumulative uint32, sacks []SackBlock, ok bool) {
	if len(datagram) < HeaderSize {
		return 0, nil, false
	}
	cumulative = binary.BigEndian.Uint32(datagram[0:4])

	for i := 0; i < maxSackBlocks; i++ {
		off := 4 + i*8
		start := binary.BigEndian.Uint32(datagram[off : off+4])
		end := binary.BigEndian.Uint32(datagram[off+4 : off+8])
		if start > 0 && start < end && start >= cumulative {
			sacks = append(sacks, SackBlock{Start: start, End: end})
		}
	}
	return cumulative, sacks, true
}
