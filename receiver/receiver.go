// Package receiver implements the in-order delivery engine: the receive
// loop, out-of-order buffering, SACK synthesis and the EOF handshake.
package receiver

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/udpftp/udpftp/wire"
)

const (
	// connectRetries and connectTimeout govern the initial request
	// handshake
	connectRetries = 5
	connectTimeout = 2 * time.Second

	// readDeadline bounds each blocking receive in the main loop
	readDeadline = 500 * time.Millisecond

	// idleTimeout aborts the transfer if no datagram arrives for this long
	idleTimeout = 5 * time.Second

	// finalAckBurstCount and finalAckBurstSpacing survive tail loss of the
	// receiver's last ACKs once the transfer is complete
	finalAckBurstCount   = 5
	finalAckBurstSpacing = 50 * time.Millisecond

	// immediateEOFAcks is the number of copies sent the instant EOF is
	// recognized in-order, before the loop exits and the final burst runs
	immediateEOFAcks = 3
)

// RequestByte identifies which protocol variant a receiver speaks during the
// initiation handshake
type RequestByte byte

const (
	RequestVariantA RequestByte = '1'
	RequestVariantB RequestByte = 'R'
)

// Config carries the tunables a Receiver needs beyond the wire defaults. The
// zero value is valid and selects the package constants.
type Config struct {
	IdleTimeout time.Duration
	Log         *logrus.Entry
}

// Receiver reconstructs a byte stream from data segments and reports
// progress back to the sender via cumulative + SACK ACKs
type Receiver struct {
	conn    *net.UDPConn
	peer    *net.UDPAddr
	sink    io.Writer
	request RequestByte
	log     *logrus.Entry

	idleTimeout time.Duration

	recvBase uint32
	buf      *outOfOrder
	complete bool

	mu   sync.Mutex
	stop bool

	stats struct {
		packetsReceived int
		acksSent        int
		duplicatesSeen  int
	}
}

// New creates a Receiver writing into sink
func New(conn *net.UDPConn, peer *net.UDPAddr, sink io.Writer, request RequestByte, cfg Config) *Receiver {
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	timeout := cfg.IdleTimeout
	if timeout == 0 {
		timeout = idleTimeout
	}
	return &Receiver{
		conn:        conn,
		peer:        peer,
		sink:        sink,
		request:     request,
		log:         log,
		idleTimeout: timeout,
		buf:         newOutOfOrder(),
	}
}

// Stop requests a clean shutdown of the receive loop. Run observes the
// request within one read-loop tick (bounded by readDeadline), or, while
// still in the initiation handshake, before the next request attempt
// (bounded by connectTimeout), and returns
// without writing a final ACK burst, since the transfer is abandoned rather
// than completed
func (r *Receiver) Stop() {
	r.mu.Lock()
	r.stop = true
	r.mu.Unlock()
}

func (r *Receiver) stopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop
}

// Done reports whether the transfer reached completion. Only meaningful
// after Run has returned
func (r *Receiver) Done() bool {
	return r.complete
}

// Run performs the initiation handshake and then drives the receive loop
// until the transfer completes, the idle timeout fires, or Stop is called
func (r *Receiver) Run() error {
	first, err := r.connect()
	if err != nil {
		return err
	}

	lastDataAt := time.Now()

	if offset, payload, ok := wire.DecodeData(first); ok {
		r.stats.packetsReceived++
		if done, finalAck := r.handlePacket(offset, payload); done {
			r.burstFinalAcks(finalAck)
			return nil
		}
	}

	buf := make([]byte, wire.MaxDatagram)
	for {
		if r.stopRequested() {
			return errors.New("udpftp: receiver stopped")
		}
		r.conn.SetReadDeadline(time.Now().Add(readDeadline))
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if time.Since(lastDataAt) > r.idleTimeout {
					return errors.New("udpftp: idle timeout waiting for data")
				}
				continue
			}
			return errors.Wrap(err, "udpftp: receive failed")
		}
		if addr.String() != r.peer.String() {
			continue
		}
		lastDataAt = time.Now()

		offset, payload, ok := wire.DecodeData(buf[:n])
		if !ok {
			r.log.Debug("discarding short datagram")
			continue
		}
		r.stats.packetsReceived++

		if done, finalAck := r.handlePacket(offset, payload); done {
			r.burstFinalAcks(finalAck)
			return nil
		}
	}
}

// connect sends the single request octet with bounded retries until the
// sender replies with the first data segment
func (r *Receiver) connect() ([]byte, error) {
	req := []byte{byte(r.request)}
	buf := make([]byte, wire.MaxDatagram)

	for attempt := 0; attempt < connectRetries; attempt++ {
		if r.stopRequested() {
			return nil, errors.New("udpftp: receiver stopped")
		}
		r.log.WithField("attempt", attempt+1).Debug("sending request")
		if _, err := r.conn.WriteToUDP(req, r.peer); err != nil {
			return nil, errors.Wrap(err, "udpftp: sending request")
		}

		r.conn.SetReadDeadline(time.Now().Add(connectTimeout))
		n, addr, err := r.conn.ReadFromUDP(buf)
		if err == nil && addr.String() == r.peer.String() {
			return append([]byte(nil), buf[:n]...), nil
		}
	}
	return nil, errors.New("udpftp: failed to connect after request retries")
}

// burstFinalAcks resends the terminal ACK several times, spaced out, so the
// sender's cumulative advance survives loss of any single copy
func (r *Receiver) burstFinalAcks(ack []byte) {
	for i := 0; i < finalAckBurstCount; i++ {
		r.conn.WriteToUDP(ack, r.peer)
		if i != finalAckBurstCount-1 {
			time.Sleep(finalAckBurstSpacing)
		}
	}
}
