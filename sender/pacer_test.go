package sender

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udpftp/udpftp/wire"
)

func TestFixedWindowCapNeverMoves(t *testing.T) {
	p := newFixedWindow(8192)
	assert.Equal(t, uint32(8192), p.Cap())
	p.OnNewAck(1000, 1000)
	p.OnThirdDupAck(2000)
	p.OnAdditionalDupAck()
	p.OnTimeout()
	assert.Equal(t, uint32(8192), p.Cap())
}

func TestRenoPacerAdaptsController(t *testing.T) {
	p := newRenoPacer(wire.MSS)
	assert.Equal(t, uint32(wire.MSS), p.Cap())

	p.OnNewAck(wire.MSS, wire.MSS)
	assert.Greater(t, p.Cap(), uint32(wire.MSS))
}
