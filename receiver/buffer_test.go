package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udpftp/udpftp/wire"
)

func TestSackBlocksEmptyWhenNothingBuffered(t *testing.T) {
	o := newOutOfOrder()
	assert.Nil(t, o.sackBlocks())
}

func TestSackBlocksFoldsContiguousRuns(t *testing.T) {
	o := newOutOfOrder()
	o.insert(100, make([]byte, 50)) // [100,150)
	o.insert(150, make([]byte, 50)) // [150,200) contiguous with the above

	blocks := o.sackBlocks()
	assert.Equal(t, []wire.SackBlock{{Start: 100, End: 200}}, blocks)
}

func TestSackBlocksSeparatesNonContiguousRuns(t *testing.T) {
	o := newOutOfOrder()
	o.insert(100, make([]byte, 50))
	o.insert(300, make([]byte, 50))

	blocks := o.sackBlocks()
	assert.Equal(t, []wire.SackBlock{{Start: 100, End: 150}, {Start: 300, End: 350}}, blocks)
}

func TestSackBlocksCapsAtTwo(t *testing.T) {
	o := newOutOfOrder()
	o.insert(100, make([]byte, 10))
	o.insert(300, make([]byte, 10))
	o.insert(500, make([]byte, 10))

	blocks := o.sackBlocks()
	assert.Len(t, blocks, 2)
}

func TestHasRemoveGet(t *testing.T) {
	o := newOutOfOrder()
	assert.False(t, o.has(10))

	o.insert(10, []byte("abc"))
	assert.True(t, o.has(10))

	data, ok := o.get(10)
	assert.True(t, ok)
	assert.Equal(t, "abc", string(data))

	o.remove(10)
	assert.False(t, o.has(10))
}
