package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewViewAllocatesZeroedBuffer(t *testing.T) {
	v := NewView(4)
	assert.Equal(t, View{0, 0, 0, 0}, v)
}

func TestNewViewFromBytesAliasesInput(t *testing.T) {
	b := []byte("EOF")
	v := NewViewFromBytes(b)
	assert.Equal(t, View("EOF"), v)
	assert.True(t, &b[0] == &v[0], "view must share the input's backing array")
}
