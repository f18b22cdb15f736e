// Package buffer holds the payload bytes of in-flight segments
package buffer

// View is a slice of a payload buffer, with convenience methods. A segment's
// payload is stored as a View from the moment it is cut from the file until
// it is cumulatively acknowledged; retransmission re-references the same
// View rather than copying it
type View []byte

// NewView allocates a new buffer and returns an initialized view that covers
// the whole buffer
func NewView(size int) View {
	return make(View, size)
}

// NewViewFromBytes returns a View aliasing b. The caller must not mutate b
// afterwards
func NewViewFromBytes(b []byte) View {
	return View(b)
}
