// Package share exposes decoded pictures to a consumer as non-owning
// DMA-BUF handles: the frame's fds stay valid only until Recycle is
// called, mirroring the weak-reference handoff a zero-copy display or
// encode pipeline expects from a decoder it does not otherwise control
// the lifetime of.
package share

import "fmt"

// Frame is one decoded picture on loan to a consumer. It is a
// non-owning view: the backing DMA-BUF memory remains the decoded
// pool's, and Recycle must be called exactly once to return it.
type Frame struct {
	Index        int
	Width        int
	Height       int
	PixelFormat  uint32
	PlaneFDs     []int32
	BytesPerLine []uint32
	SizeImage    []uint32

	recycle func(index int) error
	done    bool
}

// Sharer hands decoded frames to a consumer and reclaims them once the
// consumer is finished, decoupling the decode loop from whatever holds
// the frame next (display, encode, file sink).
type Sharer interface {
	// Share delivers frame to the consumer. The consumer must call
	// frame.Recycle when done; Share itself must not block on that.
	Share(frame *Frame) error
}

// Recycle returns the frame's buffer to the decoded pool. Calling it more
// than once is an error, since two recyclers could race to requeue the
// same slot at the device.
func (f *Frame) Recycle() error {
	if f.done {
		return fmt.Errorf("share: frame %d already recycled", f.Index)
	}
	f.done = true
	return f.recycle(f.Index)
}

// NewFrame constructs a Frame backed by recycle, the decoded pool's
// reclaim function for this slot index.
func NewFrame(index, width, height int, pixelFormat uint32, planeFDs []int32, bytesPerLine, sizeImage []uint32, recycle func(index int) error) *Frame {
	return &Frame{
		Index:        index,
		Width:        width,
		Height:       height,
		PixelFormat:  pixelFormat,
		PlaneFDs:     planeFDs,
		BytesPerLine: bytesPerLine,
		SizeImage:    sizeImage,
		recycle:      recycle,
	}
}
