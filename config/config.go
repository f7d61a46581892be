// Package config holds the tunable options for a decode session. The core
// is a library, not a CLI, so Options is constructed and passed by the
// embedder rather than parsed from flags.
package config

import (
	"log/slog"
	"time"

	"github.com/kestrelav/stateless264/internal/kioctl"
)

// Options configures buffer counts, pixel format preferences, and timing
// knobs for a Decoder. Construct with DefaultOptions and override only
// the fields that matter to the caller.
type Options struct {
	// OutputBufferCount is the number of coded-input buffer slots.
	OutputBufferCount int
	// CaptureBufferCount is the number of decoded-output slots.
	CaptureBufferCount int
	// RequestPoolSize is the number of kernel request handles.
	RequestPoolSize int

	// PreferredPixelFormat is the FOURCC requested for decoded output,
	// passed to device.Device.SetDecodedFormat. Must be a FOURCC the
	// target driver's CAPTURE queue actually advertises; DefaultOptions
	// picks kioctl.PixFmtNV12M, the format every stateless H.264 decoder
	// in the wild is expected to offer, but there is no zero-value
	// fallback inside the device package itself — a caller who zeroes
	// this field out will negotiate an invalid format.
	PreferredPixelFormat uint32

	// UseDMAPrimeBuffers selects a DMA-BUF-backed decoded pool requiring
	// an external producer, instead of a self-mapped one.
	UseDMAPrimeBuffers bool

	// InitialWidth/InitialHeight hint format negotiation; the device
	// returns the actual negotiated dimensions.
	InitialWidth  int
	InitialHeight int

	// DrainTimeout bounds how long the decode loop waits for forward
	// progress on the decoded-frame counter after end of stream before
	// giving up and returning. Left unresolved by spec.md's open
	// questions; a configurable knob serves both "a few stragglers"
	// (high-resolution, slow) and "nothing left" (short clips) streams
	// better than either the implementer-fixed ~100ms the distilled spec
	// suggests, or an unbounded wait.
	DrainTimeout time.Duration

	// ReadChunkSize is the size of each read from the input source into
	// the segmenter.
	ReadChunkSize int

	// Logger receives component-tagged log output. A nil Logger falls
	// back to slog.Default() at each constructor, the same convention
	// every long-lived type in this module follows.
	Logger *slog.Logger
}

// DefaultOptions returns the recognized defaults from spec.md section 6.
func DefaultOptions() Options {
	return Options{
		OutputBufferCount:    16,
		CaptureBufferCount:   16,
		RequestPoolSize:      32,
		PreferredPixelFormat: kioctl.PixFmtNV12M,
		UseDMAPrimeBuffers:   false,
		InitialWidth:         1920,
		InitialHeight:        1080,
		DrainTimeout:         100 * time.Millisecond,
		ReadChunkSize:        16 * 1024,
	}
}
