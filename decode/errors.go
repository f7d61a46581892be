package decode

import "fmt"

// DecoderStreamException is returned from Decoder.Run when a device
// ioctl fails partway through a stream (a submitted access unit the
// kernel rejected, or a broken pipe on the device fd).
type DecoderStreamException struct {
	Code          string
	FramesDecoded int
	Cause         error
}

func (e *DecoderStreamException) Error() string {
	return fmt.Sprintf("decode: stream exception %s after %d frame(s): %v", e.Code, e.FramesDecoded, e.Cause)
}

func (e *DecoderStreamException) Unwrap() error { return e.Cause }

// ExceptionDeviceFailure is the only exception code currently raised: a
// kernel ioctl failure the decode loop could not recover from. Parse
// failures on individual NAL units are logged and skipped rather than
// treated as stream-ending.
const ExceptionDeviceFailure = "device_failure"
