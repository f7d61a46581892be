// Package annexb segments a fragmented H.264 Annex-B byte stream into NAL
// units. It is built for incremental delivery: one goroutine calls Append
// as bytes arrive and Complete when the stream ends; a second goroutine
// ranges over Units. Internally it behaves like internal/demux/mpegts.go's
// channel-based producer: a buffered channel decouples production from
// consumption, and closing the channel signals end of stream.
package annexb

import "bytes"

// unitChanSize bounds how many NAL units may be buffered between producer
// and consumer before Append blocks. Mirrors media.VideoBufferSize's role
// of decoupling a bursty producer from a slower consumer.
const unitChanSize = 64

var startCode3 = []byte{0x00, 0x00, 0x01}

// NAL is one segmented NAL unit. Data includes the start code when the
// Segmenter was constructed with withStartCode true, and excludes it otherwise.
// StartCodeLen is the width (3 or 4) of that prefix, or 0 when Data
// excludes it, letting a caller locate the NAL header byte without
// re-scanning Data for the start code it already found.
type NAL struct {
	Data         []byte
	StartCodeLen int
}

// Segmenter incrementally splits an Annex-B byte stream on 3- or 4-byte
// start codes (0x000001 / 0x00000001). Zero bytes of input yield zero NAL
// units; a stream with no start code yields exactly one NAL unit, the
// whole input, once Complete is called.
type Segmenter struct {
	withStartCode bool
	units         chan NAL

	buf       []byte // bytes following the last recognized start code (or leading junk, if none yet)
	haveOpen  bool   // whether a start code has opened the NAL currently accumulating in buf
	openSCLen int    // width (3 or 4) of the start code that opened the current NAL
}

// NewSegmenter creates a Segmenter. When withStartCode is true, emitted
// NAL units include their original 3- or 4-byte start code; otherwise only
// the payload is emitted. Both modes emit the same count of NAL units.
func NewSegmenter(withStartCode bool) *Segmenter {
	return &Segmenter{
		withStartCode: withStartCode,
		units:         make(chan NAL, unitChanSize),
	}
}

// Units returns the channel on which segmented NAL units are delivered.
// The channel is closed after Complete has flushed the trailing unit.
func (s *Segmenter) Units() <-chan NAL {
	return s.units
}

// Append delivers the next chunk of stream bytes. It may block if the
// internal unit channel is full and the consumer has not kept up.
func (s *Segmenter) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.buf = append(s.buf, chunk...)
	s.drain()
}

// Complete signals end of stream, flushing any trailing NAL unit and
// closing the Units channel. Call exactly once, after the final Append.
func (s *Segmenter) Complete() {
	s.drain()
	if len(s.buf) > 0 {
		s.emit(s.buf, s.openSCLen)
	}
	close(s.units)
}

// drain repeatedly looks for the next start code in buf, emitting the NAL
// unit that precedes each one found (if any NAL is currently open) and
// discarding any leading bytes that appear before the first start code
// ever seen, per Annex-B's requirement that every NAL be start-code
// delimited.
func (s *Segmenter) drain() {
	for {
		idx := bytes.Index(s.buf, startCode3)
		if idx < 0 {
			return
		}

		scStart, scLen := idx, 3
		if idx > 0 && s.buf[idx-1] == 0x00 {
			scStart, scLen = idx-1, 4
		}

		if s.haveOpen {
			s.emit(s.buf[:scStart], s.openSCLen)
		}
		s.buf = s.buf[scStart+scLen:]
		s.haveOpen = true
		s.openSCLen = scLen
	}
}

func (s *Segmenter) emit(body []byte, scLen int) {
	if len(body) == 0 {
		return
	}
	data := make([]byte, 0, len(body)+4)
	prefixLen := 0
	if s.withStartCode {
		switch scLen {
		case 3:
			data = append(data, 0x00, 0x00, 0x01)
			prefixLen = 3
		case 4:
			data = append(data, 0x00, 0x00, 0x00, 0x01)
			prefixLen = 4
		}
	}
	data = append(data, body...)
	s.units <- NAL{Data: data, StartCodeLen: prefixLen}
}
