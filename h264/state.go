package h264

import "fmt"

// StreamState holds the parameter-set tables accumulated across a single
// coded stream. It is written only by the parser goroutine as SPS/PPS NALs
// are encountered, and read by the submit path (same goroutine) when
// mapping slice headers into kernel controls — no locking required, per
// the single-writer contract.
type StreamState struct {
	sps map[uint32]SPS
	pps map[uint32]PPS
}

// NewStreamState creates an empty StreamState.
func NewStreamState() *StreamState {
	return &StreamState{
		sps: make(map[uint32]SPS),
		pps: make(map[uint32]PPS),
	}
}

// PutSPS stores sps under its own seq_parameter_set_id.
func (st *StreamState) PutSPS(sps SPS) {
	st.sps[sps.SeqParameterSetID] = sps
}

// PutPPS stores pps under its own pic_parameter_set_id.
func (st *StreamState) PutPPS(pps PPS) {
	st.pps[pps.PicParameterSetID] = pps
}

// GetSPS looks up an SPS by id.
func (st *StreamState) GetSPS(id uint32) (SPS, bool) {
	s, ok := st.sps[id]
	return s, ok
}

// GetPPS looks up a PPS by id.
func (st *StreamState) GetPPS(id uint32) (PPS, bool) {
	p, ok := st.pps[id]
	return p, ok
}

var errUnknownPPS = fmt.Errorf("h264: referenced pic_parameter_set_id not seen")
var errUnknownSPS = fmt.Errorf("h264: referenced seq_parameter_set_id not seen")
