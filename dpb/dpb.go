// Package dpb tracks the decoded picture buffer: the bounded set of
// reference frames a stateless decoder must report back to the device on
// every decode_params control, mirroring how the device's own reference
// list is maintained without the driver itself tracking history.
package dpb

import "github.com/kestrelav/stateless264/h264"

// Entry is one reference frame tracked by the DPB.
type Entry struct {
	FrameNum            uint32
	PicNum              uint32
	TopFieldOrderCnt     int32
	BottomFieldOrderCnt  int32
	ReferenceTS          uint64
	LongTerm             bool
	// Active is false for an entry that survived a
	// no_output_of_prior_pics_flag IDR: still present so it drains via the
	// normal FIFO eviction, but no longer reported as a usable reference.
	Active bool
}

// Manager is a FIFO-bounded decoded picture buffer. It is not an
// implementation of the full H.264 reference-picture-marking state
// machine (sliding window and MMCO long-term assignment are reduced to
// FIFO eviction and explicit unmark, per SPEC_FULL.md's stateless-POC
// scope); it tracks exactly what the device needs echoed back on the
// next access unit's decode_params control.
type Manager struct {
	maxEntries int
	entries    []Entry
	nextTS     uint64
}

// NewManager creates a Manager bounded to maxNumRefFrames entries (from
// the active SPS's max_num_ref_frames).
func NewManager(maxNumRefFrames uint32) *Manager {
	max := int(maxNumRefFrames)
	if max < 1 {
		max = 1
	}
	return &Manager{maxEntries: max}
}

// OnIDR resets the DPB for a new IDR access unit. When
// noOutputOfPriorPics is false, the reference set is cleared immediately,
// since an IDR picture references nothing before it. When true, the prior
// entries are instead marked inactive rather than dropped: they stop
// being reported as usable references in the next Snapshot, but age out
// through the normal FIFO eviction in Push rather than disappearing on
// this call, honoring the flag's distinction from an unconditional clear.
func (m *Manager) OnIDR(noOutputOfPriorPics bool) {
	if !noOutputOfPriorPics {
		m.entries = m.entries[:0]
		return
	}
	for i := range m.entries {
		m.entries[i].Active = false
	}
}

// Push adds a newly decoded reference picture to the DPB, evicting the
// oldest entry first (sliding-window order) once the buffer is full.
func (m *Manager) Push(sh h264.SliceHeader, isReference bool) {
	if !isReference {
		return
	}
	m.nextTS++
	e := Entry{
		FrameNum:            sh.FrameNum,
		PicNum:              sh.FrameNum,
		TopFieldOrderCnt:    int32(sh.PicOrderCntLsb),
		BottomFieldOrderCnt: sh.DeltaPicOrderCntBottom,
		ReferenceTS:         m.nextTS,
		Active:              true,
	}
	if len(m.entries) >= m.maxEntries {
		m.entries = append(m.entries[:0], m.entries[1:]...)
	}
	m.entries = append(m.entries, e)
}

// Snapshot returns the current reference set, oldest first.
func (m *Manager) Snapshot() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len reports the number of reference pictures currently held.
func (m *Manager) Len() int { return len(m.entries) }
