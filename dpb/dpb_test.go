package dpb

import (
	"testing"

	"github.com/kestrelav/stateless264/h264"
)

func TestManagerEvictsOldestOnOverflow(t *testing.T) {
	t.Parallel()
	m := NewManager(3)
	for i := uint32(0); i <= 5; i++ {
		m.Push(h264.SliceHeader{FrameNum: i}, true)
	}

	snap := m.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(snapshot) = %d, want 3", len(snap))
	}
	want := []uint32{3, 4, 5}
	for i, e := range snap {
		if e.FrameNum != want[i] {
			t.Errorf("snap[%d].FrameNum = %d, want %d", i, e.FrameNum, want[i])
		}
	}
}

func TestManagerSkipsNonReferencePictures(t *testing.T) {
	t.Parallel()
	m := NewManager(3)
	m.Push(h264.SliceHeader{FrameNum: 0}, true)
	m.Push(h264.SliceHeader{FrameNum: 1}, false)
	m.Push(h264.SliceHeader{FrameNum: 2}, true)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestOnIDRClearsReferenceSet(t *testing.T) {
	t.Parallel()
	m := NewManager(3)
	m.Push(h264.SliceHeader{FrameNum: 0}, true)
	m.Push(h264.SliceHeader{FrameNum: 1}, true)

	m.OnIDR(false)

	if m.Len() != 0 {
		t.Fatalf("Len() after OnIDR = %d, want 0", m.Len())
	}
}

func TestOnIDRWithNoOutputOfPriorPicsMarksInactiveInsteadOfClearing(t *testing.T) {
	t.Parallel()
	m := NewManager(3)
	m.Push(h264.SliceHeader{FrameNum: 0}, true)
	m.Push(h264.SliceHeader{FrameNum: 1}, true)

	m.OnIDR(true)

	if m.Len() != 2 {
		t.Fatalf("Len() after OnIDR(true) = %d, want 2 (entries retained, not cleared)", m.Len())
	}
	for _, e := range m.Snapshot() {
		if e.Active {
			t.Errorf("entry for frame %d still Active after OnIDR(true)", e.FrameNum)
		}
	}

	m.Push(h264.SliceHeader{FrameNum: 2}, true)
	if !m.Snapshot()[len(m.Snapshot())-1].Active {
		t.Error("newly pushed entry after OnIDR(true) should be Active")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	m := NewManager(2)
	m.Push(h264.SliceHeader{FrameNum: 0}, true)

	snap := m.Snapshot()
	snap[0].FrameNum = 99

	if m.Snapshot()[0].FrameNum != 0 {
		t.Error("mutating a snapshot leaked into the manager's internal state")
	}
}
