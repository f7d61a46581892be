package annexb

import (
	"bytes"
	"testing"
)

func collect(t *testing.T, s *Segmenter) [][]byte {
	t.Helper()
	var out [][]byte
	for nal := range s.Units() {
		out = append(out, nal.Data)
	}
	return out
}

func TestEmptyInputYieldsNoUnits(t *testing.T) {
	t.Parallel()
	s := NewSegmenter(false)
	s.Complete()
	got := collect(t, s)
	if len(got) != 0 {
		t.Fatalf("got %d units, want 0", len(got))
	}
}

func TestNoStartCodeYieldsOneUnitAtComplete(t *testing.T) {
	t.Parallel()
	s := NewSegmenter(false)
	payload := []byte{0x67, 0x42, 0x00, 0x1e}
	s.Append(payload)
	s.Complete()
	got := collect(t, s)
	if len(got) != 1 {
		t.Fatalf("got %d units, want 1", len(got))
	}
	if !bytes.Equal(got[0], payload) {
		t.Errorf("got %x, want %x", got[0], payload)
	}
}

func TestInteriorStartCodesYieldKPlusOneUnits(t *testing.T) {
	t.Parallel()
	stream := []byte{
		0x00, 0x00, 0x01, 0x67, 0xAA,
		0x00, 0x00, 0x01, 0x68, 0xBB,
		0x00, 0x00, 0x01, 0x65, 0xCC, 0xDD,
	}
	s := NewSegmenter(false)
	s.Append(stream)
	s.Complete()
	got := collect(t, s)
	want := [][]byte{{0x67, 0xAA}, {0x68, 0xBB}, {0x65, 0xCC, 0xDD}}
	if len(got) != len(want) {
		t.Fatalf("got %d units, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("unit %d: got %x, want %x", i, got[i], want[i])
		}
	}
}

func TestLeadingJunkBeforeFirstStartCodeIsDiscarded(t *testing.T) {
	t.Parallel()
	stream := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00, 0x01, 0x67, 0xAA}
	s := NewSegmenter(false)
	s.Append(stream)
	s.Complete()
	got := collect(t, s)
	if len(got) != 1 {
		t.Fatalf("got %d units, want 1", len(got))
	}
	want := []byte{0x67, 0xAA}
	if !bytes.Equal(got[0], want) {
		t.Errorf("got %x, want %x", got[0], want)
	}
}

func TestStartCodeSplitAcrossAppendCalls(t *testing.T) {
	t.Parallel()
	s := NewSegmenter(false)
	s.Append([]byte{0x00, 0x00, 0x01, 0x67, 0xAA})
	s.Append([]byte{0x00})
	s.Append([]byte{0x00})
	s.Append([]byte{0x01, 0x68, 0xBB})
	s.Complete()
	got := collect(t, s)
	want := [][]byte{{0x67, 0xAA}, {0x68, 0xBB}}
	if len(got) != len(want) {
		t.Fatalf("got %d units, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("unit %d: got %x, want %x", i, got[i], want[i])
		}
	}
}

func TestFourByteStartCodeWidthPreservedWithStartCode(t *testing.T) {
	t.Parallel()
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA,
		0x00, 0x00, 0x01, 0x68, 0xBB,
	}
	s := NewSegmenter(true)
	s.Append(stream)
	s.Complete()
	got := collect(t, s)
	want := [][]byte{
		{0x00, 0x00, 0x00, 0x01, 0x67, 0xAA},
		{0x00, 0x00, 0x01, 0x68, 0xBB},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d units, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("unit %d: got %x, want %x", i, got[i], want[i])
		}
	}
}

func TestStartCodeLenReportedPerUnit(t *testing.T) {
	t.Parallel()
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA,
		0x00, 0x00, 0x01, 0x68, 0xBB,
	}
	s := NewSegmenter(true)
	s.Append(stream)
	s.Complete()

	var units []NAL
	for nal := range s.Units() {
		units = append(units, nal)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].StartCodeLen != 4 {
		t.Errorf("unit 0 StartCodeLen = %d, want 4", units[0].StartCodeLen)
	}
	if units[1].StartCodeLen != 3 {
		t.Errorf("unit 1 StartCodeLen = %d, want 3", units[1].StartCodeLen)
	}
	if got := units[0].Data[units[0].StartCodeLen]; got != 0x67 {
		t.Errorf("unit 0 header byte at StartCodeLen = %#x, want 0x67", got)
	}

	sWithout := NewSegmenter(false)
	sWithout.Append(stream)
	sWithout.Complete()
	for nal := range sWithout.Units() {
		if nal.StartCodeLen != 0 {
			t.Errorf("StartCodeLen = %d without start codes, want 0", nal.StartCodeLen)
		}
	}
}

func TestUnitCountMatchesAcrossOutputModes(t *testing.T) {
	t.Parallel()
	stream := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA,
		0x00, 0x00, 0x01, 0x68, 0xBB,
		0x00, 0x00, 0x01, 0x65, 0xCC,
	}

	sWith := NewSegmenter(true)
	sWith.Append(stream)
	sWith.Complete()
	withUnits := collect(t, sWith)

	sWithout := NewSegmenter(false)
	sWithout.Append(stream)
	sWithout.Complete()
	withoutUnits := collect(t, sWithout)

	if len(withUnits) != len(withoutUnits) {
		t.Fatalf("unit count differs between modes: %d vs %d", len(withUnits), len(withoutUnits))
	}
}

func TestTrailingStartCodeWithNoPayloadYieldsNoTrailingUnit(t *testing.T) {
	t.Parallel()
	stream := []byte{0x00, 0x00, 0x01, 0x67, 0xAA, 0x00, 0x00, 0x01}
	s := NewSegmenter(false)
	s.Append(stream)
	s.Complete()
	got := collect(t, s)
	if len(got) != 1 {
		t.Fatalf("got %d units, want 1", len(got))
	}
	want := []byte{0x67, 0xAA}
	if !bytes.Equal(got[0], want) {
		t.Errorf("got %x, want %x", got[0], want)
	}
}
