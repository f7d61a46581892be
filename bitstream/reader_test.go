package bitstream

import (
	"errors"
	"testing"
)

func TestReadBits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
		n    int
		want uint32
	}{
		{"single byte full", []byte{0xAC}, 8, 0xAC},
		{"nibble", []byte{0xF0}, 4, 0xF},
		{"cross byte boundary", []byte{0x01, 0x80}, 9, 0x3},
		{"zero bits", []byte{0xFF}, 0, 0},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := NewReader(c.data)
			got, err := r.ReadBits(c.n)
			if err != nil {
				t.Fatalf("ReadBits: %v", err)
			}
			if got != c.want {
				t.Errorf("got %#x, want %#x", got, c.want)
			}
		})
	}
}

func TestReadBitsPastEnd(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xFF})
	if _, err := r.ReadBits(16); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got err %v, want ErrMalformed", err)
	}
}

func TestReadUE(t *testing.T) {
	t.Parallel()

	// ue(v) table from the H.264 spec: bit string -> codeNum.
	cases := []struct {
		bits []byte
		n    int
		want uint32
	}{
		{[]byte{0x80}, 1, 0},  // "1"
		{[]byte{0x40}, 3, 1},  // "010"
		{[]byte{0x60}, 3, 2},  // "011"
		{[]byte{0x20}, 5, 3},  // "00100"
		{[]byte{0x28}, 5, 4},  // "00101"
		{[]byte{0x30}, 5, 5},  // "00110"
		{[]byte{0x38}, 5, 6},  // "00111"
	}

	for _, c := range cases {
		r := NewReader(c.bits)
		got, err := r.ReadUE()
		if err != nil {
			t.Fatalf("ReadUE: %v", err)
		}
		if got != c.want {
			t.Errorf("bits %08b: got %d, want %d", c.bits[0], got, c.want)
		}
	}
}

func TestReadUETooLong(t *testing.T) {
	t.Parallel()
	data := make([]byte, 8) // 64 zero bits, no terminating 1
	r := NewReader(data)
	if _, err := r.ReadUE(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("got err %v, want ErrMalformed", err)
	}
}

func TestReadSE(t *testing.T) {
	t.Parallel()

	// se(v) mapping: codeNum 0->0, 1->1, 2->-1, 3->2, 4->-2, 5->3, 6->-3.
	cases := []struct {
		bits []byte
		want int32
	}{
		{[]byte{0x80}, 0},
		{[]byte{0x40}, 1},
		{[]byte{0x60}, -1},
		{[]byte{0x20}, 2},
		{[]byte{0x28}, -2},
	}

	for _, c := range cases {
		r := NewReader(c.bits)
		got, err := r.ReadSE()
		if err != nil {
			t.Fatalf("ReadSE: %v", err)
		}
		if got != c.want {
			t.Errorf("bits %08b: got %d, want %d", c.bits[0], got, c.want)
		}
	}
}

func TestEmulationPreventionRemoved(t *testing.T) {
	t.Parallel()
	// 0x00 0x00 0x03 0x01 -> logical bytes 0x00 0x00 0x01 (the 0x03 elided).
	r := NewReader([]byte{0x00, 0x00, 0x03, 0x01})
	got, err := r.ReadBits(24)
	if err != nil {
		t.Fatalf("ReadBits: %v", err)
	}
	want := uint32(0x000001)
	if got != want {
		t.Errorf("got %#06x, want %#06x", got, want)
	}
}

func TestByteAlign(t *testing.T) {
	t.Parallel()
	r := NewReader([]byte{0xFF, 0x00})
	if _, err := r.ReadBits(3); err != nil {
		t.Fatal(err)
	}
	r.ByteAlign()
	got, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x00 {
		t.Errorf("got %#x, want 0x00", got)
	}
}

func TestMoreRBSPData(t *testing.T) {
	t.Parallel()
	// rbsp_trailing_bits: a single stop bit "1" then zero padding.
	r := NewReader([]byte{0xAB, 0x80})
	if !r.MoreRBSPData() {
		t.Fatal("expected more RBSP data before trailing bits")
	}
	if _, err := r.ReadBits(8); err != nil {
		t.Fatal(err)
	}
	if r.MoreRBSPData() {
		t.Fatal("expected no more RBSP data at trailing bits")
	}
}
