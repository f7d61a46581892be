package kioctl

import "testing"

func TestIoctlNumbersAreDistinct(t *testing.T) {
	t.Parallel()
	nums := []uintptr{
		VidiocQuerycap, VidiocEnumFmt, VidiocGFmt, VidiocSFmt, VidiocReqbufs,
		VidiocQuerybuf, VidiocQbuf, VidiocDqbuf, VidiocStreamon, VidiocStreamoff,
		VidiocSCtrl, VidiocGExtCtrls, VidiocSExtCtrls, VidiocTryExtCtrls, VidiocQueryExtCtrl,
		MediaIocRequestAlloc, MediaRequestIocQueue, MediaRequestIocReinit,
	}
	seen := make(map[uintptr]bool, len(nums))
	for _, n := range nums {
		if seen[n] {
			t.Fatalf("duplicate ioctl number %#x", n)
		}
		seen[n] = true
	}
}

func TestControlIDsAreSequentialFromBase(t *testing.T) {
	t.Parallel()
	want := []uint32{
		CtrlH264DecodeMode, CtrlH264StartCode, CtrlH264SPS, CtrlH264PPS,
		CtrlH264ScalingMatrix, CtrlH264PredWeights, CtrlH264SliceParams, CtrlH264DecodeParams,
	}
	for i := 1; i < len(want); i++ {
		if want[i] != want[i-1]+1 {
			t.Errorf("control id %d not sequential after %d", want[i], want[i-1])
		}
	}
}

func TestFourCCEncoding(t *testing.T) {
	t.Parallel()
	got := fourcc('N', 'V', '1', '2')
	want := uint32('N') | uint32('V')<<8 | uint32('1')<<16 | uint32('2')<<24
	if got != want {
		t.Errorf("got %#x, want %#x", got, want)
	}
}
