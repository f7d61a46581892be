package control

import (
	"testing"

	"github.com/kestrelav/stateless264/h264"
	"github.com/kestrelav/stateless264/internal/kioctl"
)

func TestBuildSPSControlMapsScalarFields(t *testing.T) {
	t.Parallel()
	sps := h264.SPS{
		ProfileIDC:            66,
		LevelIDC:              22,
		ConstraintFlags:       0xC0,
		SeqParameterSetID:     0,
		ChromaFormatIDC:       1,
		Log2MaxFrameNumMinus4: 1,
		PicOrderCntType:       2,
		MaxNumRefFrames:       3,
		FrameMbsOnlyFlag:      true,
		Direct8x8InferenceFlag: true,
	}
	c := BuildSPSControl(sps)

	if c.ProfileIDC != 66 || c.LevelIDC != 22 || c.ConstraintSetFlags != 0xC0 {
		t.Fatalf("got %+v", c)
	}
	if c.Log2MaxFrameNumMinus4 != 1 || c.PicOrderCntType != 2 || c.MaxNumRefFrames != 3 {
		t.Fatalf("got %+v", c)
	}
	if c.Flags&kioctl.H264SPSFlagFrameMbsOnly == 0 {
		t.Error("FrameMbsOnly flag not set")
	}
	if c.Flags&kioctl.H264SPSFlagDirect8x8Inference == 0 {
		t.Error("Direct8x8Inference flag not set")
	}
	if c.Flags&kioctl.H264SPSFlagMbAdaptiveFrameField != 0 {
		t.Error("MbAdaptiveFrameField flag unexpectedly set")
	}
}

func TestBuildSPSControlCopiesOffsetForRefFrame(t *testing.T) {
	t.Parallel()
	sps := h264.SPS{PicOrderCntType: 1, OffsetForRefFrame: []int32{4, -4, 8}}
	c := BuildSPSControl(sps)
	for i, want := range sps.OffsetForRefFrame {
		if c.OffsetForRefFrame[i] != want {
			t.Errorf("OffsetForRefFrame[%d] = %d, want %d", i, c.OffsetForRefFrame[i], want)
		}
	}
}

func TestBuildPPSControlSaturatesQPFields(t *testing.T) {
	t.Parallel()
	pps := h264.PPS{
		PicInitQPMinus26:          -40,
		PicInitQSMinus26:          30,
		ChromaQPIndexOffset:       -20,
		SecondChromaQPIndexOffset: 20,
	}
	c := BuildPPSControl(pps)
	if c.PicInitQPMinus26 != -26 || c.PicInitQSMinus26 != 25 {
		t.Fatalf("got %+v", c)
	}
	if c.ChromaQPIndexOffset != -12 || c.SecondChromaQPIndexOffset != 12 {
		t.Fatalf("got %+v", c)
	}
}

func TestBuildPPSControlFlags(t *testing.T) {
	t.Parallel()
	pps := h264.PPS{
		EntropyCodingModeFlag:      true,
		Transform8x8ModeFlag:       true,
		PicScalingMatrixPresentFlag: false,
	}
	c := BuildPPSControl(pps)
	if c.Flags&kioctl.H264PPSFlagEntropyCodingMode == 0 {
		t.Error("EntropyCodingMode flag not set")
	}
	if c.Flags&kioctl.H264PPSFlagTransform8x8Mode == 0 {
		t.Error("Transform8x8Mode flag not set")
	}
	if c.Flags&kioctl.H264PPSFlagScalingMatrixPresent != 0 {
		t.Error("ScalingMatrixPresent flag unexpectedly set")
	}
}

func TestBuildSliceParamsControlMapsSliceTypeClass(t *testing.T) {
	t.Parallel()
	sh := h264.SliceHeader{SliceTypeClass: h264.SliceTypeI, FirstMBInSlice: 0}
	c := BuildSliceParamsControl(sh, 64)
	if c.SliceType != h264.SliceTypeI {
		t.Errorf("SliceType = %d, want %d", c.SliceType, h264.SliceTypeI)
	}
	if c.HeaderBitSize != 64 {
		t.Errorf("HeaderBitSize = %d, want 64", c.HeaderBitSize)
	}
}

func TestBuildDecodeParamsControlSetsIDRFlag(t *testing.T) {
	t.Parallel()
	sh := h264.SliceHeader{SliceTypeClass: h264.SliceTypeI}
	var dpb [kioctl.H264NumDPBEntries]kioctl.H264DPBEntry
	c := BuildDecodeParamsControl(sh, true, dpb, 0, 1)
	if c.Flags&kioctl.H264DecodeParamFlagIDR == 0 {
		t.Error("IDR flag not set")
	}
}

func TestBuildDecodeParamsControlSetsPFrameFlagForPSlice(t *testing.T) {
	t.Parallel()
	sh := h264.SliceHeader{SliceTypeClass: h264.SliceTypeP}
	var dpb [kioctl.H264NumDPBEntries]kioctl.H264DPBEntry
	c := BuildDecodeParamsControl(sh, false, dpb, 3, 2)
	if c.Flags&kioctl.H264DecodeParamFlagPFrame == 0 {
		t.Error("PFrame flag not set")
	}
	if c.Flags&kioctl.H264DecodeParamFlagIDR != 0 {
		t.Error("IDR flag unexpectedly set")
	}
}
