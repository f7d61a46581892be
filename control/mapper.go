// Package control maps parsed h264 parameter sets and slice headers into
// the V4L2 stateless decoder's extended-control payload structs, the
// last step before a request.Request stages them for VIDIOC_S_EXT_CTRLS.
package control

import (
	"github.com/kestrelav/stateless264/h264"
	"github.com/kestrelav/stateless264/internal/kioctl"
)

// saturate8 clamps v into the inclusive range [lo, hi] before narrowing
// to int8, guarding against a malformed bitstream driving an out-of-range
// value into a kernel control field the driver will reject or misread.
func saturate8(v int32, lo, hi int32) int8 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return int8(v)
}

// BuildSPSControl maps a parsed SPS into its V4L2 control payload.
func BuildSPSControl(sps h264.SPS) kioctl.ControlH264SPS {
	c := kioctl.ControlH264SPS{
		ProfileIDC:                     sps.ProfileIDC,
		ConstraintSetFlags:             sps.ConstraintFlags,
		LevelIDC:                       sps.LevelIDC,
		SeqParameterSetID:              uint8(sps.SeqParameterSetID),
		ChromaFormatIDC:                uint8(sps.ChromaFormatIDC),
		BitDepthLumaMinus8:             uint8(sps.BitDepthLumaMinus8),
		BitDepthChromaMinus8:           uint8(sps.BitDepthChromaMinus8),
		Log2MaxFrameNumMinus4:          uint8(sps.Log2MaxFrameNumMinus4),
		PicOrderCntType:                uint8(sps.PicOrderCntType),
		Log2MaxPicOrderCntLsbMinus4:    uint8(sps.Log2MaxPicOrderCntLsbMinus4),
		MaxNumRefFrames:                uint8(sps.MaxNumRefFrames),
		NumRefFramesInPicOrderCntCycle: uint8(sps.NumRefFramesInPicOrderCntCycle),
		OffsetForNonRefPic:             sps.OffsetForNonRefPic,
		OffsetForTopToBottomField:      sps.OffsetForTopToBottomField,
		PicWidthInMbsMinus1:            uint16(sps.PicWidthInMbsMinus1),
		PicHeightInMapUnitsMinus1:      uint16(sps.PicHeightInMapUnitsMinus1),
	}
	for i := 0; i < len(sps.OffsetForRefFrame) && i < len(c.OffsetForRefFrame); i++ {
		c.OffsetForRefFrame[i] = sps.OffsetForRefFrame[i]
	}

	if sps.SeparateColourPlaneFlag {
		c.Flags |= kioctl.H264SPSFlagSeparateColourPlane
	}
	if sps.QpprimeYZeroTransformBypassFlag {
		c.Flags |= kioctl.H264SPSFlagQpprimeYZeroTransformBypass
	}
	if sps.DeltaPicOrderAlwaysZeroFlag {
		c.Flags |= kioctl.H264SPSFlagDeltaPicOrderAlwaysZero
	}
	if sps.GapsInFrameNumValueAllowedFlag {
		c.Flags |= kioctl.H264SPSFlagGapsInFrameNumValueAllowed
	}
	if sps.FrameMbsOnlyFlag {
		c.Flags |= kioctl.H264SPSFlagFrameMbsOnly
	}
	if sps.MbAdaptiveFrameFieldFlag {
		c.Flags |= kioctl.H264SPSFlagMbAdaptiveFrameField
	}
	if sps.Direct8x8InferenceFlag {
		c.Flags |= kioctl.H264SPSFlagDirect8x8Inference
	}
	return c
}

// BuildPPSControl maps a parsed PPS into its V4L2 control payload.
// pic_init_qp_minus26, pic_init_qs_minus26, and the two chroma QP index
// offsets are saturated into the ranges the kernel struct's narrow
// signed fields can represent ([-26,25] and [-12,12] respectively),
// rather than wrapping silently on truncation.
func BuildPPSControl(pps h264.PPS) kioctl.ControlH264PPS {
	c := kioctl.ControlH264PPS{
		PicParameterSetID:              uint8(pps.PicParameterSetID),
		SeqParameterSetID:              uint8(pps.SeqParameterSetID),
		NumSliceGroupsMinus1:           uint8(pps.NumSliceGroupsMinus1),
		NumRefIdxL0DefaultActiveMinus1: uint8(pps.NumRefIdxL0DefaultActiveMinus1),
		NumRefIdxL1DefaultActiveMinus1: uint8(pps.NumRefIdxL1DefaultActiveMinus1),
		WeightedBipredIdc:              uint8(pps.WeightedBipredIdc),
		PicInitQPMinus26:               saturate8(pps.PicInitQPMinus26, -26, 25),
		PicInitQSMinus26:               saturate8(pps.PicInitQSMinus26, -26, 25),
		ChromaQPIndexOffset:            saturate8(pps.ChromaQPIndexOffset, -12, 12),
		SecondChromaQPIndexOffset:      saturate8(pps.SecondChromaQPIndexOffset, -12, 12),
	}

	if pps.EntropyCodingModeFlag {
		c.Flags |= kioctl.H264PPSFlagEntropyCodingMode
	}
	if pps.BottomFieldPicOrderInFramePresentFlag {
		c.Flags |= kioctl.H264PPSFlagBottomFieldPicOrderInFramePresent
	}
	if pps.WeightedPredFlag {
		c.Flags |= kioctl.H264PPSFlagWeightedPred
	}
	if pps.DeblockingFilterControlPresentFlag {
		c.Flags |= kioctl.H264PPSFlagDeblockingFilterControlPresent
	}
	if pps.ConstrainedIntraPredFlag {
		c.Flags |= kioctl.H264PPSFlagConstrainedIntraPred
	}
	if pps.RedundantPicCntPresentFlag {
		c.Flags |= kioctl.H264PPSFlagRedundantPicCntPresent
	}
	if pps.Transform8x8ModeFlag {
		c.Flags |= kioctl.H264PPSFlagTransform8x8Mode
	}
	if pps.PicScalingMatrixPresentFlag {
		c.Flags |= kioctl.H264PPSFlagScalingMatrixPresent
	}
	return c
}

// BuildSliceParamsControl maps a parsed slice header into its V4L2
// control payload. headerBitSize is the slice header's size in bits, the
// offset at which the driver begins CABAC/CAVLC parsing of slice data.
func BuildSliceParamsControl(sh h264.SliceHeader, headerBitSize uint32) kioctl.ControlH264SliceParams {
	c := kioctl.ControlH264SliceParams{
		HeaderBitSize:              headerBitSize,
		FirstMBInSlice:             sh.FirstMBInSlice,
		SliceType:                  uint8(sh.SliceTypeClass),
		RedundantPicCnt:            uint8(sh.RedundantPicCnt),
		CabacInitIdc:                uint8(sh.CabacInitIdc),
		SliceQPDelta:                saturate8(sh.SliceQPDelta, -128, 127),
		DisableDeblockingFilterIdc: uint8(sh.DisableDeblockingFilterIdc),
		SliceAlphaC0OffsetDiv2:      saturate8(sh.SliceAlphaC0OffsetDiv2, -6, 6),
		SliceBetaOffsetDiv2:         saturate8(sh.SliceBetaOffsetDiv2, -6, 6),
		NumRefIdxL0ActiveMinus1:     uint8(sh.NumRefIdxL0ActiveMinus1),
		NumRefIdxL1ActiveMinus1:     uint8(sh.NumRefIdxL1ActiveMinus1),
	}

	if sh.FieldPicFlag {
		c.Flags |= kioctl.H264SliceFlagFieldPic
	}
	if sh.BottomFieldFlag {
		c.Flags |= kioctl.H264SliceFlagBottomField
	}
	if sh.DirectSpatialMvPredFlag {
		c.Flags |= kioctl.H264SliceFlagDirectSpatialMvPred
	}
	return c
}

// BuildDecodeParamsControl maps per-access-unit decode parameters
// (picture order counts, DPB state from dpb.Snapshot) into the V4L2
// decode-params control payload. Top and bottom field order counts are
// both derived from pic_order_cnt_lsb, a simplification that is only
// correct for frame-coded (non-interlaced) pictures; field-coded content
// would need the per-field POC derivation this does not implement.
func BuildDecodeParamsControl(sh h264.SliceHeader, isIDR bool, dpb [kioctl.H264NumDPBEntries]kioctl.H264DPBEntry, frameNum uint16, nalRefIdc uint16) kioctl.ControlH264DecodeParams {
	poc := uint16(sh.PicOrderCntLsb)
	c := kioctl.ControlH264DecodeParams{
		DPB:                    dpb,
		NalRefIdc:              nalRefIdc,
		FrameNum:                frameNum,
		TopFieldOrderCnt:        poc,
		BottomFieldOrderCnt:     poc,
		IDRPicID:                uint16(sh.IDRPicID),
		PicOrderCntLSB:          uint16(sh.PicOrderCntLsb),
		DeltaPicOrderCntBottom:  sh.DeltaPicOrderCntBottom,
		DeltaPicOrderCnt0:       sh.DeltaPicOrderCnt0,
		DeltaPicOrderCnt1:       sh.DeltaPicOrderCnt1,
		SliceGroupChangeCycle:   sh.SliceGroupChangeCycle,
	}
	if isIDR {
		c.Flags |= kioctl.H264DecodeParamFlagIDR
	}
	if sh.FieldPicFlag {
		c.Flags |= kioctl.H264DecodeParamFlagFieldPic
	}
	if sh.BottomFieldFlag {
		c.Flags |= kioctl.H264DecodeParamFlagBottomField
	}
	switch sh.SliceTypeClass {
	case h264.SliceTypeP, h264.SliceTypeSP:
		c.Flags |= kioctl.H264DecodeParamFlagPFrame
	case h264.SliceTypeB:
		c.Flags |= kioctl.H264DecodeParamFlagBFrame
	}
	return c
}
