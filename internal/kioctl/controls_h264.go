package kioctl

// H.264 stateless decoder control payloads, field-for-field from
// v4l2-controls.h's v4l2_ctrl_h264_*/v4l2_h264_* structs (ported from
// go4vl's cgo-derived ControlH264* definitions, dropped straight since
// these are the kernel ABI, not a design choice of ours to vary).

const (
	H264NumDPBEntries = 16
	H264RefListLength = 32
)

type ControlH264SPS struct {
	ProfileIDC                     uint8
	ConstraintSetFlags             uint8
	LevelIDC                       uint8
	SeqParameterSetID              uint8
	ChromaFormatIDC                uint8
	BitDepthLumaMinus8             uint8
	BitDepthChromaMinus8           uint8
	Log2MaxFrameNumMinus4          uint8
	PicOrderCntType                uint8
	Log2MaxPicOrderCntLsbMinus4    uint8
	MaxNumRefFrames                uint8
	NumRefFramesInPicOrderCntCycle uint8
	OffsetForRefFrame              [255]int32
	OffsetForNonRefPic             int32
	OffsetForTopToBottomField      int32
	PicWidthInMbsMinus1            uint16
	PicHeightInMapUnitsMinus1      uint16
	Flags                          uint32
}

// SPS flag bits (v4l2_ctrl_h264_sps.flags).
const (
	H264SPSFlagSeparateColourPlane          = 1 << 0
	H264SPSFlagQpprimeYZeroTransformBypass  = 1 << 1
	H264SPSFlagDeltaPicOrderAlwaysZero      = 1 << 2
	H264SPSFlagGapsInFrameNumValueAllowed   = 1 << 3
	H264SPSFlagFrameMbsOnly                 = 1 << 4
	H264SPSFlagMbAdaptiveFrameField         = 1 << 5
	H264SPSFlagDirect8x8Inference           = 1 << 6
)

type ControlH264PPS struct {
	PicParameterSetID                uint8
	SeqParameterSetID                uint8
	NumSliceGroupsMinus1             uint8
	NumRefIdxL0DefaultActiveMinus1   uint8
	NumRefIdxL1DefaultActiveMinus1   uint8
	WeightedBipredIdc                uint8
	PicInitQPMinus26                 int8
	PicInitQSMinus26                 int8
	ChromaQPIndexOffset               int8
	SecondChromaQPIndexOffset         int8
	Flags                             uint16
}

// PPS flag bits (v4l2_ctrl_h264_pps.flags).
const (
	H264PPSFlagEntropyCodingMode                     = 1 << 0
	H264PPSFlagBottomFieldPicOrderInFramePresent = 1 << 1
	H264PPSFlagWeightedPred                          = 1 << 2
	H264PPSFlagDeblockingFilterControlPresent = 1 << 3
	H264PPSFlagConstrainedIntraPred                   = 1 << 4
	H264PPSFlagRedundantPicCntPresent                  = 1 << 5
	H264PPSFlagTransform8x8Mode                         = 1 << 6
	H264PPSFlagScalingMatrixPresent                      = 1 << 7
)

type ControlH264ScalingMatrix struct {
	ScalingList4x4 [6][16]uint8
	ScalingList8x8 [6][64]uint8
}

type H264WeightFactors struct {
	LumaWeight   [32]int16
	LumaOffset   [32]int16
	ChromaWeight [32][2]int16
	ChromaOffset [32][2]int16
}

type ControlH264PredictionWeights struct {
	LumaLog2WeightDenom   uint16
	ChromaLog2WeightDenom uint16
	WeightFactors         [2]H264WeightFactors
}

type H264Reference struct {
	Fields uint8
	Index  uint8
}

type ControlH264SliceParams struct {
	HeaderBitSize              uint32
	FirstMBInSlice             uint32
	SliceType                  uint8
	ColorPlaneID               uint8
	RedundantPicCnt            uint8
	CabacInitIdc               uint8
	SliceQPDelta               int8
	SliceQSDelta               int8
	DisableDeblockingFilterIdc uint8
	SliceAlphaC0OffsetDiv2     int8
	SliceBetaOffsetDiv2        int8
	NumRefIdxL0ActiveMinus1    uint8
	NumRefIdxL1ActiveMinus1    uint8

	_ uint8

	RefPicList0 [H264RefListLength]H264Reference
	RefPicList1 [H264RefListLength]H264Reference

	Flags uint32
}

// Slice-params flag bits.
const (
	H264SliceFlagFieldPic               = 1 << 0
	H264SliceFlagBottomField            = 1 << 1
	H264SliceFlagDirectSpatialMvPred    = 1 << 2
	H264SliceFlagSPForSwitch            = 1 << 3
)

type H264DPBEntry struct {
	ReferenceTS         uint64
	PicNum              uint32
	FrameNum            uint16
	Fields              uint8
	_                   [8]uint8
	TopFieldOrderCnt    int32
	BottomFieldOrderCnt int32
	Flags               uint32
}

// DPB-entry flag bits.
const (
	H264DPBEntryFlagValid     = 1 << 0
	H264DPBEntryFlagActive    = 1 << 1
	H264DPBEntryFlagLongTerm  = 1 << 2
	H264DPBEntryFlagField     = 1 << 3
)

type ControlH264DecodeParams struct {
	DPB                     [H264NumDPBEntries]H264DPBEntry
	NalRefIdc               uint16
	FrameNum                uint16
	TopFieldOrderCnt        int32
	BottomFieldOrderCnt     int32
	IDRPicID                uint16
	PicOrderCntLSB          uint16
	DeltaPicOrderCntBottom  int32
	DeltaPicOrderCnt0       int32
	DeltaPicOrderCnt1       int32
	DecRefPicMarkingBitSize uint32
	PicOrderCntBitSize      uint32
	SliceGroupChangeCycle   uint32
	_                       uint32
	Flags                   uint32
}

// Decode-params flag bits.
const (
	H264DecodeParamFlagIDR     = 1 << 0
	H264DecodeParamFlagFieldPic = 1 << 1
	H264DecodeParamFlagBottomField = 1 << 2
	H264DecodeParamFlagPFrame = 1 << 3
	H264DecodeParamFlagBFrame = 1 << 4
)
