// Package h264 parses H.264 Annex-E parameter sets (SPS, PPS) and slice
// headers into field records suitable for mapping into V4L2 stateless
// decoder control structures.
package h264

// NAL unit type constants, ITU-T H.264 Table 7-1.
const (
	NALTypeSliceNonIDR = 1
	NALTypeIDR         = 5
	NALTypeSEI         = 6
	NALTypeSPS         = 7
	NALTypePPS         = 8
	NALTypeAUD         = 9
)

// Slice type classes, derived from slice_type % 5.
const (
	SliceTypeP  = 0
	SliceTypeB  = 1
	SliceTypeI  = 2
	SliceTypeSP = 3
	SliceTypeSI = 4
)

// VUI holds the Video Usability Information fields consumed by the
// decoder's downstream consumers (timing, colour description).
type VUI struct {
	AspectRatioInfoPresentFlag bool
	AspectRatioIdc             uint8
	SarWidth                   uint32
	SarHeight                  uint32

	OverscanInfoPresentFlag  bool
	OverscanAppropriateFlag  bool

	VideoSignalTypePresentFlag  bool
	VideoFormat                 uint8
	VideoFullRangeFlag           bool
	ColourDescriptionPresentFlag bool
	ColourPrimaries              uint8
	TransferCharacteristics      uint8
	MatrixCoefficients           uint8

	ChromaLocInfoPresentFlag       bool
	ChromaSampleLocTypeTopField    uint32
	ChromaSampleLocTypeBottomField uint32

	TimingInfoPresentFlag bool
	NumUnitsInTick        uint32
	TimeScale             uint32
	FixedFrameRateFlag    bool
}

// SPS is a parsed Sequence Parameter Set.
type SPS struct {
	ProfileIDC      uint8
	ConstraintFlags uint8 // constraint_set0_flag..constraint_set5_flag packed MSB-first, bits 6-7 reserved zero
	LevelIDC        uint8

	SeqParameterSetID uint32

	ChromaFormatIDC                  uint32 // defaults to 1 (4:2:0) when not present
	SeparateColourPlaneFlag           bool
	BitDepthLumaMinus8                uint32
	BitDepthChromaMinus8               uint32
	QpprimeYZeroTransformBypassFlag    bool
	SeqScalingMatrixPresentFlag         bool

	Log2MaxFrameNumMinus4 uint32

	PicOrderCntType uint32

	// pic_order_cnt_type == 0
	Log2MaxPicOrderCntLsbMinus4 uint32

	// pic_order_cnt_type == 1
	DeltaPicOrderAlwaysZeroFlag    bool
	OffsetForNonRefPic             int32
	OffsetForTopToBottomField      int32
	NumRefFramesInPicOrderCntCycle uint32
	OffsetForRefFrame              []int32

	MaxNumRefFrames                  uint32
	GapsInFrameNumValueAllowedFlag   bool
	PicWidthInMbsMinus1              uint32
	PicHeightInMapUnitsMinus1        uint32
	FrameMbsOnlyFlag                 bool
	MbAdaptiveFrameFieldFlag         bool
	Direct8x8InferenceFlag           bool

	FrameCroppingFlag bool
	CropLeft          uint32
	CropRight         uint32
	CropTop           uint32
	CropBottom        uint32

	VUIParametersPresentFlag bool
	VUI                      VUI
}

// PPS is a parsed Picture Parameter Set.
type PPS struct {
	PicParameterSetID uint32
	SeqParameterSetID uint32

	EntropyCodingModeFlag                    bool
	BottomFieldPicOrderInFramePresentFlag bool
	NumSliceGroupsMinus1                      uint32
	SliceGroupMapType                         uint32
	RunLengthMinus1                           []uint32
	SliceGroupChangeRateMinus1                uint32

	NumRefIdxL0DefaultActiveMinus1 uint32
	NumRefIdxL1DefaultActiveMinus1 uint32
	WeightedPredFlag               bool
	WeightedBipredIdc              uint32

	PicInitQPMinus26         int32
	PicInitQSMinus26         int32
	ChromaQPIndexOffset      int32

	DeblockingFilterControlPresentFlag bool
	ConstrainedIntraPredFlag            bool
	RedundantPicCntPresentFlag           bool

	Transform8x8ModeFlag       bool
	PicScalingMatrixPresentFlag bool
	SecondChromaQPIndexOffset   int32
}

// RefPicListMod is one entry of a reference-picture-list modification
// operation list.
type RefPicListMod struct {
	ModificationOfPicNumsIdc uint32
	Value                    uint32 // abs_diff_pic_num_minus1 or long_term_pic_num
}

// MMCO is one memory_management_control_operation entry.
type MMCO struct {
	Op    uint32
	Arg1  uint32
	Arg2  uint32
}

// SliceHeader is a parsed slice header.
type SliceHeader struct {
	FirstMBInSlice    uint32
	SliceType         uint32
	SliceTypeClass    uint32 // slice_type % 5
	PicParameterSetID uint32

	FrameNum uint32

	FieldPicFlag   bool
	BottomFieldFlag bool

	IDRPicID uint32 // only for IDR NALs

	PicOrderCntLsb            uint32
	DeltaPicOrderCntBottom    int32
	DeltaPicOrderCnt0         int32
	DeltaPicOrderCnt1         int32

	RedundantPicCnt uint32

	DirectSpatialMvPredFlag bool

	NumRefIdxActiveOverrideFlag bool
	NumRefIdxL0ActiveMinus1     uint32
	NumRefIdxL1ActiveMinus1     uint32

	RefPicListModL0 []RefPicListMod
	RefPicListModL1 []RefPicListMod

	// dec_ref_pic_marking
	NoOutputOfPriorPicsFlag bool
	LongTermReferenceFlag   bool
	AdaptiveRefPicMarkingModeFlag bool
	MMCOs                         []MMCO

	CabacInitIdc uint32

	SliceQPDelta int32

	DisableDeblockingFilterIdc int32
	SliceAlphaC0OffsetDiv2     int32
	SliceBetaOffsetDiv2        int32

	SliceGroupChangeCycle uint32
}
