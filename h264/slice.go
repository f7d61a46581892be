package h264

import "github.com/kestrelav/stateless264/bitstream"

const (
	refPicListModEnd = 3
	mmcoEnd          = 0
)

// ParseSliceHeader parses a slice header from nalPayload. nalRefIdc and
// nalUnitType come from the NAL header byte; st resolves the referenced
// PPS and, through it, the active SPS.
func ParseSliceHeader(nalPayload []byte, nalRefIdc, nalUnitType int, st *StreamState) (SliceHeader, error) {
	r := bitstream.NewReader(nalPayload)
	var sh SliceHeader

	var err error
	if sh.FirstMBInSlice, err = r.ReadUE(); err != nil {
		return SliceHeader{}, parseErr(nalUnitType, err)
	}
	if sh.SliceType, err = r.ReadUE(); err != nil {
		return SliceHeader{}, parseErr(nalUnitType, err)
	}
	sh.SliceTypeClass = sh.SliceType % 5

	if sh.PicParameterSetID, err = r.ReadUE(); err != nil {
		return SliceHeader{}, parseErr(nalUnitType, err)
	}

	pps, ok := st.GetPPS(sh.PicParameterSetID)
	if !ok {
		return SliceHeader{}, parseErr(nalUnitType, errUnknownPPS)
	}
	sps, ok := st.GetSPS(pps.SeqParameterSetID)
	if !ok {
		return SliceHeader{}, parseErr(nalUnitType, errUnknownSPS)
	}

	frameNumBits := int(sps.Log2MaxFrameNumMinus4) + 4
	if sh.FrameNum, err = r.ReadBits(frameNumBits); err != nil {
		return SliceHeader{}, parseErr(nalUnitType, err)
	}

	if !sps.FrameMbsOnlyFlag {
		bit, err := r.ReadBits(1)
		if err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		sh.FieldPicFlag = bit == 1
		if sh.FieldPicFlag {
			bit, err = r.ReadBits(1)
			if err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
			sh.BottomFieldFlag = bit == 1
		}
	}

	isIDR := nalUnitType == NALTypeIDR
	if isIDR {
		if sh.IDRPicID, err = r.ReadUE(); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
	}

	if sps.PicOrderCntType == 0 {
		pocLsbBits := int(sps.Log2MaxPicOrderCntLsbMinus4) + 4
		if sh.PicOrderCntLsb, err = r.ReadBits(pocLsbBits); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		if pps.BottomFieldPicOrderInFramePresentFlag && !sh.FieldPicFlag {
			if sh.DeltaPicOrderCntBottom, err = r.ReadSE(); err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
		}
	} else if sps.PicOrderCntType == 1 && !sps.DeltaPicOrderAlwaysZeroFlag {
		if sh.DeltaPicOrderCnt0, err = r.ReadSE(); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		if pps.BottomFieldPicOrderInFramePresentFlag && !sh.FieldPicFlag {
			if sh.DeltaPicOrderCnt1, err = r.ReadSE(); err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
		}
	}

	if pps.RedundantPicCntPresentFlag {
		if sh.RedundantPicCnt, err = r.ReadUE(); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
	}

	if sh.SliceTypeClass == SliceTypeB {
		bit, err := r.ReadBits(1)
		if err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		sh.DirectSpatialMvPredFlag = bit == 1
	}

	sh.NumRefIdxL0ActiveMinus1 = pps.NumRefIdxL0DefaultActiveMinus1
	sh.NumRefIdxL1ActiveMinus1 = pps.NumRefIdxL1DefaultActiveMinus1
	if sh.SliceTypeClass == SliceTypeP || sh.SliceTypeClass == SliceTypeSP || sh.SliceTypeClass == SliceTypeB {
		bit, err := r.ReadBits(1)
		if err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		sh.NumRefIdxActiveOverrideFlag = bit == 1
		if sh.NumRefIdxActiveOverrideFlag {
			if sh.NumRefIdxL0ActiveMinus1, err = r.ReadUE(); err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
			if sh.SliceTypeClass == SliceTypeB {
				if sh.NumRefIdxL1ActiveMinus1, err = r.ReadUE(); err != nil {
					return SliceHeader{}, parseErr(nalUnitType, err)
				}
			}
		}
	}

	if sh.SliceTypeClass != SliceTypeI && sh.SliceTypeClass != SliceTypeSI {
		mods, err := parseRefPicListMods(r)
		if err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		sh.RefPicListModL0 = mods
	}
	if sh.SliceTypeClass == SliceTypeB {
		mods, err := parseRefPicListMods(r)
		if err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		sh.RefPicListModL1 = mods
	}

	needsWeightTable := (pps.WeightedPredFlag && (sh.SliceTypeClass == SliceTypeP || sh.SliceTypeClass == SliceTypeSP)) ||
		(pps.WeightedBipredIdc == 1 && sh.SliceTypeClass == SliceTypeB)
	if needsWeightTable {
		chromaArrayType := sps.ChromaFormatIDC
		if sps.SeparateColourPlaneFlag {
			chromaArrayType = 0
		}
		if err := skipPredWeightTable(r, chromaArrayType, sh.NumRefIdxL0ActiveMinus1, sh.NumRefIdxL1ActiveMinus1, sh.SliceTypeClass == SliceTypeB); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
	}

	if nalRefIdc != 0 {
		if isIDR {
			bit, err := r.ReadBits(1)
			if err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
			sh.NoOutputOfPriorPicsFlag = bit == 1
			bit, err = r.ReadBits(1)
			if err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
			sh.LongTermReferenceFlag = bit == 1
		} else {
			bit, err := r.ReadBits(1)
			if err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
			sh.AdaptiveRefPicMarkingModeFlag = bit == 1
			if sh.AdaptiveRefPicMarkingModeFlag {
				mmcos, err := parseMMCOs(r)
				if err != nil {
					return SliceHeader{}, parseErr(nalUnitType, err)
				}
				sh.MMCOs = mmcos
			}
		}
	}

	if pps.EntropyCodingModeFlag && sh.SliceTypeClass != SliceTypeI && sh.SliceTypeClass != SliceTypeSI {
		if sh.CabacInitIdc, err = r.ReadUE(); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
	}

	if sh.SliceQPDelta, err = r.ReadSE(); err != nil {
		return SliceHeader{}, parseErr(nalUnitType, err)
	}

	if sh.SliceTypeClass == SliceTypeSP || sh.SliceTypeClass == SliceTypeSI {
		if sh.SliceTypeClass == SliceTypeSP {
			if _, err := r.ReadBits(1); err != nil { // sp_for_switch_flag
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
		}
		if _, err := r.ReadSE(); err != nil { // slice_qs_delta
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
	}

	if pps.DeblockingFilterControlPresentFlag {
		idc, err := r.ReadUE()
		if err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
		sh.DisableDeblockingFilterIdc = int32(idc)
		if idc != 1 {
			if sh.SliceAlphaC0OffsetDiv2, err = r.ReadSE(); err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
			if sh.SliceBetaOffsetDiv2, err = r.ReadSE(); err != nil {
				return SliceHeader{}, parseErr(nalUnitType, err)
			}
		}
	}

	if pps.NumSliceGroupsMinus1 > 0 &&
		(pps.SliceGroupMapType == 3 || pps.SliceGroupMapType == 4 || pps.SliceGroupMapType == 5) {
		picSizeInMapUnits := (sps.PicWidthInMbsMinus1 + 1) * (sps.PicHeightInMapUnitsMinus1 + 1)
		rate := pps.SliceGroupChangeRateMinus1 + 1
		bits := ceilLog2(picSizeInMapUnits/rate + 1)
		if sh.SliceGroupChangeCycle, err = r.ReadBits(bits); err != nil {
			return SliceHeader{}, parseErr(nalUnitType, err)
		}
	}

	return sh, nil
}

func parseRefPicListMods(r *bitstream.Reader) ([]RefPicListMod, error) {
	flag, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	if flag == 0 {
		return nil, nil
	}
	var mods []RefPicListMod
	for {
		idc, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		if idc == refPicListModEnd {
			break
		}
		val, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		mods = append(mods, RefPicListMod{ModificationOfPicNumsIdc: idc, Value: val})
	}
	return mods, nil
}

func parseMMCOs(r *bitstream.Reader) ([]MMCO, error) {
	var ops []MMCO
	for {
		op, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		if op == mmcoEnd {
			break
		}
		var m MMCO
		m.Op = op
		switch op {
		case 1, 3:
			if m.Arg1, err = r.ReadUE(); err != nil { // difference_of_pic_nums_minus1
				return nil, err
			}
			if op == 3 {
				if m.Arg2, err = r.ReadUE(); err != nil { // long_term_frame_idx
					return nil, err
				}
			}
		case 2:
			if m.Arg1, err = r.ReadUE(); err != nil { // long_term_pic_num
				return nil, err
			}
		case 4:
			if m.Arg1, err = r.ReadUE(); err != nil { // max_long_term_frame_idx_plus1
				return nil, err
			}
		case 6:
			if m.Arg1, err = r.ReadUE(); err != nil { // long_term_frame_idx
				return nil, err
			}
		}
		ops = append(ops, m)
	}
	return ops, nil
}

func skipPredWeightTable(r *bitstream.Reader, chromaArrayType, numL0Minus1, numL1Minus1 uint32, isB bool) error {
	if _, err := r.ReadUE(); err != nil { // luma_log2_weight_denom
		return err
	}
	if chromaArrayType != 0 {
		if _, err := r.ReadUE(); err != nil { // chroma_log2_weight_denom
			return err
		}
	}
	skipList := func(count uint32) error {
		for i := uint32(0); i <= count; i++ {
			flag, err := r.ReadBits(1)
			if err != nil {
				return err
			}
			if flag == 1 {
				if _, err := r.ReadSE(); err != nil {
					return err
				}
				if _, err := r.ReadSE(); err != nil {
					return err
				}
			}
			if chromaArrayType != 0 {
				flag, err := r.ReadBits(1)
				if err != nil {
					return err
				}
				if flag == 1 {
					for j := 0; j < 2; j++ {
						if _, err := r.ReadSE(); err != nil {
							return err
						}
						if _, err := r.ReadSE(); err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	}
	if err := skipList(numL0Minus1); err != nil {
		return err
	}
	if isB {
		if err := skipList(numL1Minus1); err != nil {
			return err
		}
	}
	return nil
}
