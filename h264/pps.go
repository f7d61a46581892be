package h264

import "github.com/kestrelav/stateless264/bitstream"

// ceilLog2 returns ceil(log2(n)) for n >= 1.
func ceilLog2(n uint32) int {
	r := 0
	v := uint32(1)
	for v < n {
		v <<= 1
		r++
	}
	return r
}

// ParsePPS parses a Picture Parameter Set from nalPayload. st is consulted
// (read-only) to resolve the referenced SPS's chroma_format_idc, needed to
// size the optional scaling-list loop near the end of the PPS.
func ParsePPS(nalPayload []byte, st *StreamState) (PPS, error) {
	r := bitstream.NewReader(nalPayload)
	var p PPS

	var err error
	if p.PicParameterSetID, err = r.ReadUE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	if p.SeqParameterSetID, err = r.ReadUE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}

	bit, err := r.ReadBits(1)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.EntropyCodingModeFlag = bit == 1

	bit, err = r.ReadBits(1)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.BottomFieldPicOrderInFramePresentFlag = bit == 1

	if p.NumSliceGroupsMinus1, err = r.ReadUE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	if p.NumSliceGroupsMinus1 > 0 {
		if p.SliceGroupMapType, err = r.ReadUE(); err != nil {
			return PPS{}, parseErr(NALTypePPS, err)
		}
		switch p.SliceGroupMapType {
		case 0:
			p.RunLengthMinus1 = make([]uint32, p.NumSliceGroupsMinus1+1)
			for i := range p.RunLengthMinus1 {
				if p.RunLengthMinus1[i], err = r.ReadUE(); err != nil {
					return PPS{}, parseErr(NALTypePPS, err)
				}
			}
		case 2:
			for i := uint32(0); i < p.NumSliceGroupsMinus1; i++ {
				if _, err = r.ReadUE(); err != nil { // top_left
					return PPS{}, parseErr(NALTypePPS, err)
				}
				if _, err = r.ReadUE(); err != nil { // bottom_right
					return PPS{}, parseErr(NALTypePPS, err)
				}
			}
		case 3, 4, 5:
			if _, err = r.ReadBits(1); err != nil { // slice_group_change_direction_flag
				return PPS{}, parseErr(NALTypePPS, err)
			}
			if p.SliceGroupChangeRateMinus1, err = r.ReadUE(); err != nil {
				return PPS{}, parseErr(NALTypePPS, err)
			}
		case 6:
			picSizeInMapUnitsMinus1, err := r.ReadUE()
			if err != nil {
				return PPS{}, parseErr(NALTypePPS, err)
			}
			bitsPerID := ceilLog2(p.NumSliceGroupsMinus1 + 1)
			for i := uint32(0); i <= picSizeInMapUnitsMinus1; i++ {
				if _, err := r.ReadBits(bitsPerID); err != nil {
					return PPS{}, parseErr(NALTypePPS, err)
				}
			}
		}
	}

	if p.NumRefIdxL0DefaultActiveMinus1, err = r.ReadUE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	if p.NumRefIdxL1DefaultActiveMinus1, err = r.ReadUE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.WeightedPredFlag = bit == 1

	wbi, err := r.ReadBits(2)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.WeightedBipredIdc = wbi

	if p.PicInitQPMinus26, err = r.ReadSE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	if p.PicInitQSMinus26, err = r.ReadSE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	if p.ChromaQPIndexOffset, err = r.ReadSE(); err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.DeblockingFilterControlPresentFlag = bit == 1

	bit, err = r.ReadBits(1)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.ConstrainedIntraPredFlag = bit == 1

	bit, err = r.ReadBits(1)
	if err != nil {
		return PPS{}, parseErr(NALTypePPS, err)
	}
	p.RedundantPicCntPresentFlag = bit == 1

	if r.MoreRBSPData() {
		bit, err = r.ReadBits(1)
		if err != nil {
			return PPS{}, parseErr(NALTypePPS, err)
		}
		p.Transform8x8ModeFlag = bit == 1

		bit, err = r.ReadBits(1)
		if err != nil {
			return PPS{}, parseErr(NALTypePPS, err)
		}
		p.PicScalingMatrixPresentFlag = bit == 1
		if p.PicScalingMatrixPresentFlag {
			chromaFormatIDC := uint32(1)
			if sps, ok := st.GetSPS(p.SeqParameterSetID); ok {
				chromaFormatIDC = sps.ChromaFormatIDC
			}
			count := 6
			if chromaFormatIDC != 3 {
				count += 2
			} else {
				count += 6
			}
			if !p.Transform8x8ModeFlag {
				count = 6
			}
			for i := 0; i < count; i++ {
				present, err := r.ReadBits(1)
				if err != nil {
					return PPS{}, parseErr(NALTypePPS, err)
				}
				if present == 1 {
					size := 16
					if i >= 6 {
						size = 64
					}
					if err := skipScalingList(r, size); err != nil {
						return PPS{}, parseErr(NALTypePPS, err)
					}
				}
			}
		}
		if p.SecondChromaQPIndexOffset, err = r.ReadSE(); err != nil {
			return PPS{}, parseErr(NALTypePPS, err)
		}
	} else {
		p.SecondChromaQPIndexOffset = p.ChromaQPIndexOffset
	}

	return p, nil
}
