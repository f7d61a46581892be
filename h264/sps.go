package h264

import "github.com/kestrelav/stateless264/bitstream"

// highProfileChromaIDCs lists profile_idc values for which the chroma
// format / bit depth / scaling matrix fields are present, per spec.md's
// enumerated profile set (H.264 Annex A High-profile family).
var highProfileChromaIDCs = map[uint32]bool{
	100: true, 110: true, 122: true, 244: true, 44: true,
	83: true, 86: true, 118: true, 128: true,
}

// ParseSPS parses a Sequence Parameter Set from nalPayload, the NAL's RBSP
// with the one-byte NAL header already stripped. It does not consult or
// mutate StreamState; callers store the result with StreamState.PutSPS.
func ParseSPS(nalPayload []byte) (SPS, error) {
	r := bitstream.NewReader(nalPayload)
	var s SPS

	profileIDC, err := r.ReadBits(8)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.ProfileIDC = uint8(profileIDC)

	constraintFlags, err := r.ReadBits(8)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.ConstraintFlags = uint8(constraintFlags)

	levelIDC, err := r.ReadBits(8)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.LevelIDC = uint8(levelIDC)

	if s.SeqParameterSetID, err = r.ReadUE(); err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}

	s.ChromaFormatIDC = 1
	if highProfileChromaIDCs[profileIDC] {
		if s.ChromaFormatIDC, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.ChromaFormatIDC == 3 {
			bit, err := r.ReadBits(1)
			if err != nil {
				return SPS{}, parseErr(NALTypeSPS, err)
			}
			s.SeparateColourPlaneFlag = bit == 1
		}
		if s.BitDepthLumaMinus8, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.BitDepthChromaMinus8, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		bit, err := r.ReadBits(1)
		if err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		s.QpprimeYZeroTransformBypassFlag = bit == 1

		bit, err = r.ReadBits(1)
		if err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		s.SeqScalingMatrixPresentFlag = bit == 1
		if s.SeqScalingMatrixPresentFlag {
			limit := 8
			if s.ChromaFormatIDC == 3 {
				limit = 12
			}
			for i := 0; i < limit; i++ {
				present, err := r.ReadBits(1)
				if err != nil {
					return SPS{}, parseErr(NALTypeSPS, err)
				}
				if present == 1 {
					size := 16
					if i >= 6 {
						size = 64
					}
					if err := skipScalingList(r, size); err != nil {
						return SPS{}, parseErr(NALTypeSPS, err)
					}
				}
			}
		}
	}

	if s.Log2MaxFrameNumMinus4, err = r.ReadUE(); err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	if s.PicOrderCntType, err = r.ReadUE(); err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}

	switch s.PicOrderCntType {
	case 0:
		if s.Log2MaxPicOrderCntLsbMinus4, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
	case 1:
		bit, err := r.ReadBits(1)
		if err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		s.DeltaPicOrderAlwaysZeroFlag = bit == 1
		if s.OffsetForNonRefPic, err = r.ReadSE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.OffsetForTopToBottomField, err = r.ReadSE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.NumRefFramesInPicOrderCntCycle, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		s.OffsetForRefFrame = make([]int32, s.NumRefFramesInPicOrderCntCycle)
		for i := range s.OffsetForRefFrame {
			if s.OffsetForRefFrame[i], err = r.ReadSE(); err != nil {
				return SPS{}, parseErr(NALTypeSPS, err)
			}
		}
	}

	if s.MaxNumRefFrames, err = r.ReadUE(); err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	bit, err := r.ReadBits(1)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.GapsInFrameNumValueAllowedFlag = bit == 1

	if s.PicWidthInMbsMinus1, err = r.ReadUE(); err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	if s.PicHeightInMapUnitsMinus1, err = r.ReadUE(); err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.FrameMbsOnlyFlag = bit == 1
	if !s.FrameMbsOnlyFlag {
		bit, err = r.ReadBits(1)
		if err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		s.MbAdaptiveFrameFieldFlag = bit == 1
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.Direct8x8InferenceFlag = bit == 1

	bit, err = r.ReadBits(1)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.FrameCroppingFlag = bit == 1
	if s.FrameCroppingFlag {
		if s.CropLeft, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.CropRight, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.CropTop, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		if s.CropBottom, err = r.ReadUE(); err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return SPS{}, parseErr(NALTypeSPS, err)
	}
	s.VUIParametersPresentFlag = bit == 1
	if s.VUIParametersPresentFlag {
		vui, err := parseVUI(r)
		if err != nil {
			return SPS{}, parseErr(NALTypeSPS, err)
		}
		s.VUI = vui
	}

	return s, nil
}

func skipScalingList(r *bitstream.Reader, size int) error {
	lastScale, nextScale := 8, 8
	for j := 0; j < size; j++ {
		if nextScale != 0 {
			delta, err := r.ReadSE()
			if err != nil {
				return err
			}
			nextScale = (lastScale + int(delta) + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

func parseVUI(r *bitstream.Reader) (VUI, error) {
	var v VUI

	bit, err := r.ReadBits(1)
	if err != nil {
		return VUI{}, err
	}
	v.AspectRatioInfoPresentFlag = bit == 1
	if v.AspectRatioInfoPresentFlag {
		idc, err := r.ReadBits(8)
		if err != nil {
			return VUI{}, err
		}
		v.AspectRatioIdc = uint8(idc)
		if idc == 255 { // Extended_SAR
			w, err := r.ReadBits(16)
			if err != nil {
				return VUI{}, err
			}
			h, err := r.ReadBits(16)
			if err != nil {
				return VUI{}, err
			}
			v.SarWidth, v.SarHeight = w, h
		}
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return VUI{}, err
	}
	v.OverscanInfoPresentFlag = bit == 1
	if v.OverscanInfoPresentFlag {
		bit, err = r.ReadBits(1)
		if err != nil {
			return VUI{}, err
		}
		v.OverscanAppropriateFlag = bit == 1
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return VUI{}, err
	}
	v.VideoSignalTypePresentFlag = bit == 1
	if v.VideoSignalTypePresentFlag {
		fmtBits, err := r.ReadBits(3)
		if err != nil {
			return VUI{}, err
		}
		v.VideoFormat = uint8(fmtBits)
		bit, err = r.ReadBits(1)
		if err != nil {
			return VUI{}, err
		}
		v.VideoFullRangeFlag = bit == 1

		bit, err = r.ReadBits(1)
		if err != nil {
			return VUI{}, err
		}
		v.ColourDescriptionPresentFlag = bit == 1
		if v.ColourDescriptionPresentFlag {
			cp, err := r.ReadBits(8)
			if err != nil {
				return VUI{}, err
			}
			tc, err := r.ReadBits(8)
			if err != nil {
				return VUI{}, err
			}
			mc, err := r.ReadBits(8)
			if err != nil {
				return VUI{}, err
			}
			v.ColourPrimaries = uint8(cp)
			v.TransferCharacteristics = uint8(tc)
			v.MatrixCoefficients = uint8(mc)
		}
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return VUI{}, err
	}
	v.ChromaLocInfoPresentFlag = bit == 1
	if v.ChromaLocInfoPresentFlag {
		if v.ChromaSampleLocTypeTopField, err = r.ReadUE(); err != nil {
			return VUI{}, err
		}
		if v.ChromaSampleLocTypeBottomField, err = r.ReadUE(); err != nil {
			return VUI{}, err
		}
	}

	bit, err = r.ReadBits(1)
	if err != nil {
		return VUI{}, err
	}
	v.TimingInfoPresentFlag = bit == 1
	if v.TimingInfoPresentFlag {
		if v.NumUnitsInTick, err = r.ReadBits(32); err != nil {
			return VUI{}, err
		}
		if v.TimeScale, err = r.ReadBits(32); err != nil {
			return VUI{}, err
		}
		bit, err = r.ReadBits(1)
		if err != nil {
			return VUI{}, err
		}
		v.FixedFrameRateFlag = bit == 1
	}

	// NAL/VCL HRD parameters and the remaining bitstream-restriction block
	// are not consumed: nothing downstream of this parser needs them, and
	// the VUI is always the last field read out of the SPS RBSP.

	return v, nil
}
