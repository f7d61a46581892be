package h264

import "testing"

func TestParseSPSBaselineWithTiming(t *testing.T) {
	t.Parallel()

	var w bitWriter
	w.writeBits(66, 8) // profile_idc
	w.writeBits(0, 8)  // constraint flags + reserved
	w.writeBits(22, 8) // level_idc
	w.writeUE(0)       // seq_parameter_set_id
	w.writeUE(1)       // log2_max_frame_num_minus4
	w.writeUE(2)       // pic_order_cnt_type
	w.writeUE(16)      // max_num_ref_frames
	w.writeFlag(false) // gaps_in_frame_num_value_allowed_flag
	w.writeUE(19)       // pic_width_in_mbs_minus1
	w.writeUE(14)       // pic_height_in_map_units_minus1
	w.writeFlag(true)   // frame_mbs_only_flag
	w.writeFlag(true)   // direct_8x8_inference_flag
	w.writeFlag(false)  // frame_cropping_flag
	w.writeFlag(true)   // vui_parameters_present_flag
	w.writeFlag(false)  // aspect_ratio_info_present_flag
	w.writeFlag(false)  // overscan_info_present_flag
	w.writeFlag(false)  // video_signal_type_present_flag
	w.writeFlag(false)  // chroma_loc_info_present_flag
	w.writeFlag(true)   // timing_info_present_flag
	w.writeBits(1, 32)  // num_units_in_tick
	w.writeBits(50, 32) // time_scale
	w.writeFlag(false)  // fixed_frame_rate_flag

	sps, err := ParseSPS(w.bytes())
	if err != nil {
		t.Fatalf("ParseSPS: %v", err)
	}

	cases := []struct {
		name string
		got  any
		want any
	}{
		{"ProfileIDC", sps.ProfileIDC, uint8(66)},
		{"LevelIDC", sps.LevelIDC, uint8(22)},
		{"Log2MaxFrameNumMinus4", sps.Log2MaxFrameNumMinus4, uint32(1)},
		{"PicOrderCntType", sps.PicOrderCntType, uint32(2)},
		{"MaxNumRefFrames", sps.MaxNumRefFrames, uint32(16)},
		{"PicWidthInMbsMinus1", sps.PicWidthInMbsMinus1, uint32(19)},
		{"PicHeightInMapUnitsMinus1", sps.PicHeightInMapUnitsMinus1, uint32(14)},
		{"FrameMbsOnlyFlag", sps.FrameMbsOnlyFlag, true},
		{"VUIParametersPresentFlag", sps.VUIParametersPresentFlag, true},
		{"VUI.TimingInfoPresentFlag", sps.VUI.TimingInfoPresentFlag, true},
		{"VUI.TimeScale", sps.VUI.TimeScale, uint32(50)},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestParseSPSHighProfileChromaFields(t *testing.T) {
	t.Parallel()

	var w bitWriter
	w.writeBits(100, 8) // profile_idc (High)
	w.writeBits(0, 8)
	w.writeBits(40, 8)
	w.writeUE(0)        // seq_parameter_set_id
	w.writeUE(1)        // chroma_format_idc
	w.writeUE(0)        // bit_depth_luma_minus8
	w.writeUE(0)        // bit_depth_chroma_minus8
	w.writeFlag(false)  // qpprime_y_zero_transform_bypass_flag
	w.writeFlag(false)  // seq_scaling_matrix_present_flag
	w.writeUE(0)        // log2_max_frame_num_minus4
	w.writeUE(0)        // pic_order_cnt_type
	w.writeUE(3)        // log2_max_pic_order_cnt_lsb_minus4
	w.writeUE(1)        // max_num_ref_frames
	w.writeFlag(false)  // gaps_in_frame_num_value_allowed_flag
	w.writeUE(7)        // pic_width_in_mbs_minus1
	w.writeUE(5)        // pic_height_in_map_units_minus1
	w.writeFlag(true)   // frame_mbs_only_flag
	w.writeFlag(false)  // direct_8x8_inference_flag
	w.writeFlag(false)  // frame_cropping_flag
	w.writeFlag(false)  // vui_parameters_present_flag

	sps, err := ParseSPS(w.bytes())
	if err != nil {
		t.Fatalf("ParseSPS: %v", err)
	}
	if sps.ChromaFormatIDC != 1 {
		t.Errorf("ChromaFormatIDC: got %d, want 1", sps.ChromaFormatIDC)
	}
	if sps.PicOrderCntType != 0 || sps.Log2MaxPicOrderCntLsbMinus4 != 3 {
		t.Errorf("POC fields: got type=%d lsb=%d", sps.PicOrderCntType, sps.Log2MaxPicOrderCntLsbMinus4)
	}
}

func TestParseSPSTruncatedReturnsParseError(t *testing.T) {
	t.Parallel()
	_, err := ParseSPS([]byte{0x42})
	if err == nil {
		t.Fatal("expected error on truncated SPS")
	}
	var pe *ParseError
	if !asParseError(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.NALUnitType != NALTypeSPS {
		t.Errorf("got NALUnitType %d, want %d", pe.NALUnitType, NALTypeSPS)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
