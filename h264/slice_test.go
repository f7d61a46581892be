package h264

import "testing"

func TestParseSliceHeaderIDR(t *testing.T) {
	t.Parallel()

	st := NewStreamState()
	st.PutSPS(SPS{
		SeqParameterSetID:           0,
		Log2MaxFrameNumMinus4:       0,
		PicOrderCntType:             0,
		Log2MaxPicOrderCntLsbMinus4: 0,
		FrameMbsOnlyFlag:            true,
	})
	st.PutPPS(PPS{
		PicParameterSetID: 0,
		SeqParameterSetID: 0,
	})

	var w bitWriter
	w.writeUE(0) // first_mb_in_slice
	w.writeUE(7) // slice_type (I, 7%5==2)
	w.writeUE(0) // pic_parameter_set_id
	w.writeBits(0, 4) // frame_num (log2_max_frame_num_minus4+4 == 4 bits)
	w.writeUE(0)      // idr_pic_id
	w.writeBits(0, 4) // pic_order_cnt_lsb
	w.writeFlag(false) // no_output_of_prior_pics_flag
	w.writeFlag(false) // long_term_reference_flag
	w.writeSE(-12)      // slice_qp_delta

	sh, err := ParseSliceHeader(w.bytes(), 2, NALTypeIDR, st)
	if err != nil {
		t.Fatalf("ParseSliceHeader: %v", err)
	}

	if sh.FirstMBInSlice != 0 {
		t.Errorf("FirstMBInSlice: got %d, want 0", sh.FirstMBInSlice)
	}
	if sh.SliceType != 7 {
		t.Errorf("SliceType: got %d, want 7", sh.SliceType)
	}
	if sh.SliceTypeClass != SliceTypeI {
		t.Errorf("SliceTypeClass: got %d, want %d", sh.SliceTypeClass, SliceTypeI)
	}
	if sh.SliceQPDelta != -12 {
		t.Errorf("SliceQPDelta: got %d, want -12", sh.SliceQPDelta)
	}
	if len(sh.RefPicListModL0) != 0 || len(sh.RefPicListModL1) != 0 {
		t.Errorf("expected no ref-pic-list modifications for I slice, got L0=%d L1=%d",
			len(sh.RefPicListModL0), len(sh.RefPicListModL1))
	}
}

func TestParseSliceHeaderUnknownPPSFails(t *testing.T) {
	t.Parallel()
	st := NewStreamState()

	var w bitWriter
	w.writeUE(0)
	w.writeUE(2)
	w.writeUE(9) // pic_parameter_set_id never registered

	_, err := ParseSliceHeader(w.bytes(), 1, NALTypeSliceNonIDR, st)
	if err == nil {
		t.Fatal("expected error for unknown PPS id")
	}
}
