package kioctl

import "unsafe"

// V4L2 buffer types and memory types (videodev2.h).
const (
	BufTypeVideoCaptureMplane = 9
	BufTypeVideoOutputMplane  = 10

	MemoryMMAP   = 1
	MemoryDMABUF = 4
)

// Pixel format FOURCCs. PixFmtH264Slice is V4L2_PIX_FMT_H264_SLICE, the
// Annex-B-framed stateless-decoder input format; distinct from
// V4L2_PIX_FMT_H264 ("H264"), which stateful decoders consume.
var (
	PixFmtH264Slice = fourcc('S', '2', '6', '4')
	PixFmtNV12M     = fourcc('N', 'M', '1', '2')
)

// Control-class base and the stateless-codec control IDs built on it
// (v4l2-controls.h). Stateless codec controls live in
// V4L2_CTRL_CLASS_CODEC_STATELESS (0x00a40000), at fixed offsets from its
// base.
const (
	ctrlClassCodecStateless = 0x00a40000
	ctrlBaseCodecStateless  = ctrlClassCodecStateless | 0x900

	CtrlH264DecodeMode   = ctrlBaseCodecStateless + 0
	CtrlH264StartCode    = ctrlBaseCodecStateless + 1
	CtrlH264SPS          = ctrlBaseCodecStateless + 2
	CtrlH264PPS          = ctrlBaseCodecStateless + 3
	CtrlH264ScalingMatrix = ctrlBaseCodecStateless + 4
	CtrlH264PredWeights  = ctrlBaseCodecStateless + 5
	CtrlH264SliceParams  = ctrlBaseCodecStateless + 6
	CtrlH264DecodeParams = ctrlBaseCodecStateless + 7
)

// Decode-mode / start-code-mode control values.
const (
	H264DecodeModeFrameBased = 1
	H264StartCodeAnnexB      = 1
)

// ioctl 'type' characters, from <linux/videodev2.h> and <linux/media.h>.
const (
	ioTypeVideo = uintptr('V')
	ioTypeMedia = uintptr('|')
)

// VIDIOC_* ioctl numbers.
var (
	VidiocQuerycap = ioEncR(ioTypeVideo, 0, unsafe.Sizeof(Capability{}))
	VidiocEnumFmt  = ioEncRW(ioTypeVideo, 2, 64)
	VidiocGFmt     = ioEncRW(ioTypeVideo, 4, unsafe.Sizeof(FormatMplane{}))
	VidiocSFmt     = ioEncRW(ioTypeVideo, 5, unsafe.Sizeof(FormatMplane{}))
	VidiocReqbufs  = ioEncRW(ioTypeVideo, 8, unsafe.Sizeof(RequestBuffers{}))
	VidiocQuerybuf = ioEncRW(ioTypeVideo, 9, unsafe.Sizeof(BufferMplane{}))
	VidiocQbuf     = ioEncRW(ioTypeVideo, 15, unsafe.Sizeof(BufferMplane{}))
	VidiocDqbuf    = ioEncRW(ioTypeVideo, 17, unsafe.Sizeof(BufferMplane{}))
	VidiocStreamon  = ioEncW(ioTypeVideo, 18, unsafe.Sizeof(int32(0)))
	VidiocStreamoff = ioEncW(ioTypeVideo, 19, unsafe.Sizeof(int32(0)))
	VidiocSCtrl    = ioEncRW(ioTypeVideo, 28, unsafe.Sizeof(Control{}))
	VidiocGExtCtrls   = ioEncRW(ioTypeVideo, 71, unsafe.Sizeof(ExtControls{}))
	VidiocSExtCtrls   = ioEncRW(ioTypeVideo, 72, unsafe.Sizeof(ExtControls{}))
	VidiocTryExtCtrls = ioEncRW(ioTypeVideo, 73, unsafe.Sizeof(ExtControls{}))
	VidiocQueryExtCtrl = ioEncRW(ioTypeVideo, 103, 232)
)

// MEDIA_IOC_*/MEDIA_REQUEST_IOC_* numbers.
var (
	MediaIocRequestAlloc  = ioEncRW(ioTypeMedia, 0x01, unsafe.Sizeof(int32(0)))
	MediaRequestIocQueue  = ioEncNone(ioTypeMedia, 0x80)
	MediaRequestIocReinit = ioEncNone(ioTypeMedia, 0x81)
)
