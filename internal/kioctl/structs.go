package kioctl

import "unsafe"

// Raw kernel struct mirrors for the ioctls this package issues. Field
// order and types are transcribed from the public V4L2 UAPI header
// (videodev2.h) without cgo; the compile-time size assertions below catch
// accidental reordering or a field-width typo, following the same idiom
// used elsewhere in the V4L2 Go ecosystem for cgo-free bindings. A port to
// a specific kernel should re-verify these against that kernel's headers.

const maxPlanes = 8

// MaxPlanes is the number of plane slots a multiplanar format/buffer
// struct carries (VIDEO_MAX_PLANES in videodev2.h).
const MaxPlanes = maxPlanes

type Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

var _ [0]struct{} = [unsafe.Sizeof(Capability{}) - 104]struct{}{}

type PlanePixFormat struct {
	SizeImage    uint32
	BytesPerLine uint32
	Reserved     [6]uint16
}

var _ [0]struct{} = [unsafe.Sizeof(PlanePixFormat{}) - 20]struct{}{}

type PixFormatMplane struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	Colorspace   uint32
	PlaneFmt     [maxPlanes]PlanePixFormat
	NumPlanes    uint8
	Flags        uint8
	YcbcrEnc     uint8
	Quantization uint8
	XferFunc     uint8
	Reserved     [7]uint8
}

var _ [0]struct{} = [unsafe.Sizeof(PixFormatMplane{}) - 192]struct{}{}

// FormatMplane is v4l2_format with the fmt union resolved to pix_mp; the
// remaining union slack is padded to match the union's documented size.
type FormatMplane struct {
	Type  uint32
	PixMP PixFormatMplane
	_     [8]byte
}

var _ [0]struct{} = [unsafe.Sizeof(FormatMplane{}) - 204]struct{}{}

type RequestBuffers struct {
	Count        uint32
	Type         uint32
	Memory       uint32
	Capabilities uint32
	Flags        uint8
	Reserved     [3]uint8
}

var _ [0]struct{} = [unsafe.Sizeof(RequestBuffers{}) - 20]struct{}{}

// Plane is v4l2_plane. M holds the union of mem_offset/userptr/fd; for
// MMAP memory only the low 32 bits (mem_offset) are meaningful, for
// DMABUF memory only the low 32 bits interpreted as a signed fd.
type Plane struct {
	BytesUsed  uint32
	Length     uint32
	M          uint64
	DataOffset uint32
	Reserved   [11]uint32
}

var _ [0]struct{} = [unsafe.Sizeof(Plane{}) - 64]struct{}{}

type timeval struct {
	Sec  int64
	Usec int64
}

type timecode struct {
	Type     uint32
	Flags    uint32
	Frames   uint32
	Seconds  uint32
	Minutes  uint32
	Hours    uint32
	UserBits [4]uint8
}

// BufferMplane is v4l2_buffer for a multiplanar queue; M holds the
// address of a caller-owned []Plane array of length NumPlanes (one entry
// per coded or decoded plane).
type BufferMplane struct {
	Index     uint32
	Type      uint32
	BytesUsed uint32
	Flags     uint32
	Field     uint32
	Timestamp timeval
	Timecode  timecode
	Sequence  uint32
	Memory    uint32
	M         uint64 // holds *Plane (array of NumPlanes) for mplane types
	Length    uint32 // NumPlanes when multiplanar
	Reserved2 uint32
	RequestFD int32
}

var _ [0]struct{} = [unsafe.Sizeof(BufferMplane{}) - 104]struct{}{}

// ExtControl is v4l2_ext_control; Ptr carries the address of a compound
// control payload (SPS/PPS/slice-params/decode-params struct) for
// controls whose size exceeds the inline s32/s64 union members.
type ExtControl struct {
	ID       uint32
	Size     uint32
	Reserved uint32
	Ptr      uint64
}

var _ [0]struct{} = [unsafe.Sizeof(ExtControl{}) - 24]struct{}{}

// ExtControls is v4l2_ext_controls, the envelope for VIDIOC_S_EXT_CTRLS.
type ExtControls struct {
	Which     uint32
	Count     uint32
	ErrorIdx  uint32
	RequestFD int32
	Reserved  [1]uint32
	Controls  uint64 // *ExtControl array of length Count
}

var _ [0]struct{} = [unsafe.Sizeof(ExtControls{}) - 32]struct{}{}

// Control is v4l2_control, for the two device-wide simple controls
// (decode mode, start-code mode).
type Control struct {
	ID    uint32
	Value int32
}

var _ [0]struct{} = [unsafe.Sizeof(Control{}) - 8]struct{}{}
