// Package device wraps a V4L2 stateless-decoder character device: opening
// it, negotiating coded/decoded formats, selecting frame-based Annex-B
// decode mode, and constructing the coded/decoded buffer pools and
// request pool bound to it.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kestrelav/stateless264/bufferpool"
	"github.com/kestrelav/stateless264/internal/kioctl"
	"github.com/kestrelav/stateless264/request"
)

// ErrDeviceUnsupported is returned when the device rejects a mode-setting
// control (decode mode, start-code mode) or a format negotiation,
// indicating it does not support stateless frame-based Annex-B decode.
var ErrDeviceUnsupported = errors.New("device: unsupported mode or format")

// FourCC is a V4L2 four-character pixel format code.
type FourCC uint32

// Capability reports the device's self-described driver/card identity.
type Capability struct {
	Driver string
	Card   string
	Bus    string
}

// NegotiatedFormat carries the device-returned format parameters for a
// queue. Callers must size buffers from these, not from the values they
// requested, since the device may pad or otherwise adjust them.
type NegotiatedFormat struct {
	Width        int
	Height       int
	PixelFormat  FourCC
	NumPlanes    int
	BytesPerLine [kioctl.MaxPlanes]uint32
	SizeImage    [kioctl.MaxPlanes]uint32
}

// Device is an open V4L2 stateless H.264 decoder.
type Device struct {
	log     *slog.Logger
	fd      int
	mediaFD int
}

// Open opens the V4L2 device node at path. If log is nil, slog.Default()
// is used.
func Open(path string, log *slog.Logger) (*Device, error) {
	if log == nil {
		log = slog.Default()
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return &Device{
		log: log.With("component", "device", "path", path),
		fd:  fd,
	}, nil
}

// Close releases the device and media-controller file descriptors.
func (d *Device) Close() error {
	if d.mediaFD != 0 {
		unix.Close(d.mediaFD)
	}
	return unix.Close(d.fd)
}

// Capability queries the device's driver identity.
func (d *Device) Capability() (Capability, error) {
	var cap kioctl.Capability
	if err := kioctl.Ioctl(d.fd, kioctl.VidiocQuerycap, uintptr(unsafe.Pointer(&cap))); err != nil {
		return Capability{}, fmt.Errorf("device: QUERYCAP: %w", err)
	}
	return Capability{
		Driver: cString(cap.Driver[:]),
		Card:   cString(cap.Card[:]),
		Bus:    cString(cap.BusInfo[:]),
	}, nil
}

// EnumerateInputFormats lists the pixel formats the OUTPUT (coded-input)
// multiplanar queue advertises.
func (d *Device) EnumerateInputFormats() ([]FourCC, error) {
	var formats []FourCC
	for idx := uint32(0); ; idx++ {
		desc := struct {
			Index       uint32
			Type        uint32
			Flags       uint32
			Description [32]byte
			PixelFormat uint32
			Reserved    [4]uint32
		}{Index: idx, Type: kioctl.BufTypeVideoOutputMplane}

		err := kioctl.Ioctl(d.fd, kioctl.VidiocEnumFmt, uintptr(unsafe.Pointer(&desc)))
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				break
			}
			return nil, fmt.Errorf("device: ENUM_FMT: %w", err)
		}
		formats = append(formats, FourCC(desc.PixelFormat))
	}
	return formats, nil
}

// SetCodedFormat negotiates the OUTPUT multiplanar format to
// PixFmtH264Slice at width x height and returns the device-negotiated
// parameters.
func (d *Device) SetCodedFormat(width, height int) (NegotiatedFormat, error) {
	return d.setFormat(kioctl.BufTypeVideoOutputMplane, kioctl.PixFmtH264Slice, width, height)
}

// SetDecodedFormat negotiates the CAPTURE multiplanar format to fourcc at
// width x height and returns the device-negotiated parameters.
func (d *Device) SetDecodedFormat(fourcc FourCC, width, height int) (NegotiatedFormat, error) {
	return d.setFormat(kioctl.BufTypeVideoCaptureMplane, uint32(fourcc), width, height)
}

func (d *Device) setFormat(bufType, pixFmt uint32, width, height int) (NegotiatedFormat, error) {
	var f kioctl.FormatMplane
	f.Type = bufType
	f.PixMP.Width = uint32(width)
	f.PixMP.Height = uint32(height)
	f.PixMP.PixelFormat = pixFmt
	f.PixMP.NumPlanes = 1

	if err := kioctl.Ioctl(d.fd, kioctl.VidiocSFmt, uintptr(unsafe.Pointer(&f))); err != nil {
		return NegotiatedFormat{}, fmt.Errorf("device: S_FMT: %w: %w", ErrDeviceUnsupported, err)
	}

	var nf NegotiatedFormat
	nf.Width = int(f.PixMP.Width)
	nf.Height = int(f.PixMP.Height)
	nf.PixelFormat = FourCC(f.PixMP.PixelFormat)
	nf.NumPlanes = int(f.PixMP.NumPlanes)
	for i := 0; i < nf.NumPlanes && i < kioctl.MaxPlanes; i++ {
		nf.BytesPerLine[i] = f.PixMP.PlaneFmt[i].BytesPerLine
		nf.SizeImage[i] = f.PixMP.PlaneFmt[i].SizeImage
	}
	return nf, nil
}

// SetDecodeMode sets the device-wide FRAME_BASED stateless decode mode.
func (d *Device) SetDecodeMode() error {
	return d.setSimpleControl(kioctl.CtrlH264DecodeMode, kioctl.H264DecodeModeFrameBased)
}

// SetStartCodeMode sets the device-wide ANNEX_B start-code mode.
func (d *Device) SetStartCodeMode() error {
	return d.setSimpleControl(kioctl.CtrlH264StartCode, kioctl.H264StartCodeAnnexB)
}

func (d *Device) setSimpleControl(id uint32, value int32) error {
	ctrl := kioctl.Control{ID: id, Value: value}
	if err := kioctl.Ioctl(d.fd, kioctl.VidiocSCtrl, uintptr(unsafe.Pointer(&ctrl))); err != nil {
		return fmt.Errorf("device: S_CTRL id=%#x: %w: %w", id, ErrDeviceUnsupported, err)
	}
	return nil
}

// BindMediaController opens the media-controller device at path, used by
// the request pool to allocate per-frame request handles.
func (d *Device) BindMediaController(path string) error {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("device: open media controller %s: %w", path, err)
	}
	d.mediaFD = fd
	return nil
}

// NewCodedQueue requests count coded-input buffers on the OUTPUT
// multiplanar queue and returns a memory-mapped pool over them.
func (d *Device) NewCodedQueue(count int) (*bufferpool.CodedPool, error) {
	pool := bufferpool.NewCodedPool(d.fd, d.log)
	if err := pool.Init(count); err != nil {
		return nil, err
	}
	return pool, nil
}

// NewDecodedQueue prepares a DMA-BUF-backed decoded pool on the CAPTURE
// multiplanar queue. Callers must still call InitDMABuf with externally
// produced buffers before streaming.
func (d *Device) NewDecodedQueue(count int) (*bufferpool.DecodedPool, error) {
	return bufferpool.NewDecodedPool(d.fd, count, d.log), nil
}

// RequestPool allocates a request.Pool of size bound to the media
// controller device previously registered with BindMediaController.
func (d *Device) RequestPool(size int) (*request.Pool, error) {
	if d.mediaFD == 0 {
		return nil, errors.New("device: BindMediaController was not called")
	}
	return request.NewPool(d.mediaFD, size)
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
