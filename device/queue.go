package device

import (
	"fmt"
	"unsafe"

	"github.com/kestrelav/stateless264/internal/kioctl"
)

// streamOn issues VIDIOC_STREAMON for bufType.
func streamOn(fd int, bufType uint32) error {
	t := int32(bufType)
	if err := kioctl.Ioctl(fd, kioctl.VidiocStreamon, uintptr(unsafe.Pointer(&t))); err != nil {
		return fmt.Errorf("device: STREAMON: %w", err)
	}
	return nil
}

// streamOff issues VIDIOC_STREAMOFF for bufType.
func streamOff(fd int, bufType uint32) error {
	t := int32(bufType)
	if err := kioctl.Ioctl(fd, kioctl.VidiocStreamoff, uintptr(unsafe.Pointer(&t))); err != nil {
		return fmt.Errorf("device: STREAMOFF: %w", err)
	}
	return nil
}

// StreamOnCoded starts streaming on the OUTPUT multiplanar queue.
func (d *Device) StreamOnCoded() error { return streamOn(d.fd, kioctl.BufTypeVideoOutputMplane) }

// StreamOffCoded stops streaming on the OUTPUT multiplanar queue.
func (d *Device) StreamOffCoded() error { return streamOff(d.fd, kioctl.BufTypeVideoOutputMplane) }

// StreamOnDecoded starts streaming on the CAPTURE multiplanar queue.
func (d *Device) StreamOnDecoded() error { return streamOn(d.fd, kioctl.BufTypeVideoCaptureMplane) }

// StreamOffDecoded stops streaming on the CAPTURE multiplanar queue.
func (d *Device) StreamOffDecoded() error { return streamOff(d.fd, kioctl.BufTypeVideoCaptureMplane) }

// FD exposes the raw device file descriptor for callers (notably
// bufferpool and control) that must issue their own ioctls against the
// same queue the Device negotiated.
func (d *Device) FD() int { return d.fd }
