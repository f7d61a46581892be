// Package kioctl encodes the V4L2 and media-controller ioctl commands used
// by the device and bufferpool packages, and defines the raw kernel struct
// layouts those ioctls operate on. It deliberately avoids cgo: command
// numbers are computed the way <asm-generic/ioctl.h> computes them, and
// struct layouts are hand-laid-out Go structs whose size is checked
// against the documented kernel ABI at compile time.
package kioctl

import "golang.org/x/sys/unix"

// ioctl direction/number/type/size bit layout from <asm-generic/ioctl.h>.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNumberBits = 8
	iocTypeBits   = 8
	iocSizeBits   = 14

	numberPos = 0
	typePos   = numberPos + iocNumberBits
	sizePos   = typePos + iocTypeBits
	opPos     = sizePos + iocSizeBits
)

func ioEnc(mode, typ, number, size uintptr) uintptr {
	return (mode << opPos) | (typ << typePos) | (number << numberPos) | (size << sizePos)
}

func ioEncNone(typ, number uintptr) uintptr {
	return ioEnc(iocNone, typ, number, 0)
}

func ioEncR(typ, number, size uintptr) uintptr {
	return ioEnc(iocRead, typ, number, size)
}

func ioEncW(typ, number, size uintptr) uintptr {
	return ioEnc(iocWrite, typ, number, size)
}

func ioEncRW(typ, number, size uintptr) uintptr {
	return ioEnc(iocRead|iocWrite, typ, number, size)
}

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Ioctl issues request against fd with arg pointing at the kernel's
// expected payload struct. Callers pass unsafe.Pointer(&struct) as arg.
func Ioctl(fd int, request uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// IsAgain reports whether err is the kernel's EAGAIN, which the buffer
// pools treat as "no buffer ready to dequeue yet" rather than a failure.
func IsAgain(err error) bool {
	return err == unix.EAGAIN
}
