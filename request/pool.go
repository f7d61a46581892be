// Package request manages a fixed-size pool of Linux media-controller
// request file descriptors, the per-frame control+buffer bundling
// mechanism a stateless V4L2 decoder uses to pair one access unit's
// SPS/PPS/slice/decode-params controls with the coded buffer they
// describe.
package request

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kestrelav/stateless264/internal/kioctl"
)

// Pool hands out and reclaims media request handles, sized once at
// construction per config.Options.RequestPoolSize.
type Pool struct {
	mediaFD int
	free    chan *Request
}

// Request is one allocated media-controller request, accumulating
// extended controls before being queued alongside its coded buffer.
type Request struct {
	fd       int32
	pool     *Pool
	controls []kioctl.ExtControl
	payloads []unsafe.Pointer // keeps control payload structs alive until Submit
}

// NewPool allocates size request handles against the media controller
// device at mediaFD.
func NewPool(mediaFD int, size int) (*Pool, error) {
	p := &Pool{mediaFD: mediaFD, free: make(chan *Request, size)}
	for i := 0; i < size; i++ {
		var fd int32
		if err := kioctl.Ioctl(mediaFD, kioctl.MediaIocRequestAlloc, uintptr(unsafe.Pointer(&fd))); err != nil {
			return nil, fmt.Errorf("request: MEDIA_IOC_REQUEST_ALLOC: %w", err)
		}
		p.free <- &Request{fd: fd, pool: p}
	}
	return p, nil
}

// Acquire blocks until a request handle is available.
func (p *Pool) Acquire() (*Request, error) {
	r, ok := <-p.free
	if !ok {
		return nil, fmt.Errorf("request: pool closed")
	}
	r.controls = r.controls[:0]
	r.payloads = r.payloads[:0]
	return r, nil
}

// Close releases every request file descriptor in the pool. Requests
// currently on loan are not reclaimed.
func (p *Pool) Close() error {
	close(p.free)
	var firstErr error
	for r := range p.free {
		if err := unix.Close(int(r.fd)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FD returns the underlying request file descriptor, for use as the
// RequestFD field of a coded buffer queued alongside this request's
// controls.
func (r *Request) FD() int32 { return r.fd }

// AddControl stages one extended control (an SPS/PPS/slice-params/
// decode-params payload built by the control package) for this request.
// payload must remain referenced by the caller until Submit returns.
func (r *Request) AddControl(id uint32, payload unsafe.Pointer, size uint32) {
	r.controls = append(r.controls, kioctl.ExtControl{
		ID:   id,
		Size: size,
		Ptr:  uint64(uintptr(payload)),
	})
	r.payloads = append(r.payloads, payload)
}

// Submit issues VIDIOC_S_EXT_CTRLS on deviceFD for every staged control,
// tagged with this request's file descriptor, then queues the request
// via MEDIA_REQUEST_IOC_QUEUE.
func (r *Request) Submit(deviceFD int) error {
	if len(r.controls) == 0 {
		return fmt.Errorf("request: submit with no staged controls")
	}
	ec := kioctl.ExtControls{
		Which:     0, // V4L2_CTRL_WHICH_CUR_VAL
		Count:     uint32(len(r.controls)),
		RequestFD: r.fd,
		Controls:  uint64(uintptr(unsafe.Pointer(&r.controls[0]))),
	}
	if err := kioctl.Ioctl(deviceFD, kioctl.VidiocSExtCtrls, uintptr(unsafe.Pointer(&ec))); err != nil {
		return fmt.Errorf("request: S_EXT_CTRLS: %w", err)
	}
	if err := kioctl.Ioctl(int(r.fd), kioctl.MediaRequestIocQueue, 0); err != nil {
		return fmt.Errorf("request: MEDIA_REQUEST_IOC_QUEUE: %w", err)
	}
	return nil
}

// Reinit re-arms this request for reuse after the kernel has completed
// it, then returns it to the pool.
func (r *Request) Reinit() error {
	if err := kioctl.Ioctl(int(r.fd), kioctl.MediaRequestIocReinit, 0); err != nil {
		return fmt.Errorf("request: MEDIA_REQUEST_IOC_REINIT: %w", err)
	}
	r.pool.free <- r
	return nil
}
