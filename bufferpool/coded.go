// Package bufferpool manages the memory-mapped coded-input queue and the
// DMA-BUF-backed decoded-output queue of a V4L2 stateless decoder,
// tracking each slot's state the way internal/ingest.Registry tracks
// active streams: a mutex-guarded per-slot state slice, rather than a
// channel-per-slot scheme.
package bufferpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kestrelav/stateless264/internal/kioctl"
)

// ensureFreePollInterval is the backoff between free-slot checks in
// EnsureFree, mirroring spec.md section 5's "retry on EAGAIN with a short
// sleep (~1ms), bounded attempts" — reinterpreted here as a state poll
// since slot reclamation itself is owned by the decode loop's dedicated
// reaper goroutine rather than by EnsureFree's caller (see DESIGN.md).
const ensureFreePollInterval = time.Millisecond

// slotState is the lifecycle of one coded-input buffer slot.
type slotState int

const (
	slotFree slotState = iota
	slotQueued
	slotDone
)

// CodedPool is the memory-mapped OUTPUT multiplanar queue carrying
// Annex-B access units into the decoder, one NAL-delimited access unit
// per buffer per spec.md's frame-based decode mode.
type CodedPool struct {
	log *slog.Logger
	fd  int

	mu     sync.Mutex
	mmaps  [][]byte
	states []slotState
}

// NewCodedPool constructs a CodedPool bound to fd. Call Init before use.
func NewCodedPool(fd int, log *slog.Logger) *CodedPool {
	if log == nil {
		log = slog.Default()
	}
	return &CodedPool{log: log.With("component", "bufferpool.coded"), fd: fd}
}

// Init requests count MMAP buffers on the OUTPUT multiplanar queue and
// maps each one into the process.
func (p *CodedPool) Init(count int) error {
	rb := kioctl.RequestBuffers{
		Count:  uint32(count),
		Type:   kioctl.BufTypeVideoOutputMplane,
		Memory: kioctl.MemoryMMAP,
	}
	if err := kioctl.Ioctl(p.fd, kioctl.VidiocReqbufs, uintptr(unsafe.Pointer(&rb))); err != nil {
		return fmt.Errorf("bufferpool: REQBUFS coded: %w", err)
	}

	n := int(rb.Count)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mmaps = make([][]byte, n)
	p.states = make([]slotState, n)

	for i := 0; i < n; i++ {
		var planes [1]kioctl.Plane
		buf := kioctl.BufferMplane{
			Index:  uint32(i),
			Type:   kioctl.BufTypeVideoOutputMplane,
			Memory: kioctl.MemoryMMAP,
			M:      uint64(uintptr(unsafe.Pointer(&planes[0]))),
			Length: 1,
		}
		if err := kioctl.Ioctl(p.fd, kioctl.VidiocQuerybuf, uintptr(unsafe.Pointer(&buf))); err != nil {
			return fmt.Errorf("bufferpool: QUERYBUF coded[%d]: %w", i, err)
		}

		mapping, err := unix.Mmap(p.fd, int64(uint32(planes[0].M)), int(planes[0].Length),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return fmt.Errorf("bufferpool: mmap coded[%d]: %w", i, err)
		}
		p.mmaps[i] = mapping
	}
	p.log.Debug("coded pool initialized", "slots", n)
	return nil
}

// EnsureFree blocks until at least one coded-input slot is free, or ctx
// is canceled. Slots become free as the decode loop's reaper goroutine
// reclaims buffers the device has finished consuming.
func (p *CodedPool) EnsureFree(ctx context.Context) (int, error) {
	for {
		if i, ok := p.freeSlot(); ok {
			return i, nil
		}
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-time.After(ensureFreePollInterval):
		}
	}
}

func (p *CodedPool) freeSlot() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.states {
		if s == slotFree {
			return i, true
		}
	}
	return 0, false
}

// WriteAndQueue copies data (one complete Annex-B access unit) into slot
// index's mapped memory and submits it to the device via QBUF,
// associating it with the media request identified by requestFD.
func (p *CodedPool) WriteAndQueue(index int, data []byte, requestFD int32) error {
	p.mu.Lock()
	mapping := p.mmaps[index]
	p.mu.Unlock()

	if len(data) > len(mapping) {
		return fmt.Errorf("bufferpool: access unit (%d bytes) exceeds coded slot size (%d bytes)", len(data), len(mapping))
	}
	copy(mapping, data)

	var planes [1]kioctl.Plane
	planes[0].BytesUsed = uint32(len(data))
	planes[0].Length = uint32(len(mapping))

	buf := kioctl.BufferMplane{
		Index:     uint32(index),
		Type:      kioctl.BufTypeVideoOutputMplane,
		Memory:    kioctl.MemoryMMAP,
		M:         uint64(uintptr(unsafe.Pointer(&planes[0]))),
		Length:    1,
		RequestFD: requestFD,
	}
	if err := kioctl.Ioctl(p.fd, kioctl.VidiocQbuf, uintptr(unsafe.Pointer(&buf))); err != nil {
		return fmt.Errorf("bufferpool: QBUF coded[%d]: %w", index, err)
	}

	p.mu.Lock()
	p.states[index] = slotQueued
	p.mu.Unlock()
	return nil
}

// Reclaim dequeues any coded buffers the device has finished consuming,
// marking their slots free for reuse, without blocking if none are
// ready.
func (p *CodedPool) Reclaim() (int, error) {
	var planes [1]kioctl.Plane
	buf := kioctl.BufferMplane{
		Type:   kioctl.BufTypeVideoOutputMplane,
		Memory: kioctl.MemoryMMAP,
		M:      uint64(uintptr(unsafe.Pointer(&planes[0]))),
		Length: 1,
	}
	if err := kioctl.Ioctl(p.fd, kioctl.VidiocDqbuf, uintptr(unsafe.Pointer(&buf))); err != nil {
		if kioctl.IsAgain(err) {
			return -1, nil
		}
		return -1, fmt.Errorf("bufferpool: DQBUF coded: %w", err)
	}

	p.mu.Lock()
	p.states[buf.Index] = slotFree
	p.mu.Unlock()
	return int(buf.Index), nil
}

// Close unmaps every coded slot.
func (p *CodedPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for i, m := range p.mmaps {
		if m == nil {
			continue
		}
		if err := unix.Munmap(m); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("bufferpool: munmap coded[%d]: %w", i, err)
		}
	}
	return firstErr
}
