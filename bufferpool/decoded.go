package bufferpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kestrelav/stateless264/internal/kioctl"
)

// decodedState is the lifecycle of one decoded-output buffer slot.
type decodedState int

const (
	decodedUnregistered decodedState = iota
	decodedEnqueued
	decodedReady
	decodedOnLoan
)

// DecodedPool is the CAPTURE multiplanar queue the decoder writes
// reconstructed pictures into. It is DMA-BUF-backed: slots are imported
// from an external buffer producer (allocator, display pipeline) rather
// than allocated by this package, matching how a zero-copy consumer
// receives frames per spec.md's dma_buf sharing model.
type DecodedPool struct {
	log *slog.Logger
	fd  int

	mu     sync.Mutex
	fds    [][]int32 // per-slot, per-plane dma-buf fds
	states []decodedState
}

// NewDecodedPool constructs a DecodedPool bound to fd with room for count
// slots. Call InitDMABuf with externally produced buffer fds before
// streaming.
func NewDecodedPool(fd int, count int, log *slog.Logger) *DecodedPool {
	if log == nil {
		log = slog.Default()
	}
	return &DecodedPool{
		log:    log.With("component", "bufferpool.decoded"),
		fd:     fd,
		fds:    make([][]int32, count),
		states: make([]decodedState, count),
	}
}

// InitDMABuf requests count DMA-BUF buffers on the CAPTURE multiplanar
// queue and registers the externally produced per-slot, per-plane fds
// that back them.
func (p *DecodedPool) InitDMABuf(slotFDs [][]int32) error {
	rb := kioctl.RequestBuffers{
		Count:  uint32(len(slotFDs)),
		Type:   kioctl.BufTypeVideoCaptureMplane,
		Memory: kioctl.MemoryDMABUF,
	}
	if err := kioctl.Ioctl(p.fd, kioctl.VidiocReqbufs, uintptr(unsafe.Pointer(&rb))); err != nil {
		return fmt.Errorf("bufferpool: REQBUFS decoded: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fds = slotFDs
	p.states = make([]decodedState, len(slotFDs))
	p.log.Debug("decoded pool initialized", "slots", len(slotFDs))
	return nil
}

// EnqueueAll submits every registered slot to the device via QBUF, the
// usual pattern before VIDIOC_STREAMON on the CAPTURE queue.
func (p *DecodedPool) EnqueueAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, fds := range p.fds {
		if p.states[i] != decodedUnregistered {
			continue
		}
		if err := p.queueLocked(i, fds); err != nil {
			return err
		}
		p.states[i] = decodedEnqueued
	}
	return nil
}

func (p *DecodedPool) queueLocked(index int, fds []int32) error {
	planes := make([]kioctl.Plane, len(fds))
	for i, fd := range fds {
		planes[i].M = uint64(uint32(fd))
	}
	buf := kioctl.BufferMplane{
		Index:  uint32(index),
		Type:   kioctl.BufTypeVideoCaptureMplane,
		Memory: kioctl.MemoryDMABUF,
		M:      uint64(uintptr(unsafe.Pointer(&planes[0]))),
		Length: uint32(len(planes)),
	}
	if err := kioctl.Ioctl(p.fd, kioctl.VidiocQbuf, uintptr(unsafe.Pointer(&buf))); err != nil {
		return fmt.Errorf("bufferpool: QBUF decoded[%d]: %w", index, err)
	}
	return nil
}

// WaitReady polls the device for one completed decoded picture with
// select(2), at poll(≤1s)-granularity cancellation via ctx, per spec.md
// section 4.E. It returns ok=false (not an error) on a plain timeout;
// callers loop and re-check ctx themselves between calls.
func (p *DecodedPool) WaitReady(ctx context.Context, timeout time.Duration) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return -1, false, err
	}

	var fds unix.FdSet
	fdSetBit(&fds, p.fd)
	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	n, err := unix.Select(p.fd+1, &fds, nil, nil, &tv)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return -1, false, nil
		}
		return -1, false, fmt.Errorf("bufferpool: select decoded queue: %w", err)
	}
	if n == 0 {
		return -1, false, nil
	}

	var plane kioctl.Plane
	buf := kioctl.BufferMplane{
		Type:   kioctl.BufTypeVideoCaptureMplane,
		Memory: kioctl.MemoryDMABUF,
		M:      uint64(uintptr(unsafe.Pointer(&plane))),
		Length: 1,
	}
	if err := kioctl.Ioctl(p.fd, kioctl.VidiocDqbuf, uintptr(unsafe.Pointer(&buf))); err != nil {
		if kioctl.IsAgain(err) {
			return -1, false, nil
		}
		return -1, false, fmt.Errorf("bufferpool: DQBUF decoded: %w", err)
	}

	p.mu.Lock()
	p.states[buf.Index] = decodedReady
	p.mu.Unlock()
	return int(buf.Index), true, nil
}

// fdSetBit sets fd's bit in an unix.FdSet for select(2), following the
// word-size-aware indexing select(2) callers need on 64-bit Linux.
func fdSetBit(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

// FDs returns the per-plane DMA-BUF file descriptors backing slot index,
// a non-owning view the caller must not close.
func (p *DecodedPool) FDs(index int) []int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fds[index]
}

// Loan marks a ready slot as on loan to a consumer (via share.Sharer).
// The slot stays off the device queue until Recycle requeues it.
func (p *DecodedPool) Loan(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[index] = decodedOnLoan
}

// Recycle requeues slot index once the consumer is done with it.
func (p *DecodedPool) Recycle(index int) error {
	p.mu.Lock()
	fds := p.fds[index]
	p.mu.Unlock()

	if err := p.queueLocked(index, fds); err != nil {
		return err
	}
	p.mu.Lock()
	p.states[index] = decodedEnqueued
	p.mu.Unlock()
	return nil
}
