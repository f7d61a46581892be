// Package decode drives a stateless V4L2 H.264 decode session: reading
// an Annex-B byte stream, segmenting it into NAL units, parsing
// parameter sets and slice headers, submitting one media request per
// access unit, and handing completed pictures to a share.Sharer.
package decode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelav/stateless264/annexb"
	"github.com/kestrelav/stateless264/bufferpool"
	"github.com/kestrelav/stateless264/config"
	"github.com/kestrelav/stateless264/control"
	"github.com/kestrelav/stateless264/device"
	"github.com/kestrelav/stateless264/dpb"
	"github.com/kestrelav/stateless264/h264"
	"github.com/kestrelav/stateless264/internal/kioctl"
	"github.com/kestrelav/stateless264/request"
	"github.com/kestrelav/stateless264/share"
)

// reaperPollTimeout is the select(2) granularity WaitReady blocks for on
// each poll, bounding how quickly the reaper notices cancellation per
// spec.md section 5 ("reaper poll has a timeout (1s)").
const reaperPollTimeout = time.Second

// Decoder drives a single decode session end to end: the producer
// goroutine parses the bitstream and submits requests, the reaper
// goroutine reclaims coded buffers and forwards decoded pictures,
// coordinated with errgroup the way cmd/prism/main.go coordinates its
// ingest/distribution/API goroutines.
type Decoder struct {
	log *slog.Logger
	opts config.Options

	dev     *device.Device
	coded   *bufferpool.CodedPool
	decoded *bufferpool.DecodedPool
	reqPool *request.Pool
	sharer  share.Sharer
	format  device.NegotiatedFormat

	st     *h264.StreamState
	dpbMgr *dpb.Manager

	framesSubmitted int

	// pendingReqMu guards pendingReqs, the coded-slot-index -> in-flight
	// request mapping the reaper consults to Reinit a request once its
	// coded buffer has been reclaimed (spec.md 4.F: a request is
	// reinitialized "after the decoder reports completion, before reuse").
	pendingReqMu sync.Mutex
	pendingReqs  map[int]*request.Request

	// framesDecoded backs the drain phase's idle-timeout
	// detection (spec.md section 4.I: "reset a deadline counter whenever
	// progress is made").
	progressMu    sync.Mutex
	framesDecoded int
}

// New constructs a Decoder over an already-negotiated device and its
// buffer/request pools. format is the device-negotiated decoded-output
// format (from device.Device.SetDecodedFormat) used to fill in each
// share.Frame's width/height/stride/pixel-format fields.
func New(dev *device.Device, coded *bufferpool.CodedPool, decoded *bufferpool.DecodedPool, reqPool *request.Pool, sharer share.Sharer, format device.NegotiatedFormat, opts config.Options, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		log:         log.With("component", "decode"),
		opts:        opts,
		dev:         dev,
		coded:       coded,
		decoded:     decoded,
		reqPool:     reqPool,
		sharer:      sharer,
		format:      format,
		st:          h264.NewStreamState(),
		pendingReqs: make(map[int]*request.Request),
	}
}

// Run reads Annex-B bytes from input until EOF or ctx is canceled,
// decoding every access unit it contains. It returns nil on a clean end
// of stream (after the drain phase observes no further forward progress
// for opts.DrainTimeout), or a *DecoderStreamException if the device
// rejected the stream partway through. Malformed NAL units are logged and
// skipped, not returned.
func (d *Decoder) Run(ctx context.Context, input io.Reader) error {
	g, gctx := errgroup.WithContext(ctx)
	// withStartCode=true: the device is programmed into ANNEX_B start-code
	// mode (device.SetStartCodeMode), so the coded buffer handed to the
	// kernel must carry the original start code, not just the NAL payload.
	seg := annexb.NewSegmenter(true)
	producerDone := make(chan struct{})

	g.Go(func() error {
		return d.readLoop(gctx, input, seg)
	})
	g.Go(func() error {
		defer close(producerDone)
		return d.parseAndSubmitLoop(gctx, seg)
	})
	g.Go(func() error {
		return d.reapLoop(gctx, producerDone)
	})

	return g.Wait()
}

// readLoop feeds raw bytes into the segmenter until EOF.
func (d *Decoder) readLoop(ctx context.Context, input io.Reader, seg *annexb.Segmenter) error {
	buf := make([]byte, d.opts.ReadChunkSize)
	for {
		if ctx.Err() != nil {
			seg.Complete()
			return ctx.Err()
		}
		n, err := input.Read(buf)
		if n > 0 {
			seg.Append(buf[:n])
		}
		if err == io.EOF {
			seg.Complete()
			return nil
		}
		if err != nil {
			seg.Complete()
			return fmt.Errorf("decode: reading input: %w", err)
		}
	}
}

// parseAndSubmitLoop consumes segmented NAL units, maintains parameter
// set and DPB state, and submits one media request per coded slice NAL.
func (d *Decoder) parseAndSubmitLoop(ctx context.Context, seg *annexb.Segmenter) error {
	for nal := range seg.Units() {
		if len(nal.Data) < nal.StartCodeLen+1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		header := nal.Data[nal.StartCodeLen]
		nalRefIdc := (header >> 5) & 0x03
		nalUnitType := int(header & 0x1F)
		payload := nal.Data[nal.StartCodeLen+1:]

		switch nalUnitType {
		case h264.NALTypeSPS:
			sps, err := h264.ParseSPS(payload)
			if err != nil {
				d.log.Warn("skipping malformed SPS", "error", err)
				continue
			}
			d.st.PutSPS(sps)
			d.dpbMgr = dpb.NewManager(sps.MaxNumRefFrames)

		case h264.NALTypePPS:
			pps, err := h264.ParsePPS(payload, d.st)
			if err != nil {
				d.log.Warn("skipping malformed PPS", "error", err)
				continue
			}
			d.st.PutPPS(pps)

		case h264.NALTypeSliceNonIDR, h264.NALTypeIDR:
			sh, err := h264.ParseSliceHeader(payload, int(nalRefIdc), nalUnitType, d.st)
			if err != nil {
				d.log.Warn("skipping malformed slice header", "error", err)
				continue
			}
			if sh.FirstMBInSlice != 0 {
				// Frame-based mode expects one whole picture per coded
				// buffer; the picture's first-slice NAL already carries
				// everything the device needs. Per spec.md 4.I, subsequent
				// slice NALs of the same picture are dropped.
				continue
			}
			if err := d.submitAccessUnit(ctx, nal.Data, sh, nalUnitType == h264.NALTypeIDR, uint16(nalRefIdc)); err != nil {
				d.progressMu.Lock()
				decoded := d.framesDecoded
				d.progressMu.Unlock()
				return &DecoderStreamException{Code: ExceptionDeviceFailure, FramesDecoded: decoded, Cause: err}
			}
		}
	}
	return nil
}

// submitAccessUnit stages SPS/PPS/slice/decode-params controls for one
// access unit, acquires a media request and a free coded-input slot, and
// submits both to the device.
func (d *Decoder) submitAccessUnit(ctx context.Context, data []byte, sh h264.SliceHeader, isIDR bool, nalRefIdc uint16) error {
	pps, ok := d.st.GetPPS(sh.PicParameterSetID)
	if !ok {
		return fmt.Errorf("decode: access unit references unknown pic_parameter_set_id %d", sh.PicParameterSetID)
	}
	sps, ok := d.st.GetSPS(pps.SeqParameterSetID)
	if !ok {
		return fmt.Errorf("decode: access unit references unknown seq_parameter_set_id %d", pps.SeqParameterSetID)
	}

	if isIDR && d.dpbMgr != nil {
		d.dpbMgr.OnIDR(sh.NoOutputOfPriorPicsFlag)
	}

	spsCtrl := control.BuildSPSControl(sps)
	ppsCtrl := control.BuildPPSControl(pps)
	sliceCtrl := control.BuildSliceParamsControl(sh, uint32(len(data))*8)

	var dpbSnapshot [kioctl.H264NumDPBEntries]kioctl.H264DPBEntry
	if d.dpbMgr != nil {
		for i, e := range d.dpbMgr.Snapshot() {
			if i >= len(dpbSnapshot) {
				break
			}
			flags := kioctl.H264DPBEntryFlagValid
			if e.Active {
				flags |= kioctl.H264DPBEntryFlagActive
			}
			if e.LongTerm {
				flags |= kioctl.H264DPBEntryFlagLongTerm
			}
			dpbSnapshot[i] = kioctl.H264DPBEntry{
				ReferenceTS:         e.ReferenceTS,
				PicNum:              e.PicNum,
				FrameNum:            uint16(e.FrameNum),
				TopFieldOrderCnt:    e.TopFieldOrderCnt,
				BottomFieldOrderCnt: e.BottomFieldOrderCnt,
				Flags:               flags,
			}
		}
	}
	decodeCtrl := control.BuildDecodeParamsControl(sh, isIDR, dpbSnapshot, uint16(sh.FrameNum), nalRefIdc)

	req, err := d.reqPool.Acquire()
	if err != nil {
		return err
	}

	req.AddControl(kioctl.CtrlH264SPS, ptrOf(&spsCtrl), uint32(ptrSize(spsCtrl)))
	req.AddControl(kioctl.CtrlH264PPS, ptrOf(&ppsCtrl), uint32(ptrSize(ppsCtrl)))
	req.AddControl(kioctl.CtrlH264SliceParams, ptrOf(&sliceCtrl), uint32(ptrSize(sliceCtrl)))
	req.AddControl(kioctl.CtrlH264DecodeParams, ptrOf(&decodeCtrl), uint32(ptrSize(decodeCtrl)))

	index, err := d.coded.EnsureFree(ctx)
	if err != nil {
		return fmt.Errorf("decode: waiting for a free coded buffer: %w", err)
	}
	if err := d.coded.WriteAndQueue(index, data, req.FD()); err != nil {
		return err
	}
	if err := req.Submit(d.dev.FD()); err != nil {
		return err
	}

	d.pendingReqMu.Lock()
	d.pendingReqs[index] = req
	d.pendingReqMu.Unlock()

	if d.dpbMgr != nil {
		d.dpbMgr.Push(sh, nalRefIdc != 0)
	}
	d.framesSubmitted++
	return nil
}

// reclaimCoded reclaims one coded buffer the device has finished
// consuming, if any, and reinitializes the media request that rode along
// with it so the request pool can hand it out again.
func (d *Decoder) reclaimCoded() error {
	index, err := d.coded.Reclaim()
	if err != nil {
		return fmt.Errorf("decode: reclaiming coded buffer: %w", err)
	}
	if index < 0 {
		return nil
	}

	d.pendingReqMu.Lock()
	req, ok := d.pendingReqs[index]
	delete(d.pendingReqs, index)
	d.pendingReqMu.Unlock()

	if !ok {
		return nil
	}
	if err := req.Reinit(); err != nil {
		return fmt.Errorf("decode: reinitializing request for coded slot %d: %w", index, err)
	}
	return nil
}

func (d *Decoder) recordProgress() {
	d.progressMu.Lock()
	d.framesDecoded++
	d.progressMu.Unlock()
}

// reapLoop reclaims coded buffers the device has finished with and
// forwards completed decoded pictures to the Sharer, until ctx is
// canceled. Once producerDone closes (the bitstream reached end of
// stream), it enters the bounded drain phase from spec.md 4.I: it keeps
// polling, resetting its idle deadline on every decoded picture, and
// returns once opts.DrainTimeout elapses with no further progress.
func (d *Decoder) reapLoop(ctx context.Context, producerDone <-chan struct{}) error {
	draining := false
	var deadline time.Time

	for {
		select {
		case <-producerDone:
			if !draining {
				draining = true
				deadline = time.Now().Add(d.opts.DrainTimeout)
			}
		default:
		}

		if ctx.Err() != nil {
			return nil
		}
		if draining && time.Now().After(deadline) {
			d.log.Debug("drain complete", "frames_decoded", d.framesDecoded)
			return nil
		}

		if err := d.reclaimCoded(); err != nil {
			return err
		}

		pollTimeout := reaperPollTimeout
		if draining {
			if remaining := time.Until(deadline); remaining < pollTimeout {
				pollTimeout = remaining
			}
			if pollTimeout < 0 {
				pollTimeout = 0
			}
		}
		index, ok, err := d.decoded.WaitReady(ctx, pollTimeout)
		if err != nil {
			return fmt.Errorf("decode: waiting for decoded picture: %w", err)
		}
		if !ok {
			continue
		}

		d.recordProgress()
		if draining {
			deadline = time.Now().Add(d.opts.DrainTimeout)
		}

		if d.sharer != nil {
			d.decoded.Loan(index)
			frame := share.NewFrame(index, d.format.Width, d.format.Height, uint32(d.format.PixelFormat),
				d.decoded.FDs(index), d.format.BytesPerLine[:d.format.NumPlanes], d.format.SizeImage[:d.format.NumPlanes],
				d.decoded.Recycle)
			if err := d.sharer.Share(frame); err != nil {
				return fmt.Errorf("decode: sharing decoded frame: %w", err)
			}
		} else {
			d.decoded.Loan(index)
			if err := d.decoded.Recycle(index); err != nil {
				return err
			}
		}
	}
}
