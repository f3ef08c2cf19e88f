// Pipeline stages (C11): source, frame processor, inter-frame processor,
// sink, each implementing the generic init/params/start/process/next/finish
// interface of spec §4.10, wired into a ring by Topology per spec §4.11.
package video

import (
	"context"
	"sync"

	"github.com/cvpg/imageproc/pkg/pool"
	"github.com/cvpg/imageproc/pkg/scripting"
)

// Callbacks is the bundle carried between stages (spec §4.10).
type Callbacks struct {
	Initialized func()
	Parameters  func(map[string]interface{})
	Deliver     func(Packet)
	Next        func(credit int)
	Finished    func()
	Failed      func(err error)
	Update      func(message string)
}

// Stage is the generic pipeline stage interface of spec §4.10.
type Stage interface {
	Init(ctx context.Context, contextID string, params map[string]interface{}, cb Callbacks)
	Params(params map[string]interface{})
	Start()
	Process(pkt Packet)
	Next(credit int)
	Finish()
}

// --- Source ---

// Source emits pre-decoded frames (the external demuxer is out of scope
// per spec §1); tests and the CLI supply the frame sequence directly.
// Frames are grouped into packets of at most MaxFramesReadBuffer and pushed
// through a StageDataHandler so that downstream credit throttles emission.
type Source struct {
	Frames              []Frame
	MaxFramesReadBuffer int
	MaxStoredEntries    int

	cb      Callbacks
	handler *StageDataHandler
	pos     int
}

func (s *Source) Init(ctx context.Context, contextID string, params map[string]interface{}, cb Callbacks) {
	s.cb = cb
	s.handler = NewStageDataHandler("source", s.MaxStoredEntries)
	s.handler.OnDeliverable = func() int { return 0 } // credit arrives via Next
	s.handler.Deliver = func(items []Frame) {
		s.cb.Deliver(Packet{Frames: items})
	}
	if cb.Initialized != nil {
		cb.Initialized()
	}
}

func (s *Source) Params(params map[string]interface{}) {
	if s.cb.Parameters != nil {
		s.cb.Parameters(params)
	}
}

func (s *Source) Start() {
	s.pushBatch()
}

func (s *Source) Process(pkt Packet) {}

func (s *Source) Next(credit int) {
	s.handler.OnDeliverable = func() int { return credit }
	s.handler.tryFlush()
	s.pushBatch()
}

func (s *Source) Finish() {}

func (s *Source) pushBatch() {
	n := s.MaxFramesReadBuffer
	if n <= 0 {
		n = 1
	}
	end := s.pos + n
	if end > len(s.Frames) {
		end = len(s.Frames)
	}
	batch := s.Frames[s.pos:end]
	s.pos = end
	for _, frame := range batch {
		s.handler.Add(frame)
	}
}

// --- Frame processor ---

// FrameProcessor runs a compiled per-frame script over each frame's image
// via the image processor (C8). Process evaluates the frames of a packet
// one after another, synchronously; its StageDataHandler still releases
// them strictly by frame number (spec §4.10).
type FrameProcessor struct {
	Processor        *scripting.Processor
	Pool             *pool.Pool
	CompileID        scripting.CompileID
	MaxStoredEntries int

	cb      Callbacks
	handler *StageDataHandler
	credit  int
	mu      sync.Mutex
}

func (fp *FrameProcessor) Init(ctx context.Context, contextID string, params map[string]interface{}, cb Callbacks) {
	fp.cb = cb
	fp.handler = NewStageDataHandler("frame-processor", fp.MaxStoredEntries)
	fp.handler.OnDeliverable = func() int {
		fp.mu.Lock()
		defer fp.mu.Unlock()
		return fp.credit
	}
	fp.handler.Deliver = func(items []Frame) {
		fp.cb.Deliver(Packet{Frames: items})
	}
	fp.handler.OnTriggerNew = func() {
		if fp.cb.Next != nil {
			fp.cb.Next(1)
		}
	}
	if cb.Initialized != nil {
		cb.Initialized()
	}
}

func (fp *FrameProcessor) Params(params map[string]interface{}) {
	if fp.cb.Parameters != nil {
		fp.cb.Parameters(params)
	}
}

func (fp *FrameProcessor) Start() {}

func (fp *FrameProcessor) Process(pkt Packet) {
	ctx := context.Background()
	for _, frame := range pkt.Frames {
		if frame.Flush {
			fp.handler.Add(frame)
			continue
		}

		frame := frame
		fp.Processor.EvaluateConvertIf(ctx, fp.CompileID, frame.Image, func(v scripting.Value, err error) {
			if err != nil {
				if fp.cb.Failed != nil {
					fp.cb.Failed(err)
				}
				return
			}
			fp.handler.Add(Frame{Number: frame.Number, Image: v.Image})
		})
	}
}

func (fp *FrameProcessor) Next(credit int) {
	fp.mu.Lock()
	fp.credit = credit
	fp.mu.Unlock()
	fp.handler.tryFlush()
}

func (fp *FrameProcessor) Finish() {}

// --- Inter-frame processor ---

// InterFrameProcessor runs a second script over a small in-order window of
// already-frame-processed frames (operations may reference the previous
// frame's output). Same data-handler discipline as FrameProcessor.
type InterFrameProcessor struct {
	Processor        *scripting.Processor
	Pool             *pool.Pool
	CompileID        scripting.CompileID
	MaxStoredEntries int

	cb      Callbacks
	handler *StageDataHandler
	credit  int
	mu      sync.Mutex
	prev    *Frame
}

func (ip *InterFrameProcessor) Init(ctx context.Context, contextID string, params map[string]interface{}, cb Callbacks) {
	ip.cb = cb
	ip.handler = NewStageDataHandler("inter-frame-processor", ip.MaxStoredEntries)
	ip.handler.OnDeliverable = func() int {
		ip.mu.Lock()
		defer ip.mu.Unlock()
		return ip.credit
	}
	ip.handler.Deliver = func(items []Frame) {
		ip.cb.Deliver(Packet{Frames: items})
	}
	ip.handler.OnTriggerNew = func() {
		if ip.cb.Next != nil {
			ip.cb.Next(1)
		}
	}
	if cb.Initialized != nil {
		cb.Initialized()
	}
}

func (ip *InterFrameProcessor) Params(params map[string]interface{}) {
	if ip.cb.Parameters != nil {
		ip.cb.Parameters(params)
	}
}

func (ip *InterFrameProcessor) Start() {}

func (ip *InterFrameProcessor) Process(pkt Packet) {
	ctx := context.Background()
	for _, frame := range pkt.Frames {
		if frame.Flush {
			ip.handler.Add(frame)
			continue
		}

		if ip.CompileID == "" || ip.prev == nil {
			ip.prev = &frame
			ip.handler.Add(frame)
			continue
		}

		prev := *ip.prev
		ip.prev = &frame
		ip.Processor.Evaluate2(ctx, ip.CompileID, prev.Image, frame.Image, func(v scripting.Value, err error) {
			if err != nil {
				if ip.cb.Failed != nil {
					ip.cb.Failed(err)
				}
				return
			}
			ip.handler.Add(Frame{Number: frame.Number, Image: v.Image})
		})
	}
}

func (ip *InterFrameProcessor) Next(credit int) {
	ip.mu.Lock()
	ip.credit = credit
	ip.mu.Unlock()
	ip.handler.tryFlush()
}

func (ip *InterFrameProcessor) Finish() {}

// --- Sink ---

// Sink accepts packets in order, writes frames (captured in Written for
// tests / a real muxer outside this scope), and calls Finished once the
// flush packet has been fully written. Writes batch up to
// MaxFramesWriteBuffer.
type Sink struct {
	MaxFramesWriteBuffer int

	cb      Callbacks
	Written []Frame
	flushed bool
	mu      sync.Mutex
}

func (sk *Sink) Init(ctx context.Context, contextID string, params map[string]interface{}, cb Callbacks) {
	sk.cb = cb
	if cb.Initialized != nil {
		cb.Initialized()
	}
}

func (sk *Sink) Params(params map[string]interface{}) {
	if sk.cb.Parameters != nil {
		sk.cb.Parameters(params)
	}
}

func (sk *Sink) Start() {
	if sk.cb.Next != nil {
		sk.cb.Next(sk.MaxFramesWriteBuffer)
	}
}

func (sk *Sink) Process(pkt Packet) {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	for _, frame := range pkt.Frames {
		if frame.Flush {
			sk.flushed = true
			if sk.cb.Finished != nil {
				sk.cb.Finished()
			}
			continue
		}
		sk.Written = append(sk.Written, frame)
	}

	if !sk.flushed && sk.cb.Next != nil {
		sk.cb.Next(sk.MaxFramesWriteBuffer)
	}
}

func (sk *Sink) Next(credit int) {}

func (sk *Sink) Finish() {
	if sk.cb.Finished != nil {
		sk.cb.Finished()
	}
}

// --- Topology ---

// Topology wires one Source, FrameProcessor, InterFrameProcessor and Sink
// into a ring: each stage's deliver calls the next stage's Process and each
// next calls the previous stage's Next. No finished callback is wired
// between stages; the sink recognizes the end of the stream by the flush
// frame it receives. It
// inits all four, then (once the last reports initialized) starts all four
// in reverse order — sink first, source last — so the downstream chain is
// ready before the source pushes (spec §4.11).
type Topology struct {
	Source              *Source
	FrameProcessor      *FrameProcessor
	InterFrameProcessor *InterFrameProcessor
	Sink                *Sink

	readyCount int
	mu         sync.Mutex
}

// Start wires callbacks, inits every stage, and starts them in reverse
// order once all four report initialized.
func (t *Topology) Start(ctx context.Context, contextID string, params map[string]interface{}) {
	onReady := func() {
		t.mu.Lock()
		t.readyCount++
		ready := t.readyCount == 4
		t.mu.Unlock()

		if ready {
			t.Sink.Start()
			t.InterFrameProcessor.Start()
			t.FrameProcessor.Start()
			t.Source.Start()
		}
	}

	t.Sink.Init(ctx, contextID, params, Callbacks{
		Initialized: onReady,
	})

	t.InterFrameProcessor.Init(ctx, contextID, params, Callbacks{
		Initialized: onReady,
		Deliver:     func(pkt Packet) { t.Sink.Process(pkt) },
		Next:        func(credit int) { t.FrameProcessor.Next(credit) },
	})
	t.Sink.cb.Next = func(credit int) { t.InterFrameProcessor.Next(credit) }

	t.FrameProcessor.Init(ctx, contextID, params, Callbacks{
		Initialized: onReady,
		Deliver:     func(pkt Packet) { t.InterFrameProcessor.Process(pkt) },
		Next:        func(credit int) { t.Source.Next(credit) },
	})

	t.Source.Init(ctx, contextID, params, Callbacks{
		Initialized: onReady,
		Deliver:     func(pkt Packet) { t.FrameProcessor.Process(pkt) },
	})
}
