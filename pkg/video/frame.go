// Package video implements the video pipeline: the frame/packet model (C9),
// the stage data handler (C10), and the four pipeline stages plus topology
// (C11). Grounded on spec §4.8-§4.11; original_source's videoproc/ sources
// were not available in the retrieved pack beyond their scripting-layer
// callers, so the frame/packet/stage contracts are implemented directly
// from spec's prose, in the teacher's plain-struct, explicit-callback
// idiom (pkg/executor's ProgressParser / callback-heavy style).
package video

import "github.com/cvpg/imageproc/pkg/pixel"

// Frame is an immutable record: either a data frame carrying an image, or a
// flush marker with no image (spec §3/§4.8).
type Frame struct {
	Number uint64
	Image  *pixel.Image
	Flush  bool
}

// NewFrame constructs a data frame.
func NewFrame(number uint64, image *pixel.Image) Frame {
	return Frame{Number: number, Image: image}
}

// FlushFrame constructs an end-of-stream marker frame.
func FlushFrame(number uint64) Frame {
	return Frame{Number: number, Flush: true}
}

// Less orders frames by number alone, per spec §4.8.
func (f Frame) Less(other Frame) bool {
	return f.Number < other.Number
}

// Packet groups frames handed from one stage to the next. The stages in
// this package build every packet with Number left at zero; frames within
// a packet are in ascending frame Number order.
type Packet struct {
	Number uint64
	Frames []Frame
	Failed bool
}

// IsFlush reports whether the packet contains at least one flush frame.
func (p Packet) IsFlush() bool {
	for _, f := range p.Frames {
		if f.Flush {
			return true
		}
	}
	return false
}
