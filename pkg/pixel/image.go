// Package pixel implements the engine's multi-channel image buffer (C1):
// fixed width/height/padding, 1 or 3 channels, with shared-lifetime channel
// buffers so a gray image can be widened to RGB by duplicating the same
// channel reference three times instead of copying bytes. Grounded on
// original_source/src/libcvpg/core/image.hpp, whose channel_array_type is an
// array of shared_ptr<pixel_type> — Go's garbage-collected slices already
// give reference semantics, so a Channel here is simply an immutable,
// shared []byte wrapped so accidental mutation is caught early.
package pixel

import "github.com/cvpg/imageproc/pkg/pperr"

// Channel is an immutable, shareable pixel buffer for one color channel.
// Multiple Images may hold the same *Channel; nothing may mutate its Data
// after New returns.
type Channel struct {
	Data []byte
}

// NewChannel allocates a zero-filled channel of n bytes.
func NewChannel(n int) *Channel {
	return &Channel{Data: make([]byte, n)}
}

// NewChannelFrom wraps an existing byte slice as a channel without copying.
// Callers must not retain a mutable alias to data afterwards.
func NewChannelFrom(data []byte) *Channel {
	return &Channel{Data: data}
}

// Format names the channel layout of an Image.
type Format int

const (
	Gray8 Format = iota
	Rgb8
)

func (f Format) String() string {
	if f == Rgb8 {
		return "rgb8"
	}
	return "gray8"
}

func (f Format) Channels() int {
	if f == Rgb8 {
		return 3
	}
	return 1
}

// Image is a fixed-geometry, multi-channel 8-bit pixel buffer.
type Image struct {
	Width, Height int
	Padding       int
	Format        Format
	Chan          []*Channel // len == Format.Channels()
	Metadata      map[string]interface{}
}

// Stride is the number of bytes per row including padding.
func (img *Image) Stride() int {
	return img.Width + 2*img.Padding
}

// rowBytes is the channel buffer size for this image's geometry.
func (img *Image) rowBytes() int {
	return img.Stride() * img.Height
}

// NewGray8 allocates an owned single-channel image.
func NewGray8(w, h, padding int) *Image {
	img := &Image{Width: w, Height: h, Padding: padding, Format: Gray8}
	img.Chan = []*Channel{NewChannel(img.rowBytes())}
	return img
}

// NewRGB8 allocates an owned three-channel image.
func NewRGB8(w, h, padding int) *Image {
	img := &Image{Width: w, Height: h, Padding: padding, Format: Rgb8}
	img.Chan = []*Channel{
		NewChannel(img.rowBytes()),
		NewChannel(img.rowBytes()),
		NewChannel(img.rowBytes()),
	}
	return img
}

// At returns the byte at (x, y) in channel c.
func (img *Image) At(c, x, y int) byte {
	return img.Chan[c].Data[y*img.Stride()+img.Padding+x]
}

// Set writes the byte at (x, y) in channel c. Only legal on an owned
// (freshly allocated) channel; callers must not Set into a channel shared
// with another Image.
func (img *Image) Set(c, x, y int, v byte) {
	img.Chan[c].Data[y*img.Stride()+img.Padding+x] = v
}

// ToRGB widens a gray image to RGB by duplicating its single channel
// reference three times — no pixel data is copied. Calling ToRGB on an
// already-RGB image returns it unchanged.
func (img *Image) ToRGB() *Image {
	if img.Format == Rgb8 {
		return img
	}
	return &Image{
		Width:   img.Width,
		Height:  img.Height,
		Padding: img.Padding,
		Format:  Rgb8,
		Chan:    []*Channel{img.Chan[0], img.Chan[0], img.Chan[0]},
	}
}

// RGBMode selects which strategy ToGray uses to collapse channels.
type RGBMode int

const (
	UseRed RGBMode = iota
	UseGreen
	UseBlue
	CalcAverage
)

func ParseRGBMode(s string) (RGBMode, error) {
	switch s {
	case "use_red":
		return UseRed, nil
	case "use_green":
		return UseGreen, nil
	case "use_blue":
		return UseBlue, nil
	case "calc_average":
		return CalcAverage, nil
	default:
		return 0, pperr.New(pperr.InvalidParameter, "unknown rgb conversion mode %q", s)
	}
}

// ToGray collapses an RGB image to gray using mode, always producing a
// freshly owned destination buffer (a filter output never aliases an input
// buffer it also writes into). Calling ToGray on an already-gray image
// returns it unchanged regardless of mode, matching evaluate_convert_if's
// "cheap conversion" contract in spec §4.7.
func (img *Image) ToGray(mode RGBMode) *Image {
	if img.Format == Gray8 {
		return img
	}

	out := NewGray8(img.Width, img.Height, img.Padding)

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			var v byte
			switch mode {
			case UseRed:
				v = img.At(0, x, y)
			case UseGreen:
				v = img.At(1, x, y)
			case UseBlue:
				v = img.At(2, x, y)
			case CalcAverage:
				r, g, b := int(img.At(0, x, y)), int(img.At(1, x, y)), int(img.At(2, x, y))
				v = byte((r + g + b) / 3)
			}
			out.Set(0, x, y, v)
		}
	}

	return out
}

// SameGeometry reports whether two images share width and height; many
// kernels require this of their two input images.
func SameGeometry(a, b *Image) bool {
	return a.Width == b.Width && a.Height == b.Height
}
