package codec

import (
	"bytes"
	"testing"

	"github.com/cvpg/imageproc/pkg/pixel"
	"github.com/cvpg/imageproc/pkg/pperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPNG_RoundTrip_Gray(t *testing.T) {
	src := pixel.NewGray8(4, 3, 0)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.Set(0, x, y, byte(10*(y*4+x)))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, src))

	out, err := DecodePNG(&buf)
	require.NoError(t, err)

	assert.Equal(t, pixel.Gray8, out.Format)
	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 3, out.Height)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, src.At(0, x, y), out.At(0, x, y))
		}
	}
}

func TestPNG_RoundTrip_RGB(t *testing.T) {
	src := pixel.NewRGB8(2, 2, 0)
	src.Set(0, 0, 0, 255)
	src.Set(1, 0, 0, 128)
	src.Set(2, 0, 0, 0)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, src))

	out, err := DecodePNG(&buf)
	require.NoError(t, err)

	assert.Equal(t, pixel.Rgb8, out.Format)
	assert.Equal(t, byte(255), out.At(0, 0, 0))
	assert.Equal(t, byte(128), out.At(1, 0, 0))
	assert.Equal(t, byte(0), out.At(2, 0, 0))
}

func TestPNG_Decode_Invalid(t *testing.T) {
	_, err := DecodePNG(bytes.NewReader([]byte("not a png")))
	require.Error(t, err)
	assert.Equal(t, pperr.DecodeError, pperr.CodeOf(err))
}

func TestPNG_Encode_UnsupportedFormat(t *testing.T) {
	img := &pixel.Image{Width: 1, Height: 1, Format: pixel.Format(99)}
	err := EncodePNG(&bytes.Buffer{}, img)
	require.Error(t, err)
	assert.Equal(t, pperr.UnsupportedFormat, pperr.CodeOf(err))
}
