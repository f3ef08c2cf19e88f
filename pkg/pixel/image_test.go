package pixel

import "testing"

func TestGray8_SetAt_RoundTrip(t *testing.T) {
	img := NewGray8(4, 3, 2)
	img.Set(0, 1, 1, 200)
	if got := img.At(0, 1, 1); got != 200 {
		t.Fatalf("expected 200, got %d", got)
	}
	if img.Stride() != 4+2*2 {
		t.Fatalf("expected stride 8, got %d", img.Stride())
	}
}

func TestRGB8_Channels(t *testing.T) {
	img := NewRGB8(2, 2, 0)
	if img.Format.Channels() != 3 {
		t.Fatalf("expected 3 channels, got %d", img.Format.Channels())
	}
	if len(img.Chan) != 3 {
		t.Fatalf("expected 3 channel buffers, got %d", len(img.Chan))
	}
}

func TestToRGB_SharesChannel(t *testing.T) {
	gray := NewGray8(2, 2, 0)
	gray.Set(0, 0, 0, 42)

	rgb := gray.ToRGB()
	if rgb.Format != Rgb8 {
		t.Fatalf("expected Rgb8 format")
	}
	for c := 0; c < 3; c++ {
		if rgb.At(c, 0, 0) != 42 {
			t.Fatalf("channel %d: expected 42, got %d", c, rgb.At(c, 0, 0))
		}
	}
	if rgb.Chan[0] != gray.Chan[0] {
		t.Fatalf("expected ToRGB to share the original channel buffer")
	}
}

func TestToRGB_Idempotent(t *testing.T) {
	rgb := NewRGB8(1, 1, 0)
	if rgb.ToRGB() != rgb {
		t.Fatalf("expected ToRGB on an RGB image to return itself")
	}
}

func TestToGray_CalcAverage(t *testing.T) {
	rgb := NewRGB8(1, 1, 0)
	rgb.Set(0, 0, 0, 30)
	rgb.Set(1, 0, 0, 60)
	rgb.Set(2, 0, 0, 90)

	gray := rgb.ToGray(CalcAverage)
	if gray.Format != Gray8 {
		t.Fatalf("expected Gray8 format")
	}
	if got := gray.At(0, 0, 0); got != 60 {
		t.Fatalf("expected average 60, got %d", got)
	}
}

func TestToGray_UseChannelModes(t *testing.T) {
	rgb := NewRGB8(1, 1, 0)
	rgb.Set(0, 0, 0, 10)
	rgb.Set(1, 0, 0, 20)
	rgb.Set(2, 0, 0, 30)

	cases := []struct {
		mode RGBMode
		want byte
	}{
		{UseRed, 10},
		{UseGreen, 20},
		{UseBlue, 30},
	}
	for _, c := range cases {
		if got := rgb.ToGray(c.mode).At(0, 0, 0); got != c.want {
			t.Errorf("mode %v: expected %d, got %d", c.mode, c.want, got)
		}
	}
}

func TestToGray_Idempotent(t *testing.T) {
	gray := NewGray8(1, 1, 0)
	gray.Set(0, 0, 0, 5)
	if gray.ToGray(UseRed) != gray {
		t.Fatalf("expected ToGray on a gray image to return itself")
	}
}

func TestParseRGBMode(t *testing.T) {
	valid := map[string]RGBMode{
		"use_red":      UseRed,
		"use_green":    UseGreen,
		"use_blue":     UseBlue,
		"calc_average": CalcAverage,
	}
	for s, want := range valid {
		got, err := ParseRGBMode(s)
		if err != nil {
			t.Fatalf("ParseRGBMode(%q): unexpected error %v", s, err)
		}
		if got != want {
			t.Errorf("ParseRGBMode(%q) = %v, want %v", s, got, want)
		}
	}

	if _, err := ParseRGBMode("bogus"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestSameGeometry(t *testing.T) {
	a := NewGray8(4, 3, 0)
	b := NewGray8(4, 3, 1)
	c := NewGray8(4, 5, 0)

	if !SameGeometry(a, b) {
		t.Fatalf("expected same geometry regardless of padding")
	}
	if SameGeometry(a, c) {
		t.Fatalf("expected different geometry to be detected")
	}
}
