package magnolia

import (
	"image/color"
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestHex(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#ff0000", Red},
		{"00ff00", Green},
		{"#00f", Blue},
		{"fff8", Color{1, 1, 1, 0x88 / 255.0}},
		{"#33669980", Color{0.2, 0.4, 0.6, 128 / 255.0}},
		{"", Black},
		{"#12345", Black},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Hex(tt.in)
			if !near(got.R, tt.want.R) || !near(got.G, tt.want.G) || !near(got.B, tt.want.B) || !near(got.A, tt.want.A) {
				t.Errorf("Hex(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestColorNRGBA(t *testing.T) {
	tests := []struct {
		name string
		c    Color
		want color.NRGBA
	}{
		{"black", Black, color.NRGBA{0, 0, 0, 255}},
		{"half red", RGBA(1, 0, 0, 0.5), color.NRGBA{255, 0, 0, 128}},
		{"clamped", Color{2, -1, 0.5, 1}, color.NRGBA{255, 0, 128, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.NRGBA(); got != tt.want {
				t.Errorf("NRGBA() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromColor(t *testing.T) {
	got := FromColor(color.NRGBA{R: 51, G: 102, B: 153, A: 255})
	want := RGB(0.2, 0.4, 0.6)
	if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) || got.A != 1 {
		t.Errorf("FromColor = %+v, want %+v", got, want)
	}
}

func TestColorLerp(t *testing.T) {
	mid := Black.Lerp(White, 0.5)
	if mid != (Color{0.5, 0.5, 0.5, 1}) {
		t.Errorf("Lerp = %+v", mid)
	}
	if Red.Lerp(Blue, 0) != Red || Red.Lerp(Blue, 1) != Blue {
		t.Error("Lerp endpoints differ from inputs")
	}
}

func TestColorArray(t *testing.T) {
	if got := RGBA(0.1, 0.2, 0.3, 0.4).Array(); got != [4]float32{0.1, 0.2, 0.3, 0.4} {
		t.Errorf("Array() = %v", got)
	}
}
