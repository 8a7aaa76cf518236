package formats

import (
	"image"
	"image/color"

	"github.com/Faultbox/fftmap/pkg/disc"
	"github.com/Faultbox/fftmap/pkg/math"
)

// PaletteSize is the number of colors in a palette table (16 rows of 16).
const PaletteSize = 256

// Palette is a 16×16 color table; row = vertex palette index, column = texel.
type Palette [PaletteSize]color.RGBA

// At returns the color for a palette row and a 4-bit texel index.
func (p *Palette) At(row, texel int) color.RGBA {
	return p[(row&0x0F)*16+(texel&0x0F)]
}

// Image renders the palette as a 16×16 image, one row per palette.
func (p *Palette) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i, c := range p {
		img.SetRGBA(i%16, i/16, c)
	}
	return img
}

// RGB15 expands a 0bXBBBBBGGGGGRRRRR color to RGBA8.
// Zero is the transparent color; every other value is opaque.
func RGB15(raw uint16) color.RGBA {
	c := color.RGBA{
		R: uint8(raw&0x1F) << 3,
		G: uint8(raw>>5&0x1F) << 3,
		B: uint8(raw>>10&0x1F) << 3,
	}
	if raw != 0 {
		c.A = 255
	}
	return c
}

// ColorVec converts an RGBA8 color to a 0..1 RGB vector.
func ColorVec(c color.RGBA) math.Vec3 {
	return math.Vec3{X: float32(c.R) / 255, Y: float32(c.G) / 255, Z: float32(c.B) / 255}
}

// Fixed1x3x12 converts a 1.3.12 fixed-point value to float.
func Fixed1x3x12(raw int16) float32 {
	return float32(raw) / 4096
}

func readRGB15(r *disc.Resource) color.RGBA {
	return RGB15(r.ReadU16())
}

// RGB8 converts an 8-bit-per-channel triple to a 0..1 RGB vector.
func RGB8(r, g, b uint8) math.Vec3 {
	return ColorVec(color.RGBA{R: r, G: g, B: b, A: 255})
}

func readRGB8(r *disc.Resource) math.Vec3 {
	red, green, blue := r.ReadU8(), r.ReadU8(), r.ReadU8()
	return RGB8(red, green, blue)
}

func readFixed(r *disc.Resource) float32 {
	return Fixed1x3x12(r.ReadI16())
}
