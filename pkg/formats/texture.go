package formats

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/fftmap/pkg/disc"
)

// ErrTruncatedTexture is returned when a texture resource is shorter than
// its fixed raw size.
var ErrTruncatedTexture = errors.New("truncated texture data")

// Texture geometry: four 256×256 pages stacked vertically, 4 bits per pixel.
const (
	TextureWidth    = 256
	TextureHeight   = 1024
	TexturePageSize = 256
	TextureRawSize  = TextureWidth * TextureHeight / 2
)

// Texture is an unpacked indexed texture.
type Texture struct {
	// Pix holds one palette index per pixel, repeated in all four bytes.
	Pix []byte
	// Display holds Pix scaled by 17 for viewing; it is not palette data.
	Display []byte
}

// ParseTexture parses a texture resource from raw bytes.
func ParseTexture(data []byte) (*Texture, error) {
	r, err := disc.NewResource(data)
	if err != nil {
		return nil, err
	}
	return DecodeTexture(r)
}

// DecodeTexture unpacks the 131072-byte raw block at the cursor. Each byte
// holds two pixels, low nibble first.
func DecodeTexture(r *disc.Resource) (*Texture, error) {
	if r.Remaining() < TextureRawSize {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrTruncatedTexture, r.Remaining(), TextureRawSize)
	}
	raw := r.ReadBytes(TextureRawSize)

	t := &Texture{
		Pix:     make([]byte, TextureWidth*TextureHeight*4),
		Display: make([]byte, TextureWidth*TextureHeight*4),
	}
	for i, b := range raw {
		right := b & 0x0F
		left := (b >> 4) & 0x0F
		o := i * 8
		for j := 0; j < 4; j++ {
			t.Pix[o+j] = right
			t.Pix[o+4+j] = left
			t.Display[o+j] = right * 17
			t.Display[o+4+j] = left * 17
		}
	}
	return t, nil
}

// Index returns the palette index of the pixel at (x, y).
func (t *Texture) Index(x, y int) uint8 {
	return t.Pix[(y*TextureWidth+x)*4]
}

// Colorize resolves every pixel through one palette row.
func (t *Texture) Colorize(p *Palette, row int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, TextureWidth, TextureHeight))
	for y := 0; y < TextureHeight; y++ {
		for x := 0; x < TextureWidth; x++ {
			img.SetRGBA(x, y, p.At(row, int(t.Index(x, y))))
		}
	}
	return img
}
