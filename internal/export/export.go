// Package export converts decoded textures and palettes to images and
// writes them to disk.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"

	"github.com/Faultbox/fftmap/internal/maps"
	"github.com/Faultbox/fftmap/pkg/formats"
)

// Supported output formats.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
	FormatTGA  = "tga"
)

// ErrUnsupportedFormat is returned for an output format other than png,
// webp or tga.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// TextureImage returns the raw 4-bit indices as a grayscale image.
func TextureImage(tex *formats.Texture) *image.Gray {
	return channelImage(tex.Pix)
}

// DisplayImage returns the intensity-scaled indices for viewing.
func DisplayImage(tex *formats.Texture) *image.Gray {
	return channelImage(tex.Display)
}

// channelImage takes the first byte of each broadcast 4-byte texel.
func channelImage(buf []byte) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, formats.TextureWidth, formats.TextureHeight))
	for i := range img.Pix {
		img.Pix[i] = buf[i*4]
	}
	return img
}

// PaletteImage renders the 16×16 palette scaled up by scale.
func PaletteImage(pal *formats.Palette, scale int) *image.RGBA {
	src := pal.Image()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, 16*scale, 16*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ColorizedImage renders the texture through one palette row.
func ColorizedImage(tex *formats.Texture, pal *formats.Palette, row int) *image.RGBA {
	return tex.Colorize(pal, row)
}

// PaletteRows returns the distinct palette rows referenced by vs, ascending.
func PaletteRows(vs formats.Vertices) []int {
	seen := make(map[int]bool)
	for _, v := range vs {
		seen[int(v.Palette)&0x0F] = true
	}
	rows := make([]int, 0, len(seen))
	for r := range seen {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return rows
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case FormatPNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encoding PNG: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("encoding WebP: %w", err)
		}
	case FormatTGA:
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("encoding TGA: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}

// Supported reports whether format can be written.
func Supported(format string) bool {
	switch format {
	case FormatPNG, FormatWebP, FormatTGA:
		return true
	}
	return false
}

// Save writes img to path, creating parent directories.
func Save(path string, img image.Image, format string) error {
	if !Supported(format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Options controls WriteMap.
type Options struct {
	Dir          string
	Format       string
	PaletteScale int
}

// WriteMap writes the texture, display, palette and one colorized texture
// per palette row the mesh uses. It returns the written paths.
func WriteMap(m *maps.Mesh, opts Options) ([]string, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("map %d is not fully loaded", m.Map)
	}

	type output struct {
		name string
		img  image.Image
	}
	outputs := []output{
		{"texture", TextureImage(m.Texture)},
		{"display", DisplayImage(m.Texture)},
		{"palette", PaletteImage(&m.Palette, opts.PaletteScale)},
	}
	for _, row := range PaletteRows(m.Vertices) {
		outputs = append(outputs, output{fmt.Sprintf("row%02d", row), ColorizedImage(m.Texture, &m.Palette, row)})
	}

	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(opts.Dir, fmt.Sprintf("map%03d_%s.%s", m.Map, o.name, opts.Format))
		if err := Save(path, o.img, opts.Format); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
