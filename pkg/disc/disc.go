// Package disc provides sector-level access to raw PlayStation CD-ROM images.
package disc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Raw image geometry.
const (
	SectorSize       = 2048 // Logical payload of a data sector
	SectorSizeRaw    = 2352 // Full physical sector
	SectorHeaderSize = 24   // Sync, header and XA subheader preceding the payload
)

// Disc errors.
var (
	ErrShortSector = errors.New("short sector read")
	ErrNegativeLen = errors.New("negative resource length")
)

// Image is an opened raw disc image (BIN).
//
// Reads use positioned I/O, so a single Image may be shared by
// concurrent decoders.
type Image struct {
	file io.ReaderAt
	path string

	mu  sync.Mutex // guards pvd
	pvd *volumeDescriptor
}

// Open opens a disc image for reading.
func Open(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	return &Image{file: file, path: path}, nil
}

// NewImage wraps an arbitrary ReaderAt holding raw 2352-byte sectors.
func NewImage(r io.ReaderAt) *Image {
	return &Image{file: r}
}

// Path returns the file path the image was opened from, if any.
func (img *Image) Path() string {
	return img.path
}

// Close closes the underlying file when it was opened by Open.
func (img *Image) Close() error {
	if c, ok := img.file.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SectorOffset returns the absolute byte offset of a sector's payload.
func SectorOffset(sector int) int64 {
	return int64(sector)*SectorSizeRaw + SectorHeaderSize
}

// ReadSector reads the 2048-byte payload of one sector.
func (img *Image) ReadSector(sector int) ([]byte, error) {
	buf := make([]byte, SectorSize)
	if err := img.readSectorInto(sector, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (img *Image) readSectorInto(sector int, buf []byte) error {
	if sector < 0 {
		return fmt.Errorf("%w: sector %d", ErrShortSector, sector)
	}
	n, err := img.file.ReadAt(buf[:SectorSize], SectorOffset(sector))
	if n == SectorSize {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: sector %d: got %d bytes", ErrShortSector, sector, n)
	}
	return fmt.Errorf("reading sector %d: %w", sector, err)
}

// SectorsFor returns how many sectors a resource of length bytes occupies.
func SectorsFor(length int) int {
	return (length + SectorSize - 1) / SectorSize
}

// ReadSectors concatenates the payloads of count consecutive sectors.
func (img *Image) ReadSectors(sector, count int) ([]byte, error) {
	data := make([]byte, count*SectorSize)
	for i := 0; i < count; i++ {
		if err := img.readSectorInto(sector+i, data[i*SectorSize:]); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// ReadFile reads a resource of length bytes starting at sector.
func (img *Image) ReadFile(sector, length int) (*Resource, error) {
	if length < 0 {
		return nil, ErrNegativeLen
	}
	if length > MaxResourceSize {
		return nil, fmt.Errorf("%w: %d bytes at sector %d", ErrResourceTooLarge, length, sector)
	}

	data, err := img.ReadSectors(sector, SectorsFor(length))
	if err != nil {
		return nil, err
	}
	return NewResource(data[:length])
}
