package disc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ISO9660 errors.
var (
	ErrNotISO9660 = errors.New("no ISO9660 primary volume descriptor")
	ErrNotFound   = errors.New("file not found")
	ErrNotDir     = errors.New("not a directory")
)

const (
	pvdSector         = 16
	maxDescriptors    = 32
	rootRecordOffset  = 156
	dirFlagDirectory  = 0x02
	dirRecordMinLen   = 33
	descriptorPrimary = 1
	descriptorEnd     = 255
)

// Entry is a file or directory in the image's ISO9660 filesystem.
type Entry struct {
	Name   string // Identifier without the ";1" version suffix
	Sector int    // First sector of the extent
	Size   int    // Extent length in bytes
	Dir    bool
}

type volumeDescriptor struct {
	volumeID string
	root     Entry
}

// VolumeID returns the volume identifier of the primary descriptor.
func (img *Image) VolumeID() (string, error) {
	pvd, err := img.primaryVolume()
	if err != nil {
		return "", err
	}
	return pvd.volumeID, nil
}

func (img *Image) primaryVolume() (*volumeDescriptor, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.pvd != nil {
		return img.pvd, nil
	}

	for i := 0; i < maxDescriptors; i++ {
		data, err := img.ReadSector(pvdSector + i)
		if err != nil {
			return nil, fmt.Errorf("reading volume descriptor: %w", err)
		}
		if string(data[1:6]) != "CD001" {
			return nil, ErrNotISO9660
		}
		switch data[0] {
		case descriptorPrimary:
			root, _, ok := parseDirRecord(data[rootRecordOffset:])
			if !ok {
				return nil, fmt.Errorf("%w: bad root record", ErrNotISO9660)
			}
			img.pvd = &volumeDescriptor{
				volumeID: strings.TrimRight(string(data[40:72]), " \x00"),
				root:     root,
			}
			return img.pvd, nil
		case descriptorEnd:
			return nil, ErrNotISO9660
		}
	}
	return nil, ErrNotISO9660
}

// parseDirRecord decodes one directory record. It returns the record's
// length, or 0 for the zero padding at the end of a sector.
func parseDirRecord(b []byte) (Entry, int, bool) {
	if len(b) == 0 || b[0] == 0 {
		return Entry{}, 0, true
	}
	n := int(b[0])
	if n < dirRecordMinLen || n > len(b) {
		return Entry{}, 0, false
	}
	nameLen := int(b[32])
	if 33+nameLen > n {
		return Entry{}, 0, false
	}

	name := string(b[33 : 33+nameLen])
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".")

	return Entry{
		Name:   name,
		Sector: int(binary.LittleEndian.Uint32(b[2:6])),
		Size:   int(binary.LittleEndian.Uint32(b[10:14])),
		Dir:    b[25]&dirFlagDirectory != 0,
	}, n, true
}

func (img *Image) readDirExtent(dir Entry) ([]Entry, error) {
	if !dir.Dir {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, dir.Name)
	}
	data, err := img.ReadSectors(dir.Sector, SectorsFor(dir.Size))
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w", dir.Name, err)
	}

	var entries []Entry
	for off := 0; off < dir.Size; {
		entry, n, ok := parseDirRecord(data[off:dir.Size])
		if !ok {
			return nil, fmt.Errorf("%w: bad directory record at 0x%x in %q", ErrNotISO9660, off, dir.Name)
		}
		if n == 0 {
			// Records never cross a sector boundary.
			off = (off/SectorSize + 1) * SectorSize
			continue
		}
		off += n
		if entry.Name == "\x00" || entry.Name == "\x01" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Lookup resolves a slash-separated path such as "MAP/MAP049.GNS".
// Matching is case-insensitive; an empty path resolves to the root.
func (img *Image) Lookup(path string) (Entry, error) {
	pvd, err := img.primaryVolume()
	if err != nil {
		return Entry{}, err
	}

	cur := pvd.root
	for _, part := range strings.Split(strings.Trim(path, "/\\"), "/") {
		if part == "" {
			continue
		}
		entries, err := img.readDirExtent(cur)
		if err != nil {
			return Entry{}, err
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name, part) {
				cur, found = e, true
				break
			}
		}
		if !found {
			return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
	}
	return cur, nil
}

// ReadDir lists the directory at path.
func (img *Image) ReadDir(path string) ([]Entry, error) {
	dir, err := img.Lookup(path)
	if err != nil {
		return nil, err
	}
	return img.readDirExtent(dir)
}
