// Package disctest builds synthetic raw disc images for tests.
package disctest

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
)

const (
	sectorSize    = 2048
	sectorSizeRaw = 2352
	headerSize    = 24
)

// Builder assembles a raw image sector by sector.
type Builder struct {
	sectors map[int][]byte
	files   map[string]map[string]file // dir -> name -> file
}

type file struct {
	sector int
	size   int
}

// NewBuilder returns an empty image builder.
func NewBuilder() *Builder {
	return &Builder{
		sectors: make(map[int][]byte),
		files:   make(map[string]map[string]file),
	}
}

// Put stores data starting at sector, spilling into following sectors.
func (b *Builder) Put(sector int, data []byte) *Builder {
	for i := 0; i*sectorSize < len(data) || i == 0; i++ {
		end := (i + 1) * sectorSize
		if end > len(data) {
			end = len(data)
		}
		payload := make([]byte, sectorSize)
		copy(payload, data[i*sectorSize:end])
		b.sectors[sector+i] = payload
	}
	return b
}

// AddFile stores data at sector and records it as dir/name in the ISO9660
// tree written by Bytes. Only one directory level below the root is supported.
func (b *Builder) AddFile(dir, name string, sector int, data []byte) *Builder {
	b.Put(sector, data)
	dir = strings.ToUpper(dir)
	if b.files[dir] == nil {
		b.files[dir] = make(map[string]file)
	}
	b.files[dir][name] = file{sector: sector, size: len(data)}
	return b
}

// Bytes renders the raw image. When files were added, a primary volume
// descriptor is written at sector 16, the root directory at 18 and one
// sector per subdirectory from 19.
func (b *Builder) Bytes() []byte {
	if len(b.files) > 0 {
		b.writeISO()
	}

	last := 0
	for s := range b.sectors {
		if s > last {
			last = s
		}
	}

	img := make([]byte, (last+1)*sectorSizeRaw)
	for s, payload := range b.sectors {
		off := s*sectorSizeRaw + headerSize
		copy(img[off:off+sectorSize], payload)
	}
	return img
}

func (b *Builder) writeISO() {
	dirs := make([]string, 0, len(b.files))
	for d := range b.files {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	const rootSector = 18
	root := new(bytes.Buffer)
	root.Write(DirRecord("\x00", rootSector, sectorSize, true))
	root.Write(DirRecord("\x01", rootSector, sectorSize, true))
	for i, d := range dirs {
		dirSector := rootSector + 1 + i
		root.Write(DirRecord(d, dirSector, sectorSize, true))

		names := make([]string, 0, len(b.files[d]))
		for n := range b.files[d] {
			names = append(names, n)
		}
		sort.Strings(names)

		sub := new(bytes.Buffer)
		sub.Write(DirRecord("\x00", dirSector, sectorSize, true))
		sub.Write(DirRecord("\x01", rootSector, sectorSize, true))
		for _, n := range names {
			f := b.files[d][n]
			sub.Write(DirRecord(n+";1", f.sector, f.size, false))
		}
		b.Put(dirSector, sub.Bytes())
	}
	b.Put(rootSector, root.Bytes())

	pvd := make([]byte, sectorSize)
	pvd[0] = 1
	copy(pvd[1:6], "CD001")
	pvd[6] = 1
	copy(pvd[40:72], padRight("TESTDISC", 32))
	copy(pvd[156:], DirRecord("\x00", rootSector, sectorSize, true))
	b.Put(16, pvd)

	term := make([]byte, sectorSize)
	term[0] = 255
	copy(term[1:6], "CD001")
	b.Put(17, term)
}

// DirRecord encodes one ISO9660 directory record.
func DirRecord(name string, sector, size int, dir bool) []byte {
	n := 33 + len(name)
	if n%2 == 1 {
		n++
	}
	rec := make([]byte, n)
	rec[0] = byte(n)
	binary.LittleEndian.PutUint32(rec[2:], uint32(sector))
	binary.BigEndian.PutUint32(rec[6:], uint32(sector))
	binary.LittleEndian.PutUint32(rec[10:], uint32(size))
	binary.BigEndian.PutUint32(rec[14:], uint32(size))
	if dir {
		rec[25] = 0x02
	}
	rec[32] = byte(len(name))
	copy(rec[33:], name)
	return rec
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}
