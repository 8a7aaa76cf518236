package maps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/Faultbox/fftmap/pkg/disc"
	"github.com/Faultbox/fftmap/pkg/disc/disctest"
	"github.com/Faultbox/fftmap/pkg/formats"
	"github.com/Faultbox/fftmap/pkg/math"
)

// Sector layout of the synthetic disc.
const (
	gnsSector      = 30
	meshSector     = 40
	overrideSector = 50
	textureSector  = 100
	texture2Sector = 200
	badMeshSector  = 60
)

// meshResource builds a primary mesh with one textured triangle whose
// first corner sits at x/100.
func meshResource(x int16) []byte {
	const (
		countsOff    = formats.PrimaryMeshOffset
		positionsOff = countsOff + 8
		normalsOff   = positionsOff + 18
		texcoordsOff = normalsOff + 18
		paletteOff   = texcoordsOff + 10
		lightsOff    = paletteOff + 512
		size         = lightsOff + 44
	)
	data := make([]byte, size)
	binary.LittleEndian.PutUint32(data[0x40:], formats.PrimaryMeshOffset)
	binary.LittleEndian.PutUint32(data[0x44:], paletteOff)
	binary.LittleEndian.PutUint32(data[0x64:], lightsOff)
	binary.LittleEndian.PutUint16(data[countsOff:], 1)
	binary.LittleEndian.PutUint16(data[positionsOff:], uint16(x))
	binary.LittleEndian.PutUint16(data[paletteOff+2:], 0x7FFF)
	return data
}

func textureResource(b byte) []byte {
	return bytes.Repeat([]byte{b}, formats.TextureRawSize)
}

func gnsRecord(kind formats.ResourceKind, sector uint16, length uint32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint16(0x22))
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, uint16(kind))
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, sector)
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, length)
	buf.Write([]byte{0, 0, 0, 0})
	return buf.Bytes()
}

func gns(records ...[]byte) []byte {
	records = append(records, gnsRecord(formats.KindEnd, 0, 0))
	return bytes.Join(records, nil)
}

var (
	primary  = gnsRecord(formats.KindMeshPrimary, meshSector, uint32(len(meshResource(0))))
	override = gnsRecord(formats.KindMeshOverride, overrideSector, uint32(len(meshResource(0))))
	alt      = gnsRecord(formats.KindMeshAlt, 999, 10)
	texture  = gnsRecord(formats.KindTexture, textureSector, formats.TextureRawSize)
	texture2 = gnsRecord(formats.KindTexture, texture2Sector, formats.TextureRawSize)
	badMesh  = gnsRecord(formats.KindMeshPrimary, badMeshSector, 0x100)
)

// testLoader returns a loader over a disc whose map 49 has the given
// directory.
func testLoader(t *testing.T, dir []byte) *Loader {
	t.Helper()
	b := disctest.NewBuilder().
		AddFile("MAP", "MAP049.GNS", gnsSector, dir).
		Put(meshSector, meshResource(100)).
		Put(overrideSector, meshResource(700)).
		Put(badMeshSector, make([]byte, 0x100)).
		Put(textureSector, textureResource(0x21)).
		Put(texture2Sector, textureResource(0x43))
	img := disc.NewImage(bytes.NewReader(b.Bytes()))

	table, err := TableFromISO(img, "MAP")
	if err != nil {
		t.Fatalf("TableFromISO failed: %v", err)
	}
	return NewLoader(img, table)
}

func TestLoad_EndToEnd(t *testing.T) {
	l := testLoader(t, gns(texture, primary))

	m, err := l.Load(49)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.MeshValid || !m.TextureValid || !m.Valid() {
		t.Fatalf("expected both validity flags, got mesh=%v texture=%v", m.MeshValid, m.TextureValid)
	}
	if m.Map != 49 {
		t.Errorf("expected map 49, got %d", m.Map)
	}
	if len(m.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(m.Vertices))
	}
	if got := m.Vertices[0].Position; got != (math.Vec3{X: 1}) {
		t.Errorf("expected first position (1,0,0), got %v", got)
	}
	if got := m.Palette[1]; got.R != 248 || got.A != 255 {
		t.Errorf("unexpected palette[1]: %v", got)
	}
	if got := m.Texture.Index(0, 0); got != 0x1 {
		t.Errorf("expected first texel 0x1, got 0x%x", got)
	}
	if want := (math.Vec3{X: -0.5, Y: -0.5}); m.CenterTransform != want {
		t.Errorf("expected center transform %v, got %v", want, m.CenterTransform)
	}
}

func TestLoad_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		dir     []byte
		firstX  float32
		texel   uint8
		wantErr error
	}{
		{"primary only", gns(primary, texture), 1, 0x1, nil},
		{"override fallback", gns(override, texture), 7, 0x1, nil},
		{"primary before override", gns(primary, override, texture), 1, 0x1, nil},
		{"override then primary", gns(override, primary, texture), 1, 0x1, nil},
		{"alternate skipped", gns(alt, primary, texture), 1, 0x1, nil},
		{"texture last wins", gns(texture, primary, texture2), 1, 0x3, nil},
		{"no mesh", gns(texture), 0, 0, ErrMeshMissing},
		{"only alternate", gns(alt, texture), 0, 0, ErrMeshMissing},
		{"no texture", gns(primary), 0, 0, ErrTextureMissing},
		{"bad mesh", gns(texture, badMesh), 0, 0, formats.ErrMeshPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := testLoader(t, tt.dir).Load(49)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if m != nil {
					t.Error("expected no partial mesh on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got := m.Vertices[0].Position.X; got != tt.firstX {
				t.Errorf("expected first x %v, got %v", tt.firstX, got)
			}
			if got := m.Texture.Index(0, 0); got != tt.texel {
				t.Errorf("expected texel 0x%x, got 0x%x", tt.texel, got)
			}
		})
	}
}

func TestLoad_UnknownMap(t *testing.T) {
	l := testLoader(t, gns(primary, texture))

	if _, err := l.Load(2); !errors.Is(err, ErrUnknownMap) {
		t.Errorf("expected ErrUnknownMap, got %v", err)
	}
}

func TestLoad_BadDirectory(t *testing.T) {
	dir := gns(primary, texture)
	dir[0] = 0x99

	if _, err := testLoader(t, dir).Load(49); !errors.Is(err, formats.ErrInvalidHeaderTag) {
		t.Errorf("expected ErrInvalidHeaderTag, got %v", err)
	}
}

func TestRecords(t *testing.T) {
	l := testLoader(t, gns(texture, alt, primary))

	records, err := l.Records(49)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	want := []formats.ResourceKind{formats.KindTexture, formats.KindMeshAlt, formats.KindMeshPrimary}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, k := range want {
		if records[i].Kind != k {
			t.Errorf("record %d: expected %s, got %s", i, k, records[i].Kind)
		}
	}
}

func TestLoad_Concurrent(t *testing.T) {
	l := testLoader(t, gns(primary, texture))

	var wg sync.WaitGroup
	results := make([]*Mesh, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := l.Load(49)
			if err != nil {
				t.Errorf("Load failed: %v", err)
				return
			}
			results[i] = m
		}(i)
	}
	wg.Wait()

	for i, m := range results[1:] {
		if m == nil || results[0] == nil {
			continue
		}
		if !reflect.DeepEqual(m.Vertices, results[0].Vertices) {
			t.Errorf("load %d produced different vertices", i+1)
		}
	}
}

func TestTableFromISO(t *testing.T) {
	b := disctest.NewBuilder().
		AddFile("MAP", "MAP001.GNS", 30, []byte{1}).
		AddFile("MAP", "MAP049.GNS", 31, []byte{1, 2}).
		AddFile("MAP", "MAP120.GNS", 32, []byte{1}).
		AddFile("MAP", "MAP049.8", 33, []byte{1}).
		AddFile("MAP", "README.TXT", 34, []byte{1})
	img := disc.NewImage(bytes.NewReader(b.Bytes()))

	table, err := TableFromISO(img, "map")
	if err != nil {
		t.Fatalf("TableFromISO failed: %v", err)
	}
	if got := table.Maps(); !reflect.DeepEqual(got, []int{1, 49}) {
		t.Errorf("expected maps [1 49], got %v", got)
	}
	e, err := table.Lookup(49)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if e.Sector != 31 || e.Length != 2 {
		t.Errorf("unexpected entry %+v", e)
	}

	if _, err := TableFromISO(img, "EVENT"); !errors.Is(err, disc.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTableFromEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr error
	}{
		{"empty", nil, nil},
		{"valid", []Entry{{Map: 119, Sector: 9}, {Map: 1, Sector: 5}}, nil},
		{"zero map", []Entry{{Map: 0, Sector: 5}}, ErrMapRange},
		{"too large", []Entry{{Map: 120, Sector: 5}}, ErrMapRange},
		{"duplicate", []Entry{{Map: 3, Sector: 5}, {Map: 3, Sector: 6}}, ErrDuplicateMap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := TableFromEntries(tt.entries)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && table.Len() != len(tt.entries) {
				t.Errorf("expected %d entries, got %d", len(tt.entries), table.Len())
			}
		})
	}
}

func TestTableFromYAML(t *testing.T) {
	data := []byte(`
- map: 49
  sector: 11623
  name: MAP049.GNS
- map: 2
  sector: 10026
`)
	table, err := TableFromYAML(data)
	if err != nil {
		t.Fatalf("TableFromYAML failed: %v", err)
	}

	want := []Entry{
		{Map: 2, Sector: 10026},
		{Map: 49, Sector: 11623, Name: "MAP049.GNS"},
	}
	if got := table.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if _, err := table.Lookup(50); !errors.Is(err, ErrUnknownMap) {
		t.Errorf("expected ErrUnknownMap, got %v", err)
	}
	if _, err := TableFromYAML([]byte("map: [")); err == nil {
		t.Error("expected parse error")
	}
}
