package disc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/fftmap/pkg/disc/disctest"
)

func testISOImage(t *testing.T) *Image {
	t.Helper()
	raw := disctest.NewBuilder().
		AddFile("MAP", "MAP001.GNS", 100, []byte("first")).
		AddFile("MAP", "MAP049.GNS", 110, bytes.Repeat([]byte{7}, 3000)).
		AddFile("EVENT", "TEST.EVT", 120, []byte("event")).
		Bytes()
	return NewImage(bytes.NewReader(raw))
}

func TestVolumeID(t *testing.T) {
	img := testISOImage(t)
	id, err := img.VolumeID()
	if err != nil {
		t.Fatalf("VolumeID failed: %v", err)
	}
	if id != "TESTDISC" {
		t.Errorf("expected TESTDISC, got %q", id)
	}
}

func TestLookup(t *testing.T) {
	img := testISOImage(t)

	tests := []struct {
		path   string
		sector int
		size   int
		dir    bool
	}{
		{"MAP/MAP049.GNS", 110, 3000, false},
		{"map/map001.gns", 100, 5, false},
		{"/EVENT/TEST.EVT", 120, 5, false},
		{"MAP", 20, SectorSize, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e, err := img.Lookup(tt.path)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if e.Sector != tt.sector || e.Size != tt.size || e.Dir != tt.dir {
				t.Errorf("got %+v, want sector=%d size=%d dir=%v", e, tt.sector, tt.size, tt.dir)
			}
		})
	}
}

func TestLookup_NotFound(t *testing.T) {
	img := testISOImage(t)

	if _, err := img.Lookup("MAP/MAP002.GNS"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := img.Lookup("MAP/MAP001.GNS/X"); !errors.Is(err, ErrNotDir) {
		t.Errorf("expected ErrNotDir, got %v", err)
	}
}

func TestReadDir(t *testing.T) {
	img := testISOImage(t)

	entries, err := img.ReadDir("MAP")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "MAP001.GNS" || entries[1].Name != "MAP049.GNS" {
		t.Errorf("unexpected names: %q, %q", entries[0].Name, entries[1].Name)
	}

	root, err := img.ReadDir("")
	if err != nil {
		t.Fatalf("ReadDir root failed: %v", err)
	}
	if len(root) != 2 || !root[0].Dir {
		t.Errorf("expected two subdirectories at root, got %+v", root)
	}
}

func TestLookup_NotISO(t *testing.T) {
	raw := disctest.NewBuilder().Put(20, []byte{0}).Bytes()
	img := NewImage(bytes.NewReader(raw))

	if _, err := img.Lookup("MAP"); !errors.Is(err, ErrNotISO9660) {
		t.Errorf("expected ErrNotISO9660, got %v", err)
	}
}
