package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// gnsRecord encodes one 20-byte directory record.
func gnsRecord(tag uint16, arrangement, timeWeather uint8, kind ResourceKind, sector uint16, length uint32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, tag)
	buf.WriteByte(arrangement)
	buf.WriteByte(timeWeather)
	binary.Write(buf, binary.LittleEndian, uint16(kind))
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, sector)
	buf.Write([]byte{0, 0})
	binary.Write(buf, binary.LittleEndian, length)
	buf.Write([]byte{0, 0, 0, 0})
	return buf.Bytes()
}

func gnsEnd() []byte {
	return gnsRecord(0x22, 0, 0, KindEnd, 0, 0)
}

func TestParseGNS_ThreeRecords(t *testing.T) {
	data := bytes.Join([][]byte{
		gnsRecord(0x22, 0, 0x00, KindTexture, 1000, 131072),
		gnsRecord(0x30, 1, 0x80, KindMeshPrimary, 1100, 40000),
		gnsRecord(0x70, 2, 0xB0, KindMeshOverride, 1200, 2048),
		gnsEnd(),
	}, nil)

	records, err := ParseGNS(data)
	if err != nil {
		t.Fatalf("ParseGNS failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	want := []Record{
		{Kind: KindTexture, Sector: 1000, Length: 131072, Arrangement: 0},
		{Kind: KindMeshPrimary, Sector: 1100, Length: 40000, Arrangement: 1, Night: true},
		{Kind: KindMeshOverride, Sector: 1200, Length: 2048, Arrangement: 2, Night: true, Weather: 3},
	}
	for i, w := range want {
		if records[i] != w {
			t.Errorf("record %d: expected %+v, got %+v", i, w, records[i])
		}
	}
}

func TestParseGNS_InvalidHeaderTag(t *testing.T) {
	data := bytes.Join([][]byte{
		gnsRecord(0x99, 0, 0, KindTexture, 1000, 131072),
		gnsEnd(),
	}, nil)

	records, err := ParseGNS(data)
	if !errors.Is(err, ErrInvalidHeaderTag) {
		t.Errorf("expected ErrInvalidHeaderTag, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestParseGNS_UnknownKind(t *testing.T) {
	data := bytes.Join([][]byte{
		gnsRecord(0x22, 0, 0, ResourceKind(0x1234), 1000, 2048),
		gnsEnd(),
	}, nil)

	if _, err := ParseGNS(data); !errors.Is(err, ErrUnknownResourceKind) {
		t.Errorf("expected ErrUnknownResourceKind, got %v", err)
	}
}

func TestParseGNS_RecordLimit(t *testing.T) {
	build := func(n int) []byte {
		buf := new(bytes.Buffer)
		for i := 0; i < n; i++ {
			buf.Write(gnsRecord(0x22, 0, 0, KindTexture, uint16(i), 2048))
		}
		buf.Write(gnsEnd())
		return buf.Bytes()
	}

	records, err := ParseGNS(build(MaxGNSRecords))
	if err != nil {
		t.Fatalf("%d records should parse: %v", MaxGNSRecords, err)
	}
	if len(records) != MaxGNSRecords {
		t.Errorf("expected %d records, got %d", MaxGNSRecords, len(records))
	}

	if _, err := ParseGNS(build(MaxGNSRecords + 1)); !errors.Is(err, ErrDirectoryOverflow) {
		t.Errorf("expected ErrDirectoryOverflow, got %v", err)
	}
}

func TestParseGNS_MissingTerminator(t *testing.T) {
	data := gnsRecord(0x22, 0, 0, KindTexture, 1000, 2048)
	data = append(data, 0, 0, 0)

	if _, err := ParseGNS(data); !errors.Is(err, ErrTruncatedResource) {
		t.Errorf("expected ErrTruncatedResource, got %v", err)
	}
}

func TestRecord_String(t *testing.T) {
	r := Record{Kind: KindMeshPrimary, Sector: 5, Length: 10, Night: true, Weather: 2}
	want := "MeshPrimary  sector=5      len=10     arrangement=0 time=night weather=normal"
	if got := r.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := WeatherName(7); got != "weather(7)" {
		t.Errorf("unexpected name for weather 7: %q", got)
	}
	if got := ResourceKind(0xBEEF).String(); got != "Unknown(0xbeef)" {
		t.Errorf("unexpected unknown kind name %q", got)
	}
}
