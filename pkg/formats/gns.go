package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/fftmap/pkg/disc"
)

// GNS format errors.
var (
	ErrInvalidHeaderTag    = errors.New("invalid GNS record header tag")
	ErrUnknownResourceKind = errors.New("unknown GNS resource type")
	ErrDirectoryOverflow   = errors.New("GNS directory exceeds maximum record count")
	ErrTruncatedResource   = errors.New("truncated resource data")
)

// GNS layout.
const (
	GNSRecordSize = 20
	MaxGNSRecords = 100
)

// ResourceKind identifies what a GNS record points at.
type ResourceKind uint16

const (
	KindTexture      ResourceKind = 0x1701
	KindMeshPrimary  ResourceKind = 0x2E01
	KindMeshOverride ResourceKind = 0x2F01
	KindMeshAlt      ResourceKind = 0x3001
	KindEnd          ResourceKind = 0x3101 // Directory terminator
)

// String returns a human-readable resource kind name.
func (k ResourceKind) String() string {
	switch k {
	case KindTexture:
		return "Texture"
	case KindMeshPrimary:
		return "MeshPrimary"
	case KindMeshOverride:
		return "MeshOverride"
	case KindMeshAlt:
		return "MeshAlt"
	case KindEnd:
		return "End"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint16(k))
	}
}

func (k ResourceKind) valid() bool {
	switch k {
	case KindTexture, KindMeshPrimary, KindMeshOverride, KindMeshAlt, KindEnd:
		return true
	}
	return false
}

// validHeaderTag reports whether tag may open a GNS record.
func validHeaderTag(tag uint16) bool {
	return tag == 0x22 || tag == 0x30 || tag == 0x70
}

// Record is one entry of a map's GNS directory.
type Record struct {
	Kind        ResourceKind
	Sector      uint16
	Length      uint32
	Arrangement uint8
	Night       bool  // Time-of-day bit
	Weather     uint8 // 0..7
}

// Time returns "day" or "night".
func (r Record) Time() string {
	if r.Night {
		return "night"
	}
	return "day"
}

var weatherNames = [...]string{"none", "none-alt", "normal", "strong", "very-strong"}

// WeatherName returns the name of a weather value.
func WeatherName(w uint8) string {
	if int(w) < len(weatherNames) {
		return weatherNames[w]
	}
	return fmt.Sprintf("weather(%d)", w)
}

// String returns a one-line description of the record.
func (r Record) String() string {
	return fmt.Sprintf("%-12s sector=%-6d len=%-6d arrangement=%d time=%s weather=%s",
		r.Kind, r.Sector, r.Length, r.Arrangement, r.Time(), WeatherName(r.Weather))
}

// ParseGNS parses a GNS directory from raw bytes.
func ParseGNS(data []byte) ([]Record, error) {
	r, err := disc.NewResource(data)
	if err != nil {
		return nil, err
	}
	return DecodeGNS(r)
}

// DecodeGNS reads records from the cursor until the End sentinel.
// The sentinel is not included in the result.
func DecodeGNS(r *disc.Resource) ([]Record, error) {
	var records []Record

	for {
		if r.Remaining() < GNSRecordSize {
			return nil, fmt.Errorf("%w: GNS ends after %d records without terminator", ErrTruncatedResource, len(records))
		}

		tag := r.ReadU16()
		if !validHeaderTag(tag) {
			return nil, fmt.Errorf("%w: 0x%02x in record %d", ErrInvalidHeaderTag, tag, len(records))
		}
		arrangement := r.ReadU8()
		timeWeather := r.ReadU8()
		kind := ResourceKind(r.ReadU16())
		r.Skip(2)
		sector := r.ReadU16()
		r.Skip(2)
		length := r.ReadU32()
		r.Skip(4)

		if kind == KindEnd {
			return records, nil
		}
		if !kind.valid() {
			return nil, fmt.Errorf("%w: 0x%04x in record %d", ErrUnknownResourceKind, uint16(kind), len(records))
		}
		if len(records) == MaxGNSRecords {
			return nil, ErrDirectoryOverflow
		}

		records = append(records, Record{
			Kind:        kind,
			Sector:      sector,
			Length:      length,
			Arrangement: arrangement,
			Night:       timeWeather&0x80 != 0,
			Weather:     (timeWeather >> 4) & 0x07,
		})
	}
}
