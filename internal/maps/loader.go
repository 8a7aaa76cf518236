package maps

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/fftmap/internal/assets"
	"github.com/Faultbox/fftmap/internal/logger"
	"github.com/Faultbox/fftmap/pkg/disc"
	"github.com/Faultbox/fftmap/pkg/formats"
	"github.com/Faultbox/fftmap/pkg/math"
)

// Assembly errors.
var (
	ErrMeshMissing    = errors.New("map has no valid primary mesh")
	ErrTextureMissing = errors.New("map has no valid texture")
)

// Mesh is a fully assembled map scene.
type Mesh struct {
	Map int

	Vertices         formats.Vertices
	Lights           [formats.NumDirectionalLights]formats.DirectionalLight
	AmbientLight     math.Vec3
	BackgroundTop    math.Vec3
	BackgroundBottom math.Vec3
	CenterTransform  math.Vec3

	Palette formats.Palette
	Texture *formats.Texture

	MeshValid    bool
	TextureValid bool
}

// Valid reports whether both the mesh and the texture were loaded.
func (m *Mesh) Valid() bool {
	return m.MeshValid && m.TextureValid
}

func (m *Mesh) setMesh(dm *formats.Mesh) {
	m.Vertices = dm.Vertices
	m.Lights = dm.Lights.Directional
	m.AmbientLight = dm.Lights.Ambient
	m.BackgroundTop = dm.Lights.BackgroundTop
	m.BackgroundBottom = dm.Lights.BackgroundBottom
	m.CenterTransform = dm.CenterTransform
	m.Palette = dm.Palette
	m.MeshValid = true
}

// Loader assembles maps from a disc image. A Loader is safe for concurrent
// use; each Load builds an independent Mesh.
type Loader struct {
	assets *assets.Manager
	table  *Table
	log    *zap.Logger
}

// NewLoader returns a loader reading maps listed in table from img.
func NewLoader(img *disc.Image, table *Table) *Loader {
	return &Loader{
		assets: assets.NewManager(img),
		table:  table,
		log:    logger.Named("maps"),
	}
}

// Table returns the loader's map table.
func (l *Loader) Table() *Table {
	return l.table
}

// CacheStats returns hit and miss counts of the loader's resource cache.
func (l *Loader) CacheStats() (hits, misses int) {
	return l.assets.Cache().Stats()
}

// Records reads and decodes the GNS directory of a map.
func (l *Loader) Records(mapNum int) ([]formats.Record, error) {
	e, err := l.table.Lookup(mapNum)
	if err != nil {
		return nil, err
	}

	length := e.Length
	if length <= 0 {
		length = disc.SectorSize
	}
	r, err := l.assets.Load(e.Sector, length)
	if err != nil {
		return nil, fmt.Errorf("reading GNS for map %d: %w", mapNum, err)
	}

	records, err := formats.DecodeGNS(r)
	if err != nil {
		return nil, fmt.Errorf("decoding GNS for map %d: %w", mapNum, err)
	}
	l.log.Debug("directory read",
		zap.Int("map", mapNum),
		zap.Int("sector", e.Sector),
		zap.Int("records", len(records)))
	return records, nil
}

// Load assembles a map. Textures later in the directory replace earlier
// ones. An override mesh is used only while no mesh has been loaded. Any
// failure discards the partial result.
func (l *Loader) Load(mapNum int) (*Mesh, error) {
	records, err := l.Records(mapNum)
	if err != nil {
		return nil, err
	}
	log := l.log.With(zap.Int("map", mapNum))

	m := &Mesh{Map: mapNum}
	for _, rec := range records {
		log.Debug("dispatch", zap.Stringer("kind", rec.Kind), zap.Uint16("sector", rec.Sector))
		switch rec.Kind {
		case formats.KindMeshPrimary:
			if err := l.loadMesh(m, rec); err != nil {
				return nil, fmt.Errorf("map %d: %w", mapNum, err)
			}
		case formats.KindMeshOverride:
			if m.MeshValid {
				log.Debug("override mesh ignored", zap.Stringer("record", rec))
				continue
			}
			if err := l.loadMesh(m, rec); err != nil {
				return nil, fmt.Errorf("map %d: %w", mapNum, err)
			}
		case formats.KindTexture:
			if err := l.loadTexture(m, rec); err != nil {
				return nil, fmt.Errorf("map %d: %w", mapNum, err)
			}
		case formats.KindMeshAlt:
			log.Debug("alternate mesh skipped", zap.Stringer("record", rec))
		}
	}

	if !m.MeshValid {
		return nil, fmt.Errorf("map %d: %w", mapNum, ErrMeshMissing)
	}
	if !m.TextureValid {
		return nil, fmt.Errorf("map %d: %w", mapNum, ErrTextureMissing)
	}

	log.Info("map assembled",
		zap.Int("records", len(records)),
		zap.Int("vertices", len(m.Vertices)))
	return m, nil
}

func (l *Loader) loadMesh(m *Mesh, rec formats.Record) error {
	r, err := l.assets.Load(int(rec.Sector), int(rec.Length))
	if err != nil {
		return err
	}
	dm, err := formats.DecodeMesh(r)
	if err != nil {
		return fmt.Errorf("decoding %s mesh at sector %d: %w", rec.Kind, rec.Sector, err)
	}
	m.setMesh(dm)
	return nil
}

func (l *Loader) loadTexture(m *Mesh, rec formats.Record) error {
	r, err := l.assets.Load(int(rec.Sector), int(rec.Length))
	if err != nil {
		return err
	}
	tex, err := formats.DecodeTexture(r)
	if err != nil {
		return fmt.Errorf("decoding texture at sector %d: %w", rec.Sector, err)
	}
	m.Texture = tex
	m.TextureValid = true
	return nil
}
