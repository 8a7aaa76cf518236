package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/fftmap/pkg/disc"
	"github.com/Faultbox/fftmap/pkg/math"
)

// Mesh format errors.
var (
	ErrMeshPointer  = errors.New("unexpected primary mesh pointer")
	ErrPolygonCount = errors.New("polygon count out of range")
	ErrVertexCount  = errors.New("vertex count mismatch")
)

// Mesh resource header offsets.
const (
	meshPointerOffset    = 0x40
	palettePointerOffset = 0x44
	lightPointerOffset   = 0x64

	// PrimaryMeshOffset is where every primary mesh resource keeps its polygons.
	PrimaryMeshOffset = 0xC4
)

// Polygon count limits.
const (
	MaxTexturedTriangles   = 512
	MaxTexturedQuads       = 768
	MaxUntexturedTriangles = 64
	MaxUntexturedQuads     = 256
)

// On-disc record sizes.
const (
	positionSize     = 6  // 3 × int16
	normalSize       = 6  // 3 × 1.3.12
	triTexcoordSize  = 10 // u,v,palette,pad,u,v,page,pad,u,v
	quadTexcoordSize = 12 // triangle layout plus a fourth u,v
)

// Vertex is one corner of an emitted triangle.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	TexCoord math.Vec2
	Palette  float32 // Palette row 0..15
}

// Vertices is a triangle list.
type Vertices []Vertex

// FloatsPerVertex is the stride of Interleave's output.
const FloatsPerVertex = 9

// Interleave flattens vertices to position, normal, uv, palette floats.
func (vs Vertices) Interleave() []float32 {
	out := make([]float32, 0, len(vs)*FloatsPerVertex)
	for _, v := range vs {
		out = append(out,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.TexCoord.X, v.TexCoord.Y,
			v.Palette,
		)
	}
	return out
}

// Positions returns the position of every vertex.
func (vs Vertices) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(vs))
	for i, v := range vs {
		out[i] = v.Position
	}
	return out
}

// PolygonCounts holds the four polygon categories of a mesh, in disc order.
type PolygonCounts struct {
	TexturedTriangles   int // N
	TexturedQuads       int // P
	UntexturedTriangles int // Q
	UntexturedQuads     int // R
}

// VertexCount returns 3N + 6P + 3Q + 6R.
func (c PolygonCounts) VertexCount() int {
	return 3*c.TexturedTriangles + 6*c.TexturedQuads + 3*c.UntexturedTriangles + 6*c.UntexturedQuads
}

// Validate checks every count against its format limit.
func (c PolygonCounts) Validate() error {
	limits := []struct {
		name  string
		count int
		max   int
	}{
		{"textured triangles", c.TexturedTriangles, MaxTexturedTriangles},
		{"textured quads", c.TexturedQuads, MaxTexturedQuads},
		{"untextured triangles", c.UntexturedTriangles, MaxUntexturedTriangles},
		{"untextured quads", c.UntexturedQuads, MaxUntexturedQuads},
	}
	for _, l := range limits {
		if l.count > l.max {
			return fmt.Errorf("%w: %d %s (max %d)", ErrPolygonCount, l.count, l.name, l.max)
		}
	}
	return nil
}

func (c PolygonCounts) texturedCorners() int {
	return 3*c.TexturedTriangles + 4*c.TexturedQuads
}

func (c PolygonCounts) positionsSize() int {
	return (c.texturedCorners() + 3*c.UntexturedTriangles + 4*c.UntexturedQuads) * positionSize
}

func (c PolygonCounts) normalsSize() int {
	return c.texturedCorners() * normalSize
}

func (c PolygonCounts) texcoordsSize() int {
	return c.TexturedTriangles*triTexcoordSize + c.TexturedQuads*quadTexcoordSize
}

// Mesh is a decoded primary mesh resource.
type Mesh struct {
	Counts          PolygonCounts
	Vertices        Vertices
	Palette         Palette
	Lights          Lights
	CenterTransform math.Vec3
}

// ParseMesh parses a mesh resource from raw bytes.
func ParseMesh(data []byte) (*Mesh, error) {
	r, err := disc.NewResource(data)
	if err != nil {
		return nil, err
	}
	return DecodeMesh(r)
}

// DecodeMesh decodes geometry, palette and lighting from a mesh resource.
func DecodeMesh(r *disc.Resource) (*Mesh, error) {
	ptr, err := readRawPointer(r, meshPointerOffset)
	if err != nil {
		return nil, fmt.Errorf("reading mesh pointer: %w", err)
	}
	if ptr != PrimaryMeshOffset {
		return nil, fmt.Errorf("%w: 0x%x (expected 0x%x)", ErrMeshPointer, ptr, PrimaryMeshOffset)
	}
	if err := r.Seek(int(ptr)); err != nil {
		return nil, fmt.Errorf("%w: polygon header", ErrTruncatedResource)
	}

	counts := PolygonCounts{
		TexturedTriangles:   int(r.ReadU16()),
		TexturedQuads:       int(r.ReadU16()),
		UntexturedTriangles: int(r.ReadU16()),
		UntexturedQuads:     int(r.ReadU16()),
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: polygon counts: %v", ErrTruncatedResource, err)
	}
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	positionsStart := r.Offset()
	normalsStart := positionsStart + counts.positionsSize()
	texcoordsStart := normalsStart + counts.normalsSize()
	if end := texcoordsStart + counts.texcoordsSize(); end > r.Len() {
		return nil, fmt.Errorf("%w: polygons end at 0x%x, resource is 0x%x", ErrTruncatedResource, end, r.Len())
	}

	// Each pass walks the same polygon order from its own section start.
	if err := r.Seek(positionsStart); err != nil {
		return nil, err
	}
	mesh := &Mesh{
		Counts:   counts,
		Vertices: readPositions(r, counts),
	}
	if err := checkVertexCount(counts, len(mesh.Vertices)); err != nil {
		return nil, err
	}

	if err := r.Seek(normalsStart); err != nil {
		return nil, err
	}
	readNormals(r, counts, mesh.Vertices)

	if err := r.Seek(texcoordsStart); err != nil {
		return nil, err
	}
	readTexcoords(r, counts, mesh.Vertices)

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: polygon data: %v", ErrTruncatedResource, err)
	}

	if mesh.Palette, err = decodePalette(r); err != nil {
		return nil, err
	}
	if mesh.Lights, err = decodeLights(r); err != nil {
		return nil, err
	}

	mesh.CenterTransform = CenterTransform(mesh.Vertices)
	return mesh, nil
}

// readRawPointer reads the u32 stored at off without range checking it.
func readRawPointer(r *disc.Resource, off int) (uint32, error) {
	if err := r.Seek(off); err != nil {
		return 0, fmt.Errorf("%w: header too short for pointer at 0x%x", ErrTruncatedResource, off)
	}
	ptr := r.ReadU32()
	if err := r.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncatedResource, err)
	}
	return ptr, nil
}

// readPointer reads the u32 stored at off and returns it as an offset
// inside the resource.
func readPointer(r *disc.Resource, off int) (int, error) {
	ptr, err := readRawPointer(r, off)
	if err != nil {
		return 0, err
	}
	if int64(ptr) > int64(r.Len()) {
		return 0, fmt.Errorf("%w: pointer 0x%x at 0x%x beyond 0x%x", ErrTruncatedResource, ptr, off, r.Len())
	}
	return int(ptr), nil
}

// splitQuad turns corners a,b,c,d into the triangles (a,b,c) and (b,d,c).
func splitQuad[T any](a, b, c, d T) [6]T {
	return [6]T{a, b, c, b, d, c}
}

// readPosition reads one int16 triple scaled by 1/100 with Y and Z flipped.
func readPosition(r *disc.Resource) math.Vec3 {
	x := float32(r.ReadI16())
	y := float32(r.ReadI16())
	z := float32(r.ReadI16())
	return math.Vec3{X: x / 100, Y: -y / 100, Z: -z / 100}
}

// readNormal reads one 1.3.12 triple with Y and Z flipped.
func readNormal(r *disc.Resource) math.Vec3 {
	x := readFixed(r)
	y := readFixed(r)
	z := readFixed(r)
	return math.Vec3{X: x, Y: -y, Z: -z}
}

// readPositions reads positions in category order N, P, Q, R and returns
// one vertex per emitted triangle corner.
func readPositions(r *disc.Resource, c PolygonCounts) Vertices {
	vs := make(Vertices, 0, c.VertexCount())
	tri := func() {
		for j := 0; j < 3; j++ {
			vs = append(vs, Vertex{Position: readPosition(r)})
		}
	}
	quad := func() {
		a, b, cc, d := readPosition(r), readPosition(r), readPosition(r), readPosition(r)
		for _, p := range splitQuad(a, b, cc, d) {
			vs = append(vs, Vertex{Position: p})
		}
	}

	for j := 0; j < c.TexturedTriangles; j++ {
		tri()
	}
	for j := 0; j < c.TexturedQuads; j++ {
		quad()
	}
	for j := 0; j < c.UntexturedTriangles; j++ {
		tri()
	}
	for j := 0; j < c.UntexturedQuads; j++ {
		quad()
	}
	return vs
}

// checkVertexCount compares the vertices a pass emitted with 3N+6P+3Q+6R.
func checkVertexCount(c PolygonCounts, emitted int) error {
	if want := c.VertexCount(); emitted != want {
		return fmt.Errorf("%w: emitted %d, expected %d", ErrVertexCount, emitted, want)
	}
	return nil
}

// readNormals fills normals for the textured polygons. Untextured
// polygons carry no normals on disc.
func readNormals(r *disc.Resource, c PolygonCounts, vs Vertices) {
	i := 0
	for j := 0; j < c.TexturedTriangles; j++ {
		for k := 0; k < 3; k++ {
			vs[i].Normal = readNormal(r)
			i++
		}
	}
	for j := 0; j < c.TexturedQuads; j++ {
		a, b, cc, d := readNormal(r), readNormal(r), readNormal(r), readNormal(r)
		for _, n := range splitQuad(a, b, cc, d) {
			vs[i].Normal = n
			i++
		}
	}
}

// texcoord folds the 2-bit page into V: four 256px pages stacked in 1024px.
func texcoord(u, v, page uint8) math.Vec2 {
	return math.Vec2{
		X: float32(u) / 255,
		Y: (float32(v) + float32(page)*256) / 1023,
	}
}

type uv struct{ u, v uint8 }

// readTexcoords fills texcoords and palette rows for the textured polygons.
//
// Triangle layout: u,v,palette,pad,u,v,page,pad,u,v.
// Quads append a fourth u,v.
func readTexcoords(r *disc.Resource, c PolygonCounts, vs Vertices) {
	i := 0
	head := func() (a, b uv, palette, page uint8) {
		a = uv{r.ReadU8(), r.ReadU8()}
		palette = r.ReadU8()
		r.Skip(1)
		b = uv{r.ReadU8(), r.ReadU8()}
		page = r.ReadU8() & 0x03
		r.Skip(1)
		return a, b, palette, page
	}
	emit := func(t uv, palette, page uint8) {
		vs[i].TexCoord = texcoord(t.u, t.v, page)
		vs[i].Palette = float32(palette)
		i++
	}

	for j := 0; j < c.TexturedTriangles; j++ {
		a, b, palette, page := head()
		cc := uv{r.ReadU8(), r.ReadU8()}
		for _, t := range [3]uv{a, b, cc} {
			emit(t, palette, page)
		}
	}
	for j := 0; j < c.TexturedQuads; j++ {
		a, b, palette, page := head()
		cc := uv{r.ReadU8(), r.ReadU8()}
		d := uv{r.ReadU8(), r.ReadU8()}
		for _, t := range splitQuad(a, b, cc, d) {
			emit(t, palette, page)
		}
	}
}

// CenterTransform returns the translation that centers the bounding box of
// vs on the origin in X and Z. Y is fixed at -0.5.
func CenterTransform(vs Vertices) math.Vec3 {
	min, max := math.Bounds(vs.Positions())
	center := min.Add(max).Scale(0.5).Neg()
	center.Y = -0.5
	return center
}

// ParsePalette decodes only the palette of a mesh resource.
func ParsePalette(data []byte) (Palette, error) {
	r, err := disc.NewResource(data)
	if err != nil {
		return Palette{}, err
	}
	return decodePalette(r)
}

func decodePalette(r *disc.Resource) (Palette, error) {
	var p Palette

	ptr, err := readPointer(r, palettePointerOffset)
	if err != nil {
		return p, fmt.Errorf("reading palette pointer: %w", err)
	}
	if err := r.Seek(ptr); err != nil {
		return p, err
	}
	if r.Remaining() < PaletteSize*2 {
		return p, fmt.Errorf("%w: palette at 0x%x", ErrTruncatedResource, ptr)
	}

	for i := range p {
		p[i] = readRGB15(r)
	}
	return p, nil
}
