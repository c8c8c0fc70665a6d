package markercluster

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"gonum.org/v1/gonum/spatial/r2"
)

// Projection converts geographic positions to screen pixels for one zoom and
// pan state. X grows eastwards and Y grows southwards, as on screen.
type Projection interface {
	Project(LatLng) r2.Vec
}

// ProjectionFunc adapts a plain function to the Projection interface.
type ProjectionFunc func(LatLng) r2.Vec

// Project calls f(ll).
func (f ProjectionFunc) Project(ll LatLng) r2.Vec { return f(ll) }

// DefaultTileSize is the edge length in pixels of one web map tile.
const DefaultTileSize = 256

const halfWorld = orb.EarthRadius * math.Pi

// WebMercator projects positions to absolute pixel coordinates of the
// spherical Mercator world used by web maps, where the whole world at zoom z
// is TileSize * 2^z pixels wide.
type WebMercator struct {
	Zoom     float64
	TileSize float64 // zero means DefaultTileSize
}

func (m WebMercator) worldSize() float64 {
	ts := m.TileSize
	if ts <= 0 {
		ts = DefaultTileSize
	}
	return ts * math.Exp2(m.Zoom)
}

// Project returns the pixel position of ll.
func (m WebMercator) Project(ll LatLng) r2.Vec {
	p := project.WGS84.ToMercator(ll.Orb())
	scale := m.worldSize() / (2 * halfWorld)
	return r2.Vec{
		X: (p[0] + halfWorld) * scale,
		Y: (halfWorld - p[1]) * scale,
	}
}

// Unproject is the inverse of Project.
func (m WebMercator) Unproject(px r2.Vec) LatLng {
	scale := 2 * halfWorld / m.worldSize()
	p := orb.Point{px.X*scale - halfWorld, halfWorld - px.Y*scale}
	return latLngFromOrb(project.Mercator.ToWGS84(p))
}

// Viewport returns the view of a width x height pixel window centred on
// center at this projection's zoom.
func (m WebMercator) Viewport(center LatLng, width, height float64) Viewport {
	c := m.Project(center)
	sw := m.Unproject(r2.Vec{X: c.X - width/2, Y: c.Y + height/2})
	ne := m.Unproject(r2.Vec{X: c.X + width/2, Y: c.Y - height/2})
	return Viewport{
		Bounds:     NewBounds(sw, ne),
		Zoom:       m.Zoom,
		Projection: m,
	}
}

// pixelSize returns the projected width and height of b.
func pixelSize(proj Projection, b Bounds) (w, h float64) {
	sw := proj.Project(b.SouthWest())
	ne := proj.Project(b.NorthEast())
	return math.Abs(ne.X - sw.X), math.Abs(sw.Y - ne.Y)
}
