package markercluster

import (
	"math"

	"github.com/paulmach/orb"
)

// LatLng is a geographic position in degrees.
type LatLng struct {
	Lat, Lng float64
}

// Orb returns the position as an orb point (x = longitude, y = latitude).
func (ll LatLng) Orb() orb.Point { return orb.Point{ll.Lng, ll.Lat} }

func latLngFromOrb(p orb.Point) LatLng { return LatLng{Lat: p.Lat(), Lng: p.Lon()} }

func (ll LatLng) finite() bool {
	return !math.IsNaN(ll.Lat) && !math.IsInf(ll.Lat, 0) &&
		!math.IsNaN(ll.Lng) && !math.IsInf(ll.Lng, 0)
}

// Bounds is an axis-aligned latitude/longitude rectangle. The zero value is
// the empty box, which has no corners; extending it initialises both corners
// to the extended region. Bounds is a value type: every operation returns a
// new box and leaves the receiver untouched.
type Bounds struct {
	b   orb.Bound
	set bool
}

// NewBounds returns the smallest box containing both positions.
func NewBounds(a, b LatLng) Bounds {
	return Bounds{}.Extend(a).Extend(b)
}

// BoundsFromOrb wraps an orb bound.
func BoundsFromOrb(b orb.Bound) Bounds { return Bounds{b: b, set: true} }

// Empty reports whether the box has no corners yet.
func (b Bounds) Empty() bool { return !b.set }

// SouthWest returns the minimum corner. It is the zero position for an empty box.
func (b Bounds) SouthWest() LatLng { return latLngFromOrb(b.b.Min) }

// NorthEast returns the maximum corner. It is the zero position for an empty box.
func (b Bounds) NorthEast() LatLng { return latLngFromOrb(b.b.Max) }

// Orb returns the underlying orb bound and whether the box is non-empty.
func (b Bounds) Orb() (orb.Bound, bool) { return b.b, b.set }

// Center returns the midpoint of the box.
func (b Bounds) Center() LatLng { return latLngFromOrb(b.b.Center()) }

// Extend grows the box to include p.
func (b Bounds) Extend(p LatLng) Bounds {
	if !b.set {
		pt := p.Orb()
		return Bounds{b: orb.Bound{Min: pt, Max: pt}, set: true}
	}
	return Bounds{b: b.b.Extend(p.Orb()), set: true}
}

// Union grows the box to include o. Unioning with an empty box is a no-op.
func (b Bounds) Union(o Bounds) Bounds {
	switch {
	case !o.set:
		return b
	case !b.set:
		return o
	}
	return Bounds{b: b.b.Union(o.b), set: true}
}

// ContainsPoint reports whether p lies inside or on the edge of the box.
func (b Bounds) ContainsPoint(p LatLng) bool {
	return b.set && b.b.Contains(p.Orb())
}

// Contains reports whether o lies entirely inside the box, edges included.
func (b Bounds) Contains(o Bounds) bool {
	return b.set && o.set && b.b.Contains(o.b.Min) && b.b.Contains(o.b.Max)
}

// Intersects reports whether the boxes share at least one point.
func (b Bounds) Intersects(o Bounds) bool {
	return b.set && o.set && b.b.Intersects(o.b)
}

// Intersect returns the overlap of the two boxes, or the empty box if they
// do not intersect.
func (b Bounds) Intersect(o Bounds) Bounds {
	if !b.Intersects(o) {
		return Bounds{}
	}
	return Bounds{
		b: orb.Bound{
			Min: orb.Point{math.Max(b.b.Min[0], o.b.Min[0]), math.Max(b.b.Min[1], o.b.Min[1])},
			Max: orb.Point{math.Min(b.b.Max[0], o.b.Max[0]), math.Min(b.b.Max[1], o.b.Max[1])},
		},
		set: true,
	}
}

// Pad grows the box by ratio times its own span in every direction. Pad(1)
// yields a box three times as wide and tall, which covers one full pan of
// the visible area in any direction.
func (b Bounds) Pad(ratio float64) Bounds {
	if !b.set {
		return b
	}
	dLng := (b.b.Max[0] - b.b.Min[0]) * ratio
	dLat := (b.b.Max[1] - b.b.Min[1]) * ratio
	return Bounds{
		b: orb.Bound{
			Min: orb.Point{b.b.Min[0] - dLng, b.b.Min[1] - dLat},
			Max: orb.Point{b.b.Max[0] + dLng, b.b.Max[1] + dLat},
		},
		set: true,
	}
}
