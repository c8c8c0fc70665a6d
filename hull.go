package markercluster

import (
	"slices"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
)

// ConvexHull returns the vertices of the convex hull of points using
// quickhull, treating latitude and longitude as planar coordinates, which is
// accurate enough at cluster scale. Every returned vertex is one of the
// input points.
//
// Fewer than three points, or points that are all collinear, have no proper
// hull; a copy of the input in its original order is returned instead.
func ConvexHull(points []LatLng) []LatLng {
	if len(points) < 3 {
		return slices.Clone(points)
	}

	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		if p.Lat < lo.Lat {
			lo = p
		}
		if p.Lat > hi.Lat {
			hi = p
		}
	}

	hull := buildHull(lo, hi, points, nil)
	hull = buildHull(hi, lo, points, hull)
	if len(hull) < 3 {
		return slices.Clone(points)
	}
	return hull
}

// buildHull appends to hull the hull vertices on the positive side of the
// baseline from a to b, starting with a and excluding b.
func buildHull(a, b LatLng, candidates, hull []LatLng) []LatLng {
	far, outside := farthestFrom(a, b, candidates)
	if outside == nil {
		return append(hull, a)
	}
	hull = buildHull(a, far, outside, hull)
	return buildHull(far, b, outside, hull)
}

// farthestFrom returns the candidate farthest from the baseline a->b on its
// positive side, together with all candidates strictly on that side. The
// returned slice is nil if no candidate is.
func farthestFrom(a, b LatLng, candidates []LatLng) (LatLng, []LatLng) {
	var (
		far     LatLng
		maxD    float64
		outside []LatLng
	)
	base := r2.Sub(vec(b), vec(a))
	for _, p := range candidates {
		d := r2.Cross(base, r2.Sub(vec(p), vec(a)))
		if d <= 0 {
			continue
		}
		outside = append(outside, p)
		if d > maxD {
			maxD, far = d, p
		}
	}
	return far, outside
}

func vec(ll LatLng) r2.Vec { return r2.Vec{X: ll.Lat, Y: ll.Lng} }

// HullRing returns the convex hull of points as a closed orb ring, ready to
// be drawn as a coverage polygon.
func HullRing(points []LatLng) orb.Ring {
	hull := ConvexHull(points)
	if len(hull) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(hull)+1)
	for _, p := range hull {
		ring = append(ring, p.Orb())
	}
	return append(ring, hull[0].Orb())
}

// Positions returns the positions of points, in order.
func Positions(points []Point) []LatLng {
	out := make([]LatLng, len(points))
	for i, p := range points {
		out[i] = p.LatLng()
	}
	return out
}
