package markercluster

// Summary holds the aggregate statistics of a set of points: how many there
// are, their mean position and their bounding box. Singleton is set only
// when Count == 1 and names the one point the summary stands for.
type Summary struct {
	Count    int
	Centroid LatLng
	Bounds   Bounds

	Singleton *Point
}

// summaryOf returns the summary of a single point.
func summaryOf(p Point) Summary {
	pos := p.LatLng()
	return Summary{
		Count:     1,
		Centroid:  pos,
		Bounds:    Bounds{}.Extend(pos),
		Singleton: &p,
	}
}

// Merge combines two summaries. The centroid is the count-weighted mean of
// both centroids and the bounds are the union. Merge is associative and
// commutative up to floating point rounding, and the empty summary is its
// identity. The result keeps a singleton only if exactly one point remains.
func (s Summary) Merge(o Summary) Summary {
	switch {
	case o.Count == 0:
		return s
	case s.Count == 0:
		return o
	}
	n := s.Count + o.Count
	ws, wo := float64(s.Count), float64(o.Count)
	return Summary{
		Count: n,
		Centroid: LatLng{
			Lat: (s.Centroid.Lat*ws + o.Centroid.Lat*wo) / float64(n),
			Lng: (s.Centroid.Lng*ws + o.Centroid.Lng*wo) / float64(n),
		},
		Bounds: s.Bounds.Union(o.Bounds),
	}
}

// SizeClass buckets a point count the way cluster icons are usually styled.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// Size returns the display size class for the summary's count.
func (s Summary) Size() SizeClass {
	switch {
	case s.Count < 10:
		return SizeSmall
	case s.Count < 100:
		return SizeMedium
	default:
		return SizeLarge
	}
}
