package markercluster

import (
	"errors"
	"fmt"
)

// ErrInvalidPoint is returned when a point has a NaN or infinite coordinate.
// Such points would break the min/max invariants of every bounding box they
// contribute to, so they are rejected instead of indexed.
var ErrInvalidPoint = errors.New("markercluster: invalid point")

// Point is a caller-supplied marker. ID is an opaque handle that is carried
// through the index untouched and reported back in singleton summaries.
type Point struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatLng returns the point's position.
func (p Point) LatLng() LatLng { return LatLng{Lat: p.Lat, Lng: p.Lng} }

// Validate returns an error wrapping ErrInvalidPoint if p cannot be indexed.
func (p Point) Validate() error {
	if !p.LatLng().finite() {
		return fmt.Errorf("%w: %q has coordinates (%v, %v)", ErrInvalidPoint, p.ID, p.Lat, p.Lng)
	}
	return nil
}
