package markercluster

import (
	"math/rand"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestConvexHull_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		points []LatLng
	}{
		{"empty", nil},
		{"one", []LatLng{{1, 2}}},
		{"two", []LatLng{{1, 2}, {3, 4}}},
		{"collinear", []LatLng{{0, 0}, {2, 2}, {1, 1}, {3, 3}}},
		{"same latitude", []LatLng{{5, 0}, {5, 3}, {5, 1}}},
		{"coincident", []LatLng{{1, 1}, {1, 1}, {1, 1}}},
	}
	for _, tc := range tests {
		got := ConvexHull(tc.points)
		if !slices.Equal(got, tc.points) {
			t.Errorf("%s: ConvexHull = %v, want the input back %v", tc.name, got, tc.points)
		}
		if len(tc.points) > 0 && &got[0] == &tc.points[0] {
			t.Errorf("%s: result aliases the input", tc.name)
		}
	}
}

func TestConvexHull_Square(t *testing.T) {
	corners := []LatLng{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	points := append(slices.Clone(corners), LatLng{0.5, 0.5}, LatLng{0.2, 0.7}, LatLng{0.5, 0}, LatLng{0.9, 0.1})
	got := ConvexHull(points)
	if len(got) != 4 {
		t.Fatalf("hull = %v, want the 4 corners", got)
	}
	for _, c := range corners {
		if !slices.Contains(got, c) {
			t.Errorf("hull %v is missing corner %v", got, c)
		}
	}
}

// checkHull verifies that hull is made of input points and that every input
// point lies on or inside it.
func checkHull(t *testing.T, points, hull []LatLng) {
	t.Helper()
	if len(hull) < 3 {
		t.Fatalf("hull has %d vertices", len(hull))
	}
	for i, v := range hull {
		if !slices.Contains(points, v) {
			t.Errorf("vertex %v is not an input point", v)
		}
		if slices.Contains(hull[i+1:], v) {
			t.Errorf("vertex %v appears twice", v)
		}
	}
	for i := range hull {
		a, b := vec(hull[i]), vec(hull[(i+1)%len(hull)])
		for _, p := range points {
			if d := r2.Cross(r2.Sub(b, a), r2.Sub(vec(p), a)); d > 1e-9 {
				t.Fatalf("point %v lies outside edge %v -> %v (cross %v)", p, hull[i], hull[(i+1)%len(hull)], d)
			}
		}
	}
}

func TestConvexHull_RandomPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for trial := 0; trial < 20; trial++ {
		n := 3 + rng.Intn(300)
		points := make([]LatLng, n)
		for i := range points {
			points[i] = LatLng{Lat: rng.Float64()*20 - 10, Lng: rng.Float64()*20 - 10}
		}
		checkHull(t, points, ConvexHull(points))
	}
}

func TestConvexHull_ClusterMembers(t *testing.T) {
	x := mustBuild(t, generatePoints(400, 32))
	clusters := mustAggregate(t, x, worldView(2), DefaultConfig())
	for _, c := range clusters {
		if c.Count < 3 {
			continue
		}
		pos := Positions(x.Members(c))
		if len(pos) < c.Count {
			t.Fatalf("cluster %v covers %d points, count %d", c.Key, len(pos), c.Count)
		}
		hull := ConvexHull(pos)
		if len(hull) < 3 {
			continue
		}
		checkHull(t, pos, hull)
	}
}

func TestHullRing_Closed(t *testing.T) {
	ring := HullRing([]LatLng{{0, 0}, {0, 2}, {2, 2}, {2, 0}, {1, 1}})
	if len(ring) != 5 {
		t.Fatalf("ring = %v, want 4 vertices plus the closing point", ring)
	}
	if !ring.Closed() {
		t.Error("ring is not closed")
	}
	if HullRing(nil) != nil {
		t.Error("HullRing(nil) should be nil")
	}
}
