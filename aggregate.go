package markercluster

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Config controls how points are grouped on screen.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Radius is the size in pixels of the screen grid cells that clusters
	// are merged into. A cluster covers at most this many pixels from its
	// centre. Must be > 0. Default: 80.
	Radius float64

	// SeparationFactor scales Radius into the minimum projected width and
	// height two sibling regions must each have before they are treated as
	// visually distinct. Smaller values split more eagerly. Must be in
	// (0, 1] and Radius*SeparationFactor must be >= 1. Default: 0.82.
	SeparationFactor float64

	// DisableClusteringAtZoom turns clustering off at this zoom level and
	// above: every visible point is reported on its own. 0 means clustering
	// is never disabled. Must be >= 0. Default: 0.
	DisableClusteringAtZoom float64

	// SingleMarkerMode reports lone points as one-member clusters instead of
	// plain markers. Default: false.
	SingleMarkerMode bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Radius:           80,
		SeparationFactor: 0.82,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Radius == 0 {
		cfg.Radius = def.Radius
	}
	if cfg.SeparationFactor == 0 {
		cfg.SeparationFactor = def.SeparationFactor
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if !(cfg.Radius > 0) || math.IsInf(cfg.Radius, 0) {
		return fmt.Errorf("markercluster: Radius must be a positive number, got %v", cfg.Radius)
	}
	if !(cfg.SeparationFactor > 0 && cfg.SeparationFactor <= 1) {
		return fmt.Errorf("markercluster: SeparationFactor must be in (0, 1], got %v", cfg.SeparationFactor)
	}
	if math.Floor(cfg.Radius*cfg.SeparationFactor) < 1 {
		return fmt.Errorf("markercluster: Radius*SeparationFactor must be >= 1 pixel, got %v", cfg.Radius*cfg.SeparationFactor)
	}
	if !(cfg.DisableClusteringAtZoom >= 0) {
		return fmt.Errorf("markercluster: DisableClusteringAtZoom must be >= 0, got %v", cfg.DisableClusteringAtZoom)
	}
	return nil
}

// Viewport is the visible part of the map for one aggregation pass.
type Viewport struct {
	// Bounds is the visible region, usually already padded by the host so
	// that a pan does not uncover unclustered space.
	Bounds Bounds
	Zoom   float64

	// Projection maps positions to pixels at Zoom.
	Projection Projection
}

// GridKey identifies a screen grid cell: X and Y are the pixel coordinates
// divided by the cluster radius and floored. Seq tells apart points that
// share a cell when clustering is disabled; it is always 0 otherwise.
type GridKey struct {
	X, Y int
	Seq  int
}

// Cluster is one entry of an aggregation result: a group of nearby points,
// or a single point, shown at one place on screen.
type Cluster struct {
	Key GridKey
	Summary

	// DisplayAsSingleton is true when the entry wraps exactly one point and
	// should be drawn as that point rather than as a cluster marker.
	DisplayAsSingleton bool
}

// Aggregate groups the points of idx visible in view into screen clusters.
//
// Starting at the root, a node whose two children are both internal nodes
// and each project to at least Radius*SeparationFactor pixels in width and
// height is split and its children handled independently. Any other node is
// cut into a grid of geographic cells roughly twice that size, each cell's
// statistics are taken from the index, and every non-empty cell is merged
// into the screen grid cell its centroid falls in.
//
// A nil index, an empty viewport or a missing projection yields an empty
// result. Aggregate does not modify idx and may be called concurrently on
// the same index.
func Aggregate(idx *Index, view Viewport, cfg Config) (map[GridKey]Cluster, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	out := make(map[GridKey]Cluster)
	if idx == nil || view.Bounds.Empty() || view.Projection == nil {
		return out, nil
	}

	a := &aggregator{
		idx:     idx,
		view:    view,
		radius:  cfg.Radius,
		minSize: math.Floor(cfg.Radius * cfg.SeparationFactor),
		grid:    make(map[GridKey]Summary),
	}

	if cfg.DisableClusteringAtZoom > 0 && view.Zoom >= cfg.DisableClusteringAtZoom {
		for _, p := range idx.RangeLeaves(view.Bounds) {
			key := a.keyOf(p.LatLng())
			for _, taken := out[key]; taken; _, taken = out[key] {
				key.Seq++
			}
			out[key] = Cluster{Key: key, Summary: summaryOf(p), DisplayAsSingleton: !cfg.SingleMarkerMode}
		}
		return out, nil
	}

	w, h := pixelSize(view.Projection, idx.nodes[0].bounds)
	a.visit(0, w, h)

	for key, s := range a.grid {
		out[key] = Cluster{
			Key:                key,
			Summary:            s,
			DisplayAsSingleton: s.Count == 1 && s.Singleton != nil && !cfg.SingleMarkerMode,
		}
	}
	return out, nil
}

// aggregator holds the state of one Aggregate pass.
type aggregator struct {
	idx     *Index
	view    Viewport
	radius  float64
	minSize float64
	grid    map[GridKey]Summary
}

// visit handles node id, whose bounds project to w x h pixels.
func (a *aggregator) visit(id int, w, h float64) {
	nd := &a.idx.nodes[id]
	// Off-screen nodes are dropped here, before the one-cell shortcut in
	// subdivide, so no region outside the view is ever reported.
	if !a.view.Bounds.Intersects(nd.bounds) {
		return
	}

	if nd.left.kind == childNode && nd.right.kind == childNode {
		lw, lh := pixelSize(a.view.Projection, a.idx.nodes[nd.left.idx].bounds)
		rw, rh := pixelSize(a.view.Projection, a.idx.nodes[nd.right.idx].bounds)
		if lw >= a.minSize && lh >= a.minSize && rw >= a.minSize && rh >= a.minSize {
			a.visit(nd.left.idx, lw, lh)
			a.visit(nd.right.idx, rw, rh)
			return
		}
	}

	a.subdivide(id, w, h)
}

// subdivide cuts node id into a geographic grid whose cells each project to
// about 2*minSize pixels and adds every non-empty visible cell to the screen
// grid.
func (a *aggregator) subdivide(id int, w, h float64) {
	divW := divisions(w, a.minSize)
	divH := divisions(h, a.minSize)
	if divW == 1 && divH == 1 {
		a.add(a.idx.nodeSummary(id))
		return
	}

	nb := a.idx.nodes[id].bounds
	sw, ne := nb.SouthWest(), nb.NorthEast()
	vsw, vne := a.view.Bounds.SouthWest(), a.view.Bounds.NorthEast()
	dLat := (ne.Lat - sw.Lat) / float64(divH)
	dLng := (ne.Lng - sw.Lng) / float64(divW)

	// Cells wholly below or left of the view are skipped without being
	// generated; cells past its far edge end the row or column.
	for iLat := firstCell(sw.Lat, vsw.Lat, dLat, divH); iLat < divH; iLat++ {
		latLo, latHi := cellSpan(sw.Lat, ne.Lat, dLat, iLat, divH)
		if latLo > vne.Lat {
			break
		}
		for iLng := firstCell(sw.Lng, vsw.Lng, dLng, divW); iLng < divW; iLng++ {
			lngLo, lngHi := cellSpan(sw.Lng, ne.Lng, dLng, iLng, divW)
			if lngLo > vne.Lng {
				break
			}
			cell := NewBounds(LatLng{Lat: latLo, Lng: lngLo}, LatLng{Lat: latHi, Lng: lngHi})
			if !a.view.Bounds.Intersects(cell) {
				continue
			}
			q := cell.Intersect(nb)
			if q.Empty() {
				continue
			}
			if s, ok := a.idx.statsInRange(id, q); ok && s.Count > 0 {
				a.add(s)
			}
		}
	}
}

// divisions returns how many cells of 2*minSize pixels fit in size pixels,
// rounded, and never less than one.
func divisions(size, minSize float64) int {
	n := math.Round(size / (2 * minSize))
	if !(n >= 1) {
		return 1
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// firstCell returns the index of the first cell of width d starting at lo
// that can reach viewLo, erring one cell early.
func firstCell(lo, viewLo, d float64, div int) int {
	if !(d > 0) || viewLo <= lo {
		return 0
	}
	i := int(math.Floor((viewLo-lo)/d)) - 1
	return max(0, min(i, div))
}

// cellSpan returns the closed span of cell i out of div cells of width d
// covering [lo, hi]. Inner cells stop one ulp short of the next cell so that
// a value on a grid line belongs to exactly one cell.
func cellSpan(lo, hi, d float64, i, div int) (float64, float64) {
	cellLo := lo + float64(i)*d
	if i == div-1 {
		return cellLo, hi
	}
	cellHi := math.Nextafter(lo+float64(i+1)*d, math.Inf(-1))
	if cellHi < cellLo {
		cellHi = cellLo
	}
	return cellLo, cellHi
}

// keyOf returns the screen grid cell of a position.
func (a *aggregator) keyOf(ll LatLng) GridKey {
	px := a.view.Projection.Project(ll)
	return GridKey{
		X: int(math.Floor(px.X / a.radius)),
		Y: int(math.Floor(px.Y / a.radius)),
	}
}

// add merges s into the screen grid cell of its centroid.
func (a *aggregator) add(s Summary) {
	key := a.keyOf(s.Centroid)
	if old, ok := a.grid[key]; ok {
		s = old.Merge(s)
	}
	a.grid[key] = s
}

// Sorted returns the clusters ordered by grid row, then column, then Seq.
func Sorted(clusters map[GridKey]Cluster) []Cluster {
	out := make([]Cluster, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Cluster) int {
		if c := cmp.Compare(a.Key.Y, b.Key.Y); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Key.X, b.Key.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.Seq, b.Key.Seq)
	})
	return out
}
