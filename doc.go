// Package markercluster groups geographic points into non-overlapping
// on-screen clusters for a zoomable, pannable map.
//
// Points are loaded into an immutable KD-tree whose nodes carry the count,
// centroid and bounding box of everything below them. For each view, the
// tree is walked from the root: regions that are far enough apart on screen
// are handled separately, and the rest are cut into a coarse geographic grid
// whose cells are summarised straight from the tree and merged into a pixel
// grid of the configured radius.
//
// Basic usage:
//
//	idx, err := markercluster.Build(points)
//	view := markercluster.WebMercator{Zoom: 12}.Viewport(center, 1024, 768)
//	view.Bounds = view.Bounds.Pad(1)
//	clusters, err := markercluster.Aggregate(idx, view, markercluster.DefaultConfig())
//	// clusters[key].Count, .Centroid, .Bounds describe each on-screen group
//
// The outline of a cluster is its convex hull:
//
//	hull := markercluster.ConvexHull(markercluster.Positions(idx.Members(c)))
//
// Hosts whose point set changes over time should use a [Session], which
// folds bursts of mutations into a single rebuild.
package markercluster
