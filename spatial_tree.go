package markercluster

// Dimension is the coordinate a tree node splits on.
type Dimension uint8

const (
	DimLat Dimension = iota
	DimLng
)

func (d Dimension) next() Dimension { return (d + 1) % 2 }

func (d Dimension) String() string {
	if d == DimLng {
		return "lng"
	}
	return "lat"
}

type childKind uint8

const (
	childNone childKind = iota
	childLeaf
	childNode
)

// child refers either to a point (idx into Index.points) or to an internal
// node (idx into Index.nodes).
type child struct {
	kind childKind
	idx  int
}

// node is one internal node of the index arena. Points
// points[start:end] are exactly the leaves below it.
type node struct {
	left, right child
	parent      int // -1 for the root
	dim         Dimension
	start, end  int

	count    int
	centroid LatLng
	bounds   Bounds
}

// Visit is one record produced by Index.Walk. Exactly one of Node >= 0 or
// Leaf != nil holds.
type Visit struct {
	Depth  int
	Node   int // arena index of an internal node, or -1 for a leaf
	Parent int // arena index of the enclosing node, or -1 for the root
	Leaf   *Point

	// Summary holds the node's precomputed statistics, or the leaf's
	// singleton summary.
	Summary Summary
}
