package markercluster

import (
	"cmp"
	"iter"
	"slices"
	"sort"
)

// Index is an immutable KD-tree over a point set, splitting on latitude at
// even depths and longitude at odd depths. Every internal node carries the
// count, centroid and bounding box of the points below it so that range
// statistics can be answered without visiting fully covered subtrees.
//
// The tree is stored as an arena: nodes[0] is the root and nodes refer to
// their children and parent by position. Points are reordered internally so
// that the leaves below any node form the contiguous run points[start:end].
//
// A nil *Index is the empty index; all queries on it return empty results.
type Index struct {
	points     []Point // tree order
	leafParent []int   // leafParent[i] is the node holding points[i]
	nodes      []node
	byID       map[string]int // first occurrence of each ID in points
}

// Build constructs an index over points. The input slice is copied and left
// untouched. Build returns (nil, nil) for an empty point set and an error
// wrapping ErrInvalidPoint if any point has a non-finite coordinate.
//
// Each level sorts only its own sub-slice by the active dimension, breaking
// ties on the other coordinate and then on ID so that builds are
// reproducible regardless of input order.
func Build(points []Point) (*Index, error) {
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	n := len(points)
	if n == 0 {
		return nil, nil
	}

	x := &Index{
		points:     slices.Clone(points),
		leafParent: make([]int, n),
		// A tree over n >= 2 points has at most n-1 internal nodes; a single
		// point still gets a root.
		nodes: make([]node, 0, max(n-1, 1)),
		byID:  make(map[string]int, n),
	}
	x.buildNode(0, n, DimLat, -1)

	for i := n - 1; i >= 0; i-- {
		x.byID[x.points[i].ID] = i
	}
	return x, nil
}

// buildNode builds an internal node over points[start:end] and returns its
// arena index. The root is always an internal node, even for one point.
func (x *Index) buildNode(start, end int, dim Dimension, parent int) int {
	x.sortByDimension(start, end, dim)

	id := len(x.nodes)
	x.nodes = append(x.nodes, node{parent: parent, dim: dim, start: start, end: end})

	mid := start + (end-start)/2
	left := x.buildChild(start, mid, dim.next(), id)
	right := x.buildChild(mid, end, dim.next(), id)

	s := x.childSummary(left).Merge(x.childSummary(right))
	if s.Count != end-start {
		panic("markercluster: node count does not match its children")
	}

	nd := &x.nodes[id]
	nd.left, nd.right = left, right
	nd.count, nd.centroid, nd.bounds = s.Count, s.Centroid, s.Bounds
	return id
}

func (x *Index) buildChild(start, end int, dim Dimension, parent int) child {
	switch end - start {
	case 0:
		return child{}
	case 1:
		x.leafParent[start] = parent
		return child{kind: childLeaf, idx: start}
	}
	return child{kind: childNode, idx: x.buildNode(start, end, dim, parent)}
}

// sortByDimension sorts points[start:end] by the given dimension.
func (x *Index) sortByDimension(start, end int, dim Dimension) {
	sub := x.points[start:end]
	sort.Slice(sub, func(i, j int) bool {
		a, b := sub[i], sub[j]
		if dim == DimLng {
			a.Lat, a.Lng = a.Lng, a.Lat
			b.Lat, b.Lng = b.Lng, b.Lat
		}
		if c := cmp.Compare(a.Lat, b.Lat); c != 0 {
			return c < 0
		}
		if c := cmp.Compare(a.Lng, b.Lng); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}

func (x *Index) childSummary(c child) Summary {
	switch c.kind {
	case childLeaf:
		return summaryOf(x.points[c.idx])
	case childNode:
		return x.nodeSummary(c.idx)
	}
	return Summary{}
}

// nodeSummary returns the precomputed statistics of a node.
func (x *Index) nodeSummary(id int) Summary {
	nd := &x.nodes[id]
	s := Summary{Count: nd.count, Centroid: nd.centroid, Bounds: nd.bounds}
	if nd.count == 1 {
		p := x.points[nd.start]
		s.Singleton = &p
	}
	return s
}

// Len returns the number of indexed points.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.points)
}

// Bounds returns the bounding box of every indexed point.
func (x *Index) Bounds() Bounds {
	if x == nil {
		return Bounds{}
	}
	return x.nodes[0].bounds
}

// All returns a copy of every indexed point in tree order.
func (x *Index) All() []Point {
	if x == nil {
		return nil
	}
	return slices.Clone(x.points)
}

// RangeLeaves returns every indexed point that lies inside q, edges
// included. Each point is reported at most once.
func (x *Index) RangeLeaves(q Bounds) []Point {
	if x == nil {
		return nil
	}
	return x.leavesInRange(0, q, nil)
}

func (x *Index) leavesInRange(id int, q Bounds, out []Point) []Point {
	nd := &x.nodes[id]
	switch {
	case q.Contains(nd.bounds):
		return append(out, x.points[nd.start:nd.end]...)
	case !q.Intersects(nd.bounds):
		return out
	}
	for _, c := range [2]child{nd.left, nd.right} {
		switch c.kind {
		case childLeaf:
			if p := x.points[c.idx]; q.ContainsPoint(p.LatLng()) {
				out = append(out, p)
			}
		case childNode:
			out = x.leavesInRange(c.idx, q, out)
		}
	}
	return out
}

// RangeStats returns the summary of the points inside q. The boolean is
// false when q neither contains nor intersects the index bounds; a true
// result may still have a zero count if q only overlaps empty space.
//
// RangeStats agrees with RangeLeaves: the count equals the number of points
// RangeLeaves reports, and a count of one carries that point as Singleton.
func (x *Index) RangeStats(q Bounds) (Summary, bool) {
	if x == nil {
		return Summary{}, false
	}
	return x.statsInRange(0, q)
}

func (x *Index) statsInRange(id int, q Bounds) (Summary, bool) {
	nd := &x.nodes[id]
	switch {
	case q.Contains(nd.bounds):
		return x.nodeSummary(id), true
	case !q.Intersects(nd.bounds):
		return Summary{}, false
	}
	var s Summary
	for _, c := range [2]child{nd.left, nd.right} {
		switch c.kind {
		case childLeaf:
			if p := x.points[c.idx]; q.ContainsPoint(p.LatLng()) {
				s = s.Merge(summaryOf(p))
			}
		case childNode:
			if cs, ok := x.statsInRange(c.idx, q); ok {
				s = s.Merge(cs)
			}
		}
	}
	return s, true
}

// Members returns the points covered by a cluster's bounding box. Clusters
// whose boxes overlap share the points in the overlap.
func (x *Index) Members(c Cluster) []Point {
	return x.RangeLeaves(c.Bounds)
}

// Parent returns the arena index of a node's parent, or -1 for the root and
// for nodes that do not exist.
func (x *Index) Parent(node int) int {
	if !x.hasNode(node) {
		return -1
	}
	return x.nodes[node].parent
}

// NodeSummary returns the precomputed statistics of an arena node, or the
// empty summary for nodes that do not exist.
func (x *Index) NodeSummary(node int) Summary {
	if !x.hasNode(node) {
		return Summary{}
	}
	return x.nodeSummary(node)
}

func (x *Index) hasNode(node int) bool {
	return x != nil && node >= 0 && node < len(x.nodes)
}

// Enclosing returns the arena indices of the nodes containing the point with
// the given ID, innermost first and ending at the root. The boolean is false
// if no point has that ID.
func (x *Index) Enclosing(id string) ([]int, bool) {
	if x == nil {
		return nil, false
	}
	i, ok := x.byID[id]
	if !ok {
		return nil, false
	}
	var chain []int
	for n := x.leafParent[i]; n >= 0; n = x.nodes[n].parent {
		chain = append(chain, n)
	}
	return chain, true
}

// Walk yields a pre-order visit record for every node and leaf of the tree,
// left subtree before right.
func (x *Index) Walk() iter.Seq[Visit] {
	return func(yield func(Visit) bool) {
		if x == nil {
			return
		}
		type frame struct {
			c      child
			parent int
			depth  int
		}
		stack := []frame{{c: child{kind: childNode, idx: 0}, parent: -1}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.c.kind == childLeaf {
				p := x.points[f.c.idx]
				if !yield(Visit{Depth: f.depth, Node: -1, Parent: f.parent, Leaf: &p, Summary: summaryOf(p)}) {
					return
				}
				continue
			}

			nd := &x.nodes[f.c.idx]
			if !yield(Visit{Depth: f.depth, Node: f.c.idx, Parent: f.parent, Summary: x.nodeSummary(f.c.idx)}) {
				return
			}
			for _, c := range [2]child{nd.right, nd.left} {
				if c.kind != childNone {
					stack = append(stack, frame{c: c, parent: f.c.idx, depth: f.depth + 1})
				}
			}
		}
	}
}
