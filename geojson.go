package markercluster

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders clusters as GeoJSON, in Sorted order. Each
// cluster becomes a Point feature at its centroid with the properties
// "cluster" (false for entries shown as a plain marker), "point_count",
// "size" and, for singletons, "id".
//
// If withHulls is set and idx is not nil, every cluster of three or more
// points is followed by a Polygon feature outlining the convex hull of its
// members, with "coverage" set to true.
func FeatureCollection(clusters map[GridKey]Cluster, idx *Index, withHulls bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range Sorted(clusters) {
		f := geojson.NewFeature(c.Centroid.Orb())
		f.Properties["cluster"] = !c.DisplayAsSingleton
		f.Properties["point_count"] = c.Count
		f.Properties["size"] = string(c.Size())
		if c.Singleton != nil {
			f.Properties["id"] = c.Singleton.ID
		}
		fc.Append(f)

		if !withHulls || idx == nil || c.Count < 3 {
			continue
		}
		ring := HullRing(Positions(idx.Members(c)))
		if len(ring) < 4 {
			continue
		}
		hf := geojson.NewFeature(orb.Polygon{ring})
		hf.Properties["coverage"] = true
		hf.Properties["point_count"] = c.Count
		fc.Append(hf)
	}
	return fc
}
