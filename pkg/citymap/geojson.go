package citymap

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/citygen/pkg/geom"
)

// Feature layers, stored in the "layer" property.
const (
	LayerRoad  = "road"
	LayerBlock = "block"
	LayerLot   = "lot"
)

// GeoJSON converts a document into a FeatureCollection. Roads come first
// in edge order, then blocks, then lots.
func GeoJSON(d Document) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.BBox = geojson.NewBBox(d.Bounds.Bound())

	for _, e := range d.Edges {
		if e.From >= len(d.Nodes) || e.To >= len(d.Nodes) {
			continue
		}
		ls := make(orb.LineString, 0, len(e.Shape)+2)
		ls = append(ls, d.Nodes[e.From].Pos)
		ls = append(ls, e.Shape...)
		ls = append(ls, d.Nodes[e.To].Pos)

		f := geojson.NewFeature(ls)
		f.ID = e.ID
		f.Properties["layer"] = LayerRoad
		f.Properties["class"] = e.Class.String()
		f.Properties["length"] = e.Length
		f.Properties["from"] = e.From
		f.Properties["to"] = e.To
		fc.Append(f)
	}

	for _, b := range d.Blocks {
		f := geojson.NewFeature(polygon(b.Polygon))
		f.ID = b.ID
		f.Properties["layer"] = LayerBlock
		f.Properties["area"] = b.Area
		fc.Append(f)
	}

	for _, l := range d.Lots {
		f := geojson.NewFeature(polygon(l.Polygon))
		f.ID = l.ID
		f.Properties["layer"] = LayerLot
		f.Properties["block_id"] = l.BlockID
		f.Properties["area"] = l.Area
		f.Properties["undersized"] = l.Undersized
		f.Properties["zone"] = l.Zone
		fc.Append(f)
	}
	return fc
}

// MarshalGeoJSON returns the GeoJSON encoding of a document.
func MarshalGeoJSON(d Document) ([]byte, error) {
	data, err := GeoJSON(d).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return data, nil
}

// polygon closes an open vertex list into a single-ring orb.Polygon.
func polygon(pts orb.LineString) orb.Polygon {
	return orb.Polygon{geom.Polygon(pts).Ring()}
}
