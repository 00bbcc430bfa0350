// Package citymap defines the serialization format for generated cities.
//
// The core packages (roadgraph, blocks, lots) hold their results in
// in-memory types with unexported state. This package sits at the
// serialization boundary and converts those results into a [Document]
// that is written to JSON files, returned by the HTTP API, stored in the
// result cache and read back by the renderers.
//
// # Document Format
//
// A document carries the road graph as node and edge lists, the block and
// lot polygons, the traced streamlines and the run diagnostics:
//
//	{
//	  "version": 1,
//	  "bounds": {"min": [0, 0], "max": [1000, 1000]},
//	  "nodes": [{"id": 0, "pos": [0, 0], "role": "through"}],
//	  "edges": [{"id": 0, "from": 0, "to": 1, "class": "major", "length": 50}],
//	  "blocks": [{"id": 0, "nodes": [0, 1, 5, 4], "polygon": [[0, 0], ...], "area": 2500}],
//	  "lots": [{"id": 0, "block_id": 0, "polygon": [...], "area": 625, "zone": "unassigned"}]
//	}
//
// Points are [x, y] arrays. Node and edge ids are contiguous from zero, so
// [Document.Graph] rebuilds a graph with the same ids.
//
// # GeoJSON
//
// [GeoJSON] converts a document into a FeatureCollection with roads as
// LineStrings and blocks and lots as Polygons, for use in GIS tools.
// Coordinates are the generator's planar units, not longitude/latitude.
package citymap
