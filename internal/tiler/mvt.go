// Package tiler encodes location points as Mapbox vector tiles.
package tiler

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-iftar/internal/service"
)

// LayerName is the single layer in every tile.
const LayerName = "locations"

// MaxZoom is the deepest tile served.
const MaxZoom = 22

// ContentType of an encoded tile.
const ContentType = "application/vnd.mapbox-vector-tile"

// ParseTile validates z/x/y tile coordinates.
func ParseTile(z, x, y int) (maptile.Tile, error) {
	if z < 0 || z > MaxZoom {
		return maptile.Tile{}, fmt.Errorf("zoom %d out of range 0-%d", z, MaxZoom)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return maptile.Tile{}, fmt.Errorf("tile %d/%d/%d does not exist", z, x, y)
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

// Encode renders the locations inside tile into one MVT layer. A tile with
// no locations encodes to an empty body.
func Encode(tile maptile.Tile, locs []service.Location, catalog *service.Catalog) ([]byte, error) {
	bound := tile.Bound()

	// fresh features each call: ProjectToTile rewrites geometry in place
	fc := geojson.NewFeatureCollection()
	for _, l := range locs {
		p := orb.Point{l.Lng, l.Lat}
		if !bound.Contains(p) {
			continue
		}
		f := geojson.NewFeature(p)
		f.Properties["id"] = l.ID
		f.Properties["name"] = l.Name
		if l.Area != "" {
			f.Properties["area"] = l.Area
		}
		f.Properties["iftarType"] = l.IftarType
		f.Properties["audience"] = l.Audience
		f.Properties["date"] = l.Date
		if catalog != nil {
			f.Properties["color"] = catalog.Color(l.IftarType)
			f.Properties["emoji"] = catalog.Emoji(l.IftarType)
		}
		fc.Append(f)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(LayerName, fc)
	layer.ProjectToTile(tile)
	data, err := mvt.Marshal(mvt.Layers{layer})
	if err != nil {
		return nil, fmt.Errorf("encoding tile %d/%d/%d: %w", tile.Z, tile.X, tile.Y, err)
	}
	return data, nil
}
