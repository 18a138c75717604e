package service

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders locations as GeoJSON points, carrying the
// catalog-resolved presentation with each feature.
func FeatureCollection(locs []Location, catalog *Catalog) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range locs {
		f := geojson.NewFeature(l.Coordinate().Point())
		f.ID = l.ID
		f.Properties["name"] = l.Name
		if l.Area != "" {
			f.Properties["area"] = l.Area
		}
		f.Properties["iftarType"] = l.IftarType
		f.Properties["audience"] = l.Audience
		f.Properties["date"] = l.Date
		f.Properties["createdAt"] = l.CreatedAt
		if catalog != nil {
			f.Properties["color"] = catalog.Color(l.IftarType)
			f.Properties["emoji"] = catalog.Emoji(l.IftarType)
			f.Properties["badge"] = catalog.Badge(l.Audience)
		}
		fc.Append(f)
	}
	return fc
}
