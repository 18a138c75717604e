package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-iftar/internal/service"
	"github.com/joeblew999/plat-iftar/internal/tiler"
)

type TileInput struct {
	Z    int    `path:"z" minimum:"0" maximum:"22" doc:"Zoom level"`
	X    int    `path:"x" minimum:"0" doc:"Tile column"`
	Y    int    `path:"y" minimum:"0" doc:"Tile row"`
	Date string `query:"date" format:"date" doc:"Distribution date; defaults to the current iftar date"`
}

// RegisterTiles registers the vector tile route.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("locations"), operationID("get-tile"), func(op *huma.Operation) {
		op.Summary = "Location vector tile"
		op.Description = "Mapbox vector tile with one point layer named " + tiler.LayerName + ". Empty tiles have an empty body."
	})
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*RawOutput, error) {
	tile, err := tiler.ParseTile(input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	date := input.Date
	if date == "" {
		date = h.svc.DayBoundary.Date(h.svc.Now())
	}
	locs, err := h.svc.Locations.List(ctx, service.ForDate(date))
	if err != nil {
		return nil, h.httpError(err)
	}
	data, err := tiler.Encode(tile, locs, h.svc.Locations.Catalog())
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding tile failed", err)
	}
	return &RawOutput{ContentType: tiler.ContentType, CacheControl: "no-cache", Body: data}, nil
}
