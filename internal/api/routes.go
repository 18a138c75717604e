// Package api defines the Huma REST routes and handlers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/goccy/go-json"
	"github.com/skip2/go-qrcode"

	"github.com/joeblew999/plat-iftar/internal/humastar"
	"github.com/joeblew999/plat-iftar/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// Services holds the dependencies of the API handlers.
type Services struct {
	Locations   *service.LocationService
	DayBoundary service.DayBoundary
	Messages    service.Messages
	BaseURL     string
	Now         func() time.Time
}

// RegisterRoutes registers every REST handler on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Location ID" example:"7f1c2d7e-1a52-4a69-9a0e-4c1d2b7d9f10"`
}

type ListInput struct {
	Date          string `query:"date" format:"date" doc:"Distribution date (YYYY-MM-DD)" example:"2026-03-01"`
	CreatedAfter  string `query:"createdAfter" format:"date-time" doc:"Only records created at or after this instant (RFC 3339)"`
	CreatedBefore string `query:"createdBefore" format:"date-time" doc:"Only records created at or before this instant (RFC 3339)"`
	Offset        int    `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit         int    `query:"limit" minimum:"1" maximum:"500" default:"100" doc:"Page size"`
}

// Filter converts the query into a store filter.
func (in *ListInput) Filter() (service.ListFilter, error) {
	var f service.ListFilter
	if in.Date != "" {
		d := in.Date
		f.Date = &d
	}
	for _, p := range []struct {
		raw string
		dst **time.Time
	}{{in.CreatedAfter, &f.CreatedAfter}, {in.CreatedBefore, &f.CreatedBefore}} {
		if p.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, p.raw)
		if err != nil {
			return f, fmt.Errorf("invalid timestamp %q", p.raw)
		}
		*p.dst = &t
	}
	return f, nil
}

// LocationBody is a location plus its hypermedia actions.
type LocationBody struct {
	service.Location
}

var locationActions = []humastar.ActionDef{
	{Rel: "edit", Pattern: "/api/v1/locations/%s", Method: "PUT", Title: "Update location"},
	{Rel: "delete", Pattern: "/api/v1/locations/%s", Method: "DELETE", Title: "Delete location"},
}

// Actions implements humastar.Actor.
func (b LocationBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, locationActions)
}

type LocationOutput struct {
	Body LocationBody
}

type CreatedOutput struct {
	Location string `header:"Location" doc:"URL of the created location"`
	Body     LocationBody
}

type LocationsOutput struct {
	Body humastar.PageBody[service.Location]
}

type FieldsInput struct {
	Body service.LocationFields
}

type UpdateInput struct {
	IDInput
	Body service.LocationFields
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type RawOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type ShareInput struct {
	Date string `query:"date" format:"date" doc:"Date to share; defaults to the current iftar date"`
	Size int    `query:"size" minimum:"128" maximum:"1024" default:"256" doc:"Image size in pixels"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc.Now == nil {
		svc.Now = time.Now
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"), operationID("health"))
}

// RegisterCatalog registers the option catalog route.
func (h *APIHandler) RegisterCatalog(api huma.API) {
	huma.Get(api, "/api/v1/catalog", h.GetCatalog, huma.OperationTags("catalog"), operationID("get-catalog"))
}

// RegisterLocations registers location CRUD routes. Update and delete are
// gated by the admin guard middleware.
func (h *APIHandler) RegisterLocations(api huma.API) {
	tags := huma.OperationTags("locations")
	huma.Get(api, "/api/v1/locations", h.ListLocations, tags, operationID("list-locations"))
	huma.Post(api, "/api/v1/locations", h.CreateLocation, tags, operationID("create-location"), func(op *huma.Operation) {
		op.DefaultStatus = 201
	})
	huma.Get(api, "/api/v1/locations.geojson", h.GetGeoJSON, tags, operationID("get-locations-geojson"))
	huma.Get(api, "/api/v1/locations/{id}", h.GetLocation, tags, operationID("get-location"))
	huma.Put(api, "/api/v1/locations/{id}", h.PutLocation, tags, operationID("update-location"))
	huma.Delete(api, "/api/v1/locations/{id}", h.DeleteLocation, tags, operationID("delete-location"))
}

// RegisterShare registers the share QR route.
func (h *APIHandler) RegisterShare(api huma.API) {
	huma.Get(api, "/api/v1/share/qr", h.GetShareQR, huma.OperationTags("share"), operationID("get-share-qr"))
}

// operationID pins the id the generated client derives method names from.
func operationID(id string) func(*huma.Operation) {
	return func(op *huma.Operation) { op.OperationID = id }
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetCatalog(ctx context.Context, input *struct{}) (*struct{ Body *service.Catalog }, error) {
	return &struct{ Body *service.Catalog }{Body: h.svc.Locations.Catalog()}, nil
}

func (h *APIHandler) ListLocations(ctx context.Context, input *ListInput) (*LocationsOutput, error) {
	f, err := input.Filter()
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	locs, err := h.svc.Locations.List(ctx, f)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &LocationsOutput{Body: humastar.Page(locs, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetGeoJSON(ctx context.Context, input *struct {
	Date string `query:"date" format:"date" doc:"Distribution date; defaults to the current iftar date"`
}) (*RawOutput, error) {
	date := input.Date
	if date == "" {
		date = h.svc.DayBoundary.Date(h.svc.Now())
	}
	locs, err := h.svc.Locations.List(ctx, service.ForDate(date))
	if err != nil {
		return nil, h.httpError(err)
	}
	b, err := json.Marshal(service.FeatureCollection(locs, h.svc.Locations.Catalog()))
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding geojson failed", err)
	}
	return &RawOutput{ContentType: "application/geo+json", CacheControl: "no-cache", Body: b}, nil
}

func (h *APIHandler) GetLocation(ctx context.Context, input *IDInput) (*LocationOutput, error) {
	loc, err := h.svc.Locations.Get(ctx, input.ID)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &LocationOutput{Body: LocationBody{loc}}, nil
}

func (h *APIHandler) CreateLocation(ctx context.Context, input *FieldsInput) (*CreatedOutput, error) {
	loc, err := h.svc.Locations.Create(ctx, input.Body)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &CreatedOutput{Location: "/api/v1/locations/" + loc.ID, Body: LocationBody{loc}}, nil
}

func (h *APIHandler) PutLocation(ctx context.Context, input *UpdateInput) (*LocationOutput, error) {
	if err := h.svc.Locations.Update(ctx, input.ID, input.Body); err != nil {
		return nil, h.httpError(err)
	}
	loc, err := h.svc.Locations.Get(ctx, input.ID)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &LocationOutput{Body: LocationBody{loc}}, nil
}

func (h *APIHandler) DeleteLocation(ctx context.Context, input *IDInput) (*struct{}, error) {
	if err := h.svc.Locations.Delete(ctx, input.ID); err != nil {
		return nil, h.httpError(err)
	}
	return nil, nil
}

func (h *APIHandler) GetShareQR(ctx context.Context, input *ShareInput) (*RawOutput, error) {
	date := input.Date
	if date == "" {
		date = h.svc.DayBoundary.Date(h.svc.Now())
	}
	png, err := qrcode.Encode(ShareURL(h.svc.BaseURL, date), qrcode.Medium, input.Size)
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding qr code failed", err)
	}
	return &RawOutput{ContentType: "image/png", CacheControl: "public, max-age=3600", Body: png}, nil
}

// ShareURL is the public map link for date.
func ShareURL(baseURL, date string) string {
	if baseURL == "" {
		baseURL = "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// httpError maps the service error taxonomy onto Huma errors.
func (h *APIHandler) httpError(err error) error {
	msg := h.svc.Messages.For(err)
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		details := make([]error, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			details = append(details, &huma.ErrorDetail{Location: "body." + f, Message: "invalid value"})
		}
		return huma.Error422UnprocessableEntity(msg, details...)
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, service.ErrNotAffected):
		return huma.Error409Conflict(msg)
	case errors.Is(err, service.ErrUnavailable):
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
