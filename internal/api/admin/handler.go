// Package admin serves the moderation table over Datastar SSE: list,
// inline edit and confirmed delete. Routes sit behind the auth guard.
package admin

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-iftar/internal/humastar"
	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/service"
)

// Handler serves the admin SSE routes.
type Handler struct {
	humastar.Handler
	locations *service.LocationService
	msgs      service.Messages
	boundary  service.DayBoundary
	now       func() time.Time
}

// NewHandler creates the admin handler. boundary supplies the zone for
// "today"; now may be nil.
func NewHandler(locations *service.LocationService, renderer *humastar.Renderer, msgs service.Messages, boundary service.DayBoundary, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		Handler:   humastar.Handler{Renderer: renderer},
		locations: locations,
		msgs:      msgs,
		boundary:  boundary,
		now:       now,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags(humastar.UITag, "admin")

	huma.Get(api, "/api/v1/admin/locations", h.List, tags)
	huma.Post(api, "/api/v1/admin/locations/{id}/edit", h.Edit, tags)
	huma.Post(api, "/api/v1/admin/locations/cancel", h.Cancel, tags)
	huma.Put(api, "/api/v1/admin/locations/{id}", h.Update, tags)
	huma.Delete(api, "/api/v1/admin/locations/{id}", h.Delete, tags)
}

type ListInput struct {
	Since string `query:"since" enum:"today,all" default:"today" doc:"Creation window"`
}

type IDInput struct {
	ID string `path:"id" doc:"Location ID"`
}

type UpdateInput struct {
	ID      string `path:"id" doc:"Location ID"`
	RawBody []byte
}

type DeleteInput struct {
	ID        string `path:"id" doc:"Location ID"`
	Confirmed bool   `query:"confirmed" doc:"Set after the user confirmed the delete"`
}

// RowView is one table row.
type RowView struct {
	service.Location
	TypeLabel     string
	AudienceLabel string
	Badge         string
}

// EditView is the inline edit row.
type EditView struct {
	service.Location
	TypeOptions     string
	AudienceOptions string
}

func (h *Handler) row(l service.Location) RowView {
	c := h.locations.Catalog()
	return RowView{
		Location:      l,
		TypeLabel:     c.TypeLabel(l.IftarType),
		AudienceLabel: c.AudienceLabel(l.Audience),
		Badge:         c.Badge(l.Audience),
	}
}

func (h *Handler) filter(since string) service.ListFilter {
	if since == "all" {
		return service.ListFilter{}
	}
	return service.CreatedSince(h.boundary.Midnight(h.now()))
}

func (h *Handler) renderRows(locs []service.Location) string {
	if len(locs) == 0 {
		return h.Render("admin-empty", h.msgs.NotFound)
	}
	var buf bytes.Buffer
	for _, l := range locs {
		if err := h.Renderer.RenderToBuffer(&buf, "admin-row", h.row(l)); err != nil {
			logging.Error().Err(err).Msg("render admin row failed")
		}
	}
	return buf.String()
}

func (h *Handler) patchList(ctx context.Context, sse humastar.SSE, since string) {
	locs, err := h.locations.List(ctx, h.filter(since))
	if err != nil {
		sse.Error(h.msgs.For(err))
		return
	}
	sse.Signals(map[string]any{"count": len(locs), "since": since})
	sse.Patch(h.renderRows(locs), "#admin-rows")
}

// List renders the table body.
func (h *Handler) List(ctx context.Context, input *ListInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchList(ctx, sse, input.Since)
	}), nil
}

// Edit swaps a row for its edit form.
func (h *Handler) Edit(ctx context.Context, input *IDInput) (*huma.StreamResponse, error) {
	loc, err := h.locations.Get(ctx, input.ID)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return nil, huma.Error503ServiceUnavailable(h.msgs.For(err))
	}
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			sse.Error(h.msgs.NotFound)
			return
		}
		c := h.locations.Catalog()
		sse.Signals(map[string]any{
			"editing": loc.ID,
			"edit": map[string]any{
				"name":      loc.Name,
				"area":      loc.Area,
				"iftarType": loc.IftarType,
				"audience":  loc.Audience,
				"lat":       loc.Lat,
				"lng":       loc.Lng,
				"date":      loc.Date,
			},
			"error":   "",
			"success": "",
		})
		sse.Replace(h.Render("admin-edit-row", EditView{
			Location:        loc,
			TypeOptions:     h.RenderSelect(loc.IftarType, options(c.IftarTypes)),
			AudienceOptions: h.RenderSelect(loc.Audience, options(c.Audiences)),
		}), "#row-"+loc.ID)
	}), nil
}

// Cancel abandons the edit and re-renders the table.
func (h *Handler) Cancel(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	since := signals.String("since")
	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"editing": ""})
		h.patchList(ctx, sse, since)
	}), nil
}

// Update overwrites the record with the edit signals. Zero affected rows
// is reported and the edit row stays put.
func (h *Handler) Update(ctx context.Context, input *UpdateInput) (*huma.StreamResponse, error) {
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	e := signals.Object("edit")
	fields := service.LocationFields{
		Name:      e.String("name"),
		Area:      e.String("area"),
		IftarType: e.String("iftarType"),
		Audience:  e.String("audience"),
		Lat:       e.Float("lat"),
		Lng:       e.Float("lng"),
		Date:      e.String("date"),
	}

	return h.Stream(func(sse humastar.SSE) {
		if err := h.locations.Update(ctx, input.ID, fields); err != nil {
			logging.Ctx(ctx).Info().Err(err).Str("id", input.ID).Msg("admin update rejected")
			sse.Error(h.msgs.For(err))
			return
		}
		loc, err := h.locations.Get(ctx, input.ID)
		if err != nil {
			sse.Error(h.msgs.For(err))
			return
		}
		sse.Signals(map[string]any{"editing": ""})
		sse.Success(h.msgs.Updated)
		sse.Replace(h.Render("admin-row", h.row(loc)), "#row-"+loc.ID)
	}), nil
}

// Delete asks for confirmation first; with confirmed=true it deletes.
// Zero affected rows is reported and the row stays.
func (h *Handler) Delete(ctx context.Context, input *DeleteInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if !input.Confirmed {
			sse.Signals(map[string]any{
				"confirmDelete":  input.ID,
				"confirmMessage": h.msgs.ConfirmDelete,
			})
			return
		}
		sse.Signals(map[string]any{"confirmDelete": ""})
		if err := h.locations.Delete(ctx, input.ID); err != nil {
			logging.Ctx(ctx).Info().Err(err).Str("id", input.ID).Msg("admin delete rejected")
			sse.Error(h.msgs.For(err))
			return
		}
		sse.RemoveElementByID("row-" + input.ID)
		sse.Success(h.msgs.Deleted)
	}), nil
}

func options(opts []service.Option) []humastar.SelectOptionData {
	out := make([]humastar.SelectOptionData, len(opts))
	for i, o := range opts {
		label := o.Label
		if label == "" {
			label = o.Key
		}
		out[i] = humastar.SelectOptionData{Value: o.Key, Label: label}
	}
	return out
}
