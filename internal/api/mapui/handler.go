// Package mapui serves the public map over Datastar SSE. Each visitor
// session streams its controller state; the map glue script and Datastar
// actions post user input back.
package mapui

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/goccy/go-json"

	"github.com/joeblew999/plat-iftar/internal/humastar"
	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/mapctl"
	"github.com/joeblew999/plat-iftar/internal/service"
	"github.com/joeblew999/plat-iftar/internal/session"
)

// Browser event names dispatched on the document.
const (
	EventMarkers = "iftar:markers"
	eventPrefix  = "iftar:"
)

// Handler serves the map SSE routes.
type Handler struct {
	humastar.Handler
	locations *service.LocationService
	msgs      service.Messages
	lang      string
	tz        *time.Location
}

// NewHandler creates the map handler. tz is the zone used for display dates.
func NewHandler(locations *service.LocationService, renderer *humastar.Renderer, msgs service.Messages, lang string, tz *time.Location) *Handler {
	if tz == nil {
		tz = time.UTC
	}
	return &Handler{
		Handler:   humastar.Handler{Renderer: renderer},
		locations: locations,
		msgs:      msgs,
		lang:      lang,
		tz:        tz,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags(humastar.UITag)

	huma.Get(api, "/api/v1/map/stream", h.Events, tags)

	huma.Post(api, "/api/v1/map/menu", h.ToggleMenu, tags)
	huma.Post(api, "/api/v1/map/cancel", h.Cancel, tags)
	huma.Post(api, "/api/v1/map/click-mode", h.ClickMode, tags)
	huma.Post(api, "/api/v1/map/tap", h.Tap, tags)
	huma.Post(api, "/api/v1/map/gps", h.RequestGPS, tags)
	huma.Post(api, "/api/v1/map/gps/result", h.GPSResult, tags)
	huma.Post(api, "/api/v1/map/camera/done", h.CameraDone, tags)
	huma.Post(api, "/api/v1/map/focus/{id}", h.Focus, tags)
	huma.Post(api, "/api/v1/map/select/{id}", h.Select, tags)
	huma.Post(api, "/api/v1/map/popup/close", h.ClosePopup, tags)
	huma.Post(api, "/api/v1/map/form/close", h.CloseForm, tags)
	huma.Post(api, "/api/v1/map/form/submit", h.SubmitForm, tags)
	huma.Post(api, "/api/v1/map/date", h.SetDate, tags)
}

// Inputs

type IDInput struct {
	ID string `path:"id" doc:"Location ID"`
}

type TapInput struct {
	Body struct {
		Lat float64 `json:"lat" doc:"Tapped latitude"`
		Lng float64 `json:"lng" doc:"Tapped longitude"`
	}
}

type GPSResultInput struct {
	Body struct {
		RequestID string  `json:"requestId" doc:"ID from the geolocate command"`
		Lat       float64 `json:"lat,omitempty"`
		Lng       float64 `json:"lng,omitempty"`
		Code      int     `json:"code,omitempty" doc:"PositionError code, 0 on success"`
		Message   string  `json:"message,omitempty"`
	}
}

type CameraDoneInput struct {
	Body struct {
		Seq uint64 `json:"seq" doc:"Focus request sequence"`
	}
}

func sessionFrom(ctx context.Context) (*session.Session, error) {
	s, ok := session.FromContext(ctx)
	if !ok {
		return nil, huma.Error400BadRequest("no map session")
	}
	return s, nil
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, mapctl.ErrInvalidTransition):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, mapctl.ErrInvalidCoordinate):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error500InternalServerError("map action failed", err)
	}
}

// Stream

// streamState is what one live stream last sent, so renders only send
// what changed.
type streamState struct {
	date      string
	locs      []service.Location
	formSeq   uint64
	selection string
	markers   string
}

// Events is the long-lived per-visitor stream.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		detach := sess.Attach()
		defer detach()

		bus := h.locations.Bus()
		events := bus.Subscribe()
		defer bus.Unsubscribe(events)

		log := logging.With("mapui").With().Str("session", sess.ID).Logger()
		log.Debug().Msg("map stream attached")
		defer log.Debug().Msg("map stream detached")

		st := &streamState{}
		sess.TakeRefresh()
		h.load(ctx, sse, sess, st)
		h.render(sse, sess, st)

		for {
			select {
			case <-ctx.Done():
				return
			case <-sess.Changed():
				if sess.TakeRefresh() || sess.Date() != st.date {
					h.load(ctx, sse, sess, st)
				}
				h.render(sse, sess, st)
			case cmd := <-sess.Commands():
				sse.Event(eventPrefix+cmd.Kind, cmd)
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Date != "" && ev.Date != st.date && ev.Action == service.ActionCreated {
					continue
				}
				h.load(ctx, sse, sess, st)
				h.render(sse, sess, st)
			}
		}
	}), nil
}

// load fetches the session date's locations and patches the list.
func (h *Handler) load(ctx context.Context, sse humastar.SSE, sess *session.Session, st *streamState) {
	st.date = sess.Date()
	locs, err := h.locations.List(ctx, service.ForDate(st.date))
	if err != nil {
		sse.Signals(map[string]any{"ready": true, "loadError": h.msgs.LoadFailed, "date": st.date})
		return
	}
	st.locs = locs

	items := make([]any, len(locs))
	for i, l := range locs {
		items[i] = h.spot(l)
	}
	sse.Signals(map[string]any{"ready": true, "loadError": "", "date": st.date, "count": len(locs)})
	sse.Patch(h.RenderList("spot-item", items, h.msgs.Empty, h.msgs.EmptyHint), "#spot-list")
}

// FormView is the data for the map-form fragment.
type FormView struct {
	*mapctl.Form
	TypeOptions     string
	AudienceOptions string
}

func (h *Handler) render(sse humastar.SSE, sess *session.Session, st *streamState) {
	ctl := sess.Controller()
	v := ctl.Snapshot()

	signals := map[string]any{
		"mode":      v.Mode.String(),
		"loading":   v.Loading,
		"menuOpen":  v.Mode == mapctl.MenuOpen,
		"clickMode": v.Mode == mapctl.ClickToPlace,
		"gpsError":  h.msgs.For(v.GPSErr),
		"formOpen":  v.FormOpen,
		"formError": "",
		"popupOpen": v.Selection != nil,
	}
	if v.Form != nil {
		signals["formError"] = v.Form.Error
	}

	var formSeq uint64
	if v.Form != nil {
		formSeq = v.Form.Seq
	}
	// closed panels are hidden by their signal, so only opening patches
	if formSeq != st.formSeq {
		st.formSeq = formSeq
		if v.Form != nil {
			signals["form"] = map[string]any{
				"name":      v.Form.Name,
				"area":      v.Form.Area,
				"iftarType": v.Form.IftarType,
				"audience":  v.Form.Audience,
				"date":      v.Form.Date,
			}
			sse.Patch(h.Render("map-form", h.formView(v.Form)), "#form-panel")
		}
	}
	sse.Signals(signals)

	var selection string
	if v.Selection != nil {
		selection = v.Selection.ID
	}
	if selection != st.selection {
		st.selection = selection
		if v.Selection != nil {
			sse.Patch(h.Render("map-popup", h.spot(*v.Selection)), "#popup")
		}
	}

	markers := ctl.Markers(st.locs)
	b, err := json.Marshal(markers)
	if err != nil {
		logging.Warn().Err(err).Msg("encoding markers failed")
		return
	}
	if string(b) != st.markers {
		st.markers = string(b)
		sse.Event(EventMarkers, markers)
	}
}

func (h *Handler) formView(f *mapctl.Form) FormView {
	c := h.locations.Catalog()
	types := make([]humastar.SelectOptionData, len(c.IftarTypes))
	for i, o := range c.IftarTypes {
		types[i] = humastar.SelectOptionData{Value: o.Key, Label: optionLabel(o)}
	}
	audiences := make([]humastar.SelectOptionData, len(c.Audiences))
	for i, o := range c.Audiences {
		audiences[i] = humastar.SelectOptionData{Value: o.Key, Label: optionLabel(o)}
	}
	return FormView{
		Form:            f,
		TypeOptions:     h.RenderSelect(f.IftarType, types),
		AudienceOptions: h.RenderSelect(f.Audience, audiences),
	}
}

func optionLabel(o service.Option) string {
	label := o.Label
	if label == "" {
		label = o.Key
	}
	if o.Emoji != "" {
		return o.Emoji + " " + label
	}
	return label
}

// Mode actions

func (h *Handler) ToggleMenu(ctx context.Context, input *humastar.EmptyInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	sess.Controller().ToggleMenu()
	return nil, nil
}

func (h *Handler) Cancel(ctx context.Context, input *humastar.EmptyInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	sess.Controller().Cancel()
	return nil, nil
}

func (h *Handler) ClickMode(ctx context.Context, input *humastar.EmptyInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Controller().StartClickMode(); err != nil {
		return nil, transitionError(err)
	}
	return nil, nil
}

func (h *Handler) Tap(ctx context.Context, input *TapInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Controller().Tap(service.Coordinate{Lat: input.Body.Lat, Lng: input.Body.Lng}); err != nil {
		return nil, transitionError(err)
	}
	return nil, nil
}

func (h *Handler) RequestGPS(ctx context.Context, input *humastar.EmptyInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Controller().RequestGPS(); err != nil {
		return nil, transitionError(err)
	}
	return nil, nil
}

func (h *Handler) GPSResult(ctx context.Context, input *GPSResultInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	b := input.Body
	res := session.GeoResult{RequestID: b.RequestID, Lat: b.Lat, Lng: b.Lng, Code: b.Code, Message: b.Message}
	if !sess.Geolocator().Resolve(res) {
		logging.Ctx(ctx).Debug().Str("request", b.RequestID).Msg("late geolocation result dropped")
	}
	return nil, nil
}

func (h *Handler) CameraDone(ctx context.Context, input *CameraDoneInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	sess.Controller().CameraDone(input.Body.Seq)
	return nil, nil
}

// Selection actions

func (h *Handler) lookup(ctx context.Context, id string) (service.Location, error) {
	loc, err := h.locations.Get(ctx, id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return loc, huma.Error404NotFound(h.msgs.NotFound)
	case err != nil:
		return loc, huma.Error503ServiceUnavailable(h.msgs.For(err))
	}
	return loc, nil
}

func (h *Handler) Focus(ctx context.Context, input *IDInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := h.lookup(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Controller().FocusLocation(loc); err != nil {
		return nil, transitionError(err)
	}
	return nil, nil
}

func (h *Handler) Select(ctx context.Context, input *IDInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := h.lookup(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	sess.Controller().SelectMarker(loc)
	return nil, nil
}

func (h *Handler) ClosePopup(ctx context.Context, input *humastar.EmptyInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	sess.Controller().ClosePopup()
	return nil, nil
}

// Form actions

func (h *Handler) CloseForm(ctx context.Context, input *humastar.EmptyInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	sess.Controller().CloseForm()
	return nil, nil
}

// SubmitForm creates the location described by the form signals.
func (h *Handler) SubmitForm(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	f := signals.Object("form")
	in := mapctl.FormInput{
		Name:      f.String("name"),
		Area:      f.String("area"),
		IftarType: f.String("iftarType"),
		Audience:  f.String("audience"),
		Date:      f.String("date"),
	}

	return h.Stream(func(sse humastar.SSE) {
		ctl := sess.Controller()
		_, err := ctl.SubmitForm(ctx, in, h.locations, h.msgs)
		switch {
		case errors.Is(err, mapctl.ErrInvalidTransition):
			sse.Signals(map[string]any{"formOpen": false, "formError": ""})
		case err != nil:
			msg := h.msgs.SaveFailed
			if v := ctl.Snapshot(); v.Form != nil && v.Form.Error != "" {
				msg = v.Form.Error
			}
			sse.Signals(map[string]any{"formError": msg})
		default:
			sse.Signals(map[string]any{"formOpen": false, "formError": ""})
		}
	}), nil
}

// SetDate switches the session to another distribution date and reloads.
// Posting the current date again retries a failed load.
func (h *Handler) SetDate(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	date := signals.String("date")
	if date == "" {
		date = sess.Date()
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid date", &huma.ErrorDetail{Location: "body.date", Message: "expected YYYY-MM-DD", Value: date})
	}
	sess.SetDate(date)
	sess.Refresh()
	return nil, nil
}
