package mapctl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeblew999/plat-iftar/internal/service"
)

var t0 = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

type fakeGeo struct {
	mu      sync.Mutex
	opts    PositionOptions
	calls   int
	success func(service.Coordinate)
	fail    func(error)

	// immediate results are delivered synchronously from CurrentPosition
	immediate    *service.Coordinate
	immediateErr error
	panicWith    any
}

func (g *fakeGeo) CurrentPosition(opts PositionOptions, onSuccess func(service.Coordinate), onError func(error)) {
	g.mu.Lock()
	g.opts = opts
	g.calls++
	g.success = onSuccess
	g.fail = onError
	immediate, immediateErr, p := g.immediate, g.immediateErr, g.panicWith
	g.mu.Unlock()

	if p != nil {
		panic(p)
	}
	if immediate != nil {
		onSuccess(*immediate)
	}
	if immediateErr != nil {
		onError(immediateErr)
	}
}

func (g *fakeGeo) succeed(c service.Coordinate) {
	g.mu.Lock()
	f := g.success
	g.mu.Unlock()
	f(c)
}

func (g *fakeGeo) failWith(err error) {
	g.mu.Lock()
	f := g.fail
	g.mu.Unlock()
	f(err)
}

type fakeCamera struct {
	mu    sync.Mutex
	reqs  []FocusRequest
	err   error
	panic bool
}

func (c *fakeCamera) FlyTo(req FocusRequest) error {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	if c.panic {
		panic("flyTo unsupported")
	}
	return c.err
}

func (c *fakeCamera) flights() []FocusRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FocusRequest(nil), c.reqs...)
}

type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) record(v View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
}

// modes returns the mode sequence with consecutive duplicates removed.
func (r *recorder) modes() []Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Mode
	for _, v := range r.views {
		if len(out) == 0 || out[len(out)-1] != v.Mode {
			out = append(out, v.Mode)
		}
	}
	return out
}

func (r *recorder) all() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

type fakeCreator struct {
	calls []service.LocationFields
	err   error
}

func (f *fakeCreator) Create(_ context.Context, fields service.LocationFields) (service.Location, error) {
	f.calls = append(f.calls, fields)
	if f.err != nil {
		return service.Location{}, f.err
	}
	return service.Location{ID: "loc-1", Name: fields.Name, Lat: fields.Lat, Lng: fields.Lng, Date: fields.Date}, nil
}

type harness struct {
	ctl    *Controller
	clock  *manualClock
	geo    *fakeGeo
	camera *fakeCamera
	rec    *recorder
}

func newHarness(t *testing.T, withGeo bool) *harness {
	t.Helper()
	h := &harness{
		clock:  newManualClock(t0),
		geo:    &fakeGeo{},
		camera: &fakeCamera{},
		rec:    &recorder{},
	}
	cfg := DefaultConfig()
	cfg.Catalog = service.NewCatalog(
		[]service.Option{{Key: "mosque", Color: "#22c55e", Emoji: "🕌"}},
		[]service.Option{{Key: "everyone", Badge: "badge-success"}},
	)
	cfg.DayBoundary = service.DayBoundary{Hour: 19, Loc: time.UTC}
	opts := []Option{WithClock(h.clock), WithCamera(h.camera), OnChange(h.rec.record)}
	if withGeo {
		opts = append(opts, WithGeolocator(h.geo))
	}
	h.ctl = New(cfg, opts...)
	return h
}

func (h *harness) mode() Mode { return h.ctl.Snapshot().Mode }

func TestToggleMenu(t *testing.T) {
	h := newHarness(t, true)

	h.ctl.ToggleMenu()
	if h.mode() != MenuOpen {
		t.Fatalf("mode = %s, want menu_open", h.mode())
	}
	h.ctl.ToggleMenu()
	if h.mode() != Idle {
		t.Fatalf("mode = %s, want idle", h.mode())
	}

	// toggling while click mode is armed cancels it
	h.ctl.ToggleMenu()
	if err := h.ctl.StartClickMode(); err != nil {
		t.Fatal(err)
	}
	h.ctl.ToggleMenu()
	if h.mode() != Idle {
		t.Fatalf("toggle in click mode: mode = %s, want idle", h.mode())
	}
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t, true)

	if err := h.ctl.StartClickMode(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartClickMode from idle: %v", err)
	}
	if err := h.ctl.RequestGPS(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("RequestGPS from idle: %v", err)
	}

	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	if err := h.ctl.StartClickMode(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartClickMode while acquiring: %v", err)
	}
	if err := h.ctl.RequestGPS(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("RequestGPS while acquiring: %v", err)
	}
	if h.geo.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", h.geo.calls)
	}
}

func TestCancelFromAnyModeYieldsIdle(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"idle", func(h *harness) {}},
		{"menu open", func(h *harness) { h.ctl.ToggleMenu() }},
		{"click to place", func(h *harness) {
			h.ctl.ToggleMenu()
			_ = h.ctl.StartClickMode()
		}},
		{"gps acquiring", func(h *harness) {
			h.ctl.ToggleMenu()
			_ = h.ctl.RequestGPS()
		}},
		{"gps flight", func(h *harness) {
			h.ctl.ToggleMenu()
			_ = h.ctl.RequestGPS()
			h.geo.succeed(service.Coordinate{Lat: 24.36, Lng: 88.62})
		}},
		{"gps error", func(h *harness) {
			h.ctl.ToggleMenu()
			_ = h.ctl.RequestGPS()
			h.geo.failWith(service.ErrGeoDenied)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			tt.setup(h)

			h.ctl.Cancel()
			v := h.ctl.Snapshot()
			if v.Mode != Idle {
				t.Fatalf("mode = %s, want idle", v.Mode)
			}
			if v.Loading {
				t.Fatal("loading indicator left on after cancel")
			}
			if v.GPSErr != nil {
				t.Fatalf("gps error left after cancel: %v", v.GPSErr)
			}

			// late provider results and timers must not resurrect a mode
			if h.geo.calls > 0 {
				h.geo.succeed(service.Coordinate{Lat: 24.1, Lng: 88.1})
				h.geo.failWith(service.ErrGeoTimeout)
			}
			h.clock.Advance(10 * time.Second)
			if got := h.mode(); got != Idle {
				t.Fatalf("after late results mode = %s, want idle", got)
			}
		})
	}
}

func TestCancelKeepsFormAndSelection(t *testing.T) {
	h := newHarness(t, true)
	loc := service.Location{ID: "a", Lat: 24.3, Lng: 88.5}
	h.ctl.SelectMarker(loc)
	h.ctl.ToggleMenu()
	_ = h.ctl.StartClickMode()
	if _, err := h.ctl.Tap(service.Coordinate{Lat: 24.37, Lng: 88.6}); err != nil {
		t.Fatal(err)
	}

	h.ctl.ToggleMenu()
	h.ctl.Cancel()

	v := h.ctl.Snapshot()
	if !v.FormOpen || v.PendingPin == nil {
		t.Fatal("cancel must not close the form")
	}
	if v.Selection == nil || v.Selection.ID != "a" {
		t.Fatal("cancel must not clear the selection")
	}
}

func TestLateGPSResultAfterCancelIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	first := h.geo.success
	h.ctl.Cancel()

	first(service.Coordinate{Lat: 24.37, Lng: 88.6})

	v := h.ctl.Snapshot()
	if v.Mode != Idle || v.Loading || v.FormOpen || v.PendingPin != nil || v.GPSPosition != nil {
		t.Fatalf("late result changed dormant state: %+v", v)
	}
	if len(h.camera.flights()) != 0 {
		t.Fatal("late result must not move the camera")
	}
}

func TestStaleFailureDoesNotAffectNewRequest(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	staleFail := h.geo.fail
	h.ctl.Cancel()

	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	staleFail(service.ErrGeoTimeout)

	if got := h.mode(); got != GPSAcquiring {
		t.Fatalf("mode = %s, want gps_acquiring", got)
	}
}

func TestTap(t *testing.T) {
	h := newHarness(t, true)

	placed, err := h.ctl.Tap(service.Coordinate{Lat: 24.37, Lng: 88.6})
	if err != nil || placed {
		t.Fatalf("tap in idle = %v, %v; want ignored", placed, err)
	}
	h.ctl.ToggleMenu()
	placed, _ = h.ctl.Tap(service.Coordinate{Lat: 24.37, Lng: 88.6})
	if placed || h.ctl.Snapshot().PendingPin != nil {
		t.Fatal("tap in menu must be ignored")
	}

	_ = h.ctl.StartClickMode()
	if _, err := h.ctl.Tap(service.Coordinate{Lat: 95, Lng: 88.6}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("want ErrInvalidCoordinate, got %v", err)
	}
	if h.mode() != ClickToPlace {
		t.Fatal("invalid tap must not leave click mode")
	}
}

func TestClickToPlaceScenario(t *testing.T) {
	h := newHarness(t, true)
	creator := &fakeCreator{}

	h.ctl.ToggleMenu()
	if err := h.ctl.StartClickMode(); err != nil {
		t.Fatal(err)
	}
	placed, err := h.ctl.Tap(service.Coordinate{Lat: 24.3700, Lng: 88.6000})
	if err != nil || !placed {
		t.Fatalf("Tap = %v, %v", placed, err)
	}

	v := h.ctl.Snapshot()
	if v.Mode != Idle {
		t.Fatalf("mode after tap = %s, want idle", v.Mode)
	}
	if !v.FormOpen || v.Form.At != (service.Coordinate{Lat: 24.3700, Lng: 88.6000}) {
		t.Fatalf("form not pre-filled: %+v", v.Form)
	}
	if v.PendingPin == nil || *v.PendingPin != v.Form.At {
		t.Fatalf("pending pin = %v", v.PendingPin)
	}

	loc, err := h.ctl.SubmitForm(context.Background(), FormInput{Name: "Test Mosque"}, creator, service.MessagesFor("bn"))
	if err != nil {
		t.Fatalf("SubmitForm: %v", err)
	}
	if len(creator.calls) != 1 {
		t.Fatalf("create calls = %d, want 1", len(creator.calls))
	}
	got := creator.calls[0]
	if got.Lat != 24.3700 || got.Lng != 88.6000 || got.Name != "Test Mosque" {
		t.Fatalf("create called with %+v", got)
	}
	if got.IftarType != "mosque" || got.Audience != "everyone" || got.Date != "2026-03-01" {
		t.Fatalf("form defaults not applied: %+v", got)
	}
	if loc.ID != "loc-1" {
		t.Fatalf("loc = %+v", loc)
	}

	v = h.ctl.Snapshot()
	if v.PendingPin != nil || v.FormOpen || v.Mode != Idle {
		t.Fatalf("after submit: pending=%v form=%v mode=%s", v.PendingPin, v.FormOpen, v.Mode)
	}
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	h := newHarness(t, true)
	creator := &fakeCreator{err: service.ErrUnavailable}
	msgs := service.MessagesFor("bn")

	h.ctl.ToggleMenu()
	_ = h.ctl.StartClickMode()
	_, _ = h.ctl.Tap(service.Coordinate{Lat: 24.37, Lng: 88.6})

	if _, err := h.ctl.SubmitForm(context.Background(), FormInput{Name: "  "}, creator, msgs); !service.IsValidation(err) {
		t.Fatalf("blank name: want validation error, got %v", err)
	}
	if len(creator.calls) != 0 {
		t.Fatal("blank name must not reach the store")
	}
	if v := h.ctl.Snapshot(); v.Form.Error != msgs.NameRequired {
		t.Fatalf("form error = %q", v.Form.Error)
	}

	if _, err := h.ctl.SubmitForm(context.Background(), FormInput{Name: "Mosque"}, creator, msgs); !errors.Is(err, service.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	v := h.ctl.Snapshot()
	if !v.FormOpen || v.PendingPin == nil {
		t.Fatal("form must stay open for retry")
	}
	if v.Form.Error != msgs.SaveFailed || v.Form.Name != "Mosque" {
		t.Fatalf("form = %+v", v.Form)
	}

	creator.err = nil
	if _, err := h.ctl.SubmitForm(context.Background(), FormInput{Name: "Mosque"}, creator, msgs); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.ctl.Snapshot().FormOpen {
		t.Fatal("form should close after successful retry")
	}
}

func TestSubmitWithoutForm(t *testing.T) {
	h := newHarness(t, true)
	_, err := h.ctl.SubmitForm(context.Background(), FormInput{Name: "x"}, &fakeCreator{}, service.MessagesFor("en"))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestReplacePinSameSpotOpensNewForm(t *testing.T) {
	h := newHarness(t, true)
	at := service.Coordinate{Lat: 24.37, Lng: 88.6}
	place := func() *Form {
		t.Helper()
		h.ctl.ToggleMenu()
		if err := h.ctl.StartClickMode(); err != nil {
			t.Fatal(err)
		}
		if placed, err := h.ctl.Tap(at); err != nil || !placed {
			t.Fatalf("tap = %v, %v", placed, err)
		}
		return h.ctl.Snapshot().Form
	}

	first := place()
	second := place()
	if first == nil || second == nil {
		t.Fatal("form not open")
	}
	if first.Seq == second.Seq {
		t.Fatalf("re-placed form reuses seq %d", first.Seq)
	}
	if second.At != first.At {
		t.Fatalf("form moved: %v vs %v", first.At, second.At)
	}
}

func TestCloseForm(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.StartClickMode()
	_, _ = h.ctl.Tap(service.Coordinate{Lat: 24.37, Lng: 88.6})

	h.ctl.CloseForm()
	v := h.ctl.Snapshot()
	if v.FormOpen || v.PendingPin != nil {
		t.Fatal("CloseForm must clear form and pending pin")
	}
}

func TestGPSFailureScenario(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	h.rec.views = nil

	if err := h.ctl.RequestGPS(); err != nil {
		t.Fatal(err)
	}
	first := h.rec.all()
	if len(first) == 0 || first[0].Mode != GPSAcquiring || !first[0].Loading {
		t.Fatalf("listener not told about acquiring/loading first: %+v", first)
	}
	if h.geo.opts != (PositionOptions{HighAccuracy: true, Timeout: 8 * time.Second}) {
		t.Fatalf("provider options = %+v", h.geo.opts)
	}

	h.geo.failWith(service.ErrGeoDenied)
	v := h.ctl.Snapshot()
	if v.Mode != GPSError || v.Loading {
		t.Fatalf("after failure: mode=%s loading=%v", v.Mode, v.Loading)
	}
	if !errors.Is(v.GPSErr, service.ErrGeoDenied) {
		t.Fatalf("GPSErr = %v", v.GPSErr)
	}

	h.clock.Advance(2999 * time.Millisecond)
	if h.mode() != GPSError {
		t.Fatalf("mode before delay = %s, want gps_error", h.mode())
	}
	h.clock.Advance(time.Millisecond)
	if h.mode() != Idle {
		t.Fatalf("mode after delay = %s, want idle", h.mode())
	}

	want := []Mode{GPSAcquiring, GPSError, Idle}
	got := h.rec.modes()
	if len(got) != len(want) {
		t.Fatalf("modes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("modes = %v, want %v", got, want)
		}
	}
	for _, v := range h.rec.all() {
		if v.Mode == GPSError && v.Loading {
			t.Fatal("loading indicator must be off throughout gps_error")
		}
	}
}

func TestGPSUnsupported(t *testing.T) {
	h := newHarness(t, false)
	h.ctl.ToggleMenu()
	if err := h.ctl.RequestGPS(); err != nil {
		t.Fatal(err)
	}
	v := h.ctl.Snapshot()
	if v.Mode != GPSError || !errors.Is(v.GPSErr, service.ErrGeoUnsupported) {
		t.Fatalf("mode=%s err=%v", v.Mode, v.GPSErr)
	}
	h.clock.Advance(3 * time.Second)
	if h.mode() != Idle {
		t.Fatalf("mode = %s, want idle", h.mode())
	}
}

func TestGPSProviderPanics(t *testing.T) {
	h := newHarness(t, true)
	h.geo.panicWith = "navigator.geolocation is undefined"
	h.ctl.ToggleMenu()
	if err := h.ctl.RequestGPS(); err != nil {
		t.Fatal(err)
	}
	if v := h.ctl.Snapshot(); v.Mode != GPSError || v.Loading {
		t.Fatalf("mode=%s loading=%v", v.Mode, v.Loading)
	}
}

func TestGPSUnknownErrorIsGeoError(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	h.geo.failWith(errors.New("position unavailable"))
	if err := h.ctl.Snapshot().GPSErr; !service.IsGeo(err) {
		t.Fatalf("GPSErr = %v, want a geolocation error", err)
	}
}

func TestGPSSuccessHoldsLoadingUntilFlightWindow(t *testing.T) {
	h := newHarness(t, true)
	pos := service.Coordinate{Lat: 24.3636, Lng: 88.6241}
	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()

	h.geo.succeed(pos)
	v := h.ctl.Snapshot()
	if !v.Loading || v.Mode != GPSAcquiring {
		t.Fatalf("loading must outlive the flight: loading=%v mode=%s", v.Loading, v.Mode)
	}
	if v.Focus == nil || v.Focus.Target != pos || v.Focus.Zoom != 17 {
		t.Fatalf("focus = %+v", v.Focus)
	}
	if !v.FormOpen || v.PendingPin == nil || *v.PendingPin != pos || v.GPSPosition == nil {
		t.Fatalf("form/pending not set: %+v", v)
	}
	flights := h.camera.flights()
	if len(flights) != 1 || flights[0].Seq != v.Focus.Seq {
		t.Fatalf("camera flights = %+v", flights)
	}

	h.clock.Advance(1199 * time.Millisecond)
	if !h.ctl.Snapshot().Loading {
		t.Fatal("loading cleared before the flight window")
	}
	h.clock.Advance(time.Millisecond)
	v = h.ctl.Snapshot()
	if v.Loading || v.Focus != nil || v.Mode != Idle {
		t.Fatalf("after window: loading=%v focus=%v mode=%s", v.Loading, v.Focus, v.Mode)
	}
	if !v.FormOpen {
		t.Fatal("form should remain open after the flight")
	}
}

func TestCameraDoneReleasesEarly(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	h.geo.succeed(service.Coordinate{Lat: 24.36, Lng: 88.62})
	seq := h.ctl.Snapshot().Focus.Seq

	if h.ctl.CameraDone(seq + 1) {
		t.Fatal("CameraDone with a foreign seq must be ignored")
	}
	if !h.ctl.CameraDone(seq) {
		t.Fatal("CameraDone should release the live focus")
	}
	v := h.ctl.Snapshot()
	if v.Loading || v.Focus != nil || v.Mode != Idle {
		t.Fatalf("after CameraDone: loading=%v focus=%v mode=%s", v.Loading, v.Focus, v.Mode)
	}
	if h.clock.pending() != 0 {
		t.Fatalf("fallback timer still armed: %d", h.clock.pending())
	}
	if h.ctl.CameraDone(seq) {
		t.Fatal("second CameraDone must be a no-op")
	}
}

func TestSynchronousProvider(t *testing.T) {
	h := newHarness(t, true)
	pos := service.Coordinate{Lat: 24.37, Lng: 88.6}
	h.geo.immediate = &pos
	h.ctl.ToggleMenu()

	done := make(chan struct{})
	go func() {
		_ = h.ctl.RequestGPS()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("synchronous provider callback deadlocked")
	}
	if v := h.ctl.Snapshot(); v.PendingPin == nil || *v.PendingPin != pos {
		t.Fatalf("pending = %v", v.PendingPin)
	}
}

func TestFocusLocation(t *testing.T) {
	h := newHarness(t, true)
	loc := service.Location{ID: "a", Name: "A", Lat: 24.37, Lng: 88.6}

	req, err := h.ctl.FocusLocation(loc)
	if err != nil {
		t.Fatal(err)
	}
	v := h.ctl.Snapshot()
	if v.Selection == nil || v.Selection.ID != "a" || v.Focus == nil || v.Focus.Location.ID != "a" {
		t.Fatalf("focus/selection = %+v / %+v", v.Focus, v.Selection)
	}
	if v.Mode != Idle {
		t.Fatal("focus must not change the mode")
	}

	h.clock.Advance(1500 * time.Millisecond)
	if h.ctl.Snapshot().Focus != nil {
		t.Fatal("focus should expire after 1.5s")
	}

	again, _ := h.ctl.FocusLocation(loc)
	if again.Seq == req.Seq {
		t.Fatal("re-focusing the same record must issue a new request")
	}
	if n := len(h.camera.flights()); n != 2 {
		t.Fatalf("camera flights = %d, want 2", n)
	}
	if _, err := h.ctl.FocusLocation(service.Location{Lat: -91}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("want ErrInvalidCoordinate, got %v", err)
	}
}

func TestFocusSupersedesGPSFlight(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.RequestGPS()
	h.geo.succeed(service.Coordinate{Lat: 24.36, Lng: 88.62})

	_, _ = h.ctl.FocusLocation(service.Location{ID: "b", Lat: 24.4, Lng: 88.7})
	v := h.ctl.Snapshot()
	if v.Loading || v.Mode != Idle {
		t.Fatalf("superseded gps flight left loading=%v mode=%s", v.Loading, v.Mode)
	}
	h.clock.Advance(1200 * time.Millisecond)
	if h.ctl.Snapshot().Focus == nil {
		t.Fatal("old gps timer must not release the new focus")
	}
}

func TestCameraFailuresSwallowed(t *testing.T) {
	for _, mode := range []string{"error", "panic"} {
		t.Run(mode, func(t *testing.T) {
			h := newHarness(t, true)
			if mode == "error" {
				h.camera.err = errors.New("flyTo not supported")
			} else {
				h.camera.panic = true
			}
			if _, err := h.ctl.FocusLocation(service.Location{ID: "a", Lat: 24.37, Lng: 88.6}); err != nil {
				t.Fatalf("FocusLocation: %v", err)
			}
			h.ctl.ToggleMenu()
			_ = h.ctl.RequestGPS()
			h.geo.succeed(service.Coordinate{Lat: 24.36, Lng: 88.62})
			if !h.ctl.Snapshot().FormOpen {
				t.Fatal("camera failure must not abort the gps flow")
			}
			h.clock.Advance(1200 * time.Millisecond)
			if h.ctl.Snapshot().Loading {
				t.Fatal("loading must still clear after a failed flight")
			}
		})
	}
}

func TestSelection(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	h.ctl.SelectMarker(service.Location{ID: "m", Lat: 24.37, Lng: 88.6})

	v := h.ctl.Snapshot()
	if v.Selection == nil || v.Selection.ID != "m" {
		t.Fatal("marker selection not set")
	}
	if v.Focus != nil || len(h.camera.flights()) != 0 {
		t.Fatal("marker tap must not move the camera")
	}

	h.ctl.ClosePopup()
	v = h.ctl.Snapshot()
	if v.Selection != nil {
		t.Fatal("ClosePopup must clear the selection")
	}
	if v.Mode != MenuOpen {
		t.Fatalf("ClosePopup changed mode to %s", v.Mode)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t, true)
	h.ctl.ToggleMenu()
	_ = h.ctl.StartClickMode()
	_, _ = h.ctl.Tap(service.Coordinate{Lat: 24.37, Lng: 88.6})

	v := h.ctl.Snapshot()
	v.PendingPin.Lat = 0
	v.Form.Name = "mutated"
	again := h.ctl.Snapshot()
	if again.PendingPin.Lat != 24.37 || again.Form.Name != "" {
		t.Fatal("snapshot shares memory with the controller")
	}
	if again.Version == 0 {
		t.Fatal("version should advance on change")
	}
}

func TestModeString(t *testing.T) {
	tests := map[Mode]string{
		Idle: "idle", MenuOpen: "menu_open", ClickToPlace: "click_to_place",
		GPSAcquiring: "gps_acquiring", GPSError: "gps_error", Mode(99): "unknown",
	}
	for m, want := range tests {
		if m.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(m), m.String(), want)
		}
	}
}
