package mapctl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/metrics"
	"github.com/joeblew999/plat-iftar/internal/service"
)

// View is an immutable snapshot of the controller state.
type View struct {
	Mode        Mode
	Loading     bool
	PendingPin  *service.Coordinate
	FormOpen    bool
	Form        *Form
	GPSPosition *service.Coordinate
	Focus       *FocusRequest
	Selection   *service.Location
	GPSErr      error
	Version     uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithGeolocator sets the geolocation provider. Without one every GPS
// request fails with service.ErrGeoUnsupported.
func WithGeolocator(g Geolocator) Option {
	return func(ctl *Controller) { ctl.geo = g }
}

// WithCamera sets the camera.
func WithCamera(c Camera) Option {
	return func(ctl *Controller) { ctl.camera = c }
}

// OnChange registers a listener called after every state change, outside
// the controller lock.
func OnChange(f func(View)) Option {
	return func(ctl *Controller) { ctl.onChange = f }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// Controller is the per-session map interaction state machine.
type Controller struct {
	cfg      Config
	clock    Clock
	geo      Geolocator
	camera   Camera
	onChange func(View)
	log      zerolog.Logger

	mu        sync.Mutex
	mode      Mode
	loading   bool
	pending   *service.Coordinate
	form      *Form
	gpsPos    *service.Coordinate
	focus     *FocusRequest
	gpsFocus  bool // focus belongs to the GPS flight and holds the loading indicator
	selection *service.Location
	gpsErr    error
	version   uint64

	gpsSeq     uint64 // token of the current GPS request
	focusSeq   uint64
	formSeq    uint64
	errTimer   Timer
	focusTimer Timer
}

// New creates a controller in Idle.
func New(cfg Config, opts ...Option) *Controller {
	ctl := &Controller{
		cfg:   cfg,
		clock: RealClock,
		log:   logging.With("mapctl"),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	if ctl.cfg.Catalog == nil {
		ctl.cfg.Catalog = service.NewCatalog(nil, nil)
	}
	return ctl
}

// ToggleMenu opens the add-menu from Idle. In any other mode it cancels.
func (c *Controller) ToggleMenu() {
	c.mu.Lock()
	if c.mode == Idle {
		c.setModeLocked(MenuOpen)
	} else {
		c.cancelLocked()
	}
	c.unlockAndNotify()
}

// Cancel returns to Idle at once from any mode. An in-flight GPS request
// is invalidated and its late result ignored. The form and the selection
// are left alone.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.cancelLocked()
	c.unlockAndNotify()
}

func (c *Controller) cancelLocked() {
	c.gpsSeq++
	stopTimer(&c.errTimer)
	c.gpsErr = nil
	c.loading = false
	if c.gpsFocus {
		c.clearFocusLocked()
	}
	c.setModeLocked(Idle)
}

// StartClickMode arms click-to-place. Only valid from MenuOpen.
func (c *Controller) StartClickMode() error {
	c.mu.Lock()
	if c.mode != MenuOpen {
		mode := c.mode
		c.mu.Unlock()
		return fmt.Errorf("%w: click mode from %s", ErrInvalidTransition, mode)
	}
	c.setModeLocked(ClickToPlace)
	c.unlockAndNotify()
	return nil
}

// Tap handles a map tap. In ClickToPlace it places the pending pin, opens
// the form and returns to Idle; elsewhere the tap is ignored.
func (c *Controller) Tap(at service.Coordinate) (bool, error) {
	if !at.Valid() {
		return false, ErrInvalidCoordinate
	}
	c.mu.Lock()
	if c.mode != ClickToPlace {
		c.mu.Unlock()
		return false, nil
	}
	c.openFormLocked(at)
	c.setModeLocked(Idle)
	c.unlockAndNotify()
	return true, nil
}

// RequestGPS starts GPS capture from MenuOpen. The loading indicator turns
// on and listeners are notified before the provider is called.
func (c *Controller) RequestGPS() error {
	c.mu.Lock()
	if c.mode != MenuOpen {
		mode := c.mode
		c.mu.Unlock()
		return fmt.Errorf("%w: gps from %s", ErrInvalidTransition, mode)
	}
	c.gpsSeq++
	seq := c.gpsSeq
	c.gpsErr = nil
	c.loading = true
	c.setModeLocked(GPSAcquiring)
	geo := c.geo
	c.unlockAndNotify()

	if geo == nil {
		c.gpsFailed(seq, service.ErrGeoUnsupported)
		return nil
	}

	opts := PositionOptions{HighAccuracy: true, Timeout: c.cfg.GPSTimeout}
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Warn().Interface("panic", r).Msg("geolocation provider panicked")
				c.gpsFailed(seq, service.ErrGeoUnsupported)
			}
		}()
		geo.CurrentPosition(opts,
			func(pos service.Coordinate) { c.gpsSucceeded(seq, pos) },
			func(err error) { c.gpsFailed(seq, err) },
		)
	}()
	return nil
}

func (c *Controller) gpsSucceeded(seq uint64, pos service.Coordinate) {
	if !pos.Valid() {
		c.gpsFailed(seq, fmt.Errorf("%w: provider returned %v", service.ErrGeoUnsupported, pos))
		return
	}

	c.mu.Lock()
	if seq != c.gpsSeq || c.mode != GPSAcquiring || c.gpsFocus {
		c.mu.Unlock()
		c.log.Debug().Uint64("seq", seq).Msg("stale gps result ignored")
		return
	}
	p := pos
	c.gpsPos = &p
	req := c.focusLocked(pos, nil, c.cfg.GPSWindow)
	c.gpsFocus = true
	c.openFormLocked(pos)
	camera := c.camera
	c.unlockAndNotify()

	c.fly(camera, req)
}

func (c *Controller) gpsFailed(seq uint64, err error) {
	if !service.IsGeo(err) {
		err = fmt.Errorf("%w: %v", service.ErrGeoUnsupported, err)
	}

	c.mu.Lock()
	if seq != c.gpsSeq || c.mode != GPSAcquiring || c.gpsFocus {
		c.mu.Unlock()
		return
	}
	c.loading = false
	c.gpsErr = err
	c.setModeLocked(GPSError)
	stopTimer(&c.errTimer)
	c.errTimer = c.clock.AfterFunc(c.cfg.GPSErrorDelay, func() { c.clearGPSError(seq) })
	c.unlockAndNotify()

	c.log.Info().Err(err).Msg("gps acquisition failed")
}

func (c *Controller) clearGPSError(seq uint64) {
	c.mu.Lock()
	if seq != c.gpsSeq || c.mode != GPSError {
		c.mu.Unlock()
		return
	}
	c.errTimer = nil
	c.gpsErr = nil
	c.setModeLocked(Idle)
	c.unlockAndNotify()
}

// FocusLocation selects loc from the list and flies the camera to it.
func (c *Controller) FocusLocation(loc service.Location) (FocusRequest, error) {
	if !loc.Coordinate().Valid() {
		return FocusRequest{}, ErrInvalidCoordinate
	}
	c.mu.Lock()
	l := loc
	c.selection = &l
	req := c.focusLocked(loc.Coordinate(), &l, c.cfg.FocusWindow)
	camera := c.camera
	c.unlockAndNotify()

	c.fly(camera, req)
	return req, nil
}

// SelectMarker selects loc after a marker tap. The camera does not move.
func (c *Controller) SelectMarker(loc service.Location) {
	c.mu.Lock()
	l := loc
	c.selection = &l
	c.unlockAndNotify()
}

// ClosePopup clears the selection only.
func (c *Controller) ClosePopup() {
	c.mu.Lock()
	c.selection = nil
	c.unlockAndNotify()
}

// CloseForm closes the form and discards the pending pin.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	c.form = nil
	c.pending = nil
	c.unlockAndNotify()
}

// FormSubmitted clears the pending pin and closes the form after a
// successful create.
func (c *Controller) FormSubmitted() {
	c.mu.Lock()
	c.form = nil
	c.pending = nil
	c.unlockAndNotify()
}

// SubmitForm applies in to the open form and submits it. The create call
// runs outside the lock. On success the form closes; on failure it stays
// open carrying the error message.
func (c *Controller) SubmitForm(ctx context.Context, in FormInput, creator Creator, msgs service.Messages) (service.Location, error) {
	c.mu.Lock()
	if c.form == nil {
		c.mu.Unlock()
		return service.Location{}, fmt.Errorf("%w: no open form", ErrInvalidTransition)
	}
	c.form.Apply(in)
	form := c.form
	working := *form
	c.mu.Unlock()

	loc, err := working.Submit(ctx, creator, msgs)

	c.mu.Lock()
	if c.form != form {
		// closed or replaced while the call was in flight
		c.mu.Unlock()
		return loc, err
	}
	if err != nil {
		form.Error = working.Error
		c.unlockAndNotify()
		return service.Location{}, err
	}
	c.form = nil
	c.pending = nil
	c.unlockAndNotify()
	return loc, nil
}

// CameraDone releases the focus request seq early. It reports whether seq
// was the live request.
func (c *Controller) CameraDone(seq uint64) bool {
	return c.releaseFocus(seq)
}

func (c *Controller) releaseFocus(seq uint64) bool {
	c.mu.Lock()
	if c.focus == nil || c.focus.Seq != seq {
		c.mu.Unlock()
		return false
	}
	c.clearFocusLocked()
	c.unlockAndNotify()
	return true
}

// Snapshot returns a copy of the state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Markers renders locs plus the pending or GPS marker from the current state.
func (c *Controller) Markers(locs []service.Location) []Marker {
	return BuildMarkers(c.Snapshot(), locs, c.cfg.Catalog)
}

func (c *Controller) openFormLocked(at service.Coordinate) {
	p := at
	c.pending = &p
	c.form = NewForm(at, c.clock.Now(), c.cfg.Catalog, c.cfg.DayBoundary)
	c.formSeq++
	c.form.Seq = c.formSeq
}

// focusLocked issues a new focus request expiring after window. A GPS
// flight it supersedes is released.
func (c *Controller) focusLocked(target service.Coordinate, loc *service.Location, window time.Duration) FocusRequest {
	if c.focus != nil {
		c.clearFocusLocked()
	}
	c.focusSeq++
	seq := c.focusSeq
	c.focus = &FocusRequest{Seq: seq, Target: target, Location: loc, Zoom: c.cfg.FocusZoom}
	c.focusTimer = c.clock.AfterFunc(window, func() { c.releaseFocus(seq) })
	return *c.focus
}

// clearFocusLocked drops the focus request. If it was the GPS flight the
// loading indicator goes off and GPSAcquiring ends.
func (c *Controller) clearFocusLocked() {
	c.focus = nil
	stopTimer(&c.focusTimer)
	if c.gpsFocus {
		c.gpsFocus = false
		c.loading = false
		if c.mode == GPSAcquiring {
			c.setModeLocked(Idle)
		}
	}
}

func (c *Controller) setModeLocked(m Mode) {
	if c.mode != m {
		metrics.Transitions.WithLabelValues(c.mode.String(), m.String()).Inc()
		c.log.Debug().Str("from", c.mode.String()).Str("to", m.String()).Msg("mode transition")
	}
	c.mode = m
}

func (c *Controller) snapshotLocked() View {
	v := View{
		Mode:     c.mode,
		Loading:  c.loading,
		FormOpen: c.form != nil,
		GPSErr:   c.gpsErr,
		Version:  c.version,
	}
	if c.pending != nil {
		p := *c.pending
		v.PendingPin = &p
	}
	if c.form != nil {
		f := *c.form
		v.Form = &f
	}
	if c.gpsPos != nil {
		p := *c.gpsPos
		v.GPSPosition = &p
	}
	if c.focus != nil {
		f := *c.focus
		v.Focus = &f
	}
	if c.selection != nil {
		s := *c.selection
		v.Selection = &s
	}
	return v
}

// unlockAndNotify bumps the version, releases the lock and calls the
// change listener with the new snapshot.
func (c *Controller) unlockAndNotify() {
	c.version++
	v := c.snapshotLocked()
	listener := c.onChange
	c.mu.Unlock()
	if listener != nil {
		listener(v)
	}
}

// fly asks the camera to move. Errors and panics are logged and dropped.
func (c *Controller) fly(camera Camera, req FocusRequest) {
	if camera == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Interface("panic", r).Uint64("seq", req.Seq).Msg("camera fly-to panicked")
		}
	}()
	if err := camera.FlyTo(req); err != nil {
		c.log.Debug().Err(err).Uint64("seq", req.Seq).Msg("camera fly-to failed")
	}
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
