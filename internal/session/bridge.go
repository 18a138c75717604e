package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-iftar/internal/mapctl"
	"github.com/joeblew999/plat-iftar/internal/service"
)

// Command kinds sent to the browser.
const (
	CommandGeolocate = "geolocate"
	CommandFlyTo     = "flyto"
)

// ErrOutboxFull is returned when the browser is not draining commands.
var ErrOutboxFull = errors.New("session outbox full")

// Command is an instruction for the browser-side map glue.
type Command struct {
	Kind string `json:"kind"`

	// geolocate
	RequestID    string `json:"requestId,omitempty"`
	HighAccuracy bool   `json:"highAccuracy,omitempty"`
	TimeoutMS    int64  `json:"timeoutMs,omitempty"`

	// flyto
	Seq  uint64  `json:"seq,omitempty"`
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
	Zoom int     `json:"zoom,omitempty"`
}

// Browser PositionError codes.
const (
	GeoPermissionDenied    = 1
	GeoPositionUnavailable = 2
	GeoTimeout             = 3
)

// GeoResult is what the browser posts back for a geolocate command. A zero
// Code means success.
type GeoResult struct {
	RequestID string
	Lat       float64
	Lng       float64
	Code      int
	Message   string
}

// Err maps the result onto the geolocation error taxonomy.
func (r GeoResult) Err() error {
	switch r.Code {
	case 0:
		return nil
	case GeoPermissionDenied:
		return service.ErrGeoDenied
	case GeoTimeout:
		return service.ErrGeoTimeout
	default:
		return fmt.Errorf("%w: %s", service.ErrGeoUnsupported, r.Message)
	}
}

type pendingGeo struct {
	onSuccess func(service.Coordinate)
	onError   func(error)
	timer     mapctl.Timer
}

// BrowserGeolocator asks the live browser stream for a position and waits
// for the result post. The server-side deadline is the request timeout.
type BrowserGeolocator struct {
	sess  *Session
	clock mapctl.Clock

	mu      sync.Mutex
	pending map[string]*pendingGeo
}

func newBrowserGeolocator(s *Session, clock mapctl.Clock) *BrowserGeolocator {
	return &BrowserGeolocator{sess: s, clock: clock, pending: map[string]*pendingGeo{}}
}

// CurrentPosition implements mapctl.Geolocator.
func (g *BrowserGeolocator) CurrentPosition(opts mapctl.PositionOptions, onSuccess func(service.Coordinate), onError func(error)) {
	if !g.sess.Live() {
		onError(fmt.Errorf("%w: no live map stream", service.ErrGeoUnsupported))
		return
	}

	id := uuid.NewString()
	p := &pendingGeo{onSuccess: onSuccess, onError: onError}
	g.mu.Lock()
	g.pending[id] = p
	if opts.Timeout > 0 {
		p.timer = g.clock.AfterFunc(opts.Timeout, func() { g.expire(id) })
	}
	g.mu.Unlock()

	err := g.sess.send(Command{
		Kind:         CommandGeolocate,
		RequestID:    id,
		HighAccuracy: opts.HighAccuracy,
		TimeoutMS:    opts.Timeout.Milliseconds(),
	})
	if err != nil {
		if p := g.take(id); p != nil {
			p.onError(fmt.Errorf("%w: %v", service.ErrGeoUnsupported, err))
		}
	}
}

// Resolve completes the request named in res. It reports whether the
// request was still pending.
func (g *BrowserGeolocator) Resolve(res GeoResult) bool {
	p := g.take(res.RequestID)
	if p == nil {
		return false
	}
	if err := res.Err(); err != nil {
		p.onError(err)
		return true
	}
	p.onSuccess(service.Coordinate{Lat: res.Lat, Lng: res.Lng})
	return true
}

// Pending returns the number of unresolved requests.
func (g *BrowserGeolocator) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

func (g *BrowserGeolocator) expire(id string) {
	if p := g.take(id); p != nil {
		p.onError(service.ErrGeoTimeout)
	}
}

func (g *BrowserGeolocator) take(id string) *pendingGeo {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[id]
	if !ok {
		return nil
	}
	delete(g.pending, id)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p
}

// failAll fails every pending request, used when the session is dropped.
func (g *BrowserGeolocator) failAll() {
	g.mu.Lock()
	ps := g.pending
	g.pending = map[string]*pendingGeo{}
	g.mu.Unlock()
	for _, p := range ps {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.onError(fmt.Errorf("%w: session closed", service.ErrGeoUnsupported))
	}
}

// browserCamera forwards fly-to requests to the live stream.
type browserCamera struct {
	sess *Session
}

func (c browserCamera) FlyTo(req mapctl.FocusRequest) error {
	if !c.sess.Live() {
		return nil
	}
	return c.sess.send(Command{
		Kind: CommandFlyTo,
		Seq:  req.Seq,
		Lat:  req.Target.Lat,
		Lng:  req.Target.Lng,
		Zoom: req.Zoom,
	})
}
