// Package mapctl is the map interaction controller: pin-drop modes, the GPS
// capture flow, camera fly-to sequencing, selection, and marker rendering.
//
// One Controller exists per visitor session. Every transition is a method
// that takes the controller lock, so a session's transitions are serialized
// even though HTTP requests, geolocation callbacks and timers arrive on
// different goroutines.
package mapctl

import (
	"errors"
	"time"

	"github.com/joeblew999/plat-iftar/internal/service"
)

// Mode is the pin-placement interaction mode. Exactly one is active.
type Mode int

const (
	Idle Mode = iota
	MenuOpen
	ClickToPlace
	GPSAcquiring
	GPSError
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case MenuOpen:
		return "menu_open"
	case ClickToPlace:
		return "click_to_place"
	case GPSAcquiring:
		return "gps_acquiring"
	case GPSError:
		return "gps_error"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current mode.
	ErrInvalidTransition = errors.New("invalid map mode transition")
	// ErrInvalidCoordinate is returned for out-of-range or NaN coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// PositionOptions are passed to the geolocation provider.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Geolocator is a one-shot position provider. Exactly one of the callbacks
// is eventually called, possibly synchronously. The provider enforces
// opts.Timeout itself.
type Geolocator interface {
	CurrentPosition(opts PositionOptions, onSuccess func(service.Coordinate), onError func(error))
}

// Camera animates the map view. Calls are fire-and-forget.
type Camera interface {
	FlyTo(req FocusRequest) error
}

// FocusRequest asks the camera to fly to Target. It expires after the
// focus window, or earlier when the renderer reports completion.
type FocusRequest struct {
	Seq      uint64             `json:"seq"`
	Target   service.Coordinate `json:"target"`
	Location *service.Location  `json:"location,omitempty"`
	Zoom     int                `json:"zoom"`
}

// Config holds the controller timings.
type Config struct {
	FocusWindow   time.Duration // list focus lifetime
	GPSWindow     time.Duration // GPS flight; loading indicator outlives it
	GPSErrorDelay time.Duration // GPSError -> Idle
	GPSTimeout    time.Duration // passed to the provider
	FocusZoom     int

	Catalog     *service.Catalog
	DayBoundary service.DayBoundary
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		FocusWindow:   1500 * time.Millisecond,
		GPSWindow:     1200 * time.Millisecond,
		GPSErrorDelay: 3 * time.Second,
		GPSTimeout:    8 * time.Second,
		FocusZoom:     17,
		DayBoundary:   service.DefaultDayBoundary(),
	}
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is the wall clock.
var RealClock Clock = realClock{}
