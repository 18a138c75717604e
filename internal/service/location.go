package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/metrics"
	"github.com/joeblew999/plat-iftar/internal/validation"
)

// Store is the persistence contract for locations. Update and Delete return
// the number of affected rows; zero is not an error at this layer.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]Location, error)
	Get(ctx context.Context, id string) (Location, error)
	Create(ctx context.Context, fields LocationFields) (Location, error)
	Update(ctx context.Context, id string, fields LocationFields) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// LocationService validates writes, maps store results onto the error
// taxonomy, and publishes change events.
type LocationService struct {
	store   Store
	catalog *Catalog
	bus     *EventBus
	now     func() time.Time
}

// NewLocationService creates a location service. bus may be nil.
func NewLocationService(store Store, catalog *Catalog, bus *EventBus) *LocationService {
	if bus == nil {
		bus = NewEventBus()
	}
	return &LocationService{store: store, catalog: catalog, bus: bus, now: time.Now}
}

// Catalog returns the option catalog.
func (s *LocationService) Catalog() *Catalog { return s.catalog }

// Bus returns the change-event bus.
func (s *LocationService) Bus() *EventBus { return s.bus }

// List returns locations matching f, newest first.
func (s *LocationService) List(ctx context.Context, f ListFilter) ([]Location, error) {
	start := time.Now()
	locs, err := s.store.List(ctx, f)
	metrics.ObserveStore("list", start, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("list locations failed")
		return nil, err
	}
	return locs, nil
}

// Get returns one location.
func (s *LocationService) Get(ctx context.Context, id string) (Location, error) {
	start := time.Now()
	loc, err := s.store.Get(ctx, id)
	metrics.ObserveStore("get", start, err)
	return loc, err
}

// Create validates fields and stores a new location.
func (s *LocationService) Create(ctx context.Context, fields LocationFields) (Location, error) {
	fields = Normalize(fields)
	if err := s.Validate(fields); err != nil {
		return Location{}, err
	}

	start := time.Now()
	loc, err := s.store.Create(ctx, fields)
	metrics.ObserveStore("create", start, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("name", fields.Name).Msg("create location failed")
		return Location{}, err
	}

	logging.Ctx(ctx).Info().Str("id", loc.ID).Str("date", loc.Date).Msg("location created")
	s.bus.Publish(Event{Action: ActionCreated, ID: loc.ID, Date: loc.Date, At: s.now().UTC()})
	return loc, nil
}

// Update overwrites every writable field of a location.
func (s *LocationService) Update(ctx context.Context, id string, fields LocationFields) error {
	fields = Normalize(fields)
	if err := s.Validate(fields); err != nil {
		return err
	}

	start := time.Now()
	n, err := s.store.Update(ctx, id, fields)
	if err == nil && n == 0 {
		err = ErrNotAffected
	}
	metrics.ObserveStore("update", start, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("id", id).Msg("update location failed")
		return err
	}

	s.bus.Publish(Event{Action: ActionUpdated, ID: id, Date: fields.Date, At: s.now().UTC()})
	return nil
}

// Delete removes a location.
func (s *LocationService) Delete(ctx context.Context, id string) error {
	start := time.Now()
	n, err := s.store.Delete(ctx, id)
	if err == nil && n == 0 {
		err = ErrNotAffected
	}
	metrics.ObserveStore("delete", start, err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("id", id).Msg("delete location failed")
		return err
	}

	s.bus.Publish(Event{Action: ActionDeleted, ID: id, At: s.now().UTC()})
	return nil
}

// Validate checks field rules and catalog membership.
func (s *LocationService) Validate(fields LocationFields) error {
	var ve *ValidationError
	if err := validation.Struct(fields); err != nil {
		if !errors.As(validationFrom(err), &ve) {
			return err
		}
	}
	if s.catalog != nil {
		if fields.IftarType != "" && !s.catalog.HasType(fields.IftarType) {
			ve = appendField(ve, "iftarType")
		}
		if fields.Audience != "" && !s.catalog.HasAudience(fields.Audience) {
			ve = appendField(ve, "audience")
		}
	}
	if ve != nil {
		return ve
	}
	return nil
}

// Normalize trims free-text fields.
func Normalize(f LocationFields) LocationFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Area = strings.TrimSpace(f.Area)
	return f
}

func appendField(ve *ValidationError, field string) *ValidationError {
	if ve == nil {
		ve = &ValidationError{}
	}
	if !ve.Has(field) {
		ve.Fields = append(ve.Fields, field)
	}
	return ve
}
