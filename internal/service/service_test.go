package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	created  []LocationFields
	affected int64
	err      error
}

func (f *fakeStore) List(context.Context, ListFilter) ([]Location, error) { return nil, f.err }
func (f *fakeStore) Get(context.Context, string) (Location, error)        { return Location{}, f.err }

func (f *fakeStore) Create(_ context.Context, fields LocationFields) (Location, error) {
	if f.err != nil {
		return Location{}, f.err
	}
	f.created = append(f.created, fields)
	return Location{ID: "new", Name: fields.Name, Date: fields.Date}, nil
}

func (f *fakeStore) Update(context.Context, string, LocationFields) (int64, error) {
	return f.affected, f.err
}

func (f *fakeStore) Delete(context.Context, string) (int64, error) {
	return f.affected, f.err
}

func testCatalog() *Catalog {
	return NewCatalog(
		[]Option{{Key: "mosque", Label: "মসজিদে ইফতার", Emoji: "🕌", Color: "#22c55e"}, {Key: "plain", Label: "Plain"}},
		[]Option{{Key: "everyone", Label: "সবার জন্য", Badge: "badge-success"}},
	)
}

func validFields() LocationFields {
	return LocationFields{Name: "Test Mosque", IftarType: "mosque", Audience: "everyone", Lat: 24.37, Lng: 88.6, Date: "2026-03-01"}
}

func TestCatalogFallbacks(t *testing.T) {
	c := testCatalog()
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"known color", c.Color("mosque"), "#22c55e"},
		{"unknown color", c.Color("street-food"), DefaultColor},
		{"empty color", c.Color("plain"), DefaultColor},
		{"known emoji", c.Emoji("mosque"), "🕌"},
		{"unknown emoji", c.Emoji(""), DefaultEmoji},
		{"known badge", c.Badge("everyone"), "badge-success"},
		{"unknown badge", c.Badge("aliens"), DefaultBadge},
		{"unknown label", c.TypeLabel("x"), "x"},
		{"first type", c.FirstType(), "mosque"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	empty := NewCatalog(nil, nil)
	if empty.Color("x") != DefaultColor || empty.Badge("x") != DefaultBadge || empty.FirstAudience() != "" {
		t.Error("empty catalog should resolve to defaults")
	}
}

func TestDayBoundary(t *testing.T) {
	loc := time.FixedZone("BDT", 6*60*60)
	b := DayBoundary{Hour: 19, Loc: loc}
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"exactly 19:00:00", time.Date(2026, 3, 1, 19, 0, 0, 0, loc), "2026-03-02"},
		{"18:59:59", time.Date(2026, 3, 1, 18, 59, 59, 0, loc), "2026-03-01"},
		{"midnight", time.Date(2026, 3, 1, 0, 0, 0, 0, loc), "2026-03-01"},
		{"month end rollover", time.Date(2026, 3, 31, 21, 0, 0, 0, loc), "2026-04-01"},
		{"utc input converted", time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), "2026-03-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Date(tt.now); got != tt.want {
				t.Errorf("Date(%v) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}

	mid := b.Midnight(time.Date(2026, 3, 1, 15, 30, 0, 0, loc))
	if !mid.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, loc)) {
		t.Errorf("Midnight = %v", mid)
	}
}

func TestCreateValidatesBeforeStore(t *testing.T) {
	store := &fakeStore{}
	svc := NewLocationService(store, testCatalog(), nil)

	f := validFields()
	f.Name = "   "
	f.IftarType = "unknown"
	_, err := svc.Create(context.Background(), f)

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if !ve.Has("name") || !ve.Has("iftarType") {
		t.Fatalf("fields = %v", ve.Fields)
	}
	if len(store.created) != 0 {
		t.Fatal("store must not be called on invalid input")
	}
}

func TestCreateTrimsAndPublishes(t *testing.T) {
	store := &fakeStore{}
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	svc := NewLocationService(store, testCatalog(), bus)

	f := validFields()
	f.Name = "  Test Mosque  "
	f.Area = "  "
	loc, err := svc.Create(context.Background(), f)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if loc.Name != "Test Mosque" || store.created[0].Area != "" {
		t.Fatalf("fields not trimmed: %+v", store.created[0])
	}

	select {
	case e := <-ch:
		if e.Action != ActionCreated || e.ID != "new" || e.Date != "2026-03-01" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestZeroRowsIsNotAffected(t *testing.T) {
	store := &fakeStore{affected: 0}
	svc := NewLocationService(store, testCatalog(), nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, "gone"); !errors.Is(err, ErrNotAffected) {
		t.Fatalf("Delete: want ErrNotAffected, got %v", err)
	}
	if err := svc.Update(ctx, "gone", validFields()); !errors.Is(err, ErrNotAffected) {
		t.Fatalf("Update: want ErrNotAffected, got %v", err)
	}

	store.affected = 1
	if err := svc.Delete(ctx, "there"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestTransportErrorIsDistinct(t *testing.T) {
	store := &fakeStore{err: ErrUnavailable}
	svc := NewLocationService(store, testCatalog(), nil)

	err := svc.Delete(context.Background(), "x")
	if !errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotAffected) {
		t.Fatalf("want only ErrUnavailable, got %v", err)
	}
}

func TestMessages(t *testing.T) {
	bn := MessagesFor("bn")
	if bn.For(ErrNotAffected) == bn.For(ErrUnavailable) {
		t.Fatal("not-affected and unavailable must have distinct messages")
	}
	if bn.NameRequired != "নাম দেওয়া আবশ্যক" {
		t.Errorf("NameRequired = %q", bn.NameRequired)
	}
	if MessagesFor("xx").SaveFailed != bn.SaveFailed {
		t.Error("unknown language should fall back to Bangla")
	}
	en := MessagesFor("en")
	if en.For(&ValidationError{Fields: []string{"name"}}) != en.Invalid {
		t.Error("validation error should map to Invalid")
	}
	if en.For(ErrGeoTimeout) != en.GeoTimeout {
		t.Error("geo timeout message")
	}
	if en.For(nil) != "" {
		t.Error("nil error should have no message")
	}
}

func TestCoordinate(t *testing.T) {
	tests := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{24.37, 88.6}, true},
		{Coordinate{-90, 180}, true},
		{Coordinate{90.1, 0}, false},
		{Coordinate{0, -180.5}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.c, got, tt.want)
		}
	}
	p := Coordinate{Lat: 24.37, Lng: 88.6}.Point()
	if p.Lon() != 88.6 || p.Lat() != 24.37 {
		t.Errorf("Point = %v", p)
	}
}

func TestFeatureCollection(t *testing.T) {
	locs := []Location{
		{ID: "a", Name: "A", IftarType: "mosque", Audience: "everyone", Lat: 24.37, Lng: 88.6},
		{ID: "b", Name: "B", IftarType: "mystery", Audience: "mystery", Lat: 24.38, Lng: 88.61},
	}
	fc := FeatureCollection(locs, testCatalog())
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	if fc.Features[1].Properties["color"] != DefaultColor || fc.Features[1].Properties["badge"] != DefaultBadge {
		t.Errorf("unknown members should fall back: %v", fc.Features[1].Properties)
	}
}

func TestEventBusSlowSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	for i := 0; i < 64; i++ {
		bus.Publish(Event{Action: ActionDeleted})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer = %d, want full %d", len(ch), cap(ch))
	}
	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch) // second call is harmless
	if bus.Len() != 0 {
		t.Fatal("subscriber not removed")
	}
}
