package mapctl

import (
	"context"
	"testing"
	"time"

	"github.com/joeblew999/plat-iftar/internal/service"
)

func TestNewFormDayBoundary(t *testing.T) {
	loc := time.FixedZone("BDT", 6*60*60)
	rule := service.DayBoundary{Hour: 19, Loc: loc}
	catalog := service.NewCatalog(
		[]service.Option{{Key: "mosque"}, {Key: "street"}},
		[]service.Option{{Key: "everyone"}, {Key: "poor"}},
	)
	at := service.Coordinate{Lat: 24.37, Lng: 88.6}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"19:00:00 is tomorrow", time.Date(2026, 3, 1, 19, 0, 0, 0, loc), "2026-03-02"},
		{"18:59:59 is today", time.Date(2026, 3, 1, 18, 59, 59, 0, loc), "2026-03-01"},
		{"late night is tomorrow", time.Date(2026, 3, 1, 23, 30, 0, 0, loc), "2026-03-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewForm(at, tt.now, catalog, rule)
			if f.Date != tt.want || f.MinDate != tt.want {
				t.Fatalf("date=%s min=%s, want %s", f.Date, f.MinDate, tt.want)
			}
			if f.IftarType != "mosque" || f.Audience != "everyone" {
				t.Fatalf("defaults = %s/%s", f.IftarType, f.Audience)
			}
		})
	}
}

func TestNewFormEmptyCatalog(t *testing.T) {
	f := NewForm(service.Coordinate{}, time.Now(), nil, service.DefaultDayBoundary())
	if f.IftarType != "" || f.Audience != "" {
		t.Fatalf("empty catalog defaults = %s/%s", f.IftarType, f.Audience)
	}
}

func TestFormSubmit(t *testing.T) {
	msgs := service.MessagesFor("bn")
	at := service.Coordinate{Lat: 24.37, Lng: 88.6}

	t.Run("trims and creates once", func(t *testing.T) {
		f := NewForm(at, t0, nil, service.DefaultDayBoundary())
		f.Apply(FormInput{Name: "  Test Mosque ", Area: " Kazla ", IftarType: "mosque", Audience: "everyone"})
		c := &fakeCreator{}
		if _, err := f.Submit(context.Background(), c, msgs); err != nil {
			t.Fatal(err)
		}
		if len(c.calls) != 1 || c.calls[0].Name != "Test Mosque" || c.calls[0].Area != "Kazla" {
			t.Fatalf("calls = %+v", c.calls)
		}
	})

	t.Run("empty name blocked locally", func(t *testing.T) {
		f := NewForm(at, t0, nil, service.DefaultDayBoundary())
		f.Apply(FormInput{Name: "\t "})
		c := &fakeCreator{}
		_, err := f.Submit(context.Background(), c, msgs)
		if !service.IsValidation(err) {
			t.Fatalf("want validation error, got %v", err)
		}
		if f.Error != "নাম দেওয়া আবশ্যক" || len(c.calls) != 0 {
			t.Fatalf("error=%q calls=%d", f.Error, len(c.calls))
		}
	})

	t.Run("store failure surfaces message", func(t *testing.T) {
		f := NewForm(at, t0, nil, service.DefaultDayBoundary())
		f.Apply(FormInput{Name: "Mosque"})
		c := &fakeCreator{err: service.ErrUnavailable}
		if _, err := f.Submit(context.Background(), c, msgs); err == nil {
			t.Fatal("expected error")
		}
		if f.Error != "সংরক্ষণ করতে সমস্যা হয়েছে। আবার চেষ্টা করুন।" {
			t.Fatalf("error = %q", f.Error)
		}
	})

	t.Run("apply keeps selects when empty", func(t *testing.T) {
		f := &Form{IftarType: "mosque", Audience: "everyone", Date: "2026-03-01"}
		f.Apply(FormInput{Name: "x"})
		if f.IftarType != "mosque" || f.Audience != "everyone" || f.Date != "2026-03-01" {
			t.Fatalf("form = %+v", f)
		}
	})
}
