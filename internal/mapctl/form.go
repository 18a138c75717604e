package mapctl

import (
	"context"
	"strings"
	"time"

	"github.com/joeblew999/plat-iftar/internal/service"
)

// Creator stores a new location.
type Creator interface {
	Create(ctx context.Context, fields service.LocationFields) (service.Location, error)
}

// FormInput is what the visitor typed.
type FormInput struct {
	Name      string `json:"name"`
	Area      string `json:"area"`
	IftarType string `json:"iftarType"`
	Audience  string `json:"audience"`
	Date      string `json:"date"`
}

// Form collects the attributes of a new pin.
type Form struct {
	At        service.Coordinate `json:"at"`
	Name      string             `json:"name"`
	Area      string             `json:"area"`
	IftarType string             `json:"iftarType"`
	Audience  string             `json:"audience"`
	Date      string             `json:"date"`
	MinDate   string             `json:"minDate"`
	Error     string             `json:"error,omitempty"`
	// Seq is unique per opened form, so re-placing a pin at the same spot
	// still yields a new form.
	Seq uint64 `json:"seq"`
}

// NewForm opens a form at the given coordinate with catalog and date
// defaults. The earliest selectable date is the default date.
func NewForm(at service.Coordinate, now time.Time, catalog *service.Catalog, rule service.DayBoundary) *Form {
	if catalog == nil {
		catalog = service.NewCatalog(nil, nil)
	}
	date := rule.Date(now)
	return &Form{
		At:        at,
		IftarType: catalog.FirstType(),
		Audience:  catalog.FirstAudience(),
		Date:      date,
		MinDate:   date,
	}
}

// Apply copies non-empty select values and the text fields from in.
func (f *Form) Apply(in FormInput) {
	f.Name = in.Name
	f.Area = in.Area
	if in.IftarType != "" {
		f.IftarType = in.IftarType
	}
	if in.Audience != "" {
		f.Audience = in.Audience
	}
	if in.Date != "" {
		f.Date = in.Date
	}
}

// Fields returns the trimmed location fields.
func (f *Form) Fields() service.LocationFields {
	return service.LocationFields{
		Name:      strings.TrimSpace(f.Name),
		Area:      strings.TrimSpace(f.Area),
		IftarType: f.IftarType,
		Audience:  f.Audience,
		Lat:       f.At.Lat,
		Lng:       f.At.Lng,
		Date:      f.Date,
	}
}

// Submit issues exactly one create call. An empty name is rejected before
// any call. On failure f.Error holds the localized message and the form
// stays usable for a retry.
func (f *Form) Submit(ctx context.Context, creator Creator, msgs service.Messages) (service.Location, error) {
	fields := f.Fields()
	if fields.Name == "" {
		f.Error = msgs.NameRequired
		return service.Location{}, &service.ValidationError{Fields: []string{"name"}}
	}
	f.Error = ""

	loc, err := creator.Create(ctx, fields)
	if err != nil {
		if service.IsValidation(err) {
			f.Error = msgs.Invalid
		} else {
			f.Error = msgs.SaveFailed
		}
		return service.Location{}, err
	}
	return loc, nil
}
