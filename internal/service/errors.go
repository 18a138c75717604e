package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeblew999/plat-iftar/internal/validation"
)

var (
	// ErrUnavailable is a transport or backend failure. Retrying the same
	// call may succeed.
	ErrUnavailable = errors.New("location store unavailable")
	// ErrNotAffected means an update or delete matched zero rows: the id is
	// stale or the caller lacks permission. Not retried.
	ErrNotAffected = errors.New("no location was affected")
	// ErrNotFound means the requested location does not exist.
	ErrNotFound = errors.New("location not found")

	ErrGeoDenied      = errors.New("geolocation permission denied")
	ErrGeoTimeout     = errors.New("geolocation timed out")
	ErrGeoUnsupported = errors.New("geolocation unsupported")
)

// ValidationError blocks a write before any store call.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid location: %s", strings.Join(e.Fields, ", "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGeo reports whether err is one of the geolocation errors.
func IsGeo(err error) bool {
	return errors.Is(err, ErrGeoDenied) || errors.Is(err, ErrGeoTimeout) || errors.Is(err, ErrGeoUnsupported)
}

func validationFrom(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Fields: []string{err.Error()}}
	}
	ve := &ValidationError{}
	for _, fe := range errs {
		ve.Fields = append(ve.Fields, jsonName(fe.Field))
	}
	return ve
}

func jsonName(field string) string {
	switch field {
	case "IftarType":
		return "iftarType"
	case "Audience":
		return "audience"
	case "Lat":
		return "lat"
	case "Lng":
		return "lng"
	default:
		return strings.ToLower(field)
	}
}
