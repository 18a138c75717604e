package service

import "errors"

// Messages holds the user-facing strings for one language.
type Messages struct {
	NameRequired       string
	SaveFailed         string
	Unavailable        string
	NotAffected        string
	NotFound           string
	Invalid            string
	LoadFailed         string
	GeoFailed          string
	GeoDenied          string
	GeoTimeout         string
	Locating           string
	ClickHint          string
	InvalidCredentials string
	ConfirmDelete      string
	Deleted            string
	Updated            string
	Empty              string
	EmptyHint          string
	AddedOn            string
}

var bangla = Messages{
	NameRequired:       "নাম দেওয়া আবশ্যক",
	SaveFailed:         "সংরক্ষণ করতে সমস্যা হয়েছে। আবার চেষ্টা করুন।",
	Unavailable:        "সার্ভারে সংযোগ করা যাচ্ছে না। আবার চেষ্টা করুন।",
	NotAffected:        "কোনো লোকেশন পরিবর্তন হয়নি। হয়তো এটি আগেই মুছে ফেলা হয়েছে।",
	NotFound:           "লোকেশন পাওয়া যায়নি",
	Invalid:            "তথ্য সঠিক নয়",
	LoadFailed:         "ডেটা লোড করতে সমস্যা হয়েছে",
	GeoFailed:          "লোকেশন অ্যাক্সেস করা যায়নি",
	GeoDenied:          "লোকেশন অ্যাক্সেসের অনুমতি দেওয়া হয়নি",
	GeoTimeout:         "লোকেশন পাওয়া যায়নি",
	Locating:           "লোকেশন পাওয়া যাচ্ছে...",
	ClickHint:          "ম্যাপে ক্লিক করে পিন করুন",
	InvalidCredentials: "Invalid credentials",
	ConfirmDelete:      "আপনি কি নিশ্চিত যে এই লোকেশনটি মুছে ফেলতে চান?",
	Deleted:            "লোকেশন মুছে ফেলা হয়েছে",
	Updated:            "লোকেশন আপডেট হয়েছে",
	Empty:              "এখনো কোনো স্পট নেই।",
	EmptyHint:          "+ বাটন দিয়ে প্রথমটি যোগ করুন!",
	AddedOn:            "%s যোগ করা হয়েছে",
}

var english = Messages{
	NameRequired:       "Name is required",
	SaveFailed:         "Could not save. Please try again.",
	Unavailable:        "The server is unreachable. Please try again.",
	NotAffected:        "No location was changed. It may already have been removed.",
	NotFound:           "Location not found",
	Invalid:            "Invalid input",
	LoadFailed:         "Could not load data",
	GeoFailed:          "Could not access your location",
	GeoDenied:          "Location permission was denied",
	GeoTimeout:         "Your location could not be found in time",
	Locating:           "Finding your location...",
	ClickHint:          "Tap the map to drop a pin",
	InvalidCredentials: "Invalid credentials",
	ConfirmDelete:      "Are you sure you want to delete this location?",
	Deleted:            "Location deleted",
	Updated:            "Location updated",
	Empty:              "No spots yet.",
	EmptyHint:          "Use the + button to add the first one!",
	AddedOn:            "Added %s",
}

// MessagesFor returns the strings for lang ("bn" or "en"). Unknown
// languages get Bangla.
func MessagesFor(lang string) Messages {
	if lang == "en" {
		return english
	}
	return bangla
}

// For maps err to its user-facing message.
func (m Messages) For(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAffected):
		return m.NotAffected
	case errors.Is(err, ErrNotFound):
		return m.NotFound
	case errors.Is(err, ErrUnavailable):
		return m.Unavailable
	case errors.Is(err, ErrGeoDenied):
		return m.GeoDenied
	case errors.Is(err, ErrGeoTimeout):
		return m.GeoTimeout
	case errors.Is(err, ErrGeoUnsupported):
		return m.GeoFailed
	case IsValidation(err):
		return m.Invalid
	default:
		return m.SaveFailed
	}
}
