package scrape

import (
	"fmt"
	"net/mail"
	"strings"

	"scout/internal/services"
)

// Mode selects the search strategy for a session's primary stage.
type Mode string

const (
	// ModeName runs a full enumeration of profiles matching the name.
	ModeName Mode = "name"
	// ModeEmail short-circuits enumeration once a profile's email matches.
	ModeEmail Mode = "email"
	// ModeField restricts enumeration to a field and its specialties.
	ModeField Mode = "field"
)

// SpecialtyWildcard matches every specialty within the requested field.
const SpecialtyWildcard = "*"

// Request describes one validated scraping request. Construct via New;
// the zero value is not valid.
type Request struct {
	Name        string   `json:"name"`
	Mode        Mode     `json:"mode"`
	Email       string   `json:"email,omitempty"`
	Field       string   `json:"field,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
}

// New validates and normalizes request parameters into a Request.
// Exactly one mode must be derivable: a bare name, a name plus email,
// or a name plus field filter. Email and field filters are mutually
// exclusive.
func New(name, email, field string, specialties []string) (Request, error) {
	name = NormalizeTerm(name)
	if name == "" {
		return Request{}, services.Wrap(services.ErrInvalidRequest, "", "validate", "name is required", nil)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	field = NormalizeTerm(field)
	cleaned := make([]string, 0, len(specialties))
	for _, s := range specialties {
		if s = NormalizeTerm(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}

	if email != "" && (field != "" || len(cleaned) > 0) {
		return Request{}, services.Wrap(services.ErrInvalidRequest, "", "validate",
			"email fast-match and field filter are mutually exclusive", nil)
	}

	switch {
	case email != "":
		if _, err := mail.ParseAddress(email); err != nil {
			return Request{}, services.Wrap(services.ErrInvalidRequest, "", "validate",
				fmt.Sprintf("malformed email %q", email), err)
		}
		return Request{Name: name, Mode: ModeEmail, Email: email}, nil
	case field != "":
		if len(cleaned) == 0 {
			return Request{}, services.Wrap(services.ErrInvalidRequest, "", "validate",
				"field filter requires specialties or the wildcard", nil)
		}
		if containsWildcard(cleaned) {
			cleaned = []string{SpecialtyWildcard}
		}
		return Request{Name: name, Mode: ModeField, Field: field, Specialties: cleaned}, nil
	case len(cleaned) > 0:
		return Request{}, services.Wrap(services.ErrInvalidRequest, "", "validate",
			"specialties require a field", nil)
	default:
		return Request{Name: name, Mode: ModeName}, nil
	}
}

// FastMatch reports whether the request uses the short-circuiting email mode.
func (r Request) FastMatch() bool {
	return r.Mode == ModeEmail
}

// EmailKey returns the diacritic-stripped, case-folded comparison key for the
// requested email. Empty for non-email modes.
func (r Request) EmailKey() string {
	if r.Mode != ModeEmail {
		return ""
	}
	return MatchKey(r.Email)
}

func containsWildcard(specialties []string) bool {
	for _, s := range specialties {
		if s == SpecialtyWildcard {
			return true
		}
	}
	return false
}
