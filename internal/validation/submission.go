// Package validation checks medication-request submissions before they
// reach the store, producing field-level errors the form can render inline.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// Submission is the raw form payload for a new medication request.
// RequestSource carries the originating channel identifier, not the
// display label.
type Submission struct {
	Name          string `json:"name"`
	EnrolleeID    string `json:"enrolleeId"`
	Scheme        string `json:"scheme"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Diagnosis     string `json:"diagnosis"`
	Medications   string `json:"medications"`
	RequestSource string `json:"requestSource"`
}

// Request source identifiers accepted on intake.
const (
	SourceContactCenter = "contactCenter"
	SourceTelemedicine  = "telemedicine"
)

// FieldErrors maps a field name to its user-facing message. A nil or empty
// map means the submission passed.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation: ok"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	return "validation: invalid fields " + strings.Join(fields, ", ")
}

// Validate applies the intake rules. Diagnosis and medications are
// optional; everything else is required with the minimum lengths the form
// enforces. All failing fields are reported at once.
func Validate(s Submission) FieldErrors {
	errs := FieldErrors{}

	if utf8.RuneCountInString(strings.TrimSpace(s.Name)) < 2 {
		errs["name"] = "Name must be at least 2 characters"
	}
	if utf8.RuneCountInString(strings.TrimSpace(s.EnrolleeID)) < 3 {
		errs["enrolleeId"] = "Enrollee ID is required"
	}
	if utf8.RuneCountInString(strings.TrimSpace(s.Scheme)) < 2 {
		errs["scheme"] = "Scheme/Plan is required"
	}
	if !phonePattern.MatchString(s.Phone) {
		errs["phone"] = "Enter a valid phone number"
	}
	if utf8.RuneCountInString(strings.TrimSpace(s.Address)) < 5 {
		errs["address"] = "Address is required"
	}
	switch s.RequestSource {
	case SourceContactCenter, SourceTelemedicine:
	default:
		errs["requestSource"] = "Select how this request was received"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
