package medication

import (
	"errors"
	"fmt"
	"time"
)

// ErrDecode wraps all decode failures so callers can branch on the class.
var ErrDecode = errors.New("medication: decode failed")

// Decode validates a raw document from the store boundary and produces the
// canonical Request. Defaulting rules are part of the contract: a missing
// string field decodes to "", a missing or unrecognized status to Not Sorted,
// a missing billed flag to false, a missing file reference to "". A field
// that is present with the wrong type, or a negative billing amount, is a
// decode error, never a silent pass-through.
func Decode(id string, fields map[string]any, createdAt, updatedAt time.Time) (Request, error) {
	if id == "" {
		return Request{}, fmt.Errorf("%w: missing document id", ErrDecode)
	}

	req := Request{
		ID:        id,
		Status:    StatusNotSorted,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"date", &req.Date},
		{"name", &req.Name},
		{"enrolleeId", &req.EnrolleeID},
		{"scheme", &req.Scheme},
		{"phone", &req.Phone},
		{"address", &req.Address},
		{"diagnosis", &req.Diagnosis},
		{"medications", &req.Medications},
		{"fileUrl", &req.FileURL},
	}
	for _, f := range strs {
		v, err := stringField(fields, f.key)
		if err != nil {
			return Request{}, err
		}
		*f.dst = v
	}

	src, err := stringField(fields, "source")
	if err != nil {
		return Request{}, err
	}
	req.Source = Source(src)

	if raw, ok := fields["status"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return Request{}, fmt.Errorf("%w: %s: status is %T, want string", ErrDecode, id, raw)
		}
		if st := Status(s); st.Valid() {
			req.Status = st
		}
	}

	if raw, ok := fields["billed"]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return Request{}, fmt.Errorf("%w: %s: billed is %T, want bool", ErrDecode, id, raw)
		}
		req.Billed = b
	}

	if raw, ok := fields["billingAmount"]; ok && raw != nil {
		amount, err := numberField(id, "billingAmount", raw)
		if err != nil {
			return Request{}, err
		}
		if amount < 0 {
			return Request{}, fmt.Errorf("%w: %s: negative billingAmount %v", ErrDecode, id, amount)
		}
		req.BillingAmount = amount
	}

	return req, nil
}

func stringField(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrDecode, key, raw)
	}
	return s, nil
}

// numberField accepts the numeric shapes JSON decoding produces.
func numberField(id, key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: %s: %s is %T, want number", ErrDecode, id, key, raw)
}
