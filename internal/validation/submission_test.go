package validation

import "testing"

func valid() Submission {
	return Submission{
		Name:          "John Doe",
		EnrolleeID:    "ENR-001",
		Scheme:        "Gold Plan",
		Phone:         "08031234567",
		Address:       "12 Harbor Lane, Lagos",
		Diagnosis:     "Hypertension",
		Medications:   "Amlodipine 5mg",
		RequestSource: SourceTelemedicine,
	}
}

func TestValidSubmissionPasses(t *testing.T) {
	if errs := Validate(valid()); errs != nil {
		t.Fatalf("valid submission rejected: %v", errs)
	}
}

func TestOptionalFieldsMayBeEmpty(t *testing.T) {
	s := valid()
	s.Diagnosis = ""
	s.Medications = ""
	if errs := Validate(s); errs != nil {
		t.Fatalf("optional fields rejected: %v", errs)
	}
}

func TestFieldRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"short name", func(s *Submission) { s.Name = "J" }, "name"},
		{"short enrollee id", func(s *Submission) { s.EnrolleeID = "ab" }, "enrolleeId"},
		{"short scheme", func(s *Submission) { s.Scheme = "x" }, "scheme"},
		{"short phone", func(s *Submission) { s.Phone = "080312345" }, "phone"},
		{"long phone", func(s *Submission) { s.Phone = "0803123456789012" }, "phone"},
		{"non numeric phone", func(s *Submission) { s.Phone = "0803-123-4567" }, "phone"},
		{"short address", func(s *Submission) { s.Address = "Apt" }, "address"},
		{"unknown source", func(s *Submission) { s.RequestSource = "walkIn" }, "requestSource"},
		{"empty source", func(s *Submission) { s.RequestSource = "" }, "requestSource"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)
			errs := Validate(s)
			if errs == nil {
				t.Fatal("expected a validation error")
			}
			if _, ok := errs[tc.field]; !ok {
				t.Fatalf("missing error for %q, got %v", tc.field, errs)
			}
			if len(errs) != 1 {
				t.Fatalf("unexpected extra errors: %v", errs)
			}
		})
	}
}

func TestAllFailuresReportedTogether(t *testing.T) {
	errs := Validate(Submission{})
	for _, field := range []string{"name", "enrolleeId", "scheme", "phone", "address", "requestSource"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("missing error for %q: %v", field, errs)
		}
	}
}
