package views

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/careflow/medtrack/internal/domain/medication"
)

func fixture() []medication.Request {
	return []medication.Request{
		{
			ID: "a", Date: "2026-08-30", Name: "John Doe", EnrolleeID: "ENR-001",
			Address: "12 Harbor Lane", Diagnosis: "Hypertension", Medications: "Amlodipine 5mg",
			Source: medication.SourceTelemedicine, Status: medication.StatusPacked,
			Billed: true, BillingAmount: 1200,
		},
		{
			ID: "b", Date: "2026-08-12", Name: "Amina Bello", EnrolleeID: "ENR-002",
			Address: "4 Crescent Road", Diagnosis: "Diabetes", Medications: "Metformin 500mg",
			Source: medication.SourceAcute, Status: medication.StatusDelivered,
			Billed: false,
		},
		{
			ID: "c", Date: "2026-07-01", Name: "Chidi Okafor", EnrolleeID: "ENR-003",
			Address: "9 Palm Avenue", Diagnosis: "Asthma", Medications: "Salbutamol inhaler",
			Source: medication.SourceTelemedicine, Status: medication.StatusSentToPharmacy,
			Billed: true, BillingAmount: 800,
		},
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	got := Filter{Search: "john"}.Apply(fixture())
	if len(got) != 1 || got[0].Name != "John Doe" {
		t.Fatalf("search %q matched %v", "john", got)
	}
	got = Filter{Search: "METFORMIN"}.Apply(fixture())
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("search over medications matched %v", got)
	}
}

func TestFilterConjunction(t *testing.T) {
	f := Filter{Status: string(medication.StatusPacked), Source: string(medication.SourceTelemedicine)}
	got := f.Apply(fixture())
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("conjunctive filter matched %v", got)
	}

	f.Source = string(medication.SourceAcute)
	if got := f.Apply(fixture()); len(got) != 0 {
		t.Fatalf("contradictory filter matched %v", got)
	}
}

func TestFilterAllSentinelsDisable(t *testing.T) {
	f := Filter{Status: All, Source: All, Range: RangeAll}
	if got := f.Apply(fixture()); len(got) != 3 {
		t.Fatalf("All sentinels filtered to %d records", len(got))
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	f := Filter{Search: "enr", Status: All}
	once := f.Apply(fixture())
	twice := f.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %v vs %v", once, twice)
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := fixture()
	want := fixture()
	Filter{Search: "amina"}.Apply(in)
	if !reflect.DeepEqual(in, want) {
		t.Fatal("filter mutated its input")
	}
}

func TestDateRanges(t *testing.T) {
	now := func() time.Time {
		return time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		rng  DateRange
		want []string
	}{
		{RangeToday, nil},
		{RangeWeek, []string{"a"}},
		{RangeMonth, []string{"a", "b"}},
		{RangeAll, []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		got := Filter{Range: tc.rng, Now: now}.Apply(fixture())
		var ids []string
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Errorf("range %q: got %v want %v", tc.rng, ids, tc.want)
		}
	}
}

func TestUnparseableDateExcludedFromBoundedRange(t *testing.T) {
	in := []medication.Request{{ID: "x", Date: "soon"}}
	if got := (Filter{Range: RangeMonth}).Apply(in); len(got) != 0 {
		t.Fatalf("unparseable date passed bounded range: %v", got)
	}
	if got := (Filter{Range: RangeAll}).Apply(in); len(got) != 1 {
		t.Fatal("unbounded range should not inspect dates")
	}
}

func TestSummarizeEmptyListIsAllZeros(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.CompletionRate != 0 || s.AverageBilled != 0 {
		t.Fatalf("empty summary not zeroed: %+v", s)
	}
	if len(s.StatusCounts) != len(medication.Statuses()) {
		t.Fatalf("status counts missing enum members: %v", s.StatusCounts)
	}
	for st, n := range s.StatusCounts {
		if n != 0 {
			t.Fatalf("status %q counted %d on empty input", st, n)
		}
	}
}

func TestStatusCountsPartitionTotal(t *testing.T) {
	s := Summarize(fixture())
	sum := 0
	for _, n := range s.StatusCounts {
		sum += n
	}
	if sum != s.Total {
		t.Fatalf("status counts sum to %d, total is %d", sum, s.Total)
	}
}

func TestSummarizePackedAndDelivered(t *testing.T) {
	in := []medication.Request{
		{ID: "a", Status: medication.StatusPacked},
		{ID: "b", Status: medication.StatusDelivered},
	}
	s := Summarize(in)
	if s.Total != 2 || s.Delivered != 1 || s.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	for st, n := range s.StatusCounts {
		want := 0
		if st == string(medication.StatusPacked) || st == string(medication.StatusDelivered) {
			want = 1
		}
		if n != want {
			t.Fatalf("status %q counted %d, want %d", st, n, want)
		}
	}
	if s.CompletionRate != 50.0 {
		t.Fatalf("completion rate = %v, want 50.0", s.CompletionRate)
	}
}

func TestSummarizeBillingAggregates(t *testing.T) {
	s := Summarize(fixture())
	if s.Billed != 2 || s.Unbilled != 1 {
		t.Fatalf("billed=%d unbilled=%d", s.Billed, s.Unbilled)
	}
	if s.Revenue != 2000 {
		t.Fatalf("revenue = %v", s.Revenue)
	}
	if s.AverageBilled != 1000 {
		t.Fatalf("average billed = %v", s.AverageBilled)
	}
}

func TestSummarizeRevenueIncludesUnbilledAmounts(t *testing.T) {
	in := []medication.Request{
		{Billed: true, BillingAmount: 1000},
		{Billed: false, BillingAmount: 500},
	}
	s := Summarize(in)
	if s.Revenue != 1500 {
		t.Fatalf("revenue = %v, want 1500", s.Revenue)
	}
	if s.AverageBilled != 1500 {
		t.Fatalf("average billed = %v, want 1500", s.AverageBilled)
	}
}

func TestCompletionRateRoundsToOneDecimal(t *testing.T) {
	in := []medication.Request{
		{Status: medication.StatusDelivered},
		{Status: medication.StatusPacked},
		{Status: medication.StatusSentToPharmacy},
	}
	if s := Summarize(in); s.CompletionRate != 33.3 {
		t.Fatalf("completion rate = %v, want 33.3", s.CompletionRate)
	}
}

func TestExportCSVShape(t *testing.T) {
	in := fixture()[:2]
	out := ExportCSV(in)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "Date,Name,Enrollee ID,Address,Diagnosis,Medications,Source,Status,Billed" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	for i, want := range []string{"Yes", "No"} {
		cols := strings.Split(lines[i+1], ",")
		if len(cols) != 9 {
			t.Fatalf("row %d has %d columns", i+1, len(cols))
		}
		if cols[8] != want {
			t.Fatalf("row %d billed column = %q, want %q", i+1, cols[8], want)
		}
	}
}

func TestExportCSVQuotesEmbeddedCommas(t *testing.T) {
	in := []medication.Request{{
		Date: "2026-08-30", Name: "Doe, John", Medications: "Amlodipine 5mg",
		Source: medication.SourceAcute, Status: medication.StatusNotSorted,
	}}
	lines := strings.Split(ExportCSV(in), "\n")
	if !strings.Contains(lines[1], `"Doe, John"`) {
		t.Fatalf("embedded comma not quoted: %q", lines[1])
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	if got := ExportFilename(now); got != "medication-requests-2026-09-01.csv" {
		t.Fatalf("filename = %q", got)
	}
}
