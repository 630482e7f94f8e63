package views

import (
	"math"

	"github.com/careflow/medtrack/internal/domain/medication"
)

// Summary aggregates a record list for the dashboard cards.
type Summary struct {
	Total          int            `json:"total"`
	Delivered      int            `json:"delivered"`
	Billed         int            `json:"billed"`
	Unbilled       int            `json:"unbilled"`
	Pending        int            `json:"pending"`
	Revenue        float64        `json:"revenue"`
	CompletionRate float64        `json:"completionRate"`
	AverageBilled  float64        `json:"averageBilled"`
	StatusCounts   map[string]int `json:"statusCounts"`
}

// Summarize computes the aggregate view. Pending counts records still in
// the fulfilment pipeline (Not Sorted, Packed, Sent to Pharmacy). Revenue
// sums billing amounts across every record, billed or not, and
// AverageBilled divides it by the billed count. CompletionRate is
// Delivered over Total as a
// percentage rounded to one decimal. Empty input yields all zeros, with
// every status present in StatusCounts at zero.
func Summarize(reqs []medication.Request) Summary {
	s := Summary{StatusCounts: make(map[string]int, len(medication.Statuses()))}
	for _, st := range medication.Statuses() {
		s.StatusCounts[string(st)] = 0
	}
	s.Total = len(reqs)

	for _, req := range reqs {
		s.StatusCounts[string(req.Status)]++

		switch req.Status {
		case medication.StatusDelivered:
			s.Delivered++
		case medication.StatusNotSorted, medication.StatusPacked, medication.StatusSentToPharmacy:
			s.Pending++
		}

		if req.Billed {
			s.Billed++
		} else {
			s.Unbilled++
		}
		s.Revenue += req.BillingAmount
	}

	if s.Total > 0 {
		s.CompletionRate = math.Round(float64(s.Delivered)/float64(s.Total)*1000) / 10
	}
	if s.Billed > 0 {
		s.AverageBilled = s.Revenue / float64(s.Billed)
	}
	return s
}
