// Package medication defines the canonical medication request entity.
package medication

import "time"

// Status represents the fulfillment state of a medication request.
type Status string

const (
	StatusNotSorted       Status = "Not Sorted"
	StatusPacked          Status = "Packed"
	StatusSentToPharmacy  Status = "Sent to Pharmacy"
	StatusSentForDelivery Status = "Sent for Delivery"
	StatusDelivered       Status = "Delivered"
	StatusReturned        Status = "Returned"
)

// Statuses returns the full enumeration in progression order.
// Returned is terminal and reachable from any state.
func Statuses() []Status {
	return []Status{
		StatusNotSorted,
		StatusPacked,
		StatusSentToPharmacy,
		StatusSentForDelivery,
		StatusDelivered,
		StatusReturned,
	}
}

// Valid reports whether s is a member of the enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusNotSorted, StatusPacked, StatusSentToPharmacy,
		StatusSentForDelivery, StatusDelivered, StatusReturned:
		return true
	}
	return false
}

// Source identifies the channel a request originated from.
type Source string

const (
	SourceTelemedicine Source = "Telemedicine"
	SourceAcute        Source = "Acute"
)

// Request is the canonical medication request record. Every field is
// guaranteed populated after Decode: no missing strings, status always a
// member of the enumeration, billed always set.
type Request struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"` // calendar date, YYYY-MM-DD
	Name          string    `json:"name"`
	EnrolleeID    string    `json:"enrolleeId"`
	Scheme        string    `json:"scheme"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	Diagnosis     string    `json:"diagnosis"`
	Medications   string    `json:"medications"`
	Source        Source    `json:"source"`
	FileURL       string    `json:"fileUrl"`
	Status        Status    `json:"status"`
	Billed        bool      `json:"billed"`
	BillingAmount float64   `json:"billingAmount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
