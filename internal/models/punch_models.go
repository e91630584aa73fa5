package models

import "time"

// PunchKind records how a punch entered the ledger.
type PunchKind string

const (
	PunchKindQR     PunchKind = "qr"
	PunchKindManual PunchKind = "manual"
)

// IsValid reports whether k is one of the known punch kinds.
func (k PunchKind) IsValid() bool {
	switch k {
	case PunchKindQR, PunchKindManual:
		return true
	default:
		return false
	}
}

// Punch is one visit in a customer's ledger. Punches are never updated.
type Punch struct {
	ID         int64     `json:"id" db:"id"`
	CustomerID int64     `json:"customer_id" db:"customer_id"`
	Kind       PunchKind `json:"kind" db:"kind"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}
