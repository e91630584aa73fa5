package models

import "time"

// Customer is a punch card holder. Slug is the public token printed in the card's
// URL and QR code; it never changes once issued.
type Customer struct {
	ID          int64     `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Slug        string    `json:"slug" db:"slug"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CustomerSummary is a customer row for admin listings, with the punch total
// counted from the ledger at query time.
type CustomerSummary struct {
	Customer
	TotalPunches int `json:"total_punches"`
}

// CustomerFilters defines the available filters for querying customers.
// Search matches display name or slug, case-insensitively.
type CustomerFilters struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
