package models

import "github.com/google/uuid"

// Listing statuses the engine cares about. The catalog owns the rest.
const (
	ListingStatusActive = "active"
	ListingStatusSold   = "sold"
)

// Listing is the catalog row the engine references: only owner and status.
type Listing struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Title   string    `json:"title"`
	Status  string    `json:"status"`
}
