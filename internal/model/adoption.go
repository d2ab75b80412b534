package model

import "time"

// AdoptionStatus is the state of an adoption record.
//
// Only AdoptionCompleted is ever produced. Pending and approved are reserved
// for an approval workflow that does not exist yet; nothing writes them.
type AdoptionStatus string

const (
	AdoptionPending   AdoptionStatus = "pending"
	AdoptionApproved  AdoptionStatus = "approved"
	AdoptionCompleted AdoptionStatus = "completed"
)

// Adoption records that a user adopted a pet. At most one exists per pet;
// unadopting deletes it, so no history is kept.
type Adoption struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	PetID        string         `json:"petId"`
	AdoptionDate time.Time      `json:"adoptionDate"`
	Status       AdoptionStatus `json:"status"`
}

// AdoptionDetail is an adoption with its user and pet resolved. Either may
// be nil if the referenced record no longer exists.
type AdoptionDetail struct {
	Adoption
	User *UserSummary `json:"user"`
	Pet  *Pet         `json:"pet"`
}
