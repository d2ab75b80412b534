package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// PetStatus is the wire/storage name of a pet's adoption state.
type PetStatus string

const (
	PetAvailable PetStatus = "available"
	PetAdopted   PetStatus = "adopted"
)

// AdoptionState is a pet's adoption state as a single value: either
// Available, or Adopted by exactly one user. The zero value is Available.
//
// isAdopted, status and adoptedBy are all derived from it, so they cannot
// disagree.
type AdoptionState struct {
	adopter string
}

// Available is the state of a pet nobody has adopted.
func Available() AdoptionState { return AdoptionState{} }

// AdoptedBy is the state of a pet adopted by userID. An empty userID yields
// Available.
func AdoptedBy(userID string) AdoptionState { return AdoptionState{adopter: userID} }

func (s AdoptionState) IsAdopted() bool { return s.adopter != "" }

// Adopter returns the adopting user's id, or "" when available.
func (s AdoptionState) Adopter() string { return s.adopter }

func (s AdoptionState) Status() PetStatus {
	if s.IsAdopted() {
		return PetAdopted
	}
	return PetAvailable
}

// ParseAdoptionState rebuilds a state from its stored pair. It rejects the
// combinations the single-value form makes unrepresentable.
func ParseAdoptionState(status PetStatus, adoptedBy string) (AdoptionState, error) {
	switch status {
	case PetAvailable:
		if adoptedBy != "" {
			return AdoptionState{}, fmt.Errorf("model: available pet has adoptedBy %q", adoptedBy)
		}
		return Available(), nil
	case PetAdopted:
		if adoptedBy == "" {
			return AdoptionState{}, fmt.Errorf("model: adopted pet has no adoptedBy")
		}
		return AdoptedBy(adoptedBy), nil
	default:
		return AdoptionState{}, fmt.Errorf("model: unknown pet status %q", status)
	}
}

// Pet is a listed animal.
//
// OwnerID is empty only for legacy listings created before the owner
// reference existed; see the legacy owner repair in service.PetService.
type Pet struct {
	ID            string
	Name          string
	Type          string
	Breed         string
	Age           float64
	Location      string
	Description   string
	Image         string
	HomeType      HomeType
	CareLevel     Level
	ActivityLevel Level
	KidFriendly   bool
	ContactEmail  string
	ContactPhone  string
	OwnerID       string
	Owner         *UserSummary // resolved owner, set only by single-pet reads
	State         AdoptionState
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// petJSON is the wire shape of a Pet.
type petJSON struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Breed         string       `json:"breed"`
	Age           float64      `json:"age"`
	Location      string       `json:"location"`
	Description   string       `json:"description"`
	Image         string       `json:"image"`
	HomeType      HomeType     `json:"homeType"`
	CareLevel     Level        `json:"careLevel"`
	ActivityLevel Level        `json:"activityLevel"`
	KidFriendly   bool         `json:"kidFriendly"`
	ContactEmail  string       `json:"contactEmail"`
	ContactPhone  string       `json:"contactPhone"`
	Owner         *string      `json:"owner"`
	OwnerDetails  *UserSummary `json:"ownerDetails,omitempty"`
	IsAdopted     bool         `json:"isAdopted"`
	Status        PetStatus    `json:"status"`
	AdoptedBy     *string      `json:"adoptedBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func (p Pet) MarshalJSON() ([]byte, error) {
	out := petJSON{
		ID:            p.ID,
		Name:          p.Name,
		Type:          p.Type,
		Breed:         p.Breed,
		Age:           p.Age,
		Location:      p.Location,
		Description:   p.Description,
		Image:         p.Image,
		HomeType:      p.HomeType,
		CareLevel:     p.CareLevel,
		ActivityLevel: p.ActivityLevel,
		KidFriendly:   p.KidFriendly,
		ContactEmail:  p.ContactEmail,
		ContactPhone:  p.ContactPhone,
		OwnerDetails:  p.Owner,
		IsAdopted:     p.State.IsAdopted(),
		Status:        p.State.Status(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.OwnerID != "" {
		owner := p.OwnerID
		out.Owner = &owner
	}
	if by := p.State.Adopter(); by != "" {
		out.AdoptedBy = &by
	}
	return json.Marshal(out)
}

func (p *Pet) UnmarshalJSON(data []byte) error {
	var in petJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var adoptedBy string
	if in.AdoptedBy != nil {
		adoptedBy = *in.AdoptedBy
	}
	status := in.Status
	if status == "" {
		status = PetAvailable
	}
	state, err := ParseAdoptionState(status, adoptedBy)
	if err != nil {
		return err
	}
	*p = Pet{
		ID:            in.ID,
		Name:          in.Name,
		Type:          in.Type,
		Breed:         in.Breed,
		Age:           in.Age,
		Location:      in.Location,
		Description:   in.Description,
		Image:         in.Image,
		HomeType:      in.HomeType,
		CareLevel:     in.CareLevel,
		ActivityLevel: in.ActivityLevel,
		KidFriendly:   in.KidFriendly,
		ContactEmail:  in.ContactEmail,
		ContactPhone:  in.ContactPhone,
		Owner:         in.OwnerDetails,
		State:         state,
		CreatedAt:     in.CreatedAt,
		UpdatedAt:     in.UpdatedAt,
	}
	if in.Owner != nil {
		p.OwnerID = *in.Owner
	}
	return nil
}

// PetSummary is the slice of a pet embedded in messages.
type PetSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}
