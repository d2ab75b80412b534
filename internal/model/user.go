// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. The same account can both list pets (as an
// owner) and adopt them.
//
// WHY POINTERS FOR Profile AND Preferences?
// A nil sub-record means "the user never said". The recommendation builder
// treats that as fully permissive, which is different from a zero-valued
// record (hasKids=false, empty strings) that a client sent on purpose.
type User struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"` // bcrypt, never serialized
	Phone         string         `json:"phone"`
	Address       string         `json:"address"`
	Profile       *Profile       `json:"profile"`
	Preferences   *Preferences   `json:"preferences"`
	AdoptedPets   []string       `json:"adoptedPets"`
	Notifications []Notification `json:"notifications"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Profile is the adopter's living situation, the main matching input.
type Profile struct {
	HomeType      HomeType      `json:"homeType"`
	HasKids       bool          `json:"hasKids"`
	FreeTime      Level         `json:"freeTime"`
	PetExperience PetExperience `json:"petExperience"`
}

// Preferences is what the adopter is looking for.
type Preferences struct {
	PetType       []string `json:"petType"`
	PreferredAge  AgeBand  `json:"preferredAge"`
	ActivityLevel Level    `json:"activityLevel"`
}

// DefaultProfile is the profile a freshly registered user starts with.
func DefaultProfile() *Profile {
	return &Profile{
		HomeType:      HomeApartment,
		HasKids:       false,
		FreeTime:      LevelMedium,
		PetExperience: ExperienceNone,
	}
}

// DefaultPreferences is the preferences record a freshly registered user
// starts with.
func DefaultPreferences() *Preferences {
	return &Preferences{
		PetType:       []string{},
		PreferredAge:  AgeAny,
		ActivityLevel: LevelMedium,
	}
}

// HasAdopted reports whether petID is in the user's adopted list.
func (u *User) HasAdopted(petID string) bool {
	for _, id := range u.AdoptedPets {
		if id == petID {
			return true
		}
	}
	return false
}

// Summary returns the public identity of the user.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserSummary is the public slice of a user embedded in other resources
// (message sender/receiver, pet owner, adopter).
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserDetail is a user with the adopted pet ids resolved to pet records.
type UserDetail struct {
	*User
	AdoptedPetDetails []Pet `json:"adoptedPetDetails"`
}
