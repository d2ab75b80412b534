package repository

import (
	"strings"

	"github.com/petmatch/petmatch/internal/model"
)

// PetFilter is a conjunctive predicate over pets. Every set field narrows
// the result; the zero value matches every pet.
//
// Stores translate it to a WHERE clause; Matches evaluates the same
// predicate in memory. The two must agree.
type PetFilter struct {
	ExcludeAdopted bool

	// Types, HomeTypes and ActivityLevels are membership clauses. nil means
	// unconstrained; a non-nil empty slice matches nothing.
	Types          []string
	HomeTypes      []model.HomeType
	ActivityLevels []model.Level

	// KidFriendlyOnly requires kidFriendly == true.
	KidFriendlyOnly bool

	// MinAgeExclusive and MaxAgeInclusive bound pet.age as (min, max].
	MinAgeExclusive *float64
	MaxAgeInclusive *float64

	// NameContains is a case-insensitive literal substring of pet.name.
	NameContains string
}

// AvailablePets matches every pet that has not been adopted.
func AvailablePets() PetFilter {
	return PetFilter{ExcludeAdopted: true}
}

// Matches reports whether p satisfies the filter.
func (f PetFilter) Matches(p model.Pet) bool {
	if f.ExcludeAdopted && p.State.IsAdopted() {
		return false
	}
	if f.Types != nil && !contains(f.Types, p.Type) {
		return false
	}
	if f.HomeTypes != nil && !contains(f.HomeTypes, p.HomeType) {
		return false
	}
	if f.ActivityLevels != nil && !contains(f.ActivityLevels, p.ActivityLevel) {
		return false
	}
	if f.KidFriendlyOnly && !p.KidFriendly {
		return false
	}
	if f.MinAgeExclusive != nil && !(p.Age > *f.MinAgeExclusive) {
		return false
	}
	if f.MaxAgeInclusive != nil && !(p.Age <= *f.MaxAgeInclusive) {
		return false
	}
	if f.NameContains != "" &&
		!strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
