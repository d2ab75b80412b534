// Package recommend turns an adopter's profile and preferences into the pet
// filter used for recommendations.
//
// The clauses are conjunctive and each one only narrows the result:
//
//	base      never adopted pets
//	type      pet.type ∈ preferences.petType        (when non-empty)
//	kids      pet.kidFriendly                       (when profile.hasKids)
//	home      widening by housing capacity          (Apartment ⊂ House ⊂ Farm)
//	activity  widening by owner free time           (Low ⊂ Medium ⊂ High)
//	age       Puppy/Kitten ≤ 1 < Adult ≤ 7 < Senior
//
// An absent profile or preferences record contributes no clause: "no stated
// preference" must never mean "match nothing".
package recommend

import (
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

// Age band boundaries, in years.
const (
	PuppyMaxAge = 1.0
	AdultMaxAge = 7.0
)

var homeTypesFor = map[model.HomeType][]model.HomeType{
	model.HomeApartment: {model.HomeApartment, model.HomeAny},
	model.HomeHouse:     {model.HomeApartment, model.HomeHouse, model.HomeAny},
	model.HomeFarm:      {model.HomeApartment, model.HomeHouse, model.HomeFarm, model.HomeAny},
}

var activityFor = map[model.Level][]model.Level{
	model.LevelLow:    {model.LevelLow},
	model.LevelMedium: {model.LevelLow, model.LevelMedium},
	model.LevelHigh:   {model.LevelLow, model.LevelMedium, model.LevelHigh},
}

// Build returns the filter selecting pets that suit a user with the given
// profile and preferences. Either argument may be nil.
func Build(profile *model.Profile, prefs *model.Preferences) repository.PetFilter {
	f := repository.AvailablePets()

	if prefs != nil {
		if len(prefs.PetType) > 0 {
			f.Types = append([]string(nil), prefs.PetType...)
		}
		applyAgeBand(&f, prefs.PreferredAge)
	}

	if profile != nil {
		f.KidFriendlyOnly = profile.HasKids
		if homes, ok := homeTypesFor[profile.HomeType]; ok {
			f.HomeTypes = append([]model.HomeType(nil), homes...)
		}
		if levels, ok := activityFor[profile.FreeTime]; ok {
			f.ActivityLevels = append([]model.Level(nil), levels...)
		}
	}

	return f
}

// ForUser is Build over the user's stored sub-records.
func ForUser(u *model.User) repository.PetFilter {
	return Build(u.Profile, u.Preferences)
}

func applyAgeBand(f *repository.PetFilter, band model.AgeBand) {
	puppyMax, adultMax := PuppyMaxAge, AdultMaxAge

	switch band {
	case model.AgePuppyKitten:
		f.MaxAgeInclusive = &puppyMax
	case model.AgeAdult:
		f.MinAgeExclusive = &puppyMax
		f.MaxAgeInclusive = &adultMax
	case model.AgeSenior:
		f.MinAgeExclusive = &adultMax
	}
	// Any, empty and unknown bands leave age unconstrained.
}
