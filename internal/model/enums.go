package model

// HomeType describes housing. Users state one of Apartment, House or Farm;
// pets may additionally require Any.
type HomeType string

const (
	HomeApartment HomeType = "Apartment"
	HomeHouse     HomeType = "House"
	HomeFarm      HomeType = "Farm"
	HomeAny       HomeType = "Any"
)

// Level is the shared Low/Medium/High scale used for a pet's care and
// activity level and for a user's free time and desired activity.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// PetExperience is how much experience an adopter has with pets.
type PetExperience string

const (
	ExperienceNone        PetExperience = "None"
	ExperienceBeginner    PetExperience = "Beginner"
	ExperienceExperienced PetExperience = "Experienced"
)

// AgeBand is an adopter's preferred pet age.
type AgeBand string

const (
	AgePuppyKitten AgeBand = "Puppy/Kitten"
	AgeAdult       AgeBand = "Adult"
	AgeSenior      AgeBand = "Senior"
	AgeAny         AgeBand = "Any"
)

func (h HomeType) ValidForUser() bool {
	switch h {
	case HomeApartment, HomeHouse, HomeFarm:
		return true
	}
	return false
}

func (h HomeType) ValidForPet() bool {
	return h == HomeAny || h.ValidForUser()
}

func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

func (e PetExperience) Valid() bool {
	switch e {
	case ExperienceNone, ExperienceBeginner, ExperienceExperienced:
		return true
	}
	return false
}

func (a AgeBand) Valid() bool {
	switch a {
	case AgePuppyKitten, AgeAdult, AgeSenior, AgeAny:
		return true
	}
	return false
}
