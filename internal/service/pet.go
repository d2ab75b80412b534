package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/recommend"
	"github.com/petmatch/petmatch/internal/repository"
)

// DefaultBreed is stored when a listing names no breed.
const DefaultBreed = "Mixed"

// PetStore is the slice of the store PetService reads and writes.
type PetStore interface {
	repository.PetRepository
	repository.UserRepository
}

// PetService lists, creates and matches pets.
type PetService struct {
	store        PetStore
	legacyRepair bool
	logger       *slog.Logger
}

// NewPetService creates a PetService. legacyRepair turns on the owner
// repair in Get for listings stored without an owner.
func NewPetService(store PetStore, legacyRepair bool, logger *slog.Logger) *PetService {
	return &PetService{
		store:        store,
		legacyRepair: legacyRepair,
		logger:       logger,
	}
}

// CreatePetInput is a new listing. Age is a pointer so a missing age can be
// told apart from a newborn; KidFriendly likewise defaults to true.
type CreatePetInput struct {
	Name          string
	Type          string
	Breed         string
	Age           *float64
	Location      string
	Description   string
	Image         string
	HomeType      model.HomeType
	CareLevel     model.Level
	ActivityLevel model.Level
	KidFriendly   *bool
	ContactEmail  string
	ContactPhone  string
	OwnerID       string
}

// List returns every pet that has not been adopted.
func (s *PetService) List(ctx context.Context) ([]model.Pet, error) {
	return s.find(ctx, repository.AvailablePets())
}

// Search returns non-adopted pets whose name contains term, ignoring case.
// term is matched literally.
func (s *PetService) Search(ctx context.Context, term string) ([]model.Pet, error) {
	if err := required(field{"name", term}); err != nil {
		return nil, err
	}
	f := repository.AvailablePets()
	f.NameContains = term
	return s.find(ctx, f)
}

// FilterByType returns non-adopted pets of exactly the given type.
func (s *PetService) FilterByType(ctx context.Context, petType string) ([]model.Pet, error) {
	if err := required(field{"type", petType}); err != nil {
		return nil, err
	}
	f := repository.AvailablePets()
	f.Types = []string{petType}
	return s.find(ctx, f)
}

// Recommendations returns the non-adopted pets that suit the user's stored
// profile and preferences.
func (s *PetService) Recommendations(ctx context.Context, userID string) ([]model.Pet, error) {
	if err := required(field{"userId", userID}); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, userNotFound(err)
	}
	return s.find(ctx, recommend.ForUser(user))
}

// Get returns one pet with its owner resolved.
//
// LEGACY OWNER REPAIR:
// Listings created before pets carried an owner have none. When repair is
// on, such a pet is matched to the user whose email equals the listing's
// contactEmail, and the match is saved so the lookup happens once. No match
// leaves the owner empty.
func (s *PetService) Get(ctx context.Context, id string) (*model.Pet, error) {
	if err := required(field{"id", id}); err != nil {
		return nil, err
	}
	pet, err := s.store.GetPetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if pet.OwnerID == "" {
		if s.legacyRepair {
			s.repairOwner(ctx, pet)
		}
		return pet, nil
	}

	owner, err := s.store.GetUserByID(ctx, pet.OwnerID)
	switch {
	case err == nil:
		pet.Owner = owner.Summary()
	case errors.Is(err, apperror.ErrNotFound):
		// owner account gone; the id is still returned
	default:
		return nil, fmt.Errorf("resolving owner of pet %s: %w", pet.ID, err)
	}
	return pet, nil
}

// Create validates and stores a new listing.
func (s *PetService) Create(ctx context.Context, in CreatePetInput) (*model.Pet, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	in.Location = strings.TrimSpace(in.Location)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)

	if err := required(
		field{"name", in.Name},
		field{"type", in.Type},
		field{"location", in.Location},
		field{"contactEmail", in.ContactEmail},
		field{"contactPhone", in.ContactPhone},
		field{"owner", in.OwnerID},
	); err != nil {
		return nil, err
	}
	if in.Age == nil {
		return nil, apperror.ValidationFailed("age", "age is required")
	}
	if *in.Age < 0 {
		return nil, apperror.ValidationFailed("age", "age must not be negative")
	}

	pet := &model.Pet{
		Name:          in.Name,
		Type:          in.Type,
		Breed:         strings.TrimSpace(in.Breed),
		Age:           *in.Age,
		Location:      in.Location,
		Description:   in.Description,
		Image:         in.Image,
		HomeType:      in.HomeType,
		CareLevel:     in.CareLevel,
		ActivityLevel: in.ActivityLevel,
		KidFriendly:   true,
		ContactEmail:  in.ContactEmail,
		ContactPhone:  in.ContactPhone,
		OwnerID:       in.OwnerID,
	}
	if in.KidFriendly != nil {
		pet.KidFriendly = *in.KidFriendly
	}
	if err := applyPetDefaults(pet); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, in.OwnerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Owner not found")
		}
		return nil, fmt.Errorf("checking owner: %w", err)
	}

	if err := s.store.CreatePet(ctx, pet); err != nil {
		s.logger.Error("failed to create pet",
			slog.String("name", pet.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating pet: %w", err)
	}

	s.logger.Info("pet listed",
		slog.String("petID", pet.ID),
		slog.String("name", pet.Name),
		slog.String("ownerID", pet.OwnerID),
	)
	return pet, nil
}

func (s *PetService) find(ctx context.Context, f repository.PetFilter) ([]model.Pet, error) {
	pets, err := s.store.FindPets(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("finding pets: %w", err)
	}
	return pets, nil
}

func (s *PetService) repairOwner(ctx context.Context, pet *model.Pet) {
	if pet.ContactEmail == "" {
		return
	}
	owner, err := s.store.GetUserByEmail(ctx, pet.ContactEmail)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("legacy owner lookup failed",
				slog.String("petID", pet.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := s.store.SetPetOwner(ctx, pet.ID, owner.ID); err != nil {
		s.logger.Warn("legacy owner not saved",
			slog.String("petID", pet.ID),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("legacy pet owner repaired",
			slog.String("petID", pet.ID),
			slog.String("ownerID", owner.ID),
		)
	}
	pet.OwnerID = owner.ID
	pet.Owner = owner.Summary()
}

func applyPetDefaults(p *model.Pet) error {
	if p.Breed == "" {
		p.Breed = DefaultBreed
	}
	if p.HomeType == "" {
		p.HomeType = model.HomeAny
	}
	if p.CareLevel == "" {
		p.CareLevel = model.LevelMedium
	}
	if p.ActivityLevel == "" {
		p.ActivityLevel = model.LevelMedium
	}

	switch {
	case !p.HomeType.ValidForPet():
		return apperror.ValidationFailed("homeType",
			fmt.Sprintf("`%s` is not a valid home type", p.HomeType))
	case !p.CareLevel.Valid():
		return apperror.ValidationFailed("careLevel",
			fmt.Sprintf("`%s` is not a valid care level", p.CareLevel))
	case !p.ActivityLevel.Valid():
		return apperror.ValidationFailed("activityLevel",
			fmt.Sprintf("`%s` is not a valid activity level", p.ActivityLevel))
	}
	return nil
}
