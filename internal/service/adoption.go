package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

// AdoptionStore is the slice of the store AdoptionService reads and writes.
type AdoptionStore interface {
	repository.PetRepository
	repository.UserRepository
	repository.NotificationRepository
	repository.AdoptionRepository
}

// AdoptionService moves pets between Available and Adopted.
//
// STATE MACHINE (per pet):
//
//	Available ──Adopt──▶ Adopted{by user} ──Unadopt──▶ Available
//
// The checks run here so each failure gets its own error; the writes run in
// one store transaction (AdoptionRepository.Commit/Release). Commit only
// flips a pet that is still available, so a concurrent adopter that passed
// the checks still loses with a Conflict. The owner notification happens
// after the commit and can never undo it.
type AdoptionService struct {
	store    AdoptionStore
	notifier notifier
	logger   *slog.Logger
}

// NewAdoptionService creates an AdoptionService. publisher may be nil.
func NewAdoptionService(store AdoptionStore, publisher Publisher, logger *slog.Logger) *AdoptionService {
	return &AdoptionService{
		store:    store,
		notifier: notifier{notes: store, publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// AdoptResult is the stored adoption and the pet as it is after adopting.
type AdoptResult struct {
	Adoption *model.Adoption
	Pet      *model.Pet
}

// Adopt records that userID adopts petID. Preconditions, in order:
// the pet exists, is not adopted, is not the user's own listing, and the
// user exists.
func (s *AdoptionService) Adopt(ctx context.Context, userID, petID string) (*AdoptResult, error) {
	if err := required(field{"userId", userID}, field{"petId", petID}); err != nil {
		return nil, err
	}

	pet, err := s.store.GetPetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet.State.IsAdopted() {
		return nil, apperror.ConflictMessage("Pet is already adopted")
	}
	if pet.OwnerID == userID {
		return nil, apperror.ConflictMessage("You cannot adopt your own pet")
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, userNotFound(err)
	}

	adoption := &model.Adoption{UserID: userID, PetID: petID}
	adopted, err := s.store.Commit(ctx, adoption)
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("adoption failed",
				slog.String("userID", userID),
				slog.String("petID", petID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("adopting pet: %w", err)
	}

	s.logger.Info("pet adopted",
		slog.String("adoptionID", adoption.ID),
		slog.String("userID", userID),
		slog.String("petID", petID),
	)

	if pet.OwnerID != "" {
		s.notifier.notify(ctx, pet.OwnerID,
			fmt.Sprintf("%s adopted your pet %s!", user.Username, pet.Name))
	}

	return &AdoptResult{Adoption: adoption, Pet: adopted}, nil
}

// Unadopt reverses the adoption of petID by userID. Only the user named on
// the adoption record can reverse it. The returned pet is nil if the pet
// record no longer exists.
func (s *AdoptionService) Unadopt(ctx context.Context, userID, petID string) (*model.Pet, error) {
	if err := required(field{"userId", userID}, field{"petId", petID}); err != nil {
		return nil, err
	}

	if err := s.store.Release(ctx, userID, petID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(
				"Adoption record not found - you may not be the one who adopted this pet")
		}
		return nil, fmt.Errorf("unadopting pet: %w", err)
	}

	s.logger.Info("pet unadopted",
		slog.String("userID", userID),
		slog.String("petID", petID),
	)

	pet, err := s.store.GetPetByID(ctx, petID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reloading pet: %w", err)
	}
	return pet, nil
}

// List returns every adoption, newest first.
func (s *AdoptionService) List(ctx context.Context) ([]model.AdoptionDetail, error) {
	list, err := s.store.ListAdoptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing adoptions: %w", err)
	}
	return list, nil
}

// ListByUser returns the user's adoptions, newest first.
func (s *AdoptionService) ListByUser(ctx context.Context, userID string) ([]model.AdoptionDetail, error) {
	if err := required(field{"userId", userID}); err != nil {
		return nil, err
	}
	list, err := s.store.ListAdoptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing adoptions of user %s: %w", userID, err)
	}
	return list, nil
}
