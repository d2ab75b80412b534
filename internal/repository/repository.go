// Package repository declares the storage interfaces the services depend on.
//
// Implementations live in subpackages (sqlstore, backed by sqlite or
// postgres). Services only ever see these interfaces, so tests swap in
// in-memory fakes.
package repository

import (
	"context"

	"github.com/petmatch/petmatch/internal/model"
)

type UserRepository interface {
	// Create inserts a new user, filling ID and timestamps. Duplicate
	// username or email → apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	// GetUserByID returns the user with adopted pets and notifications loaded.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateProfile replaces profile, preferences, phone and address.
	UpdateProfile(ctx context.Context, user *model.User) error
}

type NotificationRepository interface {
	// AppendNotification adds an entry to userID's log. Unknown user →
	// apperror.ErrNotFound.
	AppendNotification(ctx context.Context, userID, message string) (*model.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string) (int64, error)
}

type PetRepository interface {
	CreatePet(ctx context.Context, pet *model.Pet) error
	GetPetByID(ctx context.Context, id string) (*model.Pet, error)
	// FindPets returns every pet matching filter, in insertion order.
	FindPets(ctx context.Context, filter PetFilter) ([]model.Pet, error)
	// SetPetOwner is the legacy owner repair write.
	SetPetOwner(ctx context.Context, petID, ownerID string) error
}

// AdoptionRepository applies the adoption state transitions. Each method
// is one transaction over the adoption record, the pet's state and the
// user's adopted list.
type AdoptionRepository interface {
	// Commit stores adoption, marks the pet adopted by adoption.UserID and
	// appends the pet to the user's list. If the pet is no longer available
	// it returns apperror.ErrConflict and writes nothing.
	Commit(ctx context.Context, adoption *model.Adoption) (*model.Pet, error)
	// Release deletes the (userID, petID) adoption record, then resets the
	// pet and removes it from the user's list. No record →
	// apperror.ErrNotFound and nothing written. A missing pet or user row
	// does not fail the release.
	Release(ctx context.Context, userID, petID string) error
	ListAdoptions(ctx context.Context) ([]model.AdoptionDetail, error)
	ListAdoptionsByUser(ctx context.Context, userID string) ([]model.AdoptionDetail, error)
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	// ListMessagesForUser returns messages sent or received by userID,
	// newest first, with references resolved.
	ListMessagesForUser(ctx context.Context, userID string) ([]model.MessageView, error)
}

// Store is everything the server needs from one database.
type Store interface {
	UserRepository
	NotificationRepository
	PetRepository
	AdoptionRepository
	MessageRepository
	Ping(ctx context.Context) error
	Close() error
}
