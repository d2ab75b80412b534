package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

// AccountStore is the slice of the store AccountService reads and writes.
type AccountStore interface {
	repository.UserRepository
	repository.NotificationRepository
	repository.PetRepository
}

// AccountService handles registration, login and the user's own record.
//
// DEPENDENCIES (injected via NewAccountService):
//   - store      users, their notifications, and pets for adopted-pet details
//   - passwords  bcrypt hashing
//   - tokens     JWT issuing; nil disables tokens (AuthResult.Token stays "")
//   - logger     structured logging
type AccountService struct {
	store     AccountStore
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAccountService(
	store AccountStore,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can respond
// (and set a cookie) in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Phone    string
	Address  string
}

// ProfileUpdate carries the fields a profile update may replace. A nil
// field keeps the stored value. A provided profile or preferences record
// replaces the stored one whole, with defaults for empty enum fields.
type ProfileUpdate struct {
	Profile     *model.Profile
	Preferences *model.Preferences
	Phone       *string
	Address     *string
}

// Register creates an account with the default profile and preferences.
// The password is hashed once, here.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := required(
		field{"username", in.Username},
		field{"email", in.Email},
		field{"password", in.Password},
	); err != nil {
		return nil, err
	}

	// Checked up front for the friendlier messages; the unique indexes
	// still catch a concurrent registration.
	if err := s.ensureFree(ctx, in.Email, s.store.GetUserByEmail, "User already exists with this email"); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, in.Username, s.store.GetUserByUsername, "Username is already taken"); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Profile:      model.DefaultProfile(),
		Preferences:  model.DefaultPreferences(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login checks an email and password. An unknown email and a wrong password
// fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperror.ValidationFailed("email", "Invalid email or password")

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// e.g. an account created through GitHub has no password
			s.logger.Warn("password check failed",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, invalid
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginGitHub signs in the local account whose email matches the GitHub
// identity, creating one on first sign-in.
func (s *AccountService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.Email == "" {
		return nil, apperror.ValidationFailed("email", "GitHub account has no usable email")
	}

	user, err := s.store.GetUserByEmail(ctx, gh.Email)
	switch {
	case err == nil:
		s.logger.Info("user authenticated via GitHub", slog.String("userID", user.ID))
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	username := gh.Login
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		username = fmt.Sprintf("%s-%d", gh.Login, gh.ID)
	}

	// No password hash: the account can only sign in through GitHub until
	// a password is set.
	user = &model.User{
		Username:    username,
		Email:       gh.Email,
		Profile:     model.DefaultProfile(),
		Preferences: model.DefaultPreferences(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user from GitHub: %w", err)
	}

	s.logger.Info("user registered via GitHub",
		slog.String("userID", user.ID),
		slog.Int64("githubID", gh.ID),
	)
	return s.issue(user)
}

// GetUser returns the user with the adopted pet ids resolved to pets, in
// adoption order. Pets that no longer exist are skipped.
func (s *AccountService) GetUser(ctx context.Context, id string) (*model.UserDetail, error) {
	if err := required(field{"id", id}); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}

	pets := make([]model.Pet, 0, len(user.AdoptedPets))
	for _, petID := range user.AdoptedPets {
		pet, err := s.store.GetPetByID(ctx, petID)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolving adopted pet %s: %w", petID, err)
		}
		pets = append(pets, *pet)
	}

	return &model.UserDetail{User: user, AdoptedPetDetails: pets}, nil
}

// UpdateProfile replaces the provided parts of the user's record.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*model.User, error) {
	if err := required(field{"id", id}); err != nil {
		return nil, err
	}
	if err := normalizeProfile(upd.Profile); err != nil {
		return nil, err
	}
	if err := normalizePreferences(upd.Preferences); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}

	if upd.Profile != nil {
		user.Profile = upd.Profile
	}
	if upd.Preferences != nil {
		user.Preferences = upd.Preferences
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		user.Address = strings.TrimSpace(*upd.Address)
	}

	if err := s.store.UpdateProfile(ctx, user); err != nil {
		return nil, userNotFound(err)
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

// MarkNotificationsRead marks every unread notification of the user as read
// and returns how many changed.
func (s *AccountService) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if err := required(field{"userId", userID}); err != nil {
		return 0, err
	}
	n, err := s.store.MarkNotificationsRead(ctx, userID)
	if err != nil {
		return 0, userNotFound(err)
	}
	return n, nil
}

func (s *AccountService) ensureFree(
	ctx context.Context,
	value string,
	lookup func(context.Context, string) (*model.User, error),
	taken string,
) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return apperror.ConflictMessage(taken)
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("checking existing user: %w", err)
	}
}

func (s *AccountService) issue(user *model.User) (*AuthResult, error) {
	result := &AuthResult{User: user}
	if s.tokens == nil {
		return result, nil
	}
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}
	result.Token = token
	return result, nil
}

func normalizeProfile(p *model.Profile) error {
	if p == nil {
		return nil
	}
	def := model.DefaultProfile()
	if p.HomeType == "" {
		p.HomeType = def.HomeType
	}
	if p.FreeTime == "" {
		p.FreeTime = def.FreeTime
	}
	if p.PetExperience == "" {
		p.PetExperience = def.PetExperience
	}

	switch {
	case !p.HomeType.ValidForUser():
		return apperror.ValidationFailed("profile.homeType",
			fmt.Sprintf("`%s` is not a valid home type", p.HomeType))
	case !p.FreeTime.Valid():
		return apperror.ValidationFailed("profile.freeTime",
			fmt.Sprintf("`%s` is not a valid free time", p.FreeTime))
	case !p.PetExperience.Valid():
		return apperror.ValidationFailed("profile.petExperience",
			fmt.Sprintf("`%s` is not a valid pet experience", p.PetExperience))
	}
	return nil
}

func normalizePreferences(p *model.Preferences) error {
	if p == nil {
		return nil
	}
	def := model.DefaultPreferences()
	if p.PetType == nil {
		p.PetType = def.PetType
	}
	if p.PreferredAge == "" {
		p.PreferredAge = def.PreferredAge
	}
	if p.ActivityLevel == "" {
		p.ActivityLevel = def.ActivityLevel
	}

	if !p.PreferredAge.Valid() {
		return apperror.ValidationFailed("preferences.preferredAge",
			fmt.Sprintf("`%s` is not a valid preferred age", p.PreferredAge))
	}
	if !p.ActivityLevel.Valid() {
		return apperror.ValidationFailed("preferences.activityLevel",
			fmt.Sprintf("`%s` is not a valid activity level", p.ActivityLevel))
	}
	return nil
}
