package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
)

const userColumns = `id, username, email, password_hash, phone, address, profile, preferences, created_at, updated_at`

// Create inserts a new user. Profile and preferences are stored as JSON text;
// a nil record stays NULL.
func (s *Store) Create(ctx context.Context, user *model.User) error {
	now := s.now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	profile, err := encodeJSON(user.Profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	prefs, err := encodeJSON(user.Preferences)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	_, err = s.exec(ctx, s.conn,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Phone, user.Address,
		profile, prefs, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if s.isUnique(err) {
			return apperror.ConflictMessage("User already exists")
		}
		return s.wrap("inserting user", err)
	}
	if user.AdoptedPets == nil {
		user.AdoptedPets = []string{}
	}
	if user.Notifications == nil {
		user.Notifications = []model.Notification{}
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, "username", username)
}

// getUser loads one user by a unique column plus their adopted list and
// notification log. column is always a literal from this file.
func (s *Store) getUser(ctx context.Context, column, value string) (*model.User, error) {
	row := s.queryRow(ctx, s.conn,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", value)
	}
	if err != nil {
		return nil, s.wrap("querying user", err)
	}

	if user.AdoptedPets, err = s.adoptedPetIDs(ctx, s.conn, user.ID); err != nil {
		return nil, err
	}
	if user.Notifications, err = s.notifications(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile replaces the mutable profile fields of an existing user.
func (s *Store) UpdateProfile(ctx context.Context, user *model.User) error {
	profile, err := encodeJSON(user.Profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	prefs, err := encodeJSON(user.Preferences)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	user.UpdatedAt = s.now()
	result, err := s.exec(ctx, s.conn,
		`UPDATE users SET phone = ?, address = ?, profile = ?, preferences = ?, updated_at = ?
		 WHERE id = ?`,
		user.Phone, user.Address, profile, prefs, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return s.wrap("updating user", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

func (s *Store) adoptedPetIDs(ctx context.Context, q queryer, userID string) ([]string, error) {
	rows, err := s.query(ctx, q,
		`SELECT pet_id FROM user_adopted_pets WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, s.wrap("querying adopted pets", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.wrap("scanning adopted pet", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterating adopted pets", err)
	}
	return ids, nil
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u              model.User
		profile, prefs sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Phone, &u.Address,
		&profile, &prefs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if profile.Valid {
		u.Profile = new(model.Profile)
		if err := json.Unmarshal([]byte(profile.String), u.Profile); err != nil {
			return nil, fmt.Errorf("decoding profile of user %s: %w", u.ID, err)
		}
	}
	if prefs.Valid {
		u.Preferences = new(model.Preferences)
		if err := json.Unmarshal([]byte(prefs.String), u.Preferences); err != nil {
			return nil, fmt.Errorf("decoding preferences of user %s: %w", u.ID, err)
		}
		if u.Preferences.PetType == nil {
			u.Preferences.PetType = []string{}
		}
	}
	return &u, nil
}

// encodeJSON returns NULL for a nil pointer and JSON text otherwise.
func encodeJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
