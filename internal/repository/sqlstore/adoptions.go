package sqlstore

import (
	"context"
	"database/sql"

	"github.com/rs/xid"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
)

// Commit applies an adoption in one transaction:
//
//  1. compare-and-set the pet from available to adopted by the user
//  2. insert the adoption record (pet_id is UNIQUE)
//  3. append the pet to the user's adopted list
//
// Step 1 is the serialisation point. Of two concurrent commits for the same
// pet exactly one sees an available row; the other gets ErrConflict.
func (s *Store) Commit(ctx context.Context, adoption *model.Adoption) (*model.Pet, error) {
	if adoption.ID == "" {
		adoption.ID = xid.New().String()
	}
	if adoption.AdoptionDate.IsZero() {
		adoption.AdoptionDate = s.now()
	}
	if adoption.Status == "" {
		adoption.Status = model.AdoptionCompleted
	}

	var pet *model.Pet
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := s.exec(ctx, tx,
			`UPDATE pets SET status = ?, adopted_by = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(model.PetAdopted), adoption.UserID, adoption.AdoptionDate,
			adoption.PetID, string(model.PetAvailable),
		)
		if err != nil {
			return s.wrap("marking pet adopted", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			// either gone or taken; tell them apart for the caller
			if _, err := s.getPet(ctx, tx, adoption.PetID); err != nil {
				return err
			}
			return apperror.ConflictMessage("Pet is already adopted")
		}

		_, err = s.exec(ctx, tx,
			`INSERT INTO adoptions (id, user_id, pet_id, adoption_date, status)
			 VALUES (?, ?, ?, ?, ?)`,
			adoption.ID, adoption.UserID, adoption.PetID, adoption.AdoptionDate,
			string(adoption.Status),
		)
		if err != nil {
			if s.isUnique(err) {
				return apperror.ConflictMessage("Pet is already adopted")
			}
			return s.wrap("inserting adoption", err)
		}

		var position int64
		err = s.queryRow(ctx, tx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM user_adopted_pets WHERE user_id = ?`,
			adoption.UserID,
		).Scan(&position)
		if err != nil {
			return s.wrap("reading adopted list", err)
		}
		_, err = s.exec(ctx, tx,
			`INSERT INTO user_adopted_pets (user_id, pet_id, position, added_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (user_id, pet_id) DO NOTHING`,
			adoption.UserID, adoption.PetID, position, adoption.AdoptionDate,
		)
		if err != nil {
			return s.wrap("appending adopted pet", err)
		}

		pet, err = s.getPet(ctx, tx, adoption.PetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pet, nil
}

// Release reverses an adoption in one transaction. The adoption record is
// the only required row: the pet reset and list removal affect zero rows
// when their targets are gone.
func (s *Store) Release(ctx context.Context, userID, petID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := s.exec(ctx, tx,
			`DELETE FROM adoptions WHERE user_id = ? AND pet_id = ?`, userID, petID)
		if err != nil {
			return s.wrap("deleting adoption", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return apperror.NotFoundMessage("Adoption record not found")
		}

		_, err = s.exec(ctx, tx,
			`UPDATE pets SET status = ?, adopted_by = NULL, updated_at = ? WHERE id = ?`,
			string(model.PetAvailable), s.now(), petID,
		)
		if err != nil {
			return s.wrap("resetting pet", err)
		}

		_, err = s.exec(ctx, tx,
			`DELETE FROM user_adopted_pets WHERE user_id = ? AND pet_id = ?`, userID, petID)
		if err != nil {
			return s.wrap("removing adopted pet", err)
		}
		return nil
	})
}

const adoptionSelect = `SELECT a.id, a.user_id, a.pet_id, a.adoption_date, a.status,
	u.id, u.username, u.email
	FROM adoptions a LEFT JOIN users u ON u.id = a.user_id`

func (s *Store) ListAdoptions(ctx context.Context) ([]model.AdoptionDetail, error) {
	return s.listAdoptions(ctx, adoptionSelect+` ORDER BY a.adoption_date DESC, a.id DESC`)
}

func (s *Store) ListAdoptionsByUser(ctx context.Context, userID string) ([]model.AdoptionDetail, error) {
	return s.listAdoptions(ctx,
		adoptionSelect+` WHERE a.user_id = ? ORDER BY a.adoption_date DESC, a.id DESC`, userID)
}

func (s *Store) listAdoptions(ctx context.Context, query string, args ...any) ([]model.AdoptionDetail, error) {
	rows, err := s.query(ctx, s.conn, query, args...)
	if err != nil {
		return nil, s.wrap("querying adoptions", err)
	}
	defer rows.Close()

	list := []model.AdoptionDetail{}
	var petIDs []string
	for rows.Next() {
		var (
			d      model.AdoptionDetail
			status string
			u      nullSummary
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.PetID, &d.AdoptionDate, &status,
			&u.id, &u.username, &u.email); err != nil {
			return nil, s.wrap("scanning adoption", err)
		}
		d.Status = model.AdoptionStatus(status)
		d.User = u.summary()
		list = append(list, d)
		petIDs = append(petIDs, d.PetID)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterating adoptions", err)
	}
	rows.Close()

	pets, err := s.petsByID(ctx, petIDs)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Pet = pets[list[i].PetID]
	}
	return list, nil
}

// nullSummary scans the user columns of a LEFT JOIN.
type nullSummary struct {
	id, username, email sql.NullString
}

func (n nullSummary) summary() *model.UserSummary {
	if !n.id.Valid {
		return nil
	}
	return &model.UserSummary{ID: n.id.String, Username: n.username.String, Email: n.email.String}
}
