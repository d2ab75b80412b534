package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

const petColumns = `id, name, type, breed, age, location, description, image, home_type,
	care_level, activity_level, kid_friendly, contact_email, contact_phone, owner_id,
	status, adopted_by, created_at, updated_at`

func (s *Store) CreatePet(ctx context.Context, pet *model.Pet) error {
	now := s.now()
	pet.ID = xid.New().String()
	pet.CreatedAt = now
	pet.UpdatedAt = now

	_, err := s.exec(ctx, s.conn,
		`INSERT INTO pets (`+petColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pet.ID, pet.Name, pet.Type, pet.Breed, pet.Age, pet.Location, pet.Description,
		pet.Image, string(pet.HomeType), string(pet.CareLevel), string(pet.ActivityLevel),
		pet.KidFriendly, pet.ContactEmail, pet.ContactPhone, nullString(pet.OwnerID),
		string(pet.State.Status()), nullString(pet.State.Adopter()),
		pet.CreatedAt, pet.UpdatedAt,
	)
	if err != nil {
		return s.wrap("inserting pet", err)
	}
	return nil
}

func (s *Store) GetPetByID(ctx context.Context, id string) (*model.Pet, error) {
	return s.getPet(ctx, s.conn, id)
}

func (s *Store) getPet(ctx context.Context, q queryer, id string) (*model.Pet, error) {
	row := s.queryRow(ctx, q, `SELECT `+petColumns+` FROM pets WHERE id = ?`, id)
	pet, err := scanPet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFoundMessage("Pet not found")
	}
	if err != nil {
		return nil, s.wrap("querying pet", err)
	}
	return pet, nil
}

// FindPets translates filter into a WHERE clause. The result matches
// filter.Matches pet for pet.
func (s *Store) FindPets(ctx context.Context, filter repository.PetFilter) ([]model.Pet, error) {
	where, args := petWhere(filter)
	query := `SELECT ` + petColumns + ` FROM pets`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.query(ctx, s.conn, query, args...)
	if err != nil {
		return nil, s.wrap("querying pets", err)
	}
	defer rows.Close()
	return collectPets(rows, s)
}

// petsByID loads the pets with the given ids, keyed by id. Unknown ids are
// simply absent from the map.
func (s *Store) petsByID(ctx context.Context, ids []string) (map[string]*model.Pet, error) {
	out := make(map[string]*model.Pet, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.query(ctx, s.conn,
		`SELECT `+petColumns+` FROM pets WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, s.wrap("querying pets", err)
	}
	defer rows.Close()

	pets, err := collectPets(rows, s)
	if err != nil {
		return nil, err
	}
	for i := range pets {
		out[pets[i].ID] = &pets[i]
	}
	return out, nil
}

// SetPetOwner fills in the owner of a legacy listing. It only writes when the
// pet still has no owner, so repeated repairs are no-ops.
func (s *Store) SetPetOwner(ctx context.Context, petID, ownerID string) error {
	_, err := s.exec(ctx, s.conn,
		`UPDATE pets SET owner_id = ?, updated_at = ? WHERE id = ? AND owner_id IS NULL`,
		ownerID, s.now(), petID,
	)
	if err != nil {
		return s.wrap("setting pet owner", err)
	}
	return nil
}

func petWhere(f repository.PetFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	in := func(column string, values []string) {
		if len(values) == 0 {
			// non-nil empty set: nothing is a member
			clauses = append(clauses, "1 = 0")
			return
		}
		clauses = append(clauses, column+" IN ("+placeholders(len(values))+")")
		for _, v := range values {
			args = append(args, v)
		}
	}

	if f.ExcludeAdopted {
		clauses = append(clauses, "status = ?")
		args = append(args, string(model.PetAvailable))
	}
	if f.Types != nil {
		in("type", f.Types)
	}
	if f.HomeTypes != nil {
		in("home_type", toStrings(f.HomeTypes))
	}
	if f.ActivityLevels != nil {
		in("activity_level", toStrings(f.ActivityLevels))
	}
	if f.KidFriendlyOnly {
		clauses = append(clauses, "kid_friendly = ?")
		args = append(args, true)
	}
	if f.MinAgeExclusive != nil {
		clauses = append(clauses, "age > ?")
		args = append(args, *f.MinAgeExclusive)
	}
	if f.MaxAgeInclusive != nil {
		clauses = append(clauses, "age <= ?")
		args = append(args, *f.MaxAgeInclusive)
	}
	if f.NameContains != "" {
		clauses = append(clauses, `LOWER(name) LIKE LOWER(?) ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.NameContains)+"%")
	}
	return strings.Join(clauses, " AND "), args
}

// escapeLike makes the user's search text a literal LIKE operand.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func toStrings[T ~string](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}

func collectPets(rows *sql.Rows, s *Store) ([]model.Pet, error) {
	pets := []model.Pet{}
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return nil, s.wrap("scanning pet", err)
		}
		pets = append(pets, *pet)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("iterating pets", err)
	}
	return pets, nil
}

func scanPet(row interface{ Scan(...any) error }) (*model.Pet, error) {
	var (
		p                        model.Pet
		homeType, care, activity string
		status                   string
		ownerID, adoptedBy       sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Breed, &p.Age, &p.Location, &p.Description,
		&p.Image, &homeType, &care, &activity, &p.KidFriendly, &p.ContactEmail,
		&p.ContactPhone, &ownerID, &status, &adoptedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.HomeType = model.HomeType(homeType)
	p.CareLevel = model.Level(care)
	p.ActivityLevel = model.Level(activity)
	p.OwnerID = ownerID.String

	p.State, err = model.ParseAdoptionState(model.PetStatus(status), adoptedBy.String)
	if err != nil {
		return nil, fmt.Errorf("pet %s: %w", p.ID, err)
	}
	return &p, nil
}
