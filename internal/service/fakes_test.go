package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.Store. Every method holds the mutex
// for its whole body, so Commit behaves like the SQL transaction: check and
// flip happen atomically.
//
// Reads hand out copies, the way a database does, so a service mutating a
// returned record cannot change what is "stored".
type fakeStore struct {
	mu  sync.Mutex
	seq int

	users     map[string]*model.User
	pets      map[string]*model.Pet
	petOrder  []string
	adoptions map[string]*model.Adoption // keyed by pet id
	messages  []model.Message

	// set to a non-nil error to simulate a failure
	appendErr   error
	commitErr   error
	findErr     error
	setOwnerErr error

	setOwnerCalls int
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*model.User),
		pets:      make(map[string]*model.Pet),
		adoptions: make(map[string]*model.Adoption),
	}
}

var fakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// next returns a fresh id and a strictly increasing timestamp.
func (f *fakeStore) next(prefix string) (string, time.Time) {
	f.seq++
	return fmt.Sprintf("%s-%03d", prefix, f.seq), fakeEpoch.Add(time.Duration(f.seq) * time.Second)
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.AdoptedPets = append([]string{}, u.AdoptedPets...)
	c.Notifications = append([]model.Notification{}, u.Notifications...)
	return &c
}

func copyPet(p *model.Pet) *model.Pet {
	c := *p
	return &c
}

// ---- users ----

func (f *fakeStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperror.ConflictMessage("User already exists")
		}
	}
	user.ID, user.CreatedAt = f.next("user")
	user.UpdatedAt = user.CreatedAt
	user.AdoptedPets = []string{}
	user.Notifications = []model.Notification{}
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return copyUser(u), nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.findUser(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return f.findUser(func(u *model.User) bool { return u.Username == username }, username)
}

func (f *fakeStore) findUser(match func(*model.User) bool, key string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeStore) UpdateProfile(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	u.Phone, u.Address = user.Phone, user.Address
	u.Profile, u.Preferences = user.Profile, user.Preferences
	_, u.UpdatedAt = f.next("tick")
	return nil
}

// ---- notifications ----

func (f *fakeStore) AppendNotification(_ context.Context, userID, message string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	n := model.Notification{UserID: userID, Message: message}
	n.ID, n.CreatedAt = f.next("note")
	u.Notifications = append(u.Notifications, n)
	return &n, nil
}

func (f *fakeStore) MarkNotificationsRead(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return 0, apperror.NotFound("user", userID)
	}
	var changed int64
	for i := range u.Notifications {
		if !u.Notifications[i].IsRead {
			u.Notifications[i].IsRead = true
			changed++
		}
	}
	return changed, nil
}

// ---- pets ----

func (f *fakeStore) CreatePet(_ context.Context, pet *model.Pet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pet.ID, pet.CreatedAt = f.next("pet")
	pet.UpdatedAt = pet.CreatedAt
	f.pets[pet.ID] = copyPet(pet)
	f.petOrder = append(f.petOrder, pet.ID)
	return nil
}

func (f *fakeStore) GetPetByID(_ context.Context, id string) (*model.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pets[id]
	if !ok {
		return nil, apperror.NotFoundMessage("Pet not found")
	}
	return copyPet(p), nil
}

func (f *fakeStore) FindPets(_ context.Context, filter repository.PetFilter) ([]model.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := []model.Pet{}
	for _, id := range f.petOrder {
		if p, ok := f.pets[id]; ok && filter.Matches(*p) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) SetPetOwner(_ context.Context, petID, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setOwnerCalls++
	if f.setOwnerErr != nil {
		return f.setOwnerErr
	}
	if p, ok := f.pets[petID]; ok && p.OwnerID == "" {
		p.OwnerID = ownerID
	}
	return nil
}

// ---- adoptions ----

func (f *fakeStore) Commit(_ context.Context, adoption *model.Adoption) (*model.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	p, ok := f.pets[adoption.PetID]
	if !ok {
		return nil, apperror.NotFoundMessage("Pet not found")
	}
	if p.State.IsAdopted() {
		return nil, apperror.ConflictMessage("Pet is already adopted")
	}

	adoption.ID, adoption.AdoptionDate = f.next("adoption")
	adoption.Status = model.AdoptionCompleted
	stored := *adoption
	f.adoptions[adoption.PetID] = &stored

	p.State = model.AdoptedBy(adoption.UserID)
	if u, ok := f.users[adoption.UserID]; ok && !u.HasAdopted(p.ID) {
		u.AdoptedPets = append(u.AdoptedPets, p.ID)
	}
	return copyPet(p), nil
}

func (f *fakeStore) Release(_ context.Context, userID, petID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.adoptions[petID]
	if !ok || a.UserID != userID {
		return apperror.NotFoundMessage("Adoption record not found")
	}
	delete(f.adoptions, petID)

	if p, ok := f.pets[petID]; ok {
		p.State = model.Available()
	}
	if u, ok := f.users[userID]; ok {
		kept := u.AdoptedPets[:0]
		for _, id := range u.AdoptedPets {
			if id != petID {
				kept = append(kept, id)
			}
		}
		u.AdoptedPets = kept
	}
	return nil
}

func (f *fakeStore) ListAdoptions(_ context.Context) ([]model.AdoptionDetail, error) {
	return f.listAdoptions(func(*model.Adoption) bool { return true }), nil
}

func (f *fakeStore) ListAdoptionsByUser(_ context.Context, userID string) ([]model.AdoptionDetail, error) {
	return f.listAdoptions(func(a *model.Adoption) bool { return a.UserID == userID }), nil
}

func (f *fakeStore) listAdoptions(keep func(*model.Adoption) bool) []model.AdoptionDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.AdoptionDetail{}
	for _, a := range f.adoptions {
		if !keep(a) {
			continue
		}
		d := model.AdoptionDetail{Adoption: *a}
		if u, ok := f.users[a.UserID]; ok {
			d.User = u.Summary()
		}
		if p, ok := f.pets[a.PetID]; ok {
			d.Pet = copyPet(p)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdoptionDate.After(out[j].AdoptionDate) })
	return out
}

// ---- messages ----

func (f *fakeStore) CreateMessage(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID, msg.CreatedAt = f.next("msg")
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) ListMessagesForUser(_ context.Context, userID string) ([]model.MessageView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.MessageView{}
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if m.SenderID != userID && m.ReceiverID != userID {
			continue
		}
		v := model.MessageView{Message: m}
		if u, ok := f.users[m.SenderID]; ok {
			v.Sender = u.Summary()
		}
		if u, ok := f.users[m.ReceiverID]; ok {
			v.Receiver = u.Summary()
		}
		if p, ok := f.pets[m.PetID]; ok {
			v.Pet = &model.PetSummary{ID: p.ID, Name: p.Name, Image: p.Image}
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

// =========================================================================
// HELPERS
// =========================================================================

// fakePublisher records what was pushed.
type fakePublisher struct {
	mu   sync.Mutex
	sent []model.Notification
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, n model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedUser stores a user directly, bypassing registration.
func seedUser(f *fakeStore, username string) *model.User {
	u := &model.User{
		Username:    username,
		Email:       username + "@example.com",
		Profile:     model.DefaultProfile(),
		Preferences: model.DefaultPreferences(),
	}
	if err := f.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// seedPet stores p with the listing defaults filled in.
func seedPet(f *fakeStore, p model.Pet) *model.Pet {
	if p.Type == "" {
		p.Type = "Dog"
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
	if err := f.CreatePet(context.Background(), &p); err != nil {
		panic(err)
	}
	return &p
}

func ptr[T any](v T) *T { return &v }
