// Command seed loads a sample owner, a catalogue of pets and a few
// completed adoptions into the configured database.
//
// It goes through the services rather than raw SQL, so seeded data obeys
// the same rules as data created through the API. Running it against an
// already seeded database does nothing.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/config"
	"github.com/petmatch/petmatch/internal/database"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/repository"
	"github.com/petmatch/petmatch/internal/service"
)

const (
	adminEmail = "admin@petmatch.com"
	adminPhone = "123-456-7890"
)

type samplePet struct {
	name, petType, breed string
	age                  float64
	location, image      string
	homeType             model.HomeType
	care, activity       model.Level
	kidFriendly          bool
	description          string
}

var samplePets = []samplePet{
	{"Buddy", "Dog", "Golden Retriever", 2, "New York, NY", "https://images.unsplash.com/photo-1543466835-00a7907e9de1?w=400", model.HomeHouse, model.LevelHigh, model.LevelHigh, true, "Energetic and friendly golden retriever"},
	{"Whiskers", "Cat", "Tabby", 1, "Los Angeles, CA", "https://images.unsplash.com/photo-1514888286974-6c03e2ca1dba?w=400", model.HomeApartment, model.LevelLow, model.LevelLow, true, "Calm and independent cat"},
	{"Max", "Dog", "Labrador", 3, "Chicago, IL", "https://images.unsplash.com/photo-1552053831-71594a27632d?w=400", model.HomeHouse, model.LevelMedium, model.LevelMedium, true, "Playful and loyal companion"},
	{"Luna", "Cat", "Siamese", 2, "Miami, FL", "https://images.unsplash.com/photo-1495360010541-f48722b34f7d?w=400", model.HomeApartment, model.LevelLow, model.LevelMedium, true, "Sweet and gentle cat"},
	{"Charlie", "Dog", "Poodle", 1, "Seattle, WA", "https://images.unsplash.com/photo-1583511655857-d19b40a7a54e?w=400", model.HomeApartment, model.LevelMedium, model.LevelMedium, true, "Small breed perfect for apartments"},
	{"Mittens", "Cat", "Maine Coon", 3, "Boston, MA", "https://images.unsplash.com/photo-1574158622682-e40e69881006?w=400", model.HomeApartment, model.LevelLow, model.LevelLow, true, "Quiet and affectionate"},
	{"Rocky", "Dog", "German Shepherd", 4, "Austin, TX", "https://images.unsplash.com/photo-1587300003388-59208cc962cb?w=400", model.HomeHouse, model.LevelHigh, model.LevelHigh, false, "Active and protective guard dog"},
	{"Shadow", "Cat", "Black Cat", 2, "Portland, OR", "https://images.unsplash.com/photo-1514888286974-6c03e2ca1dba?w=800", model.HomeApartment, model.LevelMedium, model.LevelMedium, true, "Curious and playful black cat"},
	{"Sky", "Bird", "Parrot", 1, "Phoenix, AZ", "https://images.unsplash.com/photo-1452570053594-1b985d6ea890?w=800", model.HomeAny, model.LevelMedium, model.LevelLow, true, "Beautiful and talkative parrot"},
	{"Sunny", "Bird", "Canary", 2, "San Diego, CA", "https://images.unsplash.com/photo-1601758124510-52d02ddb7cbd?w=800", model.HomeAny, model.LevelLow, model.LevelLow, true, "Cheerful canary with a lovely song"},
	{"Thumper", "Rabbit", "Mixed", 1, "Denver, CO", "https://images.unsplash.com/photo-1585110396000-c9ffd4e4b308?w=400", model.HomeAny, model.LevelMedium, model.LevelMedium, true, "Friendly and soft grey rabbit"},
}

// adopted by the demo adopter; an owner cannot adopt their own listing
var adoptedNames = []string{"Shadow", "Sky", "Sunny"}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if err := seed(ctx, store, cfg.BcryptCost, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		store.Close()
		os.Exit(1)
	}
}

func seed(ctx context.Context, store repository.Store, bcryptCost int, logger *slog.Logger) error {
	if _, err := store.GetUserByEmail(ctx, adminEmail); err == nil {
		logger.Info("database already seeded", slog.String("email", adminEmail))
		return nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("checking for seed data: %w", err)
	}

	passwords, err := auth.NewPasswordService(bcryptCost)
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(store, passwords, nil, logger)
	pets := service.NewPetService(store, false, logger)
	adoptions := service.NewAdoptionService(store, nil, logger)

	admin, err := accounts.Register(ctx, service.RegisterInput{
		Username: "admin",
		Email:    adminEmail,
		Password: "password123",
		Phone:    adminPhone,
		Address:  "123 Admin St, Pet City",
	})
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	logger.Info("admin user created", slog.String("userID", admin.User.ID))

	demo, err := accounts.Register(ctx, service.RegisterInput{
		Username: "demo",
		Email:    "demo@petmatch.com",
		Password: "password123",
	})
	if err != nil {
		return fmt.Errorf("creating demo adopter: %w", err)
	}

	ids := make(map[string]string, len(samplePets))
	for _, sp := range samplePets {
		p, err := pets.Create(ctx, service.CreatePetInput{
			Name:          sp.name,
			Type:          sp.petType,
			Breed:         sp.breed,
			Age:           &sp.age,
			Location:      sp.location,
			Description:   sp.description,
			Image:         sp.image,
			HomeType:      sp.homeType,
			CareLevel:     sp.care,
			ActivityLevel: sp.activity,
			KidFriendly:   &sp.kidFriendly,
			ContactEmail:  adminEmail,
			ContactPhone:  adminPhone,
			OwnerID:       admin.User.ID,
		})
		if err != nil {
			return fmt.Errorf("creating %s: %w", sp.name, err)
		}
		ids[sp.name] = p.ID
	}
	logger.Info("pets seeded", slog.Int("count", len(samplePets)))

	for _, name := range adoptedNames {
		if _, err := adoptions.Adopt(ctx, demo.User.ID, ids[name]); err != nil {
			return fmt.Errorf("adopting %s: %w", name, err)
		}
	}
	logger.Info("sample adoptions created", slog.Any("pets", adoptedNames))
	return nil
}
