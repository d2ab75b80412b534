//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/recommend"
	"github.com/petmatch/petmatch/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "petmatch_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/petmatch_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestStore_AdoptionLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := postgres.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// unique names so reruns against the same container don't collide
	suffix := uuid.NewString()[:8]

	owner := &model.User{Username: "owner-" + suffix, Email: "owner-" + suffix + "@example.com", PasswordHash: "x"}
	require.NoError(t, store.Create(ctx, owner))

	adopters := make([]*model.User, 4)
	for i := range adopters {
		name := fmt.Sprintf("adopter%d-%s", i, suffix)
		adopters[i] = &model.User{
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: "x",
			Profile:      &model.Profile{HomeType: model.HomeHouse, HasKids: true, FreeTime: model.LevelHigh},
			Preferences:  &model.Preferences{PetType: []string{"Dog"}, PreferredAge: model.AgeAdult},
		}
		require.NoError(t, store.Create(ctx, adopters[i]))
	}

	pet := &model.Pet{
		Name: "Buddy-" + suffix, Type: "Dog", Age: 2, HomeType: model.HomeHouse,
		CareLevel: model.LevelMedium, ActivityLevel: model.LevelHigh, KidFriendly: true, OwnerID: owner.ID,
	}
	require.NoError(t, store.CreatePet(ctx, pet))

	t.Run("recommendations include the pet", func(t *testing.T) {
		f := recommend.ForUser(adopters[0])
		f.NameContains = pet.Name
		pets, err := store.FindPets(ctx, f)
		require.NoError(t, err)
		require.Len(t, pets, 1)
		assert.Equal(t, pet.ID, pets[0].ID)
	})

	t.Run("concurrent adopters", func(t *testing.T) {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for _, u := range adopters {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, err := store.Commit(ctx, &model.Adoption{UserID: userID, PetID: pet.ID})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
				} else if assert.ErrorIs(t, err, apperror.ErrConflict) {
					conflicts++
				}
			}(u.ID)
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
		assert.Equal(t, len(adopters)-1, conflicts)
	})

	t.Run("release restores availability", func(t *testing.T) {
		got, err := store.GetPetByID(ctx, pet.ID)
		require.NoError(t, err)
		winner := got.State.Adopter()
		require.NotEmpty(t, winner)

		require.NoError(t, store.Release(ctx, winner, pet.ID))

		got, err = store.GetPetByID(ctx, pet.ID)
		require.NoError(t, err)
		assert.False(t, got.State.IsAdopted())

		u, err := store.GetUserByID(ctx, winner)
		require.NoError(t, err)
		assert.NotContains(t, u.AdoptedPets, pet.ID)
	})

	t.Run("notifications", func(t *testing.T) {
		_, err := store.AppendNotification(ctx, owner.ID, "hello")
		require.NoError(t, err)
		n, err := store.MarkNotificationsRead(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("messages", func(t *testing.T) {
		msg := &model.Message{SenderID: adopters[0].ID, ReceiverID: owner.ID, PetID: pet.ID, Content: "Is Buddy still available?"}
		require.NoError(t, store.CreateMessage(ctx, msg))

		views, err := store.ListMessagesForUser(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, adopters[0].Username, views[0].Sender.Username)
		assert.Equal(t, pet.Name, views[0].Pet.Name)
	})
}
