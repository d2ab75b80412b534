package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmatch/petmatch/internal/model"
)

func TestAdoptionHandler_AdoptAndUnadopt(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register(t, "owner")
	adopter := api.register(t, "adopter")
	pet := api.listPet(t, owner.User.ID, "Buddy", "Dog")
	req := map[string]string{"userId": adopter.User.ID, "petId": pet.ID}

	rr := api.do(t, http.MethodPost, "/api/adoption/adopt", req, adopter.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var adopted struct {
		Message  string         `json:"message"`
		Adoption model.Adoption `json:"adoption"`
		Pet      model.Pet      `json:"pet"`
	}
	decode(t, rr, &adopted)
	assert.Equal(t, "Pet adopted successfully", adopted.Message)
	assert.Equal(t, model.AdoptionCompleted, adopted.Adoption.Status)
	assert.Equal(t, adopter.User.ID, adopted.Adoption.UserID)
	assert.Equal(t, model.PetAdopted, adopted.Pet.State.Status())
	assert.Equal(t, adopter.User.ID, adopted.Pet.State.Adopter())

	t.Run("adopting again conflicts", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/adoption/adopt", req, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		e := decodeError(t, rr)
		assert.Equal(t, "conflict", e.Error)
		assert.Equal(t, "Pet is already adopted", e.Message)
	})

	t.Run("someone else cannot unadopt", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/adoption/unadopt",
			map[string]string{"userId": owner.User.ID, "petId": pet.ID}, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, decodeError(t, rr).Message, "Adoption record not found")
	})

	t.Run("adopter unadopts", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/adoption/unadopt", req, adopter.Token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var body struct {
			Message string    `json:"message"`
			Pet     model.Pet `json:"pet"`
		}
		decode(t, rr, &body)
		assert.Equal(t, "Pet unadopted successfully", body.Message)
		assert.False(t, body.Pet.State.IsAdopted())
		assert.Contains(t, rr.Body.String(), `"adoptedBy":null`)
	})
}

func TestAdoptionHandler_AdoptRejections(t *testing.T) {
	api := newTestAPI(t)
	owner := api.register(t, "owner")
	adopter := api.register(t, "adopter")
	pet := api.listPet(t, owner.User.ID, "Buddy", "Dog")

	tests := []struct {
		name       string
		body       any
		token      string
		wantStatus int
		wantMsg    string
	}{
		{"own pet", map[string]string{"userId": owner.User.ID, "petId": pet.ID}, "", http.StatusBadRequest, "You cannot adopt your own pet"},
		{"unknown pet", map[string]string{"userId": adopter.User.ID, "petId": "ghost"}, "", http.StatusNotFound, ""},
		{"unknown user", map[string]string{"userId": "ghost", "petId": pet.ID}, "", http.StatusNotFound, "User not found"},
		{"missing pet id", map[string]string{"userId": adopter.User.ID}, "", http.StatusBadRequest, ""},
		{"token for another user", map[string]string{"userId": adopter.User.ID, "petId": pet.ID}, owner.Token, http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, "/api/adoption/adopt", tt.body, tt.token)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeError(t, rr).Message)
			}
		})
	}

	rr := api.do(t, http.MethodGet, "/api/pets/"+pet.ID, nil, "")
	assert.Contains(t, rr.Body.String(), `"status":"available"`, "rejections leave the pet untouched")
}

func TestAdoptionHandler_Lists(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/adoption/all", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	owner := api.register(t, "owner")
	alice := api.register(t, "alice")
	bob := api.register(t, "bob")
	buddy := api.listPet(t, owner.User.ID, "Buddy", "Dog")
	luna := api.listPet(t, owner.User.ID, "Luna", "Cat")

	for _, a := range []struct{ user, pet string }{{alice.User.ID, buddy.ID}, {bob.User.ID, luna.ID}} {
		rr := api.do(t, http.MethodPost, "/api/adoption/adopt", map[string]string{"userId": a.user, "petId": a.pet}, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = api.do(t, http.MethodGet, "/api/adoption/all", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var all []model.AdoptionDetail
	decode(t, rr, &all)
	require.Len(t, all, 2)
	for _, d := range all {
		require.NotNil(t, d.User)
		require.NotNil(t, d.Pet)
	}

	rr = api.do(t, http.MethodGet, "/api/adoption/user/"+alice.User.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var mine []model.AdoptionDetail
	decode(t, rr, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "Buddy", mine[0].Pet.Name)
	assert.Equal(t, "alice", mine[0].User.Username)
}
