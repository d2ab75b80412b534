package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/service"
)

// PetHandler serves the pet catalogue. Every list endpoint leaves adopted
// pets out and wraps the result as {"pets": [...]}.
type PetHandler struct {
	pets   *service.PetService
	logger *slog.Logger
}

func NewPetHandler(pets *service.PetService, logger *slog.Logger) *PetHandler {
	return &PetHandler{pets: pets, logger: logger}
}

type petsResponse struct {
	Pets []model.Pet `json:"pets"`
}

// createPetRequest mirrors the listing form. Age and kidFriendly are
// pointers so an absent value is not mistaken for 0 or false.
type createPetRequest struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Breed         string   `json:"breed"`
	Age           *float64 `json:"age"`
	Location      string   `json:"location"`
	Description   string   `json:"description"`
	Image         string   `json:"image"`
	HomeType      string   `json:"homeType"`
	CareLevel     string   `json:"careLevel"`
	ActivityLevel string   `json:"activityLevel"`
	KidFriendly   *bool    `json:"kidFriendly"`
	ContactEmail  string   `json:"contactEmail"`
	ContactPhone  string   `json:"contactPhone"`
	Owner         string   `json:"owner"`
}

// HandleList returns every available pet.
//
// HTTP: GET /api/pets
func (h *PetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	pets, err := h.pets.List(r.Context())
	h.writePets(w, r, pets, err)
}

// HandleSearch matches the name case-insensitively.
//
// HTTP: GET /api/pets/search/{name}
func (h *PetHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	pets, err := h.pets.Search(r.Context(), chi.URLParam(r, "name"))
	h.writePets(w, r, pets, err)
}

// HandleFilter returns available pets of one type.
//
// HTTP: GET /api/pets/filter/{type}
func (h *PetHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	pets, err := h.pets.FilterByType(r.Context(), chi.URLParam(r, "type"))
	h.writePets(w, r, pets, err)
}

// HandleRecommendations returns the pets that fit a user's profile and
// preferences.
//
// HTTP: GET /api/pets/recommendations/{userId}
func (h *PetHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	pets, err := h.pets.Recommendations(r.Context(), chi.URLParam(r, "userId"))
	h.writePets(w, r, pets, err)
}

// HandleGet returns one pet, adopted or not, with its owner resolved.
//
// HTTP: GET /api/pets/{id}
func (h *PetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	pet, err := h.pets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pet": pet})
}

// HandleCreate lists a new pet.
//
// HTTP: POST /api/pets
// Response: 201 {"message", "pet"}
func (h *PetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := checkCaller(r, req.Owner); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	pet, err := h.pets.Create(r.Context(), service.CreatePetInput{
		Name:          req.Name,
		Type:          req.Type,
		Breed:         req.Breed,
		Age:           req.Age,
		Location:      req.Location,
		Description:   req.Description,
		Image:         req.Image,
		HomeType:      model.HomeType(req.HomeType),
		CareLevel:     model.Level(req.CareLevel),
		ActivityLevel: model.Level(req.ActivityLevel),
		KidFriendly:   req.KidFriendly,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		OwnerID:       req.Owner,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Pet created successfully",
		"pet":     pet,
	})
}

func (h *PetHandler) writePets(w http.ResponseWriter, r *http.Request, pets []model.Pet, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if pets == nil {
		pets = []model.Pet{}
	}
	writeJSON(w, http.StatusOK, petsResponse{Pets: pets})
}
