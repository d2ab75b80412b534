package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/service"
)

// AdoptionHandler serves the adoption workflow.
type AdoptionHandler struct {
	adoptions *service.AdoptionService
	logger    *slog.Logger
}

func NewAdoptionHandler(adoptions *service.AdoptionService, logger *slog.Logger) *AdoptionHandler {
	return &AdoptionHandler{adoptions: adoptions, logger: logger}
}

type adoptRequest struct {
	UserID string `json:"userId"`
	PetID  string `json:"petId"`
}

// HandleAdopt adopts a pet.
//
// HTTP: POST /api/adoption/adopt
// Body: {"userId", "petId"}
// Response: 200 {"message", "adoption", "pet"}; 400 if already adopted or
// the caller owns the pet
func (h *AdoptionHandler) HandleAdopt(w http.ResponseWriter, r *http.Request) {
	var req adoptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := checkCaller(r, req.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.adoptions.Adopt(r.Context(), req.UserID, req.PetID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Pet adopted successfully",
		"adoption": res.Adoption,
		"pet":      res.Pet,
	})
}

// HandleUnadopt returns an adopted pet to the catalogue.
//
// HTTP: POST /api/adoption/unadopt
// Body: {"userId", "petId"}
// Response: 200 {"message", "pet"}; 404 if the caller has no adoption record
func (h *AdoptionHandler) HandleUnadopt(w http.ResponseWriter, r *http.Request) {
	var req adoptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := checkCaller(r, req.UserID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	pet, err := h.adoptions.Unadopt(r.Context(), req.UserID, req.PetID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Pet unadopted successfully",
		"pet":     pet,
	})
}

// HandleList returns every adoption, newest first.
//
// HTTP: GET /api/adoption/all
func (h *AdoptionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.adoptions.List(r.Context())
	h.writeList(w, r, list, err)
}

// HandleListByUser returns one user's adoptions, newest first.
//
// HTTP: GET /api/adoption/user/{userId}
func (h *AdoptionHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.adoptions.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	h.writeList(w, r, list, err)
}

func (h *AdoptionHandler) writeList(w http.ResponseWriter, r *http.Request, list []model.AdoptionDetail, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []model.AdoptionDetail{}
	}
	writeJSON(w, http.StatusOK, list)
}
