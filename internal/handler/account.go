package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/service"
)

// AccountHandler serves registration, login and the user's own record.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → create or check credentials, return user + JWT
//   - HandleGetUser                → profile, adopted pets and notifications
//   - HandleUpdateProfile          → replace profile, preferences, phone, address
//   - HandleMarkRead               → flag every notification as read
//   - HandleMe                     → the user behind the request's token
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Token   string      `json:"token,omitempty"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// Body: {"username", "email", "password", "phone"?, "address"?}
// Response: 201 {"message", "user", "token"}
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleLogin checks credentials.
//
// HTTP: POST /api/auth/login
// Body: {"email", "password"}
// Response: 200 {"message", "user", "token"}; 400 on bad credentials
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleGetUser returns a user with adopted pets resolved.
//
// HTTP: GET /api/auth/user/{id}
func (h *AccountHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	detail, err := h.accounts.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": detail})
}

type profileRequest struct {
	Profile     *model.Profile     `json:"profile"`
	Preferences *model.Preferences `json:"preferences"`
	Phone       *string            `json:"phone"`
	Address     *string            `json:"address"`
}

// HandleUpdateProfile replaces the parts of the profile present in the body.
//
// HTTP: PUT /api/auth/profile/{id}
// Body: {"profile"?, "preferences"?, "phone"?, "address"?}
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := checkCaller(r, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), id, service.ProfileUpdate{
		Profile:     req.Profile,
		Preferences: req.Preferences,
		Phone:       req.Phone,
		Address:     req.Address,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// HandleMarkRead flags all of a user's notifications as read.
//
// HTTP: POST /api/auth/user/{id}/notifications/read
// Response: {"updated": n}
func (h *AccountHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := checkCaller(r, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	n, err := h.accounts.MarkNotificationsRead(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// HandleMe returns the user the request's token belongs to.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth sets the user id in the context)
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	detail, err := h.accounts.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": detail})
}

// checkCaller rejects a request that acts on userID while authenticated as
// someone else. Anonymous requests pass; identity is carried in the request
// itself for clients that never log in with a token.
func checkCaller(r *http.Request, userID string) error {
	caller, ok := auth.UserIDFromContext(r.Context())
	if ok && userID != "" && caller != userID {
		return apperror.Forbidden("You can only act on your own account")
	}
	return nil
}
