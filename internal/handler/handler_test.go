package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/handler"
	"github.com/petmatch/petmatch/internal/model"
	"github.com/petmatch/petmatch/internal/notify"
	"github.com/petmatch/petmatch/internal/repository"
	"github.com/petmatch/petmatch/internal/repository/sqlite"
	"github.com/petmatch/petmatch/internal/service"
)

// testAPI is the handlers mounted on a router over real services and an
// in-memory SQLite store.
type testAPI struct {
	router   chi.Router
	store    repository.Store
	hub      *notify.Hub
	tokens   *auth.TokenService
	accounts *service.AccountService
	logger   *slog.Logger
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	hub := notify.NewHub(logger)
	t.Cleanup(func() { hub.Close() })

	accounts := service.NewAccountService(store, auth.NewPasswordServiceForTest(), tokens, logger)
	pets := service.NewPetService(store, true, logger)
	adoptions := service.NewAdoptionService(store, hub, logger)
	messages := service.NewMessageService(store, hub, logger)

	accountHandler := handler.NewAccountHandler(accounts, logger)
	petHandler := handler.NewPetHandler(pets, logger)
	adoptionHandler := handler.NewAdoptionHandler(adoptions, logger)
	messageHandler := handler.NewMessageHandler(messages, logger)
	streamHandler := handler.NewStreamHandler(hub, store, nil, logger)

	r := chi.NewRouter()
	r.Use(auth.OptionalAuth(tokens))
	r.Get("/health", handler.HandleHealth(store, logger))
	r.Post("/auth/logout", handler.HandleLogout)

	r.Post("/api/auth/register", accountHandler.HandleRegister)
	r.Post("/api/auth/login", accountHandler.HandleLogin)
	r.Get("/api/auth/user/{id}", accountHandler.HandleGetUser)
	r.Put("/api/auth/profile/{id}", accountHandler.HandleUpdateProfile)
	r.Post("/api/auth/user/{id}/notifications/read", accountHandler.HandleMarkRead)
	r.With(auth.RequireAuth(tokens)).Get("/api/me", accountHandler.HandleMe)

	r.Get("/api/pets", petHandler.HandleList)
	r.Post("/api/pets", petHandler.HandleCreate)
	r.Get("/api/pets/search/{name}", petHandler.HandleSearch)
	r.Get("/api/pets/filter/{type}", petHandler.HandleFilter)
	r.Get("/api/pets/recommendations/{userId}", petHandler.HandleRecommendations)
	r.Get("/api/pets/{id}", petHandler.HandleGet)

	r.Post("/api/adoption/adopt", adoptionHandler.HandleAdopt)
	r.Post("/api/adoption/unadopt", adoptionHandler.HandleUnadopt)
	r.Get("/api/adoption/all", adoptionHandler.HandleList)
	r.Get("/api/adoption/user/{userId}", adoptionHandler.HandleListByUser)

	r.Post("/api/messages", messageHandler.HandleSend)
	r.Get("/api/messages/{userId}", messageHandler.HandleForUser)
	r.Get("/api/messages/{userId}/conversations", messageHandler.HandleConversations)

	r.Get("/api/notifications/stream/{userId}", streamHandler.HandleStream)

	return &testAPI{
		router:   r,
		store:    store,
		hub:      hub,
		tokens:   tokens,
		accounts: accounts,
		logger:   logger,
	}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string; token, when set, goes in the Authorization header.
func (a *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// register creates <name>@example.com through the service and returns the
// user with a token.
func (a *testAPI) register(t *testing.T, name string) *service.AuthResult {
	t.Helper()
	res, err := a.accounts.Register(context.Background(), service.RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return res
}

// listPet creates an available pet owned by ownerID.
func (a *testAPI) listPet(t *testing.T, ownerID, name, petType string) *model.Pet {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/pets", map[string]any{
		"name":         name,
		"type":         petType,
		"age":          2,
		"location":     "New York, NY",
		"contactEmail": "owner@example.com",
		"contactPhone": "123-456-7890",
		"owner":        ownerID,
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var out struct {
		Pet model.Pet `json:"pet"`
	}
	decode(t, rr, &out)
	return &out.Pet
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var out handler.ErrorResponse
	decode(t, rr, &out)
	return out
}
