package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"

	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/service"
)

const stateCookie = "oauth_state"

// GitHubProvider is the OAuth side of GitHub sign-in. *auth.GitHubProvider
// implements it.
type GitHubProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// GitHubHandler runs the optional GitHub sign-in flow. The account it signs
// into is the local one with the same email; see AccountService.LoginGitHub.
type GitHubHandler struct {
	github      GitHubProvider
	accounts    *service.AccountService
	tokens      *auth.TokenService
	frontendURL string
	logger      *slog.Logger
}

func NewGitHubHandler(
	github GitHubProvider,
	accounts *service.AccountService,
	tokens *auth.TokenService,
	frontendURL string,
	logger *slog.Logger,
) *GitHubHandler {
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &GitHubHandler{
		github:      github,
		accounts:    accounts,
		tokens:      tokens,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// HandleLogin redirects the browser to GitHub.
//
// HTTP: GET /auth/github/login
//
// The random state goes into a short-lived HttpOnly cookie and is checked on
// callback, so only a flow this server started can complete.
func (h *GitHubHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. check the state against the cookie
//  2. exchange the code for the GitHub identity
//  3. sign into (or create) the local account with that email
//  4. store the JWT in an HttpOnly cookie and redirect to the frontend
func (h *GitHubHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || q.Get("state") != c.Value {
		h.logger.Warn("github callback: invalid state")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := q.Get("error"); denied != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", denied))
		http.Redirect(w, r, h.redirectURL("auth=denied"), http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "auth_failed", Message: "GitHub authentication failed"})
		return
	}

	res, err := h.accounts.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if res.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    res.Token,
			Path:     "/",
			MaxAge:   int(h.tokens.TTL().Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, h.redirectURL("userId="+res.User.ID), http.StatusSeeOther)
}

// HandleLogout deletes the token cookie. Tokens are stateless, so one that
// was copied elsewhere stays valid until it expires.
//
// HTTP: POST /auth/logout
func HandleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *GitHubHandler) redirectURL(query string) string {
	sep := "?"
	if strings.Contains(h.frontendURL, "?") {
		sep = "&"
	}
	return h.frontendURL + sep + query
}
