package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petmatch/petmatch/internal/auth"
	"github.com/petmatch/petmatch/internal/handler"
)

type fakeGitHub struct {
	user    *auth.GitHubUser
	err     error
	gotCode string
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.test/login/oauth/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.gotCode = code
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func callback(h *handler.GitHubHandler, query, cookieState string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
	}
	rr := httptest.NewRecorder()
	h.HandleCallback(rr, req)
	return rr
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGitHubHandler_Login(t *testing.T) {
	api := newTestAPI(t)
	h := handler.NewGitHubHandler(&fakeGitHub{}, api.accounts, api.tokens, "http://localhost:3000/", api.logger)

	rr := httptest.NewRecorder()
	h.HandleLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := cookieNamed(rr, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "https://github.test/login/oauth/authorize?state="+state.Value, rr.Header().Get("Location"))
}

func TestGitHubHandler_Callback(t *testing.T) {
	api := newTestAPI(t)
	existing := api.register(t, "octo")

	t.Run("signs into the account with the same email", func(t *testing.T) {
		gh := &fakeGitHub{user: &auth.GitHubUser{ID: 7, Login: "octocat", Email: "octo@example.com"}}
		h := handler.NewGitHubHandler(gh, api.accounts, api.tokens, "http://localhost:3000/", api.logger)

		rr := callback(h, "code=abc&state=s1", "s1")
		require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
		assert.Equal(t, "abc", gh.gotCode)
		assert.Equal(t, "http://localhost:3000/?userId="+existing.User.ID, rr.Header().Get("Location"))

		token := cookieNamed(rr, "token")
		require.NotNil(t, token)
		userID, err := api.tokens.Validate(token.Value)
		require.NoError(t, err)
		assert.Equal(t, existing.User.ID, userID)
	})

	t.Run("creates an account on first sign-in", func(t *testing.T) {
		gh := &fakeGitHub{user: &auth.GitHubUser{ID: 8, Login: "newcomer", Email: "newcomer@example.com"}}
		h := handler.NewGitHubHandler(gh, api.accounts, api.tokens, "/", api.logger)

		rr := callback(h, "code=abc&state=s2", "s2")
		require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())

		user, err := api.store.GetUserByEmail(context.Background(), "newcomer@example.com")
		require.NoError(t, err)
		assert.Equal(t, "newcomer", user.Username)
		assert.Equal(t, "/?userId="+user.ID, rr.Header().Get("Location"))
	})

	tests := []struct {
		name        string
		provider    *fakeGitHub
		query       string
		cookie      string
		wantStatus  int
		wantLocated string
	}{
		{"missing state cookie", &fakeGitHub{}, "code=abc&state=s", "", http.StatusBadRequest, ""},
		{"state mismatch", &fakeGitHub{}, "code=abc&state=evil", "s", http.StatusBadRequest, ""},
		{"user denied", &fakeGitHub{}, "error=access_denied&state=s", "s", http.StatusSeeOther, "/?auth=denied"},
		{"missing code", &fakeGitHub{}, "state=s", "s", http.StatusBadRequest, ""},
		{"exchange fails", &fakeGitHub{err: errors.New("boom")}, "code=abc&state=s", "s", http.StatusBadGateway, ""},
		{"no usable email", &fakeGitHub{user: &auth.GitHubUser{ID: 9, Login: "ghost"}}, "code=abc&state=s", "s", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewGitHubHandler(tt.provider, api.accounts, api.tokens, "", api.logger)
			rr := callback(h, tt.query, tt.cookie)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantLocated != "" {
				assert.Equal(t, tt.wantLocated, rr.Header().Get("Location"))
			}
			assert.Nil(t, cookieNamed(rr, "token"))
		})
	}
}
