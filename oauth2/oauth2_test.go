package oauth2_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/panyam/oneblog/oauth2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oauth2lib "golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// mockOAuthServer creates a mock OAuth provider server that handles:
// - /token endpoint for token exchange
// - /oauth2/v2/userinfo endpoint for user data retrieval
type mockOAuthServer struct {
	server *httptest.Server

	// Configuration for responses
	tokenResponse    map[string]any
	userInfoResponse map[string]any
	tokenError       bool
	userInfoError    bool

	lastAuthorization string
}

func newMockOAuthServer() *mockOAuthServer {
	mock := &mockOAuthServer{
		tokenResponse: map[string]any{
			"access_token": "mock_access_token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		},
		userInfoResponse: map[string]any{
			"id":    "12345",
			"email": "testuser@example.com",
			"name":  "Test User",
		},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if mock.tokenError {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error":             "invalid_grant",
				"error_description": "Bad Request",
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.tokenResponse)
	})

	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		mock.lastAuthorization = r.Header.Get("Authorization")
		if mock.userInfoError {
			http.Error(w, "user info failed", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.userInfoResponse)
	})

	mock.server = httptest.NewServer(mux)
	return mock
}

func (m *mockOAuthServer) Close() {
	m.server.Close()
}

type handledCall struct {
	called   bool
	authtype string
	provider string
	userInfo map[string]any
}

type failedCall struct {
	called      bool
	description string
}

func newTestGoogle(mock *mockOAuthServer, handled *handledCall, failed *failedCall) *oauth2.GoogleOAuth2 {
	g := oauth2.NewGoogleOAuth2(
		"test-client-id",
		"test-client-secret",
		"http://localhost:5000/auth/callback",
		func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
			handled.called = true
			handled.authtype = authtype
			handled.provider = provider
			handled.userInfo = userInfo
			w.WriteHeader(http.StatusOK)
		},
	)
	g.OnError = func(w http.ResponseWriter, r *http.Request, description string) {
		failed.called = true
		failed.description = description
		http.Redirect(w, r, "/verify", http.StatusFound)
	}
	g.UserInfoEndpoint = mock.server.URL + "/"
	g.SetHTTPClient(mock.server.Client())
	g.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  mock.server.URL + "/auth",
		TokenURL: mock.server.URL + "/token",
	})
	return g
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGoogleLoginRedirect(t *testing.T) {
	g := oauth2.NewGoogleOAuth2("test-client-id", "test-client-secret", "http://localhost:5000/auth/callback", nil)

	req := httptest.NewRequest(http.MethodGet, "/login/google", nil)
	rr := httptest.NewRecorder()
	g.HandleLogin(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", location.Host)

	query := location.Query()
	assert.Equal(t, "test-client-id", query.Get("client_id"))
	assert.Equal(t, "http://localhost:5000/auth/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "openid profile email", query.Get("scope"))
	assert.Equal(t, "select_account", query.Get("prompt"))

	cfg := g.Config()
	assert.Equal(t, []string{"openid", "profile", "email"}, cfg.Scopes)
	assert.Equal(t, "http://localhost:5000/auth/callback", cfg.RedirectURL)
	assert.Equal(t, google.Endpoint.TokenURL, cfg.Endpoint.TokenURL)

	stateCookie := findCookie(rr.Result().Cookies(), "oauthstate")
	require.NotNil(t, stateCookie, "expected oauthstate cookie")
	assert.NotEmpty(t, stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
	assert.Equal(t, stateCookie.Value, query.Get("state"), "state in URL should match cookie")
}

func TestGoogleCallback(t *testing.T) {
	mock := newMockOAuthServer()
	defer mock.Close()

	callback := func(g *oauth2.GoogleOAuth2, query string, state string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
		if state != "" {
			req.AddCookie(&http.Cookie{Name: "oauthstate", Value: state})
		}
		rr := httptest.NewRecorder()
		g.HandleCallback(rr, req)
		return rr
	}

	t.Run("rejects missing state cookie", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)

		rr := callback(g, "code=test_code&state=test_state", "")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handled.called, "HandleUser should not be called without state cookie")
		assert.True(t, failed.called)
	})

	t.Run("rejects mismatched state", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)

		rr := callback(g, "code=test_code&state=wrong_state", "correct_state")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handled.called)
		assert.Contains(t, failed.description, "invalid oauth state")
	})

	t.Run("successful callback flow", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)
		mock.userInfoResponse = map[string]any{
			"id":    "google123",
			"email": "user@gmail.com",
			"name":  "Google User",
		}

		rr := callback(g, "code=valid_code&state=valid_state", "valid_state")

		assert.Equal(t, http.StatusOK, rr.Code)
		require.True(t, handled.called, "HandleUser should have been called")
		assert.False(t, failed.called)
		assert.Equal(t, "oauth", handled.authtype)
		assert.Equal(t, "google", handled.provider)
		assert.Equal(t, "user@gmail.com", handled.userInfo["email"])
		assert.Equal(t, "Google User", handled.userInfo["name"])
		assert.Equal(t, "Bearer mock_access_token", mock.lastAuthorization)

		cleared := findCookie(rr.Result().Cookies(), "oauthstate")
		require.NotNil(t, cleared)
		assert.True(t, cleared.MaxAge < 0, "state cookie should be cleared")
	})

	t.Run("user cancelled consent", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)

		rr := callback(g, "error=access_denied&state=valid_state", "valid_state")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handled.called)
		assert.Equal(t, "access_denied", failed.description)
	})

	t.Run("token exchange failure", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)
		mock.tokenError = true
		defer func() { mock.tokenError = false }()

		rr := callback(g, "code=bad_code&state=valid_state", "valid_state")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handled.called, "HandleUser should not be called on token exchange failure")
		assert.Equal(t, "Bad Request", failed.description)
	})

	t.Run("user info failure", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)
		mock.userInfoError = true
		defer func() { mock.userInfoError = false }()

		rr := callback(g, "code=valid_code&state=valid_state", "valid_state")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.False(t, handled.called, "HandleUser should not be called on user info failure")
		assert.True(t, failed.called)
	})

	t.Run("default failure redirects to verify", func(t *testing.T) {
		var handled handledCall
		var failed failedCall
		g := newTestGoogle(mock, &handled, &failed)
		g.OnError = nil

		rr := callback(g, "error=access_denied&state=s", "s")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.True(t, strings.HasSuffix(rr.Header().Get("Location"), "/verify"))
	})
}
