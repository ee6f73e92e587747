package oneblog_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	oa "github.com/panyam/oneblog"
	"github.com/panyam/oneblog/oauth2"
	gormstore "github.com/panyam/oneblog/stores/gorm"
	oauth2lib "golang.org/x/oauth2"
)

// testBlog is a fully wired app served over a real listener
type testBlog struct {
	t        *testing.T
	DB       *gorm.DB
	Users    *gormstore.UserStore
	Posts    *gormstore.PostStore
	App      *oa.App
	Server   *httptest.Server
	Client   *http.Client
	Provider *mockProvider
}

// mockProvider stands in for Google's token and userinfo endpoints
type mockProvider struct {
	server    *httptest.Server
	userInfo  map[string]any
	failToken bool
}

func newMockProvider(t *testing.T) *mockProvider {
	m := &mockProvider{userInfo: map[string]any{"id": "1", "email": "fed@gmail.com", "name": "Fed User"}}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if m.failToken {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant", "error_description": "code expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.userInfo)
	})
	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func setupTestBlog(t *testing.T) *testBlog {
	t.Helper()
	db, err := gormstore.Open("sqlite", filepath.Join(t.TempDir(), "blog.db"), gormstore.NewLogger(logger.Silent))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	templates, err := oa.LoadTemplates()
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	tb := &testBlog{
		t:     t,
		DB:    db,
		Users: gormstore.NewUserStore(db),
		Posts: gormstore.NewPostStore(db),
	}
	tb.App = &oa.App{
		Users:     tb.Users,
		Posts:     tb.Posts,
		Templates: templates,
		Location:  time.FixedZone("JST", 9*60*60),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	tb.App.EnsureDefaults()

	tb.Provider = newMockProvider(t)
	google := oauth2.NewGoogleOAuth2("client-id", "client-secret", "http://localhost/auth/callback", tb.App.SaveUserAndRedirect)
	google.OnError = tb.App.FederatedLoginFailed
	google.UserInfoEndpoint = tb.Provider.server.URL + "/"
	google.SetHTTPClient(tb.Provider.server.Client())
	google.SetOAuthEndpoint(oauth2lib.Endpoint{
		AuthURL:  tb.Provider.server.URL + "/auth",
		TokenURL: tb.Provider.server.URL + "/token",
	})
	tb.App.Google = google

	tb.Server = httptest.NewServer(tb.App.Handler())
	t.Cleanup(tb.Server.Close)
	tb.Client = tb.newClient()
	return tb
}

// newClient returns a browser-like client that keeps cookies but does not follow redirects
func (tb *testBlog) newClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (tb *testBlog) get(c *http.Client, path string) (*http.Response, string) {
	tb.t.Helper()
	resp, err := c.Get(tb.Server.URL + path)
	if err != nil {
		tb.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp, readBody(tb.t, resp)
}

func (tb *testBlog) post(c *http.Client, path string, form url.Values) (*http.Response, string) {
	tb.t.Helper()
	resp, err := c.PostForm(tb.Server.URL+path, form)
	if err != nil {
		tb.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp, readBody(tb.t, resp)
}

func (tb *testBlog) register(c *http.Client, email, username, password string) *http.Response {
	tb.t.Helper()
	resp, _ := tb.post(c, "/verify", url.Values{
		"action":   {"register"},
		"email":    {email},
		"username": {username},
		"password": {password},
	})
	return resp
}

func (tb *testBlog) login(c *http.Client, email, password string) *http.Response {
	tb.t.Helper()
	resp, _ := tb.post(c, "/verify", url.Values{
		"action":   {"login"},
		"email":    {email},
		"password": {password},
	})
	return resp
}

// federatedLogin walks the redirect to the provider and back to the callback
func (tb *testBlog) federatedLogin(c *http.Client) *http.Response {
	tb.t.Helper()
	resp, _ := tb.get(c, "/login/google")
	if resp.StatusCode != http.StatusFound {
		tb.t.Fatalf("Expected redirect to provider, got %d", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		tb.t.Fatalf("Bad provider redirect: %v", err)
	}
	resp, _ = tb.get(c, "/auth/callback?code=abc&state="+url.QueryEscape(loc.Query().Get("state")))
	return resp
}

func (tb *testBlog) countUsers(email string) int64 {
	var n int64
	if err := tb.DB.Model(&gormstore.UserModel{}).Where("email = ?", email).Count(&n).Error; err != nil {
		tb.t.Fatalf("Failed to count users: %v", err)
	}
	return n
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return string(b)
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("Expected status %d, got %d", http.StatusFound, resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location && !strings.HasSuffix(got, location) {
		t.Fatalf("Expected redirect to %s, got %s", location, got)
	}
}
