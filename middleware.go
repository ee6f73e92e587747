package oneblog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type userParamNameKey string

type currentUserKey struct{}

type requestIdKey struct{}

// Middleware resolves the logged in user once per request
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	UserParamName       string
	SessionGetter       func(r *http.Request, param string) any

	// Where unauthenticated requests to protected routes are sent
	RedirectURL string

	VerifyToken func(tokenString string) (loggedInUserId string, token any, err error)

	// Optional. When set, ids that no longer map to an account are treated as logged out.
	LoadUser func(ctx context.Context, userId string) (*User, error)
}

/**
 * Ensures that config values have reasonable defaults.
 */
func (a *Middleware) EnsureReasonableDefaults() {
	if a.UserParamName == "" {
		a.UserParamName = "loggedInUserId"
	}
	if a.RedirectURL == "" {
		a.RedirectURL = "/verify"
	}
	if a.AuthTokenHeaderName == "" {
		a.AuthTokenHeaderName = "Authorization"
	}
}

// GetLoggedInUserId returns the ID of the logged in user from the current request
func (a *Middleware) GetLoggedInUserId(r *http.Request) string {
	if v, ok := r.Context().Value(userParamNameKey(a.UserParamName)).(string); ok && v != "" {
		return v
	}

	if a.SessionGetter != nil {
		if userParam, ok := a.SessionGetter(r, a.UserParamName).(string); ok && userParam != "" {
			return userParam
		}
	}

	if a.VerifyToken == nil {
		return ""
	}

	// Fall back to an auth token from the header or cookie
	var authTokens []string
	for _, h := range r.Header.Values(a.AuthTokenHeaderName) {
		if tok, found := strings.CutPrefix(h, "Bearer "); found && tok != "" {
			authTokens = append(authTokens, tok)
		}
	}
	if a.AuthTokenCookieName != "" {
		for _, cookie := range r.CookiesNamed(a.AuthTokenCookieName) {
			if len(cookie.Value) > 0 {
				authTokens = append(authTokens, cookie.Value)
			}
		}
	}

	for _, authToken := range authTokens {
		loggedInUserId, _, err := a.VerifyToken(authToken)
		if err == nil && loggedInUserId != "" {
			return loggedInUserId
		} else if err != nil {
			slog.Debug("error verifying token", "error", err)
		}
	}
	return ""
}

// ExtractUser loads the logged in user into the request context without
// enforcing that one exists.
func (a *Middleware) ExtractUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _ = a.resolve(r)
		next.ServeHTTP(w, r)
	})
}

// EnsureUser redirects to RedirectURL when nobody is logged in
func (a *Middleware) EnsureUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := a.resolve(r)
		if !ok {
			http.Redirect(w, r, a.RedirectURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Middleware) resolve(r *http.Request) (*http.Request, bool) {
	userId := a.GetLoggedInUserId(r)
	if userId == "" {
		return r, false
	}
	ctx := context.WithValue(r.Context(), userParamNameKey(a.UserParamName), userId)
	if a.LoadUser != nil {
		user, err := a.LoadUser(ctx, userId)
		if err != nil {
			if !errors.Is(err, ErrUserNotFound) {
				slog.ErrorContext(ctx, "error loading user", "user", userId, "error", err)
			}
			return r, false
		}
		ctx = context.WithValue(ctx, currentUserKey{}, user)
	}
	return r.WithContext(ctx), true
}

// CurrentUser returns the user resolved by the middleware, if any
func CurrentUser(r *http.Request) *User {
	user, _ := r.Context().Value(currentUserKey{}).(*User)
	return user
}

// RequestId returns the id assigned by RequestLogger
func RequestId(ctx context.Context) string {
	id, _ := ctx.Value(requestIdKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestLogger tags each request with an X-Request-ID and logs its outcome
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIdKey{}, id)))
			logger.Info("request",
				"id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}
