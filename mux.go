package oneblog

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// FederatedLogin is an external identity provider flow mounted by the App
type FederatedLogin interface {
	// HandleLogin redirects to the provider
	HandleLogin(w http.ResponseWriter, r *http.Request)

	// HandleCallback completes the flow the provider redirects back to
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// App holds every handle the blog's handlers need. It is built once at
// startup and treated as read-only afterwards.
type App struct {
	router     *mux.Router
	Session    *scs.SessionManager
	Middleware Middleware

	// Optional name that can be used as a prefix for all required vars
	AppName string

	// Name of the cookie where the auth token is stored
	AuthTokenSessionVar string

	// Must be passed in
	Users UserStore
	Posts PostStore

	Templates *Templates
	Local     *LocalAuth

	// Optional. Mounted at /login/google and /auth/callback when set
	Google FederatedLogin

	EnsureFederatedUser EnsureFederatedUserFunc

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey []byte

	// How long is a session valid for.  Defaults to 1 day
	SessionTimeout time.Duration

	// Whether cookies set by the app are restricted to https
	SecureCookies bool

	// Timezone posts are stamped in
	Location *time.Location

	Logger *slog.Logger

	// Clock used for post timestamps
	Now func() time.Time
}

func (a *App) EnsureDefaults() *App {
	if a.AppName == "" {
		a.AppName = "OneBlog"
	}
	if a.SessionTimeout <= 0 {
		a.SessionTimeout = 24 * time.Hour
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.AuthTokenSessionVar == "" {
		a.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if len(a.JWTSecretKey) == 0 {
		a.JWTSecretKey = make([]byte, 32)
		rand.Read(a.JWTSecretKey)
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Location == nil {
		a.Location = time.Local
	}
	if a.Now == nil {
		a.Now = time.Now
	}
	if a.Session == nil {
		a.Session = scs.New()
		a.Session.Lifetime = a.SessionTimeout
		a.Session.Cookie.Secure = a.SecureCookies
	}
	if a.EnsureFederatedUser == nil && a.Users != nil {
		a.EnsureFederatedUser = NewEnsureFederatedUserFunc(a.Users)
	}
	if a.Local == nil {
		a.Local = &LocalAuth{}
	}
	if a.Local.CreateUser == nil && a.Users != nil {
		a.Local.CreateUser = NewCreateUserFunc(a.Users)
	}
	if a.Local.ValidateCredentials == nil && a.Users != nil {
		a.Local.ValidateCredentials = NewCredentialsValidator(a.Users)
	}
	if a.Local.HandleUser == nil {
		a.Local.HandleUser = a.loginAndRedirect
	}
	if a.Local.RenderVerify == nil {
		a.Local.RenderVerify = a.renderVerify
	}

	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = a.AuthTokenSessionVar
	}
	if a.Middleware.SessionGetter == nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.Get(r.Context(), param)
		}
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.verifyJWT
	}
	if a.Middleware.LoadUser == nil && a.Users != nil {
		a.Middleware.LoadUser = a.Users.GetUserByEmail
	}
	a.Middleware.EnsureReasonableDefaults()
	return a
}

// Handler returns the full blog handler: session loading, request logging and all routes
func (a *App) Handler() http.Handler {
	a.EnsureDefaults()
	a.setupRoutes()
	return RequestLogger(a.Logger)(a.Session.LoadAndSave(a.router))
}

func (a *App) setupRoutes() {
	if a.router != nil {
		return
	}
	r := mux.NewRouter()
	protected := func(h http.HandlerFunc) http.Handler {
		return a.Middleware.EnsureUser(h)
	}

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static", StaticFiles())).Methods(http.MethodGet)

	r.Handle("/", protected(a.handleIndex)).Methods(http.MethodGet)
	verify := a.Middleware.ExtractUser(a.Local)
	r.Handle("/verify", verify).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/verify/{email}/{error}", verify).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/verify_email/{email}", a.handleVerifyEmail).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/logout", protected(a.onLogout)).Methods(http.MethodGet)

	if a.Google != nil {
		r.HandleFunc("/login/google", a.Google.HandleLogin).Methods(http.MethodGet)
		r.HandleFunc("/auth/callback", a.Google.HandleCallback).Methods(http.MethodGet)
	}

	r.Handle("/create", protected(a.handleCreate)).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/update/{id:[0-9]+}", protected(a.handleUpdate)).Methods(http.MethodGet, http.MethodPost)
	r.Handle("/delete/{id:[0-9]+}", protected(a.handleDelete)).Methods(http.MethodGet)
	a.router = r
}

func (a *App) verifyJWT(tokenString string) (loggedInUserId string, t any, err error) {
	return VerifyAuthToken(a.JWTSecretKey, a.JwtIssuer, tokenString)
}

func (a *App) renderVerify(w http.ResponseWriter, r *http.Request, page VerifyPage) {
	page.Flash = a.Session.PopString(r.Context(), "flash")
	page.User = CurrentUser(r)
	page.GoogleEnabled = a.Google != nil
	a.Templates.Render(w, r, "verify.html", page)
}

// Flash stores a one-shot message shown on the next render of the entry point
func (a *App) Flash(ctx context.Context, msg string) {
	a.Session.Put(ctx, "flash", msg)
}

func (a *App) onLogout(w http.ResponseWriter, r *http.Request) {
	slog.InfoContext(r.Context(), "logging out user", "user", a.Middleware.GetLoggedInUserId(r))
	a.setLoggedInUser(nil, w, r)
	http.Redirect(w, r, a.Local.getVerifyURL(), http.StatusFound)
}

/**
 * Called by the federated login bridge with the provider's user info after a
 * successful auth flow and redirect.
 *
 * Here is our opportunity to:
 * 	1. Find or create the account for the provider's email
 *	2. Set the right session cookies from this.
 */
func (a *App) SaveUserAndRedirect(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	email, _ := userInfo["email"].(string)
	name, _ := userInfo["name"].(string)
	user, err := a.EnsureFederatedUser(r.Context(), email, name)
	if err != nil {
		slog.ErrorContext(r.Context(), "error resolving federated user", "provider", provider, "email", email, "error", err)
		a.FederatedLoginFailed(w, r, err.Error())
		return
	}
	slog.InfoContext(r.Context(), "federated login", "authtype", authtype, "provider", provider, "email", user.Email)
	a.loginAndRedirect(user, w, r)
}

// FederatedLoginFailed flashes the failure and sends the user back to the entry point
func (a *App) FederatedLoginFailed(w http.ResponseWriter, r *http.Request, description string) {
	a.Flash(r.Context(), "Authentication failed: "+description)
	http.Redirect(w, r, a.Local.getVerifyURL(), http.StatusFound)
}

func (a *App) loginAndRedirect(user *User, w http.ResponseWriter, r *http.Request) {
	if err := a.setLoggedInUser(user, w, r); err != nil {
		a.serverError(w, r, "error establishing session", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// setLoggedInUser records user in the session and auth token cookie.
// A nil user logs out instead.
func (a *App) setLoggedInUser(user *User, w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if user == nil {
		if err := a.Session.Destroy(ctx); err != nil {
			slog.WarnContext(ctx, "error destroying session", "err", err)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     a.AuthTokenSessionVar,
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   a.SecureCookies,
		})
		return nil
	}

	// new token on privilege change
	if err := a.Session.RenewToken(ctx); err != nil {
		return err
	}
	a.Session.Put(ctx, a.Middleware.UserParamName, user.Id())

	tokenString, err := IssueAuthToken(a.JWTSecretKey, a.JwtIssuer, user.Id(), a.SessionTimeout)
	if err != nil {
		slog.WarnContext(ctx, "error signing token", "err", err)
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.AuthTokenSessionVar,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(a.SessionTimeout),
		MaxAge:   int(a.SessionTimeout.Seconds()),
		HttpOnly: true,
		Secure:   a.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (a *App) now() time.Time {
	return a.Now().In(a.Location)
}

func (a *App) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.Logger.ErrorContext(r.Context(), msg, "error", err, "request_id", RequestId(r.Context()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
