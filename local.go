package oneblog

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
)

// Error annotations carried in the /verify/{email}/{error} path
const (
	VerifyErrorInvalidPassword = "invalid_password"
)

// VerifyPage is what the verification template renders
type VerifyPage struct {
	Email       string
	ShowMessage bool
	Message     string
	Flash       string

	// Set when the request already carries a signed in user
	User *User

	// Whether the Google sign in link is offered
	GoogleEnabled bool
}

// LoginFunc is called once a user has been authenticated by the local flow
type LoginFunc func(user *User, w http.ResponseWriter, r *http.Request)

// RenderVerifyFunc renders the verification entry point
type RenderVerifyFunc func(w http.ResponseWriter, r *http.Request, page VerifyPage)

// LocalAuth handles the email based verification entry point: registration
// and password login.
type LocalAuth struct {
	// Validates credentials during login
	ValidateCredentials CredentialsValidator

	// Creates a new user (for registration)
	CreateUser CreateUserFunc

	// Called after successful registration or login
	HandleUser LoginFunc

	// Renders the entry point on GET
	RenderVerify RenderVerifyFunc

	// Path of the entry point. Defaults to /verify
	VerifyURL string

	// Form field names
	ActionField   string
	EmailField    string
	UsernameField string
	PasswordField string
}

// ServeHTTP serves both GET and POST on the entry point
func (a *LocalAuth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		a.HandleSubmit(w, r)
		return
	}
	a.HandleVerifyForm(w, r)
}

// HandleVerifyForm renders the entry point, with an error message when the
// path carries one from a prior failed attempt.
func (a *LocalAuth) HandleVerifyForm(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	page := VerifyPage{}
	if vars["error"] == VerifyErrorInvalidPassword {
		page.ShowMessage = true
		page.Message = "Error : Invalid password"
		page.Email = vars["email"]
	}
	a.RenderVerify(w, r, page)
}

// HandleSubmit dispatches a form submission on its action field
func (a *LocalAuth) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	switch r.PostFormValue(a.getActionField()) {
	case "register":
		a.HandleRegister(w, r)
	case "login":
		a.HandleLogin(w, r)
	default:
		http.Redirect(w, r, a.getVerifyURL(), http.StatusFound)
	}
}

// HandleRegister creates a password account and logs it in
func (a *LocalAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if a.CreateUser == nil {
		http.Error(w, "Registration not configured", http.StatusInternalServerError)
		return
	}
	creds := &Credentials{
		Email:    NormalizeEmail(r.PostFormValue(a.getEmailField())),
		Username: r.PostFormValue(a.getUsernameField()),
		Password: r.PostFormValue(a.getPasswordField()),
	}
	if creds.Email == "" || creds.Password == "" {
		http.Redirect(w, r, a.getVerifyURL(), http.StatusFound)
		return
	}

	user, err := a.CreateUser(r.Context(), creds)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		slog.ErrorContext(r.Context(), "error creating user", "email", creds.Email, "error", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	a.HandleUser(user, w, r)
}

// HandleLogin validates an email/password pair. Failures go back to the entry
// point with the invalid password annotation.
func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if a.ValidateCredentials == nil {
		http.Error(w, "Login not configured", http.StatusInternalServerError)
		return
	}
	email := NormalizeEmail(r.PostFormValue(a.getEmailField()))
	password := r.PostFormValue(a.getPasswordField())

	user, err := a.ValidateCredentials(r.Context(), email, password)
	if err != nil || user == nil {
		if err != nil && !errors.Is(err, ErrInvalidCredentials) {
			slog.ErrorContext(r.Context(), "error validating user", "email", email, "error", err)
		}
		http.Redirect(w, r, a.invalidPasswordURL(email), http.StatusFound)
		return
	}
	a.HandleUser(user, w, r)
}

func (a *LocalAuth) invalidPasswordURL(email string) string {
	// mux matches on the decoded path, so an escaped slash would not route back here
	if email == "" || strings.Contains(email, "/") {
		return a.getVerifyURL()
	}
	return a.getVerifyURL() + "/" + url.PathEscape(email) + "/" + VerifyErrorInvalidPassword
}

func (a *LocalAuth) getVerifyURL() string {
	if a.VerifyURL != "" {
		return a.VerifyURL
	}
	return "/verify"
}

func (a *LocalAuth) getActionField() string {
	if a.ActionField != "" {
		return a.ActionField
	}
	return "action"
}

func (a *LocalAuth) getEmailField() string {
	if a.EmailField != "" {
		return a.EmailField
	}
	return "email"
}

func (a *LocalAuth) getUsernameField() string {
	if a.UsernameField != "" {
		return a.UsernameField
	}
	return "username"
}

func (a *LocalAuth) getPasswordField() string {
	if a.PasswordField != "" {
		return a.PasswordField
	}
	return "password"
}
