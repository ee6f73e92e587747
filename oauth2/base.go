package oauth2

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// BaseOAuth2 implements the authorization code flow shared by providers:
// redirect with a state cookie, check the state on callback, exchange the
// code and hand the provider's user info to HandleUser.
type BaseOAuth2 struct {
	Provider     string
	ClientId     string
	ClientSecret string
	CallbackURL  string
	HandleUser   HandleUserFunc

	// Called for cancelled consent, provider errors and failed exchanges.
	// Defaults to a redirect to FailureURL.
	OnError HandleErrorFunc

	// Where the default OnError sends the user
	FailureURL string

	// Fetches the provider's profile for an access token
	FetchUserInfo UserInfoFunc

	// Extra parameters on the authorization redirect
	AuthCodeOptions []oauth2.AuthCodeOption

	// Restrict the state cookie to https
	SecureCookies bool

	oauthConfig oauth2.Config
	httpClient  *http.Client
}

func NewBaseOAuth2(provider, clientId, clientSecret, callbackUrl string, handleUser HandleUserFunc) *BaseOAuth2 {
	return &BaseOAuth2{
		Provider:     provider,
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		HandleUser:   handleUser,
		FailureURL:   "/verify",
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
}

// SetOAuthEndpoint overrides the provider's auth and token URLs
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// SetHTTPClient sets the client used for token exchange and user info requests
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.httpClient = client
}

// Config returns a copy of the underlying oauth2 config
func (b *BaseOAuth2) Config() oauth2.Config {
	return b.oauthConfig
}

// HandleLogin redirects to the provider's consent page
func (b *BaseOAuth2) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateStateOauthCookie(w, b.SecureCookies)
	if err != nil {
		slog.ErrorContext(r.Context(), "error generating oauth state", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, b.oauthConfig.AuthCodeURL(state, b.AuthCodeOptions...), http.StatusFound)
}

// HandleCallback completes the flow the provider redirects back to
func (b *BaseOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(stateCookieName)
	if oauthState == nil {
		slog.WarnContext(r.Context(), "oauth state cookie missing", "provider", b.Provider)
		b.fail(w, r, "login session expired, please try again")
		return
	}
	clearStateOauthCookie(w, b.SecureCookies)
	if r.FormValue("state") != oauthState.Value {
		slog.WarnContext(r.Context(), "oauth state mismatch", "provider", b.Provider)
		b.fail(w, r, "invalid oauth state")
		return
	}
	if errCode := r.FormValue("error"); errCode != "" {
		desc := r.FormValue("error_description")
		if desc == "" {
			desc = errCode
		}
		slog.InfoContext(r.Context(), "provider returned error", "provider", b.Provider, "error", errCode)
		b.fail(w, r, desc)
		return
	}

	ctx := b.clientContext(r.Context())
	token, err := b.oauthConfig.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		slog.WarnContext(r.Context(), "code exchange failed", "provider", b.Provider, "error", err)
		b.fail(w, r, describeError(err))
		return
	}

	userInfo, err := b.FetchUserInfo(ctx, token)
	if err != nil {
		slog.WarnContext(r.Context(), "error fetching user info", "provider", b.Provider, "error", err)
		b.fail(w, r, describeError(err))
		return
	}
	b.HandleUser("oauth", b.Provider, token, userInfo, w, r)
}

// HTTPClient returns an authorized client for token that honours SetHTTPClient
func (b *BaseOAuth2) HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return b.oauthConfig.Client(b.clientContext(ctx), token)
}

func (b *BaseOAuth2) clientContext(ctx context.Context) context.Context {
	if b.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	return ctx
}

func (b *BaseOAuth2) fail(w http.ResponseWriter, r *http.Request, description string) {
	if b.OnError != nil {
		b.OnError(w, r, description)
		return
	}
	http.Redirect(w, r, b.FailureURL, http.StatusFound)
}

func describeError(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorDescription != "" {
			return re.ErrorDescription
		}
		if re.ErrorCode != "" {
			return re.ErrorCode
		}
	}
	return "could not verify your account with the provider"
}
