package oauth2

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type GoogleOAuth2 struct {
	*BaseOAuth2

	// UserInfoEndpoint overrides the base URL of Google's userinfo API.
	// Can be overridden for testing.
	UserInfoEndpoint string
}

// NewGoogleOAuth2 creates the Google login flow. It asks for the openid,
// profile and email scopes and always shows the account chooser.
func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *GoogleOAuth2 {
	out := &GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2("google", clientId, clientSecret, callbackUrl, handleUser),
	}
	out.oauthConfig.Endpoint = google.Endpoint
	out.oauthConfig.Scopes = []string{"openid", "profile", "email"}
	out.AuthCodeOptions = []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	out.FetchUserInfo = out.fetchUserInfo
	return out
}

func (g *GoogleOAuth2) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	opts := []option.ClientOption{option.WithHTTPClient(g.HTTPClient(ctx, token))}
	if g.UserInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.UserInfoEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed creating userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo response has no email")
	}
	return map[string]any{
		"id":             info.Id,
		"email":          info.Email,
		"name":           info.Name,
		"picture":        info.Picture,
		"verified_email": info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}
