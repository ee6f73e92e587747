// Package oneblog is a small multi-user blog with three ways in: registering
// with a password, logging in with that password, or signing in through Google.
//
// # Accounts
//
// An account is keyed by its email. Password accounts carry a PBKDF2 hash.
// Accounts created through Google carry no hash and remember the provider's
// display name as AuthUsername. Classify tells the sign in form which of the
// three paths applies to an email:
//
//	ops, err := oneblog.Classify(ctx, users, "new@x.com")
//	// ops.Register == true: no account yet
//	// ops.Login == true: password account
//	// both false: the account can only sign in through Google
//
// # Basic Usage
//
// Open the stores and build the App:
//
//	import (
//	    "github.com/panyam/oneblog"
//	    gormstore "github.com/panyam/oneblog/stores/gorm"
//	)
//
//	db, err := gormstore.Open("sqlite", "blog.db", gormstore.NewLogger(logger.Warn))
//	templates, err := oneblog.LoadTemplates()
//
//	app := (&oneblog.App{
//	    Users:     gormstore.NewUserStore(db),
//	    Posts:     gormstore.NewPostStore(db),
//	    Templates: templates,
//	}).EnsureDefaults()
//
// Optionally mount Google sign in:
//
//	google := oauth2.NewGoogleOAuth2(clientId, clientSecret, callbackURL, app.SaveUserAndRedirect)
//	google.OnError = app.FederatedLoginFailed
//	app.Google = google
//
// Then serve it:
//
//	http.ListenAndServe(":5000", app.Handler())
//
// # Sessions
//
// A successful login renews the scs session token and stores the email in the
// session. It also sets a signed HS256 token cookie, so requests carrying only
// that cookie or an "Authorization: Bearer" header are recognized too.
// Middleware.EnsureUser sends everyone else to /verify.
package oneblog
