package oneblog

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssueAuthToken signs an HS256 token whose subject is the user's email
func IssueAuthToken(secretKey []byte, issuer, userId string, validFor time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userId,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validFor)),
	})
	return token.SignedString(secretKey)
}

// VerifyAuthToken checks the signature, issuer and expiry of a token from
// IssueAuthToken and returns its subject.
func VerifyAuthToken(secretKey []byte, issuer, tokenString string) (loggedInUserId string, t any, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", nil, err
	}
	if !token.Valid {
		return "", nil, fmt.Errorf("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", nil, err
	} else if sub == "" {
		return "", nil, fmt.Errorf("subject not found")
	}
	return sub, token, nil
}
