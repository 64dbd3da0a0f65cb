package accounts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken  = errors.New("invalid identity token")
	ErrWrongAudience = errors.New("identity token issued for another client")
	ErrTokenExpired  = errors.New("identity token expired")
)

// Identity is what the app reads from a Google ID token.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// DecodeIDToken reads the claims of a Google ID token. The signature is not
// checked; the token is trusted as far as the sign-in widget that produced it.
// When clientID is set the audience must match it.
func DecodeIDToken(token, clientID string, now time.Time) (*Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrInvalidToken
	}
	var claims googleClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: email claim missing", ErrInvalidToken)
	}
	if clientID != "" && !claims.VerifyAudience(clientID, true) {
		return nil, ErrWrongAudience
	}
	if claims.ExpiresAt != nil && !claims.VerifyExpiresAt(now, true) {
		return nil, ErrTokenExpired
	}
	return &Identity{
		Subject:       claims.Subject,
		Email:         strings.ToLower(claims.Email),
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
