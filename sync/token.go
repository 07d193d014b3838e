// ABOUTME: Access token claim decoding
// ABOUTME: Reads the subject and profile claims without verifying the signature
package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed access token")
	ErrNoSubject      = errors.New("access token has no subject")
)

// Claims are the access token claims this tool reads.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Name     string `json:"name,omitempty"`
}

// DecodeClaims parses token claims. Neither the signature nor the expiry is
// checked; the token is trusted as delivered by the identity provider.
func DecodeClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return &claims, nil
}

// UserIDFromToken returns the token subject, of the form provider|localid.
func UserIDFromToken(token string) (string, error) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// SplitUserID splits provider|localid. An id without a separator is all local.
func SplitUserID(userID string) (provider, local string) {
	provider, local, found := strings.Cut(userID, "|")
	if !found {
		return "", userID
	}
	return provider, local
}
