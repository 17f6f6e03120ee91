// Package auth wraps the optional Clerk-backed session verification used
// to gate the admin-facing routes (delete/reprocess). It is deliberately
// inert when no secret key is configured: the admission pipeline itself
// has no per-user concept, so auth is an optional perimeter rather than a
// hard dependency of the pipeline.
package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

// ErrNotConfigured is returned by VerifyToken when CLERK_SECRET_KEY is unset.
var ErrNotConfigured = errors.New("clerk: not configured")

var configured bool

// InitClerk wires the Clerk SDK when CLERK_SECRET_KEY is present. Absence
// is not an error: it leaves Configured() false and VerifyToken returning
// ErrNotConfigured, so callers can treat auth as optional.
func InitClerk() {
	secretKey := os.Getenv("CLERK_SECRET_KEY")
	if secretKey == "" {
		return
	}
	clerk.SetKey(secretKey)
	configured = true
}

// Configured reports whether Clerk has a secret key wired.
func Configured() bool {
	return configured
}

// VerifyToken verifies a session token and returns its claims.
func VerifyToken(token string) (*clerk.SessionClaims, error) {
	if !configured {
		return nil, ErrNotConfigured
	}
	claims, err := jwt.Verify(context.Background(), &jwt.VerifyParams{
		Token:  token,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
