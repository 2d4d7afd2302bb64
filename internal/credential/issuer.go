package credential

import "context"

// Token is an issuer response: a fresh access token, an optional rotated
// refresh token, and the token lifetime in seconds.
type Token struct {
	AccessToken  string
	RefreshToken string // empty unless the issuer rotated it
	ExpiresIn    int64
}

// Issuer exchanges a refresh token for a fresh access token.
// Concrete implementations live in separate modules (e.g. oauth.google).
type Issuer interface {
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}
