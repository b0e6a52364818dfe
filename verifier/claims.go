package verifier

import "github.com/golang-jwt/jwt/v5"

// Claims represents the claim set of a verified token. Profile fields are
// populated only when the identity provider includes them (id tokens).
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// UserID returns the subject identifier
func (c *Claims) UserID() string {
	return c.Subject
}
