// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const resetTokenTTL = 30 * time.Minute

type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string // key id for rotation
	Ttl      time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		priv:     priv,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		Ttl:      ttl,
	}
}

// Generate signs a token. An empty jti is replaced with a fresh ULID; the jti is returned.
func (g *Generator) Generate(claims Claims, jti string) (string, string, error) {
	if g.priv == nil {
		return "", "", fmt.Errorf("jwt generator has nil private key")
	}

	now := time.Now()
	if jti == "" {
		jti = ulid.Make().String()
	}
	expiresIn := g.Ttl
	if claims.IsTemp {
		expiresIn = resetTokenTTL
	}

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    g.issuer,
		Subject:   fmt.Sprintf("%d", claims.UserID),
		Audience:  []string{g.audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        jti,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	return signed, jti, err
}

// GenerateAccessToken issues the bearer token of a login session.
func (g *Generator) GenerateAccessToken(userID int64, role, email, deviceID, sessionID string) (string, error) {
	tok, _, err := g.Generate(Claims{
		UserID:   userID,
		Role:     role,
		Email:    email,
		DeviceID: deviceID,
		Purpose:  PurposeAccess,
	}, sessionID)
	return tok, err
}

// GeneratePasswordResetToken generates a temporary token for password reset
func (g *Generator) GeneratePasswordResetToken(userID int64, email string) (string, string, error) {
	return g.Generate(Claims{
		UserID:  userID,
		Email:   email,
		IsTemp:  true,
		Purpose: PurposePasswordReset,
	}, "")
}
