package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pixeltoplanet/carbonfooter-service/internal/ports"
)

// JWTVerifier implements RS256 token verification for API actors.
// Keys live at adapter level so the application layer stays crypto-agnostic.
type JWTVerifier struct {
	kid        string
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

// NewJWTVerifier builds a verifier from a configured public key; the private
// side stays nil, which disables Sign.
func NewJWTVerifier(kid, publicKeyPEM string) (*JWTVerifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("jwt public key is required")
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &JWTVerifier{kid: kid, publicKey: pub}, nil
}

// NewEphemeralJWTVerifier creates an in-memory keypair for local/dev and
// tests; it can both sign and verify.
func NewEphemeralJWTVerifier(kid string) (*JWTVerifier, error) {
	if kid == "" {
		kid = "ephemeral-key-1"
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &JWTVerifier{
		kid:        kid,
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}, nil
}

type actorJWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sign mints a token for the given actor. Only available with an ephemeral
// or otherwise private-key-backed verifier.
func (v *JWTVerifier) Sign(claims ports.ActorClaims, ttl time.Duration) (string, error) {
	if v.privateKey == nil {
		return "", errors.New("signing key not configured")
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, actorJWTClaims{
		Role: claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	token.Header["kid"] = v.kid
	return token.SignedString(v.privateKey)
}

func (v *JWTVerifier) Verify(tokenString string) (ports.ActorClaims, error) {
	var claims actorJWTClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return ports.ActorClaims{}, err
	}
	if !token.Valid {
		return ports.ActorClaims{}, errors.New("invalid token")
	}
	return ports.ActorClaims{SubjectID: claims.Subject, Role: claims.Role}, nil
}

func parseRSAPublic(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return pub, nil
}
