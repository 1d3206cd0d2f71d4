// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// ErrForbidden is returned when a valid token carries the wrong role.
var ErrForbidden = errors.New("token role is not allowed here")

// Signer issues and verifies EdDSA tokens whose subject is a player code or "admin".
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// expire is the token lifetime; 0 issues tokens without exp.
	expire time.Duration
}

// NewSigner generates a fresh ed25519 key pair at runtime.
func NewSigner(expire time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// NewSignerFromPath reads a raw ed25519 private key from file; the public key is derived from it.
func NewSignerFromPath(privatePath string, expire time.Duration) (*Signer, error) {
	data, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key file has %d bytes, want %d", len(data), ed25519.PrivateKeySize)
	}
	priv := ed25519.PrivateKey(data)
	return &Signer{privateKey: priv, publicKey: priv.Public().(ed25519.PublicKey), expire: expire}, nil
}

// Issue signs a token for subject with role.
func (s *Signer) Issue(subject, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
	}
	if s.expire > 0 {
		claims["exp"] = time.Now().Add(s.expire).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks tokenString and returns its subject and role.
func (s *Signer) Verify(tokenString string) (subject, role string, err error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid jwt claims")
	}
	subject, ok = claims["sub"].(string)
	if !ok || subject == "" {
		return "", "", fmt.Errorf("missing sub in jwt")
	}
	role, _ = claims["role"].(string)
	return subject, role, nil
}

// VerifyRole is Verify plus a role check.
func (s *Signer) VerifyRole(tokenString, want string) (string, error) {
	subject, role, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}
	if role != want {
		return "", ErrForbidden
	}
	return subject, nil
}
