package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/share-gate-api/internal/config"
	"github.com/share-gate-api/internal/domain"
)

// GrantClaims is the payload of a share-access grant token. The token is the
// server-checkable proof that (email) passed OTP verification for exactly one
// share tuple; the shared-resource endpoints validate it independently of any
// client-held state.
type GrantClaims struct {
	Email     string           `json:"email"`
	ShareType domain.ShareType `json:"share_type"`
	ShareID   string           `json:"share_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 grant tokens.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{privateKey: privKey, publicKey: pubKey, expiry: cfg.AccessTTL}, nil
}

// NewProviderFromKeys builds a Provider from in-memory keys. Used by tests and
// by deployments that inject keys instead of mounting files.
func NewProviderFromKeys(priv *rsa.PrivateKey, pub *rsa.PublicKey, expiry time.Duration) *Provider {
	return &Provider{privateKey: priv, publicKey: pub, expiry: expiry}
}

// Sign issues a grant token for the verified (email, shareType, shareID) tuple
// and returns it with its expiry.
func (p *Provider) Sign(email string, shareType domain.ShareType, shareID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(p.expiry)
	claims := GrantClaims{
		Email:     email,
		ShareType: shareType,
		ShareID:   shareID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a grant token, returning its claims.
func (p *Provider) Verify(tokenStr string) (*GrantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &GrantClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*GrantClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
