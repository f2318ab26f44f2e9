package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Keypair holds an ephemeral Ed25519 signing keypair. Keys are generated at
// process start; restarting the service invalidates outstanding tokens, which
// is acceptable because sessions are short-lived anyway.
type Keypair struct {
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEphemeralKeypair generates a fresh Ed25519 keypair with the given kid.
func NewEphemeralKeypair(kid string) (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ed25519 key: %w", err)
	}
	return &Keypair{kid: kid, priv: priv, pub: pub}, nil
}

func (k *Keypair) KID() string { return k.kid }

// IsReady reports whether key material is loaded.
func (k *Keypair) IsReady() bool {
	return k != nil && len(k.priv) == ed25519.PrivateKeySize
}

// Sign turns claims into a signed JWT string.
func (k *Keypair) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = k.kid
	return t.SignedString(k.priv)
}

// Verifier validates session tokens signed with the process keypair.
type Verifier struct {
	key    *Keypair
	issuer string
}

// NewVerifier creates a Verifier bound to the given keypair and issuer.
func NewVerifier(key *Keypair, issuer string) *Verifier {
	return &Verifier{key: key, issuer: issuer}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid != v.key.kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", kid)
		}
		return v.key.pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("jwtx: invalid token claims")
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return nil, err
	}

	return claims, nil
}
