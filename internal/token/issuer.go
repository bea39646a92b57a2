// Package token generates the opaque API tokens and single-use nonces that
// drive the subscription confirmation handshake.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// DefaultTokenBytes is the entropy of an API token before hex encoding.
	DefaultTokenBytes = 48
	nonceBytes        = 16
)

// Issuer produces random tokens and nonces. No persisted state drives the
// randomness; collisions are guarded against at the store, not here.
type Issuer struct {
	rand       io.Reader
	tokenBytes int
}

// NewIssuer returns an Issuer backed by crypto/rand. tokenBytes <= 0 selects
// DefaultTokenBytes.
func NewIssuer(tokenBytes int) *Issuer {
	return NewIssuerWithRand(tokenBytes, rand.Reader)
}

// NewIssuerWithRand allows tests to supply a deterministic byte source.
func NewIssuerWithRand(tokenBytes int, r io.Reader) *Issuer {
	if tokenBytes <= 0 {
		tokenBytes = DefaultTokenBytes
	}
	return &Issuer{rand: r, tokenBytes: tokenBytes}
}

// Token returns a fresh hex-encoded API token.
func (i *Issuer) Token() (string, error) {
	return i.readHex(i.tokenBytes)
}

// Nonce returns a fresh hex-encoded single-use nonce.
func (i *Issuer) Nonce() (string, error) {
	return i.readHex(nonceBytes)
}

func (i *Issuer) readHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
