package security

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const (
	DefaultTokenBytes = 32
	minTokenBytes     = 16
)

// TokenGenerator issues hex-encoded random tokens for email verification.
type TokenGenerator struct {
	n    int
	rand io.Reader
}

func NewTokenGenerator(n int) *TokenGenerator {
	if n <= 0 {
		n = DefaultTokenBytes
	}
	if n < minTokenBytes {
		n = minTokenBytes
	}
	return &TokenGenerator{n: n, rand: rand.Reader}
}

func (g *TokenGenerator) NewToken() (string, error) {
	b := make([]byte, g.n)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return hex.EncodeToString(b), nil
}
