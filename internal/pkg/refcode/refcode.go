// Package refcode generates shareable referral codes: a fixed prefix followed
// by the upper-case hex of crypto-random bytes.
package refcode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	Prefix   = "BR"
	numBytes = 4
)

var pattern = regexp.MustCompile(`^BR[0-9A-F]{8}$`)

// Generator produces referral codes from a random source.
type Generator struct {
	rand io.Reader
}

// New returns a Generator backed by crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader is used by tests to force collisions.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns a code such as "BR1A2B3C4D". Uniqueness is enforced by the
// store; callers retry on domain.ErrRefCodeTaken.
func (g *Generator) Generate() (string, error) {
	b := make([]byte, numBytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("generate referral code: %w", err)
	}
	return Prefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// Valid reports whether code has the generator's format.
func Valid(code string) bool {
	return pattern.MatchString(code)
}
