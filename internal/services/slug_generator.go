package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// SlugLength is the number of characters in a customer slug.
	SlugLength = 6
	// SlugAlphabet is the symbol set slugs are drawn from.
	SlugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// SlugGenerator produces candidate customer slugs. It does not check uniqueness.
type SlugGenerator interface {
	Generate() (string, error)
}

type randomSlugGenerator struct {
	alphabetSize *big.Int
}

// NewSlugGenerator returns a generator backed by crypto/rand. Every character is
// drawn independently and uniformly from SlugAlphabet.
func NewSlugGenerator() SlugGenerator {
	return &randomSlugGenerator{alphabetSize: big.NewInt(int64(len(SlugAlphabet)))}
}

func (g *randomSlugGenerator) Generate() (string, error) {
	buf := make([]byte, SlugLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, g.alphabetSize)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		buf[i] = SlugAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// IsValidSlug reports whether s has the shape of an issued slug.
func IsValidSlug(s string) bool {
	if len(s) != SlugLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
