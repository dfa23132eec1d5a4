// Package token generates the short random identifiers that index stored URLs.
package token

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultLength is the number of characters in a generated token.
const DefaultLength = 10

const alphabet = "0123456789abcdef"

// Generator produces fixed-length lowercase hexadecimal tokens from a
// cryptographically secure random source. It does not check generated
// tokens for uniqueness.
type Generator struct {
	length int
}

// NewGenerator creates a Generator for tokens of the given length.
// A non-positive length falls back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Generate returns a new random token.
func (g *Generator) Generate() (string, error) {
	const op = "token.Generator.Generate"

	t, err := gonanoid.Generate(alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read random source: %w", op, err)
	}

	return t, nil
}

// IsValid reports whether s has the shape of a token of the given length.
func IsValid(s string, length int) bool {
	if len(s) != length {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}
