// Package codes generates short, human-typeable group codes.
package codes

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Alphabet excludes glyphs that are easy to confuse when read aloud or typed:
// 0/O and 1/I.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the number of characters in a code.
const Length = 6

// maxAttempts bounds the re-roll loop. With 32^6 possible codes this is only
// reached if the taken predicate is broken.
const maxAttempts = 1000

// ErrExhausted is returned when no free code was found within maxAttempts.
var ErrExhausted = errors.New("no free code found")

// Generator draws codes uniformly from Alphabet.
// It is safe for concurrent use if its random source is.
type Generator struct {
	rand io.Reader
}

// New returns a Generator backed by crypto/rand.
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader returns a Generator that draws from r. Used by tests to make
// the sequence of codes deterministic.
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate draws codes until taken reports false for one of them.
//
// The caller must hold whatever lock makes taken and the subsequent insert of
// the returned code one atomic step.
func (g *Generator) Generate(taken func(code string) bool) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
	}
	return "", ErrExhausted
}

// draw returns one random code using rejection sampling so every character
// of Alphabet is equally likely.
func (g *Generator) draw() (string, error) {
	const limit = 256 - 256%len(Alphabet)

	out := make([]byte, 0, Length)
	buf := make([]byte, Length)
	for len(out) < Length {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == Length {
				break
			}
		}
	}
	return string(out), nil
}

// Valid reports whether s has the shape of a generated code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
