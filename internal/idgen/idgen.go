// Package idgen produces the short alphanumeric tokens used as link and user ids.
package idgen

import (
	"sync"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the 62-symbol set tokens are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// nanoid refuses lengths below this.
const minNanoidLength = 2

// Generator returns a new token on each call.
type Generator func() string

var generators sync.Map // int -> Generator

// NewGenerator returns a generator of fixed-length tokens over Alphabet.
func NewGenerator(length int) (Generator, error) {
	if length < minNanoidLength {
		gen, err := nanoid.CustomASCII(Alphabet, minNanoidLength)
		if err != nil {
			return nil, err
		}

		return func() string {
			if length <= 0 {
				return ""
			}

			return gen()[:length]
		}, nil
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	return gen, nil
}

// Generate returns a token of exactly length characters drawn uniformly from Alphabet.
// A non-positive length yields the empty string.
func Generate(length int) string {
	if length <= 0 {
		return ""
	}

	if gen, ok := generators.Load(length); ok {
		return gen.(Generator)()
	}

	gen, err := NewGenerator(length)
	if err != nil {
		// lengths above the nanoid maximum are assembled from shorter chunks
		return generateChunked(length)
	}

	actual, _ := generators.LoadOrStore(length, gen)

	return actual.(Generator)()
}

const maxChunk = 255

func generateChunked(length int) string {
	buf := make([]byte, 0, length)
	for len(buf) < length {
		n := min(length-len(buf), maxChunk)
		buf = append(buf, Generate(n)...)
	}

	return string(buf)
}
