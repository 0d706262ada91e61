// Package invite implements the invite code registry: code generation,
// validation, redemption and the human-readable reports built on top of them.
//
// The registry never signals the three expected outcomes of a lookup
// (not found, expired, usage limit reached) as errors. They are reported as
// a Reason on the result value. Errors are reserved for caller contract
// violations and broken randomness.
package invite

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// Alphabet is the set of characters a generated code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultCodeLength is used when a batch does not ask for a length.
	DefaultCodeLength = 8

	// MaxCodeLength bounds generated and accepted codes.
	MaxCodeLength = 64
)

// Bytes at or above unbiasedLimit are discarded so that byte % len(Alphabet)
// stays uniform.
const unbiasedLimit = 256 - 256%len(Alphabet)

// maxRejected caps how many biased bytes a single Code call will throw away
// before blaming the random source.
const maxRejected = 1024

var (
	// ErrInvalidLength is returned when a code length is outside 1..MaxCodeLength.
	ErrInvalidLength = fmt.Errorf("code length must be between 1 and %d", MaxCodeLength)

	// ErrRandomSource is returned when the random source keeps yielding unusable bytes.
	ErrRandomSource = errors.New("random source is not producing usable bytes")
)

// Generator produces invite codes from a random byte source.
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a Generator reading from r.
// A nil reader selects crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = crand.Reader
	}
	return &Generator{rand: r}
}

var defaultGenerator = NewGenerator(nil)

// GenerateCode returns a uniformly random code of the given length drawn from Alphabet.
// Uniqueness against any catalog is not checked here; see Catalog.Issue.
func GenerateCode(length int) (string, error) {
	return defaultGenerator.Code(length)
}

// Code returns a uniformly random code of the given length drawn from Alphabet.
func (g *Generator) Code(length int) (string, error) {
	if length <= 0 || length > MaxCodeLength {
		return "", ErrInvalidLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	rejected := 0
	for len(out) < length {
		if _, err := io.ReadFull(g.rand, buf[:length-len(out)]); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf[:length-len(out)] {
			if int(b) >= unbiasedLimit {
				rejected++
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
		}
		if rejected > maxRejected {
			return "", ErrRandomSource
		}
	}
	return string(out), nil
}
