package random

import (
	"crypto/rand"
	"fmt"
	"io"
)

// TokenAlphabet is the character set of session tokens. It must not contain
// '.', which separates the session id from the token in a credential.
const TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Bytes at or above this are rejected so every character is equally likely
const rejectFrom = 256 - 256%len(TokenAlphabet)

// Random produces session tokens. It can be mocked for testing.
type Random interface {
	// Token returns n characters drawn uniformly from TokenAlphabet
	Token(n int) string
}

// CryptoRandom draws tokens from crypto/rand
type CryptoRandom struct {
	source io.Reader
}

// New creates a CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{source: rand.Reader}
}

// Token returns n uniformly random TokenAlphabet characters. It panics if
// the entropy source fails, since no safe token can be issued then.
func (r *CryptoRandom) Token(n int) string {
	if n <= 0 {
		return ""
	}

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		if _, err := io.ReadFull(r.source, buf); err != nil {
			panic(fmt.Sprintf("reading token entropy: %v", err))
		}
		for _, b := range buf {
			if int(b) >= rejectFrom {
				continue
			}
			out = append(out, TokenAlphabet[int(b)%len(TokenAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
