package mocks

import (
	"strings"
	"sync"

	"github.com/mcoot/gobang-online/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued tokens are handed out in order; once exhausted, Token returns n
// copies of the first alphabet character.
type MockRandom struct {
	mu     sync.Mutex
	tokens []string
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Token returns the next queued token
func (r *MockRandom) Token(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) == 0 {
		if n <= 0 {
			return ""
		}
		return strings.Repeat(random.TokenAlphabet[:1], n)
	}
	token := r.tokens[0]
	r.tokens = r.tokens[1:]
	return token
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, values...)
}
