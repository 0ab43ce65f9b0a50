package uniuri

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLen(t *testing.T) {
	for _, n := range []int{0, 1, StdLen, 100, 1000} {
		s := NewLen(n)
		assert.Len(t, s, n)

		for i := 0; i < len(s); i++ {
			assert.True(t, bytes.IndexByte(StdChars, s[i]) >= 0, "unexpected character %q", s[i])
		}
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{})

	for range 1000 {
		s := New()
		_, dup := seen[s]
		assert.False(t, dup)
		seen[s] = struct{}{}
	}
}

func TestNewLenCharsSmallAlphabet(t *testing.T) {
	s := NewLenChars(64, []byte("ab"))
	assert.Len(t, s, 64)
	assert.Equal(t, 64, bytes.Count([]byte(s), []byte("a"))+bytes.Count([]byte(s), []byte("b")))
}

func TestNewLenCharsPanics(t *testing.T) {
	assert.Panics(t, func() { NewLenChars(4, []byte("a")) })
}
