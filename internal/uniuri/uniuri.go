package uniuri

import (
	"crypto/rand"
)

const (
	// StdLen is the length of a state or nonce value, ~190 bits of entropy.
	StdLen = 32

	// batch is the number of random bytes read per round.
	batch = 64
)

// StdChars is the URL safe alphabet used for state and nonce values.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// New returns a random string of StdLen characters from StdChars.
func New() string {
	return NewLen(StdLen)
}

// NewLen returns a random string of the given length from StdChars.
func NewLen(length int) string {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of the given length drawn uniformly from chars.
// It panics if chars holds fewer than 2 or more than 256 characters or the
// system random source fails.
func NewLenChars(length int, chars []byte) string {
	if length <= 0 {
		return ""
	}

	clen := len(chars)
	if clen < 2 || clen > 256 {
		panic("uniuri: wrong charset length")
	}

	// bytes at or above limit are rejected to avoid modulo bias
	limit := 256 - (256 % clen)
	out := make([]byte, 0, length)
	buf := make([]byte, batch)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: error reading random bytes: " + err.Error())
		}

		for _, rb := range buf {
			if int(rb) >= limit {
				continue
			}

			out = append(out, chars[int(rb)%clen])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}
