// Package joincode generates short room codes that are easy to read aloud.
package joincode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet leaves out I, O, 1 and 0.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const DefaultLength = 5

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Make returns length uniformly random characters from Alphabet. Uniqueness is
// the caller's concern.
func Make(length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			panic("joincode: system randomness unavailable: " + err.Error())
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out)
}

// Normalize makes a user supplied code comparable with generated ones.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
