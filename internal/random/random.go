// Package random draws strings from crypto/rand.
package random

import (
	"crypto/rand"
	"math/big"

	"github.com/myrjola/aivisibility/internal/errors"
)

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
)

const nonceLength = 24

// Letters returns n random ASCII letters.
func Letters(n uint) (string, error) {
	return pick(letters, n)
}

// Digits returns n random decimal digits. Leading zeros are kept, which makes it suitable for one-time
// codes.
func Digits(n uint) (string, error) {
	return pick(digits, n)
}

// Nonce returns a random base for a Content-Security-Policy nonce.
func Nonce() (string, error) {
	return Letters(nonceLength)
}

func pick(alphabet string, n uint) (string, error) {
	out := make([]byte, n)
	upper := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", errors.Wrap(err, "read random")
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
