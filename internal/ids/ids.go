package ids

import (
	cryptorand "crypto/rand"
	"math/big"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for request
// and audit correlation.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

const (
	keyAlphabet      = "abcdefghijklmnopqrstuvwxyz1234567890"
	keyAlphabetAlpha = "abcdefghijklmnopqrstuvwxyz"
)

// Keylike returns a random lowercase alphanumeric identifier of the given
// size. The first character is always alphabetic so the result is usable as
// a bare identifier. A non-empty prefix is joined with a dash, e.g.
// "apikey-f3xk...". Randomness comes from crypto/rand.
func Keylike(prefix string, size int) string {
	buf := make([]byte, 0, size+len(prefix)+1)
	if prefix != "" {
		buf = append(buf, prefix...)
		buf = append(buf, '-')
	}
	for i := 0; i < size; i++ {
		alphabet := keyAlphabet
		if i == 0 {
			alphabet = keyAlphabetAlpha
		}
		n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			panic(err)
		}
		buf = append(buf, alphabet[n.Int64()])
	}
	return string(buf)
}
