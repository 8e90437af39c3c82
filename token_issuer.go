package accounts

import (
	"crypto/rand"
	"encoding/base64"

	goerrors "github.com/goliatone/go-errors"
)

// TokenByteLength is the entropy of verification and reset tokens. 32 random
// bytes make a cross-profile collision negligible, but uniqueness is still
// enforced by the unique index on the token column.
const TokenByteLength = 32

// GenerateRandomToken returns a URL-safe opaque string built from n
// cryptographically random bytes. No structure, no embedded expiry.
func GenerateRandomToken(n int) (string, error) {
	if n <= 0 {
		n = TokenByteLength
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate random token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
