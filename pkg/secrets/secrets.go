// Package secrets generates and verifies the one-time code material used by
// step-up verification. Codes are never stored in the clear; callers keep a
// bcrypt digest and compare against it.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

// GenerateToken creates a cryptographically secure random token, base64
// encoded. Suitable for opaque identifiers such as elevation delete IDs.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateCode creates a random decimal code of the given length, suitable
// for out-of-band display to the user.
func GenerateCode(digits int) (string, error) {
	if digits <= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "code length must be positive")
	}

	var sb strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate code")
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}

// Hash creates a bcrypt digest of the provided code for storage.
func Hash(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "code is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash code")
	}
	return string(hashed), nil
}

// Verify reports whether a plaintext code matches a bcrypt digest. A
// mismatch is not an error; only digest corruption or internal failures are.
func Verify(code, digest string) (bool, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "could not verify code")
	}
	return true, nil
}
