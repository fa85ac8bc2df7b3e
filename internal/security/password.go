package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost is fixed so every stored digest carries the same work factor.
const Cost = bcrypt.DefaultCost

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// VerifyPassword reports whether plain matches hash. Malformed hashes yield false.
func VerifyPassword(hash, plain string) bool {
	return CheckPassword(hash, plain) == nil
}

// dummyHash is compared against when no account exists so lookups of
// unknown emails cost the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("garbagewatch-dummy"), Cost)

// BurnCompare spends one bcrypt comparison against a dummy digest.
func BurnCompare(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
