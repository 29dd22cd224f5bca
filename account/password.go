package account

import (
	"fmt"

	"github.com/jlynch25/railid/hashing"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns a plaintext password into the stored form and checks a
// candidate against it.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(stored, plain string) bool
}

// SHA256Hasher stores the unsalted hex digest. It is what existing user maps
// were written with.
type SHA256Hasher struct{}

// Hash function
func (SHA256Hasher) Hash(plain string) (string, error) {
	return hashing.Digest(plain), nil
}

// Verify function
func (SHA256Hasher) Verify(stored, plain string) bool {
	return stored == hashing.Digest(plain)
}

// BcryptHasher stores salted bcrypt hashes. Accounts created under
// SHA256Hasher cannot log in with it.
type BcryptHasher struct {
	Cost int
}

// Hash function
func (b BcryptHasher) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify function
func (BcryptHasher) Verify(stored, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}

// NewPasswordHasher picks a hasher by scheme name: "sha256" (or empty) or
// "bcrypt".
func NewPasswordHasher(scheme string, cost int) (PasswordHasher, error) {
	switch scheme {
	case "", "sha256":
		return SHA256Hasher{}, nil
	case "bcrypt":
		if cost != 0 && (cost < bcrypt.MinCost || cost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("bcrypt cost %d out of range %d-%d", cost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return BcryptHasher{Cost: cost}, nil
	}
	return nil, fmt.Errorf("unknown password scheme %q", scheme)
}
