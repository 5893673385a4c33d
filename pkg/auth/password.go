package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost above the library default; login latency stays well under
// the auth rate limiter window.
const passwordHashCost = 12

// HashPassword returns the bcrypt hash of a plain text password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plain text password matches the stored
// hash. Hashes created at any cost verify, so the cost can change without
// invalidating existing accounts.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
