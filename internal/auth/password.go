package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePassword marks an account that cannot log in with a password.
// It is never a valid bcrypt hash.
const UnusablePassword = "!"

func HashPassword(plain string, cost int) (string, error) {
	if plain == "" {
		return UnusablePassword, nil
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, plain string) bool {
	if hash == "" || hash == UnusablePassword {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
