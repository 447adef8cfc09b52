package security

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the fixed work factor for family passwords
	BcryptCost = 10
	// MaxPasswordBytes is the longest password bcrypt accepts
	MaxPasswordBytes = 72
)

// HashPassword returns a salted bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
