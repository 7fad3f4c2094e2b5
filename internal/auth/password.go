package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is pinned rather than bcrypt.DefaultCost so hashes stay
// comparable across deployments.
const bcryptCost = 12

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash. bcrypt's
// own comparison is constant-time over the digest; never compare hashes
// byte-wise.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
