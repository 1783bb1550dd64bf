package auth

import "golang.org/x/crypto/bcrypt"

// defaultBcryptCost matches the issuance config default. bcrypt embeds the
// cost in the hash, so stored credentials keep working across cost changes.
const defaultBcryptCost = 12

// HashPassword hashes a plaintext password. A cost outside bcrypt's valid
// range falls back to the default rather than erroring at login time.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultBcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value. The
// comparison is constant-time inside bcrypt.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
