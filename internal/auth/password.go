package auth

import (
	"github.com/alexedwards/argon2id"
)

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword produces a salted Argon2id hash; parameters travel inside the encoded hash.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// VerifyPassword compares a password with an encoded Argon2id hash.
func VerifyPassword(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}
