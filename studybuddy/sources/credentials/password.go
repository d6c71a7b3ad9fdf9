package credentials

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes and refuses anything longer.
const maxPasswordBytes = 72

// Files written before bcrypt hold a bare hex SHA-256 digest.
var legacyHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func isLegacyHash(hash string) bool {
	return legacyHashPattern.MatchString(hash)
}

func legacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func hashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// checkPassword reports whether password matches hash and whether the hash
// is a legacy digest that should be upgraded.
func checkPassword(hash, password string) (ok bool, legacy bool) {
	if isLegacyHash(hash) {
		return subtle.ConstantTimeCompare([]byte(hash), []byte(legacyDigest(password))) == 1, true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}
