package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters tuned for a self-hosted application running on
// modest hardware (2-4 CPU cores, 2-4 GB RAM). These follow OWASP
// recommendations for argon2id: memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// ErrMalformedDigest is returned by VerifyPassword when the stored digest
// cannot be parsed. The engine treats it as an authentication failure with
// the account untouched, never as a crash.
var ErrMalformedDigest = errors.New("malformed password digest")

// HashPassword creates an argon2id digest of the given password with a fresh
// random salt. The output format is:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
// This PHC string is self-describing: salt and parameters are recoverable
// from the digest, so verification needs no separate salt storage.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// VerifyPassword checks a plaintext password against an argon2id digest.
// It recomputes the hash with the parameters and salt embedded in the digest
// and compares in constant time. A digest that cannot be parsed yields
// (false, ErrMalformedDigest); a well-formed digest never returns an error.
func VerifyPassword(password, encodedDigest string) (bool, error) {
	parts := strings.Split(encodedDigest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrMalformedDigest
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported version %d", ErrMalformedDigest, version)
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, ErrMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedDigest
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedDigest
	}
	if len(expected) == 0 {
		return false, ErrMalformedDigest
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expected, computed) == 1, nil
}
