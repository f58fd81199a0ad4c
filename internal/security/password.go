package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

var defaultParams = argon2Params{
	time:    3,
	memory:  64 * 1024,
	threads: 2,
	keyLen:  32,
	saltLen: 16,
}

var errMalformedHash = errors.New("malformed password hash")

// HashPassword derives an argon2id hash in the standard encoded form.
func HashPassword(password string) ([]byte, error) {
	p := defaultParams

	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)

	encoded := fmt.Sprintf("$argon2id$v=19$t=%d,m=%d,p=%d$%s$%s",
		p.time, p.memory, p.threads,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash))

	return []byte(encoded), nil
}

// VerifyPassword checks password against an encoded argon2id hash. The
// parameters are taken from the hash itself so old hashes keep verifying
// after the defaults change.
func VerifyPassword(password string, encodedHash []byte) (bool, error) {
	parts := strings.Split(string(encodedHash), "$")
	// "", "argon2id", "v=19", params, salt, hash
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false, errMalformedHash
	}

	var (
		time    uint32
		memory  uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(parts[3], "t=%d,m=%d,p=%d", &time, &memory, &threads); err != nil {
		return false, fmt.Errorf("parse hash params: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}
