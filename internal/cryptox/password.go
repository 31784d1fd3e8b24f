// Package cryptox implements the credential primitives of the auth core:
// argon2id password hashing with self-describing encoded hashes, password
// policy validation, and random session-token generation.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/vaultkeep/vaultkeep/internal/common"
)

// HashParams are the argon2id work factors. They are embedded in every
// encoded hash, so changing them later only affects new passwords.
type HashParams struct {
	Time    uint32
	MemoryK uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultHashParams mirrors the argon2id parameters used for master-key
// derivation elsewhere in the project family: t=1, m=64MiB, p=4.
func DefaultHashParams() HashParams {
	return HashParams{Time: 1, MemoryK: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

// HashPassword derives an argon2id hash of plaintext with a fresh random salt
// and returns it in encoded form:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
//
// Empty plaintext is rejected; length/complexity policy is the caller's
// concern (see ValidatePolicy).
func HashPassword(plaintext string, p HashParams) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty password", common.ErrorValidation)
	}

	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.MemoryK, p.Threads, p.KeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryK, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	return encoded, nil
}

// VerifyPassword recomputes the hash of plaintext using the parameters stored
// in encoded and compares in constant time. A wrong password yields
// (false, nil). Only a structurally invalid stored hash is an error, wrapped
// around common.ErrorCorruptCredential.
func VerifyPassword(plaintext, encoded string) (bool, error) {
	salt, key, params, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, params.Time, params.MemoryK, params.Threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeHash(encoded string) (salt, key []byte, p HashParams, err error) {
	corrupt := func(msg string) error {
		return fmt.Errorf("%w: %s", common.ErrorCorruptCredential, msg)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, p, corrupt("wrong segment count")
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, corrupt("unsupported algorithm " + parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, corrupt("bad version segment")
	}
	if version != argon2.Version {
		return nil, nil, p, corrupt("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryK, &p.Time, &p.Threads); err != nil {
		return nil, nil, p, corrupt("bad parameter segment")
	}
	if p.MemoryK == 0 || p.Time == 0 || p.Threads == 0 {
		return nil, nil, p, corrupt("zero work factor")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, p, corrupt("undecodable salt")
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, p, corrupt("undecodable hash")
	}
	if len(salt) == 0 || len(key) == 0 {
		return nil, nil, p, corrupt("empty salt or hash")
	}

	return salt, key, p, nil
}

// IsCorrupt reports whether err came from a malformed stored hash.
func IsCorrupt(err error) bool {
	return errors.Is(err, common.ErrorCorruptCredential)
}
