package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrInvalidHash      = errors.New("invalid hash format")
)

// Params controls the Argon2id cost of newly produced hashes. Existing hashes
// always verify with the parameters encoded in them.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams follows the OWASP minimum for Argon2id.
var DefaultParams = Params{
	MemoryKiB:   19 * 1024,
	Iterations:  2,
	Parallelism: 1,
}

const (
	keyLength  = 32
	saltLength = 16
)

// PasswordHasher produces peppered Argon2id hashes in PHC format and verifies
// both those and legacy bcrypt hashes.
type PasswordHasher struct {
	params Params
	pepper string

	dummyOnce sync.Once
	dummy     string
}

func NewPasswordHasher(params Params, pepper string) *PasswordHasher {
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultParams.MemoryKiB
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultParams.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultParams.Parallelism
	}
	return &PasswordHasher{params: params, pepper: pepper}
}

// Hash generates a PHC-format Argon2id hash string including salt and parameters.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		h.params.Iterations,
		h.params.MemoryKiB,
		h.params.Parallelism,
		keyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify compares a plaintext password against a stored hash. Argon2id hashes
// are checked with the pepper; bcrypt hashes ($2a$, $2b$, $2y$) are checked
// as-is since they predate the pepper.
func (h *PasswordHasher) Verify(password, encoded string) error {
	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrPasswordMismatch
		default:
			return fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
	}

	p, salt, expected, err := decodeArgon2(encoded)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		p.Iterations,
		p.MemoryKiB,
		p.Parallelism,
		uint32(len(expected)), // #nosec G115 - decoded hash length is small
	)
	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// NeedsRehash reports whether the stored hash is legacy bcrypt or was
// produced with weaker Argon2id parameters than the hasher's current ones.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	p, _, _, err := decodeArgon2(encoded)
	if err != nil {
		return true
	}
	return p.MemoryKiB < h.params.MemoryKiB || p.Iterations < h.params.Iterations
}

// VerifyDummy burns the same work as a real verification. Used when the
// account does not exist so response time does not reveal it.
func (h *PasswordHasher) VerifyDummy(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.Hash("dummy-password-never-matches")
	})
	if h.dummy != "" {
		_ = h.Verify(password, h.dummy)
	}
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

// decodeArgon2 parses $argon2id$v=19$m=X,t=Y,p=Z$salt$hash.
func decodeArgon2(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != "v=19" {
		return p, nil, nil, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: failed to parse parameters: %v", ErrInvalidHash, err)
	}
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, fmt.Errorf("%w: zero parameter", ErrInvalidHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: failed to decode salt: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: failed to decode hash", ErrInvalidHash)
	}

	return p, salt, key, nil
}
