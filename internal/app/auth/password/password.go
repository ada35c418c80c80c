package password

import (
	"github.com/alexedwards/argon2id"
)

// DefaultParams are used for stored passwords and refresh secrets.
var DefaultParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces PHC-encoded argon2id hashes. The pepper is appended to every
// input before hashing and verification.
type Hasher struct {
	params *argon2id.Params
	pepper string
}

func New(pepper string) *Hasher {
	return NewWithParams(DefaultParams, pepper)
}

func NewWithParams(params *argon2id.Params, pepper string) *Hasher {
	return &Hasher{params: params, pepper: pepper}
}

func (h *Hasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain+h.pepper, h.params)
}

// Verify reports false with a nil error on mismatch; an error means the
// stored hash could not be decoded.
func (h *Hasher) Verify(hash, plain string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain+h.pepper, hash)
}
