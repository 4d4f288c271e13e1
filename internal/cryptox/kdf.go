package cryptox

import "golang.org/x/crypto/argon2"

// Default Argon2id parameters.
const (
	DefaultKDFTime      uint32 = 1
	DefaultKDFMemoryKiB uint32 = 64 * 1024
	DefaultKDFThreads   uint8  = 4
	UnlockPasswordSize  uint32 = 32
)

// Argon2KDF derives an unlock password from a PIN and the account salt
// with Argon2id. The output is deterministic for the same parameters.
type Argon2KDF struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// NewArgon2KDF returns a KDF with the given parameters. Zero values fall back
// to the defaults.
func NewArgon2KDF(time, memoryKiB uint32, threads uint8) *Argon2KDF {
	k := &Argon2KDF{Time: time, MemoryKiB: memoryKiB, Threads: threads}
	if k.Time == 0 {
		k.Time = DefaultKDFTime
	}
	if k.MemoryKiB == 0 {
		k.MemoryKiB = DefaultKDFMemoryKiB
	}
	if k.Threads == 0 {
		k.Threads = DefaultKDFThreads
	}
	return k
}

// Derive returns a fresh 32-byte slice the caller owns and must wipe.
func (k *Argon2KDF) Derive(pin string, salt []byte) []byte {
	return argon2.IDKey([]byte(pin), salt, k.Time, k.MemoryKiB, k.Threads, UnlockPasswordSize)
}
