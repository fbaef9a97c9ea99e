package state

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Rand is the randomness source for a match: die rolls and shuffles.
// Matches get a crypto-seeded source; tests install a fixed seed so the
// event log is reproducible.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed int64) Rand {
	return mrand.New(mrand.NewSource(seed))
}

// CryptoSeed draws a fresh 64-bit seed from the OS entropy pool.
func CryptoSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is unrecoverable for match fairness.
		panic("state: crypto seed: " + err.Error())
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
