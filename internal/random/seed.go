// Package random seeds the pseudo-random generators used by simulated
// sessions. Seeds come from crypto/rand so two simulation runs never share a
// gaze walk unless a seed is passed explicitly for reproduction.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a freshly seeded generator. Seed 0 draws a seed from
// crypto/rand; any other value reproduces a previous run.
func NewRand(seed int64) (*mrand.Rand, error) {
	if seed == 0 {
		var err error
		seed, err = NewSeed()
		if err != nil {
			return nil, err
		}
	}
	return mrand.New(mrand.NewSource(seed)), nil
}
