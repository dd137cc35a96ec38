package registry

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"tokenswap/internal/model"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// DeriveAddress finds a program-derived address for seeds: the first
// sha256(seeds | bump | program | marker), bump counting down from 255, that is
// not a valid ed25519 point and so has no private key.
func DeriveAddress(programID model.AccountID, seeds ...[]byte) (model.AccountID, uint8, error) {
	if len(seeds) > maxSeeds-1 {
		return model.AccountID{}, 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > maxSeedLength {
			return model.AccountID{}, 0, fmt.Errorf("seed %d exceeds %d bytes", i, maxSeedLength)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write([]byte(pdaMarker))

		var id model.AccountID
		copy(id[:], h.Sum(nil))
		if !isOnCurve(id[:]) {
			return id, uint8(bump), nil
		}
	}
	return model.AccountID{}, 0, ErrNoViableBump
}

// PoolAddress derives the record location for a vault pair.
func PoolAddress(programID, vaultA, vaultB model.AccountID) (model.AccountID, error) {
	id, _, err := DeriveAddress(programID, []byte("pool"), vaultA[:], vaultB[:])
	return id, err
}

// AuthorityAddress derives the program's pool authority identity.
func AuthorityAddress(programID model.AccountID) (model.AccountID, error) {
	id, _, err := DeriveAddress(programID, []byte("authority"))
	return id, err
}

func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
