package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// FeeDenominator scales Pool.FeeBps: the fee is FeeBps/1000 of the swap input.
const FeeDenominator = 1000

// PoolRecordSize is the fixed encoded size of a pool record:
// discriminator(8) | vault_a(32) | vault_b(32) | authority(32) | fee(8).
const PoolRecordSize = 8 + AccountIDSize*3 + 8

var poolDiscriminator = discriminator("account:Pool")

// Pool is the persisted pool record. Reserves are not part of it; they are the
// live balances of VaultA and VaultB.
type Pool struct {
	Address   AccountID `json:"address"`
	VaultA    AccountID `json:"vault_a"`
	VaultB    AccountID `json:"vault_b"`
	Authority AccountID `json:"authority"`
	FeeBps    uint64    `json:"fee_bps"`
}

// MarshalBinary encodes the record in its fixed-size layout. The address is the
// record's location and is not part of the payload.
func (p Pool) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, PoolRecordSize)
	buf = append(buf, poolDiscriminator[:]...)
	buf = append(buf, p.VaultA[:]...)
	buf = append(buf, p.VaultB[:]...)
	buf = append(buf, p.Authority[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, p.FeeBps)
	return buf, nil
}

// UnmarshalBinary decodes a fixed-size record. Address is left untouched.
func (p *Pool) UnmarshalBinary(data []byte) error {
	if len(data) != PoolRecordSize {
		return fmt.Errorf("invalid pool record size %d", len(data))
	}
	if !bytes.Equal(data[:8], poolDiscriminator[:]) {
		return fmt.Errorf("invalid pool record discriminator")
	}
	offset := 8
	copy(p.VaultA[:], data[offset:offset+AccountIDSize])
	offset += AccountIDSize
	copy(p.VaultB[:], data[offset:offset+AccountIDSize])
	offset += AccountIDSize
	copy(p.Authority[:], data[offset:offset+AccountIDSize])
	offset += AccountIDSize
	p.FeeBps = binary.LittleEndian.Uint64(data[offset:])
	return nil
}

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
