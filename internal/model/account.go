package model

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// AccountIDSize is the byte length of an account identifier.
const AccountIDSize = 32

// AccountID identifies a ledger account, a pool record or a signing identity.
// Its text form is base58.
type AccountID [AccountIDSize]byte

// ParseAccountID decodes a base58 account identifier.
func ParseAccountID(input string) (AccountID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return AccountID{}, fmt.Errorf("account id is empty")
	}
	raw, err := base58.Decode(input)
	if err != nil {
		return AccountID{}, fmt.Errorf("decode account id %s: %w", input, err)
	}
	if len(raw) != AccountIDSize {
		return AccountID{}, fmt.Errorf("invalid account id length %d: %s", len(raw), input)
	}
	var id AccountID
	copy(id[:], raw)
	return id, nil
}

// ParseAccountIDs converts string identifiers, skipping blanks.
func ParseAccountIDs(inputs []string) ([]AccountID, error) {
	ids := make([]AccountID, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		id, err := ParseAccountID(input)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MustParseAccountID is ParseAccountID for constants and tests.
func MustParseAccountID(input string) AccountID {
	id, err := ParseAccountID(input)
	if err != nil {
		panic(err)
	}
	return id
}

func (id AccountID) String() string {
	return base58.Encode(id[:])
}

func (id AccountID) IsZero() bool {
	return id == AccountID{}
}

// MarshalText encodes the identifier as base58.
func (id AccountID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a base58 identifier. An empty string leaves the zero ID.
func (id *AccountID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*id = AccountID{}
		return nil
	}
	parsed, err := ParseAccountID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
