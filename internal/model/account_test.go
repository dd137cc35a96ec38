package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountIDRoundTrip(t *testing.T) {
	id := testID(42)

	parsed, err := ParseAccountID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseAccountIDSystemProgram(t *testing.T) {
	parsed, err := ParseAccountID("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, parsed.IsZero())
}

func TestParseAccountIDInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "blank", input: "   "},
		{name: "bad alphabet", input: "0OIl"},
		{name: "too short", input: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccountID(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseAccountIDsSkipsBlanks(t *testing.T) {
	ids, err := ParseAccountIDs([]string{testID(1).String(), " ", testID(2).String()})
	require.NoError(t, err)
	assert.Equal(t, []AccountID{testID(1), testID(2)}, ids)
}

func TestAccountIDText(t *testing.T) {
	id := testID(9)

	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded AccountID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)

	require.NoError(t, decoded.UnmarshalText(nil))
	assert.True(t, decoded.IsZero())
}
