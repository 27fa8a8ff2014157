package mnemonic

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAliceSeedVector reproduces spec.md §8 concrete scenario 1.
func TestAliceSeedVector(t *testing.T) {
	words := "response seminar brave tip suit recall often sound stick owner lottery motion"
	want := "64dca76abc9c6f0cf3d212d248c380c4622c8f93b2c425ec6a5567fd5db57e10d3e6f94a2f6af4ac2edb8998072aad92098db73558c323777abf5bd1082d970a"

	seed, err := SeedFromMnemonic(words, "")
	require.NoError(t, err)
	require.Equal(t, want, hex.EncodeToString(seed[:]))
}

func TestSeedFromMnemonicRejectsBadChecksum(t *testing.T) {
	// All-zero 128-bit entropy needs "about" as its last word; twelve
	// "abandon"s fail the checksum.
	_, err := SeedFromMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", "")
	require.Error(t, err)

	_, err = SeedFromMnemonic("not a real bip39 mnemonic phrase at all here", "")
	require.Error(t, err)
}

func TestNewGeneratesRoundTrippableMnemonic(t *testing.T) {
	words, seed, err := New(128)
	require.NoError(t, err)
	require.NotEmpty(t, words)

	again, err := SeedFromMnemonic(words, "")
	require.NoError(t, err)
	require.Equal(t, seed, again)
}
