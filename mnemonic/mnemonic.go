// Package mnemonic turns a BIP-39 mnemonic phrase into the 64-byte seed
// that every other derivation in this module is rooted at (spec.md §3,
// "Mnemonic seed"). It is a thin wrapper over the real BIP-39 library; the
// PBKDF2-HMAC-SHA-512 step spec.md declares as an external collaborator
// lives inside that library, not here.
package mnemonic

import (
	"github.com/tyler-smith/go-bip39"
)

// SeedLength is the number of bytes go-bip39 derives from a mnemonic and
// passphrase: PBKDF2-HMAC-SHA-512 with 2048 rounds, per BIP-39.
const SeedLength = 64

// New generates a fresh random mnemonic phrase at the given entropy bit
// strength (128 bits yields a 12-word phrase, 256 bits a 24-word phrase)
// and derives its seed with an empty passphrase.
func New(entropyBits int) (words string, seed [SeedLength]byte, err error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", seed, err
	}
	words, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", seed, err
	}
	s, err := SeedFromMnemonic(words, "")
	if err != nil {
		return "", seed, err
	}
	return words, s, nil
}

// SeedFromMnemonic derives the 64-byte seed for an existing mnemonic
// phrase and optional passphrase. It does not validate the phrase's
// checksum against a wordlist beyond what go-bip39 itself enforces.
func SeedFromMnemonic(words, passphrase string) ([SeedLength]byte, error) {
	var seed [SeedLength]byte
	if !bip39.IsMnemonicValid(words) {
		return seed, bip39.ErrInvalidMnemonic
	}
	raw := bip39.NewSeed(words, passphrase)
	copy(seed[:], raw)
	return seed, nil
}
