// Package ecdhmask implements the ECDH mask engine from spec.md §4.3: it
// derives the shared secret between a sender's input private key and a
// recipient's notification public key, then the HMAC-based blinding mask
// applied to a notification transaction's payload.
package ecdhmask

import (
	"crypto/hmac"
	"crypto/sha512"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stashwallet/bip47core/walleterr"
)

// SharedSecretX computes S = priv * pub on secp256k1 and returns the
// 32-byte big-endian X coordinate of S. It returns walleterr.ErrNotSecp256k1
// if priv is the zero scalar or the result is the point at infinity
// (spec.md §4.3).
func SharedSecretX(priv *btcec.PrivateKey, pub *btcec.PublicKey) ([32]byte, error) {
	var sx [32]byte

	if priv == nil || pub == nil {
		return sx, fmt.Errorf("%w: nil key", walleterr.ErrNotSecp256k1)
	}

	scalar := &priv.Key
	if scalar.IsZero() {
		return sx, fmt.Errorf("%w: zero scalar", walleterr.ErrNotSecp256k1)
	}

	var pubJacobian secp256k1.JacobianPoint
	pub.AsJacobian(&pubJacobian)

	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(scalar, &pubJacobian, &result)
	result.ToAffine()

	if result.X.IsZero() && result.Y.IsZero() {
		return sx, fmt.Errorf("%w: point at infinity", walleterr.ErrNotSecp256k1)
	}

	xBytes := result.X.Bytes()
	copy(sx[:], xBytes[:])
	return sx, nil
}

// Mask computes HMAC-SHA-512(key=outpoint, data=sharedSecretX), the
// 64-byte blinding mask XORed over a payment code's pubkey+chaincode
// region in a notification transaction. outpoint is the 36-byte
// txid_le||vout_le of the notification transaction's first input
// (spec.md §4.3).
func Mask(outpoint [36]byte, sharedSecretX [32]byte) [64]byte {
	mac := hmac.New(sha512.New, outpoint[:])
	mac.Write(sharedSecretX[:])

	var out [64]byte
	copy(out[:], mac.Sum(nil))
	return out
}
