// Package paymentcode implements the BIP-47 payment code: an 80-byte
// stealth identity, Base58Check-encoded, that a peer publishes once and
// that both sides then use to derive an unbounded stream of unlinkable
// addresses (spec.md §4.1).
package paymentcode

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/stashwallet/bip47core/walleterr"
)

const (
	// payloadLen is the total length of a payment code's binary payload:
	// version(1) | features(1) | signByte(1) | x(32) | chainCode(32) | reserved(13).
	payloadLen = 80

	// base58Prefix is the single byte Base58Check prepends before the
	// 80-byte payload (spec.md §6).
	base58Prefix = 0x47

	// Version1 is the only payment code version this implementation
	// understands (spec.md §1: "only v1 is specified").
	Version1 byte = 0x01

	maskStart = 3
	maskEnd   = 67 // exclusive; 64 bytes: pubkey x (32) + chain code (32)
)

// PaymentCode is a decoded BIP-47 payment code.
type PaymentCode struct {
	Version   byte
	Features  byte
	SignByte  byte // 0x02 or 0x03, the parity of the public key
	X         [32]byte
	ChainCode [32]byte
}

// New constructs a version-1 payment code from a compressed public key and
// chain code.
func New(pubKey *btcec.PublicKey, chainCode [32]byte) *PaymentCode {
	compressed := pubKey.SerializeCompressed()
	pc := &PaymentCode{
		Version:   Version1,
		Features:  0x00,
		SignByte:  compressed[0],
		ChainCode: chainCode,
	}
	copy(pc.X[:], compressed[1:])
	return pc
}

// Bytes serializes the payment code to its 80-byte wire payload.
func (pc *PaymentCode) Bytes() [payloadLen]byte {
	var out [payloadLen]byte
	out[0] = pc.Version
	out[1] = pc.Features
	out[2] = pc.SignByte
	copy(out[3:35], pc.X[:])
	copy(out[35:67], pc.ChainCode[:])
	// out[67:80] (reserved) stays zero.
	return out
}

// String Base58Check-encodes the payment code with the 0x47 version
// prefix, producing the 116-character "PM8T..." text form (spec.md §6).
func (pc *PaymentCode) String() string {
	b := pc.Bytes()
	return base58.CheckEncode(b[:], base58Prefix)
}

// Decode parses a Base58Check payment-code string.
func Decode(s string) (*PaymentCode, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrBadFormat, err)
	}
	if version != base58Prefix {
		return nil, fmt.Errorf("%w: unexpected base58 prefix 0x%02x", walleterr.ErrBadFormat, version)
	}
	if len(payload) != payloadLen {
		return nil, fmt.Errorf("%w: payload length %d, want %d", walleterr.ErrBadFormat, len(payload), payloadLen)
	}

	var b [payloadLen]byte
	copy(b[:], payload)
	return FromBytes(b)
}

// FromBytes validates and parses an already-assembled 80-byte payload,
// e.g. one just unblinded out of a notification transaction's OP_RETURN
// output. It applies the same version and sign-byte checks as Decode.
func FromBytes(payload [payloadLen]byte) (*PaymentCode, error) {
	pc := &PaymentCode{
		Version:  payload[0],
		Features: payload[1],
		SignByte: payload[2],
	}
	if pc.Version != Version1 {
		return nil, fmt.Errorf("%w: version %d", walleterr.ErrUnsupportedVersion, pc.Version)
	}
	if pc.SignByte != 0x02 && pc.SignByte != 0x03 {
		return nil, fmt.Errorf("%w: sign byte 0x%02x", walleterr.ErrBadFormat, pc.SignByte)
	}
	copy(pc.X[:], payload[3:35])
	copy(pc.ChainCode[:], payload[35:67])
	return pc, nil
}

// ToPubKey returns the compressed secp256k1 public key the payment code
// encodes.
func (pc *PaymentCode) ToPubKey() (*btcec.PublicKey, error) {
	compressed := make([]byte, 33)
	compressed[0] = pc.SignByte
	copy(compressed[1:], pc.X[:])
	return btcec.ParsePubKey(compressed)
}

// arbitraryHDVersion is used only to satisfy hdkeychain.NewExtendedKey's
// constructor; it never reaches the wire and does not affect derivation
// math, only serialization we never perform on this key.
var arbitraryHDVersion = []byte{0x04, 0x88, 0xb2, 0x1e}

// DerivePubKeyAt treats the payment code as a BIP-32 extended public key
// (pubkey + chain code) and returns the compressed public key of its
// non-hardened child at idx. The result equals the public key of the
// owning account's PaymentKeyAt(idx); at idx 0 that is the owner's
// notification key (spec.md §4.1, §8 invariant).
func (pc *PaymentCode) DerivePubKeyAt(idx uint32) (*btcec.PublicKey, error) {
	pubKey, err := pc.ToPubKey()
	if err != nil {
		return nil, err
	}

	extKey := hdkeychain.NewExtendedKey(
		arbitraryHDVersion,
		pubKey.SerializeCompressed(),
		pc.ChainCode[:],
		[]byte{0, 0, 0, 0},
		0,
		0,
		false,
	)

	child, err := extKey.Derive(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrBadFormat, err)
	}
	return child.ECPubKey()
}

// Blind XORs the 64-byte pubkey+chaincode region (payload bytes [3:67])
// with mask in place, leaving version, features, and the sign byte
// untouched. The same function both blinds and unblinds since XOR is its
// own inverse (spec.md §4.1).
//
// The sign byte is deliberately excluded from masking: some BIP-47
// implementations mask it and some don't. This implementation freezes the
// interoperable v1 behavior of leaving it alone (spec.md §9, open
// question).
func Blind(payload *[payloadLen]byte, mask [64]byte) {
	for i := 0; i < maskEnd-maskStart; i++ {
		payload[maskStart+i] ^= mask[i]
	}
}

// Unblind reverses Blind; provided for readability at call sites.
func Unblind(payload *[payloadLen]byte, mask [64]byte) {
	Blind(payload, mask)
}
