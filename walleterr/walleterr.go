// Package walleterr defines the error vocabulary surfaced by the BIP-47
// wallet core, per spec.md §7. Every sentinel here is meant to be matched
// with errors.Is; callers that need the notification-parsing subcode use
// errors.As against *NotificationParseError.
package walleterr

import "errors"

var (
	// ErrBadFormat is returned when a payment code or address fails to
	// decode as valid Base58Check, or has the wrong payload length.
	ErrBadFormat = errors.New("bip47: bad format")

	// ErrUnsupportedVersion is returned when a payment code's version
	// byte is not 1.
	ErrUnsupportedVersion = errors.New("bip47: unsupported payment code version")

	// ErrNotSecp256k1 is returned when an ECDH operation would produce
	// the point at infinity, or a scalar is zero or exceeds the curve
	// order.
	ErrNotSecp256k1 = errors.New("bip47: not a valid secp256k1 point or scalar")

	// ErrInsufficientMoney is returned when notification or payment
	// transaction construction has no spendable UTXO to fund it.
	ErrInsufficientMoney = errors.New("bip47: insufficient money")

	// ErrVerification is returned when a header fails the cash-DAA
	// difficulty check, or when a freshly built notification transaction
	// fails local script verification.
	ErrVerification = errors.New("bip47: verification exception")

	// ErrBlockStore is returned when the external SPV header store
	// cannot answer a query needed to validate a header.
	ErrBlockStore = errors.New("bip47: block store error")

	// ErrIO is returned when the wallet file or sidecar cannot be read
	// or written.
	ErrIO = errors.New("bip47: io error")
)

// NotificationParseSubcode enumerates the specific ways notification
// transaction parsing can fail, per spec.md §4.4.
type NotificationParseSubcode int

const (
	// NoOpReturn means the transaction has no OP_RETURN output shaped
	// like a blinded payment code, or has no inputs.
	NoOpReturn NotificationParseSubcode = iota

	// BadMaskLength means the HMAC-derived mask was not 64 bytes.
	BadMaskLength

	// InvalidUnblindedCode means unblinding produced bytes that do not
	// parse as a well-formed version-1 payment code, or that no sender
	// public key could be extracted from the first input's scriptSig.
	InvalidUnblindedCode
)

func (c NotificationParseSubcode) String() string {
	switch c {
	case NoOpReturn:
		return "no OP_RETURN output"
	case BadMaskLength:
		return "bad mask length"
	case InvalidUnblindedCode:
		return "invalid unblinded code"
	default:
		return "unknown"
	}
}

// NotificationParseError wraps ErrBadFormat with the specific subcode from
// spec.md §4.4 so callers can discriminate with errors.As while still
// matching errors.Is(err, ErrBadFormat).
type NotificationParseError struct {
	Subcode NotificationParseSubcode
}

func (e *NotificationParseError) Error() string {
	return "bip47: notification parse error: " + e.Subcode.String()
}

func (e *NotificationParseError) Unwrap() error {
	return ErrBadFormat
}

// NewNotificationParseError constructs a NotificationParseError for the
// given subcode.
func NewNotificationParseError(subcode NotificationParseSubcode) *NotificationParseError {
	return &NotificationParseError{Subcode: subcode}
}
