package bip47acct

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/mnemonic"
)

// TestAliceAccountVectors reproduces spec.md §8 scenario 1: Alice's
// mnemonic derives the given seed, payment code, and notification address.
func TestAliceAccountVectors(t *testing.T) {
	seed, err := mnemonic.SeedFromMnemonic(
		"response seminar brave tip suit recall often sound stick owner lottery motion", "")
	require.NoError(t, err)
	require.Equal(t,
		"64dca76abc9c6f0cf3d212d248c380c4622c8f93b2c425ec6a5567fd5db57e10d3e6f94a2f6af4ac2edb8998072aad92098db73558c323777abf5bd1082d970a",
		hexEncode(seed[:]))

	acct, err := NewAccount(seed[:], &chaincfg.BCHMainNetParams, 0)
	require.NoError(t, err)
	require.False(t, acct.IsWatchOnly())

	pc, err := acct.PaymentCode()
	require.NoError(t, err)
	require.Equal(t,
		"PM8TJTLJbPRGxSbc8EJi42Wrr6QbNSaSSVJ5Y3E4pbCYiTHUskHg13935Ubb7q8tx9GVbh2UuRnBc3WSyJHhUrw8KhprKnn9eDznYGieTzFcwQRya4GA",
		pc.String())

	addr, err := acct.NotificationAddress()
	require.NoError(t, err)
	require.Equal(t, "1JDdmqFLhpzcUwPeinhJbUPw4Co3aWLyzW", addr.EncodeAddress())
}

// TestBobAccountVectors reproduces spec.md §8 scenario 2.
func TestBobAccountVectors(t *testing.T) {
	seed, err := mnemonic.SeedFromMnemonic(
		"reward upper indicate eight swift arch injury crystal super wrestle already dentist", "")
	require.NoError(t, err)

	acct, err := NewAccount(seed[:], &chaincfg.BCHMainNetParams, 0)
	require.NoError(t, err)

	pc, err := acct.PaymentCode()
	require.NoError(t, err)
	require.Equal(t,
		"PM8TJS2JxQ5ztXUpBBRnpTbcUXbUHy2T1abfrb3KkAAtMEGNbey4oumH7Hc578WgQJhPjBxteQ5GHHToTYHE3A1w6p7tU6KSoFmWBVbFGjKPisZDbP97",
		pc.String())

	addr, err := acct.NotificationAddress()
	require.NoError(t, err)
	require.Equal(t, "1ChvUUvht2hUQufHBXF8NgLhW8SwE2ecGV", addr.EncodeAddress())
}

// TestWatchOnlyAccountDerivesSamePaymentCode checks that a watch-only
// account built from a peer's payment-code text round-trips back to the
// same payment code and reports itself as watch-only.
func TestWatchOnlyAccountDerivesSamePaymentCode(t *testing.T) {
	alice := "PM8TJTLJbPRGxSbc8EJi42Wrr6QbNSaSSVJ5Y3E4pbCYiTHUskHg13935Ubb7q8tx9GVbh2UuRnBc3WSyJHhUrw8KhprKnn9eDznYGieTzFcwQRya4GA"

	acct, err := NewWatchOnlyAccount(&chaincfg.BCHMainNetParams, alice)
	require.NoError(t, err)
	require.True(t, acct.IsWatchOnly())

	pc, err := acct.PaymentCode()
	require.NoError(t, err)
	require.Equal(t, alice, pc.String())
}

func TestPaymentKeyAtDerivesDistinctKeys(t *testing.T) {
	seed, err := mnemonic.SeedFromMnemonic(
		"response seminar brave tip suit recall often sound stick owner lottery motion", "")
	require.NoError(t, err)

	acct, err := NewAccount(seed[:], &chaincfg.BCHMainNetParams, 0)
	require.NoError(t, err)

	k0, err := acct.PaymentKeyAt(0)
	require.NoError(t, err)
	k1, err := acct.PaymentKeyAt(1)
	require.NoError(t, err)

	p0, err := k0.ECPrivKey()
	require.NoError(t, err)
	p1, err := k1.ECPrivKey()
	require.NoError(t, err)

	require.NotEqual(t, p0.Serialize(), p1.Serialize())
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}
