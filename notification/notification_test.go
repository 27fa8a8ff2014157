package notification

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	btcdchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/stashwallet/bip47core/bip47acct"
	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/mnemonic"
)

// TestBuildThenParseRoundTrips exercises spec.md §4.4 end to end: Alice
// builds a notification transaction to Bob, and Bob's Parse recovers
// Alice's payment code from it (spec.md §8 invariant on notification
// transactions).
func TestBuildThenParseRoundTrips(t *testing.T) {
	params := &chaincfg.BCHMainNetParams

	aliceSeed, err := mnemonic.SeedFromMnemonic(
		"response seminar brave tip suit recall often sound stick owner lottery motion", "")
	require.NoError(t, err)
	alice, err := bip47acct.NewAccount(aliceSeed[:], params, 0)
	require.NoError(t, err)

	bobSeed, err := mnemonic.SeedFromMnemonic(
		"reward upper indicate eight swift arch injury crystal super wrestle already dentist", "")
	require.NoError(t, err)
	bob, err := bip47acct.NewAccount(bobSeed[:], params, 0)
	require.NoError(t, err)

	bobPC, err := bob.PaymentCode()
	require.NoError(t, err)
	alicePC, err := alice.PaymentCode()
	require.NoError(t, err)

	spendKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	spendAddr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(spendKey.PubKey().SerializeCompressed()),
		&btcdchaincfg.MainNetParams)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(spendAddr)
	require.NoError(t, err)

	utxo := SpendableOutput{
		Outpoint: wire.OutPoint{Hash: chainhash.Hash{1, 2, 3}, Index: 0},
		Value:    10000,
		PkScript: pkScript,
		PrivKey:  spendKey,
	}

	tx, err := Build(params, alice, bobPC.String(), utxo)
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 2)

	bobNotifKey, err := bob.NotificationKey()
	require.NoError(t, err)
	bobNotifPriv, err := bobNotifKey.ECPrivKey()
	require.NoError(t, err)

	parsed, err := Parse(tx, bobNotifPriv)
	require.NoError(t, err)
	require.Equal(t, alicePC.String(), parsed.String())
}

func TestParseRejectsTransactionWithoutOpReturn(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}})
	tx.AddTxOut(wire.NewTxOut(1000, []byte{txscript.OP_DUP, txscript.OP_HASH160}))

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	_, err = Parse(tx, priv)
	require.Error(t, err)
}
