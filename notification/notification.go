// Package notification builds and parses BIP-47 notification transactions:
// the one-time on-chain message that bootstraps a payment channel by
// carrying a blinded payment code inside an OP_RETURN output (spec.md
// §4.4).
package notification

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	btcdchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"

	"github.com/stashwallet/bip47core/bip47acct"
	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/ecdhmask"
	"github.com/stashwallet/bip47core/paymentcode"
	"github.com/stashwallet/bip47core/walleterr"
)

// log is the notification subsystem's logger, silent until UseLogger is
// called (spec.md ambient stack: logging).
var log = btclog.Disabled

// UseLogger sets the logger used when building and parsing notification
// transactions.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// opReturnHeader is the two-byte version/features prefix every notification
// OP_RETURN payload starts with (spec.md §4.4, §6).
var opReturnHeader = [2]byte{paymentcode.Version1, 0x00}

// SpendableOutput is a UTXO the sender controls and is willing to spend as
// the notification transaction's sole input. Selecting a UTXO and signing
// it are external wallet-framework concerns (spec.md §1); this package
// only needs one already chosen, with its spending key in hand.
type SpendableOutput struct {
	Outpoint wire.OutPoint
	Value    int64
	PkScript []byte
	PrivKey  *btcec.PrivateKey
}

// Build assembles a signed notification transaction from sender to the
// peer identified by peerPaymentCode, following spec.md §4.4's
// construction steps. utxo funds the single input; the dust output pays
// peerNotificationAddr, and the OP_RETURN output carries the blinded
// sender payment code.
func Build(
	params *chaincfg.Params,
	senderAccount *bip47acct.Account,
	peerPaymentCode string,
	utxo SpendableOutput,
) (*wire.MsgTx, error) {
	if utxo.PrivKey == nil {
		return nil, fmt.Errorf("%w: utxo has no spending key", walleterr.ErrInsufficientMoney)
	}

	peerPC, err := paymentcode.Decode(peerPaymentCode)
	if err != nil {
		return nil, err
	}
	peerNotifPub, err := peerPC.DerivePubKeyAt(0)
	if err != nil {
		return nil, err
	}

	senderPC, err := senderAccount.PaymentCode()
	if err != nil {
		return nil, err
	}
	peerNotifAddr, err := notificationAddressForPubKey(peerNotifPub, params)
	if err != nil {
		return nil, err
	}

	sharedX, err := ecdhmask.SharedSecretX(utxo.PrivKey, peerNotifPub)
	if err != nil {
		return nil, err
	}
	outpoint := outpointBytes(utxo.Outpoint)
	mask := ecdhmask.Mask(outpoint, sharedX)

	payload := senderPC.Bytes()
	paymentcode.Blind(&payload, mask)

	opReturnData := make([]byte, 0, 80)
	opReturnData = append(opReturnData, opReturnHeader[:]...)
	opReturnData = append(opReturnData, payload[2:]...) // payload[2] is the (unmasked) sign byte

	dustScript, err := txscript.PayToAddrScript(peerNotifAddr)
	if err != nil {
		return nil, err
	}
	opReturnScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(opReturnData).
		Script()
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: utxo.Outpoint})
	tx.AddTxOut(wire.NewTxOut(params.MinNonDustOutput, dustScript))
	tx.AddTxOut(wire.NewTxOut(0, opReturnScript))

	hashType := txscript.SigHashAll
	sigScript, err := txscript.SignatureScript(tx, 0, utxo.PkScript, hashType, utxo.PrivKey, true)
	if err != nil {
		return nil, err
	}
	tx.TxIn[0].SignatureScript = sigScript

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(utxo.PkScript, utxo.Value)
	vm, err := txscript.NewEngine(utxo.PkScript, tx, 0, txscript.StandardVerifyFlags, nil, nil, utxo.Value, prevOutFetcher)
	if err != nil {
		return nil, err
	}
	if err := vm.Execute(); err != nil {
		log.Errorf("notification tx %s failed local verification: %v", tx.TxHash(), err)
		return nil, fmt.Errorf("%w: local verification failed: %v", walleterr.ErrVerification, err)
	}

	log.Infof("built notification tx %s to %s", tx.TxHash(), peerNotifAddr.EncodeAddress())
	return tx, nil
}

// Parse locates the OP_RETURN output in tx, unblinds it using this
// wallet's notification private key, and returns the sender's payment
// code (spec.md §4.4).
func Parse(tx *wire.MsgTx, myNotificationPriv *btcec.PrivateKey) (*paymentcode.PaymentCode, error) {
	opReturnData, err := findNotificationOpReturn(tx)
	if err != nil {
		return nil, err
	}

	if len(tx.TxIn) == 0 {
		return nil, walleterr.NewNotificationParseError(walleterr.NoOpReturn)
	}
	firstIn := tx.TxIn[0]
	senderPub, err := extractInputPubKey(firstIn.SignatureScript)
	if err != nil {
		return nil, walleterr.NewNotificationParseError(walleterr.InvalidUnblindedCode)
	}

	sharedX, err := ecdhmask.SharedSecretX(myNotificationPriv, senderPub)
	if err != nil {
		return nil, err
	}
	outpoint := outpointBytes(firstIn.PreviousOutPoint)
	mask := ecdhmask.Mask(outpoint, sharedX)

	var payload [80]byte
	copy(payload[:], opReturnData)
	paymentcode.Unblind(&payload, mask)

	pc, err := paymentcode.FromBytes(payload)
	if err != nil {
		log.Warnf("notification tx %s unblinded to an invalid payment code", tx.TxHash())
		return nil, walleterr.NewNotificationParseError(walleterr.InvalidUnblindedCode)
	}

	log.Infof("parsed notification tx %s from payment code %s", tx.TxHash(), pc.String())
	return pc, nil
}

// findNotificationOpReturn returns the first OP_RETURN push matching the
// version/features/length signature of a notification payload.
func findNotificationOpReturn(tx *wire.MsgTx) ([]byte, error) {
	for _, out := range tx.TxOut {
		data, ok := extractOpReturnData(out.PkScript)
		if !ok {
			continue
		}
		if len(data) != 80 {
			continue
		}
		if data[0] != paymentcode.Version1 || data[1] != 0x00 {
			continue
		}
		return data, nil
	}
	return nil, walleterr.NewNotificationParseError(walleterr.NoOpReturn)
}

func extractOpReturnData(pkScript []byte) ([]byte, bool) {
	tokenizer := txscript.MakeScriptTokenizer(0, pkScript)
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_RETURN {
		return nil, false
	}
	if !tokenizer.Next() {
		return nil, false
	}
	return tokenizer.Data(), true
}

// extractInputPubKey pulls the compressed public key out of a standard
// P2PKH scriptSig (`<sig> <pubkey>`).
func extractInputPubKey(sigScript []byte) (*btcec.PublicKey, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, sigScript)
	var lastPush []byte
	for tokenizer.Next() {
		lastPush = tokenizer.Data()
	}
	if tokenizer.Err() != nil || lastPush == nil {
		return nil, fmt.Errorf("%w: cannot extract input pubkey", walleterr.ErrBadFormat)
	}
	return btcec.ParsePubKey(lastPush)
}

func outpointBytes(op wire.OutPoint) [36]byte {
	var out [36]byte
	copy(out[:32], op.Hash[:])
	out[32] = byte(op.Index)
	out[33] = byte(op.Index >> 8)
	out[34] = byte(op.Index >> 16)
	out[35] = byte(op.Index >> 24)
	return out
}

func notificationAddressForPubKey(pub *btcec.PublicKey, params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	hash := btcutil.Hash160(pub.SerializeCompressed())
	netParams := &btcdchaincfg.Params{PubKeyHashAddrID: params.PubKeyHashAddrID}
	return btcutil.NewAddressPubKeyHash(hash, netParams)
}
