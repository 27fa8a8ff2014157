// Package bip47acct implements the BIP-47 account: the derivation branch
// m/47'/coin_type'/account' that anchors a payment code and every key
// derived from it (spec.md §4.2).
package bip47acct

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	btcdchaincfg "github.com/btcsuite/btcd/chaincfg"

	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/paymentcode"
	"github.com/stashwallet/bip47core/walleterr"
)

// purpose is the BIP-43 purpose field for BIP-47, per spec.md §4.2's path
// m/47'/coin_type'/account'.
const purpose = 47 + hdkeychain.HardenedKeyStart

// Account binds a payment code to its derivation branch for one coin. It
// may be either an owning account (backed by a seed, able to sign) or a
// watch-only account instantiated from a peer's payment-code text.
type Account struct {
	params *chaincfg.Params
	node   *hdkeychain.ExtendedKey // the account node at m/47'/coin_type'/account'
}

// hdNetForCoin returns the upstream btcd chaincfg.Params whose HD version
// bytes match the coin. BTC and BCH share BIP-32 version bytes, so only
// the mainnet/testnet distinction matters here — hdkeychain.NewMaster only
// reads the HD version bytes off this value.
func hdNetForCoin(c chaincfg.CoinID) *btcdchaincfg.Params {
	switch c {
	case chaincfg.BTC, chaincfg.BCH:
		return &btcdchaincfg.MainNetParams
	default:
		return &btcdchaincfg.TestNet3Params
	}
}

// NewAccount derives the owning account at index acctIndex for the given
// coin from a BIP-39 seed (spec.md §4.2, §3).
func NewAccount(seed []byte, params *chaincfg.Params, acctIndex uint32) (*Account, error) {
	master, err := hdkeychain.NewMaster(seed, hdNetForCoin(params.Coin))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrBadFormat, err)
	}

	purposeKey, err := master.Derive(purpose)
	if err != nil {
		return nil, err
	}
	coinKey, err := purposeKey.Derive(params.Coin.HDCoinType() + hdkeychain.HardenedKeyStart)
	if err != nil {
		return nil, err
	}
	acctKey, err := coinKey.Derive(acctIndex + hdkeychain.HardenedKeyStart)
	if err != nil {
		return nil, err
	}

	return &Account{params: params, node: acctKey}, nil
}

// NewWatchOnlyAccount instantiates a read-only account from a peer's
// Base58 payment-code string. Only public derivations succeed on the
// result (spec.md §4.2: "account may also be instantiated read-only...").
func NewWatchOnlyAccount(params *chaincfg.Params, peerPaymentCode string) (*Account, error) {
	pc, err := paymentcode.Decode(peerPaymentCode)
	if err != nil {
		return nil, err
	}
	pubKey, err := pc.ToPubKey()
	if err != nil {
		return nil, err
	}

	node := hdkeychain.NewExtendedKey(
		hdNetForCoin(params.Coin).HDPublicKeyID[:],
		pubKey.SerializeCompressed(),
		pc.ChainCode[:],
		[]byte{0, 0, 0, 0},
		0,
		0,
		false,
	)

	return &Account{params: params, node: node}, nil
}

// IsWatchOnly reports whether this account can sign (false) or only derive
// public keys and addresses (true).
func (a *Account) IsWatchOnly() bool {
	return !a.node.IsPrivate()
}

// PaymentCode returns this account's own payment code, derived from the
// account node's public key and chain code (spec.md §4.1, §4.2).
func (a *Account) PaymentCode() (*paymentcode.PaymentCode, error) {
	pub, err := a.node.ECPubKey()
	if err != nil {
		return nil, err
	}
	var chainCode [32]byte
	copy(chainCode[:], a.node.ChainCode())
	return paymentcode.New(pub, chainCode), nil
}

// NotificationKey returns the account's notification key: the non-hardened
// child 0 of the account node (spec.md §4.2).
func (a *Account) NotificationKey() (*hdkeychain.ExtendedKey, error) {
	return a.node.Derive(0)
}

// NotificationAddress returns the P2PKH address of the notification key
// under this account's network.
func (a *Account) NotificationAddress() (*btcutil.AddressPubKeyHash, error) {
	notifKey, err := a.NotificationKey()
	if err != nil {
		return nil, err
	}
	pub, err := notifKey.ECPubKey()
	if err != nil {
		return nil, err
	}
	return addressFromPubKey(pub, a.params)
}

// PaymentKeyAt returns the account's payment key at index n: the
// non-hardened child n of the account node, used either to derive the
// sender-side receive address (when acting as Alice) or, combined with
// ECDH, the addresses a peer can pay us to at that index (when acting as
// Bob; spec.md §4.2, §4.5).
func (a *Account) PaymentKeyAt(n uint32) (*hdkeychain.ExtendedKey, error) {
	return a.node.Derive(n)
}

// addressFromPubKey renders a compressed public key as a legacy P2PKH
// address under params. btcutil's address types only need the handful of
// fields they read off a *btcd/chaincfg.Params value, so we build one
// on the fly from our own Params rather than keeping two parallel network
// tables in sync.
func addressFromPubKey(pub *btcec.PublicKey, params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	hash := btcutil.Hash160(pub.SerializeCompressed())
	netParams := &btcdchaincfg.Params{
		PubKeyHashAddrID: params.PubKeyHashAddrID,
	}
	return btcutil.NewAddressPubKeyHash(hash, netParams)
}
