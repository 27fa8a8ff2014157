// Package channel implements the per-counterparty BIP-47 payment channel
// state machine: incoming-address lookahead and rediscovery, and outgoing
// address derivation (spec.md §4.5).
package channel

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	btcdchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/stashwallet/bip47core/bip47acct"
	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/ecdhmask"
	"github.com/stashwallet/bip47core/paymentcode"
	"github.com/stashwallet/bip47core/walleterr"
)

// LookaheadSize is how many unused incoming addresses the channel always
// keeps ready ahead of the most-recently-seen one (spec.md §4.5).
const LookaheadSize = 10

// Status mirrors the channel's outbound notification state.
type Status int

const (
	// StatusFresh means no notification transaction to this peer has
	// been committed yet.
	StatusFresh Status = iota
	// StatusNotified means a notification transaction was sent and
	// confirmed; the state is monotonic once reached.
	StatusNotified
)

// IncomingAddress is one address in the incoming lookahead window.
type IncomingAddress struct {
	Address string
	Index   uint32
	Seen    bool

	privKey *btcec.PrivateKey
}

// WatchedKey is the tweaked private key a newly generated incoming address
// resolves to; the wallet imports it into its external watched-keyset so
// incoming payments to that address can be spent (spec.md §4.5).
type WatchedKey struct {
	Address string
	PrivKey *btcec.PrivateKey
}

// ImportSink receives every newly derived incoming key so the caller can
// hand it to the wallet's watched-keyset. Importing keys into that keyset
// is an external wallet-framework concern (spec.md §1); the channel only
// needs a place to hand new keys to.
type ImportSink interface {
	ImportWatchedKey(WatchedKey)
}

// Channel is the per-counterparty BIP-47 relationship.
type Channel struct {
	mu sync.Mutex

	params          *chaincfg.Params
	myAccount       *bip47acct.Account
	peerPaymentCode *paymentcode.PaymentCode
	peerCodeText    string

	Label string

	incoming            []IncomingAddress
	outgoing            []string
	currentOutgoingIdx  uint32
	currentIncomingIdx  int32 // -1 until the first lookahead address is generated
	status              Status
}

// NewChannel creates a channel for peerPaymentCode and generates the
// initial incoming-address lookahead window, importing each derived key
// into sink (spec.md §4.5).
func NewChannel(params *chaincfg.Params, myAccount *bip47acct.Account, peerPaymentCode string, sink ImportSink) (*Channel, error) {
	peerPC, err := paymentcode.Decode(peerPaymentCode)
	if err != nil {
		return nil, err
	}

	c := &Channel{
		params:             params,
		myAccount:          myAccount,
		peerPaymentCode:    peerPC,
		peerCodeText:       peerPaymentCode,
		currentIncomingIdx: -1,
		status:             StatusFresh,
	}

	for i := 0; i < LookaheadSize; i++ {
		if err := c.generateNextIncoming(sink); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PeerPaymentCode returns the peer's payment code in its text form.
func (c *Channel) PeerPaymentCode() string {
	return c.peerCodeText
}

// Status returns the channel's current notification-sent state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// MarkNotified transitions the channel to StatusNotified. It is a no-op
// if already notified, since the transition is monotonic (spec.md §4.5).
func (c *Channel) MarkNotified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusNotified
}

// IncomingAddresses returns a snapshot of the incoming lookahead window.
func (c *Channel) IncomingAddresses() []IncomingAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]IncomingAddress, len(c.incoming))
	copy(out, c.incoming)
	return out
}

// OutgoingAddresses returns a snapshot of addresses already used to pay
// this peer.
func (c *Channel) OutgoingAddresses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.outgoing))
	copy(out, c.outgoing)
	return out
}

// MarkIncomingSeen marks the incoming address at index idx as seen and
// extends the lookahead window until LookaheadSize addresses follow idx,
// preserving the invariant that at least LookaheadSize unused addresses
// follow the most recently seen one
// (spec.md §4.5). Index advances must be serialized per channel; callers
// hold the same lock the wallet coordinator uses for this channel.
func (c *Channel) MarkIncomingSeen(idx uint32, sink ImportSink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(idx) >= len(c.incoming) {
		return fmt.Errorf("%w: incoming index %d out of range", walleterr.ErrBadFormat, idx)
	}
	if c.incoming[idx].Seen {
		return nil
	}
	c.incoming[idx].Seen = true
	for c.currentIncomingIdx-int32(idx) < LookaheadSize {
		if err := c.generateNextIncoming(sink); err != nil {
			return err
		}
	}
	return nil
}

// generateNextIncoming derives the next incoming address (currentIncomingIdx+1)
// and imports its key. Caller must hold c.mu.
func (c *Channel) generateNextIncoming(sink ImportSink) error {
	nextIdx := uint32(c.currentIncomingIdx + 1)

	tweakedPriv, err := c.deriveIncomingKey(nextIdx)
	if err != nil {
		return err
	}

	hash := btcutil.Hash160(tweakedPriv.PubKey().SerializeCompressed())
	addr, err := addressFromHash(hash, c.params)
	if err != nil {
		return err
	}

	c.incoming = append(c.incoming, IncomingAddress{
		Address: addr.EncodeAddress(),
		Index:   nextIdx,
		Seen:    false,
		privKey: tweakedPriv,
	})
	c.currentIncomingIdx = int32(nextIdx)

	if sink != nil {
		sink.ImportWatchedKey(WatchedKey{Address: addr.EncodeAddress(), PrivKey: tweakedPriv})
	}
	return nil
}

// deriveIncomingKey derives the effective private key the peer would pay
// to at index idx: our payment key at idx, tweaked by SHA-256 of the ECDH
// shared point with the peer's notification pubkey (spec.md §4.5).
func (c *Channel) deriveIncomingKey(idx uint32) (*btcec.PrivateKey, error) {
	ourKey, err := c.myAccount.PaymentKeyAt(idx)
	if err != nil {
		return nil, err
	}
	ourPriv, err := ourKey.ECPrivKey()
	if err != nil {
		return nil, err
	}

	peerNotifPub, err := c.peerPaymentCode.DerivePubKeyAt(0)
	if err != nil {
		return nil, err
	}

	sharedX, err := ecdhmask.SharedSecretX(ourPriv, peerNotifPub)
	if err != nil {
		return nil, err
	}
	tweak := sha256.Sum256(sharedX[:])

	var tweakScalar secp256k1.ModNScalar
	if overflow := tweakScalar.SetBytes(&tweak); overflow != 0 {
		return nil, fmt.Errorf("%w: tweak overflows curve order", walleterr.ErrNotSecp256k1)
	}

	effective := new(secp256k1.ModNScalar).Add2(&ourPriv.Key, &tweakScalar)
	if effective.IsZero() {
		return nil, fmt.Errorf("%w: tweaked private key is zero", walleterr.ErrNotSecp256k1)
	}

	return secp256k1.NewPrivateKey(effective), nil
}

// NextOutgoingAddress derives the address we pay this peer to next:
// derivePubKeyAt(peerPaymentCode, currentOutgoingIndex), and advances the
// outgoing index (spec.md §4.5).
func (c *Channel) NextOutgoingAddress() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pub, err := c.peerPaymentCode.DerivePubKeyAt(c.currentOutgoingIdx)
	if err != nil {
		return "", err
	}
	hash := btcutil.Hash160(pub.SerializeCompressed())
	addr, err := addressFromHash(hash, c.params)
	if err != nil {
		return "", err
	}

	addrStr := addr.EncodeAddress()
	c.outgoing = append(c.outgoing, addrStr)
	c.currentOutgoingIdx++
	return addrStr, nil
}

// CurrentOutgoingIndex returns the next index that will be used by
// NextOutgoingAddress.
func (c *Channel) CurrentOutgoingIndex() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentOutgoingIdx
}

// CurrentIncomingIndex returns the highest generated incoming index.
func (c *Channel) CurrentIncomingIndex() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIncomingIdx
}

// addressFromHash renders a pubkey hash as a legacy P2PKH address under
// params. btcutil's address type only reads the prefix byte off the
// upstream chaincfg.Params value it's given, so we build one on the fly
// from our own Params rather than keeping two network tables in sync.
func addressFromHash(hash []byte, params *chaincfg.Params) (*btcutil.AddressPubKeyHash, error) {
	netParams := &btcdchaincfg.Params{PubKeyHashAddrID: params.PubKeyHashAddrID}
	return btcutil.NewAddressPubKeyHash(hash, netParams)
}
