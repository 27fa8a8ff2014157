// Package walletcore implements the BIP-47 wallet coordinator: it owns the
// HD account, the per-peer channel map, and the sidecar file, and reacts
// to transactions surfaced by an external SPV chain/peer-group
// collaborator (spec.md §4.6).
package walletcore

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog"
	"github.com/davecgh/go-spew/spew"

	"github.com/stashwallet/bip47core/bip47acct"
	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/channel"
	"github.com/stashwallet/bip47core/notification"
	"github.com/stashwallet/bip47core/sidecar"
	"github.com/stashwallet/bip47core/walleterr"
)

// log is the wallet coordinator's logger, silent until UseLogger is called
// (spec.md ambient stack: logging).
var log = btclog.Disabled

// UseLogger sets the logger used for boot-sequence and runtime-reaction
// events.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// filterExhaustionThreshold is the number of same-block notification
// transactions that forces a Bloom-filter rebuild (spec.md §4.6).
const filterExhaustionThreshold = 5

// ChainStore is the external SPV header/block store collaborator
// (spec.md §1, §4.6). Exists reports whether a chain file is already on
// disk; Reset discards it (used on seed-restore); Rollback unwinds the
// chain by the given number of blocks so the peer group re-downloads
// them under the now-expanded watched keyset.
type ChainStore interface {
	Exists() bool
	Reset() error
	Open() error
	Close() error
	Rollback(blocks int) error
}

// PeerGroup is the external SPV peer-group collaborator (spec.md §1,
// §4.6). WatchAddress adds addr to the Bloom filter; RebuildFilter forces
// a full filter regeneration when too many matches land in one block.
type PeerGroup interface {
	Start() error
	Stop()
	WatchAddress(addr string)
	RebuildFilter()
}

// KeyImporter receives every tweaked private key a channel derives so it
// can be added to the wallet framework's watched keyset (spec.md §4.5).
// channel.ImportSink is satisfied by the same interface shape; Wallet
// wires itself through unchanged.
type KeyImporter = channel.ImportSink

// Wallet is the per-coin BIP-47 wallet coordinator.
type Wallet struct {
	mu sync.Mutex

	params      *chaincfg.Params
	account     *bip47acct.Account
	sidecarPath string

	chain   ChainStore
	peers   PeerGroup
	keys    KeyImporter
	stopped bool

	channels map[string]*channel.Channel

	notifAddr        string
	notifPriv        *btcec.PrivateKey
	rolledBackBlocks map[int32]bool
}

// Config bundles the external collaborators a Wallet needs. Restore is
// true when the account was just (re)created from an explicitly supplied
// seed rather than loaded from an existing wallet file; per spec.md §4.6
// this means any existing chain file is discarded before opening.
type Config struct {
	Dir     string
	Params  *chaincfg.Params
	Account *bip47acct.Account
	Chain   ChainStore
	Peers   PeerGroup
	Keys    KeyImporter
	Restore bool
}

// New constructs a Wallet and runs its boot sequence: open-or-reset the
// chain store, start the peer group, watch the notification address, and
// load the sidecar to repopulate the channel map (spec.md §4.6).
func New(cfg Config) (*Wallet, error) {
	notifKey, err := cfg.Account.NotificationKey()
	if err != nil {
		return nil, err
	}
	notifPriv, err := notifKey.ECPrivKey()
	if err != nil {
		return nil, err
	}
	notifAddr, err := cfg.Account.NotificationAddress()
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		params:           cfg.Params,
		account:          cfg.Account,
		sidecarPath:      filepath.Join(cfg.Dir, cfg.Params.Coin.String()+".bip47"),
		chain:            cfg.Chain,
		peers:            cfg.Peers,
		keys:             cfg.Keys,
		channels:         make(map[string]*channel.Channel),
		notifAddr:        notifAddr.EncodeAddress(),
		notifPriv:        notifPriv,
		rolledBackBlocks: make(map[int32]bool),
	}

	if cfg.Restore {
		if err := w.chain.Reset(); err != nil {
			return nil, fmt.Errorf("%w: %v", walleterr.ErrIO, err)
		}
	}
	if err := w.chain.Open(); err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrBlockStore, err)
	}
	if err := w.peers.Start(); err != nil {
		return nil, err
	}
	w.peers.WatchAddress(w.notifAddr)

	if err := w.loadSidecar(); err != nil {
		return nil, err
	}

	log.Infof("wallet opened for %s, notification address %s, %d channels restored",
		cfg.Params.Coin, w.notifAddr, len(w.channels))
	return w, nil
}

// loadSidecar reads the sidecar file and reconstructs every channel it
// names. A sidecar parse failure leaves the channel map empty and is
// swallowed, per spec.md §7's propagation policy.
func (w *Wallet) loadSidecar() error {
	summaries, err := sidecar.Load(w.sidecarPath)
	if err != nil {
		return nil
	}

	for _, s := range summaries {
		ch, err := channel.NewChannel(w.params, w.account, s.PaymentCode, w.keys)
		if err != nil {
			continue
		}
		ch.Label = s.Label
		for i, seen := range s.IncomingSeen {
			if seen {
				_ = ch.MarkIncomingSeen(uint32(i), w.keys)
			}
		}
		for i := 0; i < s.OutgoingCount; i++ {
			if _, err := ch.NextOutgoingAddress(); err != nil {
				break
			}
		}
		if channel.Status(s.Status) == channel.StatusNotified {
			ch.MarkNotified()
		}
		w.channels[s.PaymentCode] = ch
	}
	return nil
}

// NotificationAddress returns the address this wallet watches for inbound
// notification transactions.
func (w *Wallet) NotificationAddress() string {
	return w.notifAddr
}

// ChannelFor returns the channel for a peer payment code, creating it if
// this is the first time the peer has been observed (spec.md §3
// lifecycle: "channels are created the first time a peer payment code is
// observed").
func (w *Wallet) ChannelFor(peerPaymentCode string) (*channel.Channel, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.channelForLocked(peerPaymentCode)
}

func (w *Wallet) channelForLocked(peerPaymentCode string) (*channel.Channel, error) {
	if ch, ok := w.channels[peerPaymentCode]; ok {
		return ch, nil
	}
	ch, err := channel.NewChannel(w.params, w.account, peerPaymentCode, w.keys)
	if err != nil {
		return nil, err
	}
	w.channels[peerPaymentCode] = ch
	log.Infof("opened channel for peer payment code %s", peerPaymentCode)
	return ch, w.persistLocked()
}

func (w *Wallet) persistLocked() error {
	all := make([]*channel.Channel, 0, len(w.channels))
	for _, ch := range w.channels {
		all = append(all, ch)
	}
	return sidecar.Save(w.sidecarPath, all)
}

// HandleNotification processes an inbound transaction at our notification
// address: parses the blinded payment code, creates (or reuses) the
// corresponding channel, and persists the sidecar (spec.md §4.4, §4.6).
// blockHeight is -1 for an unconfirmed transaction; rollback only applies
// to confirmed ones.
func (w *Wallet) HandleNotification(tx *wire.MsgTx, blockHeight int32) (*channel.Channel, error) {
	peerPC, err := notification.Parse(tx, w.notifPriv)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ch, err := w.channelForLocked(peerPC.String())
	if err != nil {
		return nil, err
	}
	log.Tracef("notification tx %s parsed to channel state: %s", tx.TxHash(), spew.Sdump(ch))

	if blockHeight >= 0 && !w.rolledBackBlocks[blockHeight] {
		w.rolledBackBlocks[blockHeight] = true
		log.Infof("rolling back %d block(s) after notification at height %d", rollbackDepth, blockHeight)
		if err := w.chain.Rollback(rollbackDepth); err != nil {
			log.Warnf("rollback at height %d failed: %v", blockHeight, err)
			return ch, fmt.Errorf("%w: %v", walleterr.ErrBlockStore, err)
		}
	}

	return ch, nil
}

// rollbackDepth is how many blocks the chain rewinds the first time a
// notification transaction is observed in a block, so lookahead keys
// imported while parsing it are present in the Bloom filter before any
// payment transaction in that same block is reprocessed (spec.md §9 open
// question: "pick a depth that guarantees the keyset is in place"). One
// block covers the documented case of the payment landing in the
// notification's own block or the next one, since re-download starts from
// the notification's block itself.
const rollbackDepth = 1

// HandleIncomingAddressSeen marks address idx of the channel belonging to
// peerPaymentCode as seen and extends its lookahead window, persisting the
// sidecar afterward (spec.md §4.5, §4.6).
func (w *Wallet) HandleIncomingAddressSeen(peerPaymentCode string, idx uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch, ok := w.channels[peerPaymentCode]
	if !ok {
		return fmt.Errorf("%w: unknown channel for incoming address", walleterr.ErrBadFormat)
	}
	if err := ch.MarkIncomingSeen(idx, w.keys); err != nil {
		return err
	}
	return w.persistLocked()
}

// CheckFilterExhaustion yields to the external filter-rebuild mechanism
// when a single block carries at least filterExhaustionThreshold
// notification transactions destined to us (spec.md §4.6).
func (w *Wallet) CheckFilterExhaustion(notificationsInBlock int) {
	if notificationsInBlock >= filterExhaustionThreshold {
		log.Infof("%d notification(s) in one block, rebuilding Bloom filter", notificationsInBlock)
		w.peers.RebuildFilter()
	}
}

// Stop idempotently stops the peer group and closes the chain store. It
// does not return an error on a second call (spec.md §5: "idempotent;
// after it returns, no new callbacks will fire").
func (w *Wallet) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	log.Infof("stopping wallet for %s", w.params.Coin)
	w.peers.Stop()
	return w.chain.Close()
}
