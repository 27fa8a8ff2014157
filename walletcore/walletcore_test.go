package walletcore

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
	"github.com/stashwallet/bip47core/channel"
	"github.com/stashwallet/bip47core/mnemonic"
	"github.com/stashwallet/bip47core/notification"
)

type fakeChainStore struct {
	exists       bool
	resetCalled  bool
	opened       bool
	closed       bool
	rollbackCall int
}

func (f *fakeChainStore) Exists() bool { return f.exists }
func (f *fakeChainStore) Reset() error { f.resetCalled = true; f.exists = false; return nil }
func (f *fakeChainStore) Open() error  { f.opened = true; return nil }
func (f *fakeChainStore) Close() error { f.closed = true; return nil }
func (f *fakeChainStore) Rollback(blocks int) error {
	f.rollbackCall += blocks
	return nil
}

type fakePeerGroup struct {
	started  bool
	stopped  bool
	watched  []string
	rebuilds int
}

func (f *fakePeerGroup) Start() error             { f.started = true; return nil }
func (f *fakePeerGroup) Stop()                    { f.stopped = true }
func (f *fakePeerGroup) WatchAddress(addr string) { f.watched = append(f.watched, addr) }
func (f *fakePeerGroup) RebuildFilter()           { f.rebuilds++ }

type fakeKeyImporter struct {
	imported []channel.WatchedKey
}

func (f *fakeKeyImporter) ImportWatchedKey(k channel.WatchedKey) { f.imported = append(f.imported, k) }

func newTestWallet(t *testing.T) (*Wallet, *fakeChainStore, *fakePeerGroup, *bip47acct.Account) {
	t.Helper()
	params := &chaincfg.BTCMainNetParams

	seed, err := mnemonic.SeedFromMnemonic(
		"response seminar brave tip suit recall often sound stick owner lottery motion", "")
	require.NoError(t, err)
	acct, err := bip47acct.NewAccount(seed[:], params, 0)
	require.NoError(t, err)

	chain := &fakeChainStore{}
	peers := &fakePeerGroup{}
	keys := &fakeKeyImporter{}

	w, err := New(Config{
		Dir:     t.TempDir(),
		Params:  params,
		Account: acct,
		Chain:   chain,
		Peers:   peers,
		Keys:    keys,
	})
	require.NoError(t, err)
	return w, chain, peers, acct
}

func TestNewRunsBootSequence(t *testing.T) {
	w, chain, peers, _ := newTestWallet(t)

	require.True(t, chain.opened)
	require.True(t, peers.started)
	require.Contains(t, peers.watched, w.NotificationAddress())
	require.Equal(t, "1JDdmqFLhpzcUwPeinhJbUPw4Co3aWLyzW", w.NotificationAddress())
}

func TestRestoreResetsChainStore(t *testing.T) {
	params := &chaincfg.BTCMainNetParams
	seed, err := mnemonic.SeedFromMnemonic(
		"response seminar brave tip suit recall often sound stick owner lottery motion", "")
	require.NoError(t, err)
	acct, err := bip47acct.NewAccount(seed[:], params, 0)
	require.NoError(t, err)

	chain := &fakeChainStore{exists: true}
	peers := &fakePeerGroup{}
	keys := &fakeKeyImporter{}

	_, err = New(Config{
		Dir: t.TempDir(), Params: params, Account: acct,
		Chain: chain, Peers: peers, Keys: keys, Restore: true,
	})
	require.NoError(t, err)
	require.True(t, chain.resetCalled)
}

func TestChannelForCreatesOnce(t *testing.T) {
	w, _, _, _ := newTestWallet(t)

	bobSeed, err := mnemonic.SeedFromMnemonic(
		"reward upper indicate eight swift arch injury crystal super wrestle already dentist", "")
	require.NoError(t, err)
	bob, err := bip47acct.NewAccount(bobSeed[:], &chaincfg.BTCMainNetParams, 0)
	require.NoError(t, err)
	bobPC, err := bob.PaymentCode()
	require.NoError(t, err)

	ch1, err := w.ChannelFor(bobPC.String())
	require.NoError(t, err)
	ch2, err := w.ChannelFor(bobPC.String())
	require.NoError(t, err)
	require.Same(t, ch1, ch2)
}

func TestHandleNotificationRollsBackOncePerBlock(t *testing.T) {
	w, chain, _, aliceAcct := newTestWallet(t)

	bobSeed, err := mnemonic.SeedFromMnemonic(
		"reward upper indicate eight swift arch injury crystal super wrestle already dentist", "")
	require.NoError(t, err)
	bob, err := bip47acct.NewAccount(bobSeed[:], &chaincfg.BTCMainNetParams, 0)
	require.NoError(t, err)

	tx := buildFakeNotificationTx(t, &chaincfg.BTCMainNetParams, bob, aliceAcct)

	ch, err := w.HandleNotification(tx, 100)
	require.NoError(t, err)
	require.NotNil(t, ch)
	require.Equal(t, 1, chain.rollbackCall)

	_, err = w.HandleNotification(tx, 100)
	require.NoError(t, err)
	require.Equal(t, 1, chain.rollbackCall, "second notification in same block must not roll back again")
}

func TestStopIsIdempotent(t *testing.T) {
	w, chain, peers, _ := newTestWallet(t)

	require.NoError(t, w.Stop())
	require.True(t, chain.closed)
	require.True(t, peers.stopped)

	require.NoError(t, w.Stop())
}

func buildFakeNotificationTx(t *testing.T, params *chaincfg.Params, sender, recipient *bip47acct.Account) *wire.MsgTx {
	t.Helper()

	spendKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(spendKey.PubKey().SerializeCompressed()), &btcdchaincfg.MainNetParams)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)

	recipientPC, err := recipient.PaymentCode()
	require.NoError(t, err)

	utxo := notification.SpendableOutput{
		Outpoint: wire.OutPoint{Hash: chainhash.Hash{9}, Index: 0},
		Value:    10000,
		PkScript: pkScript,
		PrivKey:  spendKey,
	}

	tx, err := notification.Build(params, sender, recipientPC.String(), utxo)
	require.NoError(t, err)
	return tx
}
