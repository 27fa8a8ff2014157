package sidecar

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stashwallet/bip47core/bip47acct"
	"github.com/stashwallet/bip47core/chaincfg"
	"github.com/stashwallet/bip47core/channel"
	"github.com/stashwallet/bip47core/mnemonic"
)

type discardSink struct{}

func (discardSink) ImportWatchedKey(channel.WatchedKey) {}

// TestSaveThenLoadRoundTrips checks spec.md §8's sidecar round-trip
// invariant at the record level: every field saved is recovered on load.
func TestSaveThenLoadRoundTrips(t *testing.T) {
	params := &chaincfg.BTCMainNetParams

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

	ch, err := channel.NewChannel(params, alice, bobPC.String(), discardSink{})
	require.NoError(t, err)
	ch.Label = "bob"
	require.NoError(t, ch.MarkIncomingSeen(0, discardSink{}))
	_, err = ch.NextOutgoingAddress()
	require.NoError(t, err)
	ch.MarkNotified()

	path := filepath.Join(t.TempDir(), "BTC.bip47")
	require.NoError(t, Save(path, []*channel.Channel{ch}))

	summaries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	got := summaries[0]
	require.Equal(t, bobPC.String(), got.PaymentCode)
	require.Equal(t, "bob", got.Label)
	require.Equal(t, int(channel.StatusNotified), got.Status)
	require.Equal(t, 1, got.OutgoingCount)
	require.Equal(t, uint32(1), got.CurrentOutgoingIndex)
	require.Equal(t, int32(channel.LookaheadSize), got.CurrentIncomingIndex)
	require.Len(t, got.IncomingSeen, channel.LookaheadSize+1)
	require.True(t, got.IncomingSeen[0])
	require.False(t, got.IncomingSeen[1])
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.bip47")
	summaries, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, summaries)
}
