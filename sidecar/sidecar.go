// Package sidecar persists the BIP-47 channel map to the per-coin
// `<COIN>.bip47` JSON file, written atomically so a crash mid-write never
// corrupts it (spec.md §4.6, §6, §9 design note on the JSON sidecar).
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stashwallet/bip47core/channel"
	"github.com/stashwallet/bip47core/walleterr"
)

// incomingAddressRecord mirrors one element of a channel's incomingAddresses
// array (spec.md §6).
type incomingAddressRecord struct {
	Address string `json:"address"`
	Index   uint32 `json:"index"`
	Seen    bool   `json:"seen"`
}

// channelRecord mirrors one element of the sidecar's top-level array
// (spec.md §6). Unknown fields are ignored on load so newer wallets can add
// fields without breaking older readers.
type channelRecord struct {
	PaymentCode          string                  `json:"paymentCode"`
	Label                string                  `json:"label"`
	IncomingAddresses    []incomingAddressRecord `json:"incomingAddresses"`
	OutgoingAddresses    []string                `json:"outgoingAddresses"`
	Status               int                     `json:"status"`
	CurrentOutgoingIndex uint32                  `json:"currentOutgoingIndex"`
	CurrentIncomingIndex int32                   `json:"currentIncomingIndex"`
}

// toRecord snapshots a channel into its sidecar wire form.
func toRecord(c *channel.Channel) channelRecord {
	incoming := c.IncomingAddresses()
	records := make([]incomingAddressRecord, len(incoming))
	for i, a := range incoming {
		records[i] = incomingAddressRecord{Address: a.Address, Index: a.Index, Seen: a.Seen}
	}

	return channelRecord{
		PaymentCode:          c.PeerPaymentCode(),
		Label:                c.Label,
		IncomingAddresses:    records,
		OutgoingAddresses:    c.OutgoingAddresses(),
		Status:               int(c.Status()),
		CurrentOutgoingIndex: c.CurrentOutgoingIndex(),
		CurrentIncomingIndex: c.CurrentIncomingIndex(),
	}
}

// Save rewrites path with the JSON serialization of channels, one record
// per channel, atomically: it writes to a temp file in the same directory
// and renames it over path so a crash mid-write leaves the prior version
// intact (spec.md §9).
func Save(path string, channels []*channel.Channel) error {
	records := make([]channelRecord, len(channels))
	for i, c := range channels {
		records[i] = toRecord(c)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}
	return nil
}

// ChannelSummary is the subset of a channel record a caller needs to
// reconstruct a channel.Channel (which requires an account for live key
// derivation). Load does not reconstruct channel.Channel values itself;
// the wallet coordinator does that, feeding each summary's PaymentCode
// back through channel.NewChannel and then replaying Label/Status/seen
// flags onto the result.
type ChannelSummary struct {
	PaymentCode          string
	Label                string
	IncomingSeen         []bool
	OutgoingCount        int
	Status               int
	CurrentOutgoingIndex uint32
	CurrentIncomingIndex int32
}

// Load reads and parses path. A missing file is not an error: it returns
// an empty slice, matching a freshly created wallet with no channels yet.
// Any other read or parse error leaves the channel map empty per spec.md
// §7's sidecar deserialization policy, but is still returned so the
// caller can log it.
func Load(path string) ([]ChannelSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}

	var records []channelRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", walleterr.ErrIO, err)
	}

	summaries := make([]ChannelSummary, len(records))
	for i, r := range records {
		seen := make([]bool, len(r.IncomingAddresses))
		for j, a := range r.IncomingAddresses {
			seen[j] = a.Seen
		}
		summaries[i] = ChannelSummary{
			PaymentCode:          r.PaymentCode,
			Label:                r.Label,
			IncomingSeen:         seen,
			OutgoingCount:        len(r.OutgoingAddresses),
			Status:               r.Status,
			CurrentOutgoingIndex: r.CurrentOutgoingIndex,
			CurrentIncomingIndex: r.CurrentIncomingIndex,
		}
	}
	return summaries, nil
}
