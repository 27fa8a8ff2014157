// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters for the four chains a
// BIP-47 wallet can operate on: Bitcoin mainnet and testnet3, and Bitcoin
// Cash mainnet and testnet3.
package chaincfg

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// CoinID identifies one of the four supported chains by the short strings
// used in wallet directory layout and notification URIs.
type CoinID int

const (
	BTC CoinID = iota
	TBTC
	BCH
	TBCH
)

// String returns the wallet identifier string for the coin, per spec.md §6.
func (c CoinID) String() string {
	switch c {
	case BTC:
		return "BTC"
	case TBTC:
		return "tBTC"
	case BCH:
		return "BCH"
	case TBCH:
		return "tBCH"
	default:
		return "unknown"
	}
}

// HDCoinType returns the BIP-44 coin_type used in the m/47'/coin_type'/account'
// derivation path for the coin.
//
// BCH uses coin_type 0, shared with BTC, rather than its registered value of
// 145. This is preserved for bit-compatibility with existing wallets built
// against the same source this implementation is derived from (spec.md §9,
// open question).
func (c CoinID) HDCoinType() uint32 {
	switch c {
	case BTC, BCH:
		return 0
	case TBTC, TBCH:
		return 1
	default:
		return 0
	}
}

// Checkpoint identifies a known good point in the block chain, used to
// reject deep reorganizations during SPV sync.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// bigOne is 1 represented as a big.Int, defined once to avoid the overhead
// of allocating it on every use.
var bigOne = big.NewInt(1)

// mainPowLimit is the highest allowed proof-of-work target on Bitcoin (and
// Bitcoin Cash, which inherited it) mainnet: 2^224 - 1.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// testNetPowLimit is the highest allowed proof-of-work target on the
// version-3 test networks: 2^224 - 1, same as mainnet.
var testNetPowLimit = mainPowLimit

// Params defines the consensus and wire-level parameters of one of the four
// supported chains. A Params value is immutable once constructed and is
// always passed by reference; there is no global registry to look networks
// up by magic number (spec.md §9, Design Notes: "Global state").
type Params struct {
	// Name is a human-readable identifier, e.g. "bch-mainnet".
	Name string

	// Coin identifies the chain for HD coin-type and wallet-directory
	// purposes.
	Coin CoinID

	// Net is the packet magic used to identify the network on the wire.
	Net wire.BitcoinNet

	// DefaultPort is the default P2P port for the network.
	DefaultPort string

	// URIScheme is the payment-URI scheme the wallet advertises, e.g.
	// "bitcoin" or "bitcoincash".
	URIScheme string

	// GenesisBlock and GenesisHash describe the first block of the chain.
	GenesisBlock *wire.MsgBlock
	GenesisHash  *chainhash.Hash

	// PowLimit and PowLimitBits bound the easiest allowed proof of work,
	// as a uint256 and in compact ("nBits") form respectively.
	PowLimit     *big.Int
	PowLimitBits uint32

	// TargetTimespan and TargetTimePerBlock drive the classic 2016-block
	// retarget inherited unmodified from Bitcoin for pre-DAA-activation
	// blocks on every chain (spec.md §4.7).
	TargetTimespan     time.Duration
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor bounds how far a single classic retarget
	// may move the difficulty, in either direction.
	RetargetAdjustmentFactor int64

	// ReduceMinDifficulty and MinDiffReductionTime implement the testnet
	// minimum-difficulty rule (spec.md §4.7): if true, a block more than
	// MinDiffReductionTime after its parent may be mined at PowLimitBits.
	ReduceMinDifficulty  bool
	MinDiffReductionTime time.Duration

	// UseForkID marks the chains whose transactions use the Bitcoin Cash
	// (BIP-143 + fork id) sighash algorithm (spec.md §6). No signing code
	// in this module reads it: notification.Build signs with the legacy
	// SigHashAll algorithm on every chain, including BCH.
	UseForkID bool

	// CashDAAActivationHeight is the block height at which the cash-work
	// difficulty algorithm (spec.md §4.7) replaces the classic retarget.
	// Zero means the chain never activates it (BTC).
	CashDAAActivationHeight int32

	// MinNonDustOutput is the minimum output value, in satoshis, the
	// network's relay policy accepts; it is also the value used for a
	// notification transaction's payment output (spec.md §6).
	MinNonDustOutput int64

	// CashAddrPrefix is the CashAddr human-readable prefix for Bitcoin
	// Cash chains ("bitcoincash" / "bchtest"); empty for BTC chains,
	// which use legacy Base58Check addressing only.
	CashAddrPrefix string

	// PubKeyHashAddrID and ScriptHashAddrID are the Base58Check version
	// bytes for legacy P2PKH and P2SH addresses.
	PubKeyHashAddrID byte
	ScriptHashAddrID byte
	PrivateKeyID     byte

	// HDPrivateKeyID and HDPublicKeyID are the BIP-32 extended key
	// version bytes (xprv/xpub). They are identical across BTC and BCH.
	HDPrivateKeyID [4]byte
	HDPublicKeyID  [4]byte

	// DNSSeeds lists hostnames used to discover peers for the external
	// SPV peer group.
	DNSSeeds []string

	// Checkpoints are known-good points in the chain, oldest first.
	Checkpoints []Checkpoint
}

// btcHDPrivateKeyID and btcHDPublicKeyID are the standard BIP-32 mainnet
// version bytes (xprv.../xpub...), shared by BTC and BCH since BCH never
// changed them.
var (
	btcHDPrivateKeyID = [4]byte{0x04, 0x88, 0xad, 0xe4}
	btcHDPublicKeyID  = [4]byte{0x04, 0x88, 0xb2, 0x1e}

	// tBTCHDPrivateKeyID and tBTCHDPublicKeyID are the standard testnet
	// version bytes (tprv.../tpub...), shared by the two testnet3 chains.
	tBTCHDPrivateKeyID = [4]byte{0x04, 0x35, 0x83, 0x94}
	tBTCHDPublicKeyID  = [4]byte{0x04, 0x35, 0x87, 0xcf}
)

// BTCMainNetParams defines the parameters for the Bitcoin main network.
var BTCMainNetParams = Params{
	Name:                    "btc-mainnet",
	Coin:                    BTC,
	Net:                     wire.MainNet,
	DefaultPort:             "8333",
	URIScheme:               "bitcoin",
	GenesisBlock:            &genesisBlock,
	GenesisHash:             &genesisHash,
	PowLimit:                mainPowLimit,
	PowLimitBits:            0x1d00ffff,
	TargetTimespan:          time.Hour * 24 * 14,
	TargetTimePerBlock:      time.Minute * 10,
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:     false,
	UseForkID:               false,
	CashDAAActivationHeight: 0,
	MinNonDustOutput:        546,
	PubKeyHashAddrID:        0x00,
	ScriptHashAddrID:        0x05,
	PrivateKeyID:            0x80,
	HDPrivateKeyID:          btcHDPrivateKeyID,
	HDPublicKeyID:           btcHDPublicKeyID,
	DNSSeeds: []string{
		"seed.bitcoin.sipa.be",
		"dnsseed.bluematt.me",
		"dnsseed.bitcoin.dashjr.org",
		"seed.bitcoinstats.com",
	},
	Checkpoints: []Checkpoint{
		{Height: 11111, Hash: newHashFromStr("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
		{Height: 33333, Hash: newHashFromStr("000000002dd5588a74784eaa7ab0507a18ad16a236e7b1ce69f00d7ddfb5d0a6")},
	},
}

// BTCTestNet3Params defines the parameters for the Bitcoin version-3 test
// network.
var BTCTestNet3Params = Params{
	Name:                    "btc-testnet3",
	Coin:                    TBTC,
	Net:                     wire.TestNet3,
	DefaultPort:             "18333",
	URIScheme:               "bitcoin",
	GenesisBlock:            &testNet3GenesisBlock,
	GenesisHash:             &testNet3GenesisHash,
	PowLimit:                testNetPowLimit,
	PowLimitBits:            0x1d00ffff,
	TargetTimespan:          time.Hour * 24 * 14,
	TargetTimePerBlock:      time.Minute * 10,
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:     true,
	MinDiffReductionTime:    time.Minute * 20,
	UseForkID:               false,
	CashDAAActivationHeight: 0,
	MinNonDustOutput:        546,
	PubKeyHashAddrID:        0x6f,
	ScriptHashAddrID:        0xc4,
	PrivateKeyID:            0xef,
	HDPrivateKeyID:          tBTCHDPrivateKeyID,
	HDPublicKeyID:           tBTCHDPublicKeyID,
	DNSSeeds: []string{
		"testnet-seed.bitcoin.jonasschnelli.ch",
		"seed.tbtc.petertodd.org",
	},
}

// BCHMainNetParams defines the parameters for the Bitcoin Cash main network.
// It shares its genesis block and legacy address header with BTC mainnet
// (spec.md §6: "BCH-main uses legacy addressHeader 0, shared with BTC").
var BCHMainNetParams = Params{
	Name:                    "bch-mainnet",
	Coin:                    BCH,
	Net:                     wire.BitcoinNet(0xe8f3e1e3),
	DefaultPort:             "8333",
	URIScheme:               "bitcoincash",
	GenesisBlock:            &genesisBlock,
	GenesisHash:             &genesisHash,
	PowLimit:                mainPowLimit,
	PowLimitBits:            0x1d00ffff,
	TargetTimespan:          time.Hour * 24 * 14,
	TargetTimePerBlock:      time.Minute * 10,
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:     false,
	UseForkID:               true,
	CashDAAActivationHeight: 504032,
	MinNonDustOutput:        546,
	CashAddrPrefix:          "bitcoincash",
	PubKeyHashAddrID:        0x00,
	ScriptHashAddrID:        0x05,
	PrivateKeyID:            0x80,
	HDPrivateKeyID:          btcHDPrivateKeyID,
	HDPublicKeyID:           btcHDPublicKeyID,
	DNSSeeds: []string{
		"seed.bchd.cash",
		"btccash-seeder.bitcoinunlimited.info",
	},
}

// BCHTestNet3Params defines the parameters for the Bitcoin Cash version-3
// test network.
var BCHTestNet3Params = Params{
	Name:                    "bch-testnet3",
	Coin:                    TBCH,
	Net:                     wire.BitcoinNet(0xf4f3e5f4),
	DefaultPort:             "18333",
	URIScheme:               "bitcoincash",
	GenesisBlock:            &testNet3GenesisBlock,
	GenesisHash:             &testNet3GenesisHash,
	PowLimit:                testNetPowLimit,
	PowLimitBits:            0x1d00ffff,
	TargetTimespan:          time.Hour * 24 * 14,
	TargetTimePerBlock:      time.Minute * 10,
	RetargetAdjustmentFactor: 4,
	ReduceMinDifficulty:     true,
	MinDiffReductionTime:    time.Minute * 20,
	UseForkID:               true,
	CashDAAActivationHeight: 1188697,
	MinNonDustOutput:        546,
	CashAddrPrefix:          "bchtest",
	PubKeyHashAddrID:        0x6f,
	ScriptHashAddrID:        0xc4,
	PrivateKeyID:            0xef,
	HDPrivateKeyID:          tBTCHDPrivateKeyID,
	HDPublicKeyID:           tBTCHDPublicKeyID,
	DNSSeeds: []string{
		"testnet-seed.bchd.cash",
	},
}

// ForCoin returns the singleton Params for the given coin identifier.
func ForCoin(c CoinID) *Params {
	switch c {
	case BTC:
		return &BTCMainNetParams
	case TBTC:
		return &BTCTestNet3Params
	case BCH:
		return &BCHMainNetParams
	case TBCH:
		return &BCHTestNet3Params
	default:
		return nil
	}
}

// newHashFromStr converts a big-endian hex string into a chainhash.Hash. It
// only differs from chainhash.NewHashFromStr in that it panics on error,
// which is safe here because it is only ever called with hard-coded,
// known-good hashes at package init time.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}
