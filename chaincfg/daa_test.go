package chaincfg

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHeader struct {
	height    int32
	timestamp time.Time
	bits      uint32
	work      *big.Int
}

func (h fakeHeader) Height() int32          { return h.height }
func (h fakeHeader) Timestamp() time.Time   { return h.timestamp }
func (h fakeHeader) Bits() uint32           { return h.bits }
func (h fakeHeader) ChainWork() *big.Int    { return h.work }

type fakeStore struct {
	byHeight map[int32]HeaderView
}

func (s *fakeStore) HeaderByHeight(height int32) (HeaderView, error) {
	h, ok := s.byHeight[height]
	if !ok {
		return nil, errNotFound
	}
	return h, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "header not found" }

// TestSuitableReturnsMedianTimestamp exercises spec.md §8 concrete scenario
// 6: three synthetic headers with timestamps (t, t+1200, t+600) must yield
// the header timestamped t+600.
func TestSuitableReturnsMedianTimestamp(t *testing.T) {
	base := time.Unix(1_600_000_000, 0)
	store := &fakeStore{byHeight: map[int32]HeaderView{
		100: fakeHeader{height: 100, timestamp: base, work: big.NewInt(300)},
		99:  fakeHeader{height: 99, timestamp: base.Add(1200 * time.Second), work: big.NewInt(200)},
		98:  fakeHeader{height: 98, timestamp: base.Add(600 * time.Second), work: big.NewInt(100)},
	}}

	got, err := Suitable(store, 100)
	require.NoError(t, err)
	require.Equal(t, base.Add(600*time.Second), got.Timestamp())
}

func TestNextCashWorkRequiredNeedsHistory(t *testing.T) {
	store := &fakeStore{byHeight: map[int32]HeaderView{}}
	_, err := NextCashWorkRequired(&BCHMainNetParams, store, 10)
	require.Error(t, err)
}

func TestCheckTestnetMinDifficulty(t *testing.T) {
	parent := time.Unix(1_600_000_000, 0)
	require.True(t, CheckTestnetMinDifficulty(&BCHTestNet3Params, parent, parent.Add(21*time.Minute)))
	require.False(t, CheckTestnetMinDifficulty(&BCHTestNet3Params, parent, parent.Add(5*time.Minute)))
	require.False(t, CheckTestnetMinDifficulty(&BCHMainNetParams, parent, parent.Add(time.Hour)))
}
