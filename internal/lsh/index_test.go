package lsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litindex/internal/minhash"
)

func TestNewRejectsBadBanding(t *testing.T) {
	_, err := New(10, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple of bands")

	_, err = New(10, 0)
	assert.Error(t, err)

	_, err = New(100, 10)
	assert.NoError(t, err)
}

func TestAddRejectsWrongLength(t *testing.T) {
	idx, err := New(4, 2)
	require.NoError(t, err)
	assert.Error(t, idx.Add(0, minhash.Fingerprint{1, 2, 3}))
}

func TestCandidatesFromSharedBands(t *testing.T) {
	idx, err := New(6, 3)
	require.NoError(t, err)

	// doc 0 and 1 agree on band 0; doc 1 and 2 agree on band 2; doc 3 is alone.
	require.NoError(t, idx.Add(0, minhash.Fingerprint{1, 1, 5, 5, 9, 9}))
	require.NoError(t, idx.Add(1, minhash.Fingerprint{1, 1, 6, 6, 8, 8}))
	require.NoError(t, idx.Add(2, minhash.Fingerprint{2, 2, 7, 7, 8, 8}))
	require.NoError(t, idx.Add(3, minhash.Fingerprint{3, 3, 3, 3, 3, 3}))

	pairs, stats := idx.Candidates()
	assert.Equal(t, []Pair{{A: 0, B: 1}, {A: 1, B: 2}}, pairs)
	assert.Equal(t, 4, stats.Documents)
	assert.Equal(t, 2, stats.Buckets)
	assert.Equal(t, 2, stats.LargestBucket)
	assert.Equal(t, 2, stats.Pairs)
}

func TestCandidatesDeduplicatedAcrossBands(t *testing.T) {
	idx, err := New(6, 3)
	require.NoError(t, err)
	fp := minhash.Fingerprint{4, 4, 4, 4, 4, 4}
	require.NoError(t, idx.Add(7, fp))
	require.NoError(t, idx.Add(2, fp))

	pairs, stats := idx.Candidates()
	require.Len(t, pairs, 1, "identical fingerprints co-occur in every band but form one pair")
	assert.Equal(t, Pair{A: 2, B: 7}, pairs[0])
	assert.Equal(t, 3, stats.Buckets)
}

func TestCandidatesSymmetric(t *testing.T) {
	h, err := minhash.NewHasher(minhash.DefaultConfig())
	require.NoError(t, err)
	texts := []string{
		"introduction cell biology genetics evolution laboratory",
		"introduction cell biology genetics evolution laboratory field",
		"medieval european history feudalism crusades",
		"medieval european history feudalism crusades reformation",
		"calculus limits derivatives integrals",
	}

	forward, err := New(100, 20)
	require.NoError(t, err)
	reverse, err := New(100, 20)
	require.NoError(t, err)
	for i, text := range texts {
		fp, err := h.Fingerprint(text)
		require.NoError(t, err)
		require.NoError(t, forward.Add(uint32(i), fp))
	}
	for i := len(texts) - 1; i >= 0; i-- {
		fp, err := h.Fingerprint(texts[i])
		require.NoError(t, err)
		require.NoError(t, reverse.Add(uint32(i), fp))
	}

	a, _ := forward.Candidates()
	b, _ := reverse.Candidates()
	assert.Equal(t, a, b, "insertion order must not change the candidate set")

	seen := map[Pair]bool{}
	for _, p := range a {
		assert.Less(t, p.A, p.B)
		assert.False(t, seen[p], "duplicate pair %+v", p)
		assert.False(t, seen[Pair{A: p.B, B: p.A}], "mirrored pair %+v", p)
		seen[p] = true
	}
}

func TestMembers(t *testing.T) {
	bm := Members([]Pair{{A: 0, B: 3}, {A: 3, B: 5}})
	assert.Equal(t, []uint32{0, 3, 5}, bm.ToArray())
}
