package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("chemistry", "chemistry"))
	assert.Equal(t, 0, Ratio("", "chemistry"))
	assert.Equal(t, 0, Ratio("abc", "xyz"))
	// LCS("kitten", "sitting") = 4 -> 2*4/13.
	assert.Equal(t, 62, Ratio("kitten", "sitting"))
}

func TestTokenSetRatioIdentical(t *testing.T) {
	sig := "stereochemistry spectroscopy reaction mechanisms synthesis"
	assert.Equal(t, 100, TokenSetRatio(sig, sig))
}

func TestTokenSetRatioIgnoresOrderAndCase(t *testing.T) {
	assert.Equal(t, 100, TokenSetRatio("Genetics cells Evolution", "evolution genetics CELLS"))
}

func TestTokenSetRatioSubset(t *testing.T) {
	score := TokenSetRatio("genetics cells evolution", "genetics cells evolution ecology")
	assert.Equal(t, 100, score, "a signature whose tokens are a subset of the other scores 100")
}

func TestTokenSetRatioNearSubset(t *testing.T) {
	score := TokenSetRatio(
		"reaction mechanisms stereochemistry spectroscopy synthesis laboratory spring",
		"reaction mechanisms stereochemistry spectroscopy synthesis laboratory autumn",
	)
	assert.GreaterOrEqual(t, score, 90)
	assert.Less(t, score, 100)
}

func TestTokenSetRatioDisjointIsLow(t *testing.T) {
	score := TokenSetRatio("medieval feudalism crusades", "calculus derivatives integrals")
	assert.Less(t, score, 60)
}

func TestTokenSetRatioEmpty(t *testing.T) {
	assert.Equal(t, 0, TokenSetRatio("", ""))
	assert.Equal(t, 0, TokenSetRatio("chemistry", ""))
	assert.Equal(t, 0, TokenSetRatio("...", "chemistry"))
}

func TestTokenSetRatioSymmetric(t *testing.T) {
	cases := [][2]string{
		{"alpha beta gamma", "beta gamma delta epsilon"},
		{"genetics", "genetics cells"},
		{"organic chemistry", "poetry seminar workshop"},
		{"a b c d e f", "f e d"},
		{"", "something"},
	}
	for _, c := range cases {
		assert.Equal(t, TokenSetRatio(c[0], c[1]), TokenSetRatio(c[1], c[0]), "%q vs %q", c[0], c[1])
	}
}
