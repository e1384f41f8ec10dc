package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase and stop words", in: "The History of Modern Europe", want: "history modern europe"},
		{name: "punctuation is deleted", in: "Pre-requisite: BIOL 101, (lab).", want: "prerequisite biol lab"},
		{name: "numeric tokens removed", in: "Offered Spring 2019 3 credits", want: "offered spring credits"},
		{name: "mixed alphanumerics kept", in: "Covers CS50 and 3D modelling", want: "covers cs50 3d modelling"},
		{name: "empty", in: "  ", want: ""},
		{name: "only stop words", in: "it is what it is", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanUniqueKeepsFirstOccurrence(t *testing.T) {
	got := CleanUnique("Labs and lectures; lectures, labs, and seminars")
	assert.Equal(t, "labs lectures seminars", got)
}

func TestCommonWordsThresholdIsStrictMajority(t *testing.T) {
	docs := []string{
		"prerequisite chemistry lab",
		"prerequisite physics lab",
		"prerequisite biology",
		"poetry seminar",
	}
	common := CommonWords(docs)

	// prerequisite: 3 of 4 docs (> 50%) is common.
	// lab: 2 of 4 docs (exactly 50%) is not.
	_, hasPrereq := common["prerequisite"]
	_, hasLab := common["lab"]
	assert.True(t, hasPrereq)
	assert.False(t, hasLab)
	assert.Len(t, common, 1)
}

func TestCommonWordsMatchesDocumentFrequency(t *testing.T) {
	docs := []string{
		"alpha beta gamma",
		"alpha beta",
		"alpha delta",
		"epsilon",
		"alpha beta zeta",
	}
	common := CommonWords(docs)

	df := map[string]int{}
	for _, d := range docs {
		for _, w := range strings.Fields(d) {
			df[w]++
		}
	}
	for term, count := range df {
		_, isCommon := common[term]
		assert.Equal(t, count*2 > len(docs), isCommon, "term %q with df=%d", term, count)
	}
}

func TestDistinctiveLeavesRareTermsUntouched(t *testing.T) {
	common := map[string]struct{}{"offered": {}, "spring": {}}
	got := Distinctive("organic chemistry offered spring reaction mechanisms", common)
	assert.Equal(t, "organic chemistry reaction mechanisms", got)
	assert.Equal(t, "unchanged text", Distinctive("unchanged text", nil))
}

func TestNormalizeSkipsCommonWordsForSmallPartitions(t *testing.T) {
	texts := []string{"shared words here", "shared words there"}

	variants, common := Normalize(texts, 3)
	require.Len(t, variants, 2)
	assert.Empty(t, common)
	assert.Equal(t, variants[0].Clean, variants[0].Distinctive)

	variants, common = Normalize(texts, 2)
	assert.Contains(t, common, "shared")
	assert.Equal(t, "", variants[0].Distinctive)
	assert.Equal(t, "", variants[1].Distinctive)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("won't"))
	assert.False(t, IsStopWord("chemistry"))
}
