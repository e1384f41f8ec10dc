package textnorm

import (
	_ "embed"
	"strings"
	"unicode"
)

//go:embed stopwords.txt
var stopWordsRaw string

var stopWords = loadStopWords(stopWordsRaw)

// ASCII punctuation is deleted, not replaced, so "pre-requisite" becomes
// "prerequisite".
var punctDeleter = strings.NewReplacer(punctuationPairs()...)

type Variants struct {
	Clean       string
	Unique      string
	Distinctive string
}

func loadStopWords(raw string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, line := range strings.Split(raw, "\n") {
		w := strings.TrimSpace(strings.ToLower(line))
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

func punctuationPairs() []string {
	const punct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	pairs := make([]string, 0, len(punct)*2)
	for _, r := range punct {
		pairs = append(pairs, string(r), "")
	}
	return pairs
}

func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Tokens lowercases text, deletes punctuation and returns the remaining
// whitespace-separated tokens that are neither stop words nor purely numeric.
func Tokens(text string) []string {
	text = punctDeleter.Replace(strings.ToLower(text))
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if isNumeric(f) || IsStopWord(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func Clean(text string) string {
	return strings.Join(Tokens(text), " ")
}

// CleanUnique is Clean with repeated tokens dropped, keeping the first
// occurrence of each.
func CleanUnique(text string) string {
	tokens := Tokens(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

// CommonWords returns the terms that occur in strictly more than half of the
// given de-duplicated documents.
func CommonWords(uniqueTexts []string) map[string]struct{} {
	n := len(uniqueTexts)
	common := map[string]struct{}{}
	if n == 0 {
		return common
	}
	df := map[string]int{}
	for _, text := range uniqueTexts {
		seen := map[string]struct{}{}
		for _, t := range strings.Fields(text) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}
	for term, count := range df {
		if 2*count > n {
			common[term] = struct{}{}
		}
	}
	return common
}

func Distinctive(clean string, common map[string]struct{}) string {
	if len(common) == 0 {
		return clean
	}
	fields := strings.Fields(clean)
	out := fields[:0]
	for _, f := range fields {
		if _, ok := common[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// Normalize derives all three variants for every text of one partition. The
// common-word set is only computed when the partition holds at least
// minDocsForCommon documents; below that a majority is formed by the
// duplicates themselves rather than by shared boilerplate.
func Normalize(texts []string, minDocsForCommon int) ([]Variants, map[string]struct{}) {
	out := make([]Variants, len(texts))
	uniques := make([]string, len(texts))
	for i, text := range texts {
		out[i].Clean = Clean(text)
		out[i].Unique = CleanUnique(text)
		uniques[i] = out[i].Unique
	}

	common := map[string]struct{}{}
	if len(texts) >= minDocsForCommon {
		common = CommonWords(uniques)
	}
	for i := range out {
		out[i].Distinctive = Distinctive(out[i].Clean, common)
	}
	return out, common
}

func isNumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
