package salience

import (
	"math"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

const DefaultTopK = 10

// Vectorizer holds the vocabulary and smoothed inverse document frequencies
// of one partition's cleaned corpus.
type Vectorizer struct {
	vocab  map[string]int
	terms  []string
	idf    []float64
	counts []map[int]int
}

type TermWeight struct {
	Term   string
	Weight float64
}

// Fit builds the vocabulary in first-appearance order across docs and
// computes idf(t) = ln((1+n)/(1+df(t))) + 1.
func Fit(docs []string) *Vectorizer {
	v := &Vectorizer{
		vocab:  map[string]int{},
		counts: make([]map[int]int, len(docs)),
	}
	var df []int
	for i, doc := range docs {
		tf := map[int]int{}
		for _, tok := range strings.Fields(doc) {
			id, ok := v.vocab[tok]
			if !ok {
				id = len(v.terms)
				v.vocab[tok] = id
				v.terms = append(v.terms, tok)
				df = append(df, 0)
			}
			if tf[id] == 0 {
				df[id]++
			}
			tf[id]++
		}
		v.counts[i] = tf
	}

	n := float64(len(docs))
	v.idf = make([]float64, len(v.terms))
	for id, d := range df {
		v.idf[id] = math.Log((1+n)/(1+float64(d))) + 1
	}
	return v
}

// Weights returns the L2-normalised tf-idf weights of document doc, ordered
// by descending weight and then by vocabulary position. Only strictly
// positive weights are returned.
func (v *Vectorizer) Weights(doc int) []TermWeight {
	if doc < 0 || doc >= len(v.counts) {
		return nil
	}
	tf := v.counts[doc]
	if len(tf) == 0 {
		return nil
	}

	ids := make([]int, 0, len(tf))
	raw := make(map[int]float64, len(tf))
	var norm float64
	for id, count := range tf {
		w := float64(count) * v.idf[id]
		raw[id] = w
		norm += w * w
		ids = append(ids, id)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}

	slices.SortFunc(ids, func(a, b int) int {
		wa, wb := raw[a], raw[b]
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		default:
			return a - b
		}
	})

	out := make([]TermWeight, 0, len(ids))
	for _, id := range ids {
		w := raw[id] / norm
		if w <= 0 {
			continue
		}
		out = append(out, TermWeight{Term: v.terms[id], Weight: w})
	}
	return out
}

// Signature joins the top k terms of doc with single spaces.
func (v *Vectorizer) Signature(doc, k int) string {
	if k <= 0 {
		k = DefaultTopK
	}
	weights := v.Weights(doc)
	if len(weights) > k {
		weights = weights[:k]
	}
	terms := make([]string, len(weights))
	for i, w := range weights {
		terms[i] = w.Term
	}
	return strings.Join(terms, " ")
}

// Signatures computes signatures only for the documents in members.
func Signatures(docs []string, members *roaring.Bitmap, k int) map[uint32]string {
	v := Fit(docs)
	out := make(map[uint32]string, members.GetCardinality())
	it := members.Iterator()
	for it.HasNext() {
		doc := it.Next()
		if int(doc) >= len(docs) {
			continue
		}
		out[doc] = v.Signature(int(doc), k)
	}
	return out
}
