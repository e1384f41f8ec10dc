package lsh

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"litindex/internal/minhash"
)

// Pair is an unordered candidate pair of document indices with A < B.
type Pair struct {
	A uint32
	B uint32
}

type Stats struct {
	Documents     int
	Buckets       int
	LargestBucket int
	Pairs         int
}

// Index groups documents into per-band buckets keyed by the exact value of a
// contiguous fingerprint slice.
type Index struct {
	bands   int
	rows    int
	seeds   int
	buckets []map[string]*roaring.Bitmap
	docs    int
}

func New(seeds, bands int) (*Index, error) {
	if bands <= 0 {
		return nil, fmt.Errorf("bands must be positive (got %d)", bands)
	}
	if seeds <= 0 || seeds%bands != 0 {
		return nil, fmt.Errorf("seeds has to be a multiple of bands: %d %% %d != 0", seeds, bands)
	}
	idx := &Index{
		bands:   bands,
		rows:    seeds / bands,
		seeds:   seeds,
		buckets: make([]map[string]*roaring.Bitmap, bands),
	}
	for i := range idx.buckets {
		idx.buckets[i] = map[string]*roaring.Bitmap{}
	}
	return idx, nil
}

func (idx *Index) Add(doc uint32, fp minhash.Fingerprint) error {
	if len(fp) != idx.seeds {
		return fmt.Errorf("fingerprint length %d does not match %d seeds", len(fp), idx.seeds)
	}
	for band := range idx.bands {
		key := bandKey(fp[band*idx.rows : (band+1)*idx.rows])
		bm, ok := idx.buckets[band][key]
		if !ok {
			bm = roaring.New()
			idx.buckets[band][key] = bm
		}
		bm.Add(doc)
	}
	idx.docs++
	return nil
}

// Candidates returns every pair that shares at least one bucket in any band,
// once, sorted by (A, B).
func (idx *Index) Candidates() ([]Pair, Stats) {
	stats := Stats{Documents: idx.docs}
	seen := map[uint64]struct{}{}
	var pairs []Pair
	for _, band := range idx.buckets {
		for _, bm := range band {
			n := int(bm.GetCardinality())
			if n < 2 {
				continue
			}
			stats.Buckets++
			if n > stats.LargestBucket {
				stats.LargestBucket = n
			}
			members := bm.ToArray()
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					k := uint64(members[i])<<32 | uint64(members[j])
					if _, ok := seen[k]; ok {
						continue
					}
					seen[k] = struct{}{}
					pairs = append(pairs, Pair{A: members[i], B: members[j]})
				}
			}
		}
	}
	slices.SortFunc(pairs, func(x, y Pair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	stats.Pairs = len(pairs)
	return pairs, stats
}

// Members returns the union of all documents that appear in a candidate pair.
func Members(pairs []Pair) *roaring.Bitmap {
	bm := roaring.New()
	for _, p := range pairs {
		bm.Add(p.A)
		bm.Add(p.B)
	}
	return bm
}

func bandKey(values []uint64) string {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return string(buf)
}
