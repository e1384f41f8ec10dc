package minhash

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// mersenne61 is the prime modulus of the universal hash family.
const mersenne61 = (1 << 61) - 1

var ErrEmptyText = errors.New("text has no shingles")

type Fingerprint []uint64

type Config struct {
	Seeds     int
	CharNGram int
	HashWidth int
	HashSeed  uint64
}

func DefaultConfig() Config {
	return Config{
		Seeds:     100,
		CharNGram: 5,
		HashWidth: 4,
		HashSeed:  1,
	}
}

func (c Config) Validate() error {
	if c.Seeds <= 0 {
		return fmt.Errorf("seeds must be positive (got %d)", c.Seeds)
	}
	if c.CharNGram <= 0 {
		return fmt.Errorf("char_ngram must be positive (got %d)", c.CharNGram)
	}
	switch c.HashWidth {
	case 2, 4, 8:
	default:
		return fmt.Errorf("hash_width must be 2, 4 or 8 bytes (got %d)", c.HashWidth)
	}
	return nil
}

// Hasher computes MinHash fingerprints. Each of the Seeds hash functions is
// h_i(x) = (a_i*x + b_i) mod (2^61-1), truncated to HashWidth bytes, applied
// to the 64-bit xxhash of a shingle. Coefficients come from a PCG stream seeded
// by HashSeed, so fingerprints are stable across processes.
type Hasher struct {
	cfg  Config
	a    []uint64
	b    []uint64
	mask uint64
}

func NewHasher(cfg Config) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.HashSeed, cfg.HashSeed^0x9e3779b97f4a7c15))
	h := &Hasher{
		cfg: cfg,
		a:   make([]uint64, cfg.Seeds),
		b:   make([]uint64, cfg.Seeds),
	}
	for i := range cfg.Seeds {
		h.a[i] = 1 + rng.Uint64N(mersenne61-1)
		h.b[i] = rng.Uint64N(mersenne61)
	}
	if cfg.HashWidth == 8 {
		h.mask = math.MaxUint64
	} else {
		h.mask = (uint64(1) << (8 * cfg.HashWidth)) - 1
	}
	return h, nil
}

func (h *Hasher) Seeds() int { return h.cfg.Seeds }

// Fingerprint returns the MinHash fingerprint of text, or ErrEmptyText when
// the text is empty.
func (h *Hasher) Fingerprint(text string) (Fingerprint, error) {
	return h.FingerprintShingles(Shingles(text, h.cfg.CharNGram))
}

// FingerprintShingles computes the fingerprint of an already shingled set.
func (h *Hasher) FingerprintShingles(shingles map[string]struct{}) (Fingerprint, error) {
	if len(shingles) == 0 {
		return nil, ErrEmptyText
	}

	fp := make(Fingerprint, h.cfg.Seeds)
	for i := range fp {
		fp[i] = math.MaxUint64
	}
	for s := range shingles {
		x := xxhash.Sum64String(s)
		for i := range fp {
			v := h.permute(i, x)
			if v < fp[i] {
				fp[i] = v
			}
		}
	}
	return fp, nil
}

func (h *Hasher) permute(i int, x uint64) uint64 {
	hi, lo := bits.Mul64(h.a[i], x)
	v := bits.Rem64(hi, lo, mersenne61)
	v += h.b[i]
	if v >= mersenne61 {
		v -= mersenne61
	}
	return v & h.mask
}

// Shingles returns the set of contiguous rune substrings of length n. A
// non-empty text shorter than n yields itself as the only shingle.
func Shingles(text string, n int) map[string]struct{} {
	out := map[string]struct{}{}
	if text == "" || n <= 0 {
		return out
	}
	runes := []rune(text)
	if len(runes) < n {
		out[text] = struct{}{}
		return out
	}
	for i := 0; i+n <= len(runes); i++ {
		out[string(runes[i:i+n])] = struct{}{}
	}
	return out
}

func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// EstimateJaccard is the fraction of positions on which two fingerprints
// agree.
func EstimateJaccard(a, b Fingerprint) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}
