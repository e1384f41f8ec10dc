package fuzzy

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// Ratio is the indel similarity of two strings scaled to 0..100:
// 100 * 2*LCS(a, b) / (len(a)+len(b)), rounded half to even. Either string
// empty scores 0.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLength(ra, rb)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}

// TokenSetRatio compares two strings as token sets. The shared tokens are
// compared against each side's shared+remaining tokens, so a signature that is
// a subset of the other still scores high and token order is irrelevant.
func TokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, diffAB, diffBA []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			diffBA = append(diffBA, t)
		}
	}
	slices.Sort(sect)
	slices.Sort(diffAB)
	slices.Sort(diffBA)

	base := strings.Join(sect, " ")
	combinedAB := strings.TrimSpace(base + " " + strings.Join(diffAB, " "))
	combinedBA := strings.TrimSpace(base + " " + strings.Join(diffBA, " "))

	return max(
		Ratio(base, combinedAB),
		Ratio(base, combinedBA),
		Ratio(combinedAB, combinedBA),
	)
}

func tokenSet(s string) map[string]struct{} {
	processed := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	out := map[string]struct{}{}
	for _, f := range strings.Fields(processed) {
		out[f] = struct{}{}
	}
	return out
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
