// Package similarity provides the string comparison primitives used by
// blocking and scoring. All functions are pure and return values in [0,1]
// unless noted.
package similarity

import (
	"fmt"
	"strings"
	"unicode"
)

// Supported algorithm names, referenced from field weight configuration.
const (
	AlgorithmExact       = "exact"
	AlgorithmNGram       = "ngram"
	AlgorithmLevenshtein = "levenshtein"
	AlgorithmJaroWinkler = "jaro_winkler"
	AlgorithmPhonetic    = "phonetic"
)

// Compute dispatches on the algorithm name. Unknown names are an error so
// configuration typos fail loudly.
func Compute(algorithm, a, b string) (float64, error) {
	switch algorithm {
	case AlgorithmExact:
		return Exact(a, b), nil
	case AlgorithmNGram:
		return Jaccard(NGrams(a, 3), NGrams(b, 3)), nil
	case AlgorithmLevenshtein:
		return NormalizedLevenshtein(a, b), nil
	case AlgorithmJaroWinkler:
		return JaroWinkler(a, b), nil
	case AlgorithmPhonetic:
		return Exact(Soundex(a), Soundex(b)), nil
	default:
		return 0, fmt.Errorf("unknown similarity algorithm %q", algorithm)
	}
}

// Exact is 1 for case-insensitive equality after trimming, else 0.
func Exact(a, b string) float64 {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1
	}
	return 0
}

// NGrams returns the set of character n-grams of the lowercased input. Inputs
// shorter than n yield the whole string as a single gram.
func NGrams(s string, n int) map[string]struct{} {
	grams := make(map[string]struct{})
	runes := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(runes) == 0 || n <= 0 {
		return grams
	}
	if len(runes) < n {
		grams[string(runes)] = struct{}{}
		return grams
	}
	for i := 0; i+n <= len(runes); i++ {
		grams[string(runes[i:i+n])] = struct{}{}
	}
	return grams
}

// Jaccard is |A∩B| / |A∪B| over two gram sets. Two empty sets count as
// identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// Dice is 2|A∩B| / (|A|+|B|) over two gram sets.
func Dice(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(a)+len(b))
}

// Levenshtein is the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// NormalizedLevenshtein maps edit distance to a similarity in [0,1]:
// 1 - distance/max(len). Two empty strings are identical.
func NormalizedLevenshtein(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// Jaro computes the Jaro similarity.
func Jaro(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}

	window := la
	if lb > window {
		window = lb
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchA := make([]bool, la)
	matchB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if matchB[j] || ra[i] != rb[j] {
				continue
			}
			matchA[i] = true
			matchB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchA[i] {
			continue
		}
		for !matchB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

// JaroWinkler boosts Jaro by up to 4 characters of common prefix with the
// standard 0.1 scaling factor.
func JaroWinkler(a, b string) float64 {
	j := Jaro(a, b)
	ra, rb := []rune(a), []rune(b)
	prefix := 0
	for i := 0; i < len(ra) && i < len(rb) && i < 4; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func isASCIILetter(r rune) bool {
	return unicode.IsLetter(r) && r < 128
}
