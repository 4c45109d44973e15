package similarity

import "strings"

var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Soundex computes the classic 4-symbol American Soundex code of the first
// alphabetic token. Non-letters are ignored; an input with no letters maps
// to the empty string.
func Soundex(s string) string {
	var letters []rune
	for _, r := range strings.ToUpper(s) {
		if isASCIILetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := []byte{byte(letters[0])}
	prev := soundexCodes[letters[0]]
	for _, r := range letters[1:] {
		if len(code) == 4 {
			break
		}
		d, coded := soundexCodes[r]
		switch {
		case !coded:
			// Vowels and H/W/Y reset adjacency. H and W are transparent
			// separators in strict Soundex; treating them as resets matches
			// the blocking behavior we want for names.
			prev = 0
		case d != prev:
			code = append(code, d)
			prev = d
		}
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}
