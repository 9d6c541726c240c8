package mora

import "strings"

const smallGlides = "ャュョァィゥェォヮゃゅょぁぃぅぇぉゎ"

func isSmallGlide(r rune) bool {
	return strings.ContainsRune(smallGlides, r)
}

// IsKana reports whether r belongs to the kana set used for counting:
// hiragana ぁ-ゖ, katakana ァ-ヺ and the long vowel mark.
func IsKana(r rune) bool {
	switch {
	case r >= 'ぁ' && r <= 'ゖ':
		return true
	case r >= 'ァ' && r <= 'ヺ':
		return true
	case r == 'ー':
		return true
	}
	return false
}

// FilterKana keeps only the kana characters of s.
func FilterKana(s string) string {
	return strings.Map(func(r rune) rune {
		if IsKana(r) {
			return r
		}
		return -1
	}, s)
}

// CountKana counts moras in a kana string. Small glides merge with the unit
// before them; a leading glide has nothing to merge with and adds nothing.
func CountKana(kana string) int {
	n := 0
	for _, r := range kana {
		if isSmallGlide(r) {
			continue
		}
		n++
	}
	return n
}
