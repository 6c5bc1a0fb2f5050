// Package kana holds small character-class helpers shared by the tokenizer,
// dictionary and furigana packages.
package kana

// IsKana reports whether r is hiragana or katakana.
func IsKana(r rune) bool {
	return r >= 0x3040 && r <= 0x30FF
}

// HasKanji reports whether s contains at least one CJK ideograph.
func HasKanji(s string) bool {
	for _, r := range s {
		if (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) {
			return true
		}
	}
	return false
}

// IsASCII reports whether every rune in s is below U+0080.
func IsASCII(s string) bool {
	for _, r := range s {
		if r >= 0x80 {
			return false
		}
	}
	return true
}

// ToHiragana converts katakana characters to hiragana, leaving everything
// else untouched.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// TailKanaLen counts trailing kana runes in s, e.g. 言う→1, 食べる→2.
func TailKanaLen(s string) int {
	runes := []rune(s)
	n := 0
	for i := len(runes) - 1; i >= 0; i-- {
		if !IsKana(runes[i]) {
			break
		}
		n++
	}
	return n
}
