package kana

import "testing"

func TestIsKana(t *testing.T) {
	for _, r := range "あいうえおアイウエオっょー" {
		if !IsKana(r) {
			t.Errorf("IsKana(%q) = false, want true", r)
		}
	}
	for _, r := range "漢A1。" {
		if IsKana(r) {
			t.Errorf("IsKana(%q) = true, want false", r)
		}
	}
}

func TestHasKanji(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"学校", true},
		{"食べる", true},
		{"たべる", false},
		{"カタカナ", false},
		{"hello", false},
		{"", false},
	}
	for _, c := range cases {
		if got := HasKanji(c.in); got != c.want {
			t.Errorf("HasKanji(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToHiragana(t *testing.T) {
	if got := ToHiragana("ガッコウ"); got != "がっこう" {
		t.Errorf("ToHiragana = %q, want がっこう", got)
	}
	// Mixed input only converts the katakana part.
	if got := ToHiragana("学校ガ"); got != "学校が" {
		t.Errorf("ToHiragana = %q, want 学校が", got)
	}
}

func TestTailKanaLen(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"言う", 1},
		{"食べる", 2},
		{"学校", 0},
		{"たべる", 3},
	}
	for _, c := range cases {
		if got := TailKanaLen(c.in); got != c.want {
			t.Errorf("TailKanaLen(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
