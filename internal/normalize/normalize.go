// Package normalize canonicalizes free-text roster fields into stable lookup
// keys: Persian and Arabic-Indic digits fold to ASCII, Arabic letter variants
// fold to their Persian forms, and whitespace (including zero-width joiners)
// collapses to single spaces.
package normalize

import (
	"strconv"
	"strings"
	"unicode"
)

var letterFold = map[rune]rune{
	'ي': 'ی', // ي -> ی
	'ئ': 'ی', // ئ -> ی
	'ى': 'ی', // ى -> ی
	'ك': 'ک', // ك -> ک
	'ة': 'ه', // ة -> ه
	'أ': 'ا', // أ -> ا
	'إ': 'ا', // إ -> ا
	'آ': 'ا', // آ -> ا
	'ٱ': 'ا', // ٱ -> ا
	'ؤ': 'و', // ؤ -> و
}

// digit ranges: Persian U+06F0..U+06F9, Arabic-Indic U+0660..U+0669.
func foldDigit(r rune) (rune, bool) {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰'), true
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠'), true
	}
	return r, false
}

func dropped(r rune) bool {
	switch r {
	case '\u200c', '\u200d', '\u200e', '\u200f', '\ufeff': // zero-width and direction marks
		return true
	case 'ـ': // tatweel
		return true
	}
	// Arabic combining diacritics U+064B..U+0652.
	return r >= 'ً' && r <= 'ْ'
}

// Key returns the canonical lookup key for s: letter and digit variants
// folded, droppable marks removed, whitespace collapsed, latin lowercased.
func Key(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true // leading whitespace is trimmed
	for _, r := range s {
		if dropped(r) {
			continue
		}
		if d, ok := foldDigit(r); ok {
			r = d
		}
		if f, ok := letterFold[r]; ok {
			r = f
		}
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimRight(b.String(), " ")
}

// Digits returns only the digit characters of s, folded to ASCII.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if d, ok := foldDigit(r); ok {
			b.WriteRune(d)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Int parses s as an integer after folding digits and trimming everything
// else. Returns false when s carries no digits.
func Int(s string) (int, bool) {
	d := Digits(s)
	if d == "" {
		return 0, false
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0, false
	}
	return n, true
}
