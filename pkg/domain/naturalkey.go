package domain

import "strings"

// CompareNatural orders identifiers by alternating digit and text runs:
// digit runs compare as integers, text runs compare case-insensitively.
// "EMP-2" sorts before "EMP-010" even though plain string order disagrees,
// keeping tie-breaks independent of zero-padding conventions.
func CompareNatural(a, b string) int {
	ai, bi := 0, 0
	for ai < len(a) && bi < len(b) {
		aDigit := isDigit(a[ai])
		bDigit := isDigit(b[bi])
		if aDigit != bDigit {
			// A digit run sorts before a text run at the same position.
			if aDigit {
				return -1
			}
			return 1
		}
		if aDigit {
			aRun, an := digitRun(a, ai)
			bRun, bn := digitRun(b, bi)
			if c := compareDigits(aRun, bRun); c != 0 {
				return c
			}
			ai, bi = an, bn
			continue
		}
		aRun, an := textRun(a, ai)
		bRun, bn := textRun(b, bi)
		if c := strings.Compare(strings.ToLower(aRun), strings.ToLower(bRun)); c != 0 {
			return c
		}
		ai, bi = an, bn
	}
	switch {
	case ai < len(a):
		return 1
	case bi < len(b):
		return -1
	}
	// Equal under natural rules; fall back to raw comparison so the order
	// stays total for keys like "EMP-2" vs "EMP-02".
	return strings.Compare(a, b)
}

// NaturalLess reports whether a sorts before b under natural-key ordering.
func NaturalLess(a, b string) bool { return CompareNatural(a, b) < 0 }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digitRun(s string, i int) (string, int) {
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[start:i], i
}

func textRun(s string, i int) (string, int) {
	start := i
	for i < len(s) && !isDigit(s[i]) {
		i++
	}
	return s[start:i], i
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
