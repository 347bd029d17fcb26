// Package crosswalk resolves subject/group display names to integer subject
// codes. It builds name and code lookup tables from a reference sheet, an
// index of coarse bucket labels, and a synonym map, all keyed by normalized
// text. Lookups never raise for soft anomalies: unknown tokens and malformed
// range specs come back through explicit diagnostic collectors.
package crosswalk

import (
	"sort"
	"strings"

	"mentormatch/internal/normalize"
)

// Entry is one reference-sheet row: a display name, its code, and an
// optional bucket label grouping several codes under one coarse name.
type Entry struct {
	Name   string
	Code   int
	Bucket string
}

// GroupCode pairs a resolved subject name with its code.
type GroupCode struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// Resolver holds the built lookup tables. It is immutable after New.
type Resolver struct {
	nameToCode map[string]int
	codeToName map[int]string
	buckets    map[string][]GroupCode
	synonyms   map[string]string
}

// New builds a resolver from reference entries and an optional synonym
// table. Later entries win on normalized-name collisions, matching the
// reference sheet's last-writer convention.
func New(entries []Entry, synonyms map[string]string) *Resolver {
	r := &Resolver{
		nameToCode: make(map[string]int, len(entries)),
		codeToName: make(map[int]string, len(entries)),
		buckets:    make(map[string][]GroupCode),
		synonyms:   make(map[string]string, len(synonyms)),
	}
	for _, e := range entries {
		name := normalize.Key(e.Name)
		if name == "" {
			continue
		}
		r.nameToCode[name] = e.Code
		r.codeToName[e.Code] = e.Name
		if bucket := normalize.Key(e.Bucket); bucket != "" {
			r.buckets[bucket] = append(r.buckets[bucket], GroupCode{Name: e.Name, Code: e.Code})
		}
	}
	for alias, canonical := range synonyms {
		r.synonyms[normalize.Key(alias)] = normalize.Key(canonical)
	}
	for bucket := range r.buckets {
		codes := r.buckets[bucket]
		sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
		r.buckets[bucket] = codes
	}
	return r
}

// KnownCodes returns the set of codes present in the reference sheet.
func (r *Resolver) KnownCodes() map[int]struct{} {
	out := make(map[int]struct{}, len(r.codeToName))
	for code := range r.codeToName {
		out[code] = struct{}{}
	}
	return out
}

// CodeName returns the display name for a known code.
func (r *Resolver) CodeName(code int) (string, bool) {
	name, ok := r.codeToName[code]
	return name, ok
}

// ExpandGroupToken resolves one roster token into its subject codes. A token
// may be a literal subject name (resolved via synonym then direct lookup), a
// bucket label covering several codes, or a numeric string matching a known
// code. Unknown tokens return ok=false; the caller collects them as unseen
// groups rather than aborting the row.
func (r *Resolver) ExpandGroupToken(token string) ([]GroupCode, bool) {
	key := normalize.Key(token)
	if key == "" {
		return nil, false
	}
	if canonical, ok := r.synonyms[key]; ok {
		key = canonical
	}
	if code, ok := r.nameToCode[key]; ok {
		return []GroupCode{{Name: r.codeToName[code], Code: code}}, true
	}
	if codes, ok := r.buckets[key]; ok {
		out := make([]GroupCode, len(codes))
		copy(out, codes)
		return out, true
	}
	if code, ok := normalize.Int(key); ok && digitsOnly(key) {
		if name, known := r.codeToName[code]; known {
			return []GroupCode{{Name: name, Code: code}}, true
		}
	}
	return nil, false
}

// ParseGroupCodeSpec parses a comma-separated code spec against the known
// code set. Tokens are single codes ("27") or inclusive ranges ("3:9",
// "3-9"); ranges expand to only the codes present in valid. Out-of-range or
// unrecognized tokens land in the invalid collector so partial specs degrade
// gracefully instead of raising.
func ParseGroupCodeSpec(spec string, valid map[int]struct{}) (codes []int, invalid []string) {
	seen := make(map[int]struct{})
	for _, raw := range strings.Split(spec, ",") {
		token := strings.TrimSpace(normalize.Key(raw))
		if token == "" {
			continue
		}
		lo, hi, ok := parseRangeToken(token)
		if !ok {
			invalid = append(invalid, strings.TrimSpace(raw))
			continue
		}
		matched := false
		for c := lo; c <= hi; c++ {
			if _, known := valid[c]; !known {
				continue
			}
			matched = true
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			codes = append(codes, c)
		}
		if !matched {
			invalid = append(invalid, strings.TrimSpace(raw))
		}
	}
	sort.Ints(codes)
	return codes, invalid
}

func parseRangeToken(token string) (lo, hi int, ok bool) {
	sep := ""
	switch {
	case strings.Contains(token, ":"):
		sep = ":"
	case strings.Contains(token, "-"):
		sep = "-"
	}
	if sep == "" {
		n, ok := atoiStrict(token)
		return n, n, ok
	}
	parts := strings.SplitN(token, sep, 2)
	a, okA := atoiStrict(strings.TrimSpace(parts[0]))
	b, okB := atoiStrict(strings.TrimSpace(parts[1]))
	if !okA || !okB || a > b {
		return 0, 0, false
	}
	return a, b, true
}

func atoiStrict(s string) (int, bool) {
	if s == "" || !digitsOnly(s) {
		return 0, false
	}
	return normalize.Int(s)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
