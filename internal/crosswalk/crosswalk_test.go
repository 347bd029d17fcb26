package crosswalk

import (
	"reflect"
	"testing"
)

func referenceEntries() []Entry {
	return []Entry{
		{Name: "ریاضی", Code: 27, Bucket: "نظری"},
		{Name: "تجربی", Code: 28, Bucket: "نظری"},
		{Name: "انسانی", Code: 29, Bucket: "نظری"},
		{Name: "برق", Code: 41, Bucket: "فنی"},
		{Name: "مکانیک", Code: 42, Bucket: "فنی"},
	}
}

func TestExpandGroupTokenLiteralName(t *testing.T) {
	r := New(referenceEntries(), nil)
	got, ok := r.ExpandGroupToken("ریاضی")
	if !ok {
		t.Fatal("literal name must resolve")
	}
	want := []GroupCode{{Name: "ریاضی", Code: 27}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExpandGroupTokenSynonymThenLookup(t *testing.T) {
	r := New(referenceEntries(), map[string]string{"رياضي": "ریاضی"})
	// Arabic letter variants already fold during normalization; the synonym
	// table additionally maps distinct aliases.
	r2 := New(referenceEntries(), map[string]string{"ریاضی فیزیک": "ریاضی"})
	got, ok := r2.ExpandGroupToken("ریاضی فیزیک")
	if !ok || got[0].Code != 27 {
		t.Fatalf("synonym resolution failed: %v %v", got, ok)
	}
	if _, ok := r.ExpandGroupToken("ریاضی"); !ok {
		t.Fatal("direct lookup broken")
	}
}

func TestExpandGroupTokenNumericKnownCode(t *testing.T) {
	r := New(referenceEntries(), nil)
	got, ok := r.ExpandGroupToken("27")
	if !ok {
		t.Fatal(`token "27" with 27 a known code must resolve, not flag unseen`)
	}
	if len(got) != 1 || got[0].Code != 27 || got[0].Name != "ریاضی" {
		t.Fatalf("got %v", got)
	}
	// Persian digits resolve the same way.
	got, ok = r.ExpandGroupToken("۲۷")
	if !ok || got[0].Code != 27 {
		t.Fatalf("folded-digit token failed: %v %v", got, ok)
	}
}

func TestExpandGroupTokenBucketCoversSeveralCodes(t *testing.T) {
	r := New(referenceEntries(), nil)
	got, ok := r.ExpandGroupToken("نظری")
	if !ok {
		t.Fatal("bucket label must resolve")
	}
	if len(got) != 3 || got[0].Code != 27 || got[2].Code != 29 {
		t.Fatalf("bucket expansion = %v", got)
	}
}

func TestExpandGroupTokenUnknownReportsUnseen(t *testing.T) {
	r := New(referenceEntries(), nil)
	if _, ok := r.ExpandGroupToken("هنرستان موسیقی"); ok {
		t.Fatal("unknown token must not resolve")
	}
	// Unknown numeric code is also unseen.
	if _, ok := r.ExpandGroupToken("99"); ok {
		t.Fatal("unknown numeric code must not resolve")
	}
}

func TestParseGroupCodeSpecRangesAndInvalids(t *testing.T) {
	valid := map[int]struct{}{27: {}, 28: {}, 29: {}, 41: {}}
	codes, invalid := ParseGroupCodeSpec("27, 28:30, 40-42, xyz, 99", valid)
	wantCodes := []int{27, 28, 29, 41}
	if !reflect.DeepEqual(codes, wantCodes) {
		t.Fatalf("codes = %v, want %v", codes, wantCodes)
	}
	wantInvalid := []string{"xyz", "99"}
	if !reflect.DeepEqual(invalid, wantInvalid) {
		t.Fatalf("invalid = %v, want %v", invalid, wantInvalid)
	}
}

func TestParseGroupCodeSpecInvertedRange(t *testing.T) {
	valid := map[int]struct{}{1: {}, 2: {}}
	codes, invalid := ParseGroupCodeSpec("2:1", valid)
	if len(codes) != 0 || len(invalid) != 1 {
		t.Fatalf("codes=%v invalid=%v", codes, invalid)
	}
}
