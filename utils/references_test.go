package utils

import (
	"reflect"
	"testing"
)

func TestExtractReferencePatterns(t *testing.T) {
	text := "Cited as 10.1093/Bioinformatics/btz045; see also Smith et al. (2019), Jones (2020)."

	got := ExtractReferencePatterns(text)
	want := []string{
		"10.1093/bioinformatics/btz045",
		"smith et al. (2019)",
		"jones (2020)",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractReferencePatternsDeduplicates(t *testing.T) {
	text := "10.1000/ABC and again 10.1000/abc. Jones   (2020) versus Jones (2020)."

	got := ExtractReferencePatterns(text)
	want := []string{"10.1000/abc", "jones (2020)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractReferencePatternsStripsTrailingPunctuation(t *testing.T) {
	got := ExtractReferencePatterns("See 10.1000/jgraph.2020.17.")
	want := []string{"10.1000/jgraph.2020.17"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractReferencePatternsEmptyText(t *testing.T) {
	if got := ExtractReferencePatterns(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := ExtractReferencePatterns("no citations here"); got != nil {
		t.Fatalf("expected nil when nothing matches, got %v", got)
	}
}
