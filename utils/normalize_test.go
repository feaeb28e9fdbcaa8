package utils

import "testing"

func TestNormalizeInstitution(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"University of Grayfield", "grayfield"},
		{"Grayfield University", "grayfield"},
		{"The Grayfield Institute", "grayfield"},
		{"  Grayfield   College  ", "grayfield"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeInstitution(tt.in); got != tt.want {
			t.Errorf("NormalizeInstitution(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSameInstitution(t *testing.T) {
	if !SameInstitution("University of Grayfield", "Grayfield University") {
		t.Error("expected formatting variants of the same institution to match")
	}
	if SameInstitution("Northport Institute", "Westvale Institute") {
		t.Error("different institutions must not match")
	}
	if SameInstitution("", "") {
		t.Error("empty affiliations must never match each other")
	}
}
