// utils/normalize.go - String normalization for institution comparison
package utils

import "strings"

// institutionNoise lists legal-form and filler tokens removed before
// comparing affiliations.
var institutionNoise = []string{
	"university of", "the ", " university", " institute", " college",
	" dept.", " department", " school", ",", ".",
}

// NormalizeInstitution canonicalizes an affiliation string for equality
// comparison. This is intentionally coarse: it only needs to catch the same
// institution written with minor formatting differences.
func NormalizeInstitution(affiliation string) string {
	s := strings.ToLower(strings.TrimSpace(affiliation))
	for _, noise := range institutionNoise {
		s = strings.ReplaceAll(s, noise, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}

// SameInstitution reports whether two affiliation strings normalize to the
// same non-empty value.
func SameInstitution(a, b string) bool {
	na := NormalizeInstitution(a)
	nb := NormalizeInstitution(b)
	return na != "" && na == nb
}
