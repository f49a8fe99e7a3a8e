package profile

import (
	"crypto/sha256"
	"encoding/hex"

	"qpdiff/internal/rules"
)

// Fingerprint returns the SHA-256 of the profile's canonical rule listing,
// prefixed with "sha256:". Profiles with equal fingerprints compare as
// identical.
func Fingerprint(p Profile) string {
	sorted := p.Rules
	if !isSortedByKey(sorted) {
		sorted = make([]rules.ActiveRule, len(p.Rules))
		copy(sorted, p.Rules)
		rules.SortActiveRules(sorted, rules.ByKey)
	}
	hash := sha256.Sum256([]byte(rules.Listing(sorted)))
	return "sha256:" + hex.EncodeToString(hash[:])
}

func isSortedByKey(ars []rules.ActiveRule) bool {
	for i := 1; i < len(ars); i++ {
		if ars[i-1].Key().Compare(ars[i].Key()) > 0 {
			return false
		}
	}
	return true
}
