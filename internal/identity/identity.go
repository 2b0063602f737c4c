// Package identity assigns stable identifiers to OPOs and resolves the
// cross-source keys: the DSA code joining four sources, and the EIN joining
// nonprofit filings.
package identity

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"
)

// DeriveOPOID derives the canonical identifier for an OPO from its DSA code
// alone: a SHA-256 digest of a namespaced string, rendered as a UUID with
// the version and variant bits forced. Fully deterministic, same code same
// id across runs. The UUID shape keeps the id usable anywhere a v4 id is
// expected without carrying v4 randomness.
func DeriveOPOID(dsaCode string) string {
	sum := sha256.Sum256([]byte("opo:" + dsaCode))

	var b [16]byte
	copy(b[:], sum[:16])
	b[6] = (b[6] & 0x0f) | 0x40 // version 4 nibble
	b[8] = (b[8] & 0x3f) | 0x80 // RFC 4122 variant

	return uuid.UUID(b).String()
}

// NormalizeName reduces an organization name to its comparable core:
// lowercase with every non-alphanumeric rune stripped.
func NormalizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// MatchName reports whether a search candidate plausibly names the same
// organization as the query: after normalization, one must contain the
// other. Filing names drift ("LifeCenter Northwest" vs "LifeCenter
// Northwest Donation Network"), so exact equality is too strict.
func MatchName(candidate, query string) bool {
	c := NormalizeName(candidate)
	q := NormalizeName(query)
	if c == "" || q == "" {
		return false
	}
	return strings.Contains(c, q) || strings.Contains(q, c)
}
