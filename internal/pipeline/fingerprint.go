package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the identity token for a posting from its title,
// company and application URL. The computation is case- and
// whitespace-insensitive, so two scrapes of the same job hash identically
// even when sites tweak presentation. It must never incorporate
// scrape-time or status data.
func Fingerprint(title, company, applyURL string) string {
	h := sha256.New()
	h.Write([]byte(canonicalize(title)))
	h.Write([]byte{0})
	h.Write([]byte(canonicalize(company)))
	h.Write([]byte{0})
	h.Write([]byte(canonicalize(applyURL)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalize lower-cases and collapses interior whitespace.
func canonicalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
