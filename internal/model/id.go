package model

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// StableID derives a deterministic 16 character id from identity parts.
// Parts are trimmed and whitespace-collapsed before hashing so that
// cosmetic differences in extracted text do not change the id.
func StableID(parts ...string) string {
	canonical := make([]string, 0, len(parts))
	for _, p := range parts {
		canonical = append(canonical, canonicalize(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(canonical, "|")))
	return hex.EncodeToString(sum[:8])
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
