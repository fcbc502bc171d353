package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const (
	personIDPrefix = "person_"
	orgIDPrefix    = "org_"
	// bytes of the sha256 digest kept in an id
	idHashBytes = 16
)

// ResolvePersonID derives the stable id of a person from name and optional
// email. A name-only record and a name+email record resolve to different ids.
func ResolvePersonID(name, email string) (string, error) {
	n := normalizeKey(name)
	if n == "" {
		return "", validationError("resolve_person_id", "name is required")
	}
	key := n
	if e := normalizeKey(email); e != "" {
		key += "\x00" + e
	}
	return personIDPrefix + hashKey(key), nil
}

// ResolveOrgID derives the stable id of an organization from its name
func ResolveOrgID(name string) (string, error) {
	n := normalizeKey(name)
	if n == "" {
		return "", validationError("resolve_org_id", "name is required")
	}
	return orgIDPrefix + hashKey(n), nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:idHashBytes])
}

// SanitizeRelationshipType restricts a relationship label to [A-Z0-9_] so it
// can be spliced into a Cypher pattern. Both backends store the sanitized form.
func SanitizeRelationshipType(relType string) (string, error) {
	trimmed := strings.TrimSpace(relType)
	var b strings.Builder
	b.Grow(len(trimmed))
	meaningful := false
	for _, r := range trimmed {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToUpper(r))
			meaningful = true
		case r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if !meaningful {
		return "", validationError("sanitize_relationship_type", "relationship type %q has no usable characters", relType)
	}
	return b.String(), nil
}

// StrengthFromInfluence maps an external influence signal to a relationship
// strength. It is applied only when a person is first created.
func StrengthFromInfluence(level string) string {
	switch normalizeKey(level) {
	case "high", "very high", "very_high", "critical":
		return StrengthStrong
	case "medium", "moderate":
		return StrengthWarm
	default:
		return StrengthNew
	}
}
