package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// Identity is the principal that invokes a ledger operation. Identities are
// compared after case folding so hex addresses match regardless of checksum
// casing.
type Identity string

// ParseIdentity canonicalizes raw and rejects the zero identity.
func ParseIdentity(raw string) (Identity, error) {
	id := CanonicalIdentity(raw)
	if id.IsZero() {
		return "", ErrZeroIdentity
	}
	return id, nil
}

// CanonicalIdentity trims and case folds raw without validating it.
func CanonicalIdentity(raw string) Identity {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	// Caser values are stateful, one per call.
	return Identity(cases.Fold().String(trimmed))
}

// IsZero reports whether the identity is empty or an all-zero hex address.
func (id Identity) IsZero() bool {
	s := string(id)
	if s == "" {
		return true
	}
	if !strings.HasPrefix(s, "0x") || len(s) == 2 {
		return false
	}
	return strings.Trim(s[2:], "0") == ""
}

// Equal compares two identities after canonicalization.
func (id Identity) Equal(other Identity) bool {
	return CanonicalIdentity(string(id)) == CanonicalIdentity(string(other))
}

func (id Identity) String() string {
	return string(id)
}
