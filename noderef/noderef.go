package noderef

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a raw string cannot be parsed into a
// well-formed node reference. Use errors.Is() to test for it.
var ErrMalformed = errors.New("noderef: malformed node reference")

// Ref identifies a single item in a content repository.
//
// Scheme and Address together name the store (e.g. "workspace" and
// "SpacesStore"); ID is the server-assigned item identifier within that
// store. All three parts are non-empty in a valid reference.
type Ref struct {
	Scheme  string `json:"scheme"`
	Address string `json:"address"`
	ID      string `json:"id"`
}

// Parse converts the canonical string form "scheme://address/id" into a Ref.
//
// The raw string is split on the first "://" and the remainder on the first
// "/". Parse fails with ErrMalformed if either separator is missing, if any
// of the three parts is empty, or if the ID itself contains "://".
func Parse(raw string) (Ref, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Ref{}, fmt.Errorf("%w: missing \"://\" separator in %q", ErrMalformed, raw)
	}

	address, id, ok := strings.Cut(rest, "/")
	if !ok {
		return Ref{}, fmt.Errorf("%w: missing item ID segment in %q", ErrMalformed, raw)
	}

	if scheme == "" || address == "" || id == "" {
		return Ref{}, fmt.Errorf("%w: empty part in %q", ErrMalformed, raw)
	}

	if strings.Contains(id, "://") {
		return Ref{}, fmt.Errorf("%w: item ID contains \"://\" in %q", ErrMalformed, raw)
	}

	return Ref{Scheme: scheme, Address: address, ID: id}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// package-level well-known references and tests.
func MustParse(raw string) Ref {
	ref, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return ref
}

// String returns the canonical form "scheme://address/id".
// It is the inverse of Parse for every valid Ref.
func (r Ref) String() string {
	return r.Scheme + "://" + r.Address + "/" + r.ID
}

// IsZero reports whether the reference is the zero value.
func (r Ref) IsZero() bool {
	return r.Scheme == "" && r.Address == "" && r.ID == ""
}

// Validate returns ErrMalformed if any part of the reference is empty or the
// ID contains the "://" separator.
func (r Ref) Validate() error {
	if r.Scheme == "" || r.Address == "" || r.ID == "" {
		return fmt.Errorf("%w: empty part in %q", ErrMalformed, r.String())
	}
	if strings.Contains(r.ID, "://") {
		return fmt.Errorf("%w: item ID contains \"://\" in %q", ErrMalformed, r.String())
	}
	return nil
}

// Normalize trims surrounding whitespace and case-folds a raw reference
// string so that server- and caller-supplied spellings of the same
// reference compare equal.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Equal reports whether two references identify the same item, comparing
// each part case-insensitively.
func (r Ref) Equal(other Ref) bool {
	return strings.EqualFold(r.Scheme, other.Scheme) &&
		strings.EqualFold(r.Address, other.Address) &&
		strings.EqualFold(r.ID, other.ID)
}
