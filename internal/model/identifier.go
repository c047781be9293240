package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IdentifierWidth is the zero-padded width used by the title URL scheme (tt0114709)
const IdentifierWidth = 7

// TitlePrefix is prepended to the padded identifier in title URLs
const TitlePrefix = "tt"

// ErrSchemaMismatch is returned for identifiers that are missing or not numeric
var ErrSchemaMismatch = errors.New("schema mismatch")

// Identifier is the canonical, zero-padded form of an external title key
type Identifier string

// NormalizeIdentifier converts a raw identifier cell into its canonical form.
//
// Accepted inputs: "114709", "0114709", "114709.0" and "tt0114709". Empty, zero,
// negative, fractional and non-numeric values fail with ErrSchemaMismatch.
// Normalizing an already normalized identifier returns it unchanged.
func NormalizeIdentifier(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToLower(s), TitlePrefix)
	if s == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrSchemaMismatch)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Numeric columns with gaps come back from pandas as floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
			return "", fmt.Errorf("%w: %q is not numeric", ErrSchemaMismatch, raw)
		}
		n = int64(f)
	}

	if n <= 0 {
		return "", fmt.Errorf("%w: %q is not a positive identifier", ErrSchemaMismatch, raw)
	}

	return Identifier(fmt.Sprintf("%0*d", IdentifierWidth, n)), nil
}

// MustIdentifier normalizes raw and panics on failure. Intended for tests and constants.
func MustIdentifier(raw string) Identifier {
	id, err := NormalizeIdentifier(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Number returns the identifier without padding, as it appears in the input file
func (id Identifier) Number() string {
	trimmed := strings.TrimLeft(string(id), "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// TitleCode returns the path segment used by both sites, e.g. tt0114709
func (id Identifier) TitleCode() string {
	return TitlePrefix + string(id)
}

func (id Identifier) String() string {
	return string(id)
}
