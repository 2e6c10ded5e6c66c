package migrate

import (
	"fmt"
	"math/big"
	"strings"
)

// Version is a dotted migration version. Underscores in script names act as dots.
type Version struct {
	parts []*big.Int
}

// ParseVersion parses "1", "1.2", "2_1" or "2024.01.05"
func ParseVersion(s string) (Version, error) {
	normalized := strings.ReplaceAll(s, "_", ".")
	if normalized == "" {
		return Version{}, fmt.Errorf("%w: empty version", ErrInvalidScript)
	}

	fields := strings.Split(normalized, ".")
	parts := make([]*big.Int, 0, len(fields))
	for _, f := range fields {
		n, ok := new(big.Int).SetString(f, 10)
		if !ok || n.Sign() < 0 {
			return Version{}, fmt.Errorf("%w: invalid version %q", ErrInvalidScript, s)
		}
		parts = append(parts, n)
	}

	// trailing zeros do not change ordering: 1.0 == 1
	for len(parts) > 1 && parts[len(parts)-1].Sign() == 0 {
		parts = parts[:len(parts)-1]
	}

	return Version{parts: parts}, nil
}

// String renders the canonical form: "01_0" becomes "1"
func (v Version) String() string {
	fields := make([]string, len(v.parts))
	for i, p := range v.parts {
		fields[i] = p.String()
	}
	return strings.Join(fields, ".")
}

// Compare returns -1, 0 or 1
func (v Version) Compare(o Version) int {
	for i := 0; i < len(v.parts) || i < len(o.parts); i++ {
		a, b := part(v.parts, i), part(o.parts, i)
		if c := a.Cmp(b); c != 0 {
			return c
		}
	}
	return 0
}

var zero = big.NewInt(0)

func part(parts []*big.Int, i int) *big.Int {
	if i < len(parts) {
		return parts[i]
	}
	return zero
}

// MaxVersion returns the highest parseable version in versions, or "" when there is none
func MaxVersion(versions []string) string {
	var best Version
	found := false
	for _, s := range versions {
		v, err := ParseVersion(s)
		if err != nil {
			continue
		}
		if !found || v.Compare(best) > 0 {
			best, found = v, true
		}
	}
	if !found {
		return ""
	}
	return best.String()
}
