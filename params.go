package rcn

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Params maps hyper-parameter names to values. A Params value is treated as
// immutable: Merge and Clone always return new maps.
type Params map[string]any

// Clone returns a shallow copy of p. A nil Params clones to an empty one.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Merge returns a new Params holding p overridden by overrides.
func (p Params) Merge(overrides Params) Params {
	out := p.Clone()
	for k, v := range overrides {
		out[k] = v
	}

	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// Has reports whether name is set.
func (p Params) Has(name string) bool {
	_, ok := p[name]

	return ok
}

// String renders p with sorted keys, e.g. "alpha=0.01, hidden_layer_size=50".
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}

	return strings.Join(parts, ", ")
}

// Float returns the named value converted to float64 if it is numeric.
func (p Params) Float(name string) (float64, bool) {
	v, ok := p[name]
	if !ok {
		return 0, false
	}

	return toFloat(v)
}

// Int returns the named value converted to int if it is an integer, or a
// float with no fractional part.
func (p Params) Int(name string) (int, bool) {
	v, ok := p[name]
	if !ok {
		return 0, false
	}

	return toInt(v)
}

// Str returns the named value if it is a string.
func (p Params) Str(name string) (string, bool) {
	v, ok := p[name].(string)

	return v, ok
}
