package ldcontext

import "strings"

// AttrRef is a parsed attribute reference: either a plain attribute name
// or a '/'-delimited path into nested attribute maps, with '~1' and '~0'
// escapes for literal '/' and '~' within a path component (mirroring JSON
// Pointer escaping).
type AttrRef struct {
	raw       string
	components []string
	isPath    bool
}

// NewAttrRef parses a reference. A leading '/' marks it as a path; a bare
// name (no leading slash) is treated as a single literal attribute name
// even if it contains '/' characters.
func NewAttrRef(ref string) AttrRef {
	if !strings.HasPrefix(ref, "/") {
		return AttrRef{raw: ref, components: []string{ref}, isPath: false}
	}
	parts := strings.Split(ref[1:], "/")
	for i, p := range parts {
		parts[i] = unescapeComponent(p)
	}
	return AttrRef{raw: ref, components: parts, isPath: true}
}

func unescapeComponent(s string) string {
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

// String returns the original reference text.
func (a AttrRef) String() string { return a.raw }

// Depth returns the number of path components (1 for a plain name).
func (a AttrRef) Depth() int { return len(a.components) }

// Component returns the i'th path component.
func (a AttrRef) Component(i int) string { return a.components[i] }

// Valid reports whether the reference is well-formed: non-empty, and if a
// path, every component non-empty.
func (a AttrRef) Valid() bool {
	if a.raw == "" {
		return false
	}
	for _, c := range a.components {
		if c == "" {
			return false
		}
	}
	return true
}

// Get resolves the reference against a context's top-level attribute
// namespace, descending into nested maps for path references.
func (a AttrRef) Get(c Context) (any, bool) {
	if !a.Valid() {
		return nil, false
	}
	v, ok := c.Attribute(a.components[0])
	if !ok || len(a.components) == 1 {
		return v, ok
	}
	for _, comp := range a.components[1:] {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = m[comp]
		if !ok {
			return nil, false
		}
	}
	return v, true
}
