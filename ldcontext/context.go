// Package ldcontext implements the evaluation context model: single-kind
// and multi-kind contexts, canonical key serialization, and attribute
// references used by clause matching.
package ldcontext

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultKind is used for single-kind contexts that don't specify one.
const DefaultKind = "user"

// MultiKind is the pseudo-kind used internally for a composite context.
const MultiKind = "multi"

var kindPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

var reservedAttributes = map[string]struct{}{
	"kind": {}, "key": {}, "name": {}, "anonymous": {}, "_meta": {},
}

// Context is a single-kind or multi-kind evaluation context.
type Context struct {
	kind              string
	key               string
	name              string
	anonymous         bool
	attributes        map[string]any
	privateAttributes []string

	// multi holds the per-kind contexts when kind == MultiKind.
	multi map[string]Context
}

// New creates a single-kind context with DefaultKind.
func New(key string) Context {
	return Context{kind: DefaultKind, key: key, attributes: map[string]any{}}
}

// NewWithKind creates a single-kind context of the given kind.
func NewWithKind(kind, key string) Context {
	return Context{kind: kind, key: key, attributes: map[string]any{}}
}

// NewMulti composes several single-kind contexts into one multi-kind
// context. Each argument must itself be single-kind with a unique kind.
func NewMulti(contexts ...Context) Context {
	m := make(map[string]Context, len(contexts))
	for _, c := range contexts {
		m[c.kind] = c
	}
	return Context{kind: MultiKind, multi: m}
}

func (c Context) Kind() string { return c.kind }
func (c Context) Key() string  { return c.key }
func (c Context) Name() string { return c.name }
func (c Context) Anonymous() bool { return c.anonymous }
func (c Context) IsMulti() bool { return c.kind == MultiKind }

// WithName, WithAnonymous, WithAttribute, WithPrivateAttributes return
// modified copies, matching the fluent Builder style used elsewhere in the
// SDK's call sites.
func (c Context) WithName(name string) Context { c.name = name; return c }

func (c Context) WithAnonymous(anon bool) Context { c.anonymous = anon; return c }

func (c Context) WithAttribute(name string, value any) Context {
	if c.attributes == nil {
		c.attributes = map[string]any{}
	}
	attrs := make(map[string]any, len(c.attributes)+1)
	for k, v := range c.attributes {
		attrs[k] = v
	}
	attrs[name] = value
	c.attributes = attrs
	return c
}

func (c Context) WithPrivateAttributes(refs ...string) Context {
	c.privateAttributes = append(append([]string{}, c.privateAttributes...), refs...)
	return c
}

// PrivateAttributes returns the attribute references this context marked
// private via WithPrivateAttributes, for the events pipeline's per-context
// redaction pass.
func (c Context) PrivateAttributes() []string { return c.privateAttributes }

// Attribute resolves a top-level attribute by plain name (not a full
// attribute reference path).
func (c Context) Attribute(name string) (any, bool) {
	switch name {
	case "kind":
		return c.kind, true
	case "key":
		return c.key, true
	case "name":
		if c.name == "" {
			return nil, false
		}
		return c.name, true
	case "anonymous":
		return c.anonymous, true
	}
	v, ok := c.attributes[name]
	return v, ok
}

// AttributeNames returns the names of this context's custom attributes
// (excluding kind/key/name/anonymous), used by the events pipeline to
// decide what's eligible for redaction.
func (c Context) AttributeNames() []string {
	names := make([]string, 0, len(c.attributes))
	for k := range c.attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// KindsInOrder returns the kinds present in this context, single-kind
// contexts yielding exactly one.
func (c Context) KindsInOrder() []string {
	if !c.IsMulti() {
		return []string{c.kind}
	}
	kinds := make([]string, 0, len(c.multi))
	for k := range c.multi {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// IndividualContext returns the single-kind context for the given kind, or
// the context itself if it already is that kind.
func (c Context) IndividualContext(kind string) (Context, bool) {
	if !c.IsMulti() {
		if c.kind == kind {
			return c, true
		}
		return Context{}, false
	}
	ic, ok := c.multi[kind]
	return ic, ok
}

// FullyQualifiedKey returns the canonical string identity of this context,
// used for bucketing and for event context-dedup.
//
// Single-kind, default kind: just the key.
// Single-kind, other kind: "kind:key" with ':' and '%' percent-escaped in key.
// Multi-kind: sorted "kind1:key1:kind2:key2" joined by ':'.
func (c Context) FullyQualifiedKey() string {
	if !c.IsMulti() {
		return singleFullyQualifiedKey(c.kind, c.key)
	}
	kinds := c.KindsInOrder()
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		ic := c.multi[k]
		parts = append(parts, k+":"+escapeKeyForFQK(ic.key))
	}
	return strings.Join(parts, ":")
}

func singleFullyQualifiedKey(kind, key string) string {
	if kind == "" || kind == DefaultKind {
		return key
	}
	return kind + ":" + escapeKeyForFQK(key)
}

func escapeKeyForFQK(key string) string {
	key = strings.ReplaceAll(key, "%", "%25")
	key = strings.ReplaceAll(key, ":", "%3A")
	return key
}

// Valid reports whether the context satisfies the structural invariants:
// non-empty key per kind, valid kind pattern, no reserved attribute names
// set at the top level, and (for multi-kind) unique, non-"multi" kinds.
func (c Context) Valid() (bool, error) {
	if c.IsMulti() {
		if len(c.multi) == 0 {
			return false, errors.New("multi-kind context must contain at least one kind")
		}
		for kind, ic := range c.multi {
			if kind == MultiKind {
				return false, errors.New(`kind "multi" is reserved and cannot be nested`)
			}
			if ok, err := ic.validateSingle(); !ok {
				return false, fmt.Errorf("kind %q: %w", kind, err)
			}
		}
		return true, nil
	}
	return c.validateSingle()
}

func (c Context) validateSingle() (bool, error) {
	if c.key == "" {
		return false, errors.New("context key must not be empty")
	}
	kind := c.kind
	if kind == "" {
		kind = DefaultKind
	}
	if kind == MultiKind {
		return false, errors.New(`kind "multi" is reserved for composite contexts`)
	}
	if !kindPattern.MatchString(kind) {
		return false, fmt.Errorf("kind %q contains invalid characters", kind)
	}
	for name := range c.attributes {
		if _, reserved := reservedAttributes[name]; reserved {
			return false, fmt.Errorf("attribute name %q is reserved", name)
		}
	}
	return true, nil
}
