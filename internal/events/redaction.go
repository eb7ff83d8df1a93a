// Context redaction for outbound events, generalized from
// goflagship's internal/audit.DefaultRedactor (a fixed sensitive-key list
// applied recursively to a map) into private-attribute-reference-driven
// redaction of a Context's own attributes.
package events

import (
	"github.com/TimurManjosov/goflagship/ldcontext"
)

// RedactedContext is the wire shape of an event context: the context's
// public fields plus a record of which attributes were stripped.
type RedactedContext struct {
	Kind      string
	Key       string
	Name      string
	Anonymous bool
	Attributes map[string]any
	Redacted  []string
}

// Redact strips attributes named by privateAttributeNames (configured
// globally on the pipeline) and by the context's own private attribute
// references, recording the stripped names in the result's Redacted field.
// Only top-level custom attributes are matched; Name and Anonymous are
// always kept.
func Redact(ctx ldcontext.Context, globalPrivateAttrs []string, contextPrivateAttrs []string) RedactedContext {
	out := RedactedContext{
		Kind:      ctx.Kind(),
		Key:       ctx.Key(),
		Name:      ctx.Name(),
		Anonymous: ctx.Anonymous(),
		Attributes: map[string]any{},
	}

	toRedact := map[string]struct{}{}
	for _, a := range globalPrivateAttrs {
		toRedact[a] = struct{}{}
	}
	for _, a := range contextPrivateAttrs {
		toRedact[a] = struct{}{}
	}

	for _, ref := range attributeNames(ctx) {
		if _, redact := toRedact[ref]; redact {
			out.Redacted = append(out.Redacted, ref)
			continue
		}
		v, ok := ctx.Attribute(ref)
		if ok {
			out.Attributes[ref] = v
		}
	}
	return out
}

// attributeNames lists the custom attributes the context actually carries
// (via Context.AttributeNames), so redaction only ever touches attributes
// that are present.
func attributeNames(ctx ldcontext.Context) []string {
	return ctx.AttributeNames()
}
