package ldcontext

// Builder provides a fluent API for constructing a single-kind context,
// mirroring the EventBuilder idiom used by the pipeline components.
type Builder struct {
	ctx Context
}

// NewBuilder starts a builder for the given key, defaulting to DefaultKind.
func NewBuilder(key string) *Builder {
	return &Builder{ctx: New(key)}
}

func (b *Builder) Kind(kind string) *Builder {
	b.ctx.kind = kind
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.ctx.name = name
	return b
}

func (b *Builder) Anonymous(anon bool) *Builder {
	b.ctx.anonymous = anon
	return b
}

func (b *Builder) Attribute(name string, value any) *Builder {
	b.ctx = b.ctx.WithAttribute(name, value)
	return b
}

func (b *Builder) Private(refs ...string) *Builder {
	b.ctx = b.ctx.WithPrivateAttributes(refs...)
	return b
}

func (b *Builder) Build() Context {
	return b.ctx
}

// MultiBuilder composes several single-kind contexts.
type MultiBuilder struct {
	contexts []Context
}

func NewMultiBuilder() *MultiBuilder {
	return &MultiBuilder{}
}

func (m *MultiBuilder) Add(c Context) *MultiBuilder {
	m.contexts = append(m.contexts, c)
	return m
}

func (m *MultiBuilder) Build() Context {
	return NewMulti(m.contexts...)
}
