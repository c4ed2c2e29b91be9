// Package schema defines the indexable symbol entities and their
// projection to and from engine documents.
//
// The index holds three entry variants (classes, methods, fields), all
// keyed by fully-qualified name. Entries are immutable value objects:
// an update is modeled as delete-then-reinsert at the service layer,
// never as in-place mutation.
package schema

// Kind discriminates the index entry variants. Its values double as
// the "TYPE" discriminator written to engine documents.
type Kind string

const (
	// KindClass tags classes and type aliases.
	KindClass Kind = "ClassIndex"
	// KindMethod tags methods.
	KindMethod Kind = "MethodIndex"
	// KindField tags fields.
	KindField Kind = "FieldIndex"
)

// Label returns the human-readable name of the kind, as shown in CLI
// and MCP results.
func (k Kind) Label() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	default:
		return string(k)
	}
}

// FileRef is a provenance reference to the artifact a symbol was
// extracted from. It is written at index time as the bulk-deletion key
// and never populated on entries read back from the engine.
type FileRef struct {
	URI string
}

// NewFileRef returns a reference to the given artifact URI.
func NewFileRef(uri string) *FileRef {
	return &FileRef{URI: uri}
}

// FqnIndex is one index entry. Concrete variants are ClassIndex,
// MethodIndex and FieldIndex; the fqn is the entry's identity.
type FqnIndex interface {
	// FQN returns the fully-qualified name identifying the entry.
	FQN() string

	// Kind reports the entry variant.
	Kind() Kind

	// SourceFile returns the provenance reference. It is nil on
	// entries materialized from search results.
	SourceFile() *FileRef
}

// Interface assertions for the three variants.
var (
	_ FqnIndex = ClassIndex{}
	_ FqnIndex = MethodIndex{}
	_ FqnIndex = FieldIndex{}
)

// ClassIndex is the entry variant for classes and type aliases.
type ClassIndex struct {
	Fqn  string
	File *FileRef
}

// FQN implements FqnIndex.
func (c ClassIndex) FQN() string { return c.Fqn }

// Kind implements FqnIndex.
func (c ClassIndex) Kind() Kind { return KindClass }

// SourceFile implements FqnIndex.
func (c ClassIndex) SourceFile() *FileRef { return c.File }

// MethodIndex is the entry variant for methods.
type MethodIndex struct {
	Fqn  string
	File *FileRef
}

// FQN implements FqnIndex.
func (m MethodIndex) FQN() string { return m.Fqn }

// Kind implements FqnIndex.
func (m MethodIndex) Kind() Kind { return KindMethod }

// SourceFile implements FqnIndex.
func (m MethodIndex) SourceFile() *FileRef { return m.File }

// FieldIndex is the entry variant for fields.
type FieldIndex struct {
	Fqn  string
	File *FileRef
}

// FQN implements FqnIndex.
func (f FieldIndex) FQN() string { return f.Fqn }

// Kind implements FqnIndex.
func (f FieldIndex) Kind() Kind { return KindField }

// SourceFile implements FqnIndex.
func (f FieldIndex) SourceFile() *FileRef { return f.File }
