package schema

import (
	"fmt"

	"github.com/codenav/symdex/internal/errors"
)

// SymbolKind tags one record of a symbol-dump file.
type SymbolKind string

const (
	// SymbolKindClass marks a class declaration.
	SymbolKindClass SymbolKind = "class"
	// SymbolKindMethod marks a method declaration.
	SymbolKindMethod SymbolKind = "method"
	// SymbolKindField marks a field declaration.
	SymbolKindField SymbolKind = "field"
	// SymbolKindTypeAlias marks a type alias declaration.
	SymbolKindTypeAlias SymbolKind = "type-alias"
)

// Valid reports whether k is one of the known dump tags.
func (k SymbolKind) Valid() bool {
	switch k {
	case SymbolKindClass, SymbolKindMethod, SymbolKindField, SymbolKindTypeAlias:
		return true
	}
	return false
}

// SourceSymbolInfo is one extracted symbol record as produced by the
// extraction pipeline. Synthetic and Decompiled are only meaningful
// for classes.
type SourceSymbolInfo struct {
	FQN        string     `json:"fqn"`
	File       string     `json:"file"`
	Kind       SymbolKind `json:"kind"`
	Synthetic  bool       `json:"synthetic"`
	Decompiled bool       `json:"decompiled"`
}

// Entry converts the record into its index entry variant. Type aliases
// index as classes.
func (s SourceSymbolInfo) Entry() (FqnIndex, error) {
	file := NewFileRef(s.File)
	switch s.Kind {
	case SymbolKindClass, SymbolKindTypeAlias:
		return ClassIndex{Fqn: s.FQN, File: file}, nil
	case SymbolKindMethod:
		return MethodIndex{Fqn: s.FQN, File: file}, nil
	case SymbolKindField:
		return FieldIndex{Fqn: s.FQN, File: file}, nil
	default:
		return nil, errors.New(errors.ErrCodeUnknownKind,
			fmt.Sprintf("symbol %q has unknown kind %q", s.FQN, s.Kind), nil)
	}
}
