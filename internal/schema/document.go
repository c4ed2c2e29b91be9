package schema

import (
	"fmt"

	"github.com/codenav/symdex/internal/errors"
)

// Engine document field names.
const (
	// FieldFQN carries the full name, analyzed through the synonym
	// analyzer and stored for retrieval.
	FieldFQN = "fqn"

	// FieldFile carries the originating artifact URI, keyword-analyzed.
	// Used solely as a deletion key, never as a search field.
	FieldFile = "file"

	// FieldType carries the Kind discriminator, keyword-analyzed.
	FieldType = "TYPE"

	// FieldBoost carries the stored score multiplier.
	FieldBoost = "boost"
)

// DefaultBoost is the multiplier for documents with no stored boost.
const DefaultBoost = 1.0

// Document is the engine-level projection of an index entry. The
// document ID equals the fqn.
type Document struct {
	ID    string
	FQN   string
	File  string
	Type  Kind
	Boost float64
}

// Fields returns the document body keyed by engine field names.
func (d Document) Fields() map[string]interface{} {
	return map[string]interface{}{
		FieldFQN:   d.FQN,
		FieldFile:  d.File,
		FieldType:  string(d.Type),
		FieldBoost: d.Boost,
	}
}

// ToDocument projects an entry into its engine document with the given
// boost multiplier. The entry must carry its provenance reference:
// documents are removed in bulk keyed by originating file, so an entry
// without one must never reach the index.
func ToDocument(entry FqnIndex, boost float64) (Document, error) {
	if entry.FQN() == "" {
		return Document{}, errors.New(errors.ErrCodeInvalidInput,
			"index entry has empty fqn", nil)
	}
	file := entry.SourceFile()
	if file == nil || file.URI == "" {
		return Document{}, errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("index entry %q has no source file", entry.FQN()), nil)
	}

	return Document{
		ID:    entry.FQN(),
		FQN:   entry.FQN(),
		File:  file.URI,
		Type:  entry.Kind(),
		Boost: boost,
	}, nil
}

// FromFields reconstructs an entry from a search hit's stored fields.
// The file value is intentionally discarded; returned entries always
// have an absent source file. An unrecognized TYPE tag is a fatal
// error, never coerced to a default variant.
func FromFields(id string, fields map[string]interface{}) (FqnIndex, error) {
	fqn := stringField(fields, FieldFQN)
	if fqn == "" {
		// Document ID and fqn are the same value.
		fqn = id
	}

	tag := stringField(fields, FieldType)
	switch Kind(tag) {
	case KindClass:
		return ClassIndex{Fqn: fqn}, nil
	case KindMethod:
		return MethodIndex{Fqn: fqn}, nil
	case KindField:
		return FieldIndex{Fqn: fqn}, nil
	default:
		return nil, errors.New(errors.ErrCodeUnknownKind,
			fmt.Sprintf("document %q has unrecognized TYPE tag %q", id, tag), nil)
	}
}

// BoostOf extracts the stored boost from a hit's field map, defaulting
// to DefaultBoost when absent or non-positive. Bleve hands stored
// numerics back as float64.
func BoostOf(fields map[string]interface{}) float64 {
	if v, ok := fields[FieldBoost].(float64); ok && v > 0 {
		return v
	}
	return DefaultBoost
}

// stringField extracts a string field from a hit's field map.
func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
