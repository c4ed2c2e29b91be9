// Package query translates raw user query strings into engine queries.
//
// All queries target the "fqn" field, whose synonym-expanded tokens
// make abbreviations and short-package forms matchable by exact term.
// Prefix and exact clauses are combined in a disjunction so a document
// matching both ranks at least as high as one matching only the
// prefix; a wildcard clause derived from the camel-case shape of the
// term catches humped identifiers whose initials align with the
// query's uppercase letters.
//
// An empty or malformed input still yields a syntactically valid (if
// unselective) query; bounding result counts is the caller's job.
package query

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/codenav/symdex/internal/analysis"
	"github.com/codenav/symdex/internal/schema"
)

// BoostedPrefix matches documents whose fqn tokens equal or start with
// the term. The disjunction sums clause scores, so exact matches rank
// above prefix-only matches.
func BoostedPrefix(term string) query.Query {
	prefix := bleve.NewPrefixQuery(term)
	prefix.SetField(schema.FieldFQN)

	exact := bleve.NewTermQuery(term)
	exact.SetField(schema.FieldFQN)

	return bleve.NewDisjunctionQuery(prefix, exact)
}

// BoostedPrefixCamel is BoostedPrefix plus a wildcard clause built from
// the camel-case shape of the term ("HsMp" matches "HashMap").
func BoostedPrefixCamel(term string) query.Query {
	prefix := bleve.NewPrefixQuery(term)
	prefix.SetField(schema.FieldFQN)

	exact := bleve.NewTermQuery(term)
	exact.SetField(schema.FieldFQN)

	camel := bleve.NewWildcardQuery(analysis.CamelWildcard(term))
	camel.SetField(schema.FieldFQN)

	return bleve.NewDisjunctionQuery(prefix, exact, camel)
}

// Classes restricts the camel-augmented boosted-prefix query to class
// entries.
func Classes(term string) query.Query {
	return bleve.NewConjunctionQuery(
		BoostedPrefixCamel(term),
		kindFilter(schema.KindClass),
	)
}

// ClassesMethods matches class and method entries for the term while
// explicitly excluding field entries.
func ClassesMethods(term string) query.Query {
	q := bleve.NewBooleanQuery()
	q.AddMust(BoostedPrefixCamel(term))
	q.AddShould(kindFilter(schema.KindClass), kindFilter(schema.KindMethod))
	q.SetMinShould(1)
	q.AddMustNot(kindFilter(schema.KindField))
	return q
}

// ClassesMethodsPerTerm returns one ClassesMethods query per input
// term. The engine's disjunction sums clause scores, so disjunction-max
// ranking across terms is done by the caller: it runs each query
// separately and keeps every document's best score.
func ClassesMethodsPerTerm(terms []string) []query.Query {
	queries := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		queries = append(queries, ClassesMethods(term))
	}
	return queries
}

// kindFilter matches the TYPE discriminator exactly.
func kindFilter(kind schema.Kind) query.Query {
	q := bleve.NewTermQuery(string(kind))
	q.SetField(schema.FieldType)
	return q
}
