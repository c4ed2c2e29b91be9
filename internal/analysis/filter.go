package analysis

import (
	bleveanalysis "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// SynonymFilterName is the registry name of the synonym token filter.
	SynonymFilterName = "fqn_synonym_filter"

	// AnalyzerName is the registry name of the fqn analyzer.
	AnalyzerName = "fqn_synonyms"
)

func init() {
	// Register custom synonym filter
	_ = registry.RegisterTokenFilter(SynonymFilterName, synonymFilterConstructor)
}

// AddToMapping registers the fqn analyzer on an index mapping. The
// analyzer keeps the whole input as one verbatim token (identifiers are
// never prose, so no word splitting) and appends one token per synonym
// alternate.
func AddToMapping(m *mapping.IndexMappingImpl) error {
	return m.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": single.Name,
		"token_filters": []string{
			SynonymFilterName,
		},
	})
}

// synonymFilterConstructor creates the synonym token filter for Bleve.
func synonymFilterConstructor(config map[string]interface{}, cache *registry.Cache) (bleveanalysis.TokenFilter, error) {
	return &synonymFilter{}, nil
}

// synonymFilter implements analysis.TokenFilter. For every incoming
// token it emits the token unchanged followed by one token per synonym
// alternate, all sharing the original's position.
type synonymFilter struct{}

// Filter implements analysis.TokenFilter.
func (f *synonymFilter) Filter(input bleveanalysis.TokenStream) bleveanalysis.TokenStream {
	result := make(bleveanalysis.TokenStream, 0, len(input))
	for _, token := range input {
		result = append(result, token)
		for _, alt := range Synonyms(string(token.Term)) {
			result = append(result, &bleveanalysis.Token{
				Term:     []byte(alt),
				Start:    token.Start,
				End:      token.End,
				Position: token.Position,
				Type:     bleveanalysis.AlphaNumeric,
			})
		}
	}
	return result
}
