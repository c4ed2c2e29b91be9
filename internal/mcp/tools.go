package mcp

// SearchClassesInput defines the input schema for the search_classes tool.
type SearchClassesInput struct {
	Query string `json:"query" jsonschema:"the class name to search for, camel-case fragments and dotted package prefixes allowed"`
	Max   int    `json:"max,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchClassesOutput defines the output schema for the search_classes tool.
type SearchClassesOutput struct {
	Classes []ClassResult `json:"classes" jsonschema:"ranked class results, best match first"`
}

// ClassResult is a single ranked class match.
type ClassResult struct {
	Fqn string `json:"fqn" jsonschema:"fully-qualified class name"`
}

// SearchSymbolsInput defines the input schema for the search_symbols tool.
type SearchSymbolsInput struct {
	Terms []string `json:"terms" jsonschema:"symbol name terms searched independently, best per-term score wins"`
	Max   int      `json:"max,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchSymbolsOutput defines the output schema for the search_symbols tool.
type SearchSymbolsOutput struct {
	Symbols []SymbolResult `json:"symbols" jsonschema:"ranked class and method results, best match first"`
}

// SymbolResult is a single ranked symbol match.
type SymbolResult struct {
	Fqn  string `json:"fqn" jsonschema:"fully-qualified symbol name"`
	Kind string `json:"kind" jsonschema:"symbol kind: class or method"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Version    string `json:"version" jsonschema:"symdex version"`
	Status     string `json:"status" jsonschema:"index readiness: ready, empty, or unavailable"`
	Docs       uint64 `json:"docs" jsonschema:"documents currently searchable"`
	Files      int    `json:"files" jsonschema:"dump files recorded in the manifest"`
	Symbols    int    `json:"symbols" jsonschema:"symbols recorded in the manifest"`
	Selections int    `json:"selections" jsonschema:"picker selections recorded in the manifest"`
}
